package smf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config contains host settings for the SMF provider
type Config struct {
	// ManifestDir is the directory manifests are written to
	ManifestDir string `validate:"required,startswith=/"`
	// ManifestImport is the FMRI of the manifest-import service
	ManifestImport string `validate:"required"`
	// SvcsPath is the path to the svcs binary
	SvcsPath string `validate:"required"`
	// SvcadmPath is the path to the svcadm binary
	SvcadmPath string `validate:"required"`
	// SvccfgPath is the path to the svccfg binary
	SvccfgPath string `validate:"required"`
	// Privileged prefixes SMF commands with PrivilegeCommand
	Privileged bool
	// PrivilegeCommand is the privilege escalation command
	PrivilegeCommand string `validate:"required_if=Privileged true"`
	// CommandTimeout bounds each external command; zero disables it
	CommandTimeout time.Duration
	// LogLevel is one of debug, info, warn, error
	LogLevel string `validate:"omitempty,oneof=debug info warn error"`
	// MetricsAddr is the listen address for the metrics endpoint, empty to disable
	MetricsAddr string `validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the default configuration for a Solaris host
func DefaultConfig() *Config {
	return &Config{
		ManifestDir:      DefaultManifestDir,
		ManifestImport:   DefaultManifestImport,
		SvcsPath:         DefaultSvcsPath,
		SvcadmPath:       DefaultSvcadmPath,
		SvccfgPath:       DefaultSvccfgPath,
		Privileged:       os.Geteuid() != 0,
		PrivilegeCommand: DefaultPrivilegeCommand,
		CommandTimeout:   DefaultCommandTimeout,
		LogLevel:         "info",
	}
}

type fileConfig struct {
	ManifestDir      string `toml:"manifest_dir"`
	ManifestImport   string `toml:"manifest_import"`
	SvcsPath         string `toml:"svcs_path"`
	SvcadmPath       string `toml:"svcadm_path"`
	SvccfgPath       string `toml:"svccfg_path"`
	Privileged       bool   `toml:"privileged"`
	PrivilegeCommand string `toml:"privilege_command"`
	CommandTimeout   string `toml:"command_timeout"`
	LogLevel         string `toml:"log_level"`
	MetricsAddr      string `toml:"metrics_addr"`
}

// LoadConfig reads a TOML config file over DefaultConfig. Keys absent from
// the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load smf config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load smf config: unknown key %q", undecoded[0].String())
	}

	setString := func(key string, dst *string, v string) {
		if meta.IsDefined(key) {
			*dst = strings.TrimSpace(v)
		}
	}
	setString("manifest_dir", &cfg.ManifestDir, raw.ManifestDir)
	setString("manifest_import", &cfg.ManifestImport, raw.ManifestImport)
	setString("svcs_path", &cfg.SvcsPath, raw.SvcsPath)
	setString("svcadm_path", &cfg.SvcadmPath, raw.SvcadmPath)
	setString("svccfg_path", &cfg.SvccfgPath, raw.SvccfgPath)
	setString("privilege_command", &cfg.PrivilegeCommand, raw.PrivilegeCommand)
	setString("log_level", &cfg.LogLevel, raw.LogLevel)
	setString("metrics_addr", &cfg.MetricsAddr, raw.MetricsAddr)

	if meta.IsDefined("privileged") {
		cfg.Privileged = raw.Privileged
	}

	if meta.IsDefined("command_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CommandTimeout))
		if err != nil {
			return nil, fmt.Errorf("parse command_timeout: %w", err)
		}
		cfg.CommandTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if c.CommandTimeout < 0 {
		return &InvalidSpecError{Field: "Config.CommandTimeout", Reason: "must not be negative"}
	}
	return nil
}

// NewRunner creates an ExecRunner from the configuration
func (c *Config) NewRunner() *ExecRunner {
	return NewExecRunner().
		WithPrivilege(c.Privileged, c.PrivilegeCommand).
		WithTimeout(c.CommandTimeout)
}
