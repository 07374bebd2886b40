package smf

import (
	"context"
	"fmt"
)

// ClientSMF implements SmfClient by shelling out to svcs and svcadm
type ClientSMF struct {
	// Runner executes the SMF commands
	Runner Runner

	// SvcsPath is the path to the svcs binary
	SvcsPath string

	// SvcadmPath is the path to the svcadm binary
	SvcadmPath string

	// ManifestImport is the FMRI of the manifest-import service
	ManifestImport string
}

// NewClientSMF creates a ClientSMF with default binary paths
func NewClientSMF(runner Runner) *ClientSMF {
	return &ClientSMF{
		Runner:         runner,
		SvcsPath:       DefaultSvcsPath,
		SvcadmPath:     DefaultSvcadmPath,
		ManifestImport: DefaultManifestImport,
	}
}

// NewClientSMFWithConfig creates a ClientSMF using the paths from config
func NewClientSMFWithConfig(runner Runner, config *Config) *ClientSMF {
	client := NewClientSMF(runner)
	if config == nil {
		return client
	}
	if config.SvcsPath != "" {
		client.SvcsPath = config.SvcsPath
	}
	if config.SvcadmPath != "" {
		client.SvcadmPath = config.SvcadmPath
	}
	if config.ManifestImport != "" {
		client.ManifestImport = config.ManifestImport
	}
	return client
}

// State runs `svcs -H -o STATE <name>`. svcs exits non-zero when the name
// matches no instance, which is reported as a non-existent service.
func (c *ClientSMF) State(ctx context.Context, name string) (ServiceState, error) {
	cmd := NewCommand(c.SvcsPath, "-H", "-o", "STATE", name)
	res, err := runCommand(ctx, c.Runner, cmd)
	if err != nil {
		return ServiceState{}, err
	}
	if !res.Success() {
		return ServiceState{Exists: false, State: StateUnknown}, nil
	}
	return ServiceState{Exists: true, State: ParseState(res.Stdout)}, nil
}

// Exists runs `svcs <name>`, which succeeds iff the service is registered
func (c *ClientSMF) Exists(ctx context.Context, name string) (bool, error) {
	res, err := runCommand(ctx, c.Runner, NewCommand(c.SvcsPath, name))
	if err != nil {
		return false, err
	}
	return res.Success(), nil
}

// Pid runs `svcs -p <name>` and parses the last token of its output
func (c *ClientSMF) Pid(ctx context.Context, name string) (int, error) {
	res, err := runChecked(ctx, c.Runner, NewCommand(c.SvcsPath, "-p", name))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPidUnavailable, err)
	}
	return ParsePid(res.Stdout)
}

// RefreshManifestImport disables then enables manifest-import with the
// synchronous flag. svcadm restart would return as soon as the restart was
// requested, so a following state or pid query could observe the service
// before the manifest was re-imported.
func (c *ClientSMF) RefreshManifestImport(ctx context.Context) error {
	if _, err := runChecked(ctx, c.Runner, NewCommand(c.SvcadmPath, "disable", "-s", c.ManifestImport)); err != nil {
		return err
	}
	_, err := runChecked(ctx, c.Runner, NewCommand(c.SvcadmPath, "enable", "-s", c.ManifestImport))
	return err
}

// Ensure ClientSMF implements SmfClient
var _ SmfClient = (*ClientSMF)(nil)
