package smf

import (
	"fmt"
	"runtime"
)

// Platform family identifiers
const (
	// FamilySolaris is the family of Solaris and illumos hosts
	FamilySolaris = "solaris2"
	// FamilyUnknown is any family without a provider
	FamilyUnknown = "unknown"
)

// Platform identifies the host a provider is selected for
type Platform struct {
	// OS is the Go operating system name (runtime.GOOS)
	OS string
	// Family groups operating systems sharing a service manager
	Family string
}

// DetectPlatform returns the platform of the running process
func DetectPlatform() Platform {
	return PlatformFor(runtime.GOOS)
}

// PlatformFor maps a GOOS value to a Platform
func PlatformFor(goos string) Platform {
	switch goos {
	case "solaris", "illumos":
		return Platform{OS: goos, Family: FamilySolaris}
	default:
		return Platform{OS: goos, Family: FamilyUnknown}
	}
}

// Provider constructs a ServiceReconciler for the platforms it supports
type Provider struct {
	// Name identifies the provider
	Name string
	// Supports reports whether the provider can manage services on p
	Supports func(p Platform) bool
	// New creates the reconciler from host configuration
	New func(cfg *Config, opts ...ReconcilerOption) (ServiceReconciler, error)
}

// Registry selects a provider for the host. Providers are registered
// explicitly during initialization and consulted in registration order.
type Registry struct {
	providers []Provider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry returns a registry holding the SMF provider
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(SMFProvider())
	return r
}

// Register appends p. Names must be unique.
func (r *Registry) Register(p Provider) error {
	if p.Name == "" || p.Supports == nil || p.New == nil {
		return fmt.Errorf("smf: provider %q is incomplete", p.Name)
	}
	for _, existing := range r.providers {
		if existing.Name == p.Name {
			return fmt.Errorf("smf: provider %q already registered", p.Name)
		}
	}
	r.providers = append(r.providers, p)
	return nil
}

// Names returns the registered provider names in order
func (r *Registry) Names() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name
	}
	return names
}

// Select returns the first provider supporting platform
func (r *Registry) Select(platform Platform) (Provider, error) {
	for _, p := range r.providers {
		if p.Supports(platform) {
			return p, nil
		}
	}
	return Provider{}, fmt.Errorf("%w: %s (%s)", ErrUnsupportedPlatform, platform.OS, platform.Family)
}

// Lookup returns the provider registered under name regardless of platform
func (r *Registry) Lookup(name string) (Provider, error) {
	for _, p := range r.providers {
		if p.Name == name {
			return p, nil
		}
	}
	return Provider{}, fmt.Errorf("smf: no provider named %q", name)
}

// SMFProvider returns the provider for Solaris SMF
func SMFProvider() Provider {
	return Provider{
		Name: "smf",
		Supports: func(p Platform) bool {
			return p.Family == FamilySolaris
		},
		New: func(cfg *Config, opts ...ReconcilerOption) (ServiceReconciler, error) {
			return NewReconcilerWithConfig(cfg, nil, opts...)
		},
	}
}

// NewReconcilerWithConfig wires a Reconciler from cfg. A nil runner uses
// an ExecRunner built from cfg.
func NewReconcilerWithConfig(cfg *Config, runner Runner, opts ...ReconcilerOption) (*Reconciler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		runner = cfg.NewRunner()
	}

	validator := NewSvccfgValidator(runner)
	validator.SvccfgPath = cfg.SvccfgPath

	base := []ReconcilerOption{
		WithManifestDir(cfg.ManifestDir),
		WithValidator(validator),
	}

	return NewReconciler(NewClientSMFWithConfig(runner, cfg), append(base, opts...)...), nil
}
