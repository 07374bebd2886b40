package smf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformFor(t *testing.T) {
	assert.Equal(t, Platform{OS: "solaris", Family: FamilySolaris}, PlatformFor("solaris"))
	assert.Equal(t, Platform{OS: "illumos", Family: FamilySolaris}, PlatformFor("illumos"))
	assert.Equal(t, Platform{OS: "linux", Family: FamilyUnknown}, PlatformFor("linux"))
}

func TestRegistrySelect(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []string{"smf"}, reg.Names())

	p, err := reg.Select(PlatformFor("illumos"))
	require.NoError(t, err)
	assert.Equal(t, "smf", p.Name)

	_, err = reg.Select(PlatformFor("linux"))
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)

	p, err = reg.Lookup("smf")
	require.NoError(t, err)
	assert.True(t, p.Supports(PlatformFor("solaris")))

	_, err = reg.Lookup("systemd")
	assert.Error(t, err)
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()
	require.Error(t, reg.Register(Provider{Name: "incomplete"}))

	fake := Provider{
		Name:     "fake",
		Supports: func(Platform) bool { return true },
		New: func(*Config, ...ReconcilerOption) (ServiceReconciler, error) {
			return NewReconciler(&fakeClient{}), nil
		},
	}
	require.NoError(t, reg.Register(fake))
	assert.Error(t, reg.Register(fake), "duplicate name")
	require.NoError(t, reg.Register(SMFProvider()))

	// Registration order decides
	p, err := reg.Select(PlatformFor("solaris"))
	require.NoError(t, err)
	assert.Equal(t, "fake", p.Name)
}

func TestSMFProviderNew(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ManifestDir = t.TempDir()
	cfg.SvccfgPath = "/usr/sbin/svccfg"

	sr, err := SMFProvider().New(cfg, WithMetrics(nil))
	require.NoError(t, err)

	r, ok := sr.(*Reconciler)
	require.True(t, ok)
	assert.Equal(t, cfg.ManifestDir, r.ManifestDir)

	v, ok := r.Validator.(*SvccfgValidator)
	require.True(t, ok)
	assert.Equal(t, "/usr/sbin/svccfg", v.SvccfgPath)

	bad := DefaultConfig()
	bad.ManifestDir = ""
	_, err = SMFProvider().New(bad)
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestNewReconcilerWithConfigRunner(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ManifestDir = t.TempDir()
	cfg.SvccfgPath = "/usr/sbin/svccfg"

	runner := newFakeRunner().on("svcs -H -o STATE webapp", svcsOnline)
	r, err := NewReconcilerWithConfig(cfg, runner)
	require.NoError(t, err)

	_, err = r.Reconcile(context.Background(), webappSpec())
	require.NoError(t, err)
	assert.Equal(t, 1, runner.count("/usr/sbin/svccfg validate "))
}
