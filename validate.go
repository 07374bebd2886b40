package smf

import (
	"context"
	"fmt"
	"os"
)

// Validator checks a manifest file before it replaces the live manifest
type Validator interface {
	Validate(ctx context.Context, path string) error
}

// ValidatorFunc adapts a function to the Validator interface
type ValidatorFunc func(ctx context.Context, path string) error

// Validate calls f(ctx, path)
func (f ValidatorFunc) Validate(ctx context.Context, path string) error {
	return f(ctx, path)
}

// SvccfgValidator validates manifests with `svccfg validate <path>`
type SvccfgValidator struct {
	// Runner executes svccfg
	Runner Runner
	// SvccfgPath is the path to the svccfg binary
	SvccfgPath string
}

// NewSvccfgValidator creates a SvccfgValidator with the default svccfg path
func NewSvccfgValidator(runner Runner) *SvccfgValidator {
	return &SvccfgValidator{Runner: runner, SvccfgPath: DefaultSvccfgPath}
}

// Validate runs svccfg validate. A non-zero exit is reported as
// ErrManifestInvalid wrapping the *CommandError; a failure to run svccfg at
// all is returned unchanged.
func (v *SvccfgValidator) Validate(ctx context.Context, path string) error {
	cmd := NewCommand(v.SvccfgPath, "validate", path)
	res, err := runCommand(ctx, v.Runner, cmd)
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("%w: %w", ErrManifestInvalid, &CommandError{Command: cmd, ExitCode: res.ExitCode, Stderr: res.Stderr})
	}
	return nil
}

// StructuralValidator parses the manifest with ParseManifest. It needs no
// SMF tooling and backs `smfctl render --check` on non-Solaris hosts.
var StructuralValidator = ValidatorFunc(func(_ context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &OpError{Op: "read", Path: path, Err: err}
	}
	spec, err := ParseManifest(data)
	if err != nil {
		return err
	}
	if spec.Command == "" {
		return fmt.Errorf("%w: no start method", ErrManifestInvalid)
	}
	return nil
})
