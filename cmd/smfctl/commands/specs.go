package commands

import (
	"errors"

	"github.com/axondata/go-smf"
	"github.com/spf13/cobra"
)

// specFlags are the flags describing services on the command line
type specFlags struct {
	file      string
	name      string
	command   string
	user      string
	directory string
	env       map[string]string
}

func (f *specFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML file listing services")
	cmd.Flags().StringVar(&f.name, "name", "", "service name")
	cmd.Flags().StringVar(&f.command, "command", "", "start command")
	cmd.Flags().StringVar(&f.user, "user", "", "user the service runs as")
	cmd.Flags().StringVar(&f.directory, "dir", "", "working directory")
	cmd.Flags().StringToStringVar(&f.env, "env", nil, "environment variable KEY=VALUE (repeatable)")
}

// specs returns the services from --file, or the single service described
// by the other flags. Flag-built specs get action; file specs keep theirs.
func (f *specFlags) specs(action smf.Action) ([]*smf.ServiceSpec, error) {
	if f.file != "" {
		return smf.LoadSpecs(f.file)
	}
	if f.name == "" {
		return nil, errors.New("either --file or --name is required")
	}

	spec := smf.NewServiceSpec(f.name).
		WithCommand(f.command).
		WithUser(f.user).
		WithDirectory(f.directory).
		WithAction(action)
	for k, v := range f.env {
		spec.WithEnv(k, v)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return []*smf.ServiceSpec{spec}, nil
}

// namedSpecs builds destroy specs for service names given as arguments
func namedSpecs(names []string, action smf.Action) ([]*smf.ServiceSpec, error) {
	specs := make([]*smf.ServiceSpec, 0, len(names))
	for _, name := range names {
		spec := smf.NewServiceSpec(name).WithAction(action)
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
