package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/axondata/go-smf"
	"github.com/spf13/cobra"
)

func newRenderCommand(a *app) *cobra.Command {
	var (
		flags specFlags
		check bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the manifest generated for a service",
		Long: `Render the SMF manifest for a service without installing it.

With --check the manifest is also parsed back and compared with the service,
which needs no SMF tooling.`,
		Example: `  smfctl render --name webapp --command /usr/bin/webapp --env PORT=8080
  smfctl render -f services.yaml --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, err := flags.specs(smf.ActionCreate)
			if err != nil {
				return err
			}

			for _, spec := range specs {
				if spec.Action != smf.ActionCreate {
					continue
				}
				data, err := smf.RenderManifest(spec)
				if err != nil {
					return fmt.Errorf("%s: %w", spec.Name, err)
				}
				if check {
					if err := checkManifest(cmd, spec, data); err != nil {
						return fmt.Errorf("%s: %w", spec.Name, err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "<!-- %s -->\n%s", smf.ManifestPath(a.cfg.ManifestDir, spec.Name), data)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&check, "check", false, "validate the rendered manifest")

	return cmd
}

func checkManifest(cmd *cobra.Command, spec *smf.ServiceSpec, data []byte) error {
	dir, err := os.MkdirTemp("", "smfctl-render-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, spec.Name+smf.ManifestExt)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if err := smf.StructuralValidator.Validate(cmd.Context(), path); err != nil {
		return err
	}

	parsed, err := smf.ParseManifest(data)
	if err != nil {
		return err
	}
	if parsed.Command != spec.Command || parsed.User != spec.User || parsed.Directory != spec.Directory {
		return fmt.Errorf("%w: manifest does not round-trip", smf.ErrManifestInvalid)
	}
	return nil
}
