package commands

import (
	"fmt"

	"github.com/axondata/go-smf"
	"github.com/spf13/cobra"
)

func newPlanCommand(a *app) *cobra.Command {
	var flags specFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the steps apply would take",
		Long: `Observe SMF and print the steps each service needs, without changing anything.

A create plan always writes the manifest (an identical manifest is left as
is) and refreshes manifest-import unless the service is already online. A
destroy plan refreshes only while the service is still registered.`,
		Example: `  smfctl plan -f services.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, err := flags.specs(smf.ActionCreate)
			if err != nil {
				return err
			}
			r, err := a.reconciler()
			if err != nil {
				return err
			}

			for _, spec := range specs {
				plan, err := r.Plan(cmd.Context(), spec)
				if err != nil {
					return fmt.Errorf("%s: %w", spec.Name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tobserved=%s\t%s\n",
					spec.Name, plan.Action, plan.Observed, plan)
			}
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
