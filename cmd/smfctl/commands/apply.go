package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/axondata/go-smf"
	"github.com/spf13/cobra"
)

func newApplyCommand(a *app) *cobra.Command {
	var (
		flags       specFlags
		parallelism int
		wait        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update services",
		Long: `Write, validate and import manifests for the given services.

Services are read from a YAML file (--file) or described with flags. Entries
in a file may set "action: destroy" to remove a service in the same run.
With --wait, apply blocks until each created service is online and prints its
pid.`,
		Example: `  # Create a single service
  smfctl apply --name webapp --command /usr/bin/webapp --user app --dir /opt/webapp

  # Apply every service in a file, waiting up to a minute for each to come online
  smfctl apply -f services.yaml --wait 1m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, err := flags.specs(smf.ActionCreate)
			if err != nil {
				return err
			}
			r, err := a.reconciler()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			mgr := smf.NewManager(r, smf.WithConcurrency(parallelism), smf.WithTimeout(a.cfg.CommandTimeout*4))
			reports, err := mgr.Reconcile(ctx, specs...)
			printReports(cmd.OutOrStdout(), reports)
			if err != nil {
				return err
			}

			if wait > 0 {
				return waitOnline(ctx, cmd.OutOrStdout(), r, specs, wait)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&parallelism, "parallelism", 4, "max services reconciled concurrently")
	cmd.Flags().DurationVar(&wait, "wait", 0, "wait this long for created services to come online")

	return cmd
}

func newDestroyCommand(a *app) *cobra.Command {
	var flags specFlags

	cmd := &cobra.Command{
		Use:   "destroy [name...]",
		Short: "Remove services",
		Long: `Delete the manifests of the given services and drop them from SMF.

Services that have no manifest and are not registered are left alone.`,
		Example: `  smfctl destroy webapp worker
  smfctl destroy -f services.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				specs []*smf.ServiceSpec
				err   error
			)
			switch {
			case len(args) > 0:
				specs, err = namedSpecs(args, smf.ActionDestroy)
			case flags.file == "":
				return errors.New("service names or --file required")
			default:
				specs, err = flags.specs(smf.ActionDestroy)
				for _, s := range specs {
					s.Action = smf.ActionDestroy
				}
			}
			if err != nil {
				return err
			}

			r, err := a.reconciler()
			if err != nil {
				return err
			}

			reports, err := smf.NewManager(r).Reconcile(cmd.Context(), specs...)
			printReports(cmd.OutOrStdout(), reports)
			return err
		},
	}

	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "YAML file listing services")

	return cmd
}

func printReports(w io.Writer, reports map[string]smf.Report) {
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rep := reports[name]
		if rep.Plan.Service == "" {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\tchanged=%t refreshed=%t\t%s\n",
			name, rep.Plan.Action, rep.ManifestChanged, rep.Refreshed, rep.Duration.Round(time.Millisecond))
	}
}

func waitOnline(ctx context.Context, w io.Writer, r *smf.Reconciler, specs []*smf.ServiceSpec, timeout time.Duration) error {
	for _, spec := range specs {
		if spec.Action != smf.ActionCreate {
			continue
		}

		wctx, cancel := context.WithTimeout(ctx, timeout)
		_, err := smf.WaitForState(wctx, r.Client, spec.Name, []smf.State{smf.StateOnline}, 0)
		cancel()
		if err != nil {
			return err
		}

		pid, err := r.Pid(ctx, spec.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\tonline\tpid=%d\n", spec.Name, pid)
	}
	return nil
}
