package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/axondata/go-smf"
	"github.com/spf13/cobra"
)

func newWatchCommand(a *app) *cobra.Command {
	var (
		file      string
		debounce  time.Duration
		reconcile bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report changes to managed manifests",
		Long: `Watch the manifest directory and print each manifest that is written or
removed.

With --file and --reconcile, a change to the manifest of a service listed in
the file re-applies that service, undoing edits made outside smfctl.`,
		Example: `  smfctl watch
  smfctl watch -f services.yaml --reconcile`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reconcile && file == "" {
				return errors.New("--reconcile requires --file")
			}

			managed := make(map[string]*smf.ServiceSpec)
			if file != "" {
				specs, err := smf.LoadSpecs(file)
				if err != nil {
					return err
				}
				for _, s := range specs {
					managed[s.Name] = s
				}
			}

			var r *smf.Reconciler
			if reconcile {
				var err error
				if r, err = a.reconciler(); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			events, cleanup, err := smf.WatchManifests(ctx, a.cfg.ManifestDir, debounce)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			a.log.Info().Str("dir", a.cfg.ManifestDir).Int("managed", len(managed)).Msg("watching manifests")

			for ev := range events {
				if ev.Err != nil {
					a.log.Warn().Err(ev.Err).Msg("watch error")
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", ev.Service, ev.Op, ev.Path)

				spec, ok := managed[ev.Service]
				if r == nil || !ok {
					continue
				}
				// Our own writes settle to the rendered content and plan no change
				rep, err := r.Reconcile(ctx, spec)
				if err != nil {
					a.log.Error().Err(err).Str("service", spec.Name).Msg("drift correction failed")
					continue
				}
				if rep.ManifestChanged {
					a.log.Info().Str("service", spec.Name).Str("run_id", rep.RunID).Msg("drift corrected")
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file listing managed services")
	cmd.Flags().DurationVar(&debounce, "debounce", smf.DefaultWatchDebounce, "coalesce events for this long")
	cmd.Flags().BoolVar(&reconcile, "reconcile", false, "re-apply managed services whose manifest changed")

	return cmd
}
