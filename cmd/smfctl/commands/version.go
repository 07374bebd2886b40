package commands

import (
	"fmt"

	"github.com/axondata/go-smf"
	"github.com/spf13/cobra"
)

func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Skip config loading so version works on any host
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			info := smf.GetVersion()
			fmt.Fprintf(cmd.OutOrStdout(), "smfctl %s (commit: %s, built: %s)\n", version, commit, buildDate)
			fmt.Fprintf(cmd.OutOrStdout(), "library %s, manager %s, manifests in %s\n", info.Version, info.Manager, info.ManifestDir)
		},
	}
}
