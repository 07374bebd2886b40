package commands

import (
	"fmt"
	"sort"

	"github.com/axondata/go-smf"
	"github.com/spf13/cobra"
)

func newPidCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pid name...",
		Short: "Print the pid of running services",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.reconciler()
			if err != nil {
				return err
			}

			pids, err := smf.NewManager(r).Pid(cmd.Context(), args...)

			names := make([]string, 0, len(pids))
			for name := range pids {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", name, pids[name])
			}

			return err
		},
	}

	return cmd
}
