package omd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xa1bed0/omd/internal/logs"
	"github.com/0xa1bed0/omd/internal/registry"
	"github.com/0xa1bed0/omd/internal/runtime"
	"github.com/0xa1bed0/omd/internal/ui"
)

func newPruneCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Forget projects whose directory is gone",
		Long: `Deactivate every registered project whose directory no longer holds an
omd.toml, releasing its ports and removing its proxy fragment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())
			ctx, stop := signalContext(rt)
			defer stop()

			ctrl, err := newController(ctx, rt)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var promptErr error
			confirm := func(stale []registry.ProjectRecord) bool {
				logs.Banner("Projects whose directory is gone")
				table := ui.NewTable("PROJECT", "PORTS", "PATH")
				for _, rec := range stale {
					table.AddRow(rec.Name, formatPorts(rec.Ports), rec.Path)
				}
				if err := table.Render(out); err != nil {
					promptErr = err
					return false
				}
				if yes {
					return true
				}
				ok, err := logs.PromptConfirm(fmt.Sprintf("Prune %d project(s)?", len(stale)))
				if errors.Is(err, ui.ErrNotInteractive) {
					err = errors.New("not a terminal, pass --yes to prune")
				}
				promptErr = err
				return err == nil && ok
			}

			pruned, err := ctrl.Prune(ctx, confirm)
			if err != nil {
				return err
			}
			if promptErr != nil {
				return promptErr
			}

			if len(pruned) == 0 {
				fmt.Fprintln(out, "Nothing pruned")
				return nil
			}
			fmt.Fprintf(out, "Pruned %d project(s)\n", len(pruned))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
