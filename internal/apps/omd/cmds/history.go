package omd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xa1bed0/omd/internal/runtime"
	"github.com/0xa1bed0/omd/internal/ui"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [PROJECT]",
		Short: "Show recent activations, deactivations and prunes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())
			ctx, stop := signalContext(rt)
			defer stop()

			var project string
			if len(args) == 1 {
				project = args[0]
			}

			h, err := openHistory(ctx, rt)
			if err != nil {
				return err
			}
			entries, err := h.List(ctx, project, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history yet")
				return nil
			}

			table := ui.NewTable("TIME", "PROJECT", "ACTION", "OUTCOME", "PORTS", "DETAIL")
			for _, e := range entries {
				table.AddRow(
					e.CreatedAt.Local().Format(time.DateTime),
					e.Project,
					string(e.Action),
					string(e.Outcome),
					formatPorts(e.Ports),
					orDash(e.Detail),
				)
			}
			return table.Render(out)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}
