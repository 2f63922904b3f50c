package omd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xa1bed0/omd/internal/runtime"
	"github.com/0xa1bed0/omd/internal/ui"
)

func newNetworkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Inspect project networks",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newNetworkListCmd())
	return cmd
}

func newNetworkListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List networks created by omd",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())
			ctx, stop := signalContext(rt)
			defer stop()

			dc, err := dockerClient(rt).Client(ctx)
			if err != nil {
				return err
			}
			networks, err := dc.ListNetworks(ctx, all)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(networks) == 0 {
				fmt.Fprintln(out, "No networks found")
				return nil
			}

			table := ui.NewTable("NETWORK", "DRIVER", "PROJECT", "CONTAINERS")
			for _, n := range networks {
				table.AddRow(n.Name, n.Driver, orDash(n.Project), orDash(strings.Join(n.Containers, ",")))
			}
			return table.Render(out)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include networks omd did not create")
	return cmd
}
