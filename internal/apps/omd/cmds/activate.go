package omd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xa1bed0/omd/internal/logs"
	"github.com/0xa1bed0/omd/internal/runtime"
	"github.com/0xa1bed0/omd/internal/ui"
)

func newActivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activate [PATH]",
		Short: "Claim a project's ports and route its services through the proxy",
		Long: `Parse the project's compose file, check its host ports against every other
active project, make sure its network exists, write its Caddy fragment and
register it. Nothing is registered unless every step succeeds.

PATH is the project directory or its omd.toml and defaults to the current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())
			ctx, stop := signalContext(rt)
			defer stop()

			ctrl, err := newController(ctx, rt)
			if err != nil {
				return err
			}

			act, err := ctrl.Activate(ctx, pathArg(args))
			if err != nil {
				return err
			}

			if act.NetworkCreated {
				logs.Infof("created network %s", act.Record.Network)
			}
			if !act.FragmentChange {
				logs.Debugf("routes unchanged")
			}

			out := cmd.OutOrStdout()
			if len(act.Routes) == 0 {
				fmt.Fprintf(out, "%s is active, no routes (no service publishes a port)\n", act.Record.Name)
			} else {
				table := ui.NewTable("DOMAIN", "TARGET")
				for _, r := range act.Routes {
					table.AddRow(r.Domain, r.Target)
				}
				fmt.Fprintf(out, "%s is active\n\n", act.Record.Name)
				if err := table.Render(out); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "\nports: %s\n", formatPorts(act.Record.Ports))
			return nil
		},
	}

	return cmd
}

func newDeactivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate [PATH]",
		Short: "Remove a project's routes and release its ports",
		Long: `Remove the project's Caddy fragment and drop it from the registry.
Deactivating a project that is not active succeeds and changes nothing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())
			ctx, stop := signalContext(rt)
			defer stop()

			ctrl, err := newController(ctx, rt)
			if err != nil {
				return err
			}

			deact, err := ctrl.Deactivate(ctx, pathArg(args))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !deact.WasRegistered {
				fmt.Fprintf(out, "%s was not active\n", deact.Project)
				return nil
			}
			fmt.Fprintf(out, "%s deactivated, released ports: %s\n", deact.Project, formatPorts(deact.FreedPorts))
			return nil
		},
	}

	return cmd
}

func newListProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list-projects",
		Aliases: []string{"ls", "list"},
		Short:   "List active projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())

			projects, err := registryStore(rt).Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if projects.Len() == 0 {
				fmt.Fprintln(out, "No active projects")
				return nil
			}

			table := ui.NewTable("PROJECT", "DOMAIN", "NETWORK", "PORTS", "CONTAINERS", "PATH")
			for _, p := range projects.Projects() {
				table.AddRow(p.Name, p.Domain, p.Network, formatPorts(p.Ports), fmt.Sprint(len(p.Containers)), p.Path)
			}
			return table.Render(out)
		},
	}

	return cmd
}
