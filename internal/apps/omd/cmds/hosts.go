package omd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	omdconfig "github.com/0xa1bed0/omd/internal/apps/omd/config"
	"github.com/0xa1bed0/omd/internal/hosts"
	"github.com/0xa1bed0/omd/internal/logs"
	"github.com/0xa1bed0/omd/internal/runtime"
	"github.com/0xa1bed0/omd/internal/ui"
)

func newHostsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "Inspect and clean up the omd sections of the hosts file",
		Long: `omd keeps one marked section per project in the hosts file when
hosts.enabled is set. These commands work on the file named by hosts.file
whether or not the feature is enabled.`,
		Args: cobra.NoArgs,
	}
	cmd.AddCommand(newHostsListCmd())
	cmd.AddCommand(newHostsCleanupCmd())
	return cmd
}

func hostsFile(rt *runtime.Runtime, settings *omdconfig.Settings) *hosts.File {
	return hosts.NewFile(rt.Fs(), settings.Hosts.File, settings.Hosts.Address)
}

func newHostsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the domains omd manages in the hosts file",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())
			settings, err := loadSettings(rt)
			if err != nil {
				return err
			}

			domains, err := hostsFile(rt, settings).Domains()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(domains) == 0 {
				fmt.Fprintf(out, "No omd entries in %s\n", settings.Hosts.File)
				return nil
			}

			projects := make([]string, 0, len(domains))
			for p := range domains {
				projects = append(projects, p)
			}
			sort.Strings(projects)

			table := ui.NewTable("PROJECT", "ADDRESS", "DOMAINS")
			for _, p := range projects {
				table.AddRow(p, settings.Hosts.Address, strings.Join(domains[p], ","))
			}
			return table.Render(out)
		},
	}
}

func newHostsCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove every omd section from the hosts file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())
			settings, err := loadSettings(rt)
			if err != nil {
				return err
			}

			removed, err := hostsFile(rt, settings).Cleanup()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(removed) == 0 {
				fmt.Fprintln(out, "Nothing to clean up")
				return nil
			}
			logs.Debugf("removed hosts sections: %s", strings.Join(removed, ", "))
			fmt.Fprintf(out, "Removed %d section(s) from %s\n", len(removed), settings.Hosts.File)
			return nil
		},
	}
}
