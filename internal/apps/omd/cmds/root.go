package omd

import (
	"strings"

	"github.com/spf13/cobra"

	omdconfig "github.com/0xa1bed0/omd/internal/apps/omd/config"
	"github.com/0xa1bed0/omd/internal/logs"
	"github.com/0xa1bed0/omd/internal/runtime"
)

var (
	verbosity int
	quiet     bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "omd",
		Short: "Local dev environments behind one reverse proxy",
		Long: `omd gives every local project its own domain behind a shared Caddy proxy
and makes sure no two projects ever claim the same host port.

Projects are described by an omd.toml next to their compose file.
The config root is ~/.omd, or $OMD_DIR when set.`,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logs.SetDebugVerbosity(verbosity, quiet)

			rt := runtime.FromContext(cmd.Context())
			if rt == nil {
				return nil
			}
			if err := logs.OpenRunLog(rt.Fs(), omdconfig.RunLogPath()); err != nil {
				logs.Debugf("run log disabled: %v", err)
			}
			logs.Debugf("omd %s (run %s, root %s)", strings.Join(append([]string{cmd.Name()}, args...), " "), rt.RunID(), omdconfig.ConfigBasePath())
			return nil
		},
		// we will handle that
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity level (-vv adds call sites)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print warnings and errors")

	rootCmd.AddCommand(newActivateCmd())
	rootCmd.AddCommand(newDeactivateCmd())
	rootCmd.AddCommand(newListProjectsCmd())
	rootCmd.AddCommand(newProxyCmd())
	rootCmd.AddCommand(newHostsCmd())
	rootCmd.AddCommand(newNetworkCmd())
	rootCmd.AddCommand(newPortsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newPruneCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func Execute(rt *runtime.Runtime) error {
	return newRootCmd().ExecuteContext(rt.Ctx())
}
