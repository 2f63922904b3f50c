package omd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	omdconfig "github.com/0xa1bed0/omd/internal/apps/omd/config"
	"github.com/0xa1bed0/omd/internal/caddy"
	"github.com/0xa1bed0/omd/internal/logs"
	"github.com/0xa1bed0/omd/internal/routes"
	"github.com/0xa1bed0/omd/internal/runtime"
	"github.com/0xa1bed0/omd/internal/ui"
)

func newProxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Manage standalone proxy rules, inspect and reload the Caddy proxy",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newProxyAddCmd())
	cmd.AddCommand(newProxyRemoveCmd())
	cmd.AddCommand(newProxyListCmd())
	cmd.AddCommand(newProxyReloadCmd())
	return cmd
}

func newProxyAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add DOMAIN TARGET",
		Short: "Route DOMAIN to TARGET outside of any project",
		Long: `Write a standalone proxy rule, e.g. 'omd proxy add grafana.test grafana:3000'.
An existing rule for DOMAIN is kept as it is.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())
			ctx, stop := signalContext(rt)
			defer stop()

			settings, err := loadSettings(rt)
			if err != nil {
				return err
			}
			store := fragmentStore(rt, settings)
			added, err := store.AddRule(routes.Rule{Domain: args[0], Target: args[1]}, caddy.RenderOptions{
				HTTPS:      settings.HTTPS.Enabled,
				CertsMount: settings.Caddy.CertsMount,
			})
			if err != nil {
				return err
			}
			if !added {
				logs.Warnf("proxy rule for %s already exists in %s", args[0], store.RulePath(args[0]))
				return nil
			}
			logs.Infof("Added proxy rule %s -> %s", args[0], args[1])
			reloadBestEffort(ctx, rt, settings)
			return nil
		},
	}
}

func newProxyRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove DOMAIN",
		Aliases: []string{"rm"},
		Short:   "Remove the standalone proxy rule for DOMAIN",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())
			ctx, stop := signalContext(rt)
			defer stop()

			settings, err := loadSettings(rt)
			if err != nil {
				return err
			}
			removed, err := fragmentStore(rt, settings).RemoveRule(args[0])
			if err != nil {
				return err
			}
			if !removed {
				logs.Warnf("no proxy rule for %s", args[0])
				return nil
			}
			logs.Infof("Removed proxy rule for %s", args[0])
			reloadBestEffort(ctx, rt, settings)
			return nil
		},
	}
}

// reloadBestEffort reloads the proxy after a rule change. The file change
// stands even when the proxy can't be reached.
func reloadBestEffort(ctx context.Context, rt *runtime.Runtime, settings *omdconfig.Settings) {
	if err := dockerClient(rt).ReloadProxy(ctx, settings.Caddy.Container, settings.Caddy.Config); err != nil {
		logs.Warnf("proxy reload failed, run 'omd proxy reload' once %s is up: %v", settings.Caddy.Container, err)
	}
}

func newProxyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the routes of every project fragment and standalone rule",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())
			settings, err := loadSettings(rt)
			if err != nil {
				return err
			}

			fragments, err := fragmentStore(rt, settings).List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(fragments) == 0 {
				fmt.Fprintln(out, "No proxy fragments")
				return nil
			}

			table := ui.NewTable("PROJECT", "DOMAIN", "TARGET")
			for _, f := range fragments {
				owner := f.Project
				if f.Standalone {
					owner = "(rule)"
				}
				if len(f.Rules) == 0 {
					table.AddRow(owner, "-", "-")
				}
				for _, r := range f.Rules {
					table.AddRow(owner, r.Domain, r.Target)
				}
			}
			return table.Render(out)
		},
	}
}

func newProxyReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the proxy container to reload its configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())
			ctx, stop := signalContext(rt)
			defer stop()

			settings, err := loadSettings(rt)
			if err != nil {
				return err
			}
			if err := dockerClient(rt).ReloadProxy(ctx, settings.Caddy.Container, settings.Caddy.Config); err != nil {
				return err
			}
			logs.Infof("%s reloaded", settings.Caddy.Container)
			return nil
		},
	}
}
