package omd

import (
	"fmt"
	goruntime "runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xa1bed0/omd/internal/dockerclient"
	"github.com/0xa1bed0/omd/internal/hostports"
	"github.com/0xa1bed0/omd/internal/logs"
	"github.com/0xa1bed0/omd/internal/registry"
	"github.com/0xa1bed0/omd/internal/runtime"
	"github.com/0xa1bed0/omd/internal/ui"
)

type portRow struct {
	Port       int
	Owner      string
	Containers []string
	// Listening is nil when the host scan was unavailable.
	Listening *bool
}

// portReport merges what the registry claims, what Docker publishes and what
// the host listens on. Host-only ports are included when withHost is set.
func portReport(reg *registry.Registry, published []dockerclient.PublishedPort, listening []int, withHost bool) []portRow {
	rows := map[int]*portRow{}
	row := func(p int) *portRow {
		r, ok := rows[p]
		if !ok {
			r = &portRow{Port: p}
			rows[p] = r
		}
		return r
	}

	for _, rec := range reg.Projects() {
		for _, p := range rec.Ports {
			row(p).Owner = rec.Name
		}
	}
	for _, pp := range published {
		r := row(pp.HostPort)
		r.Containers = append(r.Containers, pp.Container)
	}
	if listening != nil {
		set := make(map[int]bool, len(listening))
		for _, p := range listening {
			set[p] = true
			if withHost {
				row(p)
			}
		}
		for p, r := range rows {
			l := set[p]
			r.Listening = &l
		}
	}

	out := make([]portRow, 0, len(rows))
	for _, r := range rows {
		sort.Strings(r.Containers)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

func newPortsCmd() *cobra.Command {
	var withHost bool

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "Show claimed, published and listening host ports",
		Long: `Show every host port claimed by an active project together with the
containers publishing it and whether something listens on it.
Docker and host scans are best effort.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())
			ctx, stop := signalContext(rt)
			defer stop()

			reg, err := registryStore(rt).Load()
			if err != nil {
				return err
			}

			var published []dockerclient.PublishedPort
			if dc, err := dockerClient(rt).Client(ctx); err != nil {
				logs.Warnf("skipping Docker ports: %v", err)
			} else if published, err = dc.PublishedPorts(ctx); err != nil {
				logs.Warnf("skipping Docker ports: %v", err)
			}

			listening, err := hostports.Listening(ctx, rt.Fs(), goruntime.GOOS)
			if err != nil {
				logs.Debugf("host port scan unavailable: %v", err)
				listening = nil
			}

			rows := portReport(reg, published, listening, withHost)
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No ports claimed or published")
				return nil
			}

			table := ui.NewTable("PORT", "PROJECT", "CONTAINERS", "LISTENING")
			for _, r := range rows {
				listen := "?"
				if r.Listening != nil {
					listen = "no"
					if *r.Listening {
						listen = "yes"
					}
				}
				table.AddRow(fmt.Sprint(r.Port), orDash(r.Owner), orDash(strings.Join(r.Containers, ",")), listen)
			}
			return table.Render(out)
		},
	}

	cmd.Flags().BoolVar(&withHost, "host", false, "also list host ports no project or container accounts for")
	return cmd
}
