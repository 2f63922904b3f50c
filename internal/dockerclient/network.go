package dockerclient

import (
	"context"
	"sort"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"

	"github.com/0xa1bed0/omd/internal/apperr"
	"github.com/0xa1bed0/omd/internal/logs"
)

// NetworkInfo is one row of `omd network list`.
type NetworkInfo struct {
	Name       string
	Driver     string
	Project    string
	Containers []string
}

// EnsureNetwork creates name when it does not exist. An existing network is
// success; created reports whether this call made it.
func (dc *DockerClient) EnsureNetwork(ctx context.Context, name, project string) (created bool, err error) {
	_, err = dc.client.NetworkInspect(ctx, name, network.InspectOptions{})
	if err == nil {
		logs.Debugf("network %s already exists", name)
		return false, nil
	}
	if !errdefs.IsNotFound(err) {
		return false, apperr.External("inspect network", name, err)
	}

	_, err = dc.client.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
		Labels: map[string]string{
			labelManaged: "1",
			labelProject: project,
		},
	})
	if err != nil {
		if errdefs.IsConflict(err) {
			// created by someone else in between
			return false, nil
		}
		return false, apperr.External("create network", name, err)
	}

	logs.Debugf("created network %s for project %s", name, project)
	return true, nil
}

// ConnectProxy attaches the proxy container to a project network so it can
// reach the project's containers by name.
func (dc *DockerClient) ConnectProxy(ctx context.Context, networkName, proxyContainer string) error {
	inspect, err := dc.client.NetworkInspect(ctx, networkName, network.InspectOptions{})
	if err != nil {
		return apperr.External("inspect network", networkName, err)
	}
	for id, ep := range inspect.Containers {
		if ep.Name == proxyContainer || id == proxyContainer {
			logs.Debugf("%s is already on network %s", proxyContainer, networkName)
			return nil
		}
	}

	if err := dc.client.NetworkConnect(ctx, networkName, proxyContainer, &network.EndpointSettings{}); err != nil {
		if errdefs.IsConflict(err) {
			return nil
		}
		return apperr.External("connect "+proxyContainer+" to network", networkName, err)
	}
	return nil
}

// ListNetworks returns omd-managed networks, or every network when all is set.
func (dc *DockerClient) ListNetworks(ctx context.Context, all bool) ([]NetworkInfo, error) {
	opts := network.ListOptions{}
	if !all {
		opts.Filters = filters.NewArgs(filters.Arg("label", labelManaged+"=1"))
	}

	summaries, err := dc.client.NetworkList(ctx, opts)
	if err != nil {
		return nil, apperr.External("list networks", "", err)
	}

	out := make([]NetworkInfo, 0, len(summaries))
	for _, s := range summaries {
		info := NetworkInfo{Name: s.Name, Driver: s.Driver, Project: s.Labels[labelProject]}
		// list responses leave Containers empty; inspect to fill them in
		if details, err := dc.client.NetworkInspect(ctx, s.ID, network.InspectOptions{}); err == nil {
			for _, ep := range details.Containers {
				info.Containers = append(info.Containers, ep.Name)
			}
			sort.Strings(info.Containers)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
