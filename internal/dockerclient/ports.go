package dockerclient

import (
	"context"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"

	"github.com/0xa1bed0/omd/internal/apperr"
)

// PublishedPort is a host port bound by a running container.
type PublishedPort struct {
	HostIP        string
	HostPort      int
	ContainerPort int
	Protocol      string
	Container     string
	Project       string
}

// PublishedPorts lists host ports held by running containers, sorted by
// host port. IPv4 and IPv6 bindings of the same port are reported once.
func (dc *DockerClient) PublishedPorts(ctx context.Context) ([]PublishedPort, error) {
	containers, err := dc.client.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, apperr.External("list containers", "", err)
	}

	type key struct {
		port      int
		proto     string
		container string
	}
	seen := map[key]bool{}

	var out []PublishedPort
	for _, c := range containers {
		name := c.ID
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		for _, p := range c.Ports {
			if p.PublicPort == 0 {
				continue
			}
			k := key{int(p.PublicPort), p.Type, name}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, PublishedPort{
				HostIP:        p.IP,
				HostPort:      int(p.PublicPort),
				ContainerPort: int(p.PrivatePort),
				Protocol:      p.Type,
				Container:     name,
				Project:       c.Labels[composeProjectLabel],
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].HostPort != out[j].HostPort {
			return out[i].HostPort < out[j].HostPort
		}
		return out[i].Container < out[j].Container
	})
	return out, nil
}
