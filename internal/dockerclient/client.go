package dockerclient

import (
	"context"
	"log/slog"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-sdk/client"

	"github.com/0xa1bed0/omd/internal/logs"
)

const (
	labelManaged = "omd"
	labelProject = "omd.project"

	composeProjectLabel = "com.docker.compose.project"
)

// dockerAPI is the slice of the Engine API omd talks to.
type dockerAPI interface {
	NetworkInspect(ctx context.Context, networkID string, options network.InspectOptions) (network.Inspect, error)
	NetworkCreate(ctx context.Context, name string, options network.CreateOptions) (network.CreateResponse, error)
	NetworkConnect(ctx context.Context, networkID, containerID string, config *network.EndpointSettings) error
	NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, options container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
	Close() error
}

type DockerClient struct {
	client dockerAPI
}

// NewDockerClient connects to the daemon picked by the docker context and
// DOCKER_HOST. SDK logs go to the run log only.
func NewDockerClient(ctx context.Context) (*DockerClient, error) {
	sdk, err := client.New(
		ctx,
		client.WithLogger(slog.New(slog.NewTextHandler(logs.FileWriter(), &slog.HandlerOptions{Level: slog.LevelDebug}))),
	)
	if err != nil {
		return nil, err
	}

	return &DockerClient{client: sdk}, nil
}

func (dc *DockerClient) Close() error {
	return dc.client.Close()
}
