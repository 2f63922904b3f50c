package dockerclient

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/0xa1bed0/omd/internal/apperr"
	"github.com/0xa1bed0/omd/internal/logs"
)

// ReloadProxy asks the caddy process inside proxyContainer to reload its
// configuration from configPath.
func (dc *DockerClient) ReloadProxy(ctx context.Context, proxyContainer, configPath string) error {
	cmd := []string{"caddy", "reload", "--config", configPath, "--adapter", "caddyfile"}
	stdout, stderr, code, err := dc.exec(ctx, proxyContainer, cmd)
	if err != nil {
		return apperr.External("reload proxy", proxyContainer, err)
	}
	if stdout != "" {
		logs.Debugf("caddy reload: %s", stdout)
	}
	if code != 0 {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = strings.TrimSpace(stdout)
		}
		return apperr.External("reload proxy", proxyContainer, fmt.Errorf("exit code %d: %s", code, msg))
	}
	return nil
}

func (dc *DockerClient) exec(ctx context.Context, containerID string, cmd []string) (stdout, stderr string, exitCode int, err error) {
	created, err := dc.client.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", "", 0, fmt.Errorf("exec create: %w", err)
	}

	attach, err := dc.client.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", "", 0, fmt.Errorf("exec attach: %w", err)
	}
	defer attach.Close()

	var outBuf, errBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&outBuf, &errBuf, attach.Reader); err != nil {
		return "", "", 0, fmt.Errorf("exec read: %w", err)
	}

	inspect, err := dc.client.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return "", "", 0, fmt.Errorf("exec inspect: %w", err)
	}
	return outBuf.String(), errBuf.String(), inspect.ExitCode, nil
}
