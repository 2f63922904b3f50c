package dockerclient

import (
	"context"
	"sync"

	"github.com/0xa1bed0/omd/internal/apperr"
)

// Lazy dials the daemon on the first call that needs it. Commands that only
// touch files keep working while Docker is down, and the steps that do call
// Docker see the dial failure as their own error.
type Lazy struct {
	dial func(ctx context.Context) (*DockerClient, error)

	mu     sync.Mutex
	dialed bool
	dc     *DockerClient
	err    error
}

func NewLazy(dial func(ctx context.Context) (*DockerClient, error)) *Lazy {
	if dial == nil {
		dial = NewDockerClient
	}
	return &Lazy{dial: dial}
}

// Client dials once; later calls return the same client or the same error.
func (l *Lazy) Client(ctx context.Context) (*DockerClient, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dialed {
		l.dialed = true
		dc, err := l.dial(ctx)
		if err != nil {
			l.err = apperr.External("connect to docker", "", err)
		} else {
			l.dc = dc
		}
	}
	return l.dc, l.err
}

func (l *Lazy) EnsureNetwork(ctx context.Context, name, project string) (bool, error) {
	dc, err := l.Client(ctx)
	if err != nil {
		return false, err
	}
	return dc.EnsureNetwork(ctx, name, project)
}

func (l *Lazy) ConnectProxy(ctx context.Context, networkName, proxyContainer string) error {
	dc, err := l.Client(ctx)
	if err != nil {
		return err
	}
	return dc.ConnectProxy(ctx, networkName, proxyContainer)
}

func (l *Lazy) ReloadProxy(ctx context.Context, proxyContainer, configPath string) error {
	dc, err := l.Client(ctx)
	if err != nil {
		return err
	}
	return dc.ReloadProxy(ctx, proxyContainer, configPath)
}

// Close closes the client if one was dialed.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dc == nil {
		return nil
	}
	return l.dc.Close()
}
