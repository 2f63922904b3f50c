package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/0xa1bed0/omd/internal/logs"
)

// Runtime carries what one omd invocation shares between its commands: the
// root context, the run id and the resources to release on exit.
type Runtime struct {
	runID string
	fs    afero.Fs

	ctx        context.Context
	cancelFunc context.CancelFunc

	mu       sync.Mutex
	closers  []namedCloser
	exitFunc func(code int)
	stderr   io.Writer
}

type namedCloser struct {
	name string
	c    io.Closer
}

type runtimeKey struct{}

func NewHostRuntime() *Runtime {
	return New(afero.NewOsFs())
}

// New builds a runtime over fsys.
func New(fsys afero.Fs) *Runtime {
	baseCtx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		runID:      uuid.NewString(),
		fs:         fsys,
		cancelFunc: cancel,
		exitFunc:   os.Exit,
		stderr:     os.Stderr,
	}
	// The runtime rides on the context only so cobra handlers can reach it;
	// it is pulled out once at the top of each command and nowhere else.
	rt.ctx = context.WithValue(baseCtx, runtimeKey{}, rt)
	return rt
}

func (rt *Runtime) Ctx() context.Context {
	return rt.ctx
}

func (rt *Runtime) CancelCtx() {
	rt.cancelFunc()
}

func (rt *Runtime) RunID() string {
	return rt.runID
}

// Fs is the filesystem every command works on.
func (rt *Runtime) Fs() afero.Fs {
	return rt.fs
}

// AddCloser registers c to be closed by Finalize, in reverse order.
func (rt *Runtime) AddCloser(name string, c io.Closer) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.closers = append(rt.closers, namedCloser{name: name, c: c})
}

func (rt *Runtime) closeAll() {
	rt.mu.Lock()
	closers := rt.closers
	rt.closers = nil
	rt.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].c.Close(); err != nil {
			logs.Debugf("closing %s: %v", closers[i].name, err)
		}
	}
}

func FromContext(ctx context.Context) *Runtime {
	v := ctx.Value(runtimeKey{})
	if v == nil {
		return nil
	}
	rt, _ := v.(*Runtime)
	return rt
}

func FromContextOrPanic(ctx context.Context) *Runtime {
	rt := FromContext(ctx)
	if rt == nil {
		panic(errors.New("runtime not found in this context"))
	}
	return rt
}

// Finalize handles both panic and normal exit and sets the exit code.
// Call it in a defer at the top of main.
func (rt *Runtime) Finalize(appName, helpHint string, execErr *error) {
	if r := recover(); r != nil {
		fmt.Fprintf(rt.stderr, "%s panic: %v\n", appName, r)
		fmt.Fprintf(rt.stderr, "%s\n", debug.Stack())
		if helpHint != "" {
			fmt.Fprintln(rt.stderr, helpHint)
		}
		rt.CancelCtx()
		rt.closeAll()
		logs.Close()
		rt.exitFunc(1)
		return
	}

	rt.CancelCtx()
	rt.closeAll()

	failed := execErr != nil && *execErr != nil
	if failed {
		logs.Errorf("%s: %v", appName, *execErr)
		if helpHint != "" {
			fmt.Fprintln(rt.stderr, helpHint)
		}
	}

	logs.Close()
	if failed {
		rt.exitFunc(1)
	}
}
