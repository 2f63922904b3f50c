package logs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/0xa1bed0/omd/internal/ui"
)

var (
	initOnce sync.Once
	logger   *ui.Logger
)

func Init() {
	initOnce.Do(func() {
		logger = ui.New(ui.Options{
			Out:      os.Stderr,
			LogLevel: ui.LogLevelInfo,
			NoColor:  os.Getenv("NO_COLOR") != "",
		})
	})
}

func L() *ui.Logger {
	Init()
	return logger
}

// SetDebugVerbosity maps the count of -v flags to a level. Quiet wins over
// verbose.
func SetDebugVerbosity(cnt int, quiet bool) {
	switch {
	case quiet:
		L().SetLogLevel(ui.LogLevelWarn)
	case cnt <= 0:
		L().SetLogLevel(ui.LogLevelInfo)
	case cnt == 1:
		L().SetLogLevel(ui.LogLevelDebug)
	default:
		L().SetLogLevel(ui.LogLevelDebugVerbose)
	}
}

// OpenRunLog appends every following log line, with timestamps, to path.
// Only the first call in a process takes effect.
func OpenRunLog(fsys afero.Fs, path string) error {
	if L().FullLogWriter() != io.Discard {
		return nil
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := fsys.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	L().SetFullLogWriter(ui.NewTimestampWriter(f))
	return nil
}

// FileWriter is the run log destination for third-party loggers.
func FileWriter() io.Writer {
	return L().FullLogWriter()
}

func Banner(title string) {
	L().Banner(title)
}

func Infof(format string, args ...any) {
	L().Info(format, args...)
}

func Debugf(format string, args ...any) {
	L().Debug(format, args...)
}

func Warnf(format string, args ...any) {
	L().Warn(format, args...)
}

func Errorf(format string, args ...any) {
	L().Error(format, args...)
}

func PromptConfirm(text string) (bool, error) {
	return L().Confirm(text)
}

// Close flushes and closes the run log, if any.
func Close() error {
	if logger != nil {
		return logger.Close()
	}
	return nil
}
