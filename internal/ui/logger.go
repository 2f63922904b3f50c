package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// syncer is implemented by *os.File and afero files.
type syncer interface {
	Sync() error
}

type LogLevel int

// Levels are ordered by verbosity: a logger at level L prints every message
// whose level is <= L.
const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelDebugVerbose
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelDebugVerbose:
		return "debug-verbose"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Options configures the Logger.
type Options struct {
	// Out receives user-facing lines. Defaults to os.Stderr so command output
	// on stdout stays pipeable.
	Out io.Writer

	// FullLogWriter, if non-nil, receives every line regardless of level.
	FullLogWriter io.Writer

	LogLevel LogLevel

	// NoColor disables lipgloss styling on Out.
	NoColor bool
}

// Logger prints leveled lines to a terminal and mirrors everything into an
// optional full log.
type Logger struct {
	out   io.Writer
	full  io.Writer
	mu    sync.Mutex
	style styles

	logLevel LogLevel

	// fullLogBuffer holds lines written before the full log writer is set.
	fullLogBuffer []string
}

type styles struct {
	logInfo  lipgloss.Style
	logDebug lipgloss.Style
	logWarn  lipgloss.Style
	logError lipgloss.Style
	banner   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		logInfo:  lipgloss.NewStyle(),
		logDebug: lipgloss.NewStyle().Faint(true),
		logWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // orange-ish
		logError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")), // red
		banner:   lipgloss.NewStyle().Bold(true).Border(lipgloss.NormalBorder()).Padding(0, 1).Margin(1, 0),
	}
}

func plainStyles() styles {
	plain := lipgloss.NewStyle()
	return styles{logInfo: plain, logDebug: plain, logWarn: plain, logError: plain, banner: plain}
}

func New(opts Options) *Logger {
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	st := defaultStyles()
	if opts.NoColor {
		st = plainStyles()
	}
	return &Logger{
		out:      opts.Out,
		full:     opts.FullLogWriter,
		style:    st,
		logLevel: opts.LogLevel,
	}
}

// SetFullLogWriter sets the full log destination once and flushes lines
// buffered so far into it.
func (l *Logger) SetFullLogWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.full != nil {
		fmt.Fprintln(l.out, l.style.logError.Render("[ERR ] full log writer already set, ignoring"))
		return
	}

	l.full = w
	for _, line := range l.fullLogBuffer {
		io.WriteString(l.full, line)
	}
	l.fullLogBuffer = nil
}

// FullLogWriter returns the full log destination, or io.Discard before one
// is set.
func (l *Logger) FullLogWriter() io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full == nil {
		return io.Discard
	}
	return lockedWriter{mu: &l.mu, w: l.full}
}

// lockedWriter lets other writers (slog handlers) share the full log without
// interleaving with Logger lines.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// writeFullLogLocked must be called with l.mu held.
func (l *Logger) writeFullLogLocked(line string) {
	if l.full != nil {
		io.WriteString(l.full, line)
	} else {
		l.fullLogBuffer = append(l.fullLogBuffer, line)
	}
}

// Close syncs and closes the full log if it supports it.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.full.(syncer); ok {
		_ = s.Sync()
	}
	if c, ok := l.full.(io.Closer); ok {
		l.full = nil
		return c.Close()
	}
	return nil
}

func (l *Logger) Error(format string, args ...any) {
	l.printLog(LogLevelError, "ERR ", l.style.logError, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.printLog(LogLevelWarn, "WARN", l.style.logWarn, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.printLog(LogLevelInfo, "INFO", l.style.logInfo, format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.printLog(LogLevelDebug, "DEBG", l.style.logDebug, format, args...)
}

func (l *Logger) SetLogLevel(logLevel LogLevel) {
	l.mu.Lock()
	l.logLevel = logLevel
	l.mu.Unlock()
}

func (l *Logger) formatCaller(verbose bool, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if !verbose {
		return msg
	}
	pc, file, line, ok := runtime.Caller(4)
	if !ok {
		file = "?"
		line = 0
	}

	var fnName string
	if fn := runtime.FuncForPC(pc); fn != nil {
		fnName = strings.ReplaceAll(fn.Name(), "github.com/0xa1bed0/omd", "")
	}

	return fmt.Sprintf("[%s:%d %s] %s", filepath.Base(file), line, fnName, msg)
}

func (l *Logger) printLog(level LogLevel, tag string, style lipgloss.Style, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := l.formatCaller(l.logLevel >= LogLevelDebugVerbose, format, args...)

	// the full log gets no timestamp; TimestampWriter adds it at the destination
	fullLine := msg + "\n"
	stdoutLine := msg
	if tag != "" {
		fullLine = fmt.Sprintf("[%s] %s\n", tag, msg)
		if l.logLevel >= LogLevelDebug {
			stdoutLine = fmt.Sprintf("[%s] [%s] %s", time.Now().Format("15:04:05.000"), tag, msg)
		} else if level != LogLevelInfo {
			stdoutLine = fmt.Sprintf("[%s] %s", strings.TrimSpace(tag), msg)
		}
	}

	l.writeFullLogLocked(fullLine)

	if level <= l.logLevel {
		fmt.Fprintln(l.out, style.Render(stdoutLine))
	}
}

// Banner prints a boxed title.
func (l *Logger) Banner(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writeFullLogLocked(fmt.Sprintf("\n===== %s =====\n\n", title))
	if s, ok := l.full.(syncer); ok {
		s.Sync()
	}

	if l.logLevel >= LogLevelInfo {
		fmt.Fprintln(l.out, l.style.banner.Render(title))
	}
}
