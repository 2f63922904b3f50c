package ui

import (
	"bytes"
	"io"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000"

// TimestampWriter prefixes every line written through it with a timestamp.
// Partial lines are held until their newline arrives or Close is called.
type TimestampWriter struct {
	mu      sync.Mutex
	w       io.Writer
	pending []byte
	now     func() time.Time
}

func NewTimestampWriter(w io.Writer) *TimestampWriter {
	return &TimestampWriter{w: w, now: time.Now}
}

func (tw *TimestampWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.pending = append(tw.pending, p...)
	for {
		i := bytes.IndexByte(tw.pending, '\n')
		if i < 0 {
			break
		}
		if err := tw.emit(tw.pending[:i+1]); err != nil {
			return 0, err
		}
		tw.pending = tw.pending[i+1:]
	}
	return len(p), nil
}

func (tw *TimestampWriter) emit(line []byte) error {
	prefix := "[" + tw.now().Format(timestampLayout) + "] "
	_, err := tw.w.Write(append([]byte(prefix), line...))
	return err
}

// Sync flushes to the underlying writer if it supports it.
func (tw *TimestampWriter) Sync() error {
	if s, ok := tw.w.(syncer); ok {
		return s.Sync()
	}
	return nil
}

// Close writes any partial line and closes the underlying writer if it
// supports it.
func (tw *TimestampWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if len(tw.pending) > 0 {
		line := append(tw.pending, '\n')
		tw.pending = nil
		if err := tw.emit(line); err != nil {
			return err
		}
	}
	if c, ok := tw.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
