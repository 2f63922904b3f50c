// Package state holds omd's sqlite database and the activation history
// kept in it.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	_ "modernc.org/sqlite"

	omdconfig "github.com/0xa1bed0/omd/internal/apps/omd/config"
	"github.com/0xa1bed0/omd/internal/logs"
)

const (
	defaultBusyTimeout = 5 * time.Second
	defaultJournalMode = "WAL"
	pingTimeout        = 2 * time.Second
)

// Config locates the database. Fs creates the parent directory; sqlite
// itself always opens Path on the host filesystem.
type Config struct {
	Fs   afero.Fs
	Path string

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration
	JournalMode string
}

func (c Config) withDefaults() Config {
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.JournalMode == "" {
		c.JournalMode = defaultJournalMode
	}
	return c
}

func (c Config) dsn() string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(%s)",
		url.PathEscape(c.Path), c.BusyTimeout.Milliseconds(), url.QueryEscape(c.JournalMode))
}

type DB struct {
	sql *sql.DB
}

// OpenDefault opens <root>/state.db.
func OpenDefault(ctx context.Context, fsys afero.Fs) (*DB, error) {
	path := omdconfig.StateDBFile()
	logs.Debugf("opening state database at %s", path)
	return Open(ctx, Config{Fs: fsys, Path: path})
}

// Open opens or creates the database and checks it answers. The handle is
// closed when ctx is done.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, errors.New("state: database path is required")
	}
	cfg = cfg.withDefaults()

	if err := cfg.Fs.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("state: create %s: %w", filepath.Dir(cfg.Path), err)
	}

	conn, err := sql.Open("sqlite", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", cfg.Path, err)
	}
	// one writer per process; sqlite serializes the rest
	conn.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("state: ping %s: %w", cfg.Path, err)
	}

	context.AfterFunc(ctx, func() {
		if err := conn.Close(); err != nil {
			logs.Debugf("state: close: %v", err)
		}
	})
	return &DB{sql: conn}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// SQL is the underlying handle.
func (d *DB) SQL() *sql.DB {
	return d.sql
}

// WithTx commits when fn returns nil and rolls back otherwise, panics
// included.
func (d *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	committed = true
	return nil
}
