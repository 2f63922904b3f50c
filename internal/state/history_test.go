package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) (*DB, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := Open(ctx, Config{Path: filepath.Join(t.TempDir(), "state.db")})
	require.NoError(t, err)
	return db, ctx
}

func TestHistoryRecordAndList(t *testing.T) {
	db, ctx := openTestDB(t)
	h, err := NewHistory(ctx, db)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, h.Record(ctx, HistoryEntry{RunID: "r1", Project: "shop", Action: ActionActivate, Outcome: OutcomeOK, Ports: []int{8080}, CreatedAt: base}))
	require.NoError(t, h.Record(ctx, HistoryEntry{RunID: "r2", Project: "blog", Action: ActionActivate, Outcome: OutcomeFailed, Detail: "port conflict", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, h.Record(ctx, HistoryEntry{RunID: "r3", Project: "shop", Action: ActionDeactivate, Outcome: OutcomeOK, CreatedAt: base.Add(2 * time.Minute)}))

	all, err := h.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "r3", all[0].RunID)
	require.Equal(t, "r1", all[2].RunID)
	require.Equal(t, []int{8080}, all[2].Ports)
	require.Equal(t, []int{}, all[0].Ports)
	require.NotEmpty(t, all[0].ID)
	require.True(t, all[2].CreatedAt.Equal(base))

	shop, err := h.List(ctx, "shop", 1)
	require.NoError(t, err)
	require.Len(t, shop, 1)
	require.Equal(t, ActionDeactivate, shop[0].Action)

	blog, err := h.List(ctx, "blog", 0)
	require.NoError(t, err)
	require.Len(t, blog, 1)
	require.Equal(t, OutcomeFailed, blog[0].Outcome)
	require.Equal(t, "port conflict", blog[0].Detail)
}

func TestHistoryTrimsOldRows(t *testing.T) {
	db, ctx := openTestDB(t)
	h, err := NewHistory(ctx, db)
	require.NoError(t, err)

	base := time.Now()
	for i := 0; i < keepPerProject+5; i++ {
		require.NoError(t, h.Record(ctx, HistoryEntry{Project: "p", Action: ActionActivate, Outcome: OutcomeOK, CreatedAt: base.Add(time.Duration(i) * time.Second)}))
	}

	var n int
	require.NoError(t, db.SQL().QueryRowContext(ctx, `SELECT COUNT(*) FROM history WHERE project = 'p'`).Scan(&n))
	require.Equal(t, keepPerProject, n)
}
