package recorder

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRecorder_RecordRefresh(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.RecordRefresh(&RefreshEvent{
		RunID: "run-1", Kind: KindDashboard, Rows: 9, Failed: 1, Duration: 1500 * time.Millisecond,
	}))
	require.NoError(t, r.RecordRefresh(&RefreshEvent{
		RunID: "run-2", Kind: KindCatalog, Err: errors.New("exchange down"),
	}))

	n, err := r.CountRuns(KindDashboard)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var (
		failed     int
		durationMS int64
		errText    *string
	)
	require.NoError(t, r.db.QueryRow(
		`SELECT failed, duration_ms, error FROM refresh_runs WHERE run_id = ?`, "run-1",
	).Scan(&failed, &durationMS, &errText))
	assert.Equal(t, 1, failed)
	assert.Equal(t, int64(1500), durationMS)
	assert.Nil(t, errText)

	require.NoError(t, r.db.QueryRow(
		`SELECT error FROM refresh_runs WHERE run_id = ?`, "run-2",
	).Scan(&errText))
	require.NotNil(t, errText)
	assert.Equal(t, "exchange down", *errText)
}

func TestSQLiteRecorder_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r.RecordRefresh(&RefreshEvent{RunID: "a", Kind: KindCatalog, Rows: 120}))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r.Close()
	n, err := r.CountRuns(KindCatalog)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRefresh(&RefreshEvent{Kind: KindDashboard}))
	assert.NoError(t, r.Close())
}
