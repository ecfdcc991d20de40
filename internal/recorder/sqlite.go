package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"CoinDash/internal/logger"
)

// SQLiteRecorder writes refresh runs to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read the run log while the service writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.With("recorder").WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refresh_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			kind        TEXT NOT NULL,
			rows        INTEGER,
			failed      INTEGER,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_ts ON refresh_runs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_kind ON refresh_runs(kind, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRefresh(evt *RefreshEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errText sql.NullString
	if evt.Err != nil {
		errText = sql.NullString{String: evt.Err.Error(), Valid: true}
	}

	_, err := r.db.Exec(`INSERT INTO refresh_runs
		(run_id, timestamp, kind, rows, failed, duration_ms, error)
		VALUES (?,?,?,?,?,?,?)`,
		evt.RunID, r.now().Unix(), evt.Kind, evt.Rows, evt.Failed,
		evt.Duration.Milliseconds(), errText,
	)
	return err
}

// CountRuns returns how many runs of kind are recorded.
func (r *SQLiteRecorder) CountRuns(kind string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM refresh_runs WHERE kind = ?`, kind).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	logger.With("recorder").Info("closing sqlite recorder")
	return r.db.Close()
}
