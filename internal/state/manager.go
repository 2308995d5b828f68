package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ning0612/Gitpush/internal/domain"
)

// DatabaseFile is the name of the sqlite file inside the state directory
const DatabaseFile = "gitpush.db"

// Run statuses
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Manager handles state persistence and sync run history
type Manager struct {
	db *sql.DB
}

// RunRecord represents a single applied sync
type RunRecord struct {
	ID        int64
	Store     string
	Ref       string
	Message   string
	StartTime time.Time
	EndTime   time.Time
	Status    string // "success", "partial", "failed"
	Created   int
	Updated   int
	Deleted   int
	Failed    int
	Error     string
}

// StatusFor derives the run status from its outcome.
// A run that could not start, or where every path failed, is "failed".
func StatusFor(summary domain.SyncSummary, err error) string {
	switch {
	case err != nil:
		return StatusFailed
	case summary.Failed == 0:
		return StatusSuccess
	case summary.Succeeded() == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// NewManager creates a new state manager
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

// initSchema creates the database schema
func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		store TEXT NOT NULL,
		ref TEXT NOT NULL,
		message TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		created INTEGER DEFAULT 0,
		updated INTEGER DEFAULT 0,
		deleted INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		error TEXT,
		recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sync_runs_ref_time ON sync_runs(store, ref, start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_status ON sync_runs(status);
	`

	_, err := m.db.Exec(schema)
	return err
}

// SaveRun records a sync run and returns its id
func (m *Manager) SaveRun(record RunRecord) (int64, error) {
	if record.Status != StatusSuccess && record.Status != StatusFailed && record.Status != StatusPartial {
		return 0, fmt.Errorf("invalid status: %s (must be 'success', 'failed', or 'partial')", record.Status)
	}

	query := `
		INSERT INTO sync_runs (store, ref, message, start_time, end_time, status, created, updated, deleted, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := m.db.Exec(query,
		record.Store,
		record.Ref,
		record.Message,
		record.StartTime,
		record.EndTime,
		record.Status,
		record.Created,
		record.Updated,
		record.Deleted,
		record.Failed,
		record.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run record: %w", err)
	}

	return res.LastInsertId()
}

const selectColumns = `id, store, ref, message, start_time, end_time, status, created, updated, deleted, failed, error`

// History retrieves the most recent runs against one ref of a store
func (m *Manager) History(store, ref string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `SELECT ` + selectColumns + `
		FROM sync_runs
		WHERE store = ? AND ref = ?
		ORDER BY start_time DESC, id DESC
		LIMIT ?
	`

	rows, err := m.db.Query(query, store, ref, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// AllHistory retrieves the most recent runs across every store and ref
func (m *Manager) AllHistory(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `SELECT ` + selectColumns + `
		FROM sync_runs
		ORDER BY start_time DESC, id DESC
		LIMIT ?
	`

	rows, err := m.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query all history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// LastSuccess retrieves the last fully successful run, or nil if none
func (m *Manager) LastSuccess(store, ref string) (*RunRecord, error) {
	query := `SELECT ` + selectColumns + `
		FROM sync_runs
		WHERE store = ? AND ref = ? AND status = 'success'
		ORDER BY start_time DESC, id DESC
		LIMIT 1
	`

	record, err := scanRecord(m.db.QueryRow(query, store, ref))
	if err == sql.ErrNoRows {
		return nil, nil // No successful run found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}

	return &record, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (RunRecord, error) {
	var record RunRecord
	var errText sql.NullString
	err := row.Scan(
		&record.ID,
		&record.Store,
		&record.Ref,
		&record.Message,
		&record.StartTime,
		&record.EndTime,
		&record.Status,
		&record.Created,
		&record.Updated,
		&record.Deleted,
		&record.Failed,
		&errText,
	)
	record.Error = errText.String
	return record, err
}

func scanRecords(rows *sql.Rows) ([]RunRecord, error) {
	var records []RunRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}
