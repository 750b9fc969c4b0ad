package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// RunStatus is the final status of a run
type RunStatus string

const (
	StatusSuccess   RunStatus = "success"
	StatusPartial   RunStatus = "partial"
	StatusFailed    RunStatus = "failed"
	StatusDryRun    RunStatus = "dry-run"
	StatusCancelled RunStatus = "cancelled"
)

// IsValid checks if the status is a known value
func (s RunStatus) IsValid() bool {
	switch s {
	case StatusSuccess, StatusPartial, StatusFailed, StatusDryRun, StatusCancelled:
		return true
	}
	return false
}

// Manager persists run history
type Manager struct {
	db *sql.DB
}

// RunRecord is one finished run
type RunRecord struct {
	RunID     string
	Remote    string
	Source    string
	DestDir   string
	StartTime time.Time
	EndTime   time.Time
	Status    RunStatus
	// FinalState is the last pipeline state reached
	FinalState    string
	DryRun        bool
	FilesIncluded int
	FilesCopied   int
	FilesFailed   int
	BytesCopied   int64
	FilesDeleted  int
	Strategy      string
	Error         string
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.NewString()
}

// NewManager opens (or creates) the history database at dbPath
func NewManager(dbPath string) (*Manager, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("history database path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection avoids "database is locked" between our own statements
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

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

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		remote TEXT NOT NULL,
		source TEXT NOT NULL,
		dest_dir TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		final_state TEXT,
		dry_run INTEGER DEFAULT 0,
		files_included INTEGER DEFAULT 0,
		files_copied INTEGER DEFAULT 0,
		files_failed INTEGER DEFAULT 0,
		bytes_copied INTEGER DEFAULT 0,
		files_deleted INTEGER DEFAULT 0,
		strategy TEXT,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_source_time ON runs(remote, source, start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_time ON runs(start_time DESC);
	`

	_, err := m.db.Exec(schema)
	return err
}

// SaveRun records a finished run. An empty RunID gets a fresh one.
func (m *Manager) SaveRun(record RunRecord) (string, error) {
	if !record.Status.IsValid() {
		return "", fmt.Errorf("invalid status: %q", record.Status)
	}
	if record.RunID == "" {
		record.RunID = NewRunID()
	}

	query := `
		INSERT INTO runs (run_id, remote, source, dest_dir, start_time, end_time, status, final_state,
			dry_run, files_included, files_copied, files_failed, bytes_copied, files_deleted, strategy, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := m.db.Exec(query,
		record.RunID,
		record.Remote,
		record.Source,
		record.DestDir,
		record.StartTime,
		record.EndTime,
		string(record.Status),
		record.FinalState,
		record.DryRun,
		record.FilesIncluded,
		record.FilesCopied,
		record.FilesFailed,
		record.BytesCopied,
		record.FilesDeleted,
		record.Strategy,
		record.Error,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save run record: %w", err)
	}

	return record.RunID, nil
}

const selectColumns = `
	SELECT run_id, remote, source, dest_dir, start_time, end_time, status, final_state,
		dry_run, files_included, files_copied, files_failed, bytes_copied, files_deleted, strategy, error
	FROM runs
`

// History returns the most recent runs across all remotes, newest first
func (m *Manager) History(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := m.db.Query(selectColumns+`ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

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

// LastRun returns the latest run for remote:source, or nil if there is none
func (m *Manager) LastRun(remote, source string) (*RunRecord, error) {
	row := m.db.QueryRow(selectColumns+`WHERE remote = ? AND source = ? ORDER BY start_time DESC LIMIT 1`,
		remote, source)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last run: %w", err)
	}

	return &record, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (RunRecord, error) {
	var (
		record     RunRecord
		status     string
		finalState sql.NullString
		strategy   sql.NullString
		errText    sql.NullString
	)
	err := s.Scan(
		&record.RunID,
		&record.Remote,
		&record.Source,
		&record.DestDir,
		&record.StartTime,
		&record.EndTime,
		&status,
		&finalState,
		&record.DryRun,
		&record.FilesIncluded,
		&record.FilesCopied,
		&record.FilesFailed,
		&record.BytesCopied,
		&record.FilesDeleted,
		&strategy,
		&errText,
	)
	if err != nil {
		return RunRecord{}, err
	}

	record.Status = RunStatus(status)
	record.FinalState = finalState.String
	record.Strategy = strategy.String
	record.Error = errText.String
	return record, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
