// Package storage keeps a process-lifetime log of scan runs and alert
// attempts in an in-memory SQLite database.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/gescout/internal/models"
	_ "modernc.org/sqlite"
)

// DefaultMaxRows caps each table when no limit is configured.
const DefaultMaxRows = 1000

// Storage wraps an in-memory SQLite database. Nothing survives the process.
type Storage struct {
	db      *sql.DB
	maxRows int
}

// New opens a fresh in-memory database. Each table keeps at most maxRows
// newest rows.
func New(maxRows int) (*Storage, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Storage{db: db, maxRows: maxRows}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id           TEXT PRIMARY KEY,
			item_name    TEXT NOT NULL,
			buy_price    INTEGER NOT NULL,
			sell_price   INTEGER NOT NULL,
			margin       INTEGER NOT NULL,
			sent         INTEGER NOT NULL DEFAULT 0,
			attempted_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id          TEXT PRIMARY KEY,
			mode        TEXT NOT NULL,
			show_all    INTEGER NOT NULL DEFAULT 0,
			candidates  INTEGER NOT NULL,
			results     INTEGER NOT NULL,
			alerts_sent INTEGER NOT NULL,
			started_at  INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_attempted_at ON alerts(attempted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_runs_started_at ON scan_runs(started_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordAlert stores an alert attempt, assigning an id when missing.
func (s *Storage) RecordAlert(alert *models.AlertRecord) error {
	if alert.ItemName == "" {
		return fmt.Errorf("alert has no item name")
	}
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.AttemptedAt.IsZero() {
		alert.AttemptedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO alerts (id, item_name, buy_price, sell_price, margin, sent, attempted_at)
		VALUES (?,?,?,?,?,?,?)`,
		alert.ID, alert.ItemName, alert.BuyPrice, alert.SellPrice, alert.Margin,
		boolToInt(alert.Sent), alert.AttemptedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	if _, err = tx.Exec(`
		DELETE FROM alerts WHERE id NOT IN (
			SELECT id FROM alerts ORDER BY attempted_at DESC, rowid DESC LIMIT ?
		)`, s.maxRows); err != nil {
		return fmt.Errorf("failed to rotate alerts: %w", err)
	}
	return tx.Commit()
}

// RecentAlerts returns up to limit alert attempts, newest first.
func (s *Storage) RecentAlerts(limit int) ([]models.AlertRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, item_name, buy_price, sell_price, margin, sent, attempted_at
		FROM alerts ORDER BY attempted_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.AlertRecord{}
	for rows.Next() {
		var a models.AlertRecord
		var sent int
		var attemptedAtNano int64
		if err := rows.Scan(&a.ID, &a.ItemName, &a.BuyPrice, &a.SellPrice, &a.Margin, &sent, &attemptedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Sent = sent != 0
		a.AttemptedAt = time.Unix(0, attemptedAtNano)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// RecordRun stores a scan run summary, assigning an id when missing.
func (s *Storage) RecordRun(run *models.ScanRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO scan_runs (id, mode, show_all, candidates, results, alerts_sent, started_at, duration_ns)
		VALUES (?,?,?,?,?,?,?,?)`,
		run.ID, run.Mode, boolToInt(run.ShowAll), run.Candidates, run.Results, run.AlertsSent,
		run.StartedAt.UnixNano(), int64(run.Duration),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan run: %w", err)
	}
	if _, err = tx.Exec(`
		DELETE FROM scan_runs WHERE id NOT IN (
			SELECT id FROM scan_runs ORDER BY started_at DESC, rowid DESC LIMIT ?
		)`, s.maxRows); err != nil {
		return fmt.Errorf("failed to rotate scan runs: %w", err)
	}
	return tx.Commit()
}

// RecentRuns returns up to limit scan runs, newest first.
func (s *Storage) RecentRuns(limit int) ([]models.ScanRun, error) {
	rows, err := s.db.Query(`
		SELECT id, mode, show_all, candidates, results, alerts_sent, started_at, duration_ns
		FROM scan_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan runs: %w", err)
	}
	defer rows.Close()

	runs := []models.ScanRun{}
	for rows.Next() {
		var r models.ScanRun
		var showAll int
		var startedAtNano, durationNano int64
		if err := rows.Scan(&r.ID, &r.Mode, &showAll, &r.Candidates, &r.Results, &r.AlertsSent, &startedAtNano, &durationNano); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.ShowAll = showAll != 0
		r.StartedAt = time.Unix(0, startedAtNano)
		r.Duration = time.Duration(durationNano)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ClearAlerts removes every logged alert attempt.
func (s *Storage) ClearAlerts() error {
	if _, err := s.db.Exec(`DELETE FROM alerts`); err != nil {
		return fmt.Errorf("failed to clear alerts: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
