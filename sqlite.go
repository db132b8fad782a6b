package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	RunStatusDone   = "done"
	RunStatusFailed = "failed"
)

// RunRecord is one finished engine run
type RunRecord struct {
	ID           string    `json:"id"`
	FinishedAt   time.Time `json:"finishedAt"`
	Status       string    `json:"status"`
	InputFrames  int       `json:"inputFrames"`
	OutputFrames int       `json:"outputFrames"`
	Duration     int64     `json:"durationMs"`
	Params       string    `json:"params"`
	Error        string    `json:"error"`
}

type Sqlite struct {
	pool *sql.DB
}

func NewSqlite(path string) (*Sqlite, error) {
	pool, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error when opening sqlite: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return &Sqlite{
		pool: pool,
	}, nil
}

//go:embed migrations/*.sql
var embedMigrations embed.FS

func (s *Sqlite) RunMigrations() error {
	migrationFs, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create fs.FS: %w", err)
	}

	d, err := iofs.New(migrationFs, ".")
	if err != nil {
		return fmt.Errorf("failed to create new instance: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.pool, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("error to get driver with instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("error to make new instance of migration: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error doing migrations: %w", err)
	}
	return nil
}

func (s *Sqlite) InsertRun(run *RunRecord) error {
	insertSQL := `INSERT INTO runs (id, finished_at, status, input_frames, output_frames, duration_ms, params, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	statement, err := s.pool.Prepare(insertSQL)
	if err != nil {
		return err
	}

	defer statement.Close()
	_, err = statement.Exec(run.ID, run.FinishedAt.UnixMilli(), run.Status, run.InputFrames,
		run.OutputFrames, run.Duration, run.Params, run.Error)
	return err
}

// GetRuns returns the most recent runs first
func (s *Sqlite) GetRuns(limit int) ([]RunRecord, error) {
	querySQL := `SELECT id, finished_at, status, input_frames, output_frames, duration_ms, params, error
		FROM runs ORDER BY finished_at DESC, rowid DESC LIMIT ?`
	rows, err := s.pool.Query(querySQL, limit)
	if err != nil {
		return []RunRecord{}, err
	}

	defer rows.Close()
	runs := []RunRecord{}
	for rows.Next() {
		var r RunRecord
		var finishedAt int64
		if err := rows.Scan(&r.ID, &finishedAt, &r.Status, &r.InputFrames, &r.OutputFrames, &r.Duration, &r.Params, &r.Error); err != nil {
			return runs, err
		}
		r.FinishedAt = time.UnixMilli(finishedAt).UTC()
		runs = append(runs, r)
	}

	// Check for errors from iterating over rows
	if err := rows.Err(); err != nil {
		return []RunRecord{}, err
	}

	return runs, nil
}

func (s *Sqlite) CountRuns(status string) (int, error) {
	var count int
	err := s.pool.QueryRow(`SELECT COUNT(*) FROM runs WHERE status = ?`, status).Scan(&count)
	return count, err
}

func (s *Sqlite) Close() error {
	return s.pool.Close()
}
