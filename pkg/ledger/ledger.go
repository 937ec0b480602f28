// Package ledger records finished runs in PostgreSQL.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("ledger: run not found")

// Run is one finished pipeline run.
type Run struct {
	ID         string
	StartedAt  time.Time
	Elapsed    time.Duration
	Frames     uint64
	FPS        float64
	Detector   string
	Classifier string
	Source     string
	StopReason string
	Error      string // Empty when the run ended cleanly
}

// Recorder stores runs. *Ledger implements it; the app accepts any.
type Recorder interface {
	Record(ctx context.Context, run Run) error
}

// Ledger manages the PostgreSQL connection.
type Ledger struct {
	conn *pgx.Conn
}

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, connString string) (*Ledger, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect ledger: %w", err)
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	return &Ledger{conn: conn}, nil
}

// initSchema creates the runs table if it does not exist.
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS agecam_runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			elapsed_ms BIGINT NOT NULL,
			frames BIGINT NOT NULL,
			fps DOUBLE PRECISION NOT NULL,
			detector TEXT NOT NULL,
			classifier TEXT NOT NULL,
			source TEXT NOT NULL,
			stop_reason TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			recorded_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS agecam_runs_started_at_idx ON agecam_runs (started_at DESC);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (l *Ledger) Close(ctx context.Context) error {
	return l.conn.Close(ctx)
}

// Record inserts a run. Recording the same id twice overwrites it.
func (l *Ledger) Record(ctx context.Context, r Run) error {
	_, err := l.conn.Exec(ctx, `
		INSERT INTO agecam_runs
			(id, started_at, elapsed_ms, frames, fps, detector, classifier, source, stop_reason, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			started_at = EXCLUDED.started_at,
			elapsed_ms = EXCLUDED.elapsed_ms,
			frames = EXCLUDED.frames,
			fps = EXCLUDED.fps,
			stop_reason = EXCLUDED.stop_reason,
			error = EXCLUDED.error,
			recorded_at = NOW()
	`, r.ID, r.StartedAt, r.Elapsed.Milliseconds(), int64(r.Frames), r.FPS,
		r.Detector, r.Classifier, r.Source, r.StopReason, r.Error)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

const selectRuns = `
	SELECT id, started_at, elapsed_ms, frames, fps, detector, classifier, source, stop_reason, error
	FROM agecam_runs`

// Recent returns up to limit runs, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.conn.Query(ctx, selectRuns+` ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, scanRun)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run by id.
func (l *Ledger) Get(ctx context.Context, id string) (Run, error) {
	rows, err := l.conn.Query(ctx, selectRuns+` WHERE id = $1`, id)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	r, err := pgx.CollectExactlyOneRow(rows, scanRun)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

func scanRun(row pgx.CollectableRow) (Run, error) {
	var (
		r         Run
		elapsedMS int64
		frames    int64
	)
	err := row.Scan(&r.ID, &r.StartedAt, &elapsedMS, &frames, &r.FPS,
		&r.Detector, &r.Classifier, &r.Source, &r.StopReason, &r.Error)
	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	r.Frames = uint64(frames)
	return r, err
}

// Reset drops the runs table.
func (l *Ledger) Reset(ctx context.Context) error {
	_, err := l.conn.Exec(ctx, `DROP TABLE IF EXISTS agecam_runs CASCADE`)
	return err
}

var _ Recorder = (*Ledger)(nil)
