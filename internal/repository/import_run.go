package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"match-narrator/internal/model"
)

const importRunColumns = `id, source, status, competitions, seasons, teams, players, matches,
	error, started_by, started_at, finished_at`

// ImportRunRepository records executions of the import pipeline.
type ImportRunRepository struct {
	pool *pgxpool.Pool
}

// NewImportRunRepository creates a new ImportRunRepository instance.
func NewImportRunRepository(pool *pgxpool.Pool) *ImportRunRepository {
	return &ImportRunRepository{pool: pool}
}

func scanImportRun(row scanner) (*model.ImportRun, error) {
	var run model.ImportRun
	err := row.Scan(
		&run.ID,
		&run.Source,
		&run.Status,
		&run.Counts.Competitions,
		&run.Counts.Seasons,
		&run.Counts.Teams,
		&run.Counts.Players,
		&run.Counts.Matches,
		&run.Error,
		&run.StartedBy,
		&run.StartedAt,
		&run.FinishedAt,
	)
	return &run, err
}

// Start records a running import.
func (r *ImportRunRepository) Start(ctx context.Context, id uuid.UUID, source model.ImportSource, startedBy *int64) (*model.ImportRun, error) {
	query := `
		INSERT INTO import_runs (id, source, status, started_by)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + importRunColumns

	run, err := scanImportRun(r.pool.QueryRow(ctx, query, id, source, model.ImportRunning, startedBy))
	if err != nil {
		return nil, writeError("start import run", err)
	}
	return run, nil
}

// Finish stores the outcome of a run.
func (r *ImportRunRepository) Finish(ctx context.Context, run *model.ImportRun) (*model.ImportRun, error) {
	query := `
		UPDATE import_runs
		SET status = $2, competitions = $3, seasons = $4, teams = $5, players = $6, matches = $7,
			error = $8, finished_at = NOW()
		WHERE id = $1
		RETURNING ` + importRunColumns

	c := run.Counts
	out, err := scanImportRun(r.pool.QueryRow(ctx, query,
		run.ID, run.Status, c.Competitions, c.Seasons, c.Teams, c.Players, c.Matches, run.Error))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrImportRunNotFound
		}
		return nil, fmt.Errorf("failed to finish import run: %w", err)
	}
	return out, nil
}

// GetByID retrieves a run.
func (r *ImportRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ImportRun, error) {
	query := `SELECT ` + importRunColumns + ` FROM import_runs WHERE id = $1`

	run, err := scanImportRun(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrImportRunNotFound
		}
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first.
func (r *ImportRunRepository) List(ctx context.Context, limit int) ([]*model.ImportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + importRunColumns + ` FROM import_runs ORDER BY started_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}
	defer rows.Close()

	var out []*model.ImportRun
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
