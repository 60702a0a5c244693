package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"match-narrator/internal/model"
)

const matchColumns = `id, season_id, home_team_id, away_team_id, kickoff_at, venue, round,
	status, period, clock_running, running_since, period_elapsed_ms, period_started_at,
	home_score, away_score, home_shootout, away_shootout,
	period_minutes, extra_period_minutes, has_extra_time, has_penalties,
	narrator_id, external_id, version, created_at, updated_at`

// MatchRepository handles matches, their clock state and period log.
type MatchRepository struct {
	pool *pgxpool.Pool
}

// NewMatchRepository creates a new MatchRepository instance.
func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{pool: pool}
}

func scanMatch(row scanner) (*model.Match, error) {
	var m model.Match
	err := row.Scan(
		&m.ID,
		&m.SeasonID,
		&m.HomeTeamID,
		&m.AwayTeamID,
		&m.KickoffAt,
		&m.Venue,
		&m.Round,
		&m.Status,
		&m.Period,
		&m.ClockRunning,
		&m.RunningSince,
		&m.PeriodElapsedMs,
		&m.PeriodStartedAt,
		&m.HomeScore,
		&m.AwayScore,
		&m.HomeShootout,
		&m.AwayShootout,
		&m.PeriodMinutes,
		&m.ExtraPeriodMinutes,
		&m.HasExtraTime,
		&m.HasPenalties,
		&m.NarratorID,
		&m.ExternalID,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return &m, err
}

// Create inserts a scheduled match.
func (r *MatchRepository) Create(ctx context.Context, m *model.Match) (*model.Match, error) {
	query := `
		INSERT INTO matches (season_id, home_team_id, away_team_id, kickoff_at, venue, round,
			period_minutes, extra_period_minutes, has_extra_time, has_penalties, narrator_id, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + matchColumns

	created, err := scanMatch(r.pool.QueryRow(ctx, query,
		m.SeasonID, m.HomeTeamID, m.AwayTeamID, m.KickoffAt, m.Venue, m.Round,
		m.PeriodMinutes, m.ExtraPeriodMinutes, m.HasExtraTime, m.HasPenalties, m.NarratorID, m.ExternalID))
	if err != nil {
		return nil, writeError("create match", err)
	}
	return created, nil
}

// GetByID retrieves a match.
func (r *MatchRepository) GetByID(ctx context.Context, id int64) (*model.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	m, err := scanMatch(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// List returns matches matching the filter ordered by kickoff.
func (r *MatchRepository) List(ctx context.Context, f model.MatchFilter) ([]*model.Match, error) {
	var (
		where []string
		args  []any
	)
	if f.SeasonID != 0 {
		args = append(args, f.SeasonID)
		where = append(where, fmt.Sprintf("season_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.NarratorID != 0 {
		args = append(args, f.NarratorID)
		where = append(where, fmt.Sprintf("narrator_id = $%d", len(args)))
	}

	query := `SELECT ` + matchColumns + ` FROM matches`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY kickoff_at, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var out []*model.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Update overwrites the fixture details of a scheduled match. m.Version must
// be the version the caller read; ErrStale is returned if it moved on and
// ErrNotEditable if the match has kicked off.
func (r *MatchRepository) Update(ctx context.Context, m *model.Match) (*model.Match, error) {
	query := `
		UPDATE matches
		SET season_id = $3, home_team_id = $4, away_team_id = $5, kickoff_at = $6, venue = $7,
			round = $8, period_minutes = $9, extra_period_minutes = $10, has_extra_time = $11,
			has_penalties = $12, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND status = 'scheduled'
		RETURNING ` + matchColumns

	updated, err := scanMatch(r.pool.QueryRow(ctx, query,
		m.ID, m.Version, m.SeasonID, m.HomeTeamID, m.AwayTeamID, m.KickoffAt, m.Venue, m.Round,
		m.PeriodMinutes, m.ExtraPeriodMinutes, m.HasExtraTime, m.HasPenalties))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.whyNotUpdated(ctx, m.ID, m.Version)
		}
		return nil, writeError("update match", err)
	}
	return updated, nil
}

// whyNotUpdated distinguishes the reasons a guarded update matched no row.
func (r *MatchRepository) whyNotUpdated(ctx context.Context, id, version int64) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Version != version {
		return ErrStale
	}
	return ErrNotEditable
}

// Delete removes a match that has not kicked off.
func (r *MatchRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM matches WHERE id = $1 AND status = 'scheduled'`, id)
	if err != nil {
		return deleteError("delete match", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrNotEditable
	}
	return nil
}

// AssignNarrator sets or clears the narrator of a match.
func (r *MatchRepository) AssignNarrator(ctx context.Context, id int64, narratorID *int64) (*model.Match, error) {
	query := `
		UPDATE matches
		SET narrator_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + matchColumns

	m, err := scanMatch(r.pool.QueryRow(ctx, query, id, narratorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, writeError("assign narrator", err)
	}
	return m, nil
}

// Upsert inserts a fixture or refreshes the scheduled match with the same
// external id. Matches that already kicked off are returned unchanged.
func (r *MatchRepository) Upsert(ctx context.Context, m *model.Match) (*model.Match, error) {
	if m.ExternalID == nil {
		return nil, fmt.Errorf("upsert match: external id is required")
	}
	query := `
		INSERT INTO matches (season_id, home_team_id, away_team_id, kickoff_at, venue, round,
			period_minutes, extra_period_minutes, has_extra_time, has_penalties, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (external_id) DO UPDATE
		SET season_id = EXCLUDED.season_id,
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id,
			kickoff_at = EXCLUDED.kickoff_at,
			venue = EXCLUDED.venue,
			round = EXCLUDED.round,
			version = matches.version + 1,
			updated_at = NOW()
		WHERE matches.status = 'scheduled'
		RETURNING ` + matchColumns

	out, err := scanMatch(r.pool.QueryRow(ctx, query,
		m.SeasonID, m.HomeTeamID, m.AwayTeamID, m.KickoffAt, m.Venue, m.Round,
		m.PeriodMinutes, m.ExtraPeriodMinutes, m.HasExtraTime, m.HasPenalties, m.ExternalID))
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, writeError("upsert match", err)
	}

	query = `SELECT ` + matchColumns + ` FROM matches WHERE external_id = $1`
	out, err = scanMatch(r.pool.QueryRow(ctx, query, m.ExternalID))
	if err != nil {
		return nil, fmt.Errorf("failed to get match by external id: %w", err)
	}
	return out, nil
}

// SaveClock persists a clock transition in one transaction: the new clock
// state guarded by m.Version, the closed and opened period log rows and the
// system timeline events. It returns the stored match with its new version.
func (r *MatchRepository) SaveClock(ctx context.Context, m *model.Match, ended, started *model.MatchPeriodLog, events []*model.MatchEvent) (*model.Match, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE matches
		SET status = $3, period = $4, clock_running = $5, running_since = $6,
			period_elapsed_ms = $7, period_started_at = $8,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING ` + matchColumns

	saved, err := scanMatch(tx.QueryRow(ctx, query,
		m.ID, m.Version, m.Status, m.Period, m.ClockRunning, m.RunningSince,
		m.PeriodElapsedMs, m.PeriodStartedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, m.ID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrStale
		}
		return nil, fmt.Errorf("failed to save clock: %w", err)
	}

	if ended != nil {
		const endQuery = `
			UPDATE match_periods
			SET ended_at = $3, elapsed_ms = $4
			WHERE match_id = $1 AND period = $2
		`
		if _, err := tx.Exec(ctx, endQuery, m.ID, ended.Period, ended.EndedAt, ended.ElapsedMs); err != nil {
			return nil, fmt.Errorf("failed to close period: %w", err)
		}
	}

	if started != nil {
		const startQuery = `
			INSERT INTO match_periods (match_id, period, started_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (match_id, period) DO UPDATE
			SET started_at = EXCLUDED.started_at, ended_at = NULL, elapsed_ms = 0
		`
		if _, err := tx.Exec(ctx, startQuery, m.ID, started.Period, started.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to open period: %w", err)
		}
	}

	for _, e := range events {
		if err := insertEvent(ctx, tx, e); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit clock transition: %w", err)
	}
	return saved, nil
}

// ListPeriods returns the period log of a match in the order periods were played.
func (r *MatchRepository) ListPeriods(ctx context.Context, matchID int64) ([]*model.MatchPeriodLog, error) {
	const query = `
		SELECT id, match_id, period, started_at, ended_at, elapsed_ms
		FROM match_periods
		WHERE match_id = $1
		ORDER BY started_at, id
	`

	rows, err := r.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	defer rows.Close()

	var out []*model.MatchPeriodLog
	for rows.Next() {
		var p model.MatchPeriodLog
		if err := rows.Scan(&p.ID, &p.MatchID, &p.Period, &p.StartedAt, &p.EndedAt, &p.ElapsedMs); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
