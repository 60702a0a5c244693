package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"match-narrator/internal/model"
)

const seasonColumns = `id, competition_id, name, year, starts_on, ends_on, external_id, created_at, updated_at`

// SeasonRepository handles seasons and their team registrations.
type SeasonRepository struct {
	pool *pgxpool.Pool
}

// NewSeasonRepository creates a new SeasonRepository instance.
func NewSeasonRepository(pool *pgxpool.Pool) *SeasonRepository {
	return &SeasonRepository{pool: pool}
}

func scanSeason(row scanner) (*model.Season, error) {
	var s model.Season
	err := row.Scan(
		&s.ID,
		&s.CompetitionID,
		&s.Name,
		&s.Year,
		&s.StartsOn,
		&s.EndsOn,
		&s.ExternalID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return &s, err
}

// Create inserts a season. Returns ErrConflict if the competition already
// has a season for that year.
func (r *SeasonRepository) Create(ctx context.Context, s *model.Season) (*model.Season, error) {
	query := `
		INSERT INTO seasons (competition_id, name, year, starts_on, ends_on, external_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + seasonColumns

	created, err := scanSeason(r.pool.QueryRow(ctx, query,
		s.CompetitionID, s.Name, s.Year, s.StartsOn, s.EndsOn, s.ExternalID))
	if err != nil {
		return nil, writeError("create season", err)
	}
	return created, nil
}

// GetByID retrieves a season.
func (r *SeasonRepository) GetByID(ctx context.Context, id int64) (*model.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE id = $1`

	s, err := scanSeason(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, fmt.Errorf("failed to get season: %w", err)
	}
	return s, nil
}

// ListByCompetition returns a competition's seasons, newest first.
func (r *SeasonRepository) ListByCompetition(ctx context.Context, competitionID int64) ([]*model.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE competition_id = $1 ORDER BY year DESC`

	rows, err := r.pool.Query(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	defer rows.Close()

	var out []*model.Season
	for rows.Next() {
		s, err := scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of a season.
func (r *SeasonRepository) Update(ctx context.Context, s *model.Season) (*model.Season, error) {
	query := `
		UPDATE seasons
		SET name = $2, year = $3, starts_on = $4, ends_on = $5, external_id = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + seasonColumns

	updated, err := scanSeason(r.pool.QueryRow(ctx, query,
		s.ID, s.Name, s.Year, s.StartsOn, s.EndsOn, s.ExternalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, writeError("update season", err)
	}
	return updated, nil
}

// Delete removes a season and its team registrations. Matches keep existing
// with their season cleared.
func (r *SeasonRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM seasons WHERE id = $1`, id)
	if err != nil {
		return deleteError("delete season", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSeasonNotFound
	}
	return nil
}

// Upsert inserts a season or updates the competition's season for the same year.
func (r *SeasonRepository) Upsert(ctx context.Context, s *model.Season) (*model.Season, error) {
	query := `
		INSERT INTO seasons (competition_id, name, year, starts_on, ends_on, external_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (competition_id, year) DO UPDATE
		SET name = EXCLUDED.name,
			starts_on = EXCLUDED.starts_on,
			ends_on = EXCLUDED.ends_on,
			external_id = COALESCE(EXCLUDED.external_id, seasons.external_id),
			updated_at = NOW()
		RETURNING ` + seasonColumns

	out, err := scanSeason(r.pool.QueryRow(ctx, query,
		s.CompetitionID, s.Name, s.Year, s.StartsOn, s.EndsOn, s.ExternalID))
	if err != nil {
		return nil, writeError("upsert season", err)
	}
	return out, nil
}

// AddTeam registers a team for a season. Adding twice is a no-op.
func (r *SeasonRepository) AddTeam(ctx context.Context, seasonID, teamID int64) error {
	const query = `
		INSERT INTO season_teams (season_id, team_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, seasonID, teamID); err != nil {
		return writeError("add team to season", err)
	}
	return nil
}

// RemoveTeam unregisters a team from a season.
func (r *SeasonRepository) RemoveTeam(ctx context.Context, seasonID, teamID int64) error {
	const query = `DELETE FROM season_teams WHERE season_id = $1 AND team_id = $2`

	tag, err := r.pool.Exec(ctx, query, seasonID, teamID)
	if err != nil {
		return fmt.Errorf("failed to remove team from season: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTeamNotFound
	}
	return nil
}
