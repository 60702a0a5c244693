package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"match-narrator/internal/model"
)

const teamColumns = `t.id, t.name, t.short_name, t.country, t.external_id, t.created_at, t.updated_at`

// TeamRepository handles team persistence.
type TeamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository creates a new TeamRepository instance.
func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

func scanTeam(row scanner) (*model.Team, error) {
	var t model.Team
	err := row.Scan(&t.ID, &t.Name, &t.ShortName, &t.Country, &t.ExternalID, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func collectTeams(rows pgx.Rows) ([]*model.Team, error) {
	defer rows.Close()

	var out []*model.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts a team.
func (r *TeamRepository) Create(ctx context.Context, t *model.Team) (*model.Team, error) {
	query := `
		INSERT INTO teams AS t (name, short_name, country, external_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + teamColumns

	created, err := scanTeam(r.pool.QueryRow(ctx, query, t.Name, t.ShortName, t.Country, t.ExternalID))
	if err != nil {
		return nil, writeError("create team", err)
	}
	return created, nil
}

// GetByID retrieves a team.
func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*model.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1`

	t, err := scanTeam(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return t, nil
}

// List returns all teams ordered by name.
func (r *TeamRepository) List(ctx context.Context) ([]*model.Team, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+teamColumns+` FROM teams t ORDER BY t.name, t.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return collectTeams(rows)
}

// ListBySeason returns the teams registered for a season.
func (r *TeamRepository) ListBySeason(ctx context.Context, seasonID int64) ([]*model.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams t
		JOIN season_teams st ON st.team_id = t.id
		WHERE st.season_id = $1
		ORDER BY t.name, t.id`

	rows, err := r.pool.Query(ctx, query, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list season teams: %w", err)
	}
	return collectTeams(rows)
}

// Update overwrites the editable fields of a team.
func (r *TeamRepository) Update(ctx context.Context, t *model.Team) (*model.Team, error) {
	query := `
		UPDATE teams AS t
		SET name = $2, short_name = $3, country = $4, external_id = $5, updated_at = NOW()
		WHERE t.id = $1
		RETURNING ` + teamColumns

	updated, err := scanTeam(r.pool.QueryRow(ctx, query, t.ID, t.Name, t.ShortName, t.Country, t.ExternalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, writeError("update team", err)
	}
	return updated, nil
}

// Delete removes a team. Returns ErrInUse while matches or season
// registrations reference it; its players become unattached.
func (r *TeamRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return deleteError("delete team", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTeamNotFound
	}
	return nil
}

// Upsert inserts a team or updates the one with the same external id.
func (r *TeamRepository) Upsert(ctx context.Context, t *model.Team) (*model.Team, error) {
	if t.ExternalID == nil {
		return nil, fmt.Errorf("upsert team %q: external id is required", t.Name)
	}
	query := `
		INSERT INTO teams AS t (name, short_name, country, external_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO UPDATE
		SET name = EXCLUDED.name, short_name = EXCLUDED.short_name,
			country = EXCLUDED.country, updated_at = NOW()
		RETURNING ` + teamColumns

	out, err := scanTeam(r.pool.QueryRow(ctx, query, t.Name, t.ShortName, t.Country, t.ExternalID))
	if err != nil {
		return nil, writeError("upsert team", err)
	}
	return out, nil
}
