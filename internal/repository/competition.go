package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"match-narrator/internal/model"
)

const competitionColumns = `id, name, country, external_id, created_at, updated_at`

// CompetitionRepository handles competition persistence.
type CompetitionRepository struct {
	pool *pgxpool.Pool
}

// NewCompetitionRepository creates a new CompetitionRepository instance.
func NewCompetitionRepository(pool *pgxpool.Pool) *CompetitionRepository {
	return &CompetitionRepository{pool: pool}
}

func scanCompetition(row scanner) (*model.Competition, error) {
	var c model.Competition
	err := row.Scan(&c.ID, &c.Name, &c.Country, &c.ExternalID, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

// Create inserts a competition.
func (r *CompetitionRepository) Create(ctx context.Context, c *model.Competition) (*model.Competition, error) {
	query := `
		INSERT INTO competitions (name, country, external_id)
		VALUES ($1, $2, $3)
		RETURNING ` + competitionColumns

	created, err := scanCompetition(r.pool.QueryRow(ctx, query, c.Name, c.Country, c.ExternalID))
	if err != nil {
		return nil, writeError("create competition", err)
	}
	return created, nil
}

// GetByID retrieves a competition.
// Returns ErrCompetitionNotFound if it does not exist.
func (r *CompetitionRepository) GetByID(ctx context.Context, id int64) (*model.Competition, error) {
	query := `SELECT ` + competitionColumns + ` FROM competitions WHERE id = $1`

	c, err := scanCompetition(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	return c, nil
}

// List returns all competitions ordered by name.
func (r *CompetitionRepository) List(ctx context.Context) ([]*model.Competition, error) {
	query := `SELECT ` + competitionColumns + ` FROM competitions ORDER BY name, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	defer rows.Close()

	var out []*model.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competition: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of a competition.
func (r *CompetitionRepository) Update(ctx context.Context, c *model.Competition) (*model.Competition, error) {
	query := `
		UPDATE competitions
		SET name = $2, country = $3, external_id = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + competitionColumns

	updated, err := scanCompetition(r.pool.QueryRow(ctx, query, c.ID, c.Name, c.Country, c.ExternalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, writeError("update competition", err)
	}
	return updated, nil
}

// Delete removes a competition. Returns ErrInUse while seasons reference it.
func (r *CompetitionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM competitions WHERE id = $1`, id)
	if err != nil {
		return deleteError("delete competition", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCompetitionNotFound
	}
	return nil
}

// Upsert inserts a competition or updates the one with the same external id.
func (r *CompetitionRepository) Upsert(ctx context.Context, c *model.Competition) (*model.Competition, error) {
	if c.ExternalID == nil {
		return nil, fmt.Errorf("upsert competition %q: external id is required", c.Name)
	}
	query := `
		INSERT INTO competitions (name, country, external_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_id) DO UPDATE
		SET name = EXCLUDED.name, country = EXCLUDED.country, updated_at = NOW()
		RETURNING ` + competitionColumns

	out, err := scanCompetition(r.pool.QueryRow(ctx, query, c.Name, c.Country, c.ExternalID))
	if err != nil {
		return nil, writeError("upsert competition", err)
	}
	return out, nil
}
