package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"match-narrator/internal/model"
)

const playerColumns = `id, team_id, first_name, last_name, shirt_number, position, birth_date,
	nationality, external_id, created_at, updated_at`

// PlayerRepository handles player persistence.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

func scanPlayer(row scanner) (*model.Player, error) {
	var p model.Player
	err := row.Scan(
		&p.ID,
		&p.TeamID,
		&p.FirstName,
		&p.LastName,
		&p.ShirtNumber,
		&p.Position,
		&p.BirthDate,
		&p.Nationality,
		&p.ExternalID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return &p, err
}

func playerArgs(p *model.Player) []any {
	return []any{p.TeamID, p.FirstName, p.LastName, p.ShirtNumber, p.Position, p.BirthDate, p.Nationality, p.ExternalID}
}

// Create inserts a player.
func (r *PlayerRepository) Create(ctx context.Context, p *model.Player) (*model.Player, error) {
	query := `
		INSERT INTO players (team_id, first_name, last_name, shirt_number, position, birth_date, nationality, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + playerColumns

	created, err := scanPlayer(r.pool.QueryRow(ctx, query, playerArgs(p)...))
	if err != nil {
		return nil, writeError("create player", err)
	}
	return created, nil
}

// GetByID retrieves a player.
func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*model.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// GetMany retrieves players by id. Unknown ids are skipped.
func (r *PlayerRepository) GetMany(ctx context.Context, ids []int64) (map[int64]*model.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*model.Player, len(ids))
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// ListByTeam returns a team's squad ordered by shirt number.
func (r *PlayerRepository) ListByTeam(ctx context.Context, teamID int64) ([]*model.Player, error) {
	query := `SELECT ` + playerColumns + `
		FROM players
		WHERE team_id = $1
		ORDER BY shirt_number NULLS LAST, last_name, id`

	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var out []*model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of a player.
func (r *PlayerRepository) Update(ctx context.Context, p *model.Player) (*model.Player, error) {
	query := `
		UPDATE players
		SET team_id = $2, first_name = $3, last_name = $4, shirt_number = $5, position = $6,
			birth_date = $7, nationality = $8, external_id = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + playerColumns

	args := append([]any{p.ID}, playerArgs(p)...)
	updated, err := scanPlayer(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, writeError("update player", err)
	}
	return updated, nil
}

// Delete removes a player. Returns ErrInUse once the player appears in a
// roster or event.
func (r *PlayerRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return deleteError("delete player", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// Upsert inserts a player or updates the one with the same external id.
func (r *PlayerRepository) Upsert(ctx context.Context, p *model.Player) (*model.Player, error) {
	if p.ExternalID == nil {
		return nil, fmt.Errorf("upsert player %q: external id is required", p.LastName)
	}
	query := `
		INSERT INTO players (team_id, first_name, last_name, shirt_number, position, birth_date, nationality, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_id) DO UPDATE
		SET team_id = EXCLUDED.team_id,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			shirt_number = EXCLUDED.shirt_number,
			position = EXCLUDED.position,
			birth_date = COALESCE(EXCLUDED.birth_date, players.birth_date),
			nationality = EXCLUDED.nationality,
			updated_at = NOW()
		RETURNING ` + playerColumns

	out, err := scanPlayer(r.pool.QueryRow(ctx, query, playerArgs(p)...))
	if err != nil {
		return nil, writeError("upsert player", err)
	}
	return out, nil
}
