package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"match-narrator/internal/model"
)

const rosterColumns = `match_id, team_id, player_id, role, shirt_number, position_label, pos_x, pos_y, captain`

// RosterRepository handles the players selected for a match.
type RosterRepository struct {
	pool *pgxpool.Pool
}

// NewRosterRepository creates a new RosterRepository instance.
func NewRosterRepository(pool *pgxpool.Pool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

func scanRosterEntry(row scanner) (model.RosterEntry, error) {
	var e model.RosterEntry
	err := row.Scan(
		&e.MatchID,
		&e.TeamID,
		&e.PlayerID,
		&e.Role,
		&e.ShirtNumber,
		&e.PositionLabel,
		&e.PosX,
		&e.PosY,
		&e.Captain,
	)
	return e, err
}

// ListByMatch returns both teams' roster, starters first.
func (r *RosterRepository) ListByMatch(ctx context.Context, matchID int64) ([]model.RosterEntry, error) {
	query := `SELECT ` + rosterColumns + `
		FROM match_roster
		WHERE match_id = $1
		ORDER BY team_id, role DESC, shirt_number NULLS LAST, player_id`

	rows, err := r.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	defer rows.Close()

	var out []model.RosterEntry
	for rows.Next() {
		e, err := scanRosterEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplaceTeam swaps one team's roster for entries in a single transaction.
func (r *RosterRepository) ReplaceTeam(ctx context.Context, matchID, teamID int64, entries []model.RosterEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM match_roster WHERE match_id = $1 AND team_id = $2`, matchID, teamID); err != nil {
		return fmt.Errorf("failed to clear roster: %w", err)
	}

	const insert = `
		INSERT INTO match_roster (match_id, team_id, player_id, role, shirt_number, position_label, pos_x, pos_y, captain)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, e := range entries {
		if _, err := tx.Exec(ctx, insert, matchID, teamID, e.PlayerID, e.Role, e.ShirtNumber,
			e.PositionLabel, e.PosX, e.PosY, e.Captain); err != nil {
			return writeError("insert roster entry", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit roster: %w", err)
	}
	return nil
}

// UpdatePosition moves a rostered player on the pitch canvas.
func (r *RosterRepository) UpdatePosition(ctx context.Context, matchID, playerID int64, x, y float64) (model.RosterEntry, error) {
	query := `
		UPDATE match_roster
		SET pos_x = $3, pos_y = $4
		WHERE match_id = $1 AND player_id = $2
		RETURNING ` + rosterColumns

	rows, err := r.pool.Query(ctx, query, matchID, playerID, x, y)
	if err != nil {
		return model.RosterEntry{}, fmt.Errorf("failed to update position: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.RosterEntry{}, fmt.Errorf("failed to update position: %w", err)
		}
		return model.RosterEntry{}, ErrRosterEntryNotFound
	}
	e, err := scanRosterEntry(rows)
	if err != nil {
		return model.RosterEntry{}, fmt.Errorf("failed to scan roster entry: %w", err)
	}
	return e, nil
}
