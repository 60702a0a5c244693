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

const eventColumns = `id, match_id, client_id, type, period, minute, stoppage, elapsed_seconds,
	team_id, player_id, related_player_id, detail, system, created_by,
	created_at, updated_at, deleted_at, deleted_by`

// EventRepository handles the match timeline. Every write also stores the
// match score derived from the resulting timeline, in the same transaction.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository instance.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func scanEvent(row scanner) (*model.MatchEvent, error) {
	var e model.MatchEvent
	err := row.Scan(
		&e.ID,
		&e.MatchID,
		&e.ClientID,
		&e.Type,
		&e.Period,
		&e.Minute,
		&e.Stoppage,
		&e.ElapsedSeconds,
		&e.TeamID,
		&e.PlayerID,
		&e.RelatedPlayerID,
		&e.Detail,
		&e.System,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.DeletedAt,
		&e.DeletedBy,
	)
	return &e, err
}

// insertEvent writes e inside tx and fills in the generated columns.
// Returns ErrConflict if the client id was already used for the match.
func insertEvent(ctx context.Context, tx pgx.Tx, e *model.MatchEvent) error {
	if e.ClientID == uuid.Nil {
		e.ClientID = uuid.New()
	}
	query := `
		INSERT INTO match_events (match_id, client_id, type, period, minute, stoppage, elapsed_seconds,
			team_id, player_id, related_player_id, detail, system, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (match_id, client_id) DO NOTHING
		RETURNING ` + eventColumns

	saved, err := scanEvent(tx.QueryRow(ctx, query,
		e.MatchID, e.ClientID, e.Type, e.Period, e.Minute, e.Stoppage, e.ElapsedSeconds,
		e.TeamID, e.PlayerID, e.RelatedPlayerID, e.Detail, e.System, e.CreatedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: client id %s", ErrConflict, e.ClientID)
		}
		return writeError("insert event", err)
	}
	*e = *saved
	return nil
}

func updateScore(ctx context.Context, tx pgx.Tx, matchID int64, s model.MatchScore) error {
	const query = `
		UPDATE matches
		SET home_score = $2, away_score = $3, home_shootout = $4, away_shootout = $5, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, query, matchID, s.Home, s.Away, s.HomeShootout, s.AwayShootout)
	if err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMatchNotFound
	}
	return nil
}

// inTx runs fn and the score update in one transaction.
func (r *EventRepository) inTx(ctx context.Context, matchID int64, score model.MatchScore, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := updateScore(ctx, tx, matchID, score); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit event: %w", err)
	}
	return nil
}

// Insert stores a narrated event together with the new score.
func (r *EventRepository) Insert(ctx context.Context, e *model.MatchEvent, score model.MatchScore) (*model.MatchEvent, error) {
	saved := *e
	err := r.inTx(ctx, e.MatchID, score, func(tx pgx.Tx) error {
		return insertEvent(ctx, tx, &saved)
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Update overwrites the editable fields of an event together with the new score.
func (r *EventRepository) Update(ctx context.Context, e *model.MatchEvent, score model.MatchScore) (*model.MatchEvent, error) {
	query := `
		UPDATE match_events
		SET type = $3, period = $4, minute = $5, stoppage = $6, elapsed_seconds = $7,
			team_id = $8, player_id = $9, related_player_id = $10, detail = $11, updated_at = NOW()
		WHERE match_id = $1 AND id = $2
		RETURNING ` + eventColumns

	var saved *model.MatchEvent
	err := r.inTx(ctx, e.MatchID, score, func(tx pgx.Tx) error {
		var err error
		saved, err = scanEvent(tx.QueryRow(ctx, query,
			e.MatchID, e.ID, e.Type, e.Period, e.Minute, e.Stoppage, e.ElapsedSeconds,
			e.TeamID, e.PlayerID, e.RelatedPlayerID, e.Detail))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrEventNotFound
		}
		if err != nil {
			return writeError("update event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SetDeleted stores e's deletion marker (set to soft-delete, nil to restore)
// together with the new score.
func (r *EventRepository) SetDeleted(ctx context.Context, e *model.MatchEvent, score model.MatchScore) (*model.MatchEvent, error) {
	query := `
		UPDATE match_events
		SET deleted_at = $3, deleted_by = $4, updated_at = NOW()
		WHERE match_id = $1 AND id = $2 AND NOT system
		RETURNING ` + eventColumns

	var saved *model.MatchEvent
	err := r.inTx(ctx, e.MatchID, score, func(tx pgx.Tx) error {
		var err error
		saved, err = scanEvent(tx.QueryRow(ctx, query, e.MatchID, e.ID, e.DeletedAt, e.DeletedBy))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to mark event deleted: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// GetByID retrieves an event of a match, deleted or not.
func (r *EventRepository) GetByID(ctx context.Context, matchID, id int64) (*model.MatchEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM match_events WHERE match_id = $1 AND id = $2`

	e, err := scanEvent(r.pool.QueryRow(ctx, query, matchID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// GetByClientID retrieves the event a client submitted under clientID.
func (r *EventRepository) GetByClientID(ctx context.Context, matchID int64, clientID uuid.UUID) (*model.MatchEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM match_events WHERE match_id = $1 AND client_id = $2`

	e, err := scanEvent(r.pool.QueryRow(ctx, query, matchID, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// ListByMatch returns a match's events in insertion order.
func (r *EventRepository) ListByMatch(ctx context.Context, matchID int64, includeDeleted bool) ([]model.MatchEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM match_events WHERE match_id = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []model.MatchEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
