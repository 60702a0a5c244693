package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"match-narrator/internal/model"
)

// AuditRepository handles the audit log.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository instance.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Create appends an entry.
func (r *AuditRepository) Create(ctx context.Context, e *model.AuditEntry) (*model.AuditEntry, error) {
	const query = `
		INSERT INTO audit_log (actor_id, action, entity, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	details := e.Details
	if len(details) == 0 {
		details = []byte(`{}`)
	}

	out := *e
	out.Details = details
	if err := r.pool.QueryRow(ctx, query, e.ActorID, e.Action, e.Entity, e.EntityID, string(details)).
		Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create audit entry: %w", err)
	}
	return &out, nil
}

// List returns entries matching the filter, newest first.
func (r *AuditRepository) List(ctx context.Context, f model.AuditFilter) ([]*model.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.Entity != "" {
		args = append(args, f.Entity)
		where = append(where, fmt.Sprintf("entity = $%d", len(args)))
	}
	if f.EntityID != 0 {
		args = append(args, f.EntityID)
		where = append(where, fmt.Sprintf("entity_id = $%d", len(args)))
	}
	if f.ActorID != 0 {
		args = append(args, f.ActorID)
		where = append(where, fmt.Sprintf("actor_id = $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT id, actor_id, action, entity, entity_id, details::text, created_at FROM audit_log`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	defer rows.Close()

	var out []*model.AuditEntry
	for rows.Next() {
		var (
			e       model.AuditEntry
			details string
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Details = []byte(details)
		out = append(out, &e)
	}
	return out, rows.Err()
}
