// Package service provides business logic implementations.
//
// Services depend on the small store interfaces below. The pgx repositories
// implement them for production; the memstore package implements them in
// memory for tests and the demo server.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"match-narrator/internal/model"
	"match-narrator/internal/repository"
)

// Service-level errors. Repository sentinels (not found, conflict, stale, ...)
// are passed through unchanged.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("not allowed")
	ErrMatchNotLive = errors.New("match is not live")
	ErrRosterLocked = errors.New("roster can no longer be changed")
	// ErrTimelineConflict wraps timeline replay failures.
	ErrTimelineConflict = errors.New("timeline conflict")
)

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, fmt.Sprintf(format, args...))
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID   int64
	Username string
	Role     model.Role
}

// IsAdmin reports whether the actor has administrator rights.
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

func (a Actor) id() *int64 {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

// System is the actor used by command line jobs.
var System = Actor{Username: "system", Role: model.RoleAdmin}

// CompetitionStore persists competitions.
type CompetitionStore interface {
	Create(ctx context.Context, c *model.Competition) (*model.Competition, error)
	GetByID(ctx context.Context, id int64) (*model.Competition, error)
	List(ctx context.Context) ([]*model.Competition, error)
	Update(ctx context.Context, c *model.Competition) (*model.Competition, error)
	Delete(ctx context.Context, id int64) error
	Upsert(ctx context.Context, c *model.Competition) (*model.Competition, error)
}

// SeasonStore persists seasons and their team registrations.
type SeasonStore interface {
	Create(ctx context.Context, s *model.Season) (*model.Season, error)
	GetByID(ctx context.Context, id int64) (*model.Season, error)
	ListByCompetition(ctx context.Context, competitionID int64) ([]*model.Season, error)
	Update(ctx context.Context, s *model.Season) (*model.Season, error)
	Delete(ctx context.Context, id int64) error
	Upsert(ctx context.Context, s *model.Season) (*model.Season, error)
	AddTeam(ctx context.Context, seasonID, teamID int64) error
	RemoveTeam(ctx context.Context, seasonID, teamID int64) error
}

// TeamStore persists teams.
type TeamStore interface {
	Create(ctx context.Context, t *model.Team) (*model.Team, error)
	GetByID(ctx context.Context, id int64) (*model.Team, error)
	List(ctx context.Context) ([]*model.Team, error)
	ListBySeason(ctx context.Context, seasonID int64) ([]*model.Team, error)
	Update(ctx context.Context, t *model.Team) (*model.Team, error)
	Delete(ctx context.Context, id int64) error
	Upsert(ctx context.Context, t *model.Team) (*model.Team, error)
}

// PlayerStore persists players.
type PlayerStore interface {
	Create(ctx context.Context, p *model.Player) (*model.Player, error)
	GetByID(ctx context.Context, id int64) (*model.Player, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]*model.Player, error)
	ListByTeam(ctx context.Context, teamID int64) ([]*model.Player, error)
	Update(ctx context.Context, p *model.Player) (*model.Player, error)
	Delete(ctx context.Context, id int64) error
	Upsert(ctx context.Context, p *model.Player) (*model.Player, error)
}

// MatchStore persists matches, their clock and period log.
type MatchStore interface {
	Create(ctx context.Context, m *model.Match) (*model.Match, error)
	GetByID(ctx context.Context, id int64) (*model.Match, error)
	List(ctx context.Context, f model.MatchFilter) ([]*model.Match, error)
	Update(ctx context.Context, m *model.Match) (*model.Match, error)
	Delete(ctx context.Context, id int64) error
	AssignNarrator(ctx context.Context, id int64, narratorID *int64) (*model.Match, error)
	Upsert(ctx context.Context, m *model.Match) (*model.Match, error)
	SaveClock(ctx context.Context, m *model.Match, ended, started *model.MatchPeriodLog, events []*model.MatchEvent) (*model.Match, error)
	ListPeriods(ctx context.Context, matchID int64) ([]*model.MatchPeriodLog, error)
}

// RosterStore persists match rosters.
type RosterStore interface {
	ListByMatch(ctx context.Context, matchID int64) ([]model.RosterEntry, error)
	ReplaceTeam(ctx context.Context, matchID, teamID int64, entries []model.RosterEntry) error
	UpdatePosition(ctx context.Context, matchID, playerID int64, x, y float64) (model.RosterEntry, error)
}

// EventStore persists the timeline. Writes store the given score with the event.
type EventStore interface {
	Insert(ctx context.Context, e *model.MatchEvent, score model.MatchScore) (*model.MatchEvent, error)
	Update(ctx context.Context, e *model.MatchEvent, score model.MatchScore) (*model.MatchEvent, error)
	SetDeleted(ctx context.Context, e *model.MatchEvent, score model.MatchScore) (*model.MatchEvent, error)
	GetByID(ctx context.Context, matchID, id int64) (*model.MatchEvent, error)
	GetByClientID(ctx context.Context, matchID int64, clientID uuid.UUID) (*model.MatchEvent, error)
	ListByMatch(ctx context.Context, matchID int64, includeDeleted bool) ([]model.MatchEvent, error)
}

// AuditStore persists the audit log.
type AuditStore interface {
	Create(ctx context.Context, e *model.AuditEntry) (*model.AuditEntry, error)
	List(ctx context.Context, f model.AuditFilter) ([]*model.AuditEntry, error)
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string, role model.Role) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	Count(ctx context.Context) (int, error)
}

// ImportRunStore persists import runs.
type ImportRunStore interface {
	Start(ctx context.Context, id uuid.UUID, source model.ImportSource, startedBy *int64) (*model.ImportRun, error)
	Finish(ctx context.Context, run *model.ImportRun) (*model.ImportRun, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ImportRun, error)
	List(ctx context.Context, limit int) ([]*model.ImportRun, error)
}

// Stores groups every store a full service set needs.
type Stores struct {
	Competitions CompetitionStore
	Seasons      SeasonStore
	Teams        TeamStore
	Players      PlayerStore
	Matches      MatchStore
	Roster       RosterStore
	Events       EventStore
	Audit        AuditStore
	Users        UserStore
	ImportRuns   ImportRunStore
}

// Compile-time checks that the pgx repositories satisfy the stores.
var (
	_ CompetitionStore = (*repository.CompetitionRepository)(nil)
	_ SeasonStore      = (*repository.SeasonRepository)(nil)
	_ TeamStore        = (*repository.TeamRepository)(nil)
	_ PlayerStore      = (*repository.PlayerRepository)(nil)
	_ MatchStore       = (*repository.MatchRepository)(nil)
	_ RosterStore      = (*repository.RosterRepository)(nil)
	_ EventStore       = (*repository.EventRepository)(nil)
	_ AuditStore       = (*repository.AuditRepository)(nil)
	_ UserStore        = (*repository.UserRepository)(nil)
	_ ImportRunStore   = (*repository.ImportRunRepository)(nil)
)

// Clock returns the current time; tests replace it.
type Clock func() time.Time
