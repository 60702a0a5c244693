package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"match-narrator/internal/config"
	"match-narrator/internal/matchclock"
	"match-narrator/internal/model"
	"match-narrator/internal/pkg/lock"
	"match-narrator/internal/repository"
)

// lockTimeout bounds how long a write waits for another write on the same match.
const lockTimeout = 5 * time.Second

// MatchService manages fixtures and drives the match clock.
type MatchService struct {
	matches MatchStore
	teams   TeamStore
	seasons SeasonStore
	users   UserStore
	audit   *AuditService
	locks   *lock.KeyLock
	cfg     config.MatchConfig
	now     Clock
}

// NewMatchService creates a new MatchService instance. locks must be shared
// with the roster and event services.
func NewMatchService(stores Stores, audit *AuditService, locks *lock.KeyLock, cfg config.MatchConfig, now Clock) *MatchService {
	if now == nil {
		now = time.Now
	}
	return &MatchService{
		matches: stores.Matches,
		teams:   stores.Teams,
		seasons: stores.Seasons,
		users:   stores.Users,
		audit:   audit,
		locks:   locks,
		cfg:     cfg,
		now:     now,
	}
}

// CanNarrate reports whether actor may write to m: admins always, narrators
// only for matches assigned to them.
func CanNarrate(actor Actor, m *model.Match) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == model.RoleNarrator && m.NarratorID != nil && *m.NarratorID == actor.UserID {
		return nil
	}
	return fmt.Errorf("%w: match %d is not assigned to you", ErrForbidden, m.ID)
}

func (s *MatchService) validate(ctx context.Context, m *model.Match) error {
	if m.HomeTeamID == 0 || m.AwayTeamID == 0 {
		return invalid("teams", "home and away team are required")
	}
	if m.HomeTeamID == m.AwayTeamID {
		return invalid("away_team_id", "a team cannot play itself")
	}
	if m.KickoffAt.IsZero() {
		return invalid("kickoff_at", "is required")
	}
	if m.PeriodMinutes == 0 {
		m.PeriodMinutes = s.cfg.PeriodMinutes
	}
	if m.ExtraPeriodMinutes == 0 {
		m.ExtraPeriodMinutes = s.cfg.ExtraPeriodMinutes
	}
	if m.PeriodMinutes < 1 || m.PeriodMinutes > 90 {
		return invalid("period_minutes", "must be between 1 and 90")
	}
	if m.ExtraPeriodMinutes < 1 || m.ExtraPeriodMinutes > 30 {
		return invalid("extra_period_minutes", "must be between 1 and 30")
	}
	for _, id := range []int64{m.HomeTeamID, m.AwayTeamID} {
		if _, err := s.teams.GetByID(ctx, id); err != nil {
			return err
		}
	}
	if m.SeasonID != nil {
		if _, err := s.seasons.GetByID(ctx, *m.SeasonID); err != nil {
			return err
		}
	}
	return nil
}

// Create schedules a match.
func (s *MatchService) Create(ctx context.Context, actor Actor, m model.Match) (*model.Match, error) {
	if err := s.validate(ctx, &m); err != nil {
		return nil, err
	}
	if m.NarratorID != nil {
		if _, err := s.users.GetByID(ctx, *m.NarratorID); err != nil {
			return nil, err
		}
	}
	out, err := s.matches.Create(ctx, &m)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "match.create", model.EntityMatch, out.ID, out)
	return out, nil
}

// Get returns a match.
func (s *MatchService) Get(ctx context.Context, id int64) (*model.Match, error) {
	return s.matches.GetByID(ctx, id)
}

// List returns matches matching f.
func (s *MatchService) List(ctx context.Context, f model.MatchFilter) ([]*model.Match, error) {
	return s.matches.List(ctx, f)
}

// Update edits a scheduled match. m.Version is the version the caller read;
// zero means "whatever is current".
func (s *MatchService) Update(ctx context.Context, actor Actor, m model.Match) (*model.Match, error) {
	var out *model.Match
	err := s.locks.WithLockContext(ctx, m.ID, lockTimeout, func() error {
		cur, err := s.matches.GetByID(ctx, m.ID)
		if err != nil {
			return err
		}
		if m.Version == 0 {
			m.Version = cur.Version
		}
		if err := s.validate(ctx, &m); err != nil {
			return err
		}
		out, err = s.matches.Update(ctx, &m)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "match.update", model.EntityMatch, out.ID, out)
	return out, nil
}

// Delete removes a match that has not kicked off.
func (s *MatchService) Delete(ctx context.Context, actor Actor, id int64) error {
	err := s.locks.WithLockContext(ctx, id, lockTimeout, func() error {
		return s.matches.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "match.delete", model.EntityMatch, id, nil)
	return nil
}

// AssignNarrator hands a match to a narrator account; nil unassigns it.
func (s *MatchService) AssignNarrator(ctx context.Context, actor Actor, id int64, narratorID *int64) (*model.Match, error) {
	if narratorID != nil {
		u, err := s.users.GetByID(ctx, *narratorID)
		if err != nil {
			return nil, err
		}
		if u.Role != model.RoleNarrator && u.Role != model.RoleAdmin {
			return nil, invalid("narrator_id", "user cannot narrate")
		}
	}
	out, err := s.matches.AssignNarrator(ctx, id, narratorID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "match.assign_narrator", model.EntityMatch, id, map[string]*int64{"narrator_id": narratorID})
	return out, nil
}

// Clock returns the polled clock snapshot of a match.
func (s *MatchService) Clock(ctx context.Context, id int64) (matchclock.Snapshot, error) {
	m, err := s.matches.GetByID(ctx, id)
	if err != nil {
		return matchclock.Snapshot{}, err
	}
	return matchclock.Take(m, s.now()), nil
}

// Periods returns the period log of a match.
func (s *MatchService) Periods(ctx context.Context, id int64) ([]*model.MatchPeriodLog, error) {
	if _, err := s.matches.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.matches.ListPeriods(ctx, id)
}

// ClockResult is the outcome of a clock action.
type ClockResult struct {
	Match      *model.Match          `json:"match"`
	Transition matchclock.Transition `json:"transition"`
	Snapshot   matchclock.Snapshot   `json:"clock"`
}

// ApplyAction runs a clock action. expectedVersion, when non-zero, must match
// the stored version or ErrStale is returned.
func (s *MatchService) ApplyAction(ctx context.Context, actor Actor, id int64, action matchclock.Action, expectedVersion int64) (*ClockResult, error) {
	var res *ClockResult
	err := s.locks.WithLockContext(ctx, id, lockTimeout, func() error {
		m, err := s.matches.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := CanNarrate(actor, m); err != nil {
			return err
		}
		if expectedVersion != 0 && expectedVersion != m.Version {
			return repository.ErrStale
		}

		now := s.now()
		next, tr, err := matchclock.Apply(*m, action, now)
		if err != nil {
			return err
		}

		ended, started, events := periodChanges(m, &next, tr, actor)
		saved, err := s.matches.SaveClock(ctx, &next, ended, started, events)
		if err != nil {
			return err
		}
		res = &ClockResult{Match: saved, Transition: tr, Snapshot: matchclock.Take(saved, now)}
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, fmt.Errorf("%w: match %d is busy", repository.ErrStale, id)
		}
		return nil, err
	}

	log.Info().
		Int64("match_id", id).
		Int64("actor_id", actor.UserID).
		Str("operation", "clock."+string(action)).
		Str("from", string(res.Transition.From)).
		Str("to", string(res.Transition.To)).
		Msg("Clock transition")
	s.audit.Record(ctx, actor, "clock."+string(action), model.EntityMatch, id, res.Transition)
	return res, nil
}

// periodChanges builds the period log rows and system events for a transition.
func periodChanges(before, after *model.Match, tr matchclock.Transition, actor Actor) (ended, started *model.MatchPeriodLog, events []*model.MatchEvent) {
	if tr.PeriodEnded {
		at := tr.At
		ended = &model.MatchPeriodLog{MatchID: before.ID, Period: tr.From, EndedAt: &at, ElapsedMs: tr.EndedElapsedMs}
		elapsed := time.Duration(tr.EndedElapsedMs) * time.Millisecond
		minute, stoppage := matchclock.MinuteAt(before, tr.From, elapsed)
		events = append(events, &model.MatchEvent{
			MatchID:        before.ID,
			Type:           model.EventPeriodEnd,
			Period:         tr.From,
			Minute:         minute,
			Stoppage:       stoppage,
			ElapsedSeconds: int(elapsed / time.Second),
			System:         true,
			CreatedBy:      actor.id(),
		})
	}
	if tr.PeriodStarted {
		started = &model.MatchPeriodLog{MatchID: after.ID, Period: tr.To, StartedAt: tr.At}
		minute, _ := matchclock.MinuteAt(after, tr.To, 0)
		events = append(events, &model.MatchEvent{
			MatchID:   after.ID,
			Type:      model.EventPeriodStart,
			Period:    tr.To,
			Minute:    minute,
			System:    true,
			CreatedBy: actor.id(),
		})
	}
	return ended, started, events
}
