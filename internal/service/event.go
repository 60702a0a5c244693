package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"match-narrator/internal/matchclock"
	"match-narrator/internal/model"
	"match-narrator/internal/pkg/lock"
	"match-narrator/internal/repository"
	"match-narrator/internal/timeline"
)

// pendingID stands in for the id of an event that is not stored yet, so it
// sorts after stored events with the same match time.
const pendingID = math.MaxInt64

// EventService records and corrects the match timeline.
type EventService struct {
	matches  MatchStore
	roster   RosterStore
	events   EventStore
	registry *timeline.Registry
	audit    *AuditService
	locks    *lock.KeyLock
	now      Clock
}

// NewEventService creates a new EventService instance.
func NewEventService(stores Stores, registry *timeline.Registry, audit *AuditService, locks *lock.KeyLock, now Clock) *EventService {
	if now == nil {
		now = time.Now
	}
	return &EventService{
		matches:  stores.Matches,
		roster:   stores.Roster,
		events:   stores.Events,
		registry: registry,
		audit:    audit,
		locks:    locks,
		now:      now,
	}
}

// EventInput is a narrator's new timeline entry. Nil Period and Minute are
// taken from the running clock.
type EventInput struct {
	ClientID        *uuid.UUID      `json:"client_id,omitempty"`
	Type            model.EventType `json:"type"`
	Period          *model.Period   `json:"period,omitempty"`
	Minute          *int            `json:"minute,omitempty"`
	Stoppage        *int            `json:"stoppage,omitempty"`
	TeamID          *int64          `json:"team_id,omitempty"`
	PlayerID        *int64          `json:"player_id,omitempty"`
	RelatedPlayerID *int64          `json:"related_player_id,omitempty"`
	Detail          string          `json:"detail"`
}

// EventPatch changes fields of a stored event. Nil fields are kept.
type EventPatch struct {
	Period          *model.Period `json:"period,omitempty"`
	Minute          *int          `json:"minute,omitempty"`
	Stoppage        *int          `json:"stoppage,omitempty"`
	TeamID          *int64        `json:"team_id,omitempty"`
	PlayerID        *int64        `json:"player_id,omitempty"`
	RelatedPlayerID *int64        `json:"related_player_id,omitempty"`
	Detail          *string       `json:"detail,omitempty"`
}

// KindInfo describes an event type for clients.
type KindInfo struct {
	Type        model.EventType `json:"type"`
	Description string          `json:"description"`
	System      bool            `json:"system"`
}

// Types lists the registered event types.
func (s *EventService) Types() []KindInfo {
	kinds := s.registry.List()
	out := make([]KindInfo, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, KindInfo{Type: k.Type(), Description: k.Description(), System: k.System()})
	}
	return out
}

// List returns a match timeline in match-time order.
func (s *EventService) List(ctx context.Context, matchID int64, includeDeleted bool) ([]model.MatchEvent, error) {
	if _, err := s.matches.GetByID(ctx, matchID); err != nil {
		return nil, err
	}
	events, err := s.events.ListByMatch(ctx, matchID, includeDeleted)
	if err != nil {
		return nil, err
	}
	timeline.Sort(events)
	return events, nil
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, matchID, eventID int64) (*model.MatchEvent, error) {
	return s.events.GetByID(ctx, matchID, eventID)
}

// writable checks that actor may change the timeline of m now.
func writable(actor Actor, m *model.Match) error {
	if err := CanNarrate(actor, m); err != nil {
		return err
	}
	switch {
	case m.Status == model.MatchLive:
		return nil
	case m.Status == model.MatchFinished && actor.IsAdmin():
		return nil
	}
	return fmt.Errorf("%w: match is %s", ErrMatchNotLive, m.Status)
}

// checkPeriod rejects periods m has not reached or can never reach.
func checkPeriod(m *model.Match, p model.Period) error {
	if !p.Valid() {
		return invalid("period", "unknown period %q", p)
	}
	switch p {
	case model.PeriodExtraTimeBreak, model.PeriodExtraFirstHalf, model.PeriodExtraHalfTime, model.PeriodExtraSecondHalf:
		if !m.HasExtraTime {
			return invalid("period", "match has no extra time")
		}
	case model.PeriodPenaltyBreak, model.PeriodPenalties:
		if !m.HasPenalties {
			return invalid("period", "match has no penalty shootout")
		}
	}
	if matchclock.Order(p) > matchclock.Order(m.Period) {
		return invalid("period", "%s has not started yet", p)
	}
	return nil
}

func checkTime(minute, stoppage int) error {
	if minute < 0 || minute > 150 {
		return invalid("minute", "must be between 0 and 150")
	}
	if stoppage < 0 || stoppage > 30 {
		return invalid("stoppage", "must be between 0 and 30")
	}
	return nil
}

// fillTeam infers the team of an event from the roster entry of its player.
func fillTeam(e *model.MatchEvent, roster []model.RosterEntry) {
	if e.TeamID != nil || e.PlayerID == nil {
		return
	}
	for _, r := range roster {
		if r.PlayerID == *e.PlayerID {
			team := r.TeamID
			e.TeamID = &team
			return
		}
	}
}

// loaded is the match context every timeline write works against.
type loaded struct {
	match  *model.Match
	roster []model.RosterEntry
	events []model.MatchEvent
}

func (s *EventService) load(ctx context.Context, actor Actor, matchID int64) (*loaded, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := writable(actor, m); err != nil {
		return nil, err
	}
	roster, err := s.roster.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListByMatch(ctx, matchID, false)
	if err != nil {
		return nil, err
	}
	return &loaded{match: m, roster: roster, events: events}, nil
}

func (l *loaded) replay(r *timeline.Registry, events []model.MatchEvent) (*timeline.State, error) {
	state, err := r.Replay(l.match, l.roster, events)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTimelineConflict, err)
	}
	return state, nil
}

// without returns events minus the one with id.
func without(events []model.MatchEvent, id int64) []model.MatchEvent {
	out := make([]model.MatchEvent, 0, len(events))
	for _, e := range events {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func (s *EventService) check(e *model.MatchEvent) error {
	if err := s.registry.Check(e); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// Record validates and stores a new event. A repeated client id returns the
// stored event and created=false.
func (s *EventService) Record(ctx context.Context, actor Actor, matchID int64, in EventInput) (ev *model.MatchEvent, created bool, err error) {
	err = s.locks.WithLockContext(ctx, matchID, lockTimeout, func() error {
		if in.ClientID != nil && *in.ClientID != uuid.Nil {
			m, err := s.matches.GetByID(ctx, matchID)
			if err != nil {
				return err
			}
			if err := CanNarrate(actor, m); err != nil {
				return err
			}
			existing, err := s.events.GetByClientID(ctx, matchID, *in.ClientID)
			if err == nil {
				ev = existing
				return nil
			}
			if !errors.Is(err, repository.ErrEventNotFound) {
				return err
			}
		}
		l, err := s.load(ctx, actor, matchID)
		if err != nil {
			return err
		}

		e, err := s.build(l, actor, in)
		if err != nil {
			return err
		}

		state, err := s.replayNew(l, e)
		if err != nil {
			return err
		}

		e.ID = 0
		out, err := s.events.Insert(ctx, e, model.MatchScore(state.Score))
		if errors.Is(err, repository.ErrConflict) && in.ClientID != nil {
			existing, getErr := s.events.GetByClientID(ctx, matchID, *in.ClientID)
			if getErr != nil {
				return getErr
			}
			ev = existing
			return nil
		}
		if err != nil {
			return err
		}
		ev, created = out, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		return ev, false, nil
	}

	log.Info().
		Int64("match_id", matchID).
		Int64("event_id", ev.ID).
		Int64("actor_id", actor.UserID).
		Str("operation", "event.record").
		Str("type", string(ev.Type)).
		Str("minute", matchclock.FormatMinute(ev.Minute, ev.Stoppage)).
		Msg("Event recorded")
	s.audit.Record(ctx, actor, "event.record", model.EntityEvent, ev.ID, ev)
	return ev, true, nil
}

// build turns input into an event, filling period, minute and team.
func (s *EventService) build(l *loaded, actor Actor, in EventInput) (*model.MatchEvent, error) {
	m := l.match
	e := &model.MatchEvent{
		ID:              pendingID,
		MatchID:         m.ID,
		Type:            in.Type,
		TeamID:          in.TeamID,
		PlayerID:        in.PlayerID,
		RelatedPlayerID: in.RelatedPlayerID,
		Detail:          strings.TrimSpace(in.Detail),
		CreatedBy:       actor.id(),
	}
	if in.ClientID != nil {
		e.ClientID = *in.ClientID
	}
	if k, ok := s.registry.Get(in.Type); ok && k.System() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, timeline.ErrSystemEventInvalid)
	}

	e.Period = m.Period
	if in.Period != nil {
		if err := checkPeriod(m, *in.Period); err != nil {
			return nil, err
		}
		e.Period = *in.Period
	}

	switch {
	case in.Minute != nil:
		e.Minute = *in.Minute
		if in.Stoppage != nil {
			e.Stoppage = *in.Stoppage
		}
		if e.Period == m.Period {
			snap := matchclock.Take(m, s.now())
			if snap.Minute == e.Minute && snap.Stoppage == e.Stoppage {
				e.ElapsedSeconds = snap.ElapsedSeconds
			}
		}
	case e.Period == m.Period:
		snap := matchclock.Take(m, s.now())
		e.Minute, e.Stoppage, e.ElapsedSeconds = snap.Minute, snap.Stoppage, snap.ElapsedSeconds
	default:
		return nil, invalid("minute", "is required outside the current period")
	}
	if err := checkTime(e.Minute, e.Stoppage); err != nil {
		return nil, err
	}

	fillTeam(e, l.roster)
	if err := s.check(e); err != nil {
		return nil, err
	}
	return e, nil
}

// replayNew replays the timeline with e added. A yellow card for a player who
// is already booked at that point becomes a second yellow.
func (s *EventService) replayNew(l *loaded, e *model.MatchEvent) (*timeline.State, error) {
	state, err := l.replay(s.registry, append(l.events, *e))
	var re *timeline.ReplayError
	if err != nil && e.Type == model.EventYellowCard &&
		errors.As(err, &re) && re.EventID == pendingID && errors.Is(err, timeline.ErrAlreadyBooked) {
		e.Type = model.EventSecondYellow
		return l.replay(s.registry, append(l.events, *e))
	}
	return state, err
}

// Update changes a live event and revalidates the timeline.
func (s *EventService) Update(ctx context.Context, actor Actor, matchID, eventID int64, p EventPatch) (*model.MatchEvent, error) {
	var out *model.MatchEvent
	err := s.locks.WithLockContext(ctx, matchID, lockTimeout, func() error {
		l, err := s.load(ctx, actor, matchID)
		if err != nil {
			return err
		}
		cur, err := s.events.GetByID(ctx, matchID, eventID)
		if err != nil {
			return err
		}
		if cur.System {
			return fmt.Errorf("%w: %w", ErrInvalidInput, timeline.ErrSystemEventInvalid)
		}
		if cur.Deleted() {
			return fmt.Errorf("%w: event %d is deleted", repository.ErrNotEditable, eventID)
		}

		e := *cur
		if p.Period != nil {
			if err := checkPeriod(l.match, *p.Period); err != nil {
				return err
			}
			e.Period = *p.Period
		}
		if p.Minute != nil {
			e.Minute = *p.Minute
			e.ElapsedSeconds = 0
		}
		if p.Stoppage != nil {
			e.Stoppage = *p.Stoppage
		}
		if p.TeamID != nil {
			e.TeamID = p.TeamID
		}
		if p.PlayerID != nil {
			e.PlayerID = p.PlayerID
		}
		if p.RelatedPlayerID != nil {
			e.RelatedPlayerID = p.RelatedPlayerID
		}
		if p.Detail != nil {
			e.Detail = strings.TrimSpace(*p.Detail)
		}
		if err := checkTime(e.Minute, e.Stoppage); err != nil {
			return err
		}
		if err := s.check(&e); err != nil {
			return err
		}

		state, err := l.replay(s.registry, append(without(l.events, eventID), e))
		if err != nil {
			return err
		}
		out, err = s.events.Update(ctx, &e, model.MatchScore(state.Score))
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("match_id", matchID).
		Int64("event_id", eventID).
		Int64("actor_id", actor.UserID).
		Str("operation", "event.update").
		Msg("Event updated")
	s.audit.Record(ctx, actor, "event.update", model.EntityEvent, eventID, p)
	return out, nil
}

// Delete soft-deletes an event. Deleting a deleted event is a no-op.
func (s *EventService) Delete(ctx context.Context, actor Actor, matchID, eventID int64) (*model.MatchEvent, error) {
	return s.setDeleted(ctx, actor, matchID, eventID, true)
}

// Restore brings back a soft-deleted event if the timeline still replays.
func (s *EventService) Restore(ctx context.Context, actor Actor, matchID, eventID int64) (*model.MatchEvent, error) {
	return s.setDeleted(ctx, actor, matchID, eventID, false)
}

func (s *EventService) setDeleted(ctx context.Context, actor Actor, matchID, eventID int64, deleted bool) (*model.MatchEvent, error) {
	var (
		out     *model.MatchEvent
		changed bool
	)
	err := s.locks.WithLockContext(ctx, matchID, lockTimeout, func() error {
		l, err := s.load(ctx, actor, matchID)
		if err != nil {
			return err
		}
		cur, err := s.events.GetByID(ctx, matchID, eventID)
		if err != nil {
			return err
		}
		if cur.System {
			return fmt.Errorf("%w: %w", ErrInvalidInput, timeline.ErrSystemEventInvalid)
		}
		if cur.Deleted() == deleted {
			out = cur
			return nil
		}

		next := without(l.events, eventID)
		e := *cur
		if deleted {
			at := s.now()
			e.DeletedAt, e.DeletedBy = &at, actor.id()
		} else {
			e.DeletedAt, e.DeletedBy = nil, nil
			next = append(next, e)
		}
		state, err := l.replay(s.registry, next)
		if err != nil {
			return err
		}
		out, err = s.events.SetDeleted(ctx, &e, model.MatchScore(state.Score))
		changed = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return out, nil
	}

	op := "event.delete"
	if !deleted {
		op = "event.restore"
	}
	log.Info().
		Int64("match_id", matchID).
		Int64("event_id", eventID).
		Int64("actor_id", actor.UserID).
		Str("operation", op).
		Msg("Event visibility changed")
	s.audit.Record(ctx, actor, op, model.EntityEvent, eventID, nil)
	return out, nil
}
