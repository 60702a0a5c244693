// Package timeline defines the narrated event kinds and replays a match
// timeline over its roster to derive the score and who is on the pitch.
//
// New event types are added by implementing Kind and registering it; the
// event service and the replay never switch on event types directly.
package timeline

import (
	"errors"
	"fmt"

	"match-narrator/internal/model"
)

// Validation errors reported for individual events.
var (
	ErrUnknownType        = errors.New("unknown event type")
	ErrMissingTeam        = errors.New("team is required")
	ErrMissingPlayer      = errors.New("player is required")
	ErrMissingRelated     = errors.New("related player is required")
	ErrUnexpectedField    = errors.New("field not allowed for this event type")
	ErrSamePlayer         = errors.New("player and related player must differ")
	ErrTeamNotInMatch     = errors.New("team does not play in this match")
	ErrPeriodNotAllowed   = errors.New("event type not allowed in this period")
	ErrPlayerNotInRoster  = errors.New("player is not in the match roster")
	ErrWrongTeam          = errors.New("player does not belong to the event team")
	ErrPlayerNotOnField   = errors.New("player is not on the field")
	ErrPlayerNotOnBench   = errors.New("player is not available on the bench")
	ErrPlayerSentOff      = errors.New("player has been sent off")
	ErrAlreadyBooked      = errors.New("player already has a yellow card")
	ErrNotBooked          = errors.New("player has no yellow card")
	ErrSystemEventInvalid = errors.New("system events cannot be narrated")
)

// Field says whether an event field must, may or must not be set.
type Field int

// Field requirements.
const (
	Forbidden Field = iota
	Optional
	Required
)

// Kind defines one event type: which fields it takes, when it may happen and
// what it does to the match state.
type Kind interface {
	// Type returns the event type this kind handles.
	Type() model.EventType

	// Description returns a short human-readable label, e.g. "Yellow card".
	Description() string

	// System reports whether only clock transitions may create the event.
	System() bool

	// Validate checks the event's fields without looking at match state.
	Validate(e *model.MatchEvent) error

	// AllowedIn reports whether the event may be placed in period p.
	AllowedIn(p model.Period) bool

	// Apply replays the event against s.
	Apply(s *State, e *model.MatchEvent) error
}

// rule is the table-driven Kind implementation used by every built-in type.
type rule struct {
	typ     model.EventType
	desc    string
	system  bool
	team    Field
	player  Field
	related Field
	periods func(model.Period) bool
	effect  func(s *State, e *model.MatchEvent) error
}

func (k *rule) Type() model.EventType { return k.typ }
func (k *rule) Description() string   { return k.desc }
func (k *rule) System() bool          { return k.system }

func (k *rule) AllowedIn(p model.Period) bool {
	if k.periods == nil {
		return true
	}
	return k.periods(p)
}

func (k *rule) Validate(e *model.MatchEvent) error {
	if err := check(k.team, e.TeamID != nil, ErrMissingTeam, "team"); err != nil {
		return err
	}
	if err := check(k.player, e.PlayerID != nil, ErrMissingPlayer, "player"); err != nil {
		return err
	}
	if err := check(k.related, e.RelatedPlayerID != nil, ErrMissingRelated, "related player"); err != nil {
		return err
	}
	if e.PlayerID != nil && e.RelatedPlayerID != nil && *e.PlayerID == *e.RelatedPlayerID {
		return ErrSamePlayer
	}
	return nil
}

func (k *rule) Apply(s *State, e *model.MatchEvent) error {
	if k.effect == nil {
		return nil
	}
	return k.effect(s, e)
}

func check(f Field, set bool, missing error, name string) error {
	switch {
	case f == Required && !set:
		return missing
	case f == Forbidden && set:
		return fmt.Errorf("%w: %s", ErrUnexpectedField, name)
	}
	return nil
}
