// Package matchclock implements the match period state machine and the
// elapsed-time arithmetic behind the narrator's clock.
//
// All functions are pure: they take a match value and the current time and
// return a new value. Persisting the result is the caller's job.
package matchclock

import (
	"errors"
	"fmt"
	"time"

	"match-narrator/internal/model"
)

// Action is a narrator command against the clock.
type Action string

// Clock actions.
const (
	ActionStart       Action = "start"
	ActionPause       Action = "pause"
	ActionResume      Action = "resume"
	ActionEndPeriod   Action = "end_period"
	ActionStartPeriod Action = "start_period"
	ActionFinish      Action = "finish"
	ActionCancel      Action = "cancel"
)

// Actions lists every action in a stable order.
var Actions = []Action{
	ActionStart, ActionPause, ActionResume, ActionEndPeriod,
	ActionStartPeriod, ActionFinish, ActionCancel,
}

// ParseAction converts a path segment such as "end-period" into an Action.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s || dashed(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, s)
}

func dashed(a Action) string {
	b := []byte(a)
	for i := range b {
		if b[i] == '_' {
			b[i] = '-'
		}
	}
	return string(b)
}

// ErrInvalidTransition is returned when an action is not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid clock transition")

// Transition describes what an applied action changed.
type Transition struct {
	Action Action       `json:"action"`
	From   model.Period `json:"from"`
	To     model.Period `json:"to"`
	At     time.Time    `json:"at"`

	// PeriodEnded is set when From was closed; EndedElapsedMs is its final length.
	PeriodEnded    bool  `json:"period_ended"`
	EndedElapsedMs int64 `json:"ended_elapsed_ms"`

	// PeriodStarted is set when To was opened.
	PeriodStarted bool `json:"period_started"`
}

// Elapsed returns how long the current period has been played at now.
func Elapsed(m *model.Match, now time.Time) time.Duration {
	ms := m.PeriodElapsedMs
	if m.ClockRunning && m.RunningSince != nil {
		if d := now.Sub(*m.RunningSince); d > 0 {
			ms += d.Milliseconds()
		}
	}
	return time.Duration(ms) * time.Millisecond
}

// Apply runs action against m at time now. On success it returns the updated
// match; m itself is never modified.
func Apply(m model.Match, action Action, now time.Time) (model.Match, Transition, error) {
	t := Transition{Action: action, From: m.Period, To: m.Period, At: now}

	if m.Status == model.MatchCancelled || m.Status == model.MatchFinished {
		return m, t, fmt.Errorf("%w: match is %s", ErrInvalidTransition, m.Status)
	}

	switch action {
	case ActionStart:
		if m.Status != model.MatchScheduled || m.Period != model.PeriodPreMatch {
			return m, t, fmt.Errorf("%w: match already started", ErrInvalidTransition)
		}
		m.Status = model.MatchLive
		openPeriod(&m, model.PeriodFirstHalf, now, &t)

	case ActionPause:
		if !m.Period.Playing() || !m.ClockRunning {
			return m, t, fmt.Errorf("%w: clock is not running", ErrInvalidTransition)
		}
		stopClock(&m, now)

	case ActionResume:
		if !m.Period.Playing() || m.ClockRunning {
			return m, t, fmt.Errorf("%w: clock is not paused", ErrInvalidTransition)
		}
		m.ClockRunning = true
		m.RunningSince = timePtr(now)

	case ActionEndPeriod:
		if !m.Period.Playing() && m.Period != model.PeriodPenalties {
			return m, t, fmt.Errorf("%w: no period in progress", ErrInvalidTransition)
		}
		closePeriod(&m, now, &t)
		next := nextAfterPlaying(&m)
		m.Period = next
		t.To = next
		m.PeriodElapsedMs = 0
		m.PeriodStartedAt = nil
		if next == model.PeriodFullTime {
			m.Status = model.MatchFinished
		}

	case ActionStartPeriod:
		next, ok := nextAfterBreak(m.Period)
		if !ok {
			return m, t, fmt.Errorf("%w: not in an interval", ErrInvalidTransition)
		}
		openPeriod(&m, next, now, &t)

	case ActionFinish:
		if m.Status != model.MatchLive {
			return m, t, fmt.Errorf("%w: match is not live", ErrInvalidTransition)
		}
		if m.Period.Playing() || m.Period == model.PeriodPenalties {
			closePeriod(&m, now, &t)
		}
		m.Period = model.PeriodFullTime
		t.To = model.PeriodFullTime
		m.PeriodElapsedMs = 0
		m.PeriodStartedAt = nil
		m.Status = model.MatchFinished

	case ActionCancel:
		if m.Period.Playing() {
			stopClock(&m, now)
		}
		m.Status = model.MatchCancelled

	default:
		return m, t, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}

	return m, t, nil
}

func openPeriod(m *model.Match, p model.Period, now time.Time, t *Transition) {
	m.Period = p
	m.PeriodElapsedMs = 0
	m.PeriodStartedAt = timePtr(now)
	// The shootout is not timed.
	if p.Playing() {
		m.ClockRunning = true
		m.RunningSince = timePtr(now)
	} else {
		m.ClockRunning = false
		m.RunningSince = nil
	}
	t.To = p
	t.PeriodStarted = true
}

func closePeriod(m *model.Match, now time.Time, t *Transition) {
	stopClock(m, now)
	t.PeriodEnded = true
	t.EndedElapsedMs = m.PeriodElapsedMs
}

func stopClock(m *model.Match, now time.Time) {
	m.PeriodElapsedMs = Elapsed(m, now).Milliseconds()
	m.ClockRunning = false
	m.RunningSince = nil
}

// nextAfterPlaying picks the interval that follows the period being closed.
// Extra time and penalties are only reached when the score is level.
func nextAfterPlaying(m *model.Match) model.Period {
	level := m.HomeScore == m.AwayScore
	switch m.Period {
	case model.PeriodFirstHalf:
		return model.PeriodHalfTime
	case model.PeriodSecondHalf:
		switch {
		case level && m.HasExtraTime:
			return model.PeriodExtraTimeBreak
		case level && m.HasPenalties:
			return model.PeriodPenaltyBreak
		}
	case model.PeriodExtraFirstHalf:
		return model.PeriodExtraHalfTime
	case model.PeriodExtraSecondHalf:
		if level && m.HasPenalties {
			return model.PeriodPenaltyBreak
		}
	}
	return model.PeriodFullTime
}

func nextAfterBreak(p model.Period) (model.Period, bool) {
	switch p {
	case model.PeriodHalfTime:
		return model.PeriodSecondHalf, true
	case model.PeriodExtraTimeBreak:
		return model.PeriodExtraFirstHalf, true
	case model.PeriodExtraHalfTime:
		return model.PeriodExtraSecondHalf, true
	case model.PeriodPenaltyBreak:
		return model.PeriodPenalties, true
	}
	return "", false
}

func timePtr(t time.Time) *time.Time {
	return &t
}
