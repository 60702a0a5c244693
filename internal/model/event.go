package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a kind of timeline entry.
type EventType string

// Narrated event types.
const (
	EventGoal          EventType = "goal"
	EventOwnGoal       EventType = "own_goal"
	EventPenaltyGoal   EventType = "penalty_goal"
	EventPenaltyMissed EventType = "penalty_missed"
	EventYellowCard    EventType = "yellow_card"
	EventSecondYellow  EventType = "second_yellow"
	EventRedCard       EventType = "red_card"
	EventSubstitution  EventType = "substitution"
	EventShot          EventType = "shot"
	EventShotOnTarget  EventType = "shot_on_target"
	EventCorner        EventType = "corner"
	EventFoul          EventType = "foul"
	EventOffside       EventType = "offside"
	EventSave          EventType = "save"
	EventInjury        EventType = "injury"
	EventVARReview     EventType = "var_review"
	EventComment       EventType = "comment"
	EventShootoutGoal  EventType = "shootout_goal"
	EventShootoutMiss  EventType = "shootout_miss"
)

// System event types, written by clock transitions only.
const (
	EventPeriodStart EventType = "period_start"
	EventPeriodEnd   EventType = "period_end"
)

// MatchEvent is one entry of a match timeline. Deleted events keep their row
// with DeletedAt set.
type MatchEvent struct {
	ID              int64      `db:"id" json:"id"`
	MatchID         int64      `db:"match_id" json:"match_id"`
	ClientID        uuid.UUID  `db:"client_id" json:"client_id"`
	Type            EventType  `db:"type" json:"type"`
	Period          Period     `db:"period" json:"period"`
	Minute          int        `db:"minute" json:"minute"`
	Stoppage        int        `db:"stoppage" json:"stoppage"`
	ElapsedSeconds  int        `db:"elapsed_seconds" json:"elapsed_seconds"`
	TeamID          *int64     `db:"team_id" json:"team_id,omitempty"`
	PlayerID        *int64     `db:"player_id" json:"player_id,omitempty"`
	RelatedPlayerID *int64     `db:"related_player_id" json:"related_player_id,omitempty"`
	Detail          string     `db:"detail" json:"detail"`
	System          bool       `db:"system" json:"system"`
	CreatedBy       *int64     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy       *int64     `db:"deleted_by" json:"deleted_by,omitempty"`
}

// Deleted reports whether the event has been soft-deleted.
func (e *MatchEvent) Deleted() bool {
	return e.DeletedAt != nil
}
