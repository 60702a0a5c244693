package model

import "time"

// MatchStatus is the coarse lifecycle state of a match.
type MatchStatus string

// Match statuses.
const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchFinished  MatchStatus = "finished"
	MatchCancelled MatchStatus = "cancelled"
)

// Period is the fine-grained phase of a match.
type Period string

// Match periods in their natural order.
const (
	PeriodPreMatch        Period = "pre_match"
	PeriodFirstHalf       Period = "first_half"
	PeriodHalfTime        Period = "half_time"
	PeriodSecondHalf      Period = "second_half"
	PeriodExtraTimeBreak  Period = "extra_time_break"
	PeriodExtraFirstHalf  Period = "extra_first_half"
	PeriodExtraHalfTime   Period = "extra_half_time"
	PeriodExtraSecondHalf Period = "extra_second_half"
	PeriodPenaltyBreak    Period = "penalty_break"
	PeriodPenalties       Period = "penalties"
	PeriodFullTime        Period = "full_time"
)

// Playing reports whether the ball is in play during p (the clock can run).
func (p Period) Playing() bool {
	switch p {
	case PeriodFirstHalf, PeriodSecondHalf, PeriodExtraFirstHalf, PeriodExtraSecondHalf:
		return true
	}
	return false
}

// Break reports whether p is an interval between playing periods.
func (p Period) Break() bool {
	switch p {
	case PeriodHalfTime, PeriodExtraTimeBreak, PeriodExtraHalfTime, PeriodPenaltyBreak:
		return true
	}
	return false
}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodPreMatch, PeriodFullTime, PeriodPenalties:
		return true
	}
	return p.Playing() || p.Break()
}

// Match is a fixture between two teams together with its live clock state.
type Match struct {
	ID                 int64       `db:"id" json:"id"`
	SeasonID           *int64      `db:"season_id" json:"season_id,omitempty"`
	HomeTeamID         int64       `db:"home_team_id" json:"home_team_id"`
	AwayTeamID         int64       `db:"away_team_id" json:"away_team_id"`
	KickoffAt          time.Time   `db:"kickoff_at" json:"kickoff_at"`
	Venue              string      `db:"venue" json:"venue"`
	Round              string      `db:"round" json:"round"`
	Status             MatchStatus `db:"status" json:"status"`
	Period             Period      `db:"period" json:"period"`
	ClockRunning       bool        `db:"clock_running" json:"clock_running"`
	RunningSince       *time.Time  `db:"running_since" json:"running_since,omitempty"`
	PeriodElapsedMs    int64       `db:"period_elapsed_ms" json:"period_elapsed_ms"`
	PeriodStartedAt    *time.Time  `db:"period_started_at" json:"period_started_at,omitempty"`
	HomeScore          int         `db:"home_score" json:"home_score"`
	AwayScore          int         `db:"away_score" json:"away_score"`
	HomeShootout       int         `db:"home_shootout" json:"home_shootout"`
	AwayShootout       int         `db:"away_shootout" json:"away_shootout"`
	PeriodMinutes      int         `db:"period_minutes" json:"period_minutes"`
	ExtraPeriodMinutes int         `db:"extra_period_minutes" json:"extra_period_minutes"`
	HasExtraTime       bool        `db:"has_extra_time" json:"has_extra_time"`
	HasPenalties       bool        `db:"has_penalties" json:"has_penalties"`
	NarratorID         *int64      `db:"narrator_id" json:"narrator_id,omitempty"`
	ExternalID         *int64      `db:"external_id" json:"external_id,omitempty"`
	Version            int64       `db:"version" json:"version"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}

// TeamSide returns "home" or "away" for a participating team, or "" otherwise.
func (m *Match) TeamSide(teamID int64) string {
	switch teamID {
	case m.HomeTeamID:
		return "home"
	case m.AwayTeamID:
		return "away"
	}
	return ""
}

// Involves reports whether teamID plays in the match.
func (m *Match) Involves(teamID int64) bool {
	return m.TeamSide(teamID) != ""
}

// Opponent returns the other team's id.
func (m *Match) Opponent(teamID int64) int64 {
	if teamID == m.HomeTeamID {
		return m.AwayTeamID
	}
	return m.HomeTeamID
}

// MatchFilter narrows a match listing. Zero values mean "any".
type MatchFilter struct {
	SeasonID   int64
	Status     MatchStatus
	NarratorID int64
	Limit      int
}

// MatchPeriodLog records when a period was played.
type MatchPeriodLog struct {
	ID        int64      `db:"id" json:"id"`
	MatchID   int64      `db:"match_id" json:"match_id"`
	Period    Period     `db:"period" json:"period"`
	StartedAt time.Time  `db:"started_at" json:"started_at"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	ElapsedMs int64      `db:"elapsed_ms" json:"elapsed_ms"`
}

// RosterRole places a rostered player in the starting eleven or on the bench.
type RosterRole string

// Roster roles.
const (
	RosterStarter RosterRole = "starter"
	RosterBench   RosterRole = "bench"
)

// RosterEntry is a player selected for a match. PosX and PosY are canvas
// coordinates in percent of the pitch width and height.
type RosterEntry struct {
	MatchID       int64      `db:"match_id" json:"match_id"`
	TeamID        int64      `db:"team_id" json:"team_id"`
	PlayerID      int64      `db:"player_id" json:"player_id"`
	Role          RosterRole `db:"role" json:"role"`
	ShirtNumber   *int       `db:"shirt_number" json:"shirt_number,omitempty"`
	PositionLabel string     `db:"position_label" json:"position_label"`
	PosX          *float64   `db:"pos_x" json:"pos_x,omitempty"`
	PosY          *float64   `db:"pos_y" json:"pos_y,omitempty"`
	Captain       bool       `db:"captain" json:"captain"`
}

// MatchScore is the cached result stored on the match row.
type MatchScore struct {
	Home         int `json:"home"`
	Away         int `json:"away"`
	HomeShootout int `json:"home_shootout"`
	AwayShootout int `json:"away_shootout"`
}

// Score returns the cached result.
func (m *Match) Score() MatchScore {
	return MatchScore{Home: m.HomeScore, Away: m.AwayScore, HomeShootout: m.HomeShootout, AwayShootout: m.AwayShootout}
}
