package matchclock

import (
	"fmt"
	"time"

	"match-narrator/internal/model"
)

// Snapshot is the clock as shown on the narrator console. It is polled, so it
// carries the server time the values were computed at.
type Snapshot struct {
	MatchID        int64             `json:"match_id"`
	Status         model.MatchStatus `json:"status"`
	Period         model.Period      `json:"period"`
	Running        bool              `json:"running"`
	ElapsedSeconds int               `json:"elapsed_seconds"`
	PeriodSeconds  int               `json:"period_seconds"`
	Minute         int               `json:"minute"`
	Stoppage       int               `json:"stoppage"`
	Display        string            `json:"display"`
	HomeScore      int               `json:"home_score"`
	AwayScore      int               `json:"away_score"`
	HomeShootout   int               `json:"home_shootout"`
	AwayShootout   int               `json:"away_shootout"`
	Version        int64             `json:"version"`
	ServerTime     time.Time         `json:"server_time"`
}

// Take computes the snapshot of m at now.
func Take(m *model.Match, now time.Time) Snapshot {
	elapsed := Elapsed(m, now)
	minute, stoppage := MinuteAt(m, m.Period, elapsed)
	_, length := bounds(m, m.Period)

	return Snapshot{
		MatchID:        m.ID,
		Status:         m.Status,
		Period:         m.Period,
		Running:        m.ClockRunning,
		ElapsedSeconds: int(elapsed / time.Second),
		PeriodSeconds:  length * 60,
		Minute:         minute,
		Stoppage:       stoppage,
		Display:        Display(m.Status, m.Period, minute, stoppage),
		HomeScore:      m.HomeScore,
		AwayScore:      m.AwayScore,
		HomeShootout:   m.HomeShootout,
		AwayShootout:   m.AwayShootout,
		Version:        m.Version,
		ServerTime:     now,
	}
}

// MinuteAt converts time played in period p into the conventional football
// minute. The first minute of a half is minute 1; time beyond the regular
// length is reported as stoppage on top of the period's last minute.
func MinuteAt(m *model.Match, p model.Period, elapsed time.Duration) (minute, stoppage int) {
	offset, length := bounds(m, p)
	if !p.Playing() {
		return offset, 0
	}

	played := int(elapsed / time.Minute)
	if played < 0 {
		played = 0
	}
	if played < length {
		return offset + played + 1, 0
	}
	return offset + length, played - length + 1
}

// bounds returns the minute a period starts at and its regular length in
// minutes. Intervals report the minute the previous period ended at.
func bounds(m *model.Match, p model.Period) (offset, length int) {
	half := m.PeriodMinutes
	if half <= 0 {
		half = 45
	}
	extra := m.ExtraPeriodMinutes
	if extra <= 0 {
		extra = 15
	}

	switch p {
	case model.PeriodFirstHalf:
		return 0, half
	case model.PeriodHalfTime:
		return half, 0
	case model.PeriodSecondHalf:
		return half, half
	case model.PeriodExtraTimeBreak:
		return 2 * half, 0
	case model.PeriodExtraFirstHalf:
		return 2 * half, extra
	case model.PeriodExtraHalfTime:
		return 2*half + extra, 0
	case model.PeriodExtraSecondHalf:
		return 2*half + extra, extra
	case model.PeriodPenaltyBreak, model.PeriodPenalties, model.PeriodFullTime:
		if m.HasExtraTime {
			return 2*half + 2*extra, 0
		}
		return 2 * half, 0
	}
	return 0, 0
}

// Display renders the clock the way a scoreboard does: "23'", "45+2'", "HT".
func Display(status model.MatchStatus, p model.Period, minute, stoppage int) string {
	if status == model.MatchCancelled {
		return "CANC"
	}
	switch p {
	case model.PeriodPreMatch:
		return ""
	case model.PeriodHalfTime:
		return "HT"
	case model.PeriodExtraTimeBreak:
		return "ET"
	case model.PeriodExtraHalfTime:
		return "ET HT"
	case model.PeriodPenaltyBreak, model.PeriodPenalties:
		return "PEN"
	case model.PeriodFullTime:
		return "FT"
	}
	return FormatMinute(minute, stoppage)
}

// FormatMinute renders a minute with optional stoppage, e.g. "90+3'".
func FormatMinute(minute, stoppage int) string {
	if stoppage > 0 {
		return fmt.Sprintf("%d+%d'", minute, stoppage)
	}
	return fmt.Sprintf("%d'", minute)
}

// Order gives each period its position in a match, for sorting and for
// rejecting events placed in a period that has not happened yet.
func Order(p model.Period) int {
	switch p {
	case model.PeriodPreMatch:
		return 0
	case model.PeriodFirstHalf:
		return 1
	case model.PeriodHalfTime:
		return 2
	case model.PeriodSecondHalf:
		return 3
	case model.PeriodExtraTimeBreak:
		return 4
	case model.PeriodExtraFirstHalf:
		return 5
	case model.PeriodExtraHalfTime:
		return 6
	case model.PeriodExtraSecondHalf:
		return 7
	case model.PeriodPenaltyBreak:
		return 8
	case model.PeriodPenalties:
		return 9
	case model.PeriodFullTime:
		return 10
	}
	return -1
}
