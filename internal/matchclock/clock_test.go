package matchclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-narrator/internal/model"
)

var kickoff = time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)

func newMatch() model.Match {
	return model.Match{
		ID:                 7,
		HomeTeamID:         1,
		AwayTeamID:         2,
		Status:             model.MatchScheduled,
		Period:             model.PeriodPreMatch,
		PeriodMinutes:      45,
		ExtraPeriodMinutes: 15,
		Version:            1,
	}
}

func mustApply(t *testing.T, m model.Match, a Action, at time.Time) (model.Match, Transition) {
	t.Helper()
	next, tr, err := Apply(m, a, at)
	require.NoError(t, err, "action %s from %s", a, m.Period)
	return next, tr
}

func TestApply_RegularMatch(t *testing.T) {
	m := newMatch()

	m, tr := mustApply(t, m, ActionStart, kickoff)
	assert.Equal(t, model.MatchLive, m.Status)
	assert.Equal(t, model.PeriodFirstHalf, m.Period)
	assert.True(t, m.ClockRunning)
	assert.True(t, tr.PeriodStarted)
	assert.False(t, tr.PeriodEnded)

	m, tr = mustApply(t, m, ActionEndPeriod, kickoff.Add(47*time.Minute))
	assert.Equal(t, model.PeriodHalfTime, m.Period)
	assert.False(t, m.ClockRunning)
	assert.True(t, tr.PeriodEnded)
	assert.Equal(t, (47 * time.Minute).Milliseconds(), tr.EndedElapsedMs)
	assert.Equal(t, int64(0), m.PeriodElapsedMs)

	m, _ = mustApply(t, m, ActionStartPeriod, kickoff.Add(62*time.Minute))
	assert.Equal(t, model.PeriodSecondHalf, m.Period)
	assert.True(t, m.ClockRunning)

	m.HomeScore = 1
	m, tr = mustApply(t, m, ActionEndPeriod, kickoff.Add(110*time.Minute))
	assert.Equal(t, model.PeriodFullTime, m.Period)
	assert.Equal(t, model.MatchFinished, m.Status)
	assert.Equal(t, model.PeriodSecondHalf, tr.From)
}

func TestApply_CupMatchGoesToExtraTimeAndPenalties(t *testing.T) {
	m := newMatch()
	m.HasExtraTime = true
	m.HasPenalties = true

	at := kickoff
	steps := []struct {
		action Action
		want   model.Period
	}{
		{ActionStart, model.PeriodFirstHalf},
		{ActionEndPeriod, model.PeriodHalfTime},
		{ActionStartPeriod, model.PeriodSecondHalf},
		{ActionEndPeriod, model.PeriodExtraTimeBreak},
		{ActionStartPeriod, model.PeriodExtraFirstHalf},
		{ActionEndPeriod, model.PeriodExtraHalfTime},
		{ActionStartPeriod, model.PeriodExtraSecondHalf},
		{ActionEndPeriod, model.PeriodPenaltyBreak},
		{ActionStartPeriod, model.PeriodPenalties},
		{ActionEndPeriod, model.PeriodFullTime},
	}
	for _, step := range steps {
		at = at.Add(10 * time.Minute)
		m, _ = mustApply(t, m, step.action, at)
		assert.Equal(t, step.want, m.Period)
	}
	assert.Equal(t, model.MatchFinished, m.Status)
}

func TestApply_CupMatchDecidedInNormalTime(t *testing.T) {
	m := newMatch()
	m.HasExtraTime = true
	m.HasPenalties = true

	m, _ = mustApply(t, m, ActionStart, kickoff)
	m, _ = mustApply(t, m, ActionEndPeriod, kickoff.Add(45*time.Minute))
	m, _ = mustApply(t, m, ActionStartPeriod, kickoff.Add(60*time.Minute))
	m.AwayScore = 2
	m, _ = mustApply(t, m, ActionEndPeriod, kickoff.Add(106*time.Minute))

	assert.Equal(t, model.PeriodFullTime, m.Period)
}

func TestApply_PenaltiesWithoutExtraTime(t *testing.T) {
	m := newMatch()
	m.HasPenalties = true

	m, _ = mustApply(t, m, ActionStart, kickoff)
	m, _ = mustApply(t, m, ActionEndPeriod, kickoff.Add(45*time.Minute))
	m, _ = mustApply(t, m, ActionStartPeriod, kickoff.Add(60*time.Minute))
	m, _ = mustApply(t, m, ActionEndPeriod, kickoff.Add(105*time.Minute))
	assert.Equal(t, model.PeriodPenaltyBreak, m.Period)

	m, _ = mustApply(t, m, ActionStartPeriod, kickoff.Add(110*time.Minute))
	assert.Equal(t, model.PeriodPenalties, m.Period)
	assert.False(t, m.ClockRunning, "shootout is not timed")
}

func TestApply_PauseResumeAccumulates(t *testing.T) {
	m := newMatch()
	m, _ = mustApply(t, m, ActionStart, kickoff)
	m, _ = mustApply(t, m, ActionPause, kickoff.Add(10*time.Minute))
	assert.False(t, m.ClockRunning)
	assert.Equal(t, (10 * time.Minute).Milliseconds(), m.PeriodElapsedMs)

	// Time spent paused does not count.
	assert.Equal(t, 10*time.Minute, Elapsed(&m, kickoff.Add(30*time.Minute)))

	m, _ = mustApply(t, m, ActionResume, kickoff.Add(15*time.Minute))
	assert.Equal(t, 15*time.Minute, Elapsed(&m, kickoff.Add(20*time.Minute)))
}

func TestApply_Rejections(t *testing.T) {
	live, _, err := Apply(newMatch(), ActionStart, kickoff)
	require.NoError(t, err)
	halfTime, _, err := Apply(live, ActionEndPeriod, kickoff.Add(45*time.Minute))
	require.NoError(t, err)
	finished, _, err := Apply(live, ActionFinish, kickoff.Add(50*time.Minute))
	require.NoError(t, err)
	cancelled, _, err := Apply(newMatch(), ActionCancel, kickoff)
	require.NoError(t, err)

	cases := []struct {
		name   string
		m      model.Match
		action Action
	}{
		{"pause before kickoff", newMatch(), ActionPause},
		{"end period before kickoff", newMatch(), ActionEndPeriod},
		{"finish before kickoff", newMatch(), ActionFinish},
		{"start twice", live, ActionStart},
		{"resume while running", live, ActionResume},
		{"start period while playing", live, ActionStartPeriod},
		{"pause at half time", halfTime, ActionPause},
		{"end period at half time", halfTime, ActionEndPeriod},
		{"anything after full time", finished, ActionStartPeriod},
		{"cancel finished match", finished, ActionCancel},
		{"start cancelled match", cancelled, ActionStart},
		{"unknown action", live, Action("rewind")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.m
			_, _, err := Apply(tc.m, tc.action, kickoff.Add(time.Hour))
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, before, tc.m)
		})
	}
}

func TestApply_FinishFromBreakAbandonsRemainingPeriods(t *testing.T) {
	m := newMatch()
	m.HasExtraTime = true
	m, _ = mustApply(t, m, ActionStart, kickoff)
	m, _ = mustApply(t, m, ActionEndPeriod, kickoff.Add(45*time.Minute))

	m, tr := mustApply(t, m, ActionFinish, kickoff.Add(50*time.Minute))
	assert.Equal(t, model.PeriodFullTime, m.Period)
	assert.Equal(t, model.MatchFinished, m.Status)
	assert.False(t, tr.PeriodEnded, "no period was in progress")
}

func TestApply_CancelLiveMatchStopsClock(t *testing.T) {
	m := newMatch()
	m, _ = mustApply(t, m, ActionStart, kickoff)
	m, _ = mustApply(t, m, ActionCancel, kickoff.Add(20*time.Minute))

	assert.Equal(t, model.MatchCancelled, m.Status)
	assert.False(t, m.ClockRunning)
	assert.Equal(t, 20*time.Minute, Elapsed(&m, kickoff.Add(time.Hour)))
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("end-period")
	require.NoError(t, err)
	assert.Equal(t, ActionEndPeriod, a)

	a, err = ParseAction("start_period")
	require.NoError(t, err)
	assert.Equal(t, ActionStartPeriod, a)

	_, err = ParseAction("halt")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMinuteAt(t *testing.T) {
	m := newMatch()
	m.HasExtraTime = true

	cases := []struct {
		period       model.Period
		elapsed      time.Duration
		wantMinute   int
		wantStoppage int
	}{
		{model.PeriodFirstHalf, 0, 1, 0},
		{model.PeriodFirstHalf, 59 * time.Second, 1, 0},
		{model.PeriodFirstHalf, 22*time.Minute + 10*time.Second, 23, 0},
		{model.PeriodFirstHalf, 44*time.Minute + 59*time.Second, 45, 0},
		{model.PeriodFirstHalf, 45 * time.Minute, 45, 1},
		{model.PeriodFirstHalf, 47*time.Minute + 30*time.Second, 45, 3},
		{model.PeriodHalfTime, 0, 45, 0},
		{model.PeriodSecondHalf, 0, 46, 0},
		{model.PeriodSecondHalf, 46 * time.Minute, 90, 2},
		{model.PeriodExtraFirstHalf, 0, 91, 0},
		{model.PeriodExtraSecondHalf, 14 * time.Minute, 120, 0},
		{model.PeriodExtraSecondHalf, 16 * time.Minute, 120, 2},
		{model.PeriodPenalties, 0, 120, 0},
	}
	for _, tc := range cases {
		minute, stoppage := MinuteAt(&m, tc.period, tc.elapsed)
		assert.Equal(t, tc.wantMinute, minute, "%s %s", tc.period, tc.elapsed)
		assert.Equal(t, tc.wantStoppage, stoppage, "%s %s", tc.period, tc.elapsed)
	}
}

func TestTake(t *testing.T) {
	m := newMatch()
	m, _ = mustApply(t, m, ActionStart, kickoff)
	m.HomeScore = 2

	snap := Take(&m, kickoff.Add(46*time.Minute+5*time.Second))
	assert.Equal(t, model.PeriodFirstHalf, snap.Period)
	assert.True(t, snap.Running)
	assert.Equal(t, 46*60+5, snap.ElapsedSeconds)
	assert.Equal(t, 45*60, snap.PeriodSeconds)
	assert.Equal(t, 45, snap.Minute)
	assert.Equal(t, 2, snap.Stoppage)
	assert.Equal(t, "45+2'", snap.Display)
	assert.Equal(t, 2, snap.HomeScore)

	m, _ = mustApply(t, m, ActionEndPeriod, kickoff.Add(47*time.Minute))
	assert.Equal(t, "HT", Take(&m, kickoff.Add(50*time.Minute)).Display)
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "", Display(model.MatchScheduled, model.PeriodPreMatch, 0, 0))
	assert.Equal(t, "67'", Display(model.MatchLive, model.PeriodSecondHalf, 67, 0))
	assert.Equal(t, "FT", Display(model.MatchFinished, model.PeriodFullTime, 90, 0))
	assert.Equal(t, "CANC", Display(model.MatchCancelled, model.PeriodFirstHalf, 12, 0))
	assert.Equal(t, "PEN", Display(model.MatchLive, model.PeriodPenalties, 120, 0))
}

func TestOrder(t *testing.T) {
	periods := []model.Period{
		model.PeriodPreMatch, model.PeriodFirstHalf, model.PeriodHalfTime,
		model.PeriodSecondHalf, model.PeriodExtraTimeBreak, model.PeriodExtraFirstHalf,
		model.PeriodExtraHalfTime, model.PeriodExtraSecondHalf, model.PeriodPenaltyBreak,
		model.PeriodPenalties, model.PeriodFullTime,
	}
	for i, p := range periods {
		assert.Equal(t, i, Order(p), p)
	}
	assert.Equal(t, -1, Order(model.Period("overtime")))
}
