package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-narrator/internal/matchclock"
	"match-narrator/internal/model"
	"match-narrator/internal/repository"
)

func TestMatchService_Create(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, model.MatchScheduled, f.match.Status)
	assert.Equal(t, model.PeriodPreMatch, f.match.Period)
	assert.Equal(t, 45, f.match.PeriodMinutes)
	assert.Equal(t, 15, f.match.ExtraPeriodMinutes)

	tests := []struct {
		name    string
		match   model.Match
		wantErr error
	}{
		{"same team", model.Match{HomeTeamID: f.home.ID, AwayTeamID: f.home.ID, KickoffAt: f.clock.Now()}, ErrInvalidInput},
		{"missing kickoff", model.Match{HomeTeamID: f.home.ID, AwayTeamID: f.away.ID}, ErrInvalidInput},
		{"unknown team", model.Match{HomeTeamID: f.home.ID, AwayTeamID: 9999, KickoffAt: f.clock.Now()}, repository.ErrTeamNotFound},
		{"unknown season", model.Match{HomeTeamID: f.home.ID, AwayTeamID: f.away.ID, KickoffAt: f.clock.Now(), SeasonID: ptr(int64(9999))}, repository.ErrSeasonNotFound},
		{"bad period length", model.Match{HomeTeamID: f.home.ID, AwayTeamID: f.away.ID, KickoffAt: f.clock.Now(), PeriodMinutes: -5}, ErrInvalidInput},
		{"unknown narrator", model.Match{HomeTeamID: f.home.ID, AwayTeamID: f.away.ID, KickoffAt: f.clock.Now(), NarratorID: ptr(int64(9999))}, repository.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.matches.Create(f.ctx, f.admin, tt.match)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMatchService_UpdateAndDeleteOnlyWhileScheduled(t *testing.T) {
	f := newFixture(t)

	upd := *f.match
	upd.Venue = "Riverside Park"
	upd.PeriodMinutes = 40
	out, err := f.matches.Update(f.ctx, f.admin, upd)
	require.NoError(t, err)
	assert.Equal(t, "Riverside Park", out.Venue)
	assert.Equal(t, 40, out.PeriodMinutes)
	assert.Greater(t, out.Version, f.match.Version)

	// The version read before the first update is now stale.
	_, err = f.matches.Update(f.ctx, f.admin, upd)
	assert.ErrorIs(t, err, repository.ErrStale)

	f.match = out
	f.kickoff(t)

	upd = *f.current(t)
	upd.Venue = "Elsewhere"
	_, err = f.matches.Update(f.ctx, f.admin, upd)
	assert.ErrorIs(t, err, repository.ErrNotEditable)

	err = f.matches.Delete(f.ctx, f.admin, f.match.ID)
	assert.ErrorIs(t, err, repository.ErrNotEditable)
}

func TestMatchService_ClockLifecycle(t *testing.T) {
	f := newFixture(t)
	f.kickoff(t)

	snap, err := f.matches.Clock(f.ctx, f.match.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PeriodFirstHalf, snap.Period)
	assert.True(t, snap.Running)
	assert.Equal(t, "1'", snap.Display)

	f.clock.Advance(46*time.Minute + 30*time.Second)
	snap, err = f.matches.Clock(f.ctx, f.match.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, snap.Minute)
	assert.Equal(t, 2, snap.Stoppage)
	assert.Equal(t, "45+2'", snap.Display)

	res := f.act(t, matchclock.ActionEndPeriod)
	assert.Equal(t, model.PeriodHalfTime, res.Match.Period)
	assert.False(t, res.Match.ClockRunning)
	assert.Equal(t, "HT", res.Snapshot.Display)

	f.clock.Advance(15 * time.Minute)
	res = f.act(t, matchclock.ActionStartPeriod)
	assert.Equal(t, model.PeriodSecondHalf, res.Match.Period)
	assert.Equal(t, 46, res.Snapshot.Minute)

	f.clock.Advance(10 * time.Minute)
	f.act(t, matchclock.ActionPause)
	f.clock.Advance(5 * time.Minute)
	res = f.act(t, matchclock.ActionResume)
	assert.Equal(t, 56, res.Snapshot.Minute)

	f.clock.Advance(40 * time.Minute)
	res = f.act(t, matchclock.ActionEndPeriod)
	assert.Equal(t, model.PeriodFullTime, res.Match.Period)
	assert.Equal(t, model.MatchFinished, res.Match.Status)

	periods, err := f.matches.Periods(f.ctx, f.match.ID)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, model.PeriodFirstHalf, periods[0].Period)
	require.NotNil(t, periods[0].EndedAt)
	assert.Equal(t, (46*time.Minute + 30*time.Second).Milliseconds(), periods[0].ElapsedMs)
	assert.Equal(t, (50 * time.Minute).Milliseconds(), periods[1].ElapsedMs)

	events, err := f.events.List(f.ctx, f.match.ID, false)
	require.NoError(t, err)
	var got []string
	for _, e := range events {
		assert.True(t, e.System)
		got = append(got, string(e.Type)+"@"+matchclock.FormatMinute(e.Minute, e.Stoppage))
	}
	assert.Equal(t, []string{
		"period_start@1'",
		"period_end@45+2'",
		"period_start@46'",
		"period_end@90+6'",
	}, got)

	entries, err := f.audit.List(f.ctx, model.AuditFilter{Entity: model.EntityMatch, EntityID: f.match.ID})
	require.NoError(t, err)
	var actions []string
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, "clock.start")
	assert.Contains(t, actions, "clock.end_period")
}

func TestMatchService_ApplyActionRejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.matches.ApplyAction(f.ctx, f.narrator, f.match.ID, matchclock.ActionPause, 0)
	assert.ErrorIs(t, err, matchclock.ErrInvalidTransition)

	_, err = f.matches.ApplyAction(f.ctx, f.outsider, f.match.ID, matchclock.ActionStart, 0)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.matches.ApplyAction(f.ctx, f.narrator, f.match.ID, matchclock.ActionStart, f.match.Version+1)
	assert.ErrorIs(t, err, repository.ErrStale)

	_, err = f.matches.ApplyAction(f.ctx, f.narrator, 9999, matchclock.ActionStart, 0)
	assert.ErrorIs(t, err, repository.ErrMatchNotFound)

	// Admins may run any match, with the version they read.
	res, err := f.matches.ApplyAction(f.ctx, f.admin, f.match.ID, matchclock.ActionStart, f.match.Version)
	require.NoError(t, err)
	assert.Equal(t, model.MatchLive, res.Match.Status)

	_, err = f.matches.ApplyAction(f.ctx, f.admin, f.match.ID, matchclock.ActionStart, 0)
	assert.ErrorIs(t, err, matchclock.ErrInvalidTransition)
}

func TestMatchService_CancelAndFinish(t *testing.T) {
	f := newFixture(t)
	f.kickoff(t)

	f.clock.Advance(20 * time.Minute)
	res := f.act(t, matchclock.ActionFinish)
	assert.Equal(t, model.MatchFinished, res.Match.Status)
	assert.True(t, res.Transition.PeriodEnded)

	_, err := f.matches.ApplyAction(f.ctx, f.narrator, f.match.ID, matchclock.ActionCancel, 0)
	assert.ErrorIs(t, err, matchclock.ErrInvalidTransition)

	g := newFixture(t)
	res, err = g.matches.ApplyAction(g.ctx, g.admin, g.match.ID, matchclock.ActionCancel, 0)
	require.NoError(t, err)
	assert.Equal(t, model.MatchCancelled, res.Match.Status)
	assert.Equal(t, "CANC", res.Snapshot.Display)
}

func TestMatchService_AssignNarrator(t *testing.T) {
	f := newFixture(t)

	out, err := f.matches.AssignNarrator(f.ctx, f.admin, f.match.ID, ptr(f.outsider.UserID))
	require.NoError(t, err)
	require.NotNil(t, out.NarratorID)
	assert.Equal(t, f.outsider.UserID, *out.NarratorID)

	_, err = f.matches.ApplyAction(f.ctx, f.narrator, f.match.ID, matchclock.ActionStart, 0)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.matches.AssignNarrator(f.ctx, f.admin, f.match.ID, ptr(int64(9999)))
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	out, err = f.matches.AssignNarrator(f.ctx, f.admin, f.match.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, out.NarratorID)

	list, err := f.matches.List(f.ctx, model.MatchFilter{NarratorID: f.outsider.UserID})
	require.NoError(t, err)
	assert.Empty(t, list)
}
