package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-narrator/internal/model"
)

const (
	home int64 = 10
	away int64 = 20
)

func ptr[T any](v T) *T { return &v }

func testMatch() *model.Match {
	return &model.Match{ID: 1, HomeTeamID: home, AwayTeamID: away, Status: model.MatchLive}
}

// Players 1..3 start for home, 4 is on the home bench; 11..12 start for away,
// 13 is on the away bench.
func testRoster() []model.RosterEntry {
	entry := func(team, player int64, role model.RosterRole) model.RosterEntry {
		return model.RosterEntry{MatchID: 1, TeamID: team, PlayerID: player, Role: role}
	}
	return []model.RosterEntry{
		entry(home, 1, model.RosterStarter),
		entry(home, 2, model.RosterStarter),
		entry(home, 3, model.RosterStarter),
		entry(home, 4, model.RosterBench),
		entry(away, 11, model.RosterStarter),
		entry(away, 12, model.RosterStarter),
		entry(away, 13, model.RosterBench),
	}
}

type eventOpt func(*model.MatchEvent)

func by(team, player int64) eventOpt {
	return func(e *model.MatchEvent) {
		e.TeamID = ptr(team)
		e.PlayerID = ptr(player)
	}
}

func related(player int64) eventOpt {
	return func(e *model.MatchEvent) { e.RelatedPlayerID = ptr(player) }
}

func teamOnly(team int64) eventOpt {
	return func(e *model.MatchEvent) { e.TeamID = ptr(team) }
}

func deleted() eventOpt {
	return func(e *model.MatchEvent) { e.DeletedAt = ptr(time.Now()) }
}

func ev(id int64, typ model.EventType, period model.Period, minute int, opts ...eventOpt) model.MatchEvent {
	e := model.MatchEvent{ID: id, MatchID: 1, Type: typ, Period: period, Minute: minute}
	for _, o := range opts {
		o(&e)
	}
	return e
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, 21, r.Count())
	for _, typ := range []model.EventType{model.EventGoal, model.EventSubstitution, model.EventShootoutGoal, model.EventPeriodStart} {
		k, ok := r.Get(typ)
		require.True(t, ok, typ)
		assert.Equal(t, typ, k.Type())
		assert.NotEmpty(t, k.Description())
	}

	start, _ := r.Get(model.EventPeriodStart)
	assert.True(t, start.System())
	goal, _ := r.Get(model.EventGoal)
	assert.False(t, goal.System())

	kinds := r.List()
	for i := 1; i < len(kinds); i++ {
		assert.Less(t, kinds[i-1].Type(), kinds[i].Type())
	}

	_, err := r.Lookup("bicycle_kick")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&rule{}))

	require.NoError(t, r.Register(&rule{typ: "custom", desc: "one"}))
	require.NoError(t, r.Register(&rule{typ: "custom", desc: "two"}))
	assert.Equal(t, 1, r.Count())
	k, _ := r.Get("custom")
	assert.Equal(t, "two", k.Description())
}

func TestCheck(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name  string
		event model.MatchEvent
		err   error
	}{
		{"goal ok", ev(1, model.EventGoal, model.PeriodFirstHalf, 10, by(home, 1)), nil},
		{"goal without player", ev(1, model.EventGoal, model.PeriodFirstHalf, 10, teamOnly(home)), ErrMissingPlayer},
		{"goal without team", ev(1, model.EventGoal, model.PeriodFirstHalf, 10), ErrMissingTeam},
		{"goal at half time", ev(1, model.EventGoal, model.PeriodHalfTime, 45, by(home, 1)), ErrPeriodNotAllowed},
		{"substitution needs player in", ev(1, model.EventSubstitution, model.PeriodSecondHalf, 60, by(home, 1)), ErrMissingRelated},
		{"substitution same player", ev(1, model.EventSubstitution, model.PeriodSecondHalf, 60, by(home, 1), related(1)), ErrSamePlayer},
		{"substitution at half time", ev(1, model.EventSubstitution, model.PeriodHalfTime, 45, by(home, 1), related(4)), nil},
		{"penalty goal with assist", ev(1, model.EventPenaltyGoal, model.PeriodFirstHalf, 10, by(home, 1), related(2)), ErrUnexpectedField},
		{"comment anywhere live", ev(1, model.EventComment, model.PeriodPenaltyBreak, 120), nil},
		{"comment before kickoff", ev(1, model.EventComment, model.PeriodPreMatch, 0), ErrPeriodNotAllowed},
		{"shootout kick in play", ev(1, model.EventShootoutGoal, model.PeriodSecondHalf, 80, teamOnly(home)), ErrPeriodNotAllowed},
		{"unknown type", ev(1, "bicycle_kick", model.PeriodFirstHalf, 10), ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Check(&tt.event)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestReplay_ScoreAndLineup(t *testing.T) {
	r := DefaultRegistry()
	events := []model.MatchEvent{
		ev(1, model.EventPeriodStart, model.PeriodFirstHalf, 1),
		ev(2, model.EventGoal, model.PeriodFirstHalf, 12, by(home, 1), related(2)),
		ev(3, model.EventOwnGoal, model.PeriodFirstHalf, 30, by(home, 3)),
		ev(4, model.EventYellowCard, model.PeriodFirstHalf, 33, by(away, 11)),
		ev(5, model.EventSubstitution, model.PeriodHalfTime, 45, by(home, 3), related(4)),
		ev(6, model.EventPenaltyGoal, model.PeriodSecondHalf, 50, by(home, 4)),
		ev(7, model.EventSecondYellow, model.PeriodSecondHalf, 70, by(away, 11)),
		ev(8, model.EventGoal, model.PeriodSecondHalf, 88, by(away, 12), deleted()),
		ev(9, model.EventCorner, model.PeriodSecondHalf, 89, teamOnly(away)),
	}

	s, err := r.Replay(testMatch(), testRoster(), events)
	require.NoError(t, err)

	assert.Equal(t, Score{Home: 2, Away: 1}, s.Score)

	p3, _ := s.Player(3)
	assert.Equal(t, StatusSubstitutedOff, p3.Status)
	p4, _ := s.Player(4)
	assert.Equal(t, StatusOnField, p4.Status)
	p11, _ := s.Player(11)
	assert.Equal(t, StatusSentOff, p11.Status)
	assert.Equal(t, 2, p11.Yellows)

	assert.Equal(t, 3, s.OnField(home))
	assert.Equal(t, 1, s.OnField(away))
	assert.Len(t, s.Players(away), 3)
}

func TestReplay_OrdersByMatchTime(t *testing.T) {
	r := DefaultRegistry()
	// The substitution was narrated late (higher id) but happened first, so
	// the goal by the substitute is valid.
	events := []model.MatchEvent{
		ev(1, model.EventGoal, model.PeriodSecondHalf, 70, by(home, 4)),
		ev(2, model.EventSubstitution, model.PeriodSecondHalf, 60, by(home, 1), related(4)),
	}

	s, err := r.Replay(testMatch(), testRoster(), events)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Score.Home)
	assert.Equal(t, int64(1), events[0].ID, "input slice must not be reordered")
}

func TestReplay_Rejects(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name    string
		events  []model.MatchEvent
		eventID int64
		err     error
	}{
		{
			name:    "goal by substitute before coming on",
			events:  []model.MatchEvent{ev(1, model.EventGoal, model.PeriodFirstHalf, 10, by(home, 4))},
			eventID: 1,
			err:     ErrPlayerNotOnField,
		},
		{
			name:    "player of the other team",
			events:  []model.MatchEvent{ev(1, model.EventGoal, model.PeriodFirstHalf, 10, by(away, 1))},
			eventID: 1,
			err:     ErrWrongTeam,
		},
		{
			name:    "player not in roster",
			events:  []model.MatchEvent{ev(1, model.EventShot, model.PeriodFirstHalf, 10, by(home, 99))},
			eventID: 1,
			err:     ErrPlayerNotInRoster,
		},
		{
			name:    "team not in match",
			events:  []model.MatchEvent{ev(1, model.EventCorner, model.PeriodFirstHalf, 10, teamOnly(30))},
			eventID: 1,
			err:     ErrTeamNotInMatch,
		},
		{
			name: "sent-off player scores",
			events: []model.MatchEvent{
				ev(1, model.EventRedCard, model.PeriodFirstHalf, 10, by(home, 1)),
				ev(2, model.EventGoal, model.PeriodFirstHalf, 20, by(home, 1)),
			},
			eventID: 2,
			err:     ErrPlayerSentOff,
		},
		{
			name: "substitute already used",
			events: []model.MatchEvent{
				ev(1, model.EventSubstitution, model.PeriodFirstHalf, 10, by(home, 1), related(4)),
				ev(2, model.EventSubstitution, model.PeriodFirstHalf, 20, by(home, 2), related(4)),
			},
			eventID: 2,
			err:     ErrPlayerNotOnBench,
		},
		{
			name: "substituted player cannot return",
			events: []model.MatchEvent{
				ev(1, model.EventSubstitution, model.PeriodFirstHalf, 10, by(home, 1), related(4)),
				ev(2, model.EventSubstitution, model.PeriodFirstHalf, 20, by(home, 4), related(1)),
			},
			eventID: 2,
			err:     ErrPlayerNotOnBench,
		},
		{
			name: "second yellow without a first",
			events: []model.MatchEvent{
				ev(1, model.EventSecondYellow, model.PeriodFirstHalf, 10, by(home, 1)),
			},
			eventID: 1,
			err:     ErrNotBooked,
		},
		{
			name: "two plain yellows",
			events: []model.MatchEvent{
				ev(1, model.EventYellowCard, model.PeriodFirstHalf, 10, by(home, 1)),
				ev(2, model.EventYellowCard, model.PeriodFirstHalf, 20, by(home, 1)),
			},
			eventID: 2,
			err:     ErrAlreadyBooked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Replay(testMatch(), testRoster(), tt.events)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)

			var re *ReplayError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.eventID, re.EventID)
		})
	}
}

func TestReplay_BenchPlayerCanBeBooked(t *testing.T) {
	r := DefaultRegistry()
	events := []model.MatchEvent{
		ev(1, model.EventYellowCard, model.PeriodHalfTime, 45, by(home, 4)),
		ev(2, model.EventRedCard, model.PeriodSecondHalf, 60, by(away, 13)),
	}

	s, err := r.Replay(testMatch(), testRoster(), events)
	require.NoError(t, err)
	p13, _ := s.Player(13)
	assert.Equal(t, StatusSentOff, p13.Status)
	assert.Equal(t, 2, s.OnField(away))
}

func TestReplay_Shootout(t *testing.T) {
	r := DefaultRegistry()
	events := []model.MatchEvent{
		ev(1, model.EventGoal, model.PeriodFirstHalf, 10, by(home, 1)),
		ev(2, model.EventGoal, model.PeriodSecondHalf, 80, by(away, 11)),
		ev(3, model.EventShootoutGoal, model.PeriodPenalties, 120, by(home, 2)),
		ev(4, model.EventShootoutMiss, model.PeriodPenalties, 120, by(away, 12)),
		ev(5, model.EventShootoutGoal, model.PeriodPenalties, 120, teamOnly(home)),
		ev(6, model.EventShootoutGoal, model.PeriodPenalties, 120, teamOnly(away)),
	}

	s, err := r.Replay(testMatch(), testRoster(), events)
	require.NoError(t, err)
	assert.Equal(t, Score{Home: 1, Away: 1, HomeShootout: 2, AwayShootout: 1}, s.Score)
}

func TestSort(t *testing.T) {
	events := []model.MatchEvent{
		ev(5, model.EventComment, model.PeriodSecondHalf, 46),
		ev(4, model.EventComment, model.PeriodFirstHalf, 45),
		ev(3, model.EventComment, model.PeriodHalfTime, 45),
		ev(2, model.EventComment, model.PeriodFirstHalf, 45),
		ev(1, model.EventComment, model.PeriodFirstHalf, 12),
	}
	events[1].Stoppage = 2

	Sort(events)

	var ids []int64
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{1, 2, 4, 3, 5}, ids)
}
