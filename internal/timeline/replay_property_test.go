package timeline

import (
	"testing"

	"pgregory.net/rapid"

	"match-narrator/internal/model"
)

// TestReplayScoreProperty checks that for any sequence of goals by starters
// the replayed score equals the number of non-deleted goals per side, with own
// goals credited to the opponent.
func TestReplayScoreProperty(t *testing.T) {
	r := DefaultRegistry()
	scorers := map[int64][]int64{home: {1, 2, 3}, away: {11, 12}}

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "goals")
		var events []model.MatchEvent
		want := Score{}
		for i := 0; i < n; i++ {
			team := rapid.SampledFrom([]int64{home, away}).Draw(t, "team")
			player := rapid.SampledFrom(scorers[team]).Draw(t, "player")
			typ := rapid.SampledFrom([]model.EventType{model.EventGoal, model.EventPenaltyGoal, model.EventOwnGoal}).Draw(t, "type")
			e := ev(int64(i+1), typ, model.PeriodFirstHalf, rapid.IntRange(1, 45).Draw(t, "minute"), by(team, player))
			if rapid.Bool().Draw(t, "deleted") {
				deleted()(&e)
			} else {
				credited := team
				if typ == model.EventOwnGoal {
					credited = testMatch().Opponent(team)
				}
				if credited == home {
					want.Home++
				} else {
					want.Away++
				}
			}
			events = append(events, e)
		}

		s, err := r.Replay(testMatch(), testRoster(), events)
		if err != nil {
			t.Fatalf("replay failed: %v", err)
		}
		if s.Score != want {
			t.Fatalf("score %+v, want %+v", s.Score, want)
		}
	})
}

// TestReplayOnFieldProperty checks that no sequence of substitutions and
// dismissals, valid or not, ever puts more players on the field than started.
func TestReplayOnFieldProperty(t *testing.T) {
	r := DefaultRegistry()
	homePlayers := []int64{1, 2, 3, 4}

	rapid.Check(t, func(t *rapid.T) {
		var events []model.MatchEvent
		steps := rapid.IntRange(1, 10).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			out := rapid.SampledFrom(homePlayers).Draw(t, "out")
			id := int64(i + 1)
			minute := i + 1
			if rapid.Bool().Draw(t, "red") {
				events = append(events, ev(id, model.EventRedCard, model.PeriodFirstHalf, minute, by(home, out)))
				continue
			}
			in := rapid.SampledFrom(homePlayers).Draw(t, "in")
			if in == out {
				continue
			}
			events = append(events, ev(id, model.EventSubstitution, model.PeriodFirstHalf, minute, by(home, out), related(in)))
		}

		// Replay the longest prefix that is valid.
		for len(events) > 0 {
			s, err := r.Replay(testMatch(), testRoster(), events)
			if err == nil {
				if s.OnField(home) > 3 {
					t.Fatalf("%d home players on the field", s.OnField(home))
				}
				return
			}
			events = events[:len(events)-1]
		}
	})
}
