package matchclock

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"match-narrator/internal/model"
)

// TestClockInvariantsProperty drives the state machine with random action
// sequences and checks the invariants the rest of the system relies on:
//   - a match is live exactly while it is between kickoff and full time
//   - the clock only runs during playing periods
//   - elapsed time never goes backwards inside a period
//   - rejected actions leave the match untouched
func TestClockInvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newMatch()
		m.HasExtraTime = rapid.Bool().Draw(t, "extraTime")
		m.HasPenalties = rapid.Bool().Draw(t, "penalties")
		m.PeriodMinutes = rapid.IntRange(10, 45).Draw(t, "periodMinutes")

		now := kickoff
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			now = now.Add(time.Duration(rapid.IntRange(0, 600).Draw(t, "seconds")) * time.Second)
			action := rapid.SampledFrom(Actions).Draw(t, "action")
			if rapid.Bool().Draw(t, "scoreChange") {
				m.HomeScore += rapid.IntRange(0, 1).Draw(t, "home")
				m.AwayScore += rapid.IntRange(0, 1).Draw(t, "away")
			}

			before := m
			elapsedBefore := Elapsed(&m, now)
			next, tr, err := Apply(m, action, now)
			if err != nil {
				if next != before {
					t.Fatalf("rejected %s changed the match", action)
				}
				continue
			}

			if tr.From != before.Period || tr.To != next.Period {
				t.Fatalf("transition %v does not match periods %s -> %s", tr, before.Period, next.Period)
			}
			if next.ClockRunning && !next.Period.Playing() {
				t.Fatalf("clock running in %s", next.Period)
			}
			if next.Status == model.MatchLive {
				if next.Period == model.PeriodPreMatch || next.Period == model.PeriodFullTime {
					t.Fatalf("live match in %s", next.Period)
				}
			}
			if next.Period == model.PeriodFullTime && next.Status != model.MatchFinished {
				t.Fatalf("full time with status %s", next.Status)
			}
			if Order(next.Period) < Order(before.Period) {
				t.Fatalf("period went backwards: %s -> %s", before.Period, next.Period)
			}
			if next.Period == before.Period && next.Period.Playing() {
				if Elapsed(&next, now) < elapsedBefore {
					t.Fatalf("elapsed went backwards after %s", action)
				}
			}
			if tr.PeriodEnded && tr.EndedElapsedMs != elapsedBefore.Milliseconds() {
				t.Fatalf("ended period length %d, expected %d", tr.EndedElapsedMs, elapsedBefore.Milliseconds())
			}
			m = next
		}
	})
}

// TestMinuteMonotonicProperty checks that the displayed minute never
// decreases as time passes within a period, and that regular minutes stay
// inside the period's window.
func TestMinuteMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newMatch()
		m.HasExtraTime = true
		period := rapid.SampledFrom([]model.Period{
			model.PeriodFirstHalf, model.PeriodSecondHalf,
			model.PeriodExtraFirstHalf, model.PeriodExtraSecondHalf,
		}).Draw(t, "period")

		a := time.Duration(rapid.Int64Range(0, int64(2*time.Hour)).Draw(t, "a"))
		b := time.Duration(rapid.Int64Range(0, int64(2*time.Hour)).Draw(t, "b"))
		if a > b {
			a, b = b, a
		}

		minA, stopA := MinuteAt(&m, period, a)
		minB, stopB := MinuteAt(&m, period, b)
		if minA*1000+stopA > minB*1000+stopB {
			t.Fatalf("minute decreased: %d+%d at %s, %d+%d at %s", minA, stopA, a, minB, stopB, b)
		}

		offset, length := bounds(&m, period)
		if minA <= offset || minA > offset+length {
			t.Fatalf("minute %d outside (%d, %d]", minA, offset, offset+length)
		}
		if stopA > 0 && minA != offset+length {
			t.Fatalf("stoppage reported before the period's last minute: %d+%d", minA, stopA)
		}
	})
}
