package app

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"match-narrator/internal/model"
)

// SeedOptions shape a generated demo league.
type SeedOptions struct {
	Seed         uint64
	Teams        int
	SquadSize    int
	Year         int
	FirstKickoff time.Time
}

var clubSuffixes = []string{"United", "City", "Rovers", "Athletic", "Wanderers", "Albion", "Town", "FC"}

// squadShape is the position spread of a generated squad.
var squadShape = []model.Position{
	model.PositionGoalkeeper,
	model.PositionDefender, model.PositionDefender, model.PositionDefender, model.PositionDefender,
	model.PositionMidfielder, model.PositionMidfielder, model.PositionMidfielder,
	model.PositionForward, model.PositionForward, model.PositionForward,
	model.PositionGoalkeeper, model.PositionDefender, model.PositionMidfielder, model.PositionForward,
}

// FakeBundle generates a league with a double round robin of weekly fixtures.
// The same seed always produces the same bundle.
func FakeBundle(opts SeedOptions) *model.Bundle {
	if opts.Teams < 2 {
		opts.Teams = 2
	}
	if opts.SquadSize <= 0 {
		opts.SquadSize = 16
	}
	if opts.SquadSize > 99 {
		opts.SquadSize = 99
	}
	if opts.Year == 0 {
		opts.Year = time.Now().Year()
	}
	if opts.FirstKickoff.IsZero() {
		opts.FirstKickoff = time.Date(opts.Year, time.August, 9, 15, 0, 0, 0, time.UTC)
	}
	f := gofakeit.New(opts.Seed)

	country := f.Country()
	b := &model.Bundle{
		Competition: model.BundleCompetition{
			ExternalID: int64(900000 + f.Number(1, 99999)),
			Name:       fmt.Sprintf("%s Premier League", country),
			Country:    country,
		},
		Season: model.BundleSeason{Year: opts.Year},
	}

	names := map[string]bool{}
	playerID := int64(1)
	for i := 1; i <= opts.Teams; i++ {
		var name string
		for name == "" || names[name] {
			name = f.City() + " " + f.RandomString(clubSuffixes)
		}
		names[name] = true
		team := model.BundleTeam{
			ExternalID: int64(i),
			Name:       name,
			ShortName:  shortName(name),
			Country:    country,
		}
		b.Teams = append(b.Teams, team)

		for n := 1; n <= opts.SquadSize; n++ {
			shirt := n
			born := time.Date(opts.Year-f.Number(18, 35), time.Month(f.Number(1, 12)), f.Number(1, 28), 0, 0, 0, 0, time.UTC)
			b.Players = append(b.Players, model.BundlePlayer{
				ExternalID:     playerID,
				TeamExternalID: team.ExternalID,
				FirstName:      f.FirstName(),
				LastName:       f.LastName(),
				ShirtNumber:    &shirt,
				Position:       squadShape[(n-1)%len(squadShape)],
				BirthDate:      &born,
				Nationality:    country,
			})
			playerID++
		}
	}

	b.Fixtures = roundRobin(b.Teams, opts.FirstKickoff)
	return b
}

// roundRobin pairs every team with every other team home and away using the
// circle method, one round per week.
func roundRobin(teams []model.BundleTeam, first time.Time) []model.BundleFixture {
	ids := make([]int64, 0, len(teams)+1)
	for _, t := range teams {
		ids = append(ids, t.ExternalID)
	}
	if len(ids)%2 == 1 {
		ids = append(ids, 0)
	}
	n := len(ids)
	rounds := n - 1

	var out []model.BundleFixture
	fixtureID := int64(1)
	for leg := 0; leg < 2; leg++ {
		order := append([]int64(nil), ids...)
		for r := 0; r < rounds; r++ {
			round := leg*rounds + r
			for i := 0; i < n/2; i++ {
				home, away := order[i], order[n-1-i]
				if home == 0 || away == 0 {
					continue
				}
				if (r+leg)%2 == 1 {
					home, away = away, home
				}
				out = append(out, model.BundleFixture{
					ExternalID:         fixtureID,
					HomeTeamExternalID: home,
					AwayTeamExternalID: away,
					KickoffAt:          first.AddDate(0, 0, 7*round),
					Round:              fmt.Sprintf("Regular Season - %d", round+1),
				})
				fixtureID++
			}
			// Keep the first slot fixed and rotate the rest.
			last := order[n-1]
			copy(order[2:], order[1:n-1])
			order[1] = last
		}
	}
	return out
}

func shortName(name string) string {
	var out []rune
	for _, r := range name {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		if r >= 'A' && r <= 'Z' {
			out = append(out, r)
		}
		if len(out) == 3 {
			break
		}
	}
	return string(out)
}
