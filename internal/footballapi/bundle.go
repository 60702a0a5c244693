package footballapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"match-narrator/internal/model"
)

var positions = map[string]model.Position{
	"Goalkeeper": model.PositionGoalkeeper,
	"Defender":   model.PositionDefender,
	"Midfielder": model.PositionMidfielder,
	"Attacker":   model.PositionForward,
}

// splitName splits "First Rest of Name" at the first space.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	first, last, ok := strings.Cut(name, " ")
	if !ok {
		return "", name
	}
	return first, strings.TrimSpace(last)
}

func parseDay(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}

// shirt drops numbers a squad sheet cannot carry.
func shirt(n *int) *int {
	if n == nil || *n < 1 || *n > 99 {
		return nil
	}
	return n
}

// SeasonName formats a season starting in year, e.g. "2024/25".
func SeasonName(year int) string {
	return fmt.Sprintf("%d/%02d", year, (year+1)%100)
}

// FetchBundle fetches a league season with teams, squads and fixtures.
func (c *Client) FetchBundle(ctx context.Context, league int64, season int) (*model.Bundle, error) {
	lg, err := c.GetLeague(ctx, league)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch league %d: %w", league, err)
	}

	b := &model.Bundle{
		Competition: model.BundleCompetition{
			ExternalID: lg.League.ID,
			Name:       lg.League.Name,
			Country:    lg.Country.Name,
		},
		Season: model.BundleSeason{
			ExternalID: fmt.Sprintf("%d-%d", lg.League.ID, season),
			Name:       SeasonName(season),
			Year:       season,
		},
	}
	for _, s := range lg.Seasons {
		if s.Year == season {
			b.Season.StartsOn, b.Season.EndsOn = parseDay(s.Start), parseDay(s.End)
		}
	}

	teams, err := c.GetTeams(ctx, league, season)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}
	seen := map[int64]int{}
	for _, t := range teams {
		b.Teams = append(b.Teams, model.BundleTeam{
			ExternalID: t.Team.ID,
			Name:       t.Team.Name,
			ShortName:  t.Team.Code,
			Country:    t.Team.Country,
		})

		players, err := c.GetSquad(ctx, t.Team.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch squad of team %d: %w", t.Team.ID, err)
		}
		for _, p := range players {
			first, last := splitName(p.Name)
			bp := model.BundlePlayer{
				ExternalID:     p.ID,
				TeamExternalID: t.Team.ID,
				FirstName:      first,
				LastName:       last,
				ShirtNumber:    shirt(p.Number),
				Position:       positions[p.Position],
			}
			// Squads overlap during transfer windows; the last club listed wins.
			if i, ok := seen[p.ID]; ok {
				log.Warn().
					Int64("player_id", p.ID).
					Int64("previous_team", b.Players[i].TeamExternalID).
					Int64("team", t.Team.ID).
					Msg("Player listed in two squads")
				b.Players[i] = bp
				continue
			}
			seen[p.ID] = len(b.Players)
			b.Players = append(b.Players, bp)
		}
	}

	fixtures, err := c.GetFixtures(ctx, league, season)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixtures: %w", err)
	}
	for _, f := range fixtures {
		b.Fixtures = append(b.Fixtures, model.BundleFixture{
			ExternalID:         f.Fixture.ID,
			HomeTeamExternalID: f.Teams.Home.ID,
			AwayTeamExternalID: f.Teams.Away.ID,
			KickoffAt:          f.Fixture.Date.UTC(),
			Venue:              f.Fixture.Venue.Name,
			Round:              f.League.Round,
		})
	}

	log.Info().
		Int64("league", league).
		Int("season", season).
		Int("teams", len(b.Teams)).
		Int("players", len(b.Players)).
		Int("fixtures", len(b.Fixtures)).
		Msg("Fetched football API bundle")
	return b, nil
}
