package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"match-narrator/internal/config"
	"match-narrator/internal/model"
	"match-narrator/internal/repository/memstore"
	"match-narrator/internal/service"
)

func TestFakeBundleIsDeterministic(t *testing.T) {
	opts := SeedOptions{Seed: 42, Teams: 4, SquadSize: 14, Year: 2025}
	a, b := FakeBundle(opts), FakeBundle(opts)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed produced different bundles (-a +b):\n%s", diff)
	}
	require.NoError(t, service.ValidateBundle(a))

	assert.Len(t, a.Teams, 4)
	assert.Len(t, a.Players, 4*14)
	assert.Len(t, a.Fixtures, 4*3)
}

func TestRoundRobinPairsEveryTeamTwice(t *testing.T) {
	for _, teams := range []int{2, 5, 6} {
		b := FakeBundle(SeedOptions{Seed: uint64(teams), Teams: teams, SquadSize: 1, Year: 2025})

		pairs := map[[2]int64]int{}
		perRound := map[string]map[int64]bool{}
		for _, f := range b.Fixtures {
			pairs[[2]int64{f.HomeTeamExternalID, f.AwayTeamExternalID}]++
			if perRound[f.Round] == nil {
				perRound[f.Round] = map[int64]bool{}
			}
			for _, id := range []int64{f.HomeTeamExternalID, f.AwayTeamExternalID} {
				assert.False(t, perRound[f.Round][id], "team %d plays twice in %s", id, f.Round)
				perRound[f.Round][id] = true
			}
		}
		assert.Len(t, pairs, teams*(teams-1), "%d teams", teams)
		for pair, n := range pairs {
			assert.Equal(t, 1, n, "fixture %v", pair)
		}
	}
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "NEW", shortName("new York City"))
	assert.Equal(t, "SAO", shortName("Sao Paulo"))
	assert.Equal(t, "FC", shortName("F.C."))
}

func TestSeedImportsIntoServices(t *testing.T) {
	cfg := &config.Config{
		Auth:  config.AuthConfig{JWTSecret: "seed-secret", TokenTTL: time.Hour},
		Match: config.MatchConfig{PeriodMinutes: 45, ExtraPeriodMinutes: 15, MaxStarters: 11},
	}
	svc := Build(cfg, MemoryStores(memstore.New()), nil, Options{BcryptCost: bcrypt.MinCost})
	ctx := context.Background()

	b := FakeBundle(SeedOptions{Seed: 7, Teams: 3, SquadSize: 12, Year: 2025})
	run, err := svc.Import.ImportBundle(ctx, service.System, model.ImportSourceFile, b)
	require.NoError(t, err)
	assert.Equal(t, model.ImportCounts{Competitions: 1, Seasons: 1, Teams: 3, Players: 36, Matches: 6}, run.Counts)

	matches, err := svc.Matches.List(ctx, model.MatchFilter{})
	require.NoError(t, err)
	assert.Len(t, matches, 6)

	// Nothing is bootstrapped without a password.
	require.NoError(t, Bootstrap(ctx, cfg, svc))
	users, err := svc.Auth.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFetcherNeedsKey(t *testing.T) {
	assert.Nil(t, Fetcher(config.FootballAPIConfig{}))
	assert.NotNil(t, Fetcher(config.FootballAPIConfig{APIKey: "k", BaseURL: "http://localhost", RequestsPerMinute: 10}))
}
