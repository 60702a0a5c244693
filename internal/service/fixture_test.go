package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"match-narrator/internal/config"
	"match-narrator/internal/matchclock"
	"match-narrator/internal/model"
	"match-narrator/internal/pkg/lock"
	"match-narrator/internal/repository/memstore"
	"match-narrator/internal/timeline"
)

func ptr[T any](v T) *T { return &v }

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func storesOf(s *memstore.Store) Stores {
	return Stores{
		Competitions: s.Competitions,
		Seasons:      s.Seasons,
		Teams:        s.Teams,
		Players:      s.Players,
		Matches:      s.Matches,
		Roster:       s.Roster,
		Events:       s.Events,
		Audit:        s.Audit,
		Users:        s.Users,
		ImportRuns:   s.ImportRuns,
	}
}

var testMatchConfig = config.MatchConfig{PeriodMinutes: 45, ExtraPeriodMinutes: 15, MaxStarters: 11}

// fixture is a scheduled match between two teams of 13 players each, with a
// narrator assigned.
type fixture struct {
	ctx    context.Context
	store  *memstore.Store
	stores Stores
	clock  *fakeClock

	audit   *AuditService
	catalog *CatalogService
	matches *MatchService
	roster  *RosterService
	events  *EventService
	export  *ExportService

	admin, narrator, outsider Actor

	home, away *model.Team
	homeSquad  []*model.Player
	awaySquad  []*model.Player
	match      *model.Match
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	stores := storesOf(store)
	clock := &fakeClock{t: time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC)}
	locks := lock.NewKeyLock()
	registry := timeline.DefaultRegistry()

	f := &fixture{ctx: ctx, store: store, stores: stores, clock: clock}
	f.audit = NewAuditService(stores.Audit)
	f.catalog = NewCatalogService(stores, f.audit)
	f.matches = NewMatchService(stores, f.audit, locks, testMatchConfig, clock.Now)
	f.roster = NewRosterService(stores, registry, f.audit, locks, testMatchConfig)
	f.events = NewEventService(stores, registry, f.audit, locks, clock.Now)
	f.export = NewExportService(stores, f.roster, clock.Now)

	admin, err := store.Users.Create(ctx, "admin", "x", model.RoleAdmin)
	require.NoError(t, err)
	narrator, err := store.Users.Create(ctx, "narrator", "x", model.RoleNarrator)
	require.NoError(t, err)
	outsider, err := store.Users.Create(ctx, "other", "x", model.RoleNarrator)
	require.NoError(t, err)
	f.admin = Actor{UserID: admin.ID, Username: admin.Username, Role: admin.Role}
	f.narrator = Actor{UserID: narrator.ID, Username: narrator.Username, Role: narrator.Role}
	f.outsider = Actor{UserID: outsider.ID, Username: outsider.Username, Role: outsider.Role}

	f.home, err = f.catalog.CreateTeam(ctx, f.admin, model.Team{Name: "Northside", ShortName: "NOR"})
	require.NoError(t, err)
	f.away, err = f.catalog.CreateTeam(ctx, f.admin, model.Team{Name: "Southend", ShortName: "SOU"})
	require.NoError(t, err)
	f.homeSquad = f.squad(t, f.home)
	f.awaySquad = f.squad(t, f.away)

	f.match, err = f.matches.Create(ctx, f.admin, model.Match{
		HomeTeamID: f.home.ID,
		AwayTeamID: f.away.ID,
		KickoffAt:  clock.Now(),
		NarratorID: ptr(narrator.ID),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) squad(t *testing.T, team *model.Team) []*model.Player {
	t.Helper()
	positions := []model.Position{model.PositionGoalkeeper, model.PositionDefender, model.PositionMidfielder, model.PositionForward}
	var out []*model.Player
	for i := 1; i <= 13; i++ {
		p, err := f.catalog.CreatePlayer(f.ctx, f.admin, model.Player{
			TeamID:      ptr(team.ID),
			FirstName:   team.ShortName,
			LastName:    fmt.Sprintf("Player%d", i),
			ShirtNumber: ptr(i),
			Position:    positions[i%len(positions)],
		})
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

// lineup returns 11 starters and 2 substitutes for squad.
func lineup(squad []*model.Player) []model.RosterEntry {
	var out []model.RosterEntry
	for i, p := range squad {
		role := model.RosterStarter
		if i >= 11 {
			role = model.RosterBench
		}
		out = append(out, model.RosterEntry{PlayerID: p.ID, Role: role, Captain: i == 0})
	}
	return out
}

// setRosters fills both rosters.
func (f *fixture) setRosters(t *testing.T) {
	t.Helper()
	_, err := f.roster.SetTeam(f.ctx, f.narrator, f.match.ID, f.home.ID, lineup(f.homeSquad))
	require.NoError(t, err)
	_, err = f.roster.SetTeam(f.ctx, f.narrator, f.match.ID, f.away.ID, lineup(f.awaySquad))
	require.NoError(t, err)
}

// kickoff sets the rosters and starts the first half.
func (f *fixture) kickoff(t *testing.T) {
	t.Helper()
	f.setRosters(t)
	f.act(t, matchclock.ActionStart)
}

func (f *fixture) act(t *testing.T, a matchclock.Action) *ClockResult {
	t.Helper()
	res, err := f.matches.ApplyAction(f.ctx, f.narrator, f.match.ID, a, 0)
	require.NoError(t, err)
	return res
}

func (f *fixture) record(t *testing.T, in EventInput) *model.MatchEvent {
	t.Helper()
	e, created, err := f.events.Record(f.ctx, f.narrator, f.match.ID, in)
	require.NoError(t, err)
	require.True(t, created)
	return e
}

func (f *fixture) current(t *testing.T) *model.Match {
	t.Helper()
	m, err := f.matches.Get(f.ctx, f.match.ID)
	require.NoError(t, err)
	return m
}
