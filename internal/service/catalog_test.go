package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-narrator/internal/model"
	"match-narrator/internal/repository"
)

func TestCatalogService_CompetitionsAndSeasons(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateCompetition(f.ctx, f.admin, model.Competition{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	comp, err := f.catalog.CreateCompetition(f.ctx, f.admin, model.Competition{Name: " Northern League ", Country: "England"})
	require.NoError(t, err)
	assert.Equal(t, "Northern League", comp.Name)

	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, -1, 0)
	_, err = f.catalog.CreateSeason(f.ctx, f.admin, model.Season{CompetitionID: comp.ID, Name: "2025/26", Year: 2025, StartsOn: &start, EndsOn: &end})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.catalog.CreateSeason(f.ctx, f.admin, model.Season{CompetitionID: 9999, Name: "2025/26", Year: 2025})
	assert.ErrorIs(t, err, repository.ErrCompetitionNotFound)

	season, err := f.catalog.CreateSeason(f.ctx, f.admin, model.Season{CompetitionID: comp.ID, Name: "2025/26", Year: 2025})
	require.NoError(t, err)
	_, err = f.catalog.CreateSeason(f.ctx, f.admin, model.Season{CompetitionID: comp.ID, Name: "again", Year: 2025})
	assert.ErrorIs(t, err, repository.ErrConflict)

	season.Name = "2025-26"
	season.CompetitionID = 9999
	updated, err := f.catalog.UpdateSeason(f.ctx, f.admin, *season)
	require.NoError(t, err)
	assert.Equal(t, "2025-26", updated.Name)
	assert.Equal(t, comp.ID, updated.CompetitionID, "competition cannot move")

	require.NoError(t, f.catalog.AddSeasonTeam(f.ctx, f.admin, season.ID, f.home.ID))
	require.NoError(t, f.catalog.AddSeasonTeam(f.ctx, f.admin, season.ID, f.away.ID))
	assert.ErrorIs(t, f.catalog.AddSeasonTeam(f.ctx, f.admin, season.ID, 9999), repository.ErrTeamNotFound)
	teams, err := f.catalog.ListSeasonTeams(f.ctx, season.ID)
	require.NoError(t, err)
	assert.Len(t, teams, 2)
	require.NoError(t, f.catalog.RemoveSeasonTeam(f.ctx, f.admin, season.ID, f.away.ID))

	err = f.catalog.DeleteCompetition(f.ctx, f.admin, comp.ID)
	assert.ErrorIs(t, err, repository.ErrInUse)
	require.NoError(t, f.catalog.DeleteSeason(f.ctx, f.admin, season.ID))
	require.NoError(t, f.catalog.DeleteCompetition(f.ctx, f.admin, comp.ID))
	_, err = f.catalog.GetCompetition(f.ctx, comp.ID)
	assert.ErrorIs(t, err, repository.ErrCompetitionNotFound)
}

func TestCatalogService_TeamsAndPlayers(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateTeam(f.ctx, f.admin, model.Team{Name: "Longname", ShortName: "WAY-TOO-LONG-SHORT-NAME"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Teams with matches cannot be removed.
	assert.ErrorIs(t, f.catalog.DeleteTeam(f.ctx, f.admin, f.home.ID), repository.ErrInUse)

	squad, err := f.catalog.ListPlayers(f.ctx, f.home.ID)
	require.NoError(t, err)
	assert.Len(t, squad, 13)

	_, err = f.catalog.CreatePlayer(f.ctx, f.admin, model.Player{LastName: "Nobody", TeamID: ptr(int64(9999))})
	assert.ErrorIs(t, err, repository.ErrTeamNotFound)
	_, err = f.catalog.CreatePlayer(f.ctx, f.admin, model.Player{LastName: "Bad", ShirtNumber: ptr(0)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.catalog.CreatePlayer(f.ctx, f.admin, model.Player{LastName: "Bad", Position: "sweeper"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Players on a match roster stay.
	f.setRosters(t)
	p := *f.homeSquad[12]
	p.TeamID = ptr(f.away.ID)
	moved, err := f.catalog.UpdatePlayer(f.ctx, f.admin, p)
	require.NoError(t, err)
	assert.Equal(t, f.away.ID, *moved.TeamID)
	assert.ErrorIs(t, f.catalog.DeletePlayer(f.ctx, f.admin, f.homeSquad[0].ID), repository.ErrInUse)

	loner, err := f.catalog.CreatePlayer(f.ctx, f.admin, model.Player{FirstName: "Solo", LastName: "Player"})
	require.NoError(t, err)
	require.NoError(t, f.catalog.DeletePlayer(f.ctx, f.admin, loner.ID))

	entries, err := f.audit.List(f.ctx, model.AuditFilter{Entity: model.EntityPlayer, EntityID: loner.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "player.delete", entries[0].Action)
	assert.Equal(t, f.admin.UserID, *entries[0].ActorID)
}
