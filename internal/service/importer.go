package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"match-narrator/internal/config"
	"match-narrator/internal/model"
)

// BundleFetcher loads a league season from a remote provider.
type BundleFetcher interface {
	FetchBundle(ctx context.Context, league int64, season int) (*model.Bundle, error)
}

// ImportService loads bundles into the catalog. Every write is an upsert keyed
// by external id, so running the same bundle twice changes nothing.
type ImportService struct {
	competitions CompetitionStore
	seasons      SeasonStore
	teams        TeamStore
	players      PlayerStore
	matches      MatchStore
	runs         ImportRunStore
	fetcher      BundleFetcher
	audit        *AuditService
	cfg          config.MatchConfig
	now          Clock
}

// NewImportService creates a new ImportService instance. fetcher may be nil
// when no provider is configured.
func NewImportService(stores Stores, fetcher BundleFetcher, audit *AuditService, cfg config.MatchConfig, now Clock) *ImportService {
	if now == nil {
		now = time.Now
	}
	return &ImportService{
		competitions: stores.Competitions,
		seasons:      stores.Seasons,
		teams:        stores.Teams,
		players:      stores.Players,
		matches:      stores.Matches,
		runs:         stores.ImportRuns,
		fetcher:      fetcher,
		audit:        audit,
		cfg:          cfg,
		now:          now,
	}
}

// DecodeBundle reads a JSON bundle, rejecting unknown fields.
func DecodeBundle(r io.Reader) (*model.Bundle, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var b model.Bundle
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: bundle: %v", ErrInvalidInput, err)
	}
	return &b, nil
}

// ValidateBundle checks a bundle is self-consistent before anything is written.
func ValidateBundle(b *model.Bundle) error {
	if b.Competition.ExternalID == 0 || strings.TrimSpace(b.Competition.Name) == "" {
		return invalid("competition", "external_id and name are required")
	}
	if b.Season.Year < 1900 || b.Season.Year > 2100 {
		return invalid("season.year", "must be between 1900 and 2100")
	}
	if s := b.Season; s.StartsOn != nil && s.EndsOn != nil && s.EndsOn.Before(*s.StartsOn) {
		return invalid("season.ends_on", "must not be before starts_on")
	}

	teams := map[int64]bool{}
	for _, t := range b.Teams {
		if t.ExternalID == 0 || strings.TrimSpace(t.Name) == "" {
			return invalid("teams", "external_id and name are required")
		}
		if teams[t.ExternalID] {
			return invalid("teams", "duplicate external_id %d", t.ExternalID)
		}
		teams[t.ExternalID] = true
	}

	players := map[int64]bool{}
	for _, p := range b.Players {
		if p.ExternalID == 0 || strings.TrimSpace(p.LastName) == "" {
			return invalid("players", "external_id and last_name are required")
		}
		if players[p.ExternalID] {
			return invalid("players", "duplicate external_id %d", p.ExternalID)
		}
		players[p.ExternalID] = true
		if p.TeamExternalID != 0 && !teams[p.TeamExternalID] {
			return invalid("players", "player %d references unknown team %d", p.ExternalID, p.TeamExternalID)
		}
		if !validShirt(p.ShirtNumber) {
			return invalid("players", "player %d shirt number must be between 1 and 99", p.ExternalID)
		}
		if !p.Position.Valid() {
			return invalid("players", "player %d has unknown position %q", p.ExternalID, p.Position)
		}
	}

	fixtures := map[int64]bool{}
	for _, f := range b.Fixtures {
		if f.ExternalID == 0 || f.KickoffAt.IsZero() {
			return invalid("fixtures", "external_id and kickoff_at are required")
		}
		if fixtures[f.ExternalID] {
			return invalid("fixtures", "duplicate external_id %d", f.ExternalID)
		}
		fixtures[f.ExternalID] = true
		if !teams[f.HomeTeamExternalID] || !teams[f.AwayTeamExternalID] {
			return invalid("fixtures", "fixture %d references an unknown team", f.ExternalID)
		}
		if f.HomeTeamExternalID == f.AwayTeamExternalID {
			return invalid("fixtures", "fixture %d has the same home and away team", f.ExternalID)
		}
	}
	return nil
}

// ImportBundle validates and writes a bundle, recording the run.
func (s *ImportService) ImportBundle(ctx context.Context, actor Actor, source model.ImportSource, b *model.Bundle) (*model.ImportRun, error) {
	if err := ValidateBundle(b); err != nil {
		return nil, err
	}

	run, err := s.runs.Start(ctx, uuid.New(), source, actor.id())
	if err != nil {
		return nil, err
	}
	logger := log.With().Str("import_id", run.ID.String()).Str("source", string(source)).Logger()
	logger.Info().Msg("Import started")

	counts, importErr := s.write(ctx, b)

	run.Counts = counts
	finished := s.now()
	run.FinishedAt = &finished
	run.Status = model.ImportSucceeded
	if importErr != nil {
		run.Status = model.ImportFailed
		run.Error = importErr.Error()
	}
	// The run row must be closed even when the request context is gone.
	saved, err := s.runs.Finish(context.WithoutCancel(ctx), run)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to finish import run")
		saved = run
	}

	if importErr != nil {
		logger.Error().Err(importErr).Msg("Import failed")
		s.audit.Record(ctx, actor, "import.failed", model.EntityImport, 0, saved)
		return saved, fmt.Errorf("import %s failed: %w", run.ID, importErr)
	}
	logger.Info().
		Int("teams", counts.Teams).
		Int("players", counts.Players).
		Int("matches", counts.Matches).
		Msg("Import finished")
	s.audit.Record(ctx, actor, "import.run", model.EntityImport, 0, saved)
	return saved, nil
}

func (s *ImportService) write(ctx context.Context, b *model.Bundle) (model.ImportCounts, error) {
	var counts model.ImportCounts

	compExt := b.Competition.ExternalID
	comp, err := s.competitions.Upsert(ctx, &model.Competition{
		Name:       strings.TrimSpace(b.Competition.Name),
		Country:    b.Competition.Country,
		ExternalID: &compExt,
	})
	if err != nil {
		return counts, fmt.Errorf("competition: %w", err)
	}
	counts.Competitions++

	season := &model.Season{
		CompetitionID: comp.ID,
		Name:          strings.TrimSpace(b.Season.Name),
		Year:          b.Season.Year,
		StartsOn:      b.Season.StartsOn,
		EndsOn:        b.Season.EndsOn,
	}
	if season.Name == "" {
		season.Name = fmt.Sprintf("%d", b.Season.Year)
	}
	if b.Season.ExternalID != "" {
		ext := b.Season.ExternalID
		season.ExternalID = &ext
	}
	season, err = s.seasons.Upsert(ctx, season)
	if err != nil {
		return counts, fmt.Errorf("season: %w", err)
	}
	counts.Seasons++

	teamIDs := make(map[int64]int64, len(b.Teams))
	for _, bt := range b.Teams {
		ext := bt.ExternalID
		t, err := s.teams.Upsert(ctx, &model.Team{
			Name:       strings.TrimSpace(bt.Name),
			ShortName:  strings.TrimSpace(bt.ShortName),
			Country:    bt.Country,
			ExternalID: &ext,
		})
		if err != nil {
			return counts, fmt.Errorf("team %d: %w", bt.ExternalID, err)
		}
		if err := s.seasons.AddTeam(ctx, season.ID, t.ID); err != nil {
			return counts, fmt.Errorf("season team %d: %w", bt.ExternalID, err)
		}
		teamIDs[bt.ExternalID] = t.ID
		counts.Teams++
	}

	for _, bp := range b.Players {
		ext := bp.ExternalID
		p := &model.Player{
			FirstName:   strings.TrimSpace(bp.FirstName),
			LastName:    strings.TrimSpace(bp.LastName),
			ShirtNumber: bp.ShirtNumber,
			Position:    bp.Position,
			BirthDate:   bp.BirthDate,
			Nationality: bp.Nationality,
			ExternalID:  &ext,
		}
		if id, ok := teamIDs[bp.TeamExternalID]; ok {
			p.TeamID = &id
		}
		if _, err := s.players.Upsert(ctx, p); err != nil {
			return counts, fmt.Errorf("player %d: %w", bp.ExternalID, err)
		}
		counts.Players++
	}

	for _, bf := range b.Fixtures {
		ext := bf.ExternalID
		seasonID := season.ID
		_, err := s.matches.Upsert(ctx, &model.Match{
			SeasonID:           &seasonID,
			HomeTeamID:         teamIDs[bf.HomeTeamExternalID],
			AwayTeamID:         teamIDs[bf.AwayTeamExternalID],
			KickoffAt:          bf.KickoffAt.UTC(),
			Venue:              bf.Venue,
			Round:              bf.Round,
			PeriodMinutes:      s.cfg.PeriodMinutes,
			ExtraPeriodMinutes: s.cfg.ExtraPeriodMinutes,
			ExternalID:         &ext,
		})
		if err != nil {
			return counts, fmt.Errorf("fixture %d: %w", bf.ExternalID, err)
		}
		counts.Matches++
	}
	return counts, nil
}

// ErrNoFetcher is returned when an API import is requested without a provider.
var ErrNoFetcher = errors.New("football API import is not configured")

// FetchAndImport pulls a league season from the provider and imports it.
func (s *ImportService) FetchAndImport(ctx context.Context, actor Actor, league int64, season int) (*model.ImportRun, error) {
	if s.fetcher == nil {
		return nil, ErrNoFetcher
	}
	if league <= 0 {
		return nil, invalid("league", "must be positive")
	}
	if season < 1900 || season > 2100 {
		return nil, invalid("season", "must be between 1900 and 2100")
	}
	b, err := s.fetcher.FetchBundle(ctx, league, season)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bundle: %w", err)
	}
	return s.ImportBundle(ctx, actor, model.ImportSourceAPI, b)
}

// ListRuns returns recent import runs, newest first.
func (s *ImportService) ListRuns(ctx context.Context, limit int) ([]*model.ImportRun, error) {
	return s.runs.List(ctx, limit)
}

// GetRun returns one import run.
func (s *ImportService) GetRun(ctx context.Context, id uuid.UUID) (*model.ImportRun, error) {
	return s.runs.GetByID(ctx, id)
}
