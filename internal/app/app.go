// Package app assembles stores and services into a runnable narrator.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"match-narrator/internal/config"
	"match-narrator/internal/footballapi"
	"match-narrator/internal/handler"
	"match-narrator/internal/pkg/lock"
	"match-narrator/internal/pkg/token"
	"match-narrator/internal/repository"
	"match-narrator/internal/repository/memstore"
	"match-narrator/internal/service"
	"match-narrator/internal/timeline"
)

// PostgresStores backs every store with the pgx repositories.
func PostgresStores(pool *pgxpool.Pool) service.Stores {
	return service.Stores{
		Competitions: repository.NewCompetitionRepository(pool),
		Seasons:      repository.NewSeasonRepository(pool),
		Teams:        repository.NewTeamRepository(pool),
		Players:      repository.NewPlayerRepository(pool),
		Matches:      repository.NewMatchRepository(pool),
		Roster:       repository.NewRosterRepository(pool),
		Events:       repository.NewEventRepository(pool),
		Audit:        repository.NewAuditRepository(pool),
		Users:        repository.NewUserRepository(pool),
		ImportRuns:   repository.NewImportRunRepository(pool),
	}
}

// MemoryStores backs every store with an in-process memstore.
func MemoryStores(s *memstore.Store) service.Stores {
	return service.Stores{
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

// Fetcher returns the football API client, or nil when no key is configured.
func Fetcher(cfg config.FootballAPIConfig) service.BundleFetcher {
	if cfg.APIKey == "" {
		return nil
	}
	return footballapi.NewClient(cfg)
}

// Options tune Build for tests.
type Options struct {
	Now        service.Clock
	BcryptCost int
}

// Build creates every service over stores.
func Build(cfg *config.Config, stores service.Stores, fetcher service.BundleFetcher, opts Options) handler.Services {
	locks := lock.NewKeyLock()
	registry := timeline.DefaultRegistry()
	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	audit := service.NewAuditService(stores.Audit)
	auth := service.NewAuthService(stores.Users, tokens, audit)
	if opts.BcryptCost > 0 {
		auth = auth.WithCost(opts.BcryptCost)
	}
	roster := service.NewRosterService(stores, registry, audit, locks, cfg.Match)

	return handler.Services{
		Auth:    auth,
		Audit:   audit,
		Catalog: service.NewCatalogService(stores, audit),
		Matches: service.NewMatchService(stores, audit, locks, cfg.Match, opts.Now),
		Roster:  roster,
		Events:  service.NewEventService(stores, registry, audit, locks, opts.Now),
		Import:  service.NewImportService(stores, fetcher, audit, cfg.Match, opts.Now),
		Export:  service.NewExportService(stores, roster, opts.Now),
	}
}

// Bootstrap creates the configured admin account on an empty user table.
func Bootstrap(ctx context.Context, cfg *config.Config, svc handler.Services) error {
	created, err := svc.Auth.Bootstrap(ctx, cfg.Auth.BootstrapUsername, cfg.Auth.BootstrapPassword)
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if !created && cfg.Auth.BootstrapPassword != "" {
		log.Debug().Msg("Users exist, skipping admin bootstrap")
	}
	return nil
}
