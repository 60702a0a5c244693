// Package main is the entry point for the match narration API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"match-narrator/internal/app"
	"match-narrator/internal/config"
	"match-narrator/internal/handler"
	"match-narrator/internal/model"
	"match-narrator/internal/pkg/db"
	"match-narrator/internal/repository/memstore"
	"match-narrator/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cliApp := &cli.App{
		Name:  "narrator",
		Usage: "live football match narration API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config", Usage: "directory holding config.yaml"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seedCommand(),
			importCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

// loadConfig reads and validates configuration, then applies log settings.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.Log.Pretty {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	log.Info().Msg("Configuration loaded successfully")
	return cfg, nil
}

// openStores connects to PostgreSQL and runs migrations. The caller closes
// the returned pool.
func openStores(ctx context.Context, cfg *config.Config) (service.Stores, *db.Pool, error) {
	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return service.Stores{}, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx, pool.Pool); err != nil {
		pool.Close()
		return service.Stores{}, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	return app.PostgresStores(pool.Pool), pool, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "memory", Usage: "keep all data in memory instead of PostgreSQL"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			ctx := c.Context

			var (
				stores service.Stores
				pool   *db.Pool
			)
			if c.Bool("memory") {
				log.Warn().Msg("Using in-memory storage, data is lost on exit")
				stores = app.MemoryStores(memstore.New())
			} else {
				stores, pool, err = openStores(ctx, cfg)
				if err != nil {
					return err
				}
				defer pool.Close()
			}

			svc := app.Build(cfg, stores, app.Fetcher(cfg.FootballAPI), app.Options{})
			if err := app.Bootstrap(ctx, cfg, svc); err != nil {
				return err
			}

			var api *handler.Server
			if pool != nil {
				api = handler.NewServer(svc, cfg.Server, pool.HealthCheck)
				if err := api.Register(pool.Collector()); err != nil {
					return err
				}
			} else {
				api = handler.NewServer(svc, cfg.Server, nil)
			}

			srv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      api,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server is starting...")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
				log.Info().Msg("Received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down: %w", err)
			}
			log.Info().Msg("Server stopped gracefully")
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			_, pool, err := openStores(c.Context, cfg)
			if err != nil {
				return err
			}
			pool.Close()
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "import a generated demo league",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "random seed"},
			&cli.IntFlag{Name: "teams", Value: 8, Usage: "number of teams"},
			&cli.IntFlag{Name: "squad", Value: 18, Usage: "players per team"},
			&cli.IntFlag{Name: "year", Value: time.Now().Year(), Usage: "season year"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			stores, pool, err := openStores(c.Context, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			b := app.FakeBundle(app.SeedOptions{
				Seed:      c.Uint64("seed"),
				Teams:     c.Int("teams"),
				SquadSize: c.Int("squad"),
				Year:      c.Int("year"),
			})
			svc := app.Build(cfg, stores, nil, app.Options{})
			if err := app.Bootstrap(c.Context, cfg, svc); err != nil {
				return err
			}
			return runImport(c.Context, func(ctx context.Context) (*model.ImportRun, error) {
				return svc.Import.ImportBundle(ctx, service.System, model.ImportSourceFile, b)
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "import a bundle file or a league season from the football API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "path of a JSON bundle"},
			&cli.Int64Flag{Name: "league", Usage: "provider league id"},
			&cli.IntFlag{Name: "season", Usage: "provider season year"},
		},
		Action: func(c *cli.Context) error {
			file := c.String("file")
			if (file == "") == (c.Int64("league") == 0) {
				return errors.New("exactly one of --file or --league is required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			var b *model.Bundle
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open bundle: %w", err)
				}
				b, err = service.DecodeBundle(f)
				f.Close()
				if err != nil {
					return err
				}
			}

			stores, pool, err := openStores(c.Context, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			svc := app.Build(cfg, stores, app.Fetcher(cfg.FootballAPI), app.Options{})

			return runImport(c.Context, func(ctx context.Context) (*model.ImportRun, error) {
				if b != nil {
					return svc.Import.ImportBundle(ctx, service.System, model.ImportSourceFile, b)
				}
				return svc.Import.FetchAndImport(ctx, service.System, c.Int64("league"), c.Int("season"))
			})
		},
	}
}

func runImport(ctx context.Context, fn func(context.Context) (*model.ImportRun, error)) error {
	run, err := fn(ctx)
	if err != nil {
		return err
	}
	log.Info().
		Str("import_id", run.ID.String()).
		Int("competitions", run.Counts.Competitions).
		Int("seasons", run.Counts.Seasons).
		Int("teams", run.Counts.Teams).
		Int("players", run.Counts.Players).
		Int("matches", run.Counts.Matches).
		Msg("Import complete")
	return nil
}
