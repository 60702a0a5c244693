package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type migration struct {
	name string
	sql  string
}

// migrations are idempotent and applied in order on every startup.
var migrations = []migration{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(64) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"competitions", `
		CREATE TABLE IF NOT EXISTS competitions (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			country VARCHAR(128) NOT NULL DEFAULT '',
			external_id BIGINT UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"seasons", `
		CREATE TABLE IF NOT EXISTS seasons (
			id BIGSERIAL PRIMARY KEY,
			competition_id BIGINT NOT NULL REFERENCES competitions(id) ON DELETE RESTRICT,
			name VARCHAR(255) NOT NULL,
			year INT NOT NULL,
			starts_on DATE,
			ends_on DATE,
			external_id VARCHAR(64),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (competition_id, year)
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_seasons_external ON seasons(external_id) WHERE external_id IS NOT NULL;
	`},
	{"teams", `
		CREATE TABLE IF NOT EXISTS teams (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			short_name VARCHAR(16) NOT NULL DEFAULT '',
			country VARCHAR(128) NOT NULL DEFAULT '',
			external_id BIGINT UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS season_teams (
			season_id BIGINT NOT NULL REFERENCES seasons(id) ON DELETE CASCADE,
			team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE RESTRICT,
			PRIMARY KEY (season_id, team_id)
		);
	`},
	{"players", `
		CREATE TABLE IF NOT EXISTS players (
			id BIGSERIAL PRIMARY KEY,
			team_id BIGINT REFERENCES teams(id) ON DELETE SET NULL,
			first_name VARCHAR(128) NOT NULL DEFAULT '',
			last_name VARCHAR(128) NOT NULL,
			shirt_number INT,
			position VARCHAR(2) NOT NULL DEFAULT '',
			birth_date DATE,
			nationality VARCHAR(128) NOT NULL DEFAULT '',
			external_id BIGINT UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_players_team ON players(team_id);
	`},
	{"matches", `
		CREATE TABLE IF NOT EXISTS matches (
			id BIGSERIAL PRIMARY KEY,
			season_id BIGINT REFERENCES seasons(id) ON DELETE SET NULL,
			home_team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE RESTRICT,
			away_team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE RESTRICT,
			kickoff_at TIMESTAMPTZ NOT NULL,
			venue VARCHAR(255) NOT NULL DEFAULT '',
			round VARCHAR(64) NOT NULL DEFAULT '',
			status VARCHAR(16) NOT NULL DEFAULT 'scheduled',
			period VARCHAR(24) NOT NULL DEFAULT 'pre_match',
			clock_running BOOLEAN NOT NULL DEFAULT FALSE,
			running_since TIMESTAMPTZ,
			period_elapsed_ms BIGINT NOT NULL DEFAULT 0,
			period_started_at TIMESTAMPTZ,
			home_score INT NOT NULL DEFAULT 0,
			away_score INT NOT NULL DEFAULT 0,
			home_shootout INT NOT NULL DEFAULT 0,
			away_shootout INT NOT NULL DEFAULT 0,
			period_minutes INT NOT NULL DEFAULT 45,
			extra_period_minutes INT NOT NULL DEFAULT 15,
			has_extra_time BOOLEAN NOT NULL DEFAULT FALSE,
			has_penalties BOOLEAN NOT NULL DEFAULT FALSE,
			narrator_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
			external_id BIGINT UNIQUE,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (home_team_id <> away_team_id)
		);
		CREATE INDEX IF NOT EXISTS idx_matches_season ON matches(season_id, kickoff_at);
		CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);
	`},
	{"match_periods", `
		CREATE TABLE IF NOT EXISTS match_periods (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			period VARCHAR(24) NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ,
			elapsed_ms BIGINT NOT NULL DEFAULT 0,
			UNIQUE (match_id, period)
		);
	`},
	{"match_roster", `
		CREATE TABLE IF NOT EXISTS match_roster (
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE RESTRICT,
			player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE RESTRICT,
			role VARCHAR(8) NOT NULL,
			shirt_number INT,
			position_label VARCHAR(8) NOT NULL DEFAULT '',
			pos_x DOUBLE PRECISION,
			pos_y DOUBLE PRECISION,
			captain BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (match_id, player_id)
		);
		CREATE INDEX IF NOT EXISTS idx_match_roster_team ON match_roster(match_id, team_id);
	`},
	{"match_events", `
		CREATE TABLE IF NOT EXISTS match_events (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			client_id UUID NOT NULL,
			type VARCHAR(24) NOT NULL,
			period VARCHAR(24) NOT NULL,
			minute INT NOT NULL,
			stoppage INT NOT NULL DEFAULT 0,
			elapsed_seconds INT NOT NULL DEFAULT 0,
			team_id BIGINT REFERENCES teams(id),
			player_id BIGINT REFERENCES players(id),
			related_player_id BIGINT REFERENCES players(id),
			detail TEXT NOT NULL DEFAULT '',
			system BOOLEAN NOT NULL DEFAULT FALSE,
			created_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ,
			deleted_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
			UNIQUE (match_id, client_id)
		);
		CREATE INDEX IF NOT EXISTS idx_match_events_timeline ON match_events(match_id, id) WHERE deleted_at IS NULL;
	`},
	{"import_runs", `
		CREATE TABLE IF NOT EXISTS import_runs (
			id UUID PRIMARY KEY,
			source VARCHAR(16) NOT NULL,
			status VARCHAR(16) NOT NULL,
			competitions INT NOT NULL DEFAULT 0,
			seasons INT NOT NULL DEFAULT 0,
			teams INT NOT NULL DEFAULT 0,
			players INT NOT NULL DEFAULT 0,
			matches INT NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			started_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at TIMESTAMPTZ
		);
	`},
	{"audit_log", `
		CREATE TABLE IF NOT EXISTS audit_log (
			id BIGSERIAL PRIMARY KEY,
			actor_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
			action VARCHAR(64) NOT NULL,
			entity VARCHAR(32) NOT NULL,
			entity_id BIGINT NOT NULL DEFAULT 0,
			details JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity, entity_id, created_at DESC);
	`},
}

// migrationLockID keys the advisory lock held while migrating, so that
// instances starting together do not race on DDL.
const migrationLockID int64 = 0x6e61727261746f72

// Migrate creates the schema if it does not exist. All steps run in one
// transaction under a transaction-scoped advisory lock.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	for i, m := range migrations {
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Debug().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}
	log.Info().Int("count", len(migrations)).Msg("All migrations completed successfully")
	return nil
}
