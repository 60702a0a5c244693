// Package model defines the data models for the match narration API.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role is the permission level of an account.
type Role string

// Account roles.
const (
	RoleAdmin    Role = "admin"    // Manages catalog, imports, users
	RoleNarrator Role = "narrator" // Runs the live console for assigned matches
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleNarrator
}

// User is an operator account.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AuditEntry records a mutating operation performed through the API.
type AuditEntry struct {
	ID        int64           `db:"id" json:"id"`
	ActorID   *int64          `db:"actor_id" json:"actor_id,omitempty"`
	Action    string          `db:"action" json:"action"`
	Entity    string          `db:"entity" json:"entity"`
	EntityID  int64           `db:"entity_id" json:"entity_id"`
	Details   json.RawMessage `db:"details" json:"details"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// AuditFilter narrows an audit log listing. Zero values mean "any".
type AuditFilter struct {
	Entity   string
	EntityID int64
	ActorID  int64
	Limit    int
}

// Audit entity names.
const (
	EntityCompetition = "competition"
	EntitySeason      = "season"
	EntityTeam        = "team"
	EntityPlayer      = "player"
	EntityMatch       = "match"
	EntityRoster      = "roster"
	EntityEvent       = "event"
	EntityImport      = "import"
	EntityUser        = "user"
)

// ImportSource identifies where an import bundle came from.
type ImportSource string

// Import sources.
const (
	ImportSourceFile ImportSource = "file"
	ImportSourceAPI  ImportSource = "api"
)

// ImportStatus is the lifecycle state of an import run.
type ImportStatus string

// Import statuses.
const (
	ImportRunning   ImportStatus = "running"
	ImportSucceeded ImportStatus = "succeeded"
	ImportFailed    ImportStatus = "failed"
)

// ImportCounts tallies rows written by an import.
type ImportCounts struct {
	Competitions int `db:"competitions" json:"competitions"`
	Seasons      int `db:"seasons" json:"seasons"`
	Teams        int `db:"teams" json:"teams"`
	Players      int `db:"players" json:"players"`
	Matches      int `db:"matches" json:"matches"`
}

// ImportRun is one execution of the import pipeline.
type ImportRun struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	Source     ImportSource `db:"source" json:"source"`
	Status     ImportStatus `db:"status" json:"status"`
	Counts     ImportCounts `json:"counts"`
	Error      string       `db:"error" json:"error,omitempty"`
	StartedBy  *int64       `db:"started_by" json:"started_by,omitempty"`
	StartedAt  time.Time    `db:"started_at" json:"started_at"`
	FinishedAt *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}
