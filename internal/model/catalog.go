package model

import "time"

// Competition is a league or cup.
type Competition struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Country    string    `db:"country" json:"country"`
	ExternalID *int64    `db:"external_id" json:"external_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Season is one edition of a competition.
type Season struct {
	ID            int64      `db:"id" json:"id"`
	CompetitionID int64      `db:"competition_id" json:"competition_id"`
	Name          string     `db:"name" json:"name"`
	Year          int        `db:"year" json:"year"`
	StartsOn      *time.Time `db:"starts_on" json:"starts_on,omitempty"`
	EndsOn        *time.Time `db:"ends_on" json:"ends_on,omitempty"`
	ExternalID    *string    `db:"external_id" json:"external_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Team is a club or national side.
type Team struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	ShortName  string    `db:"short_name" json:"short_name"`
	Country    string    `db:"country" json:"country"`
	ExternalID *int64    `db:"external_id" json:"external_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Position is a player's primary playing position.
type Position string

// Player positions.
const (
	PositionGoalkeeper Position = "GK"
	PositionDefender   Position = "DF"
	PositionMidfielder Position = "MF"
	PositionForward    Position = "FW"
)

// Valid reports whether p is a known position. The empty position is allowed.
func (p Position) Valid() bool {
	switch p {
	case "", PositionGoalkeeper, PositionDefender, PositionMidfielder, PositionForward:
		return true
	}
	return false
}

// Player is a squad member. TeamID is nil for unattached players.
type Player struct {
	ID          int64      `db:"id" json:"id"`
	TeamID      *int64     `db:"team_id" json:"team_id,omitempty"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	ShirtNumber *int       `db:"shirt_number" json:"shirt_number,omitempty"`
	Position    Position   `db:"position" json:"position"`
	BirthDate   *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Nationality string     `db:"nationality" json:"nationality"`
	ExternalID  *int64     `db:"external_id" json:"external_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// DisplayName returns "First Last", or just the last name.
func (p *Player) DisplayName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	return p.FirstName + " " + p.LastName
}
