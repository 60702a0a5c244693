package model

import "time"

// Bundle is the import file format: one competition season with its teams,
// squads and fixtures. Teams, players and fixtures reference each other by
// external id.
type Bundle struct {
	Competition BundleCompetition `json:"competition"`
	Season      BundleSeason      `json:"season"`
	Teams       []BundleTeam      `json:"teams"`
	Players     []BundlePlayer    `json:"players"`
	Fixtures    []BundleFixture   `json:"fixtures"`
}

// BundleCompetition identifies the competition of a bundle.
type BundleCompetition struct {
	ExternalID int64  `json:"external_id"`
	Name       string `json:"name"`
	Country    string `json:"country"`
}

// BundleSeason identifies the season of a bundle.
type BundleSeason struct {
	ExternalID string     `json:"external_id,omitempty"`
	Name       string     `json:"name"`
	Year       int        `json:"year"`
	StartsOn   *time.Time `json:"starts_on,omitempty"`
	EndsOn     *time.Time `json:"ends_on,omitempty"`
}

// BundleTeam is a team taking part in the season.
type BundleTeam struct {
	ExternalID int64  `json:"external_id"`
	Name       string `json:"name"`
	ShortName  string `json:"short_name"`
	Country    string `json:"country"`
}

// BundlePlayer is a squad member of one of the bundle's teams.
type BundlePlayer struct {
	ExternalID     int64      `json:"external_id"`
	TeamExternalID int64      `json:"team_external_id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	ShirtNumber    *int       `json:"shirt_number,omitempty"`
	Position       Position   `json:"position"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	Nationality    string     `json:"nationality"`
}

// BundleFixture is a scheduled match between two of the bundle's teams.
type BundleFixture struct {
	ExternalID         int64     `json:"external_id"`
	HomeTeamExternalID int64     `json:"home_team_external_id"`
	AwayTeamExternalID int64     `json:"away_team_external_id"`
	KickoffAt          time.Time `json:"kickoff_at"`
	Venue              string    `json:"venue"`
	Round              string    `json:"round"`
}
