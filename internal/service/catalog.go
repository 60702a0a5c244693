package service

import (
	"context"
	"strings"

	"match-narrator/internal/model"
)

// CatalogService manages competitions, seasons, teams and players.
type CatalogService struct {
	competitions CompetitionStore
	seasons      SeasonStore
	teams        TeamStore
	players      PlayerStore
	audit        *AuditService
}

// NewCatalogService creates a new CatalogService instance.
func NewCatalogService(stores Stores, audit *AuditService) *CatalogService {
	return &CatalogService{
		competitions: stores.Competitions,
		seasons:      stores.Seasons,
		teams:        stores.Teams,
		players:      stores.Players,
		audit:        audit,
	}
}

// ---------------------------------------------------------------------------
// Validation

func validateCompetition(c *model.Competition) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("name", "must not be empty")
	}
	return nil
}

func validateSeason(s *model.Season) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return invalid("name", "must not be empty")
	}
	if s.Year < 1900 || s.Year > 2100 {
		return invalid("year", "must be between 1900 and 2100")
	}
	if s.StartsOn != nil && s.EndsOn != nil && s.EndsOn.Before(*s.StartsOn) {
		return invalid("ends_on", "must not be before starts_on")
	}
	return nil
}

func validateTeam(t *model.Team) error {
	t.Name = strings.TrimSpace(t.Name)
	t.ShortName = strings.TrimSpace(t.ShortName)
	if t.Name == "" {
		return invalid("name", "must not be empty")
	}
	if len(t.ShortName) > 16 {
		return invalid("short_name", "must be at most 16 characters")
	}
	return nil
}

func validShirt(n *int) bool {
	return n == nil || (*n >= 1 && *n <= 99)
}

func validatePlayer(p *model.Player) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.LastName == "" {
		return invalid("last_name", "must not be empty")
	}
	if !validShirt(p.ShirtNumber) {
		return invalid("shirt_number", "must be between 1 and 99")
	}
	if !p.Position.Valid() {
		return invalid("position", "must be one of GK, DF, MF, FW")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Competitions

// CreateCompetition validates and stores a competition.
func (s *CatalogService) CreateCompetition(ctx context.Context, actor Actor, c model.Competition) (*model.Competition, error) {
	if err := validateCompetition(&c); err != nil {
		return nil, err
	}
	out, err := s.competitions.Create(ctx, &c)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "competition.create", model.EntityCompetition, out.ID, out)
	return out, nil
}

// GetCompetition returns a competition.
func (s *CatalogService) GetCompetition(ctx context.Context, id int64) (*model.Competition, error) {
	return s.competitions.GetByID(ctx, id)
}

// ListCompetitions returns all competitions.
func (s *CatalogService) ListCompetitions(ctx context.Context) ([]*model.Competition, error) {
	return s.competitions.List(ctx)
}

// UpdateCompetition overwrites a competition.
func (s *CatalogService) UpdateCompetition(ctx context.Context, actor Actor, c model.Competition) (*model.Competition, error) {
	if err := validateCompetition(&c); err != nil {
		return nil, err
	}
	out, err := s.competitions.Update(ctx, &c)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "competition.update", model.EntityCompetition, out.ID, out)
	return out, nil
}

// DeleteCompetition removes a competition without seasons.
func (s *CatalogService) DeleteCompetition(ctx context.Context, actor Actor, id int64) error {
	if err := s.competitions.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "competition.delete", model.EntityCompetition, id, nil)
	return nil
}

// ---------------------------------------------------------------------------
// Seasons

// CreateSeason validates and stores a season of an existing competition.
func (s *CatalogService) CreateSeason(ctx context.Context, actor Actor, season model.Season) (*model.Season, error) {
	if err := validateSeason(&season); err != nil {
		return nil, err
	}
	if _, err := s.competitions.GetByID(ctx, season.CompetitionID); err != nil {
		return nil, err
	}
	out, err := s.seasons.Create(ctx, &season)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "season.create", model.EntitySeason, out.ID, out)
	return out, nil
}

// GetSeason returns a season.
func (s *CatalogService) GetSeason(ctx context.Context, id int64) (*model.Season, error) {
	return s.seasons.GetByID(ctx, id)
}

// ListSeasons returns a competition's seasons.
func (s *CatalogService) ListSeasons(ctx context.Context, competitionID int64) ([]*model.Season, error) {
	if _, err := s.competitions.GetByID(ctx, competitionID); err != nil {
		return nil, err
	}
	return s.seasons.ListByCompetition(ctx, competitionID)
}

// UpdateSeason overwrites a season. The competition cannot change.
func (s *CatalogService) UpdateSeason(ctx context.Context, actor Actor, season model.Season) (*model.Season, error) {
	cur, err := s.seasons.GetByID(ctx, season.ID)
	if err != nil {
		return nil, err
	}
	season.CompetitionID = cur.CompetitionID
	if err := validateSeason(&season); err != nil {
		return nil, err
	}
	out, err := s.seasons.Update(ctx, &season)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "season.update", model.EntitySeason, out.ID, out)
	return out, nil
}

// DeleteSeason removes a season.
func (s *CatalogService) DeleteSeason(ctx context.Context, actor Actor, id int64) error {
	if err := s.seasons.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "season.delete", model.EntitySeason, id, nil)
	return nil
}

// AddSeasonTeam registers a team for a season.
func (s *CatalogService) AddSeasonTeam(ctx context.Context, actor Actor, seasonID, teamID int64) error {
	if _, err := s.seasons.GetByID(ctx, seasonID); err != nil {
		return err
	}
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return err
	}
	if err := s.seasons.AddTeam(ctx, seasonID, teamID); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "season.add_team", model.EntitySeason, seasonID, map[string]int64{"team_id": teamID})
	return nil
}

// RemoveSeasonTeam unregisters a team from a season.
func (s *CatalogService) RemoveSeasonTeam(ctx context.Context, actor Actor, seasonID, teamID int64) error {
	if err := s.seasons.RemoveTeam(ctx, seasonID, teamID); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "season.remove_team", model.EntitySeason, seasonID, map[string]int64{"team_id": teamID})
	return nil
}

// ListSeasonTeams returns the teams registered for a season.
func (s *CatalogService) ListSeasonTeams(ctx context.Context, seasonID int64) ([]*model.Team, error) {
	if _, err := s.seasons.GetByID(ctx, seasonID); err != nil {
		return nil, err
	}
	return s.teams.ListBySeason(ctx, seasonID)
}

// ---------------------------------------------------------------------------
// Teams

// CreateTeam validates and stores a team.
func (s *CatalogService) CreateTeam(ctx context.Context, actor Actor, t model.Team) (*model.Team, error) {
	if err := validateTeam(&t); err != nil {
		return nil, err
	}
	out, err := s.teams.Create(ctx, &t)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "team.create", model.EntityTeam, out.ID, out)
	return out, nil
}

// GetTeam returns a team.
func (s *CatalogService) GetTeam(ctx context.Context, id int64) (*model.Team, error) {
	return s.teams.GetByID(ctx, id)
}

// ListTeams returns all teams.
func (s *CatalogService) ListTeams(ctx context.Context) ([]*model.Team, error) {
	return s.teams.List(ctx)
}

// UpdateTeam overwrites a team.
func (s *CatalogService) UpdateTeam(ctx context.Context, actor Actor, t model.Team) (*model.Team, error) {
	if err := validateTeam(&t); err != nil {
		return nil, err
	}
	out, err := s.teams.Update(ctx, &t)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "team.update", model.EntityTeam, out.ID, out)
	return out, nil
}

// DeleteTeam removes a team that plays no matches.
func (s *CatalogService) DeleteTeam(ctx context.Context, actor Actor, id int64) error {
	if err := s.teams.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "team.delete", model.EntityTeam, id, nil)
	return nil
}

// ---------------------------------------------------------------------------
// Players

// CreatePlayer validates and stores a player.
func (s *CatalogService) CreatePlayer(ctx context.Context, actor Actor, p model.Player) (*model.Player, error) {
	if err := s.checkPlayer(ctx, &p); err != nil {
		return nil, err
	}
	out, err := s.players.Create(ctx, &p)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "player.create", model.EntityPlayer, out.ID, out)
	return out, nil
}

func (s *CatalogService) checkPlayer(ctx context.Context, p *model.Player) error {
	if err := validatePlayer(p); err != nil {
		return err
	}
	if p.TeamID != nil {
		if _, err := s.teams.GetByID(ctx, *p.TeamID); err != nil {
			return err
		}
	}
	return nil
}

// GetPlayer returns a player.
func (s *CatalogService) GetPlayer(ctx context.Context, id int64) (*model.Player, error) {
	return s.players.GetByID(ctx, id)
}

// ListPlayers returns a team's squad.
func (s *CatalogService) ListPlayers(ctx context.Context, teamID int64) ([]*model.Player, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, err
	}
	return s.players.ListByTeam(ctx, teamID)
}

// UpdatePlayer overwrites a player.
func (s *CatalogService) UpdatePlayer(ctx context.Context, actor Actor, p model.Player) (*model.Player, error) {
	if err := s.checkPlayer(ctx, &p); err != nil {
		return nil, err
	}
	out, err := s.players.Update(ctx, &p)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "player.update", model.EntityPlayer, out.ID, out)
	return out, nil
}

// DeletePlayer removes a player who never appeared in a match.
func (s *CatalogService) DeletePlayer(ctx context.Context, actor Actor, id int64) error {
	if err := s.players.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "player.delete", model.EntityPlayer, id, nil)
	return nil
}
