// Package memstore is an in-memory implementation of the service stores. It
// mirrors the constraints of the PostgreSQL schema (unique keys, references,
// guarded match updates) and returns the same repository errors. It backs the
// service and handler tests and `narrator serve --memory`.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"match-narrator/internal/model"
	"match-narrator/internal/repository"
)

// Store holds all tables behind one lock.
type Store struct {
	mu  sync.RWMutex
	seq int64
	now func() time.Time

	competitions map[int64]model.Competition
	seasons      map[int64]model.Season
	seasonTeams  map[[2]int64]bool
	teams        map[int64]model.Team
	players      map[int64]model.Player
	matches      map[int64]model.Match
	periods      map[int64][]model.MatchPeriodLog
	roster       map[int64][]model.RosterEntry
	events       map[int64][]model.MatchEvent
	audit        []model.AuditEntry
	users        map[int64]model.User
	importRuns   map[uuid.UUID]model.ImportRun

	Competitions *Competitions
	Seasons      *Seasons
	Teams        *Teams
	Players      *Players
	Matches      *Matches
	Roster       *Roster
	Events       *Events
	Audit        *Audit
	Users        *Users
	ImportRuns   *ImportRuns
}

// New creates an empty store.
func New() *Store {
	s := &Store{
		now:          time.Now,
		competitions: map[int64]model.Competition{},
		seasons:      map[int64]model.Season{},
		seasonTeams:  map[[2]int64]bool{},
		teams:        map[int64]model.Team{},
		players:      map[int64]model.Player{},
		matches:      map[int64]model.Match{},
		periods:      map[int64][]model.MatchPeriodLog{},
		roster:       map[int64][]model.RosterEntry{},
		events:       map[int64][]model.MatchEvent{},
		users:        map[int64]model.User{},
		importRuns:   map[uuid.UUID]model.ImportRun{},
	}
	s.Competitions = &Competitions{s}
	s.Seasons = &Seasons{s}
	s.Teams = &Teams{s}
	s.Players = &Players{s}
	s.Matches = &Matches{s}
	s.Roster = &Roster{s}
	s.Events = &Events{s}
	s.Audit = &Audit{s}
	s.Users = &Users{s}
	s.ImportRuns = &ImportRuns{s}
	return s
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func sameID(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ---------------------------------------------------------------------------
// Competitions

// Competitions implements the competition store.
type Competitions struct{ s *Store }

func (r *Competitions) Create(_ context.Context, c *model.Competition) (*model.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(*c)
}

func (r *Competitions) insert(c model.Competition) (*model.Competition, error) {
	for _, other := range r.s.competitions {
		if sameID(other.ExternalID, c.ExternalID) {
			return nil, fmt.Errorf("%w: competitions_external_id_key", repository.ErrConflict)
		}
	}
	c.ID = r.s.nextID()
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	r.s.competitions[c.ID] = c
	return &c, nil
}

func (r *Competitions) GetByID(_ context.Context, id int64) (*model.Competition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.competitions[id]
	if !ok {
		return nil, repository.ErrCompetitionNotFound
	}
	return &c, nil
}

func (r *Competitions) List(_ context.Context) ([]*model.Competition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Competition
	for _, id := range sortedKeys(r.s.competitions) {
		c := r.s.competitions[id]
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Competitions) Update(_ context.Context, c *model.Competition) (*model.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.competitions[c.ID]
	if !ok {
		return nil, repository.ErrCompetitionNotFound
	}
	for id, other := range r.s.competitions {
		if id != c.ID && sameID(other.ExternalID, c.ExternalID) {
			return nil, fmt.Errorf("%w: competitions_external_id_key", repository.ErrConflict)
		}
	}
	cur.Name, cur.Country, cur.ExternalID = c.Name, c.Country, c.ExternalID
	cur.UpdatedAt = r.s.now()
	r.s.competitions[c.ID] = cur
	return &cur, nil
}

func (r *Competitions) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.competitions[id]; !ok {
		return repository.ErrCompetitionNotFound
	}
	for _, season := range r.s.seasons {
		if season.CompetitionID == id {
			return fmt.Errorf("%w: seasons", repository.ErrInUse)
		}
	}
	delete(r.s.competitions, id)
	return nil
}

func (r *Competitions) Upsert(_ context.Context, c *model.Competition) (*model.Competition, error) {
	if c.ExternalID == nil {
		return nil, fmt.Errorf("upsert competition %q: external id is required", c.Name)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, cur := range r.s.competitions {
		if sameID(cur.ExternalID, c.ExternalID) {
			cur.Name, cur.Country = c.Name, c.Country
			cur.UpdatedAt = r.s.now()
			r.s.competitions[id] = cur
			return &cur, nil
		}
	}
	return r.insert(*c)
}

// ---------------------------------------------------------------------------
// Seasons

// Seasons implements the season store.
type Seasons struct{ s *Store }

func (r *Seasons) check(season model.Season) error {
	if _, ok := r.s.competitions[season.CompetitionID]; !ok {
		return fmt.Errorf("%w: seasons_competition_id_fkey", repository.ErrInvalidReference)
	}
	for id, other := range r.s.seasons {
		if id == season.ID {
			continue
		}
		if other.CompetitionID == season.CompetitionID && other.Year == season.Year {
			return fmt.Errorf("%w: seasons_competition_id_year_key", repository.ErrConflict)
		}
		if season.ExternalID != nil && other.ExternalID != nil && *other.ExternalID == *season.ExternalID {
			return fmt.Errorf("%w: idx_seasons_external", repository.ErrConflict)
		}
	}
	return nil
}

func (r *Seasons) Create(_ context.Context, season *model.Season) (*model.Season, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := *season
	out.ID = 0
	if err := r.check(out); err != nil {
		return nil, err
	}
	out.ID = r.s.nextID()
	out.CreatedAt = r.s.now()
	out.UpdatedAt = out.CreatedAt
	r.s.seasons[out.ID] = out
	return &out, nil
}

func (r *Seasons) GetByID(_ context.Context, id int64) (*model.Season, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	season, ok := r.s.seasons[id]
	if !ok {
		return nil, repository.ErrSeasonNotFound
	}
	return &season, nil
}

func (r *Seasons) ListByCompetition(_ context.Context, competitionID int64) ([]*model.Season, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Season
	for _, id := range sortedKeys(r.s.seasons) {
		season := r.s.seasons[id]
		if season.CompetitionID == competitionID {
			out = append(out, &season)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out, nil
}

func (r *Seasons) Update(_ context.Context, season *model.Season) (*model.Season, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.seasons[season.ID]
	if !ok {
		return nil, repository.ErrSeasonNotFound
	}
	cur.Name, cur.Year, cur.StartsOn, cur.EndsOn, cur.ExternalID =
		season.Name, season.Year, season.StartsOn, season.EndsOn, season.ExternalID
	if err := r.check(cur); err != nil {
		return nil, err
	}
	cur.UpdatedAt = r.s.now()
	r.s.seasons[cur.ID] = cur
	return &cur, nil
}

func (r *Seasons) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.seasons[id]; !ok {
		return repository.ErrSeasonNotFound
	}
	delete(r.s.seasons, id)
	for key := range r.s.seasonTeams {
		if key[0] == id {
			delete(r.s.seasonTeams, key)
		}
	}
	for mid, m := range r.s.matches {
		if sameID(m.SeasonID, &id) {
			m.SeasonID = nil
			r.s.matches[mid] = m
		}
	}
	return nil
}

func (r *Seasons) Upsert(_ context.Context, season *model.Season) (*model.Season, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, cur := range r.s.seasons {
		if cur.CompetitionID == season.CompetitionID && cur.Year == season.Year {
			cur.Name, cur.StartsOn, cur.EndsOn = season.Name, season.StartsOn, season.EndsOn
			if season.ExternalID != nil {
				cur.ExternalID = season.ExternalID
			}
			cur.UpdatedAt = r.s.now()
			r.s.seasons[id] = cur
			return &cur, nil
		}
	}
	out := *season
	out.ID = 0
	if err := r.check(out); err != nil {
		return nil, err
	}
	out.ID = r.s.nextID()
	out.CreatedAt = r.s.now()
	out.UpdatedAt = out.CreatedAt
	r.s.seasons[out.ID] = out
	return &out, nil
}

func (r *Seasons) AddTeam(_ context.Context, seasonID, teamID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.seasons[seasonID]; !ok {
		return fmt.Errorf("%w: season_teams_season_id_fkey", repository.ErrInvalidReference)
	}
	if _, ok := r.s.teams[teamID]; !ok {
		return fmt.Errorf("%w: season_teams_team_id_fkey", repository.ErrInvalidReference)
	}
	r.s.seasonTeams[[2]int64{seasonID, teamID}] = true
	return nil
}

func (r *Seasons) RemoveTeam(_ context.Context, seasonID, teamID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := [2]int64{seasonID, teamID}
	if !r.s.seasonTeams[key] {
		return repository.ErrTeamNotFound
	}
	delete(r.s.seasonTeams, key)
	return nil
}

// ---------------------------------------------------------------------------
// Teams

// Teams implements the team store.
type Teams struct{ s *Store }

func (r *Teams) insert(t model.Team) (*model.Team, error) {
	for _, other := range r.s.teams {
		if sameID(other.ExternalID, t.ExternalID) {
			return nil, fmt.Errorf("%w: teams_external_id_key", repository.ErrConflict)
		}
	}
	t.ID = r.s.nextID()
	t.CreatedAt = r.s.now()
	t.UpdatedAt = t.CreatedAt
	r.s.teams[t.ID] = t
	return &t, nil
}

func (r *Teams) Create(_ context.Context, t *model.Team) (*model.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(*t)
}

func (r *Teams) GetByID(_ context.Context, id int64) (*model.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.teams[id]
	if !ok {
		return nil, repository.ErrTeamNotFound
	}
	return &t, nil
}

func (r *Teams) list(keep func(model.Team) bool) []*model.Team {
	var out []*model.Team
	for _, id := range sortedKeys(r.s.teams) {
		t := r.s.teams[id]
		if keep(t) {
			out = append(out, &t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Teams) List(_ context.Context) ([]*model.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.list(func(model.Team) bool { return true }), nil
}

func (r *Teams) ListBySeason(_ context.Context, seasonID int64) ([]*model.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.list(func(t model.Team) bool { return r.s.seasonTeams[[2]int64{seasonID, t.ID}] }), nil
}

func (r *Teams) Update(_ context.Context, t *model.Team) (*model.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.teams[t.ID]
	if !ok {
		return nil, repository.ErrTeamNotFound
	}
	for id, other := range r.s.teams {
		if id != t.ID && sameID(other.ExternalID, t.ExternalID) {
			return nil, fmt.Errorf("%w: teams_external_id_key", repository.ErrConflict)
		}
	}
	cur.Name, cur.ShortName, cur.Country, cur.ExternalID = t.Name, t.ShortName, t.Country, t.ExternalID
	cur.UpdatedAt = r.s.now()
	r.s.teams[t.ID] = cur
	return &cur, nil
}

func (r *Teams) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[id]; !ok {
		return repository.ErrTeamNotFound
	}
	for _, m := range r.s.matches {
		if m.HomeTeamID == id || m.AwayTeamID == id {
			return fmt.Errorf("%w: matches", repository.ErrInUse)
		}
	}
	for key := range r.s.seasonTeams {
		if key[1] == id {
			return fmt.Errorf("%w: season_teams", repository.ErrInUse)
		}
	}
	delete(r.s.teams, id)
	for pid, p := range r.s.players {
		if sameID(p.TeamID, &id) {
			p.TeamID = nil
			r.s.players[pid] = p
		}
	}
	return nil
}

func (r *Teams) Upsert(_ context.Context, t *model.Team) (*model.Team, error) {
	if t.ExternalID == nil {
		return nil, fmt.Errorf("upsert team %q: external id is required", t.Name)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, cur := range r.s.teams {
		if sameID(cur.ExternalID, t.ExternalID) {
			cur.Name, cur.ShortName, cur.Country = t.Name, t.ShortName, t.Country
			cur.UpdatedAt = r.s.now()
			r.s.teams[id] = cur
			return &cur, nil
		}
	}
	return r.insert(*t)
}

// ---------------------------------------------------------------------------
// Players

// Players implements the player store.
type Players struct{ s *Store }

func (r *Players) check(p model.Player) error {
	if p.TeamID != nil {
		if _, ok := r.s.teams[*p.TeamID]; !ok {
			return fmt.Errorf("%w: players_team_id_fkey", repository.ErrInvalidReference)
		}
	}
	for id, other := range r.s.players {
		if id != p.ID && sameID(other.ExternalID, p.ExternalID) {
			return fmt.Errorf("%w: players_external_id_key", repository.ErrConflict)
		}
	}
	return nil
}

func (r *Players) insert(p model.Player) (*model.Player, error) {
	p.ID = 0
	if err := r.check(p); err != nil {
		return nil, err
	}
	p.ID = r.s.nextID()
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	r.s.players[p.ID] = p
	return &p, nil
}

func (r *Players) Create(_ context.Context, p *model.Player) (*model.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(*p)
}

func (r *Players) GetByID(_ context.Context, id int64) (*model.Player, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	return &p, nil
}

func (r *Players) GetMany(_ context.Context, ids []int64) (map[int64]*model.Player, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[int64]*model.Player, len(ids))
	for _, id := range ids {
		if p, ok := r.s.players[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (r *Players) ListByTeam(_ context.Context, teamID int64) ([]*model.Player, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Player
	for _, id := range sortedKeys(r.s.players) {
		p := r.s.players[id]
		if sameID(p.TeamID, &teamID) {
			out = append(out, &p)
		}
	}
	shirt := func(p *model.Player) int {
		if p.ShirtNumber == nil {
			return 1 << 30
		}
		return *p.ShirtNumber
	}
	sort.SliceStable(out, func(i, j int) bool { return shirt(out[i]) < shirt(out[j]) })
	return out, nil
}

func (r *Players) Update(_ context.Context, p *model.Player) (*model.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.players[p.ID]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	if err := r.check(*p); err != nil {
		return nil, err
	}
	out := *p
	out.CreatedAt = cur.CreatedAt
	out.UpdatedAt = r.s.now()
	r.s.players[p.ID] = out
	return &out, nil
}

func (r *Players) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.players[id]; !ok {
		return repository.ErrPlayerNotFound
	}
	for _, entries := range r.s.roster {
		for _, e := range entries {
			if e.PlayerID == id {
				return fmt.Errorf("%w: match_roster", repository.ErrInUse)
			}
		}
	}
	for _, events := range r.s.events {
		for _, e := range events {
			if sameID(e.PlayerID, &id) || sameID(e.RelatedPlayerID, &id) {
				return fmt.Errorf("%w: match_events", repository.ErrInUse)
			}
		}
	}
	delete(r.s.players, id)
	return nil
}

func (r *Players) Upsert(_ context.Context, p *model.Player) (*model.Player, error) {
	if p.ExternalID == nil {
		return nil, fmt.Errorf("upsert player %q: external id is required", p.LastName)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, cur := range r.s.players {
		if sameID(cur.ExternalID, p.ExternalID) {
			out := *p
			out.ID = id
			if out.BirthDate == nil {
				out.BirthDate = cur.BirthDate
			}
			if err := r.check(out); err != nil {
				return nil, err
			}
			out.CreatedAt = cur.CreatedAt
			out.UpdatedAt = r.s.now()
			r.s.players[id] = out
			return &out, nil
		}
	}
	return r.insert(*p)
}

// ---------------------------------------------------------------------------
// Matches

// Matches implements the match store.
type Matches struct{ s *Store }

func (r *Matches) check(m model.Match) error {
	if m.HomeTeamID == m.AwayTeamID {
		return fmt.Errorf("%w: matches_check", repository.ErrInvalidReference)
	}
	for _, team := range []int64{m.HomeTeamID, m.AwayTeamID} {
		if _, ok := r.s.teams[team]; !ok {
			return fmt.Errorf("%w: matches_team_fkey", repository.ErrInvalidReference)
		}
	}
	if m.SeasonID != nil {
		if _, ok := r.s.seasons[*m.SeasonID]; !ok {
			return fmt.Errorf("%w: matches_season_id_fkey", repository.ErrInvalidReference)
		}
	}
	if m.NarratorID != nil {
		if _, ok := r.s.users[*m.NarratorID]; !ok {
			return fmt.Errorf("%w: matches_narrator_id_fkey", repository.ErrInvalidReference)
		}
	}
	for id, other := range r.s.matches {
		if id != m.ID && sameID(other.ExternalID, m.ExternalID) {
			return fmt.Errorf("%w: matches_external_id_key", repository.ErrConflict)
		}
	}
	return nil
}

func (r *Matches) insert(m model.Match) (*model.Match, error) {
	m.ID = 0
	if err := r.check(m); err != nil {
		return nil, err
	}
	m.ID = r.s.nextID()
	m.Status = model.MatchScheduled
	m.Period = model.PeriodPreMatch
	m.ClockRunning = false
	m.RunningSince = nil
	m.PeriodElapsedMs = 0
	m.PeriodStartedAt = nil
	m.HomeScore, m.AwayScore, m.HomeShootout, m.AwayShootout = 0, 0, 0, 0
	m.Version = 1
	m.CreatedAt = r.s.now()
	m.UpdatedAt = m.CreatedAt
	r.s.matches[m.ID] = m
	return &m, nil
}

func (r *Matches) Create(_ context.Context, m *model.Match) (*model.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(*m)
}

func (r *Matches) GetByID(_ context.Context, id int64) (*model.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repository.ErrMatchNotFound
	}
	return &m, nil
}

func (r *Matches) List(_ context.Context, f model.MatchFilter) ([]*model.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Match
	for _, id := range sortedKeys(r.s.matches) {
		m := r.s.matches[id]
		if f.SeasonID != 0 && !sameID(m.SeasonID, &f.SeasonID) {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.NarratorID != 0 && !sameID(m.NarratorID, &f.NarratorID) {
			continue
		}
		out = append(out, &m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].KickoffAt.Before(out[j].KickoffAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *Matches) Update(_ context.Context, m *model.Match) (*model.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.matches[m.ID]
	if !ok {
		return nil, repository.ErrMatchNotFound
	}
	if cur.Version != m.Version {
		return nil, repository.ErrStale
	}
	if cur.Status != model.MatchScheduled {
		return nil, repository.ErrNotEditable
	}
	cur.SeasonID, cur.HomeTeamID, cur.AwayTeamID = m.SeasonID, m.HomeTeamID, m.AwayTeamID
	cur.KickoffAt, cur.Venue, cur.Round = m.KickoffAt, m.Venue, m.Round
	cur.PeriodMinutes, cur.ExtraPeriodMinutes = m.PeriodMinutes, m.ExtraPeriodMinutes
	cur.HasExtraTime, cur.HasPenalties = m.HasExtraTime, m.HasPenalties
	if err := r.check(cur); err != nil {
		return nil, err
	}
	cur.Version++
	cur.UpdatedAt = r.s.now()
	r.s.matches[m.ID] = cur
	return &cur, nil
}

func (r *Matches) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repository.ErrMatchNotFound
	}
	if m.Status != model.MatchScheduled {
		return repository.ErrNotEditable
	}
	delete(r.s.matches, id)
	delete(r.s.periods, id)
	delete(r.s.roster, id)
	delete(r.s.events, id)
	return nil
}

func (r *Matches) AssignNarrator(_ context.Context, id int64, narratorID *int64) (*model.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repository.ErrMatchNotFound
	}
	m.NarratorID = narratorID
	if err := r.check(m); err != nil {
		return nil, err
	}
	m.UpdatedAt = r.s.now()
	r.s.matches[id] = m
	return &m, nil
}

func (r *Matches) Upsert(_ context.Context, m *model.Match) (*model.Match, error) {
	if m.ExternalID == nil {
		return nil, fmt.Errorf("upsert match: external id is required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, cur := range r.s.matches {
		if !sameID(cur.ExternalID, m.ExternalID) {
			continue
		}
		if cur.Status != model.MatchScheduled {
			return &cur, nil
		}
		cur.SeasonID, cur.HomeTeamID, cur.AwayTeamID = m.SeasonID, m.HomeTeamID, m.AwayTeamID
		cur.KickoffAt, cur.Venue, cur.Round = m.KickoffAt, m.Venue, m.Round
		if err := r.check(cur); err != nil {
			return nil, err
		}
		cur.Version++
		cur.UpdatedAt = r.s.now()
		r.s.matches[id] = cur
		return &cur, nil
	}
	return r.insert(*m)
}

func (r *Matches) SaveClock(_ context.Context, m *model.Match, ended, started *model.MatchPeriodLog, events []*model.MatchEvent) (*model.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.matches[m.ID]
	if !ok {
		return nil, repository.ErrMatchNotFound
	}
	if cur.Version != m.Version {
		return nil, repository.ErrStale
	}
	for _, e := range events {
		if r.s.Events.findClient(e.MatchID, e.ClientID) != nil {
			return nil, fmt.Errorf("%w: client id %s", repository.ErrConflict, e.ClientID)
		}
	}

	cur.Status, cur.Period = m.Status, m.Period
	cur.ClockRunning, cur.RunningSince = m.ClockRunning, m.RunningSince
	cur.PeriodElapsedMs, cur.PeriodStartedAt = m.PeriodElapsedMs, m.PeriodStartedAt
	cur.Version++
	cur.UpdatedAt = r.s.now()
	r.s.matches[m.ID] = cur

	logs := r.s.periods[m.ID]
	if ended != nil {
		for i := range logs {
			if logs[i].Period == ended.Period {
				logs[i].EndedAt = ended.EndedAt
				logs[i].ElapsedMs = ended.ElapsedMs
			}
		}
	}
	if started != nil {
		replaced := false
		for i := range logs {
			if logs[i].Period == started.Period {
				logs[i].StartedAt, logs[i].EndedAt, logs[i].ElapsedMs = started.StartedAt, nil, 0
				replaced = true
			}
		}
		if !replaced {
			logs = append(logs, model.MatchPeriodLog{
				ID: r.s.nextID(), MatchID: m.ID, Period: started.Period, StartedAt: started.StartedAt,
			})
		}
	}
	r.s.periods[m.ID] = logs

	for _, e := range events {
		r.s.Events.insert(e)
	}
	return &cur, nil
}

func (r *Matches) ListPeriods(_ context.Context, matchID int64) ([]*model.MatchPeriodLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.MatchPeriodLog
	for _, p := range r.s.periods[matchID] {
		p := p
		out = append(out, &p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// ---------------------------------------------------------------------------
// Roster

// Roster implements the roster store.
type Roster struct{ s *Store }

func (r *Roster) ListByMatch(_ context.Context, matchID int64) ([]model.RosterEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := append([]model.RosterEntry(nil), r.s.roster[matchID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TeamID != out[j].TeamID {
			return out[i].TeamID < out[j].TeamID
		}
		if out[i].Role != out[j].Role {
			return out[i].Role == model.RosterStarter
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out, nil
}

func (r *Roster) ReplaceTeam(_ context.Context, matchID, teamID int64, entries []model.RosterEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.matches[matchID]; !ok {
		return fmt.Errorf("%w: match_roster_match_id_fkey", repository.ErrInvalidReference)
	}
	var kept []model.RosterEntry
	for _, e := range r.s.roster[matchID] {
		if e.TeamID != teamID {
			kept = append(kept, e)
		}
	}
	seen := map[int64]bool{}
	for _, e := range kept {
		seen[e.PlayerID] = true
	}
	for _, e := range entries {
		if _, ok := r.s.players[e.PlayerID]; !ok {
			return fmt.Errorf("%w: match_roster_player_id_fkey", repository.ErrInvalidReference)
		}
		if seen[e.PlayerID] {
			return fmt.Errorf("%w: match_roster_pkey", repository.ErrConflict)
		}
		seen[e.PlayerID] = true
		e.MatchID, e.TeamID = matchID, teamID
		kept = append(kept, e)
	}
	r.s.roster[matchID] = kept
	return nil
}

func (r *Roster) UpdatePosition(_ context.Context, matchID, playerID int64, x, y float64) (model.RosterEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entries := r.s.roster[matchID]
	for i := range entries {
		if entries[i].PlayerID == playerID {
			entries[i].PosX, entries[i].PosY = &x, &y
			return entries[i], nil
		}
	}
	return model.RosterEntry{}, repository.ErrRosterEntryNotFound
}

// ---------------------------------------------------------------------------
// Events

// Events implements the event store.
type Events struct{ s *Store }

func (r *Events) findClient(matchID int64, clientID uuid.UUID) *model.MatchEvent {
	for i, e := range r.s.events[matchID] {
		if e.ClientID == clientID {
			return &r.s.events[matchID][i]
		}
	}
	return nil
}

func (r *Events) find(matchID, id int64) *model.MatchEvent {
	for i, e := range r.s.events[matchID] {
		if e.ID == id {
			return &r.s.events[matchID][i]
		}
	}
	return nil
}

func (r *Events) insert(e *model.MatchEvent) {
	if e.ClientID == uuid.Nil {
		e.ClientID = uuid.New()
	}
	e.ID = r.s.nextID()
	e.CreatedAt = r.s.now()
	e.UpdatedAt = e.CreatedAt
	e.DeletedAt, e.DeletedBy = nil, nil
	r.s.events[e.MatchID] = append(r.s.events[e.MatchID], *e)
}

func (r *Events) setScore(matchID int64, score model.MatchScore) error {
	m, ok := r.s.matches[matchID]
	if !ok {
		return repository.ErrMatchNotFound
	}
	m.HomeScore, m.AwayScore, m.HomeShootout, m.AwayShootout = score.Home, score.Away, score.HomeShootout, score.AwayShootout
	m.UpdatedAt = r.s.now()
	r.s.matches[matchID] = m
	return nil
}

func (r *Events) Insert(_ context.Context, e *model.MatchEvent, score model.MatchScore) (*model.MatchEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.matches[e.MatchID]; !ok {
		return nil, repository.ErrMatchNotFound
	}
	if e.ClientID != uuid.Nil && r.findClient(e.MatchID, e.ClientID) != nil {
		return nil, fmt.Errorf("%w: client id %s", repository.ErrConflict, e.ClientID)
	}
	out := *e
	r.insert(&out)
	if err := r.setScore(e.MatchID, score); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Events) Update(_ context.Context, e *model.MatchEvent, score model.MatchScore) (*model.MatchEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur := r.find(e.MatchID, e.ID)
	if cur == nil {
		return nil, repository.ErrEventNotFound
	}
	cur.Type, cur.Period, cur.Minute, cur.Stoppage, cur.ElapsedSeconds = e.Type, e.Period, e.Minute, e.Stoppage, e.ElapsedSeconds
	cur.TeamID, cur.PlayerID, cur.RelatedPlayerID, cur.Detail = e.TeamID, e.PlayerID, e.RelatedPlayerID, e.Detail
	cur.UpdatedAt = r.s.now()
	out := *cur
	if err := r.setScore(e.MatchID, score); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Events) SetDeleted(_ context.Context, e *model.MatchEvent, score model.MatchScore) (*model.MatchEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur := r.find(e.MatchID, e.ID)
	if cur == nil || cur.System {
		return nil, repository.ErrEventNotFound
	}
	cur.DeletedAt, cur.DeletedBy = e.DeletedAt, e.DeletedBy
	cur.UpdatedAt = r.s.now()
	out := *cur
	if err := r.setScore(e.MatchID, score); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Events) GetByID(_ context.Context, matchID, id int64) (*model.MatchEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e := r.find(matchID, id)
	if e == nil {
		return nil, repository.ErrEventNotFound
	}
	out := *e
	return &out, nil
}

func (r *Events) GetByClientID(_ context.Context, matchID int64, clientID uuid.UUID) (*model.MatchEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e := r.findClient(matchID, clientID)
	if e == nil {
		return nil, repository.ErrEventNotFound
	}
	out := *e
	return &out, nil
}

func (r *Events) ListByMatch(_ context.Context, matchID int64, includeDeleted bool) ([]model.MatchEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.MatchEvent
	for _, e := range r.s.events[matchID] {
		if includeDeleted || !e.Deleted() {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Audit

// Audit implements the audit store.
type Audit struct{ s *Store }

func (r *Audit) Create(_ context.Context, e *model.AuditEntry) (*model.AuditEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := *e
	if len(out.Details) == 0 {
		out.Details = []byte(`{}`)
	}
	out.ID = r.s.nextID()
	out.CreatedAt = r.s.now()
	r.s.audit = append(r.s.audit, out)
	return &out, nil
}

func (r *Audit) List(_ context.Context, f model.AuditFilter) ([]*model.AuditEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*model.AuditEntry
	for i := len(r.s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.s.audit[i]
		if f.Entity != "" && e.Entity != f.Entity {
			continue
		}
		if f.EntityID != 0 && e.EntityID != f.EntityID {
			continue
		}
		if f.ActorID != 0 && !sameID(e.ActorID, &f.ActorID) {
			continue
		}
		out = append(out, &e)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Users

// Users implements the user store.
type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, username, passwordHash string, role model.Role) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return nil, fmt.Errorf("%w: users_username_key", repository.ErrConflict)
		}
	}
	u := model.User{ID: r.s.nextID(), Username: username, PasswordHash: passwordHash, Role: role, CreatedAt: r.s.now()}
	r.s.users[u.ID] = u
	return &u, nil
}

func (r *Users) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *Users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *Users) List(_ context.Context) ([]*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.User
	for _, id := range sortedKeys(r.s.users) {
		u := r.s.users[id]
		out = append(out, &u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *Users) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users), nil
}

// ---------------------------------------------------------------------------
// Import runs

// ImportRuns implements the import run store.
type ImportRuns struct{ s *Store }

func (r *ImportRuns) Start(_ context.Context, id uuid.UUID, source model.ImportSource, startedBy *int64) (*model.ImportRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.importRuns[id]; ok {
		return nil, fmt.Errorf("%w: import_runs_pkey", repository.ErrConflict)
	}
	run := model.ImportRun{ID: id, Source: source, Status: model.ImportRunning, StartedBy: startedBy, StartedAt: r.s.now()}
	r.s.importRuns[id] = run
	return &run, nil
}

func (r *ImportRuns) Finish(_ context.Context, run *model.ImportRun) (*model.ImportRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.importRuns[run.ID]
	if !ok {
		return nil, repository.ErrImportRunNotFound
	}
	now := r.s.now()
	cur.Status, cur.Counts, cur.Error, cur.FinishedAt = run.Status, run.Counts, run.Error, &now
	r.s.importRuns[run.ID] = cur
	return &cur, nil
}

func (r *ImportRuns) GetByID(_ context.Context, id uuid.UUID) (*model.ImportRun, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	run, ok := r.s.importRuns[id]
	if !ok {
		return nil, repository.ErrImportRunNotFound
	}
	return &run, nil
}

func (r *ImportRuns) List(_ context.Context, limit int) ([]*model.ImportRun, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	var out []*model.ImportRun
	for _, run := range r.s.importRuns {
		run := run
		out = append(out, &run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
