package service

import (
	"context"
	"fmt"
	"strings"

	"match-narrator/internal/config"
	"match-narrator/internal/model"
	"match-narrator/internal/pkg/lock"
	"match-narrator/internal/timeline"
)

// RosterService manages match rosters and derives lineups from the timeline.
type RosterService struct {
	matches  MatchStore
	players  PlayerStore
	roster   RosterStore
	events   EventStore
	registry *timeline.Registry
	audit    *AuditService
	locks    *lock.KeyLock
	cfg      config.MatchConfig
}

// NewRosterService creates a new RosterService instance.
func NewRosterService(stores Stores, registry *timeline.Registry, audit *AuditService, locks *lock.KeyLock, cfg config.MatchConfig) *RosterService {
	if cfg.MaxStarters <= 0 {
		cfg.MaxStarters = 11
	}
	return &RosterService{
		matches:  stores.Matches,
		players:  stores.Players,
		roster:   stores.Roster,
		events:   stores.Events,
		registry: registry,
		audit:    audit,
		locks:    locks,
		cfg:      cfg,
	}
}

// Get returns the full roster of a match, starters first per team.
func (s *RosterService) Get(ctx context.Context, matchID int64) ([]model.RosterEntry, error) {
	if _, err := s.matches.GetByID(ctx, matchID); err != nil {
		return nil, err
	}
	return s.roster.ListByMatch(ctx, matchID)
}

func validPos(p *float64) bool {
	return p == nil || (*p >= 0 && *p <= 100)
}

func (s *RosterService) validate(ctx context.Context, teamID int64, entries []model.RosterEntry) error {
	starters, captains := 0, 0
	shirts := map[int]int64{}
	seen := map[int64]bool{}
	ids := make([]int64, 0, len(entries))

	for i := range entries {
		e := &entries[i]
		if seen[e.PlayerID] {
			return invalid("player_id", "player %d listed twice", e.PlayerID)
		}
		seen[e.PlayerID] = true
		ids = append(ids, e.PlayerID)

		switch e.Role {
		case model.RosterStarter:
			starters++
		case model.RosterBench:
		case "":
			e.Role = model.RosterBench
		default:
			return invalid("role", "must be starter or bench")
		}
		if e.Captain {
			captains++
		}
		if !validShirt(e.ShirtNumber) {
			return invalid("shirt_number", "must be between 1 and 99")
		}
		if e.ShirtNumber != nil {
			if other, dup := shirts[*e.ShirtNumber]; dup {
				return invalid("shirt_number", "%d is worn by players %d and %d", *e.ShirtNumber, other, e.PlayerID)
			}
			shirts[*e.ShirtNumber] = e.PlayerID
		}
		if !validPos(e.PosX) || !validPos(e.PosY) {
			return invalid("position", "coordinates must be between 0 and 100")
		}
		e.PositionLabel = strings.TrimSpace(e.PositionLabel)
	}
	if starters > s.cfg.MaxStarters {
		return invalid("role", "at most %d starters", s.cfg.MaxStarters)
	}
	if captains > 1 {
		return invalid("captain", "at most one captain")
	}

	players, err := s.players.GetMany(ctx, ids)
	if err != nil {
		return err
	}
	for i := range entries {
		e := &entries[i]
		p, ok := players[e.PlayerID]
		if !ok {
			return invalid("player_id", "player %d does not exist", e.PlayerID)
		}
		if p.TeamID != nil && *p.TeamID != teamID {
			return invalid("player_id", "player %d belongs to another team", e.PlayerID)
		}
		if e.ShirtNumber == nil && p.ShirtNumber != nil {
			n := *p.ShirtNumber
			if _, dup := shirts[n]; !dup {
				e.ShirtNumber = &n
				shirts[n] = e.PlayerID
			}
		}
		if e.PositionLabel == "" {
			e.PositionLabel = string(p.Position)
		}
	}
	return nil
}

// SetTeam replaces one team's roster for a match. Only admins may change a
// roster after kickoff, and the existing timeline must still replay over it.
func (s *RosterService) SetTeam(ctx context.Context, actor Actor, matchID, teamID int64, entries []model.RosterEntry) ([]model.RosterEntry, error) {
	err := s.locks.WithLockContext(ctx, matchID, lockTimeout, func() error {
		m, err := s.matches.GetByID(ctx, matchID)
		if err != nil {
			return err
		}
		if err := CanNarrate(actor, m); err != nil {
			return err
		}
		if !m.Involves(teamID) {
			return invalid("team_id", "team %d does not play in match %d", teamID, matchID)
		}
		if m.Status != model.MatchScheduled && !actor.IsAdmin() {
			return fmt.Errorf("%w: match is %s", ErrRosterLocked, m.Status)
		}
		if err := s.validate(ctx, teamID, entries); err != nil {
			return err
		}

		if m.Status != model.MatchScheduled {
			if err := s.checkTimeline(ctx, m, teamID, entries); err != nil {
				return err
			}
		}
		return s.roster.ReplaceTeam(ctx, matchID, teamID, entries)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, "roster.set", model.EntityRoster, matchID, map[string]any{
		"team_id": teamID,
		"players": len(entries),
	})
	return s.Get(ctx, matchID)
}

// checkTimeline replays the stored timeline over the roster as it would be
// after replacing teamID's entries.
func (s *RosterService) checkTimeline(ctx context.Context, m *model.Match, teamID int64, entries []model.RosterEntry) error {
	current, err := s.roster.ListByMatch(ctx, m.ID)
	if err != nil {
		return err
	}
	next := make([]model.RosterEntry, 0, len(current)+len(entries))
	for _, e := range current {
		if e.TeamID != teamID {
			next = append(next, e)
		}
	}
	for _, e := range entries {
		e.MatchID, e.TeamID = m.ID, teamID
		next = append(next, e)
	}

	events, err := s.events.ListByMatch(ctx, m.ID, false)
	if err != nil {
		return err
	}
	if _, err := s.registry.Replay(m, next, events); err != nil {
		return fmt.Errorf("%w: %w", ErrTimelineConflict, err)
	}
	return nil
}

// UpdatePosition moves a rostered player on the pitch canvas.
func (s *RosterService) UpdatePosition(ctx context.Context, actor Actor, matchID, playerID int64, x, y float64) (model.RosterEntry, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return model.RosterEntry{}, err
	}
	if err := CanNarrate(actor, m); err != nil {
		return model.RosterEntry{}, err
	}
	if !validPos(&x) || !validPos(&y) {
		return model.RosterEntry{}, invalid("position", "coordinates must be between 0 and 100")
	}
	return s.roster.UpdatePosition(ctx, matchID, playerID, x, y)
}

// LineupPlayer is a rostered player with their situation on the timeline.
type LineupPlayer struct {
	PlayerID    int64                 `json:"player_id"`
	Name        string                `json:"name"`
	ShirtNumber *int                  `json:"shirt_number,omitempty"`
	Position    string                `json:"position"`
	Captain     bool                  `json:"captain"`
	Starter     bool                  `json:"starter"`
	Status      timeline.PlayerStatus `json:"status"`
	YellowCards int                   `json:"yellow_cards"`
	PosX        *float64              `json:"pos_x,omitempty"`
	PosY        *float64              `json:"pos_y,omitempty"`
}

// TeamLineup groups one team's players by status.
type TeamLineup struct {
	TeamID         int64          `json:"team_id"`
	Side           string         `json:"side"`
	OnField        []LineupPlayer `json:"on_field"`
	Bench          []LineupPlayer `json:"bench"`
	SubstitutedOff []LineupPlayer `json:"substituted_off"`
	SentOff        []LineupPlayer `json:"sent_off"`
}

// Lineup is the current state of both teams.
type Lineup struct {
	MatchID int64          `json:"match_id"`
	Score   timeline.Score `json:"score"`
	Home    TeamLineup     `json:"home"`
	Away    TeamLineup     `json:"away"`
}

// Lineup replays the non-deleted timeline over the roster.
func (s *RosterService) Lineup(ctx context.Context, matchID int64) (*Lineup, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	roster, err := s.roster.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListByMatch(ctx, matchID, false)
	if err != nil {
		return nil, err
	}
	state, err := s.registry.Replay(m, roster, events)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTimelineConflict, err)
	}
	return s.buildLineup(ctx, m, roster, state)
}

func (s *RosterService) buildLineup(ctx context.Context, m *model.Match, roster []model.RosterEntry, state *timeline.State) (*Lineup, error) {
	ids := make([]int64, 0, len(roster))
	for _, e := range roster {
		ids = append(ids, e.PlayerID)
	}
	players, err := s.players.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := &Lineup{
		MatchID: m.ID,
		Score:   state.Score,
		Home:    TeamLineup{TeamID: m.HomeTeamID, Side: "home"},
		Away:    TeamLineup{TeamID: m.AwayTeamID, Side: "away"},
	}
	for _, e := range roster {
		ps, ok := state.Player(e.PlayerID)
		if !ok {
			continue
		}
		lp := LineupPlayer{
			PlayerID:    e.PlayerID,
			ShirtNumber: e.ShirtNumber,
			Position:    e.PositionLabel,
			Captain:     e.Captain,
			Starter:     e.Role == model.RosterStarter,
			Status:      ps.Status,
			YellowCards: ps.Yellows,
			PosX:        e.PosX,
			PosY:        e.PosY,
		}
		if p := players[e.PlayerID]; p != nil {
			lp.Name = p.DisplayName()
		}

		team := &out.Home
		if e.TeamID == m.AwayTeamID {
			team = &out.Away
		}
		switch ps.Status {
		case timeline.StatusOnField:
			team.OnField = append(team.OnField, lp)
		case timeline.StatusBench:
			team.Bench = append(team.Bench, lp)
		case timeline.StatusSubstitutedOff:
			team.SubstitutedOff = append(team.SubstitutedOff, lp)
		case timeline.StatusSentOff:
			team.SentOff = append(team.SentOff, lp)
		}
	}
	return out, nil
}
