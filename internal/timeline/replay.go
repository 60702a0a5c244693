package timeline

import (
	"fmt"
	"sort"

	"match-narrator/internal/matchclock"
	"match-narrator/internal/model"
)

// PlayerStatus is where a rostered player stands at a point of the timeline.
type PlayerStatus string

// Player statuses.
const (
	StatusOnField        PlayerStatus = "on_field"
	StatusBench          PlayerStatus = "bench"
	StatusSubstitutedOff PlayerStatus = "substituted_off"
	StatusSentOff        PlayerStatus = "sent_off"
)

// PlayerState tracks one rostered player during replay.
type PlayerState struct {
	PlayerID int64        `json:"player_id"`
	TeamID   int64        `json:"team_id"`
	Status   PlayerStatus `json:"status"`
	Yellows  int          `json:"yellow_cards"`
}

// Score is the result derived from the timeline.
type Score struct {
	Home         int `json:"home"`
	Away         int `json:"away"`
	HomeShootout int `json:"home_shootout"`
	AwayShootout int `json:"away_shootout"`
}

func (s *Score) add(m *model.Match, teamID int64) {
	if teamID == m.HomeTeamID {
		s.Home++
	} else {
		s.Away++
	}
}

func (s *Score) addShootout(m *model.Match, teamID int64) {
	if teamID == m.HomeTeamID {
		s.HomeShootout++
	} else {
		s.AwayShootout++
	}
}

// State is the match situation after replaying a prefix of the timeline.
type State struct {
	Score   Score
	match   *model.Match
	players map[int64]*PlayerState
}

// NewState seeds a state from the roster: starters on the field, the rest on
// the bench.
func NewState(m *model.Match, roster []model.RosterEntry) *State {
	s := &State{match: m, players: make(map[int64]*PlayerState, len(roster))}
	for _, r := range roster {
		status := StatusBench
		if r.Role == model.RosterStarter {
			status = StatusOnField
		}
		s.players[r.PlayerID] = &PlayerState{PlayerID: r.PlayerID, TeamID: r.TeamID, Status: status}
	}
	return s
}

// Player returns the state of a rostered player.
func (s *State) Player(id int64) (PlayerState, bool) {
	p, ok := s.players[id]
	if !ok {
		return PlayerState{}, false
	}
	return *p, true
}

// Players returns every rostered player of a team ordered by id.
func (s *State) Players(teamID int64) []PlayerState {
	var out []PlayerState
	for _, p := range s.players {
		if p.TeamID == teamID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// OnField counts the team's players currently on the pitch.
func (s *State) OnField(teamID int64) int {
	n := 0
	for _, p := range s.players {
		if p.TeamID == teamID && p.Status == StatusOnField {
			n++
		}
	}
	return n
}

func (s *State) player(id int64) (*PlayerState, error) {
	p, ok := s.players[id]
	if !ok {
		return nil, ErrPlayerNotInRoster
	}
	return p, nil
}

func (s *State) requireTeam(teamID int64) error {
	if !s.match.Involves(teamID) {
		return ErrTeamNotInMatch
	}
	return nil
}

func (s *State) requireOnField(playerID, teamID int64) error {
	if err := s.requireTeam(teamID); err != nil {
		return err
	}
	p, err := s.player(playerID)
	if err != nil {
		return err
	}
	if p.TeamID != teamID {
		return ErrWrongTeam
	}
	switch p.Status {
	case StatusOnField:
		return nil
	case StatusSentOff:
		return ErrPlayerSentOff
	}
	return ErrPlayerNotOnField
}

// bookable accepts any rostered player of the team who is still in the match
// or on the bench. Substituted players can still be shown cards.
func (s *State) bookable(playerID, teamID int64) (*PlayerState, error) {
	if err := s.requireTeam(teamID); err != nil {
		return nil, err
	}
	p, err := s.player(playerID)
	if err != nil {
		return nil, err
	}
	if p.TeamID != teamID {
		return nil, ErrWrongTeam
	}
	if p.Status == StatusSentOff {
		return nil, ErrPlayerSentOff
	}
	return p, nil
}

// ReplayError pins a replay failure to the event that caused it.
type ReplayError struct {
	EventID int64
	Type    model.EventType
	Err     error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("event %d (%s): %v", e.EventID, e.Type, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }

// Sort orders events by match time: period, minute, stoppage, elapsed
// seconds, then id so equal timestamps keep insertion order.
func Sort(events []model.MatchEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := &events[i], &events[j]
		if oa, ob := matchclock.Order(a.Period), matchclock.Order(b.Period); oa != ob {
			return oa < ob
		}
		if a.Minute != b.Minute {
			return a.Minute < b.Minute
		}
		if a.Stoppage != b.Stoppage {
			return a.Stoppage < b.Stoppage
		}
		if a.ElapsedSeconds != b.ElapsedSeconds {
			return a.ElapsedSeconds < b.ElapsedSeconds
		}
		return a.ID < b.ID
	})
}

// Replay applies the non-deleted events to the roster in match-time order.
// events is not modified.
func (r *Registry) Replay(m *model.Match, roster []model.RosterEntry, events []model.MatchEvent) (*State, error) {
	ordered := make([]model.MatchEvent, 0, len(events))
	for _, e := range events {
		if !e.Deleted() {
			ordered = append(ordered, e)
		}
	}
	Sort(ordered)

	s := NewState(m, roster)
	for i := range ordered {
		e := &ordered[i]
		if err := r.Check(e); err != nil {
			return nil, &ReplayError{EventID: e.ID, Type: e.Type, Err: err}
		}
		k, _ := r.Get(e.Type)
		if err := k.Apply(s, e); err != nil {
			return nil, &ReplayError{EventID: e.ID, Type: e.Type, Err: err}
		}
	}
	return s, nil
}

// Check runs the state-free checks for one event: known type, field rules and
// period.
func (r *Registry) Check(e *model.MatchEvent) error {
	k, err := r.Lookup(e.Type)
	if err != nil {
		return err
	}
	if err := k.Validate(e); err != nil {
		return err
	}
	if !k.AllowedIn(e.Period) {
		return fmt.Errorf("%w: %s in %s", ErrPeriodNotAllowed, e.Type, e.Period)
	}
	return nil
}
