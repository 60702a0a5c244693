package timeline

import "match-narrator/internal/model"

func playing(p model.Period) bool { return p.Playing() }

// live periods in which the referee can still act: everything between kickoff
// and full time, breaks included.
func inMatch(p model.Period) bool {
	return p.Playing() || p.Break() || p == model.PeriodPenalties
}

// Substitutions happen while play runs or during an interval.
func substitutionWindow(p model.Period) bool {
	return p.Playing() || p.Break()
}

func shootout(p model.Period) bool { return p == model.PeriodPenalties }

func builtinKinds() []Kind {
	return []Kind{
		&rule{typ: model.EventGoal, desc: "Goal", team: Required, player: Required, related: Optional,
			periods: playing, effect: scored(false)},
		&rule{typ: model.EventPenaltyGoal, desc: "Penalty goal", team: Required, player: Required,
			periods: playing, effect: scored(false)},
		&rule{typ: model.EventOwnGoal, desc: "Own goal", team: Required, player: Required,
			periods: playing, effect: scored(true)},
		&rule{typ: model.EventPenaltyMissed, desc: "Penalty missed", team: Required, player: Required,
			periods: playing, effect: onField},

		&rule{typ: model.EventYellowCard, desc: "Yellow card", team: Required, player: Required,
			periods: inMatch, effect: yellowCard},
		&rule{typ: model.EventSecondYellow, desc: "Second yellow card", team: Required, player: Required,
			periods: inMatch, effect: secondYellow},
		&rule{typ: model.EventRedCard, desc: "Red card", team: Required, player: Required,
			periods: inMatch, effect: redCard},
		&rule{typ: model.EventSubstitution, desc: "Substitution", team: Required, player: Required, related: Required,
			periods: substitutionWindow, effect: substitution},

		&rule{typ: model.EventShot, desc: "Shot", team: Required, player: Optional, periods: playing, effect: onFieldIfSet},
		&rule{typ: model.EventShotOnTarget, desc: "Shot on target", team: Required, player: Optional, periods: playing, effect: onFieldIfSet},
		&rule{typ: model.EventCorner, desc: "Corner", team: Required, player: Optional, periods: playing, effect: onFieldIfSet},
		&rule{typ: model.EventFoul, desc: "Foul", team: Required, player: Optional, related: Optional, periods: playing, effect: onFieldIfSet},
		&rule{typ: model.EventOffside, desc: "Offside", team: Required, player: Optional, periods: playing, effect: onFieldIfSet},
		&rule{typ: model.EventSave, desc: "Save", team: Required, player: Optional, periods: playing, effect: onFieldIfSet},
		&rule{typ: model.EventInjury, desc: "Injury", team: Required, player: Optional, periods: inMatch, effect: inRosterIfSet},

		&rule{typ: model.EventVARReview, desc: "VAR review", team: Optional, periods: inMatch, effect: teamInMatch},
		&rule{typ: model.EventComment, desc: "Comment", team: Optional, player: Optional, periods: inMatch, effect: inRosterIfSet},

		&rule{typ: model.EventShootoutGoal, desc: "Shootout goal", team: Required, player: Optional,
			periods: shootout, effect: shootoutKick(true)},
		&rule{typ: model.EventShootoutMiss, desc: "Shootout miss", team: Required, player: Optional,
			periods: shootout, effect: shootoutKick(false)},

		&rule{typ: model.EventPeriodStart, desc: "Period start", system: true},
		&rule{typ: model.EventPeriodEnd, desc: "Period end", system: true},
	}
}

// scored credits a goal. For own goals the player belongs to the event team
// and the goal counts for the opponent.
func scored(own bool) func(*State, *model.MatchEvent) error {
	return func(s *State, e *model.MatchEvent) error {
		if err := s.requireOnField(*e.PlayerID, *e.TeamID); err != nil {
			return err
		}
		if e.RelatedPlayerID != nil {
			if err := s.requireOnField(*e.RelatedPlayerID, *e.TeamID); err != nil {
				return err
			}
		}
		team := *e.TeamID
		if own {
			team = s.match.Opponent(team)
		}
		s.Score.add(s.match, team)
		return nil
	}
}

func onField(s *State, e *model.MatchEvent) error {
	return s.requireOnField(*e.PlayerID, *e.TeamID)
}

func onFieldIfSet(s *State, e *model.MatchEvent) error {
	if e.PlayerID == nil {
		return s.requireTeam(*e.TeamID)
	}
	return s.requireOnField(*e.PlayerID, *e.TeamID)
}

func inRosterIfSet(s *State, e *model.MatchEvent) error {
	if e.TeamID != nil {
		if err := s.requireTeam(*e.TeamID); err != nil {
			return err
		}
	}
	if e.PlayerID == nil {
		return nil
	}
	p, err := s.player(*e.PlayerID)
	if err != nil {
		return err
	}
	if e.TeamID != nil && p.TeamID != *e.TeamID {
		return ErrWrongTeam
	}
	return nil
}

func teamInMatch(s *State, e *model.MatchEvent) error {
	if e.TeamID == nil {
		return nil
	}
	return s.requireTeam(*e.TeamID)
}

func yellowCard(s *State, e *model.MatchEvent) error {
	p, err := s.bookable(*e.PlayerID, *e.TeamID)
	if err != nil {
		return err
	}
	if p.Yellows > 0 {
		return ErrAlreadyBooked
	}
	p.Yellows++
	return nil
}

func secondYellow(s *State, e *model.MatchEvent) error {
	p, err := s.bookable(*e.PlayerID, *e.TeamID)
	if err != nil {
		return err
	}
	if p.Yellows == 0 {
		return ErrNotBooked
	}
	p.Yellows++
	p.Status = StatusSentOff
	return nil
}

func redCard(s *State, e *model.MatchEvent) error {
	p, err := s.bookable(*e.PlayerID, *e.TeamID)
	if err != nil {
		return err
	}
	p.Status = StatusSentOff
	return nil
}

func substitution(s *State, e *model.MatchEvent) error {
	if err := s.requireOnField(*e.PlayerID, *e.TeamID); err != nil {
		return err
	}
	in, err := s.player(*e.RelatedPlayerID)
	if err != nil {
		return err
	}
	if in.TeamID != *e.TeamID {
		return ErrWrongTeam
	}
	if in.Status != StatusBench {
		return ErrPlayerNotOnBench
	}
	s.players[*e.PlayerID].Status = StatusSubstitutedOff
	in.Status = StatusOnField
	return nil
}

func shootoutKick(goal bool) func(*State, *model.MatchEvent) error {
	return func(s *State, e *model.MatchEvent) error {
		if err := onFieldIfSet(s, e); err != nil {
			return err
		}
		if goal {
			s.Score.addShootout(s.match, *e.TeamID)
		}
		return nil
	}
}
