package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"match-narrator/internal/matchclock"
	"match-narrator/internal/model"
	"match-narrator/internal/timeline"
)

// ExportService builds match reports.
type ExportService struct {
	matches MatchStore
	teams   TeamStore
	seasons SeasonStore
	players PlayerStore
	events  EventStore
	roster  *RosterService
	now     Clock
}

// NewExportService creates a new ExportService instance.
func NewExportService(stores Stores, roster *RosterService, now Clock) *ExportService {
	if now == nil {
		now = time.Now
	}
	return &ExportService{
		matches: stores.Matches,
		teams:   stores.Teams,
		seasons: stores.Seasons,
		players: stores.Players,
		events:  stores.Events,
		roster:  roster,
		now:     now,
	}
}

// ReportEvent is a timeline entry with names resolved.
type ReportEvent struct {
	ID             int64           `json:"id"`
	Type           model.EventType `json:"type"`
	Period         model.Period    `json:"period"`
	Minute         string          `json:"minute"`
	Team           string          `json:"team,omitempty"`
	Player         string          `json:"player,omitempty"`
	RelatedPlayer  string          `json:"related_player,omitempty"`
	Detail         string          `json:"detail,omitempty"`
	System         bool            `json:"system"`
	ScoreAfterHome int             `json:"score_home"`
	ScoreAfterAway int             `json:"score_away"`
}

// MatchReport is the exported record of a match.
type MatchReport struct {
	Match       *model.Match            `json:"match"`
	Season      *model.Season           `json:"season,omitempty"`
	HomeTeam    *model.Team             `json:"home_team"`
	AwayTeam    *model.Team             `json:"away_team"`
	Score       model.MatchScore        `json:"score"`
	Periods     []*model.MatchPeriodLog `json:"periods"`
	Lineup      *Lineup                 `json:"lineup"`
	Events      []ReportEvent           `json:"events"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// Report assembles the report of a match from its non-deleted timeline.
func (s *ExportService) Report(ctx context.Context, matchID int64) (*MatchReport, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	r := &MatchReport{Match: m, Score: m.Score(), GeneratedAt: s.now().UTC()}

	if r.HomeTeam, err = s.teams.GetByID(ctx, m.HomeTeamID); err != nil {
		return nil, err
	}
	if r.AwayTeam, err = s.teams.GetByID(ctx, m.AwayTeamID); err != nil {
		return nil, err
	}
	if m.SeasonID != nil {
		if r.Season, err = s.seasons.GetByID(ctx, *m.SeasonID); err != nil {
			return nil, err
		}
	}
	if r.Periods, err = s.matches.ListPeriods(ctx, matchID); err != nil {
		return nil, err
	}
	if r.Lineup, err = s.roster.Lineup(ctx, matchID); err != nil {
		return nil, err
	}

	events, err := s.events.ListByMatch(ctx, matchID, false)
	if err != nil {
		return nil, err
	}
	timeline.Sort(events)

	var ids []int64
	for _, e := range events {
		for _, id := range []*int64{e.PlayerID, e.RelatedPlayerID} {
			if id != nil {
				ids = append(ids, *id)
			}
		}
	}
	players, err := s.players.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	name := func(id *int64) string {
		if id == nil {
			return ""
		}
		if p := players[*id]; p != nil {
			return p.DisplayName()
		}
		return fmt.Sprintf("#%d", *id)
	}

	var running timeline.Score
	for _, e := range events {
		running = scoreAfter(running, m, &e)
		re := ReportEvent{
			ID:             e.ID,
			Type:           e.Type,
			Period:         e.Period,
			Minute:         matchclock.FormatMinute(e.Minute, e.Stoppage),
			Player:         name(e.PlayerID),
			RelatedPlayer:  name(e.RelatedPlayerID),
			Detail:         e.Detail,
			System:         e.System,
			ScoreAfterHome: running.Home,
			ScoreAfterAway: running.Away,
		}
		if e.TeamID != nil {
			switch *e.TeamID {
			case m.HomeTeamID:
				re.Team = r.HomeTeam.Name
			case m.AwayTeamID:
				re.Team = r.AwayTeam.Name
			}
		}
		r.Events = append(r.Events, re)
	}
	return r, nil
}

// scoreAfter advances the running score over one event for the report.
func scoreAfter(s timeline.Score, m *model.Match, e *model.MatchEvent) timeline.Score {
	if e.TeamID == nil {
		return s
	}
	team := *e.TeamID
	switch e.Type {
	case model.EventGoal, model.EventPenaltyGoal:
	case model.EventOwnGoal:
		team = m.Opponent(team)
	default:
		return s
	}
	if team == m.HomeTeamID {
		s.Home++
	} else {
		s.Away++
	}
	return s
}

// Sheet names of the match workbook.
const (
	SheetSummary  = "Summary"
	SheetTimeline = "Timeline"
	SheetLineups  = "Lineups"
)

// WriteXLSX renders the report of a match as a workbook.
func (s *ExportService) WriteXLSX(ctx context.Context, matchID int64, w io.Writer) error {
	r, err := s.Report(ctx, matchID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	for _, name := range []string{SheetTimeline, SheetLineups} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeSummary(f, r, bold); err != nil {
		return err
	}
	if err := writeTimeline(f, r, bold); err != nil {
		return err
	}
	if err := writeLineups(f, r, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, r *MatchReport, bold int) error {
	m := r.Match
	rows := [][]any{
		{"Match", fmt.Sprintf("%s vs %s", r.HomeTeam.Name, r.AwayTeam.Name)},
		{"Kickoff", m.KickoffAt.UTC().Format(time.RFC3339)},
		{"Venue", m.Venue},
		{"Round", m.Round},
		{"Status", string(m.Status)},
		{"Score", fmt.Sprintf("%d-%d", r.Score.Home, r.Score.Away)},
	}
	if r.Season != nil {
		rows = append(rows, []any{"Season", r.Season.Name})
	}
	if r.Score.HomeShootout+r.Score.AwayShootout > 0 {
		rows = append(rows, []any{"Penalties", fmt.Sprintf("%d-%d", r.Score.HomeShootout, r.Score.AwayShootout)})
	}
	rows = append(rows, []any{}, []any{"Period", "Started", "Ended", "Played (s)"})
	header := len(rows)
	for _, p := range r.Periods {
		ended := ""
		if p.EndedAt != nil {
			ended = p.EndedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []any{string(p.Period), p.StartedAt.UTC().Format(time.RFC3339), ended, p.ElapsedMs / 1000})
	}

	if err := setRows(f, SheetSummary, rows); err != nil {
		return err
	}
	if err := f.SetColStyle(SheetSummary, "A", bold); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetSummary, header, header, bold); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "D", 24)
}

func writeTimeline(f *excelize.File, r *MatchReport, bold int) error {
	rows := [][]any{{"Minute", "Period", "Type", "Team", "Player", "Related player", "Detail", "Score"}}
	for _, e := range r.Events {
		rows = append(rows, []any{
			e.Minute, string(e.Period), string(e.Type), e.Team, e.Player, e.RelatedPlayer, e.Detail,
			fmt.Sprintf("%d-%d", e.ScoreAfterHome, e.ScoreAfterAway),
		})
	}
	if err := setRows(f, SheetTimeline, rows); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetTimeline, 1, 1, bold); err != nil {
		return err
	}
	return f.SetColWidth(SheetTimeline, "C", "G", 18)
}

func writeLineups(f *excelize.File, r *MatchReport, bold int) error {
	rows := [][]any{{"Team", "Shirt", "Player", "Position", "Starter", "Captain", "Status", "Yellow cards"}}
	for _, tl := range []struct {
		name string
		team TeamLineup
	}{{r.HomeTeam.Name, r.Lineup.Home}, {r.AwayTeam.Name, r.Lineup.Away}} {
		groups := [][]LineupPlayer{tl.team.OnField, tl.team.SubstitutedOff, tl.team.SentOff, tl.team.Bench}
		for _, group := range groups {
			for _, p := range group {
				shirt := ""
				if p.ShirtNumber != nil {
					shirt = fmt.Sprint(*p.ShirtNumber)
				}
				rows = append(rows, []any{tl.name, shirt, p.Name, p.Position, p.Starter, p.Captain, string(p.Status), p.YellowCards})
			}
		}
	}
	if err := setRows(f, SheetLineups, rows); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetLineups, 1, 1, bold); err != nil {
		return err
	}
	return f.SetColWidth(SheetLineups, "A", "C", 22)
}
