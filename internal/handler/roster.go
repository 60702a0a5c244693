package handler

import (
	"net/http"

	"match-narrator/internal/model"
)

func (s *Server) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.svc.Roster.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type rosterRequest struct {
	Players []model.RosterEntry `json:"players"`
}

// handleSetRoster replaces one team's squad list for the match.
func (s *Server) handleSetRoster(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	teamID, err := idParam(r, "teamID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req rosterRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.svc.Roster.SetTeam(r.Context(), actor(r), matchID, teamID, req.Players)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type positionRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (s *Server) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	playerID, err := idParam(r, "playerID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req positionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, r, badRequest("x and y are required"))
		return
	}
	entry, err := s.svc.Roster.UpdatePosition(r.Context(), actor(r), matchID, playerID, *req.X, *req.Y)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleLineup(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.svc.Roster.Lineup(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}
