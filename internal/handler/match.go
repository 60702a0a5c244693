package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"match-narrator/internal/matchclock"
	"match-narrator/internal/model"
)

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.MatchFilter{Status: model.MatchStatus(q.Get("status"))}
	var err error
	if f.SeasonID, err = queryInt(r, "season_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.NarratorID, err = queryInt(r, "narrator_id"); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.Limit = int(limit)
	if queryBool(r, "mine") {
		f.NarratorID = actor(r).UserID
	}

	matches, err := s.svc.Matches.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var m model.Match
	if err := decode(w, r, &m); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.svc.Matches.Create(r.Context(), actor(r), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.svc.Matches.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMatch(w http.ResponseWriter, r *http.Request) {
	m, id, err := loadAndDecode(w, r, "matchID", func(id int64) (*model.Match, error) {
		return s.svc.Matches.Get(r.Context(), id)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	m.ID = id
	out, err := s.svc.Matches.Update(r.Context(), actor(r), *m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Matches.Delete(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type narratorRequest struct {
	NarratorID *int64 `json:"narrator_id"`
}

func (s *Server) handleAssignNarrator(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req narratorRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.svc.Matches.AssignNarrator(r.Context(), actor(r), id, req.NarratorID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleGetClock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.svc.Matches.Clock(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleClockAction applies start, pause, resume, end-period, start-period,
// finish or cancel. An optional ?version= guards against stale clients.
func (s *Server) handleClockAction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	action, err := matchclock.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		if errors.Is(err, matchclock.ErrInvalidTransition) {
			err = badRequest("unknown clock action %q", chi.URLParam(r, "action"))
		}
		writeError(w, r, err)
		return
	}
	version, err := queryInt(r, "version")
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.svc.Matches.ApplyAction(r.Context(), actor(r), id, action, version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.metrics.clock.WithLabelValues(string(action)).Inc()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	periods, err := s.svc.Matches.Periods(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, periods)
}
