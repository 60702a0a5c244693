package handler

import (
	"net/http"

	"match-narrator/internal/model"
)

// loadAndDecode fetches the current resource and overlays the request body on
// it, so PUT bodies may carry only the fields that change.
func loadAndDecode[T any](w http.ResponseWriter, r *http.Request, param string, get func(id int64) (*T, error)) (*T, int64, error) {
	id, err := idParam(r, param)
	if err != nil {
		return nil, 0, err
	}
	cur, err := get(id)
	if err != nil {
		return nil, 0, err
	}
	if err := decode(w, r, cur); err != nil {
		return nil, 0, err
	}
	return cur, id, nil
}

func (s *Server) handleListCompetitions(w http.ResponseWriter, r *http.Request) {
	comps, err := s.svc.Catalog.ListCompetitions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comps)
}

func (s *Server) handleCreateCompetition(w http.ResponseWriter, r *http.Request) {
	var c model.Competition
	if err := decode(w, r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.svc.Catalog.CreateCompetition(r.Context(), actor(r), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetCompetition(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "competitionID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Catalog.GetCompetition(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCompetition(w http.ResponseWriter, r *http.Request) {
	c, id, err := loadAndDecode(w, r, "competitionID", func(id int64) (*model.Competition, error) {
		return s.svc.Catalog.GetCompetition(r.Context(), id)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = id
	out, err := s.svc.Catalog.UpdateCompetition(r.Context(), actor(r), *c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteCompetition(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "competitionID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Catalog.DeleteCompetition(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSeasons(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "competitionID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	seasons, err := s.svc.Catalog.ListSeasons(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seasons)
}

func (s *Server) handleCreateSeason(w http.ResponseWriter, r *http.Request) {
	compID, err := idParam(r, "competitionID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var season model.Season
	if err := decode(w, r, &season); err != nil {
		writeError(w, r, err)
		return
	}
	season.CompetitionID = compID
	out, err := s.svc.Catalog.CreateSeason(r.Context(), actor(r), season)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetSeason(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "seasonID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	season, err := s.svc.Catalog.GetSeason(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, season)
}

func (s *Server) handleUpdateSeason(w http.ResponseWriter, r *http.Request) {
	season, id, err := loadAndDecode(w, r, "seasonID", func(id int64) (*model.Season, error) {
		return s.svc.Catalog.GetSeason(r.Context(), id)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	season.ID = id
	out, err := s.svc.Catalog.UpdateSeason(r.Context(), actor(r), *season)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSeason(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "seasonID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Catalog.DeleteSeason(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSeasonTeams(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "seasonID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	teams, err := s.svc.Catalog.ListSeasonTeams(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (s *Server) seasonTeam(w http.ResponseWriter, r *http.Request, add bool) {
	seasonID, err := idParam(r, "seasonID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	teamID, err := idParam(r, "teamID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if add {
		err = s.svc.Catalog.AddSeasonTeam(r.Context(), actor(r), seasonID, teamID)
	} else {
		err = s.svc.Catalog.RemoveSeasonTeam(r.Context(), actor(r), seasonID, teamID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddSeasonTeam(w http.ResponseWriter, r *http.Request) {
	s.seasonTeam(w, r, true)
}

func (s *Server) handleRemoveSeasonTeam(w http.ResponseWriter, r *http.Request) {
	s.seasonTeam(w, r, false)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.svc.Catalog.ListTeams(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var t model.Team
	if err := decode(w, r, &t); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.svc.Catalog.CreateTeam(r.Context(), actor(r), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "teamID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Catalog.GetTeam(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	t, id, err := loadAndDecode(w, r, "teamID", func(id int64) (*model.Team, error) {
		return s.svc.Catalog.GetTeam(r.Context(), id)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	t.ID = id
	out, err := s.svc.Catalog.UpdateTeam(r.Context(), actor(r), *t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "teamID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Catalog.DeleteTeam(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "teamID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	players, err := s.svc.Catalog.ListPlayers(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var p model.Player
	if err := decode(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.svc.Catalog.CreatePlayer(r.Context(), actor(r), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "playerID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Catalog.GetPlayer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePlayer(w http.ResponseWriter, r *http.Request) {
	p, id, err := loadAndDecode(w, r, "playerID", func(id int64) (*model.Player, error) {
		return s.svc.Catalog.GetPlayer(r.Context(), id)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = id
	out, err := s.svc.Catalog.UpdatePlayer(r.Context(), actor(r), *p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "playerID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Catalog.DeletePlayer(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
