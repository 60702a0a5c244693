package handler

import (
	"net/http"

	"match-narrator/internal/service"
)

func (s *Server) handleEventTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Events.Types())
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := s.svc.Events.List(r.Context(), id, queryBool(r, "include_deleted"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleRecordEvent answers 201 for a new event and 200 when the client_id
// was already recorded.
func (s *Server) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.EventInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	e, created, err := s.svc.Events.Record(r.Context(), actor(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		s.metrics.events.WithLabelValues(string(e.Type)).Inc()
	}
	writeJSON(w, status, e)
}

func (s *Server) eventIDs(r *http.Request) (int64, int64, error) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		return 0, 0, err
	}
	eventID, err := idParam(r, "eventID")
	if err != nil {
		return 0, 0, err
	}
	return matchID, eventID, nil
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	matchID, eventID, err := s.eventIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Events.Get(r.Context(), matchID, eventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	matchID, eventID, err := s.eventIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p service.EventPatch
	if err := decode(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Events.Update(r.Context(), actor(r), matchID, eventID, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	matchID, eventID, err := s.eventIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Events.Delete(r.Context(), actor(r), matchID, eventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleRestoreEvent(w http.ResponseWriter, r *http.Request) {
	matchID, eventID, err := s.eventIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Events.Restore(r.Context(), actor(r), matchID, eventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
