package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"match-narrator/internal/model"
	"match-narrator/internal/service"
)

const maxBundleBytes = 32 << 20

// importFailure carries the closed run next to the error so clients can see
// which part of the bundle was written.
type importFailure struct {
	Error string           `json:"error"`
	Run   *model.ImportRun `json:"run"`
}

func (s *Server) finishImport(w http.ResponseWriter, r *http.Request, run *model.ImportRun, err error) {
	if err != nil {
		if run == nil {
			writeError(w, r, err)
			return
		}
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, importFailure{Error: err.Error(), Run: run})
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleImportBundle(w http.ResponseWriter, r *http.Request) {
	b, err := service.DecodeBundle(http.MaxBytesReader(w, r.Body, maxBundleBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	run, err := s.svc.Import.ImportBundle(r.Context(), actor(r), model.ImportSourceFile, b)
	s.finishImport(w, r, run, err)
}

type apiImportRequest struct {
	League int64 `json:"league"`
	Season int   `json:"season"`
}

func (s *Server) handleImportAPI(w http.ResponseWriter, r *http.Request) {
	var req apiImportRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	run, err := s.svc.Import.FetchAndImport(r.Context(), actor(r), req.League, req.Season)
	s.finishImport(w, r, run, err)
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	runs, err := s.svc.Import.ListRuns(r.Context(), int(limit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "importID"))
	if err != nil {
		writeError(w, r, badRequest("import id: %v", err))
		return
	}
	run, err := s.svc.Import.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
