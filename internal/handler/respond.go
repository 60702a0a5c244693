package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"match-narrator/internal/matchclock"
	"match-narrator/internal/pkg/lock"
	"match-narrator/internal/pkg/token"
	"match-narrator/internal/repository"
	"match-narrator/internal/service"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

var notFound = []error{
	repository.ErrCompetitionNotFound,
	repository.ErrSeasonNotFound,
	repository.ErrTeamNotFound,
	repository.ErrPlayerNotFound,
	repository.ErrMatchNotFound,
	repository.ErrRosterEntryNotFound,
	repository.ErrEventNotFound,
	repository.ErrUserNotFound,
	repository.ErrImportRunNotFound,
}

var conflict = []error{
	service.ErrTimelineConflict,
	service.ErrMatchNotLive,
	service.ErrRosterLocked,
	repository.ErrConflict,
	repository.ErrInUse,
	repository.ErrStale,
	repository.ErrNotEditable,
	matchclock.ErrInvalidTransition,
	lock.ErrLockTimeout,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// statusFor maps service and repository errors to HTTP status codes.
// Conflicts are checked before input errors because a timeline conflict
// carries the rule violation that caused it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrExpiredToken),
		errors.Is(err, token.ErrInvalidSignature),
		errors.Is(err, service.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case isAny(err, conflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case isAny(err, notFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNoFetcher):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError answers with the status of err and a JSON body. Internal errors
// are logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", service.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("malformed body: %v", err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, badRequest("query %s must be a non-negative integer", name)
	}
	return n, nil
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// actor returns the caller; routes behind authenticate always have one.
func actor(r *http.Request) service.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}
