package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	practicesession "github.com/opobank/backend/internal/domain/practice_session"
	"github.com/opobank/backend/internal/domain/questionbank"
	"github.com/opobank/backend/internal/service"
	"github.com/opobank/backend/internal/store"
)

// Handler holds all dependencies needed by HTTP handlers.
type Handler struct {
	sessions *service.SessionService
	repo     *questionbank.Repository
	logger   *slog.Logger
}

func NewHandler(sessions *service.SessionService, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		repo:     sessions.Repository(),
		logger:   logger,
	}
}

type validator interface {
	Validate() error
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// decodeAndValidate reads a JSON body into v and runs its Validate method.
// It writes a 400 and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v validator) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := v.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// handleError maps domain and store errors onto HTTP statuses. Returns true
// if an error was handled (caller should return).
func (h *Handler) handleError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, questionbank.ErrNotFound), errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, practicesession.ErrInvalidOption),
		errors.Is(err, practicesession.ErrAmbiguousQuestion):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, practicesession.ErrAlreadyAnswered),
		errors.Is(err, practicesession.ErrSessionCompleted),
		errors.Is(err, practicesession.ErrNotCompleted):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, practicesession.ErrEmptySelection),
		errors.Is(err, service.ErrNothingMissed):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}
