package proctor

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/intervox-ai/intervox/internal/api"
	"github.com/intervox-ai/intervox/internal/rategate"
)

type logEventsRequest struct {
	SessionID string        `json:"session_id" validate:"required"`
	Events    []loggedEvent `json:"events" validate:"required,min=1,max=100,dive"`
}

type loggedEvent struct {
	EventType  string    `json:"event_type" validate:"required,max=64"`
	Details    string    `json:"details" validate:"max=1024"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Handler accepts proctoring event batches from candidates and exposes the
// trail to admins.
type Handler struct {
	repo     *Repository
	validate *validator.Validate
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo, validate: validator.New()}
}

// Log handles POST /interview/proctor-log.
func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	var req logEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewValidationError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	userID := rategate.RequesterKey(r)
	now := time.Now().UTC()
	events := make([]Event, 0, len(req.Events))
	for _, e := range req.Events {
		occurred := e.OccurredAt
		if occurred.IsZero() {
			occurred = now
		}
		events = append(events, Event{
			SessionID:  req.SessionID,
			UserID:     userID,
			EventType:  e.EventType,
			Details:    e.Details,
			OccurredAt: occurred,
		})
	}

	if err := h.repo.InsertBatch(r.Context(), events); err != nil {
		api.HandleError(w, api.NewStorageError(err))
		return
	}
	api.JSONMessage(w, http.StatusAccepted, "events recorded")
}

// List handles GET /admin/proctor/{sessionID}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		api.HandleError(w, api.NewValidationError("session id is required"))
		return
	}
	events, err := h.repo.ListBySession(r.Context(), sessionID)
	if err != nil {
		api.HandleError(w, api.NewStorageError(err))
		return
	}
	api.JSON(w, http.StatusOK, events)
}
