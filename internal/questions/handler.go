package questions

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/intervox-ai/intervox/internal/api"
)

// Handler serves the admin question-bank CRUD endpoints.
type Handler struct {
	repo     Repository
	validate *validator.Validate
}

func NewHandler(repo Repository) *Handler {
	return &Handler{
		repo:     repo,
		validate: validator.New(),
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListAll(r.Context())
	if err != nil {
		slog.Error("listing questions", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if items == nil {
		items = []Question{}
	}
	api.JSON(w, http.StatusOK, items)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req UpsertQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewValidationError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	q := &Question{
		Company:    req.Company,
		Role:       req.Role,
		Difficulty: req.Difficulty,
		Text:       req.Text,
	}
	if err := h.repo.Create(r.Context(), q); err != nil {
		slog.Error("creating question", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusCreated, q)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
	if err != nil {
		api.HandleError(w, api.NewValidationError("invalid question id"))
		return
	}

	var req UpsertQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewValidationError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	q := &Question{
		ID:         id,
		Company:    req.Company,
		Role:       req.Role,
		Difficulty: req.Difficulty,
		Text:       req.Text,
	}
	found, err := h.repo.Update(r.Context(), q)
	if err != nil {
		slog.Error("updating question", "error", err, "id", id)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if !found {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSON(w, http.StatusOK, q)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
	if err != nil {
		api.HandleError(w, api.NewValidationError("invalid question id"))
		return
	}

	found, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		slog.Error("deleting question", "error", err, "id", id)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if !found {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSONMessage(w, http.StatusOK, "question deleted")
}
