package audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/intervox-ai/intervox/internal/api"
)

// Lister is the read side of the audit trail.
type Lister interface {
	ListByUser(ctx context.Context, userID string, params ListParams) ([]Entry, int64, error)
}

// Handler exposes the audit trail to admins.
type Handler struct {
	repo Lister
}

func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /admin/audit/{userID}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.HandleError(w, api.NewValidationError("user id is required"))
		return
	}

	params := parseListParams(r)
	entries, total, err := h.repo.ListByUser(r.Context(), userID, params)
	if err != nil {
		api.HandleError(w, api.NewStorageError(err))
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	api.JSONPaginated(w, http.StatusOK, entries, total, params.Page, params.PageSize)
}

func parseListParams(r *http.Request) ListParams {
	params := DefaultListParams()

	if et := r.URL.Query().Get("event_type"); et != "" {
		params.EventType = et
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if size, err := strconv.Atoi(ps); err == nil && size > 0 && size <= 100 {
			params.PageSize = size
		}
	}
	return params
}
