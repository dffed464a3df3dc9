package interview

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/intervox-ai/intervox/internal/api"
	"github.com/intervox-ai/intervox/internal/rategate"
	"github.com/intervox-ai/intervox/internal/speech"
)

// Handler exposes the interview flow over HTTP.
type Handler struct {
	controller  *Controller
	transcriber *speech.Transcriber
	validate    *validator.Validate
}

func NewHandler(controller *Controller, transcriber *speech.Transcriber) *Handler {
	return &Handler{
		controller:  controller,
		transcriber: transcriber,
		validate:    validator.New(),
	}
}

// userID resolves the caller identity: explicit header first, network origin
// as the fallback.
func userID(r *http.Request) string {
	return rategate.RequesterKey(r)
}

// Start handles POST /interview/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewValidationError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	resp, err := h.controller.Start(r.Context(), userID(r), req)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, resp)
}

// Next handles POST /interview/next with a typed answer.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	var req NextQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewValidationError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	resp, err := h.controller.Next(r.Context(), userID(r), req)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, resp)
}

// Answer handles POST /interview/answer: a multipart audio answer that is
// transcribed and then admitted exactly like a typed one.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		api.HandleError(w, api.NewValidationError("audio file is required"))
		return
	}
	defer file.Close()

	if !speech.ValidUpload(header.Header.Get("Content-Type"), header.Filename) {
		api.HandleError(w, api.NewValidationError("unsupported audio format"))
		return
	}

	req := NextQuestionRequest{
		SessionID:        r.FormValue("session_id"),
		PreviousQuestion: r.FormValue("previous_question"),
	}
	if err := h.validate.StructPartial(req, "SessionID", "PreviousQuestion"); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	uid := userID(r)
	answer, err := h.transcriber.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	req.Answer = answer

	resp, err := h.controller.Next(r.Context(), uid, req)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	// The caller never saw its own spoken answer as text; echo it back
	// alongside the verdict.
	resp.Transcript = answer
	api.JSON(w, http.StatusOK, resp)
}

// Usage handles GET /interview/usage.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.controller.Usage(r.Context(), userID(r))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, snapshot)
}
