package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/intervox-ai/intervox/internal/api"
)

type contextKey string

// AdminEmailKey carries the authenticated admin identity through the request
// context.
const AdminEmailKey contextKey = "admin_email"

type requestCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type adminKeyRequest struct {
	Key string `json:"key" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Handler exposes the admin login flow over HTTP.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// RequestCode handles POST /admin/auth/request-code.
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewValidationError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}
	if err := h.service.RequestCode(r.Context(), req.Email); err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "verification code sent")
}

// VerifyCode handles POST /admin/auth/verify.
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewValidationError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}
	token, expiresIn, err := h.service.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresIn: expiresIn})
}

// VerifyKey handles POST /admin/auth/key.
func (h *Handler) VerifyKey(w http.ResponseWriter, r *http.Request) {
	var req adminKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewValidationError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}
	token, expiresIn, err := h.service.VerifyAdminKey(req.Key)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresIn: expiresIn})
}

// RequireAdmin rejects requests without a valid Bearer token.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			api.HandleError(w, api.ErrUnauthorized)
			return
		}
		email, err := h.service.VerifyToken(token)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), AdminEmailKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
