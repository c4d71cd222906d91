package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/openpublish/sitetree/pkg/sitetree"
)

// AuthHandler handles login and session validation
type AuthHandler struct {
	service   sitetree.Service
	tokenAuth *jwtauth.JWTAuth
	tokenTTL  time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service sitetree.Service, tokenAuth *jwtauth.JWTAuth) *AuthHandler {
	return &AuthHandler{
		service:   service,
		tokenAuth: tokenAuth,
		tokenTTL:  24 * time.Hour,
	}
}

// Routes returns the routes for authentication
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	return r
}

// LoginRequest is the request body for opening a session
type LoginRequest struct {
	PrincipalID string `json:"principal_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

// LoginResponse is the response body for a successful login
type LoginResponse struct {
	Token        string    `json:"token"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Login validates the credentials, opens a session and mints a JWT carrying
// the principal claims
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	principalID, err := uuid.Parse(req.PrincipalID)
	if err != nil {
		http.Error(w, "Invalid principal ID", http.StatusBadRequest)
		return
	}

	session, err := h.service.Login(r.Context(), sitetree.LoginRequest{
		PrincipalID: principalID,
		Username:    req.Username,
		Password:    req.Password,
	})
	if err != nil {
		slog.Warn("Login rejected", "username", req.Username, "error", err)
		writeError(w, err)
		return
	}

	expiresAt := time.Now().Add(h.tokenTTL)
	_, tokenString, err := h.tokenAuth.Encode(map[string]interface{}{
		"sub":      principalID.String(),
		"username": req.Username,
		"role":     req.Role,
		"active":   true,
		"exp":      expiresAt.Unix(),
	})
	if err != nil {
		slog.Error("Failed to encode token", "error", err)
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	slog.Info("Session opened", "principal_id", principalID.String())
	render.JSON(w, r, LoginResponse{
		Token:        tokenString,
		SessionToken: session.Token,
		ExpiresAt:    expiresAt,
	})
}
