package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jobboard/apiserver/internal/auth"
	"github.com/jobboard/apiserver/internal/services"
)

// AuthHandler provides registration, login, logout and profile endpoints.
type AuthHandler struct {
	userService  *services.UserService
	sessions     *Sessions
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, sessions *Sessions, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		sessions:     sessions,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, sessions *Sessions, secureCookie bool, logger *slog.Logger) {
	handler := NewAuthHandler(userService, sessions, secureCookie, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(sessions.Require).Get("/me", handler.Me)
	r.With(sessions.Require).Put("/profile", handler.UpdateProfile)
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileRequest struct {
	Name string `json:"name"`
}

// SessionUser is the public part of a user returned on login.
type SessionUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LoginResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	User    SessionUser `json:"user"`
	Token   string      `json:"token"`
}

// Register creates a new account. It does not log the user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.userService.Register(r.Context(), services.RegisterInput{
		Name:            req.Name,
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            req.Role,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Error creating user")
		return
	}

	writeSuccess(w, http.StatusOK, "User created successfully", user)
}

// Login verifies credentials and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Login failed")
		return
	}

	auth.SetSessionCookie(w, result.Token, h.secureCookie)
	writeJSON(w, http.StatusOK, LoginResponse{
		Status:  statusSuccess,
		Message: "Login successful",
		User: SessionUser{
			ID:    result.User.ID,
			Name:  result.User.Name,
			Email: result.User.Email,
		},
		Token: result.Token,
	})
}

// Logout revokes the current session, if any, and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.End(r.Context(), r)
	auth.ClearSessionCookie(w, h.secureCookie)
	writeSuccess(w, http.StatusOK, "Logged out successfully!", nil)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.userService.GetByID(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to load user")
		return
	}

	writeSuccess(w, http.StatusOK, "", user)
}

// UpdateProfile changes the caller's display name.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req ProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), identity.UserID, req.Name)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to update profile")
		return
	}

	writeSuccess(w, http.StatusOK, "Profile updated successfully", user)
}
