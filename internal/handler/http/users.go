package http

import (
	"log/slog"
	"net/http"

	"github.com/Kodar11/Blog/internal/auth"
	"github.com/Kodar11/Blog/internal/service"
	"github.com/Kodar11/Blog/pkg/httputil"
	"github.com/Kodar11/Blog/pkg/validator"
)

// UserHandler handles HTTP requests for account and session endpoints.
type UserHandler struct {
	service *service.SessionService
	cookies CookieConfig
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.SessionService, cookies CookieConfig, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, cookies: cookies, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for registration. Blank fields
// are rejected by the service with a single message.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the JSON request body for a password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UpdateAccountRequest is the JSON request body for PATCH /users/me.
type UpdateAccountRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// emptyObject renders as {} in the envelope.
var emptyObject = struct{}{}

// --- Handlers ---

// Register handles POST /users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Write(w, http.StatusCreated, user, "User registered successfully")
}

// Login handles POST /users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	res, err := h.service.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.setAccessCookie(w, res.AccessToken)
	httputil.Write(w, http.StatusOK, res, "User logged in successfully")
}

// Logout handles POST /users/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	if err := h.service.Logout(r.Context(), identity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.clearSessionCookies(w)
	httputil.Write(w, http.StatusOK, emptyObject, "User logged out")
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	user, err := h.service.CurrentUser(r.Context(), identity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Write(w, http.StatusOK, user, "User fetched successfully")
}

// UpdateMe handles PATCH /users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccountRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	identity, _ := auth.FromContext(r.Context())
	user, err := h.service.UpdateAccount(r.Context(), identity, service.UpdateAccountInput{Email: req.Email})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Write(w, http.StatusOK, user, "Account details updated successfully")
}

// ChangePassword handles POST /users/change-password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	identity, _ := auth.FromContext(r.Context())
	err := h.service.ChangePassword(r.Context(), identity, service.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Write(w, http.StatusOK, emptyObject, "Password changed successfully")
}
