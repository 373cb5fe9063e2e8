package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/b2bmarket/marketplace/internal/platform/httpx"
	"github.com/b2bmarket/marketplace/internal/shared"
)

// RoleCache drops cached role lookups when a user logs in or out.
type RoleCache interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	roles          RoleCache
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance. roles may be nil.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, roles RoleCache) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		roles:          roles,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router. authn guards /me.
func (h *Handler) MountRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.With(authn).Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Message string `json:"message"`
	User    *User  `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err, false)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err, false)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "Internal server error")
		return
	}
	h.sessionManager.Renew(sess)
	sess.SetUser(user.ID)

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.invalidateRole(r.Context(), user.ID)

	h.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	httpx.JSON(w, http.StatusOK, loginResponse{Message: "Logged in", User: user})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if userID, ok := sess.UserID(); ok {
			h.invalidateRole(r.Context(), userID)
		}
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized, false)
		return
	}
	user, err := h.service.Profile(r.Context(), actor.UserID)
	if err != nil {
		h.logger.Error("load profile", slog.Any("error", err), slog.Int64("user_id", actor.UserID))
		httpx.RespondError(w, err, false)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) invalidateRole(ctx context.Context, userID int64) {
	if h.roles == nil {
		return
	}
	if err := h.roles.Invalidate(ctx, userID); err != nil {
		h.logger.Warn("invalidate role cache", slog.Any("error", err))
	}
}
