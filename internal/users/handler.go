package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/b2bmarket/marketplace/internal/platform/httpx"
	"github.com/b2bmarket/marketplace/internal/rbac"
	"github.com/b2bmarket/marketplace/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers user routes. Callers must have applied rbac Authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireSuperadmin)
		r.Get("/", h.listUsers)
		r.Get("/roles", h.listRoles)
		r.Patch("/{user_id}", h.updateUser)
		r.Delete("/{user_id}", h.deactivateUser)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	var roleID int64
	if raw := r.URL.Query().Get("role_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role_id must be a positive integer")
			return
		}
		roleID = v
	}
	actor, _ := shared.ActorFromContext(r.Context())
	resp, err := h.service.ListUsers(r.Context(), actor, roleID, shared.PageFromRequest(r))
	if err != nil {
		h.fail(w, "list users failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	roles, err := h.service.ListRoles(r.Context(), actor)
	if err != nil {
		h.fail(w, "list roles failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "user_id")
	if err != nil {
		httpx.RespondError(w, err, false)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err, false)
		return
	}
	if err := httpx.Validate(h.validator, &req); err != nil {
		httpx.RespondError(w, err, false)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	user, err := h.service.Update(r.Context(), actor, id, req)
	if err != nil {
		h.fail(w, "update user failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "user_id")
	if err != nil {
		httpx.RespondError(w, err, false)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), actor, id); err != nil {
		h.fail(w, "deactivate user failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err, false)
}
