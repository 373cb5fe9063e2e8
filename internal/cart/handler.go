package cart

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/b2bmarket/marketplace/internal/platform/httpx"
	"github.com/b2bmarket/marketplace/internal/shared"
)

// Handler serves cart endpoints for the authenticated user.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers cart routes. Callers must have applied rbac Authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Add)
	r.Get("/", h.List)
	r.Delete("/removeCartItem/{cart_item_id}", h.Remove)
	r.Delete("/clearCart", h.Clear)
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err, false)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err, false)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Add(r.Context(), actor.UserID, req.ProductID); err != nil {
		h.fail(w, "add to cart failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Message: "Product added to cart successfully"})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	items, err := h.service.List(r.Context(), actor.UserID)
	if err != nil {
		h.fail(w, "list cart failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "cart_item_id")
	if err != nil {
		httpx.RespondError(w, err, false)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Remove(r.Context(), actor.UserID, id); err != nil {
		h.fail(w, "remove cart item failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Message: "Cart item removed successfully"})
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Clear(r.Context(), actor.UserID); err != nil {
		h.fail(w, "clear cart failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Message: "Cart cleared successfully"})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err, false)
}
