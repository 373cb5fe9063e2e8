package orders

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/b2bmarket/marketplace/internal/platform/httpx"
	"github.com/b2bmarket/marketplace/internal/rbac"
	"github.com/b2bmarket/marketplace/internal/shared"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves order endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	resp, err := h.service.ListAll(r.Context(), actor, shared.PageFromRequest(r))
	if err != nil {
		h.fail(w, "list orders failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	resp, err := h.service.ListMine(r.Context(), actor, shared.PageFromRequest(r))
	if err != nil {
		h.fail(w, "list my orders failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err, false)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	detail, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "get order failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err, false)
		return
	}
	var req UpdateStatusRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err, false)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, ErrInvalidStatus, false)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	order, err := h.service.UpdateStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		h.fail(w, "update order status failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Order status updated",
		"order":   order,
	})
}

func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err, false)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	resp, created, err := h.service.GenerateInvoice(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "generate invoice failed", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, resp)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), actor, &buf); err != nil {
		h.fail(w, "export orders failed", err)
		return
	}
	filename := "orders-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err, false)
}
