package quotations

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/b2bmarket/marketplace/internal/platform/httpx"
	"github.com/b2bmarket/marketplace/internal/rbac"
	"github.com/b2bmarket/marketplace/internal/shared"
)

// IdempotencyHeader optionally deduplicates transition requests.
const IdempotencyHeader = "Idempotency-Key"

// Handler serves quotation endpoints.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	rbac           rbac.Middleware
	validator      *validator.Validate
	exposeInternal bool
}

// NewHandler constructs a Handler. exposeInternal adds internal error detail to 500 responses.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, exposeInternal bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		rbac:           rbac,
		validator:      validator.New(),
		exposeInternal: exposeInternal,
	}
}

type transitionResponse struct {
	Message string            `json:"message"`
	Data    *TransitionResult `json:"data"`
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	form, err := h.service.Form(r.Context(), actor)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, FormResponse{Message: "Quotation form initialized.", Form: form})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	q, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, CreateResponse{
		Message:     "Quotation submitted to admin.",
		QuotationID: q.ID,
		Items:       q.Items,
	})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	quotations, err := h.service.ListMine(r.Context(), actor)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotations)
}

func (h *Handler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	resp, err := h.service.ListAdmin(r.Context(), actor, shared.PageFromRequest(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	q, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	logs, err := h.service.History(r.Context(), actor, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	var req ReviewRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	res, err := h.service.Review(r.Context(), actor, id, req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, transitionResponse{Message: "Quotation reviewed successfully.", Data: res})
}

func (h *Handler) Negotiate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	var req NegotiateRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	res, err := h.service.CustomerNegotiate(r.Context(), actor, id, req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, err)
		return
	}
	msg := "Quotation negotiation submitted successfully."
	if res.Order != nil {
		msg = "Quotation approved and order created"
	}
	httpx.JSON(w, http.StatusOK, transitionResponse{Message: msg, Data: res})
}

func (h *Handler) Decision(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	var req DecisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	res, err := h.service.AdminDecision(r.Context(), actor, id, req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, err)
		return
	}
	msg := "New prices set and sent to customer"
	if res.Order != nil {
		msg = "Quotation approved and order created"
	}
	httpx.JSON(w, http.StatusOK, transitionResponse{Message: msg, Data: res})
}

func (h *Handler) FinalDecision(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	var req FinalDecisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	res, err := h.service.CustomerFinalDecision(r.Context(), actor, id, req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, transitionResponse{Message: "Quotation approved and order created", Data: res})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Quotation and its items deleted successfully."})
}

func (h *Handler) quotationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := httpx.PathID(r, "quotation_id")
	if err != nil {
		httpx.RespondError(w, err, false)
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(w, r, target); err != nil {
		httpx.RespondError(w, err, false)
		return false
	}
	if err := httpx.Validate(h.validator, target); err != nil {
		httpx.RespondError(w, err, false)
		return false
	}
	return true
}

// fail renders err. Services already log internal failures with context.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.RespondError(w, err, h.exposeInternal)
}
