package orders

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/b2bmarket/marketplace/internal/shared"
)

// AuditRecorder persists audit entries outside a transaction.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service provides business logic for orders after materialization.
type Service struct {
	repo   Repository
	policy shared.RolePolicy
	logger *slog.Logger
	audit  AuditRecorder
}

// NewService creates a new service.
func NewService(repo Repository, policy shared.RolePolicy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, policy: policy, logger: logger}
}

// WithAudit records status changes through audit.
func (s *Service) WithAudit(audit AuditRecorder) *Service {
	s.audit = audit
	return s
}

// ListAll returns every order. Superadmin only.
func (s *Service) ListAll(ctx context.Context, actor shared.Actor, page shared.PageRequest) (*ListResponse, error) {
	if !s.policy.IsSuperadmin(actor) {
		return nil, ErrForbidden
	}
	details, total, err := s.repo.List(ctx, nil, page)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return &ListResponse{Orders: details, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

// ListMine returns the actor's own orders.
func (s *Service) ListMine(ctx context.Context, actor shared.Actor, page shared.PageRequest) (*ListResponse, error) {
	userID := actor.UserID
	details, total, err := s.repo.List(ctx, &userID, page)
	if err != nil {
		return nil, fmt.Errorf("list customer orders: %w", err)
	}
	return &ListResponse{Orders: details, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

// Get returns one order. Customers only see their own; other orders are reported missing.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id int64) (*Detail, error) {
	detail, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.UserID != actor.UserID && !s.policy.IsSuperadmin(actor) {
		return nil, ErrNotFound
	}
	return detail, nil
}

// UpdateStatus moves an order through placed, shipped and delivered. Superadmin only.
func (s *Service) UpdateStatus(ctx context.Context, actor shared.Actor, id int64, status Status) (*Order, error) {
	if !s.policy.IsSuperadmin(actor) {
		return nil, ErrForbidden
	}
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	order, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order status updated",
		slog.Int64("order_id", id),
		slog.String("status", string(status)),
		slog.Int64("actor_id", actor.UserID),
	)
	if s.audit != nil {
		// The status is already committed; a lost audit row is logged, not returned.
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.UserID,
			Action:   "order.status",
			Entity:   "order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"status": string(status)},
		}); err != nil {
			s.logger.Warn("audit order status", slog.Any("error", err), slog.Int64("order_id", id))
		}
	}
	return order, nil
}

// GenerateInvoice issues the invoice of an order visible to the actor, or
// returns the one already issued. created is false on repeat calls.
func (s *Service) GenerateInvoice(ctx context.Context, actor shared.Actor, orderID int64) (*InvoiceResponse, bool, error) {
	detail, err := s.Get(ctx, actor, orderID)
	if err != nil {
		return nil, false, err
	}
	invoice, created, err := s.repo.CreateInvoice(ctx, detail.Order)
	if err != nil {
		return nil, false, fmt.Errorf("generate invoice: %w", err)
	}
	resp := &InvoiceResponse{
		Message:  "Invoice already exists",
		Invoice:  invoice,
		Customer: detail.Customer,
		Items:    detail.Items,
	}
	if !created {
		return resp, false, nil
	}

	resp.Message = "Invoice generated"
	s.logger.Info("invoice generated",
		slog.Int64("order_id", orderID),
		slog.String("invoice_number", invoice.InvoiceNumber),
		slog.Int64("actor_id", actor.UserID),
	)
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.UserID,
			Action:   "invoice.created",
			Entity:   "order",
			EntityID: strconv.FormatInt(orderID, 10),
			Meta:     map[string]any{"invoice_number": invoice.InvoiceNumber},
		}); err != nil {
			s.logger.Warn("audit invoice", slog.Any("error", err), slog.Int64("order_id", orderID))
		}
	}
	return resp, true, nil
}

// Export writes every order as an XLSX workbook. Superadmin only.
func (s *Service) Export(ctx context.Context, actor shared.Actor, w io.Writer) error {
	if !s.policy.IsSuperadmin(actor) {
		return ErrForbidden
	}
	details, err := s.repo.ListForExport(ctx)
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	return WriteWorkbook(w, details)
}
