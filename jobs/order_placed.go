package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/b2bmarket/marketplace/internal/jobs"
	"github.com/b2bmarket/marketplace/internal/orders"
)

// OrderReader loads an order with its customer and items.
type OrderReader interface {
	GetByID(ctx context.Context, id int64) (*orders.Detail, error)
}

// OrderPlacedJob mails the order confirmation to the customer.
type OrderPlacedJob struct {
	Orders  OrderReader
	Mailer  Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewOrderPlacedJob constructs the job handler.
func NewOrderPlacedJob(orders OrderReader, mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *OrderPlacedJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderPlacedJob{Orders: orders, Mailer: mailer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskOrderPlaced tasks.
func (j *OrderPlacedJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Orders == nil || j.Mailer == nil {
		return errors.New("order placed job not configured")
	}
	var payload OrderPlacedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.OrderID <= 0 {
		return fmt.Errorf("order id required: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskOrderPlaced)
	detail, err := j.Orders.GetByID(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			j.Logger.Warn("order placed: order missing", slog.Int64("order_id", payload.OrderID))
			return tracker.End(fmt.Errorf("order %d: %w", payload.OrderID, asynq.SkipRetry))
		}
		return tracker.End(err)
	}
	if detail.Customer.Email == "" {
		j.Logger.Warn("order placed: customer has no email", slog.Int64("order_id", detail.ID))
		return tracker.End(nil)
	}

	subject := fmt.Sprintf("Order #%d confirmed", detail.ID)
	if err := j.Mailer.Send(ctx, detail.Customer.Email, subject, confirmationBody(detail)); err != nil {
		j.Logger.Error("order placed: send mail", slog.Any("error", err), slog.Int64("order_id", detail.ID))
		return tracker.End(err)
	}
	j.Logger.Info("order confirmation sent", slog.Int64("order_id", detail.ID), slog.Int64("quotation_id", detail.QuotationID))
	return tracker.End(nil)
}

func confirmationBody(d *orders.Detail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", d.Customer.Name)
	fmt.Fprintf(&b, "Quotation #%d has been finalized and order #%d was created.\n\n", d.QuotationID, d.ID)
	for _, it := range d.Items {
		line := "-"
		if it.GrandTotalPrice.Valid {
			line = orders.FormatAmount(it.GrandTotalPrice.Decimal)
		}
		fmt.Fprintf(&b, "- %s x%d: %s\n", it.ProductName, it.Quantity, line)
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", orders.FormatAmount(d.TotalAmount))
	return b.String()
}
