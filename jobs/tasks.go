package jobs

import (
	"encoding/json"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/b2bmarket/marketplace/internal/orders"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOrderPlaced notifies a customer that their quotation became an order.
	TaskOrderPlaced = "order:placed"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// OrderPlacedPayload identifies the committed order.
type OrderPlacedPayload struct {
	OrderID     int64           `json:"order_id"`
	QuotationID int64           `json:"quotation_id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewOrderPlacedTask constructs an Asynq task for order.
func NewOrderPlacedTask(order orders.Order) (*asynq.Task, error) {
	data, err := json.Marshal(OrderPlacedPayload{
		OrderID:     order.ID,
		QuotationID: order.QuotationID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPlaced, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// IdempotencyCleanupPayload configures how old a key must be before it is purged.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask builds the cleanup task. Non-positive retention falls back to 24h.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	if retentionHours <= 0 {
		retentionHours = 24
	}
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueDefault)), nil
}

func itoa(i int64) string {
	return strconv.FormatInt(i, 10)
}
