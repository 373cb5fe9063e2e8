package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/b2bmarket/marketplace/internal/cart"
	"github.com/b2bmarket/marketplace/internal/orders"
	"github.com/b2bmarket/marketplace/internal/platform/db"
	"github.com/b2bmarket/marketplace/internal/shared"
)

// ApprovalModule tags quotation rows in the approvals log.
const ApprovalModule = "quotation"

// Repository defines quotation reads and the transactional entry point.
type Repository interface {
	// WithTx runs fn in one transaction. fn's writes commit together or not at all.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error

	Get(ctx context.Context, id int64) (*Quotation, error)
	ListByUser(ctx context.Context, userID int64) ([]Quotation, error)
	ListAll(ctx context.Context, page shared.PageRequest) ([]Quotation, int, error)
	History(ctx context.Context, id int64) ([]shared.ApprovalLog, error)
}

// TxRepository is the view of the store inside a transaction.
type TxRepository interface {
	cart.TxStore
	orders.TxStore

	// Lock loads the quotation and its items with row locks. A missing row yields ErrNotFound.
	Lock(ctx context.Context, id int64) (*Quotation, error)
	Insert(ctx context.Context, userID int64, status Status) (*Quotation, error)
	InsertItem(ctx context.Context, item Item) (Item, error)
	UpdateItem(ctx context.Context, itemID int64, upd ItemUpdate) error
	SetStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error

	RecordNegotiation(ctx context.Context, log shared.ApprovalLog) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type repository struct {
	pool      *pgxpool.Pool
	approvals *shared.ApprovalRecorder
}

// NewRepository creates a PostgreSQL quotation repository.
func NewRepository(pool *pgxpool.Pool, logger *slog.Logger) Repository {
	return &repository{pool: pool, approvals: shared.NewApprovalRecorder(pool, logger)}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{
			tx:        tx,
			TxStore:   cart.NewTxStore(tx),
			orders:    orders.NewTxStore(tx),
			approvals: r.approvals,
		})
	})
}

const quotationColumns = `q.quotation_id, q.user_id, COALESCE(u.name, 'Unknown'), q.status, q.created_at, q.updated_at`

func scanQuotation(row pgx.Row) (Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.UserID, &q.CustomerName, &q.Status, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := scanQuotation(r.pool.QueryRow(ctx, `
		SELECT `+quotationColumns+`
		FROM quotations q
		LEFT JOIN users u ON u.user_id = q.user_id
		WHERE q.quotation_id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	items, err := loadItems(ctx, r.pool, []int64{q.ID}, false)
	if err != nil {
		return nil, err
	}
	q.Items = nonNil(items[q.ID])
	return &q, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]Quotation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+quotationColumns+`
		FROM quotations q
		LEFT JOIN users u ON u.user_id = q.user_id
		WHERE q.user_id = $1
		ORDER BY q.created_at DESC, q.quotation_id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	return r.collect(ctx, rows)
}

func (r *repository) ListAll(ctx context.Context, page shared.PageRequest) ([]Quotation, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count quotations: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+quotationColumns+`
		FROM quotations q
		LEFT JOIN users u ON u.user_id = q.user_id
		ORDER BY q.created_at DESC, q.quotation_id DESC
		LIMIT $1 OFFSET $2
	`, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list all quotations: %w", err)
	}
	quotations, err := r.collect(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return quotations, total, nil
}

func (r *repository) History(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	return r.approvals.List(ctx, ApprovalModule, id)
}

func (r *repository) collect(ctx context.Context, rows pgx.Rows) ([]Quotation, error) {
	defer rows.Close()
	quotations := make([]Quotation, 0)
	var ids []int64
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		quotations = append(quotations, q)
		ids = append(ids, q.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if len(ids) == 0 {
		return quotations, nil
	}
	items, err := loadItems(ctx, r.pool, ids, false)
	if err != nil {
		return nil, err
	}
	for i := range quotations {
		quotations[i].Items = nonNil(items[quotations[i].ID])
	}
	return quotations, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, quotationIDs []int64, lock bool) (map[int64][]Item, error) {
	sql := `
		SELECT qi.quotation_item_id, qi.quotation_id, qi.product_id, COALESCE(p.product_name, 'Unknown'),
		       qi.quantity, qi.super_admin_price, qi.negotiation_price, qi.final_price,
		       qi.gst_percentage, qi.grand_total_price
		FROM quotation_items qi
		LEFT JOIN products p ON p.product_id = qi.product_id
		WHERE qi.quotation_id = ANY($1)
		ORDER BY qi.quotation_id, qi.quotation_item_id`
	if lock {
		sql += ` FOR UPDATE OF qi`
	}
	rows, err := q.Query(ctx, sql, quotationIDs)
	if err != nil {
		return nil, fmt.Errorf("load quotation items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]Item, len(quotationIDs))
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.QuotationID, &it.ProductID, &it.ProductName, &it.Quantity,
			&it.SuperAdminPrice, &it.NegotiationPrice, &it.FinalPrice,
			&it.GSTPercentage, &it.GrandTotalPrice); err != nil {
			return nil, err
		}
		out[it.QuotationID] = append(out[it.QuotationID], it)
	}
	return out, rows.Err()
}

func nonNil(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}

type txRepository struct {
	cart.TxStore
	tx        pgx.Tx
	orders    orders.TxStore
	approvals *shared.ApprovalRecorder
}

func (t *txRepository) FinalizedGrandTotals(ctx context.Context, quotationID int64) ([]decimal.Decimal, error) {
	return t.orders.FinalizedGrandTotals(ctx, quotationID)
}

func (t *txRepository) InsertOrder(ctx context.Context, order orders.Order) (orders.Order, error) {
	return t.orders.InsertOrder(ctx, order)
}

func (t *txRepository) Lock(ctx context.Context, id int64) (*Quotation, error) {
	var q Quotation
	err := t.tx.QueryRow(ctx, `
		SELECT quotation_id, user_id, status, created_at, updated_at
		FROM quotations
		WHERE quotation_id = $1
		FOR UPDATE
	`, id).Scan(&q.ID, &q.UserID, &q.Status, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock quotation: %w", err)
	}
	items, err := loadItems(ctx, t.tx, []int64{id}, true)
	if err != nil {
		return nil, err
	}
	q.Items = nonNil(items[id])
	return &q, nil
}

func (t *txRepository) Insert(ctx context.Context, userID int64, status Status) (*Quotation, error) {
	q := Quotation{UserID: userID, Status: status}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO quotations (user_id, status) VALUES ($1, $2)
		RETURNING quotation_id, created_at, updated_at
	`, userID, status).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert quotation: %w", err)
	}
	return &q, nil
}

func (t *txRepository) InsertItem(ctx context.Context, item Item) (Item, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO quotation_items (quotation_id, product_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING quotation_item_id
	`, item.QuotationID, item.ProductID, item.Quantity).Scan(&item.ID)
	if err != nil {
		return Item{}, fmt.Errorf("insert quotation item: %w", err)
	}
	return item, nil
}

func (t *txRepository) UpdateItem(ctx context.Context, itemID int64, upd ItemUpdate) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE quotation_items SET
			super_admin_price = COALESCE($2::numeric, super_admin_price),
			negotiation_price = COALESCE($3::numeric, negotiation_price),
			final_price       = COALESCE($4::numeric, final_price),
			gst_percentage    = COALESCE($5::numeric, gst_percentage),
			grand_total_price = COALESCE($6::numeric, grand_total_price),
			updated_at        = NOW()
		WHERE quotation_item_id = $1
	`, itemID, upd.SuperAdminPrice, upd.NegotiationPrice, upd.FinalPrice, upd.GSTPercentage, upd.GrandTotalPrice)
	if err != nil {
		return fmt.Errorf("update quotation item %d: %w", itemID, err)
	}
	return nil
}

func (t *txRepository) SetStatus(ctx context.Context, id int64, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE quotations SET status = $2, updated_at = NOW() WHERE quotation_id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set quotation status: %w", err)
	}
	return nil
}

func (t *txRepository) Delete(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM quotations WHERE quotation_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quotation: %w", err)
	}
	return nil
}

func (t *txRepository) RecordNegotiation(ctx context.Context, log shared.ApprovalLog) error {
	log.Module = ApprovalModule
	return t.approvals.Record(ctx, t.tx, log)
}

func (t *txRepository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, t.tx, log)
}

var _ TxRepository = (*txRepository)(nil)
