package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/b2bmarket/marketplace/internal/shared"
)

// Repository defines the interface for order persistence.
type Repository interface {
	// List returns a page of orders, newest first. A nil userID lists every order.
	List(ctx context.Context, userID *int64, page shared.PageRequest) ([]Detail, int, error)
	GetByID(ctx context.Context, id int64) (*Detail, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error)
	ListForExport(ctx context.Context) ([]Detail, error)
	// CreateInvoice returns the order's invoice, issuing it first when none
	// exists. created reports whether this call inserted the row.
	CreateInvoice(ctx context.Context, order Order) (invoice *Invoice, created bool, err error)
}

// repository implements Repository using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const orderColumns = `
	o.order_id, o.quotation_id, o.user_id, o.status, o.total_amount, o.created_at, o.updated_at,
	u.name, u.email`

func scanDetail(row pgx.Row) (Detail, error) {
	var d Detail
	err := row.Scan(
		&d.ID, &d.QuotationID, &d.UserID, &d.Status, &d.TotalAmount, &d.CreatedAt, &d.UpdatedAt,
		&d.Customer.Name, &d.Customer.Email,
	)
	d.Customer.UserID = d.UserID
	return d, err
}

// List retrieves orders with customers and items. The count and the page
// are loaded concurrently on separate pool connections.
func (r *repository) List(ctx context.Context, userID *int64, page shared.PageRequest) ([]Detail, int, error) {
	var (
		total   int
		details []Detail
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, `
			SELECT COUNT(*) FROM orders o
			WHERE ($1::bigint IS NULL OR o.user_id = $1)
		`, userID).Scan(&total); err != nil {
			return fmt.Errorf("count orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, `
			SELECT `+orderColumns+`
			FROM orders o
			INNER JOIN users u ON u.user_id = o.user_id
			WHERE ($1::bigint IS NULL OR o.user_id = $1)
			ORDER BY o.created_at DESC, o.order_id DESC
			LIMIT $2 OFFSET $3
		`, userID, page.PerPage, page.Offset())
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		details, err = r.collect(gctx, rows)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// GetByID retrieves an order with its customer and items.
func (r *repository) GetByID(ctx context.Context, id int64) (*Detail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		INNER JOIN users u ON u.user_id = o.user_id
		WHERE o.order_id = $1
	`, id)
	d, err := scanDetail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	items, err := r.itemsByQuotation(ctx, []int64{d.QuotationID})
	if err != nil {
		return nil, err
	}
	d.Items = nonNilItems(items[d.QuotationID])
	return &d, nil
}

// UpdateStatus changes the lifecycle status. total_amount is never touched.
func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE order_id = $2
		RETURNING order_id, quotation_id, user_id, status, total_amount, created_at, updated_at
	`, status, id).Scan(&o.ID, &o.QuotationID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// ListForExport returns every order with items, oldest first.
func (r *repository) ListForExport(ctx context.Context) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		INNER JOIN users u ON u.user_id = o.user_id
		ORDER BY o.created_at ASC, o.order_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list orders for export: %w", err)
	}
	return r.collect(ctx, rows)
}

const invoiceColumns = `invoice_id, order_id, invoice_number, total_amount, created_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	if err := row.Scan(&inv.ID, &inv.OrderID, &inv.InvoiceNumber, &inv.TotalAmount, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) invoiceByOrder(ctx context.Context, orderID int64) (*Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1
	`, orderID))
}

// CreateInvoice relies on the unique order_id: a concurrent caller that loses
// the insert reads the winner's row instead.
func (r *repository) CreateInvoice(ctx context.Context, order Order) (*Invoice, bool, error) {
	inv, err := r.invoiceByOrder(ctx, order.ID)
	if err == nil {
		return inv, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("load invoice: %w", err)
	}

	var seq int64
	var now time.Time
	if err := r.pool.QueryRow(ctx, `SELECT nextval('invoice_number_seq'), NOW()`).Scan(&seq, &now); err != nil {
		return nil, false, fmt.Errorf("next invoice number: %w", err)
	}
	inv, err = scanInvoice(r.pool.QueryRow(ctx, `
		INSERT INTO invoices (order_id, invoice_number, total_amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING `+invoiceColumns,
		order.ID, FormatInvoiceNumber(now, seq), order.TotalAmount))
	switch {
	case err == nil:
		return inv, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		inv, err = r.invoiceByOrder(ctx, order.ID)
		if err != nil {
			return nil, false, fmt.Errorf("load invoice: %w", err)
		}
		return inv, false, nil
	default:
		return nil, false, fmt.Errorf("insert invoice: %w", err)
	}
}

func (r *repository) collect(ctx context.Context, rows pgx.Rows) ([]Detail, error) {
	defer rows.Close()
	details := make([]Detail, 0)
	var quotationIDs []int64
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
		quotationIDs = append(quotationIDs, d.QuotationID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(quotationIDs) == 0 {
		return details, nil
	}
	items, err := r.itemsByQuotation(ctx, quotationIDs)
	if err != nil {
		return nil, err
	}
	for i := range details {
		details[i].Items = nonNilItems(items[details[i].QuotationID])
	}
	return details, nil
}

func (r *repository) itemsByQuotation(ctx context.Context, quotationIDs []int64) (map[int64][]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT qi.quotation_id, qi.quotation_item_id, qi.product_id, COALESCE(p.product_name, 'Unknown'),
		       qi.quantity, qi.final_price, qi.gst_percentage, qi.grand_total_price
		FROM quotation_items qi
		LEFT JOIN products p ON p.product_id = qi.product_id
		WHERE qi.quotation_id = ANY($1)
		ORDER BY qi.quotation_id, qi.quotation_item_id
	`, quotationIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]Item, len(quotationIDs))
	for rows.Next() {
		var quotationID int64
		var it Item
		if err := rows.Scan(&quotationID, &it.QuotationItemID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.FinalPrice, &it.GSTPercentage, &it.GrandTotalPrice); err != nil {
			return nil, err
		}
		out[quotationID] = append(out[quotationID], it)
	}
	return out, rows.Err()
}

func nonNilItems(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}

// txStore implements TxStore over an open transaction.
type txStore struct {
	tx pgx.Tx
}

// NewTxStore binds the materializer writes to tx.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

// FinalizedGrandTotals reads non-null grand totals of the quotation's items.
func (t *txStore) FinalizedGrandTotals(ctx context.Context, quotationID int64) ([]decimal.Decimal, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT grand_total_price
		FROM quotation_items
		WHERE quotation_id = $1 AND grand_total_price IS NOT NULL
		ORDER BY quotation_item_id
	`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []decimal.Decimal
	for rows.Next() {
		var total decimal.Decimal
		if err := rows.Scan(&total); err != nil {
			return nil, err
		}
		totals = append(totals, total)
	}
	return totals, rows.Err()
}

// InsertOrder creates the order row.
func (t *txStore) InsertOrder(ctx context.Context, order Order) (Order, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (quotation_id, user_id, status, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING order_id, created_at, updated_at
	`, order.QuotationID, order.UserID, order.Status, order.TotalAmount).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	return order, err
}
