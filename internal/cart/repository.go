package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/b2bmarket/marketplace/internal/platform/db"
)

// Repository defines cart persistence.
type Repository interface {
	AddItem(ctx context.Context, userID, productID int64) (int64, error)
	ListItems(ctx context.Context, userID int64) ([]Item, error)
	// RemoveItem deletes an item only when it belongs to the user's cart.
	RemoveItem(ctx context.Context, userID, cartItemID int64) error
	Clear(ctx context.Context, userID int64) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL cart repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// AddItem creates the user's cart on first use and appends productID to it.
func (r *repository) AddItem(ctx context.Context, userID, productID int64) (int64, error) {
	var itemID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var cartID int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO carts (user_id) VALUES ($1)
			ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
			RETURNING cart_id
		`, userID).Scan(&cartID); err != nil {
			return fmt.Errorf("ensure cart: %w", err)
		}
		return tx.QueryRow(ctx, `
			INSERT INTO cart_items (cart_id, product_id) VALUES ($1, $2)
			RETURNING cart_item_id
		`, cartID, productID).Scan(&itemID)
	})
	switch {
	case err == nil:
		return itemID, nil
	case db.IsUniqueViolation(err):
		return 0, ErrAlreadyInCart
	case db.IsForeignKeyViolation(err):
		return 0, ErrProductNotFound
	default:
		return 0, err
	}
}

// ListItems returns the cart contents with product details, oldest first.
func (r *repository) ListItems(ctx context.Context, userID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ci.cart_item_id, p.product_id, p.product_name,
		       COALESCE(p.oem_name, ''), COALESCE(p.part_no, ''), COALESCE(p.hsn_no, '')
		FROM cart_items ci
		INNER JOIN carts c ON c.cart_id = ci.cart_id
		INNER JOIN products p ON p.product_id = ci.product_id
		WHERE c.user_id = $1
		ORDER BY ci.cart_item_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.CartItemID, &it.ProductID, &it.ProductName, &it.OEMName, &it.PartNo, &it.HSNNo); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) RemoveItem(ctx context.Context, userID, cartItemID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.cart_id AND c.user_id = $1 AND ci.cart_item_id = $2
	`, userID, cartItemID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Clear empties the user's cart and reports how many items were removed.
func (r *repository) Clear(ctx context.Context, userID int64) (int64, error) {
	var cartID int64
	err := r.pool.QueryRow(ctx, `SELECT cart_id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCartNotFound
		}
		return 0, err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	return tag.RowsAffected(), nil
}

// TxStore is the cart as seen from inside another module's transaction.
type TxStore interface {
	// LockCart returns the user's cart id and its product ids, locking the items.
	LockCart(ctx context.Context, userID int64) (int64, []int64, error)
	RemoveProducts(ctx context.Context, cartID int64, productIDs []int64) (int64, error)
}

type txStore struct {
	tx pgx.Tx
}

// NewTxStore binds cart reads and writes to tx.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

func (t *txStore) LockCart(ctx context.Context, userID int64) (int64, []int64, error) {
	var cartID int64
	if err := t.tx.QueryRow(ctx, `SELECT cart_id FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, ErrCartNotFound
		}
		return 0, nil, err
	}
	rows, err := t.tx.Query(ctx, `SELECT product_id FROM cart_items WHERE cart_id = $1 ORDER BY cart_item_id FOR UPDATE`, cartID)
	if err != nil {
		return 0, nil, err
	}
	products, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, nil, err
	}
	return cartID, products, nil
}

func (t *txStore) RemoveProducts(ctx context.Context, cartID int64, productIDs []int64) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = ANY($2)`, cartID, productIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
