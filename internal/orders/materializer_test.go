package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bmarket/marketplace/internal/shared"
)

type fakeTxStore struct {
	totals    []decimal.Decimal
	totalsErr error
	insertErr error
	inserted  []Order
}

func (f *fakeTxStore) FinalizedGrandTotals(ctx context.Context, quotationID int64) ([]decimal.Decimal, error) {
	return f.totals, f.totalsErr
}

func (f *fakeTxStore) InsertOrder(ctx context.Context, order Order) (Order, error) {
	if f.insertErr != nil {
		return Order{}, f.insertErr
	}
	order.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, order)
	return order, nil
}

func TestMaterializeSumsGrandTotals(t *testing.T) {
	store := &fakeTxStore{totals: []decimal.Decimal{
		decimal.RequireFromString("354.00"),
		decimal.RequireFromString("105.50"),
	}}

	order, err := Materialize(context.Background(), store, Source{QuotationID: 11, UserID: 3})
	require.NoError(t, err)
	assert.Equal(t, StatusPlaced, order.Status)
	assert.Equal(t, int64(11), order.QuotationID)
	assert.Equal(t, int64(3), order.UserID)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("459.50")))
	require.Len(t, store.inserted, 1)
}

func TestMaterializeRejectsMissingOwner(t *testing.T) {
	store := &fakeTxStore{totals: []decimal.Decimal{decimal.NewFromInt(1)}}
	_, err := Materialize(context.Background(), store, Source{QuotationID: 1})
	require.ErrorIs(t, err, ErrMissingOwner)
	assert.Empty(t, store.inserted)
}

func TestMaterializeRejectsEmptyQuotation(t *testing.T) {
	store := &fakeTxStore{}
	_, err := Materialize(context.Background(), store, Source{QuotationID: 1, UserID: 2})
	require.ErrorIs(t, err, ErrNoFinalizedItems)
	assert.True(t, errors.Is(err, shared.ErrConflict))
	assert.Empty(t, store.inserted)
}

func TestMaterializeDuplicateOrder(t *testing.T) {
	store := &fakeTxStore{
		totals:    []decimal.Decimal{decimal.NewFromInt(10)},
		insertErr: &pgconn.PgError{Code: "23505"},
	}
	_, err := Materialize(context.Background(), store, Source{QuotationID: 1, UserID: 2})
	require.ErrorIs(t, err, ErrOrderExists)
}

func TestMaterializePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Materialize(context.Background(), &fakeTxStore{totalsErr: boom}, Source{QuotationID: 1, UserID: 2})
	require.ErrorIs(t, err, boom)

	_, err = Materialize(context.Background(), &fakeTxStore{
		totals:    []decimal.Decimal{decimal.NewFromInt(1)},
		insertErr: boom,
	}, Source{QuotationID: 1, UserID: 2})
	require.ErrorIs(t, err, boom)
}

func TestMaterializeRejectsTotalAboveColumnRange(t *testing.T) {
	line := decimal.RequireFromString("99999999.99")
	totals := make([]decimal.Decimal, 101)
	for i := range totals {
		totals[i] = line
	}
	store := &fakeTxStore{totals: totals}

	_, err := Materialize(context.Background(), store, Source{QuotationID: 4, UserID: 2})
	require.ErrorIs(t, err, ErrTotalTooLarge)
	assert.True(t, errors.Is(err, shared.ErrConflict))
	assert.Empty(t, store.inserted)

	store.totals = totals[:100]
	order, err := Materialize(context.Background(), store, Source{QuotationID: 4, UserID: 2})
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("9999999999.00")))
}
