package quotations

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		action    Action
		party     Party
		from, to  Status
		finalizes bool
	}{
		{ActionReview, PartyReviewer, StatusPendingAdminReview, StatusAwaitingCustomerNegotiation, false},
		{ActionCustomerApprove, PartyCustomer, StatusAwaitingCustomerNegotiation, StatusFinalized, true},
		{ActionCustomerNegotiate, PartyCustomer, StatusAwaitingCustomerNegotiation, StatusPendingAdminReview, false},
		{ActionAdminApprove, PartySuperadmin, StatusPendingAdminReview, StatusFinalized, true},
		{ActionAdminNegotiate, PartySuperadmin, StatusPendingAdminReview, StatusAwaitingCustomerNegotiation, false},
		{ActionCustomerFinalApprove, PartyCustomer, StatusAwaitingCustomerNegotiation, StatusFinalized, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.action), func(t *testing.T) {
			tr, ok := Lookup(tc.action)
			require.True(t, ok)
			assert.Equal(t, tc.party, tr.Party)
			assert.Equal(t, tc.finalizes, tr.Finalizes)

			to, err := tr.Apply(tc.from)
			require.NoError(t, err)
			assert.Equal(t, tc.to, to)

			for _, other := range []Status{StatusPendingAdminReview, StatusAwaitingCustomerNegotiation, StatusFinalized, StatusDeclined} {
				if other == tc.from {
					continue
				}
				_, err := tr.Apply(other)
				assert.ErrorIs(t, err, ErrInvalidTransition, "from %s", other)
			}
		})
	}
}

func TestNoTransitionProducesDeclinedOrLeavesTerminalStates(t *testing.T) {
	for action, tr := range transitions {
		assert.NotEqual(t, StatusDeclined, tr.To, action)
		assert.NotEqual(t, StatusFinalized, tr.From, action)
		assert.NotEqual(t, StatusDeclined, tr.From, action)
	}
	assert.True(t, StatusDeclined.IsValid())
	assert.False(t, Status("cancelled").IsValid())
}

func TestChosenPrice(t *testing.T) {
	it := Item{
		SuperAdminPrice:  decimal.NewNullDecimal(decimal.NewFromInt(100)),
		NegotiationPrice: decimal.NewNullDecimal(decimal.NewFromInt(90)),
		FinalPrice:       decimal.NewNullDecimal(decimal.NewFromInt(95)),
	}
	pick := func(a Action) decimal.Decimal {
		tr, _ := Lookup(a)
		return tr.ChosenPrice(it).Decimal
	}
	assert.True(t, pick(ActionCustomerApprove).Equal(decimal.NewFromInt(100)))
	assert.True(t, pick(ActionAdminApprove).Equal(decimal.NewFromInt(90)))
	assert.True(t, pick(ActionCustomerFinalApprove).Equal(decimal.NewFromInt(95)))

	tr, _ := Lookup(ActionReview)
	assert.False(t, tr.ChosenPrice(it).Valid)
}

func TestDecisionKeywordMapping(t *testing.T) {
	a, err := customerAction("approve")
	require.NoError(t, err)
	assert.Equal(t, ActionCustomerApprove, a)
	a, err = superadminAction("negotiate")
	require.NoError(t, err)
	assert.Equal(t, ActionAdminNegotiate, a)
	_, err = customerAction("APPROVE")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestFinalUpdatesRejectsUnstorableTotals(t *testing.T) {
	price := decimal.NewNullDecimal(decimal.RequireFromString("99999999.99"))
	q := &Quotation{ID: 1, Items: []Item{
		{ID: 1, ProductID: 7, Quantity: 1, SuperAdminPrice: decimal.NewNullDecimal(decimal.NewFromInt(5))},
		{ID: 2, ProductID: 8, Quantity: 3, SuperAdminPrice: price},
	}}
	tr, ok := Lookup(ActionCustomerApprove)
	require.True(t, ok)

	updates, err := finalUpdates(q, tr)
	require.ErrorIs(t, err, ErrTotalTooLarge)
	assert.Contains(t, err.Error(), "product 8")
	assert.Nil(t, updates)

	q.Items[1].Quantity = 1
	updates, err = finalUpdates(q, tr)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.True(t, updates[1].upd.GrandTotalPrice.Decimal.Equal(price.Decimal))
}
