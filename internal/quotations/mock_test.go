package quotations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/b2bmarket/marketplace/internal/cart"
	"github.com/b2bmarket/marketplace/internal/orders"
	"github.com/b2bmarket/marketplace/internal/shared"
)

type memCart struct {
	id       int64
	products []int64
}

type memState struct {
	quotations  map[int64]*Quotation
	carts       map[int64]*memCart
	orders      map[int64]orders.Order
	negotiation []shared.ApprovalLog
	audits      []shared.AuditLog
	nextID      int64
}

func (s *memState) clone() *memState {
	c := &memState{
		quotations:  make(map[int64]*Quotation, len(s.quotations)),
		carts:       make(map[int64]*memCart, len(s.carts)),
		orders:      make(map[int64]orders.Order, len(s.orders)),
		negotiation: append([]shared.ApprovalLog(nil), s.negotiation...),
		audits:      append([]shared.AuditLog(nil), s.audits...),
		nextID:      s.nextID,
	}
	for id, q := range s.quotations {
		c.quotations[id] = copyQuotation(q)
	}
	for user, mc := range s.carts {
		c.carts[user] = &memCart{id: mc.id, products: append([]int64(nil), mc.products...)}
	}
	for id, o := range s.orders {
		c.orders[id] = o
	}
	return c
}

func copyQuotation(q *Quotation) *Quotation {
	cp := *q
	cp.Items = append([]Item(nil), q.Items...)
	return &cp
}

// memRepo is an in-memory Repository. WithTx holds a mutex for the whole
// callback, which stands in for the row lock, and commits the cloned state
// only when the callback succeeds.
type memRepo struct {
	mu         sync.Mutex
	state      *memState
	products   map[int64]string
	itemWrites int
	txCount    int
}

func newMemRepo() *memRepo {
	return &memRepo{
		state: &memState{
			quotations: make(map[int64]*Quotation),
			carts:      make(map[int64]*memCart),
			orders:     make(map[int64]orders.Order),
		},
		products: map[int64]string{7: "Steel Rod", 8: "Copper Wire", 9: "Gate Valve", 10: "Flange"},
	}
}

func (m *memRepo) seedCart(userID int64, products ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.nextID++
	m.state.carts[userID] = &memCart{id: m.state.nextID, products: products}
}

func (m *memRepo) cartProducts(userID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.state.carts[userID]
	if !ok {
		return nil
	}
	return append([]int64{}, mc.products...)
}

func (m *memRepo) quotation(id int64) *Quotation {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.state.quotations[id]
	if !ok {
		return nil
	}
	return copyQuotation(q)
}

func (m *memRepo) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

func (m *memRepo) order(quotationID int64) (orders.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[quotationID]
	return o, ok
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	work := m.state.clone()
	if err := fn(ctx, &memTx{repo: m, st: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (*Quotation, error) {
	q := m.quotation(id)
	if q == nil {
		return nil, ErrNotFound
	}
	return q, nil
}

func (m *memRepo) ListByUser(ctx context.Context, userID int64) ([]Quotation, error) {
	all, _, err := m.ListAll(ctx, shared.PageRequest{Page: 1, PerPage: 1000})
	if err != nil {
		return nil, err
	}
	out := make([]Quotation, 0)
	for _, q := range all {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memRepo) ListAll(ctx context.Context, page shared.PageRequest) ([]Quotation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Quotation, 0, len(m.state.quotations))
	for _, q := range m.state.quotations {
		out = append(out, *copyQuotation(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.PerPage
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (m *memRepo) History(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]shared.ApprovalLog, 0)
	for _, l := range m.state.negotiation {
		if l.RefID == id {
			out = append(out, l)
		}
	}
	return out, nil
}

// ListItems makes memRepo a CartReader.
func (m *memRepo) ListItems(ctx context.Context, userID int64) ([]cart.Item, error) {
	items := make([]cart.Item, 0)
	for i, p := range m.cartProducts(userID) {
		items = append(items, cart.Item{CartItemID: int64(i + 1), ProductID: p, ProductName: m.products[p]})
	}
	return items, nil
}

type memTx struct {
	repo *memRepo
	st   *memState
}

func (t *memTx) LockCart(ctx context.Context, userID int64) (int64, []int64, error) {
	mc, ok := t.st.carts[userID]
	if !ok {
		return 0, nil, cart.ErrCartNotFound
	}
	return mc.id, append([]int64(nil), mc.products...), nil
}

func (t *memTx) RemoveProducts(ctx context.Context, cartID int64, productIDs []int64) (int64, error) {
	drop := make(map[int64]bool, len(productIDs))
	for _, p := range productIDs {
		drop[p] = true
	}
	var removed int64
	for _, mc := range t.st.carts {
		if mc.id != cartID {
			continue
		}
		kept := mc.products[:0:0]
		for _, p := range mc.products {
			if drop[p] {
				removed++
				continue
			}
			kept = append(kept, p)
		}
		mc.products = kept
	}
	return removed, nil
}

func (t *memTx) FinalizedGrandTotals(ctx context.Context, quotationID int64) ([]decimal.Decimal, error) {
	q, ok := t.st.quotations[quotationID]
	if !ok {
		return nil, nil
	}
	var totals []decimal.Decimal
	for _, it := range q.Items {
		if it.GrandTotalPrice.Valid {
			totals = append(totals, it.GrandTotalPrice.Decimal)
		}
	}
	return totals, nil
}

func (t *memTx) InsertOrder(ctx context.Context, order orders.Order) (orders.Order, error) {
	if _, exists := t.st.orders[order.QuotationID]; exists {
		return orders.Order{}, &pgconn.PgError{Code: "23505"}
	}
	t.st.nextID++
	order.ID = t.st.nextID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	t.st.orders[order.QuotationID] = order
	return order, nil
}

func (t *memTx) Lock(ctx context.Context, id int64) (*Quotation, error) {
	q, ok := t.st.quotations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyQuotation(q), nil
}

func (t *memTx) Insert(ctx context.Context, userID int64, status Status) (*Quotation, error) {
	t.st.nextID++
	now := time.Now()
	q := &Quotation{ID: t.st.nextID, UserID: userID, Status: status, CreatedAt: now, UpdatedAt: now}
	t.st.quotations[q.ID] = copyQuotation(q)
	return q, nil
}

func (t *memTx) InsertItem(ctx context.Context, item Item) (Item, error) {
	t.st.nextID++
	item.ID = t.st.nextID
	item.ProductName = t.repo.products[item.ProductID]
	q := t.st.quotations[item.QuotationID]
	q.Items = append(q.Items, item)
	return item, nil
}

func (t *memTx) UpdateItem(ctx context.Context, itemID int64, upd ItemUpdate) error {
	t.repo.itemWrites++
	for _, q := range t.st.quotations {
		for i := range q.Items {
			it := &q.Items[i]
			if it.ID != itemID {
				continue
			}
			set := func(dst *decimal.NullDecimal, src decimal.NullDecimal) {
				if src.Valid {
					*dst = src
				}
			}
			set(&it.SuperAdminPrice, upd.SuperAdminPrice)
			set(&it.NegotiationPrice, upd.NegotiationPrice)
			set(&it.FinalPrice, upd.FinalPrice)
			set(&it.GSTPercentage, upd.GSTPercentage)
			set(&it.GrandTotalPrice, upd.GrandTotalPrice)
			return nil
		}
	}
	return nil
}

func (t *memTx) SetStatus(ctx context.Context, id int64, status Status) error {
	t.st.quotations[id].Status = status
	return nil
}

func (t *memTx) Delete(ctx context.Context, id int64) error {
	delete(t.st.quotations, id)
	return nil
}

func (t *memTx) RecordNegotiation(ctx context.Context, log shared.ApprovalLog) error {
	log.Module = ApprovalModule
	t.st.nextID++
	log.ID = t.st.nextID
	log.At = time.Now()
	t.st.negotiation = append(t.st.negotiation, log)
	return nil
}

func (t *memTx) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	t.st.audits = append(t.st.audits, log)
	return nil
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string]bool)
	}
	if m.keys[module+"/"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+"/"+key] = true
	return nil
}

func (m *memIdempotency) Delete(ctx context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, module+"/"+key)
	return nil
}

type recordingMetrics struct {
	mu          sync.Mutex
	transitions map[string]int
	orders      int
}

func (r *recordingMetrics) ObserveTransition(action, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transitions == nil {
		r.transitions = make(map[string]int)
	}
	r.transitions[action+"/"+outcome]++
}

func (r *recordingMetrics) OrderMaterialized() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders++
}

type recordingNotifier struct {
	mu     sync.Mutex
	placed []orders.Order
}

func (n *recordingNotifier) OrderPlaced(ctx context.Context, order orders.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, order)
	return nil
}

var _ Repository = (*memRepo)(nil)
var _ TxRepository = (*memTx)(nil)
var _ CartReader = (*memRepo)(nil)
