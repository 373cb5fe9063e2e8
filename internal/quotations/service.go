package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/b2bmarket/marketplace/internal/cart"
	"github.com/b2bmarket/marketplace/internal/orders"
	"github.com/b2bmarket/marketplace/internal/platform/db"
	"github.com/b2bmarket/marketplace/internal/pricing"
	"github.com/b2bmarket/marketplace/internal/shared"
)

// Idempotency guards against replayed transition requests.
type Idempotency interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Metrics observes negotiation outcomes.
type Metrics interface {
	ObserveTransition(action, outcome string)
	OrderMaterialized()
}

// Notifier is told about orders after their transaction committed.
type Notifier interface {
	OrderPlaced(ctx context.Context, order orders.Order) error
}

// CartReader lists the products in a user's cart.
type CartReader interface {
	ListItems(ctx context.Context, userID int64) ([]cart.Item, error)
}

// Outcome labels for transition metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Options carries the optional collaborators of Service.
type Options struct {
	Idempotency Idempotency
	Metrics     Metrics
	Notifier    Notifier
	Logger      *slog.Logger
}

// Service implements the negotiation workflow.
type Service struct {
	repo     Repository
	carts    CartReader
	policy   shared.RolePolicy
	idem     Idempotency
	metrics  Metrics
	notifier Notifier
	logger   *slog.Logger
}

// NewService wires a Service.
func NewService(repo Repository, carts CartReader, policy shared.RolePolicy, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Service{
		repo:     repo,
		carts:    carts,
		policy:   policy,
		idem:     opts.Idempotency,
		metrics:  metrics,
		notifier: opts.Notifier,
		logger:   logger,
	}
}

// Form prefills the quotation form with every cart product at quantity 1.
func (s *Service) Form(ctx context.Context, actor shared.Actor) ([]FormLine, error) {
	items, err := s.carts.ListItems(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	form := make([]FormLine, 0, len(items))
	for _, it := range items {
		form = append(form, FormLine{ProductID: it.ProductID, ProductName: it.ProductName, Quantity: 1})
	}
	return form, nil
}

// Create submits the selected cart products as a new quotation and removes
// exactly those products from the cart.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateRequest) (*Quotation, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	seen := make(map[int64]struct{}, len(req.Items))
	productIDs := make([]int64, 0, len(req.Items))
	for i := range req.Items {
		it := &req.Items[i]
		if it.Quantity == 0 {
			it.Quantity = 1
		}
		if pricing.ValidateQuantity(it.Quantity) != nil {
			return nil, ErrInvalidQuantity
		}
		if _, dup := seen[it.ProductID]; dup {
			return nil, fmt.Errorf("%w: product %d", ErrDuplicateProduct, it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
		productIDs = append(productIDs, it.ProductID)
	}

	var created *Quotation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cartID, inCart, err := tx.LockCart(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, cart.ErrCartNotFound) {
				return ErrNoCart
			}
			return err
		}
		available := make(map[int64]struct{}, len(inCart))
		for _, id := range inCart {
			available[id] = struct{}{}
		}
		for _, id := range productIDs {
			if _, ok := available[id]; !ok {
				return fmt.Errorf("%w: product %d", ErrItemNotInCart, id)
			}
		}

		q, err := tx.Insert(ctx, actor.UserID, StatusPendingAdminReview)
		if err != nil {
			return err
		}
		for _, it := range req.Items {
			item, err := tx.InsertItem(ctx, Item{QuotationID: q.ID, ProductID: it.ProductID, Quantity: it.Quantity})
			if err != nil {
				return err
			}
			q.Items = append(q.Items, item)
		}
		if _, err := tx.RemoveProducts(ctx, cartID, productIDs); err != nil {
			return fmt.Errorf("remove cart items: %w", err)
		}
		if err := s.record(ctx, tx, actor, q.ID, ActionSubmit, shared.ApprovalSubmit, map[string]any{"products": productIDs}); err != nil {
			return err
		}
		created = q
		return nil
	})
	if err != nil {
		s.observe(ActionSubmit, err)
		return nil, s.translate(err)
	}
	s.observe(ActionSubmit, nil)
	s.logger.Info("quotation created",
		slog.Int64("quotation_id", created.ID),
		slog.Int64("user_id", actor.UserID),
		slog.Int("items", len(created.Items)),
	)
	return created, nil
}

// Review records the admin's price and GST per product and hands the quotation to the customer.
func (s *Service) Review(ctx context.Context, actor shared.Actor, id int64, req ReviewRequest, idemKey string) (*TransitionResult, error) {
	if !s.policy.CanReview(actor) {
		s.observe(ActionReview, ErrForbiddenReview)
		return nil, ErrForbiddenReview
	}
	if len(req.Items) == 0 {
		return nil, ErrMissingPrices
	}
	for _, it := range req.Items {
		if err := validPrice(it.NewPrice); err != nil {
			return nil, err
		}
		if err := pricing.ValidateGST(it.GSTPercentage); err != nil {
			return nil, fmt.Errorf("%w: product %d", ErrInvalidGST, it.ProductID)
		}
	}

	t, _ := Lookup(ActionReview)
	return s.transition(ctx, actor, id, t, idemKey, func(ctx context.Context, tx TxRepository, q *Quotation) error {
		updates, err := resolveItems(q, len(req.Items), func(i int) (int64, ItemUpdate) {
			it := req.Items[i]
			gst := it.GSTPercentage
			if !gst.Valid {
				gst = decimal.NewNullDecimal(decimal.Zero)
			}
			return it.ProductID, ItemUpdate{
				SuperAdminPrice: decimal.NewNullDecimal(it.NewPrice),
				GSTPercentage:   gst,
			}
		})
		if err != nil {
			return err
		}
		return applyUpdates(ctx, tx, updates)
	})
}

// CustomerNegotiate either accepts the admin prices, finalizing the quotation,
// or counters them with the customer's own prices.
func (s *Service) CustomerNegotiate(ctx context.Context, actor shared.Actor, id int64, req NegotiateRequest, idemKey string) (*TransitionResult, error) {
	action, err := customerAction(req.Action)
	if err != nil {
		return nil, err
	}
	t, _ := Lookup(action)
	if action == ActionCustomerApprove {
		return s.transition(ctx, actor, id, t, idemKey, nil)
	}
	if err := validPriceItems(req.Items); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, t, idemKey, func(ctx context.Context, tx TxRepository, q *Quotation) error {
		updates, err := resolveItems(q, len(req.Items), func(i int) (int64, ItemUpdate) {
			return req.Items[i].ProductID, ItemUpdate{NegotiationPrice: decimal.NewNullDecimal(req.Items[i].NewPrice)}
		})
		if err != nil {
			return err
		}
		return applyUpdates(ctx, tx, updates)
	})
}

// AdminDecision is the superadmin's answer to a customer counter: approve the
// customer's prices or propose final prices.
func (s *Service) AdminDecision(ctx context.Context, actor shared.Actor, id int64, req DecisionRequest, idemKey string) (*TransitionResult, error) {
	if !s.policy.IsSuperadmin(actor) {
		s.observe(ActionAdminApprove, ErrForbiddenDecision)
		return nil, ErrForbiddenDecision
	}
	action, err := superadminAction(req.Action)
	if err != nil {
		return nil, err
	}
	t, _ := Lookup(action)
	if action == ActionAdminApprove {
		return s.transition(ctx, actor, id, t, idemKey, nil)
	}
	if err := validPriceItems(req.Items); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, t, idemKey, func(ctx context.Context, tx TxRepository, q *Quotation) error {
		updates, err := resolveItems(q, len(req.Items), func(i int) (int64, ItemUpdate) {
			return req.Items[i].ProductID, ItemUpdate{FinalPrice: decimal.NewNullDecimal(req.Items[i].NewPrice)}
		})
		if err != nil {
			return err
		}
		return applyUpdates(ctx, tx, updates)
	})
}

// CustomerFinalDecision accepts the superadmin's final prices.
func (s *Service) CustomerFinalDecision(ctx context.Context, actor shared.Actor, id int64, req FinalDecisionRequest, idemKey string) (*TransitionResult, error) {
	if req.Action != DecisionApprove {
		return nil, ErrInvalidFinalAction
	}
	t, _ := Lookup(ActionCustomerFinalApprove)
	return s.transition(ctx, actor, id, t, idemKey, nil)
}

// Delete removes one of the actor's quotations with its items.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if q.UserID != actor.UserID {
			return ErrNotFound
		}
		if q.Status == StatusFinalized {
			return ErrCannotDeleteFinalized
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  actor.UserID,
			Action:   string(ActionDelete),
			Entity:   ApprovalModule,
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"status": string(q.Status), "items": len(q.Items)},
		})
	})
	s.observe(ActionDelete, err)
	if err != nil {
		return s.translate(err)
	}
	s.logger.Info("quotation deleted", slog.Int64("quotation_id", id), slog.Int64("user_id", actor.UserID))
	return nil
}

// Get returns a quotation visible to actor: the owner's own, or any for admins.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id int64) (*Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.UserID != actor.UserID && !s.policy.IsAdmin(actor) {
		return nil, ErrNotFound
	}
	return q, nil
}

// ListMine returns the actor's quotations, newest first.
func (s *Service) ListMine(ctx context.Context, actor shared.Actor) ([]Quotation, error) {
	quotations, err := s.repo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(quotations) == 0 {
		return nil, ErrNoQuotations
	}
	return quotations, nil
}

// ListAdmin returns a page of every quotation with the customer name.
func (s *Service) ListAdmin(ctx context.Context, actor shared.Actor, page shared.PageRequest) (*AdminListResponse, error) {
	if !s.policy.IsAdmin(actor) {
		return nil, ErrForbiddenList
	}
	quotations, total, err := s.repo.ListAll(ctx, page)
	if err != nil {
		return nil, err
	}
	return &AdminListResponse{
		Quotations: quotations,
		Pagination: shared.NewPagination(page.Page, page.PerPage, total),
	}, nil
}

// History returns the negotiation log of a quotation visible to actor.
func (s *Service) History(ctx context.Context, actor shared.Actor, id int64) ([]shared.ApprovalLog, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

// mutateFunc writes the item changes of a non-finalizing transition.
type mutateFunc func(ctx context.Context, tx TxRepository, q *Quotation) error

// transition runs t against quotation id in one transaction: lock, check
// visibility and state, write items, flip status, materialize the order on
// finalization, and log.
func (s *Service) transition(ctx context.Context, actor shared.Actor, id int64, t Transition, idemKey string, mutate mutateFunc) (*TransitionResult, error) {
	idemModule := fmt.Sprintf("%s:%s:%d", ApprovalModule, t.Action, id)
	if idemKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idemKey, idemModule); err != nil {
			s.observe(t.Action, err)
			return nil, err
		}
	}

	var result TransitionResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if t.Party == PartyCustomer && q.UserID != actor.UserID {
			return ErrNotFound
		}
		to, err := t.Apply(q.Status)
		if err != nil {
			return err
		}

		if t.Finalizes {
			updates, err := finalUpdates(q, t)
			if err != nil {
				return err
			}
			if err := applyUpdates(ctx, tx, updates); err != nil {
				return err
			}
		} else if mutate != nil {
			if err := mutate(ctx, tx, q); err != nil {
				return err
			}
		}

		if err := tx.SetStatus(ctx, q.ID, to); err != nil {
			return err
		}
		result = TransitionResult{QuotationID: q.ID, Status: to}

		if t.Finalizes {
			order, err := orders.Materialize(ctx, tx, orders.Source{QuotationID: q.ID, UserID: q.UserID})
			if err != nil {
				return err
			}
			result.Order = order
		}

		meta := map[string]any{"from": string(q.Status), "to": string(to)}
		if result.Order != nil {
			meta["order_id"] = result.Order.ID
			meta["total_amount"] = result.Order.TotalAmount.StringFixed(pricing.Scale)
		}
		return s.record(ctx, tx, actor, q.ID, t.Action, t.Log, meta)
	})
	s.observe(t.Action, err)
	if err != nil {
		if idemKey != "" && s.idem != nil {
			if delErr := s.idem.Delete(context.WithoutCancel(ctx), idemKey, idemModule); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr), slog.String("key", idemKey))
			}
		}
		err = s.translate(err)
		if !isClientError(err) {
			s.logger.Error("quotation transition failed",
				slog.Any("error", err),
				slog.Int64("quotation_id", id),
				slog.String("action", string(t.Action)),
			)
		}
		return nil, err
	}

	s.logger.Info("quotation transition",
		slog.Int64("quotation_id", id),
		slog.String("action", string(t.Action)),
		slog.String("status", string(result.Status)),
		slog.Int64("actor_id", actor.UserID),
	)
	if result.Order != nil {
		s.metrics.OrderMaterialized()
		s.notify(ctx, *result.Order)
	}
	return &result, nil
}

func (s *Service) record(ctx context.Context, tx TxRepository, actor shared.Actor, id int64, action Action, logAction shared.ApprovalAction, meta map[string]any) error {
	if err := tx.RecordNegotiation(ctx, shared.ApprovalLog{
		RefID:   id,
		ActorID: actor.UserID,
		Action:  logAction,
		Note:    string(action),
	}); err != nil {
		return fmt.Errorf("record negotiation: %w", err)
	}
	if err := tx.RecordAudit(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   string(action),
		Entity:   ApprovalModule,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, order orders.Order) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OrderPlaced(context.WithoutCancel(ctx), order); err != nil {
		s.logger.Warn("enqueue order placed", slog.Any("error", err), slog.Int64("order_id", order.ID))
	}
}

func (s *Service) observe(action Action, err error) {
	outcome := OutcomeSuccess
	switch {
	case err == nil:
	case isClientError(err), db.IsSerializationFailure(err):
		outcome = OutcomeRejected
	default:
		outcome = OutcomeError
	}
	s.metrics.ObserveTransition(string(action), outcome)
}

// translate maps storage failures to domain errors.
func (s *Service) translate(err error) error {
	if db.IsSerializationFailure(err) {
		return ErrConcurrentUpdate
	}
	return err
}

func isClientError(err error) bool {
	return errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrValidation) ||
		errors.Is(err, shared.ErrForbidden) ||
		errors.Is(err, shared.ErrConflict)
}

// finalUpdates prices every item with the price t locks in. No item is
// written unless all of them can be priced.
func finalUpdates(q *Quotation, t Transition) ([]pendingUpdate, error) {
	if len(q.Items) == 0 {
		return nil, orders.ErrNoFinalizedItems
	}
	updates := make([]pendingUpdate, 0, len(q.Items))
	for _, it := range q.Items {
		chosen := t.ChosenPrice(it)
		if !chosen.Valid {
			return nil, fmt.Errorf("%w: product %d", ErrPriceMissing, it.ProductID)
		}
		total, err := pricing.GrandTotal(chosen.Decimal, it.Quantity, it.GSTPercentage)
		if err != nil {
			if errors.Is(err, pricing.ErrAmountOutOfRange) {
				return nil, fmt.Errorf("%w: product %d", ErrTotalTooLarge, it.ProductID)
			}
			return nil, fmt.Errorf("%w: product %d: %v", ErrPriceMissing, it.ProductID, err)
		}
		updates = append(updates, pendingUpdate{itemID: it.ID, upd: ItemUpdate{
			FinalPrice:      chosen,
			GrandTotalPrice: decimal.NewNullDecimal(total),
		}})
	}
	return updates, nil
}

// resolveItems maps request lines onto quotation items by product, failing
// before any write when a product is not part of q, is listed twice, is left
// out, or would produce a line total that cannot be stored.
func resolveItems(q *Quotation, n int, line func(i int) (int64, ItemUpdate)) ([]pendingUpdate, error) {
	updates := make([]pendingUpdate, 0, n)
	seen := make(map[int64]struct{}, n)
	for i := 0; i < n; i++ {
		productID, upd := line(i)
		it, ok := q.itemByProduct(productID)
		if !ok {
			return nil, fmt.Errorf("%w: product %d", ErrItemNotInQuotation, productID)
		}
		if _, dup := seen[productID]; dup {
			return nil, fmt.Errorf("%w: product %d", ErrDuplicateProduct, productID)
		}
		seen[productID] = struct{}{}
		if err := checkLineTotal(it, upd); err != nil {
			return nil, err
		}
		updates = append(updates, pendingUpdate{itemID: it.ID, upd: upd})
	}
	for _, it := range q.Items {
		if _, ok := seen[it.ProductID]; !ok {
			return nil, fmt.Errorf("%w: product %d missing", ErrIncompletePrices, it.ProductID)
		}
	}
	return updates, nil
}

// checkLineTotal prices it with the proposed price so that a later approval
// of that price cannot overflow grand_total_price.
func checkLineTotal(it Item, upd ItemUpdate) error {
	var price decimal.NullDecimal
	for _, p := range []decimal.NullDecimal{upd.SuperAdminPrice, upd.NegotiationPrice, upd.FinalPrice} {
		if p.Valid {
			price = p
			break
		}
	}
	if !price.Valid {
		return nil
	}
	gst := it.GSTPercentage
	if upd.GSTPercentage.Valid {
		gst = upd.GSTPercentage
	}
	if _, err := pricing.GrandTotal(price.Decimal, it.Quantity, gst); err != nil {
		if errors.Is(err, pricing.ErrAmountOutOfRange) {
			return fmt.Errorf("%w: product %d", ErrLineTotalTooLarge, it.ProductID)
		}
		return fmt.Errorf("%w: product %d: %v", ErrInvalidPrice, it.ProductID, err)
	}
	return nil
}

type pendingUpdate struct {
	itemID int64
	upd    ItemUpdate
}

func applyUpdates(ctx context.Context, tx TxRepository, updates []pendingUpdate) error {
	for _, u := range updates {
		if err := tx.UpdateItem(ctx, u.itemID, u.upd); err != nil {
			return err
		}
	}
	return nil
}

func validPrice(price decimal.Decimal) error {
	if err := pricing.ValidatePrice(price); err != nil {
		return fmt.Errorf("%w: got %s", ErrInvalidPrice, price.String())
	}
	return nil
}

func validPriceItems(items []PriceItem) error {
	if len(items) == 0 {
		return ErrMissingPrices
	}
	for _, it := range items {
		if err := validPrice(it.NewPrice); err != nil {
			return err
		}
	}
	return nil
}

type noopMetrics struct{}

func (noopMetrics) ObserveTransition(string, string) {}
func (noopMetrics) OrderMaterialized()               {}
