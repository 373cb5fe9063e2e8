package quotations

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/b2bmarket/marketplace/internal/shared"
)

// Action names a negotiation transition.
type Action string

const (
	ActionSubmit               Action = "submit"
	ActionReview               Action = "review"
	ActionCustomerApprove      Action = "customer_approve"
	ActionCustomerNegotiate    Action = "customer_negotiate"
	ActionAdminApprove         Action = "admin_approve"
	ActionAdminNegotiate       Action = "admin_negotiate"
	ActionCustomerFinalApprove Action = "customer_final_approve"
	ActionDelete               Action = "delete"
)

// Party is who may perform a transition.
type Party int

const (
	PartyCustomer Party = iota + 1
	PartyReviewer
	PartySuperadmin
)

// PriceSource selects the item price that becomes final on approval.
type PriceSource int

const (
	PriceNone PriceSource = iota
	PriceSuperAdmin
	PriceNegotiation
	PriceFinal
)

// Transition is one legal edge of the negotiation graph.
type Transition struct {
	Action Action
	Party  Party
	From   Status
	To     Status
	// Finalizes is set on the edges into StatusFinalized; Source picks the price they lock in.
	Finalizes bool
	Source    PriceSource
	Log       shared.ApprovalAction
}

var transitions = map[Action]Transition{
	ActionReview: {
		Action: ActionReview, Party: PartyReviewer,
		From: StatusPendingAdminReview, To: StatusAwaitingCustomerNegotiation,
		Log: shared.ApprovalReview,
	},
	ActionCustomerApprove: {
		Action: ActionCustomerApprove, Party: PartyCustomer,
		From: StatusAwaitingCustomerNegotiation, To: StatusFinalized,
		Finalizes: true, Source: PriceSuperAdmin, Log: shared.ApprovalApprove,
	},
	ActionCustomerNegotiate: {
		Action: ActionCustomerNegotiate, Party: PartyCustomer,
		From: StatusAwaitingCustomerNegotiation, To: StatusPendingAdminReview,
		Log: shared.ApprovalNegotiate,
	},
	ActionAdminApprove: {
		Action: ActionAdminApprove, Party: PartySuperadmin,
		From: StatusPendingAdminReview, To: StatusFinalized,
		Finalizes: true, Source: PriceNegotiation, Log: shared.ApprovalApprove,
	},
	ActionAdminNegotiate: {
		Action: ActionAdminNegotiate, Party: PartySuperadmin,
		From: StatusPendingAdminReview, To: StatusAwaitingCustomerNegotiation,
		Log: shared.ApprovalNegotiate,
	},
	ActionCustomerFinalApprove: {
		Action: ActionCustomerFinalApprove, Party: PartyCustomer,
		From: StatusAwaitingCustomerNegotiation, To: StatusFinalized,
		Finalizes: true, Source: PriceFinal, Log: shared.ApprovalApprove,
	},
}

// Lookup returns the transition registered for action.
func Lookup(action Action) (Transition, bool) {
	t, ok := transitions[action]
	return t, ok
}

// Apply checks that a quotation in status from may take t and returns the target status.
func (t Transition) Apply(from Status) (Status, error) {
	if from != t.From {
		return from, fmt.Errorf("%w: %s requires %s, quotation is %s", ErrInvalidTransition, t.Action, t.From, from)
	}
	return t.To, nil
}

// ChosenPrice returns the price t locks in for it.
func (t Transition) ChosenPrice(it Item) decimal.NullDecimal {
	switch t.Source {
	case PriceSuperAdmin:
		return it.SuperAdminPrice
	case PriceNegotiation:
		return it.NegotiationPrice
	case PriceFinal:
		return it.FinalPrice
	default:
		return decimal.NullDecimal{}
	}
}

// customerAction maps the negotiate endpoint keyword to a transition.
func customerAction(keyword string) (Action, error) {
	switch keyword {
	case DecisionApprove:
		return ActionCustomerApprove, nil
	case DecisionNegotiate:
		return ActionCustomerNegotiate, nil
	default:
		return "", ErrInvalidAction
	}
}

// superadminAction maps the decision endpoint keyword to a transition.
func superadminAction(keyword string) (Action, error) {
	switch keyword {
	case DecisionApprove:
		return ActionAdminApprove, nil
	case DecisionNegotiate:
		return ActionAdminNegotiate, nil
	default:
		return "", ErrInvalidAction
	}
}
