package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-folio/internal/money"
)

// Role is the authority level of the person settling a folio.
type Role string

const (
	RoleManager Role = "manager"
	RoleOwner   Role = "owner"
)

// Override lets a manager or owner release checkout with a balance still due.
type Override struct {
	ActorID string `json:"actorId"`
	Role    Role   `json:"role"`
	Reason  string `json:"reason"`
}

func (o Override) validate() error {
	switch Role(strings.ToLower(strings.TrimSpace(string(o.Role)))) {
	case RoleManager, RoleOwner:
	default:
		return fmt.Errorf("%w: role %q", ErrOverrideNotAuthorized, o.Role)
	}
	if strings.TrimSpace(o.Reason) == "" {
		return ErrOverrideReasonRequired
	}
	return nil
}

// Settlement is the reconciliation of a grand total against payments.
type Settlement struct {
	GrandTotal  decimal.Decimal `json:"grandTotal"`
	Paid        decimal.Decimal `json:"paid"`
	AmountDue   decimal.Decimal `json:"amountDue"`
	Overpayment decimal.Decimal `json:"overpayment"`
	Blocked     bool            `json:"blocked"`
	// OverrideApplied is set only when an override actually released a balance.
	OverrideApplied *Override `json:"overrideApplied,omitempty"`
}

// Err returns ErrOutstandingBalance when checkout must not proceed.
func (s Settlement) Err() error {
	if s.Blocked {
		return fmt.Errorf("%w: %s due", ErrOutstandingBalance, s.AmountDue)
	}
	return nil
}

// Reconcile subtracts paid from grandTotal. Over-payment is reported but never
// refunded here. An override is validated whenever supplied and recorded only
// when it releases an outstanding balance.
func Reconcile(grandTotal, paid decimal.Decimal, override *Override) (Settlement, error) {
	if paid.IsNegative() {
		return Settlement{}, fmt.Errorf("%w: paid %s", ErrNegativeAmount, paid)
	}
	if override != nil {
		if err := override.validate(); err != nil {
			return Settlement{}, err
		}
	}
	diff := money.Round2(grandTotal.Sub(paid))
	s := Settlement{
		GrandTotal:  grandTotal,
		Paid:        paid,
		AmountDue:   money.NonNegative(diff),
		Overpayment: money.NonNegative(diff.Neg()),
	}
	if s.AmountDue.IsPositive() {
		if override == nil {
			s.Blocked = true
		} else {
			o := *override
			o.Role = Role(strings.ToLower(strings.TrimSpace(string(o.Role))))
			s.OverrideApplied = &o
		}
	}
	return s, nil
}
