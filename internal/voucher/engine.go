package voucher

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-folio/internal/money"
)

var (
	// ErrVoucherNotFound is returned when a requested code has no voucher behind it.
	ErrVoucherNotFound = errors.New("voucher not found")
	// ErrVoucherExpired is returned when the voucher validity window has closed.
	ErrVoucherExpired = errors.New("voucher expired")
	// ErrVoucherNotYetValid is returned when the voucher validity window has not opened.
	ErrVoucherNotYetValid = errors.New("voucher not yet valid")
	// ErrVoucherExhausted indicates the voucher has reached its usage limit.
	ErrVoucherExhausted = errors.New("voucher usage limit reached")
	// ErrInvalidVoucher indicates a misconfigured voucher (unknown kind, negative amount, percent above 100).
	ErrInvalidVoucher = errors.New("voucher misconfigured")
)

// Kind selects how the voucher amount is interpreted.
type Kind string

const (
	// KindPercentage discounts a percentage of the subtotal.
	KindPercentage Kind = "PERCENTAGE"
	// KindFixed discounts a fixed amount, capped at the subtotal.
	KindFixed Kind = "FIXED"
)

var hundred = decimal.NewFromInt(100)

// ParseKind normalises stored or user supplied kind names.
func ParseKind(value string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "PERCENTAGE", "PERCENT":
		return KindPercentage, nil
	case "FIXED", "FIXED_AMOUNT", "AMOUNT":
		return KindFixed, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidVoucher, value)
	}
}

// Voucher captures the runtime constraints of a discount voucher.
type Voucher struct {
	ID         string          `json:"id,omitempty"`
	Code       string          `json:"code"`
	Kind       Kind            `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	UsedCount  int             `json:"usedCount"`
	MaxUses    *int            `json:"maxUses,omitempty"`
	ValidFrom  *time.Time      `json:"validFrom,omitempty"`
	ValidUntil *time.Time      `json:"validUntil,omitempty"`
}

// Validate ensures the voucher can be redeemed at the provided instant.
func (v Voucher) Validate(now time.Time) error {
	if v.ValidFrom != nil && now.Before(*v.ValidFrom) {
		return fmt.Errorf("%w: %s valid from %s", ErrVoucherNotYetValid, v.Code, v.ValidFrom.Format(time.RFC3339))
	}
	if v.ValidUntil != nil && now.After(*v.ValidUntil) {
		return fmt.Errorf("%w: %s valid until %s", ErrVoucherExpired, v.Code, v.ValidUntil.Format(time.RFC3339))
	}
	if v.MaxUses != nil && v.UsedCount >= *v.MaxUses {
		return fmt.Errorf("%w: %s used %d of %d", ErrVoucherExhausted, v.Code, v.UsedCount, *v.MaxUses)
	}
	return v.checkAmount()
}

func (v Voucher) checkAmount() error {
	if v.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount", ErrInvalidVoucher)
	}
	switch v.Kind {
	case KindPercentage:
		if v.Amount.GreaterThan(hundred) {
			return fmt.Errorf("%w: percentage above 100", ErrInvalidVoucher)
		}
	case KindFixed:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidVoucher, v.Kind)
	}
	return nil
}

// Discount determines the discount amount for subtotal. The result always
// lies in [0, subtotal].
func Discount(subtotal decimal.Decimal, v Voucher) (decimal.Decimal, error) {
	if err := v.checkAmount(); err != nil {
		return decimal.Zero, err
	}
	if !subtotal.IsPositive() {
		return decimal.Zero, nil
	}
	var discount decimal.Decimal
	switch v.Kind {
	case KindPercentage:
		discount = money.PercentOf(subtotal, v.Amount)
	default:
		discount = v.Amount
	}
	return money.Clamp(discount, decimal.Zero, subtotal), nil
}
