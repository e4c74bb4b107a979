package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-folio/internal/money"
	"github.com/noah-isme/backend-folio/internal/voucher"
)

// DiscountResult is the outcome of applying at most one voucher.
type DiscountResult struct {
	VoucherCode        string          `json:"voucherCode,omitempty"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	DiscountedSubtotal decimal.Decimal `json:"discountedSubtotal"`
}

// ApplyDiscount validates and applies the voucher requested by code. A code
// without a voucher means the lookup found nothing and fails with
// voucher.ErrVoucherNotFound instead of discounting zero.
func ApplyDiscount(subtotal decimal.Decimal, code string, v *voucher.Voucher, now time.Time) (DiscountResult, error) {
	code = strings.TrimSpace(code)
	if code == "" && v == nil {
		return DiscountResult{DiscountAmount: decimal.Zero, DiscountedSubtotal: subtotal}, nil
	}
	if v == nil {
		return DiscountResult{}, fmt.Errorf("%w: %s", voucher.ErrVoucherNotFound, code)
	}
	if code != "" && !strings.EqualFold(code, v.Code) {
		return DiscountResult{}, fmt.Errorf("%w: %s", voucher.ErrVoucherNotFound, code)
	}
	if err := v.Validate(now); err != nil {
		return DiscountResult{}, err
	}
	discount, err := voucher.Discount(subtotal, *v)
	if err != nil {
		return DiscountResult{}, err
	}
	return DiscountResult{
		VoucherCode:        v.Code,
		DiscountAmount:     discount,
		DiscountedSubtotal: money.Round2(subtotal.Sub(discount)),
	}, nil
}
