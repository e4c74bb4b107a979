// Package pricing computes guest folios. Every function here is pure: the
// same input always yields the same Folio, and all state (tax configuration,
// frozen exchange rates, the current instant) is passed in explicitly.
package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-folio/internal/voucher"
)

// StayInput describes the room part of a folio.
type StayInput struct {
	RoomLabel string              `json:"roomLabel"`
	Window    StayWindow          `json:"window"`
	Rate      RoomRate            `json:"rate"`
	MealPlan  *MealPlanAllocation `json:"mealPlan,omitempty"`
}

// FolioInput is everything the engine needs to price a stay or a walk-in sale.
type FolioInput struct {
	BaseCurrency   string           `json:"baseCurrency"`
	Stay           *StayInput       `json:"stay,omitempty"`
	FoodOrders     []FoodOrder      `json:"foodOrders,omitempty"`
	ServiceCharges []ServiceCharge  `json:"serviceCharges,omitempty"`
	VoucherCode    string           `json:"voucherCode,omitempty"`
	Voucher        *voucher.Voucher `json:"voucher,omitempty"`
	Taxes          TaxConfig        `json:"taxes"`
	AdvancePaid    decimal.Decimal  `json:"advancePaid"`
	// TaxExempt selects amenity-only billing: no discount and no tax.
	TaxExempt bool        `json:"taxExempt"`
	Now       time.Time   `json:"now"`
	Policy    NightPolicy `json:"-"`
}

// Folio is the computed, itemised bill.
type Folio struct {
	Nights             int             `json:"nights"`
	Rate               *ResolvedRate   `json:"rate,omitempty"`
	MealPlan           *MealPlanSplit  `json:"mealPlan,omitempty"`
	LineItems          []LineItem      `json:"lineItems"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	VoucherCode        string          `json:"voucherCode,omitempty"`
	VoucherIgnored     bool            `json:"voucherIgnored,omitempty"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	DiscountedSubtotal decimal.Decimal `json:"discountedSubtotal"`
	Taxes              []TaxLine       `json:"taxes"`
	TotalTax           decimal.Decimal `json:"totalTax"`
	GrandTotal         decimal.Decimal `json:"grandTotal"`
	AdvancePaid        decimal.Decimal `json:"advancePaid"`
	AmountDue          decimal.Decimal `json:"amountDue"`
	Overpayment        decimal.Decimal `json:"overpayment"`
	TaxExempt          bool            `json:"taxExempt"`
	Currency           string          `json:"currency"`
}

// TaxBreakdown keys the tax lines by normalized tax type. Types are unique
// per configuration, so the amounts always sum to TotalTax.
func (f Folio) TaxBreakdown() map[string]TaxLine {
	out := make(map[string]TaxLine, len(f.Taxes))
	for _, line := range f.Taxes {
		out[line.TaxType] = line
	}
	return out
}

// ComputeFolio runs the full pipeline: nights, rate, meal plan, charges,
// discount, tax and reconciliation against AdvancePaid.
func ComputeFolio(in FolioInput) (Folio, error) {
	if in.AdvancePaid.IsNegative() {
		return Folio{}, fmt.Errorf("%w: advance paid %s", ErrNegativeAmount, in.AdvancePaid)
	}
	if in.Stay == nil && len(in.FoodOrders) == 0 && len(in.ServiceCharges) == 0 {
		return Folio{}, ErrEmptyFolio
	}
	f := Folio{
		TaxExempt: in.TaxExempt,
		Currency:  strings.TrimSpace(in.BaseCurrency),
		Taxes:     []TaxLine{},
	}

	var split *MealPlanSplit
	roomLabel := ""
	if in.Stay != nil {
		nights, err := Nights(in.Stay.Window, in.Policy)
		if err != nil {
			return Folio{}, err
		}
		rate, err := ResolveRate(in.Stay.Rate, in.BaseCurrency)
		if err != nil {
			return Folio{}, err
		}
		s, err := AllocateMealPlan(rate.PerNightBase, in.Stay.MealPlan, nights)
		if err != nil {
			return Folio{}, err
		}
		f.Nights = nights
		f.Rate = &rate
		split = &s
		f.MealPlan = split
		roomLabel = in.Stay.RoomLabel
	}

	charges, err := AggregateCharges(split, roomLabel, in.FoodOrders, in.ServiceCharges)
	if err != nil {
		return Folio{}, err
	}
	f.LineItems = charges.Lines
	f.Subtotal = charges.Subtotal

	if in.TaxExempt {
		f.DiscountAmount = decimal.Zero
		f.DiscountedSubtotal = f.Subtotal
		f.TotalTax = decimal.Zero
		f.GrandTotal = f.Subtotal
		f.VoucherIgnored = strings.TrimSpace(in.VoucherCode) != "" || in.Voucher != nil
	} else {
		discount, err := ApplyDiscount(f.Subtotal, in.VoucherCode, in.Voucher, in.Now)
		if err != nil {
			return Folio{}, err
		}
		taxes, err := ApplyTaxes(discount.DiscountedSubtotal, in.Taxes)
		if err != nil {
			return Folio{}, err
		}
		f.VoucherCode = discount.VoucherCode
		f.DiscountAmount = discount.DiscountAmount
		f.DiscountedSubtotal = discount.DiscountedSubtotal
		f.Taxes = taxes.Lines
		f.TotalTax = taxes.TotalTax
		f.GrandTotal = taxes.GrandTotal
	}

	settlement, err := Reconcile(f.GrandTotal, in.AdvancePaid, nil)
	if err != nil {
		return Folio{}, err
	}
	f.AdvancePaid = in.AdvancePaid
	f.AmountDue = settlement.AmountDue
	f.Overpayment = settlement.Overpayment
	return f, nil
}

// ReconcileAmountDue settles a computed grand total against payments.
func ReconcileAmountDue(grandTotal, advancePaid decimal.Decimal, override *Override) (Settlement, error) {
	return Reconcile(grandTotal, advancePaid, override)
}

