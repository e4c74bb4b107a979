package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-folio/internal/money"
)

// Well-known tax types, evaluated in this order ahead of any other type.
const (
	TaxTypeVAT     = "vat"
	TaxTypeService = "service_tax"
	TaxTypeLuxury  = "luxury_tax"
)

var taxPrecedence = map[string]int{
	TaxTypeVAT:     0,
	TaxTypeService: 1,
	TaxTypeLuxury:  2,
}

// TaxRule is one configured tax rate.
type TaxRule struct {
	TaxType     string          `json:"taxType"`
	DisplayName string          `json:"displayName,omitempty"`
	Percent     decimal.Decimal `json:"percent"`
	IsActive    bool            `json:"isActive"`
}

// Name is the label printed against the tax.
func (r TaxRule) Name() string {
	if name := strings.TrimSpace(r.DisplayName); name != "" {
		return name
	}
	return strings.TrimSpace(r.TaxType)
}

// TaxConfig is the hotel-wide tax configuration handed to the engine.
type TaxConfig struct {
	Rules []TaxRule `json:"rules"`
}

// TaxLine records one compounded tax.
type TaxLine struct {
	TaxType string          `json:"taxType"`
	Name    string          `json:"name"`
	Rate    decimal.Decimal `json:"rate"`
	Taxable decimal.Decimal `json:"taxable"`
	Amount  decimal.Decimal `json:"amount"`
}

// TaxResult is the outcome of the tax cascade.
type TaxResult struct {
	Lines      []TaxLine       `json:"lines"`
	TotalTax   decimal.Decimal `json:"totalTax"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// NormalizeTaxType folds case and separators and resolves short aliases.
func NormalizeTaxType(value string) string {
	t := strings.ToLower(strings.TrimSpace(value))
	t = strings.NewReplacer(" ", "_", "-", "_").Replace(t)
	switch t {
	case "vat", "value_added_tax":
		return TaxTypeVAT
	case "service", "service_tax", "service_charge_tax":
		return TaxTypeService
	case "luxury", "luxury_tax":
		return TaxTypeLuxury
	}
	return t
}

// Ordered returns the active rules in evaluation order: VAT, service tax,
// luxury tax, then the remaining types by name. Storage order never matters.
func (c TaxConfig) Ordered() ([]TaxRule, error) {
	active := make([]TaxRule, 0, len(c.Rules))
	seen := make(map[string]struct{}, len(c.Rules))
	for _, r := range c.Rules {
		if !r.IsActive {
			continue
		}
		kind := NormalizeTaxType(r.TaxType)
		if kind == "" {
			return nil, fmt.Errorf("%w: blank tax type", ErrInvalidTaxRule)
		}
		if r.Percent.IsNegative() {
			return nil, fmt.Errorf("%w: %s has negative percent %s", ErrInvalidTaxRule, kind, r.Percent)
		}
		if _, dup := seen[kind]; dup {
			return nil, fmt.Errorf("%w: %s configured twice", ErrInvalidTaxRule, kind)
		}
		seen[kind] = struct{}{}
		r.TaxType = kind
		active = append(active, r)
	}
	sort.SliceStable(active, func(i, j int) bool {
		pi, iKnown := taxPrecedence[active[i].TaxType]
		pj, jKnown := taxPrecedence[active[j].TaxType]
		switch {
		case iKnown && jKnown:
			return pi < pj
		case iKnown != jKnown:
			return iKnown
		default:
			return active[i].TaxType < active[j].TaxType
		}
	})
	return active, nil
}

// ApplyTaxes compounds each active tax on the running, tax-inclusive total.
func ApplyTaxes(discountedSubtotal decimal.Decimal, cfg TaxConfig) (TaxResult, error) {
	rules, err := cfg.Ordered()
	if err != nil {
		return TaxResult{}, err
	}
	running := discountedSubtotal
	total := decimal.Zero
	lines := make([]TaxLine, 0, len(rules))
	for _, r := range rules {
		amount := money.PercentOf(running, r.Percent)
		lines = append(lines, TaxLine{
			TaxType: r.TaxType,
			Name:    r.Name(),
			Rate:    r.Percent,
			Taxable: running,
			Amount:  amount,
		})
		total = total.Add(amount)
		running = money.Round2(running.Add(amount))
	}
	return TaxResult{
		Lines:      lines,
		TotalTax:   total,
		GrandTotal: discountedSubtotal.Add(total),
	}, nil
}
