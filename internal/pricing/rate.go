package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyKind tells whether a room is settled in the hotel's base currency.
type CurrencyKind string

const (
	// CurrencyBase rooms are priced directly in the base currency.
	CurrencyBase CurrencyKind = "BASE"
	// CurrencyForeign rooms are priced in a foreign currency converted at check-in.
	CurrencyForeign CurrencyKind = "FOREIGN"
)

// RateSnapshot is the exchange rate captured when the guest checked in.
type RateSnapshot struct {
	Currency   string          `json:"currency"`
	Rate       decimal.Decimal `json:"rate"`
	CapturedAt time.Time       `json:"capturedAt"`
}

// RoomRate is the negotiated nightly rate of a room, meals included.
type RoomRate struct {
	Kind          CurrencyKind     `json:"kind"`
	CurrencyCode  string           `json:"currencyCode,omitempty"`
	BaseAmount    decimal.Decimal  `json:"baseAmount"`
	ForeignAmount *decimal.Decimal `json:"foreignAmount,omitempty"`
	ExchangeRate  *decimal.Decimal `json:"exchangeRate,omitempty"`
}

// BaseRoomRate builds a rate priced in the base currency.
func BaseRoomRate(amount decimal.Decimal) RoomRate {
	return RoomRate{Kind: CurrencyBase, BaseAmount: amount}
}

// ForeignRoomRate freezes a foreign-currency rate using the check-in snapshot.
func ForeignRoomRate(amount decimal.Decimal, snap RateSnapshot) RoomRate {
	foreign := amount
	rate := snap.Rate
	return RoomRate{
		Kind:          CurrencyForeign,
		CurrencyCode:  snap.Currency,
		BaseAmount:    amount.Mul(snap.Rate),
		ForeignAmount: &foreign,
		ExchangeRate:  &rate,
	}
}

// ResolvedRate is a room rate expressed in the base currency.
type ResolvedRate struct {
	PerNightBase    decimal.Decimal  `json:"perNightBase"`
	PerNightForeign *decimal.Decimal `json:"perNightForeign,omitempty"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"`
	DisplayCurrency string           `json:"displayCurrency"`
}

// ResolveRate expresses r in the base currency. Foreign rates use the exchange
// rate frozen on r; nothing here consults a live rate.
func ResolveRate(r RoomRate, baseCurrency string) (ResolvedRate, error) {
	switch r.Kind {
	case CurrencyBase:
		if r.BaseAmount.IsNegative() {
			return ResolvedRate{}, fmt.Errorf("%w: negative base amount", ErrInvalidRate)
		}
		display := strings.TrimSpace(r.CurrencyCode)
		if display == "" {
			display = baseCurrency
		}
		return ResolvedRate{PerNightBase: r.BaseAmount, DisplayCurrency: display}, nil
	case CurrencyForeign:
		if r.ForeignAmount == nil {
			return ResolvedRate{}, fmt.Errorf("%w: foreign amount missing", ErrInvalidRate)
		}
		if r.ExchangeRate == nil || !r.ExchangeRate.IsPositive() {
			return ResolvedRate{}, fmt.Errorf("%w: exchange rate must be positive", ErrInvalidRate)
		}
		if r.ForeignAmount.IsNegative() {
			return ResolvedRate{}, fmt.Errorf("%w: negative foreign amount", ErrInvalidRate)
		}
		code := strings.TrimSpace(r.CurrencyCode)
		if code == "" {
			return ResolvedRate{}, fmt.Errorf("%w: foreign currency code missing", ErrInvalidRate)
		}
		base := r.ForeignAmount.Mul(*r.ExchangeRate)
		if !r.BaseAmount.IsZero() && !r.BaseAmount.Equal(base) {
			return ResolvedRate{}, fmt.Errorf("%w: base amount %s does not match %s x %s",
				ErrInvalidRate, r.BaseAmount, r.ForeignAmount, r.ExchangeRate)
		}
		foreign := *r.ForeignAmount
		rate := *r.ExchangeRate
		return ResolvedRate{
			PerNightBase:    base,
			PerNightForeign: &foreign,
			ExchangeRate:    &rate,
			DisplayCurrency: code,
		}, nil
	default:
		return ResolvedRate{}, fmt.Errorf("%w: unknown currency kind %q", ErrInvalidRate, r.Kind)
	}
}
