package pricing

import "errors"

var (
	// ErrInvalidStayWindow is returned when check-out precedes check-in or a timestamp is missing.
	ErrInvalidStayWindow = errors.New("invalid stay window")
	// ErrInvalidRate is returned when a room rate cannot be resolved into the base currency.
	ErrInvalidRate = errors.New("invalid room rate")
	// ErrMealPlanExceedsRoomRate is returned when the meal component is larger than the negotiated nightly rate.
	ErrMealPlanExceedsRoomRate = errors.New("meal plan exceeds negotiated room rate")
	// ErrInvalidMealPlan is returned for meal plans without occupants or with a negative price.
	ErrInvalidMealPlan = errors.New("invalid meal plan")
	// ErrNonPositiveQuantity is returned for any line item whose quantity is zero or negative.
	ErrNonPositiveQuantity = errors.New("line item quantity must be positive")
	// ErrNegativeAmount is returned when a price or payment is negative.
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrInvalidTaxRule is returned for negative or duplicated tax rules.
	ErrInvalidTaxRule = errors.New("invalid tax rule")
	// ErrEmptyFolio is returned when there is neither a stay nor any charge to bill.
	ErrEmptyFolio = errors.New("folio has nothing to bill")
	// ErrOutstandingBalance blocks checkout while an amount is still due and no override was given.
	ErrOutstandingBalance = errors.New("outstanding balance")
	// ErrOverrideNotAuthorized is returned when an override comes from a role without settlement authority.
	ErrOverrideNotAuthorized = errors.New("override requires manager or owner authority")
	// ErrOverrideReasonRequired is returned when an override carries no reason.
	ErrOverrideReasonRequired = errors.New("override reason is required")
)
