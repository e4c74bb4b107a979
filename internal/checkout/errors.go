package checkout

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-folio/internal/common"
	"github.com/noah-isme/backend-folio/internal/lock"
	"github.com/noah-isme/backend-folio/internal/payment"
	"github.com/noah-isme/backend-folio/internal/pricing"
	"github.com/noah-isme/backend-folio/internal/voucher"
)

var (
	// ErrReservationNotFound is returned when the reservation id has no row.
	ErrReservationNotFound = payment.ErrReservationNotFound
	// ErrReservationNotCheckedIn is returned when the guest is not currently in house.
	ErrReservationNotCheckedIn = errors.New("reservation is not checked in")
	// ErrPaymentExceedsBalance is returned when the payment collected at checkout is larger than the amount due.
	ErrPaymentExceedsBalance = errors.New("payment exceeds amount due")
	// ErrConcurrentCheckout is returned when another checkout changed the reservation first.
	ErrConcurrentCheckout = errors.New("reservation modified by a concurrent checkout")
	// ErrPaymentMethodRequired is returned when money changes hands without a method.
	ErrPaymentMethodRequired = errors.New("payment method is required")
)

// AsAppError maps checkout, engine, voucher and payment failures onto HTTP errors.
func AsAppError(err error) error {
	switch {
	case err == nil:
		return nil
	case common.IsAppError(err):
		return err
	case errors.Is(err, ErrReservationNotFound):
		return common.NewAppError("RESERVATION_NOT_FOUND", err.Error(), http.StatusNotFound, err)
	case errors.Is(err, ErrReservationNotCheckedIn):
		return common.NewAppError("RESERVATION_NOT_CHECKED_IN", err.Error(), http.StatusConflict, err)
	case errors.Is(err, ErrConcurrentCheckout):
		return common.NewAppError("CONCURRENT_CHECKOUT", err.Error(), http.StatusConflict, err)
	case errors.Is(err, lock.ErrNotAcquired):
		return common.NewAppError("RESERVATION_BUSY", "reservation is being settled, retry shortly", http.StatusConflict, err)
	case errors.Is(err, pricing.ErrOutstandingBalance):
		return common.NewAppError("OUTSTANDING_BALANCE", err.Error(), http.StatusConflict, err)
	case errors.Is(err, pricing.ErrOverrideNotAuthorized):
		return common.NewAppError("OVERRIDE_NOT_AUTHORIZED", err.Error(), http.StatusForbidden, err)
	case errors.Is(err, ErrPaymentExceedsBalance):
		return common.NewAppError("PAYMENT_EXCEEDS_BALANCE", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrPaymentMethodRequired),
		errors.Is(err, pricing.ErrOverrideReasonRequired),
		errors.Is(err, pricing.ErrInvalidStayWindow),
		errors.Is(err, pricing.ErrInvalidRate),
		errors.Is(err, pricing.ErrMealPlanExceedsRoomRate),
		errors.Is(err, pricing.ErrInvalidMealPlan),
		errors.Is(err, pricing.ErrNonPositiveQuantity),
		errors.Is(err, pricing.ErrNegativeAmount),
		errors.Is(err, pricing.ErrInvalidTaxRule),
		errors.Is(err, pricing.ErrEmptyFolio):
		return common.NewAppError("FOLIO_INVALID", err.Error(), http.StatusUnprocessableEntity, err)
	}
	if mapped := voucher.AsAppError(err); common.IsAppError(mapped) {
		return mapped
	}
	return payment.AsAppError(err)
}
