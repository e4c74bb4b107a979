package voucher

import (
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-folio/internal/common"
)

// Handler exposes the voucher dry-run endpoint.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type previewRequest struct {
	Code     string          `json:"code" validate:"required,max=64"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Preview returns the simulated discount for a voucher without persisting state.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher service not configured", nil)
		return
	}
	var req previewRequest
	if err := common.DecodeJSON(r, h.Validate, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if req.Subtotal.IsNegative() {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "subtotal must not be negative", nil)
		return
	}
	result, err := h.Svc.Preview(r.Context(), req.Code, req.Subtotal)
	if err != nil {
		common.WriteError(w, AsAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// AsAppError maps voucher failures to HTTP-facing errors.
func AsAppError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrVoucherNotFound):
		return common.NewAppError("VOUCHER_NOT_FOUND", err.Error(), http.StatusNotFound, err)
	case errors.Is(err, ErrVoucherExpired):
		return common.NewAppError("VOUCHER_EXPIRED", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrVoucherNotYetValid):
		return common.NewAppError("VOUCHER_NOT_YET_VALID", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrVoucherExhausted):
		return common.NewAppError("VOUCHER_EXHAUSTED", err.Error(), http.StatusConflict, err)
	case errors.Is(err, ErrInvalidVoucher):
		return common.NewAppError("VOUCHER_INVALID", err.Error(), http.StatusUnprocessableEntity, err)
	default:
		return err
	}
}
