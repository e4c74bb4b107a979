package payment

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-folio/internal/common"
	"github.com/noah-isme/backend-folio/internal/lock"
	"github.com/noah-isme/backend-folio/internal/repo"
)

// Handler exposes the advance payment endpoint.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type advanceReq struct {
	Kind      string          `json:"kind" validate:"omitempty,oneof=deposit advance"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"required,max=32"`
	Reference string          `json:"reference" validate:"max=128"`
}

type paymentResp struct {
	ID            string          `json:"id"`
	ReservationID string          `json:"reservationId"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Reference     string          `json:"reference,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Record stores a deposit or advance payment for the reservation in the URL.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "payment service not configured", nil)
		return
	}
	var req advanceReq
	if err := common.DecodeJSON(r, h.Validate, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.Svc.RecordAdvance(r.Context(), AdvanceRequest{
		ReservationID: chi.URLParam(r, "id"),
		Kind:          req.Kind,
		Amount:        req.Amount,
		Method:        req.Method,
		Reference:     req.Reference,
	})
	if err != nil {
		common.WriteError(w, AsAppError(err))
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": paymentResp{
		ID:            repo.UUIDString(p.ID),
		ReservationID: repo.UUIDString(p.ReservationID),
		Kind:          p.Kind,
		Amount:        p.Amount,
		Method:        p.Method,
		Reference:     p.Reference.String,
		CreatedAt:     p.CreatedAt,
	}})
}

// AsAppError maps payment failures to HTTP-facing errors.
func AsAppError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrReservationNotFound):
		return common.NewAppError("RESERVATION_NOT_FOUND", err.Error(), http.StatusNotFound, err)
	case errors.Is(err, ErrReservationClosed):
		return common.NewAppError("RESERVATION_CLOSED", err.Error(), http.StatusConflict, err)
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidKind):
		return common.NewAppError("VALIDATION_FAILED", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, lock.ErrNotAcquired):
		return common.NewAppError("RESERVATION_BUSY", "reservation is being settled, retry shortly", http.StatusConflict, err)
	default:
		return err
	}
}
