package checkout

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-folio/internal/common"
	"github.com/noah-isme/backend-folio/internal/pricing"
)

// Handler exposes folio preview, checkout and walk-in sale endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type paymentReq struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"max=32"`
	Reference string          `json:"reference" validate:"max=128"`
}

type overrideReq struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type checkoutReq struct {
	VoucherCode string       `json:"voucherCode" validate:"max=64"`
	Payment     *paymentReq  `json:"payment"`
	Override    *overrideReq `json:"override"`
}

type foodItemReq struct {
	Name      string          `json:"name" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type foodOrderReq struct {
	OrderID string        `json:"orderId"`
	Items   []foodItemReq `json:"items" validate:"required,min=1,dive"`
}

type serviceChargeReq struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	RatePerUnit decimal.Decimal `json:"ratePerUnit"`
}

type walkInReq struct {
	FoodOrders     []foodOrderReq     `json:"foodOrders" validate:"dive"`
	ServiceCharges []serviceChargeReq `json:"serviceCharges" validate:"dive"`
	VoucherCode    string             `json:"voucherCode" validate:"max=64"`
	TaxExempt      bool               `json:"taxExempt"`
	Payment        paymentReq         `json:"payment"`
}

// Preview returns the live folio for a reservation.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	folio, err := h.Svc.Preview(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("voucher"))
	if err != nil {
		common.WriteError(w, AsAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": folio})
}

// Checkout settles and closes the reservation in the URL.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var body checkoutReq
	if err := common.DecodeJSON(r, h.Validate, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	req := CheckoutRequest{
		ReservationID: chi.URLParam(r, "id"),
		VoucherCode:   body.VoucherCode,
	}
	if body.Payment != nil {
		req.Payment = &PaymentInput{Amount: body.Payment.Amount, Method: body.Payment.Method, Reference: body.Payment.Reference}
	}
	if body.Override != nil {
		actor, ok := common.ActorFrom(r.Context())
		if !ok {
			common.JSONError(w, http.StatusForbidden, "OVERRIDE_NOT_AUTHORIZED", "override requires an identified manager or owner", nil)
			return
		}
		req.Override = &pricing.Override{ActorID: actor.ID, Role: pricing.Role(actor.Role), Reason: body.Override.Reason}
	}
	out, err := h.Svc.Checkout(r.Context(), req)
	if err != nil {
		common.WriteError(w, AsAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// WalkInSale records a sale without a reservation.
func (h *Handler) WalkInSale(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var body walkInReq
	if err := common.DecodeJSON(r, h.Validate, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	req := WalkInRequest{
		VoucherCode: body.VoucherCode,
		TaxExempt:   body.TaxExempt,
		Payment:     PaymentInput{Amount: body.Payment.Amount, Method: body.Payment.Method, Reference: body.Payment.Reference},
	}
	if actor, ok := common.ActorFrom(r.Context()); ok {
		req.CashierID = actor.ID
	}
	for _, o := range body.FoodOrders {
		order := pricing.FoodOrder{OrderID: strings.TrimSpace(o.OrderID)}
		for _, it := range o.Items {
			order.Items = append(order.Items, pricing.FoodOrderItem{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
		}
		req.FoodOrders = append(req.FoodOrders, order)
	}
	for _, c := range body.ServiceCharges {
		req.ServiceCharges = append(req.ServiceCharges, pricing.ServiceCharge{
			Description: c.Description,
			Quantity:    c.Quantity,
			RatePerUnit: c.RatePerUnit,
		})
	}
	out, err := h.Svc.WalkInSale(r.Context(), req)
	if err != nil {
		common.WriteError(w, AsAppError(err))
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}
