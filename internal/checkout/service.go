// Package checkout orchestrates folio previews, guest checkout and walk-in
// sales around the pure pricing engine.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-folio/internal/lock"
	"github.com/noah-isme/backend-folio/internal/money"
	"github.com/noah-isme/backend-folio/internal/obs"
	"github.com/noah-isme/backend-folio/internal/payment"
	"github.com/noah-isme/backend-folio/internal/pricing"
	"github.com/noah-isme/backend-folio/internal/repo"
	"github.com/noah-isme/backend-folio/internal/voucher"
)

var tracer = otel.Tracer("github.com/noah-isme/backend-folio/internal/checkout")

// Store is the persistence the orchestrator needs; *repo.Store satisfies it.
type Store interface {
	repo.Querier
	InTx(ctx context.Context, fn func(repo.Querier) error) error
}

// TaxSource yields the active tax configuration.
type TaxSource interface {
	Active(ctx context.Context) (pricing.TaxConfig, error)
}

// PaymentInput is money collected at the desk during checkout or a walk-in sale.
type PaymentInput struct {
	Amount    decimal.Decimal
	Method    string
	Reference string
}

// CheckoutRequest settles and closes a reservation.
type CheckoutRequest struct {
	ReservationID string
	VoucherCode   string
	Payment       *PaymentInput
	Override      *pricing.Override
}

// CheckoutResult is the settled folio of a closed reservation.
type CheckoutResult struct {
	ReservationID string             `json:"reservationId"`
	Folio         pricing.Folio      `json:"folio"`
	Settlement    pricing.Settlement `json:"settlement"`
	PaymentID     string             `json:"paymentId,omitempty"`
	CheckedOutAt  time.Time          `json:"checkedOutAt"`
}

// WalkInRequest bills charges that belong to no reservation.
type WalkInRequest struct {
	CashierID      string
	FoodOrders     []pricing.FoodOrder
	ServiceCharges []pricing.ServiceCharge
	VoucherCode    string
	// TaxExempt marks amenity-only sales, which carry no discount and no tax.
	TaxExempt bool
	Payment   PaymentInput
}

// WalkInResult is the recorded walk-in sale.
type WalkInResult struct {
	SaleID    string        `json:"saleId"`
	PaymentID string        `json:"paymentId"`
	Folio     pricing.Folio `json:"folio"`
}

// Service wires the pricing engine to storage, locking and vouchers.
type Service struct {
	Store    Store
	Vouchers *voucher.Service
	Taxes    TaxSource
	Locker   payment.Locker
	LockTTL  time.Duration

	BaseCurrency              string
	Policy                    pricing.NightPolicy
	LargeTransactionThreshold decimal.Decimal

	Now     func() time.Time
	Metrics *obs.FolioMetrics
	Log     zerolog.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("checkout service not configured")
	}
	return nil
}

func (s *Service) loadReservation(ctx context.Context, q repo.Querier, reservationID string) (repo.Reservation, error) {
	id, err := repo.ParseUUID(reservationID)
	if err != nil {
		return repo.Reservation{}, fmt.Errorf("%w: %s", ErrReservationNotFound, reservationID)
	}
	res, err := q.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Reservation{}, fmt.Errorf("%w: %s", ErrReservationNotFound, reservationID)
		}
		return repo.Reservation{}, err
	}
	return res, nil
}

// Preview computes the current folio of an in-house reservation as if the
// guest left now. Closed reservations are priced at their recorded checkout.
func (s *Service) Preview(ctx context.Context, reservationID, voucherCode string) (pricing.Folio, error) {
	if err := s.ready(); err != nil {
		return pricing.Folio{}, err
	}
	ctx, span := tracer.Start(ctx, "checkout.Preview", trace.WithAttributes(attribute.String("reservation.id", reservationID)))
	defer span.End()

	res, err := s.loadReservation(ctx, s.Store, reservationID)
	if err != nil {
		return pricing.Folio{}, fail(span, err)
	}
	at := s.now()
	switch res.Status {
	case repo.ReservationCheckedIn:
	case repo.ReservationCheckedOut:
		if res.CheckedOutAt.Valid {
			at = res.CheckedOutAt.Time
		}
	default:
		return pricing.Folio{}, fail(span, fmt.Errorf("%w: status %s", ErrReservationNotCheckedIn, res.Status))
	}
	in, err := s.reservationInput(ctx, s.Store, res, voucherCode, at)
	if err != nil {
		return pricing.Folio{}, fail(span, err)
	}
	if res.Status == repo.ReservationCheckedOut {
		if err := s.releaseOwnRedemption(ctx, s.Store, res.ID, in.Voucher); err != nil {
			return pricing.Folio{}, fail(span, err)
		}
	}
	folio, err := pricing.ComputeFolio(in)
	if err != nil {
		s.Metrics.Computation("rejected")
		return pricing.Folio{}, fail(span, err)
	}
	s.Metrics.Computation("ok")
	return folio, nil
}

// Checkout settles and closes a reservation under its distributed lock.
// The payment row, voucher redemption, override record, folio snapshot and
// status change commit together or not at all.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	if err := s.ready(); err != nil {
		return CheckoutResult{}, err
	}
	ctx, span := tracer.Start(ctx, "checkout.Checkout", trace.WithAttributes(attribute.String("reservation.id", req.ReservationID)))
	defer span.End()

	start := time.Now()
	var out CheckoutResult
	run := func(ctx context.Context) error {
		var err error
		out, err = s.checkout(ctx, req)
		return err
	}
	var err error
	if s.Locker != nil {
		err = s.Locker.WithLock(ctx, lock.ReservationKey(req.ReservationID), s.LockTTL, run)
	} else {
		err = run(ctx)
	}
	s.Metrics.CheckoutLatency(obs.DurationMillis(time.Since(start)))
	if err != nil {
		s.Metrics.Checkout(checkoutResultLabel(err))
		s.Log.Warn().Err(err).Str("reservation_id", req.ReservationID).Msg("checkout rejected")
		return CheckoutResult{}, fail(span, err)
	}
	s.Metrics.Checkout("completed")
	if o := out.Settlement.OverrideApplied; o != nil {
		s.Metrics.Override(string(o.Role))
	}
	s.observeLarge(repo.SubjectReservation, req.ReservationID, out.Folio.GrandTotal)
	span.SetAttributes(attribute.String("folio.grand_total", out.Folio.GrandTotal.StringFixed(2)))
	s.Log.Info().
		Str("reservation_id", req.ReservationID).
		Str("grand_total", out.Folio.GrandTotal.StringFixed(2)).
		Str("amount_due", out.Settlement.AmountDue.StringFixed(2)).
		Bool("override", out.Settlement.OverrideApplied != nil).
		Msg("reservation checked out")
	return out, nil
}

func (s *Service) checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	res, err := s.loadReservation(ctx, s.Store, req.ReservationID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if res.Status != repo.ReservationCheckedIn {
		return CheckoutResult{}, fmt.Errorf("%w: status %s", ErrReservationNotCheckedIn, res.Status)
	}
	now := s.now()
	in, err := s.reservationInput(ctx, s.Store, res, req.VoucherCode, now)
	if err != nil {
		return CheckoutResult{}, err
	}
	folio, err := pricing.ComputeFolio(in)
	if err != nil {
		s.Metrics.Computation("rejected")
		return CheckoutResult{}, err
	}
	s.Metrics.Computation("ok")

	collected := decimal.Zero
	if req.Payment != nil {
		collected = money.Round2(req.Payment.Amount)
		if collected.IsNegative() {
			return CheckoutResult{}, fmt.Errorf("%w: payment %s", pricing.ErrNegativeAmount, req.Payment.Amount)
		}
		if collected.GreaterThan(folio.AmountDue) {
			return CheckoutResult{}, fmt.Errorf("%w: paying %s against %s due", ErrPaymentExceedsBalance, collected, folio.AmountDue)
		}
		if collected.IsPositive() && strings.TrimSpace(req.Payment.Method) == "" {
			return CheckoutResult{}, ErrPaymentMethodRequired
		}
	}
	settlement, err := pricing.ReconcileAmountDue(folio.GrandTotal, folio.AdvancePaid.Add(collected), req.Override)
	if err != nil {
		return CheckoutResult{}, err
	}
	if err := settlement.Err(); err != nil {
		return CheckoutResult{}, err
	}
	snapshot, err := json.Marshal(CheckoutResult{ReservationID: req.ReservationID, Folio: folio, Settlement: settlement, CheckedOutAt: now})
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("encode folio snapshot: %w", err)
	}

	out := CheckoutResult{ReservationID: req.ReservationID, Folio: folio, Settlement: settlement, CheckedOutAt: now}
	err = s.Store.InTx(ctx, func(q repo.Querier) error {
		current, err := q.GetReservationForUpdate(ctx, res.ID)
		if err != nil {
			return fmt.Errorf("lock reservation row: %w", err)
		}
		if current.Version != res.Version || current.Status != repo.ReservationCheckedIn {
			return ErrConcurrentCheckout
		}
		var paymentID pgtype.UUID
		if collected.IsPositive() {
			p, err := q.InsertPayment(ctx, repo.InsertPaymentParams{
				ReservationID: res.ID,
				Kind:          repo.PaymentSettlement,
				Amount:        collected,
				Method:        strings.TrimSpace(req.Payment.Method),
				Reference:     repo.Text(req.Payment.Reference),
			})
			if err != nil {
				return fmt.Errorf("insert settlement payment: %w", err)
			}
			paymentID = p.ID
			out.PaymentID = repo.UUIDString(p.ID)
		}
		if folio.VoucherCode != "" && s.Vouchers != nil {
			err := s.Vouchers.Redeem(ctx, q, voucher.Redemption{
				Code:        folio.VoucherCode,
				SubjectKind: repo.SubjectReservation,
				SubjectID:   res.ID,
				PaymentID:   paymentID,
				Discount:    folio.DiscountAmount,
			})
			if err != nil {
				s.Metrics.VoucherRedemption("failed")
				return err
			}
			s.Metrics.VoucherRedemption("redeemed")
		}
		if o := settlement.OverrideApplied; o != nil {
			err := q.InsertCheckoutOverride(ctx, repo.InsertCheckoutOverrideParams{
				ReservationID: res.ID,
				ActorID:       o.ActorID,
				ActorRole:     string(o.Role),
				Reason:        strings.TrimSpace(o.Reason),
				AmountDue:     settlement.AmountDue,
			})
			if err != nil {
				return fmt.Errorf("record override: %w", err)
			}
		}
		err = q.InsertFolioSnapshot(ctx, repo.InsertFolioSnapshotParams{
			SubjectKind: repo.SubjectReservation,
			SubjectID:   res.ID,
			GrandTotal:  folio.GrandTotal,
			AmountDue:   settlement.AmountDue,
			Payload:     snapshot,
		})
		if err != nil {
			return fmt.Errorf("record folio snapshot: %w", err)
		}
		affected, err := q.MarkCheckedOut(ctx, repo.MarkCheckedOutParams{ID: res.ID, Version: res.Version, CheckedOutAt: now})
		if err != nil {
			return fmt.Errorf("mark checked out: %w", err)
		}
		if affected == 0 {
			return ErrConcurrentCheckout
		}
		return nil
	})
	if err != nil {
		return CheckoutResult{}, err
	}
	return out, nil
}

// WalkInSale prices and records a sale paid in full at the till. Amenity-only
// sales are tax exempt; restaurant sales follow the same discount-then-tax
// rule as room checkout.
func (s *Service) WalkInSale(ctx context.Context, req WalkInRequest) (WalkInResult, error) {
	if err := s.ready(); err != nil {
		return WalkInResult{}, err
	}
	ctx, span := tracer.Start(ctx, "checkout.WalkInSale", trace.WithAttributes(attribute.Bool("folio.tax_exempt", req.TaxExempt)))
	defer span.End()

	now := s.now()
	in := pricing.FolioInput{
		BaseCurrency:   s.BaseCurrency,
		FoodOrders:     req.FoodOrders,
		ServiceCharges: req.ServiceCharges,
		VoucherCode:    strings.TrimSpace(req.VoucherCode),
		TaxExempt:      req.TaxExempt,
		AdvancePaid:    decimal.Zero,
		Now:            now,
		Policy:         s.Policy,
	}
	if !req.TaxExempt {
		v, err := s.lookupVoucher(ctx, req.VoucherCode)
		if err != nil {
			return WalkInResult{}, fail(span, err)
		}
		in.Voucher = v
		taxes, err := s.taxConfig(ctx)
		if err != nil {
			return WalkInResult{}, fail(span, err)
		}
		in.Taxes = taxes
	}
	folio, err := pricing.ComputeFolio(in)
	if err != nil {
		s.Metrics.Computation("rejected")
		return WalkInResult{}, fail(span, err)
	}
	s.Metrics.Computation("ok")

	if strings.TrimSpace(req.Payment.Method) == "" {
		return WalkInResult{}, fail(span, ErrPaymentMethodRequired)
	}
	tendered := money.Round2(req.Payment.Amount)
	if tendered.IsZero() {
		tendered = folio.GrandTotal
	}
	if tendered.GreaterThan(folio.GrandTotal) {
		return WalkInResult{}, fail(span, fmt.Errorf("%w: paying %s against %s due", ErrPaymentExceedsBalance, tendered, folio.GrandTotal))
	}
	settlement, err := pricing.ReconcileAmountDue(folio.GrandTotal, tendered, nil)
	if err != nil {
		return WalkInResult{}, fail(span, err)
	}
	if err := settlement.Err(); err != nil {
		return WalkInResult{}, fail(span, err)
	}
	snapshot, err := json.Marshal(folio)
	if err != nil {
		return WalkInResult{}, fail(span, fmt.Errorf("encode folio snapshot: %w", err))
	}

	out := WalkInResult{Folio: folio}
	err = s.Store.InTx(ctx, func(q repo.Querier) error {
		saleID, err := q.InsertWalkInSale(ctx, repo.InsertWalkInSaleParams{
			CashierID:  repo.Text(req.CashierID),
			TaxExempt:  req.TaxExempt,
			Subtotal:   folio.Subtotal,
			GrandTotal: folio.GrandTotal,
		})
		if err != nil {
			return fmt.Errorf("insert walk-in sale: %w", err)
		}
		out.SaleID = repo.UUIDString(saleID)
		p, err := q.InsertPayment(ctx, repo.InsertPaymentParams{
			SaleID:    saleID,
			Kind:      repo.PaymentWalkIn,
			Amount:    tendered,
			Method:    strings.TrimSpace(req.Payment.Method),
			Reference: repo.Text(req.Payment.Reference),
		})
		if err != nil {
			return fmt.Errorf("insert walk-in payment: %w", err)
		}
		out.PaymentID = repo.UUIDString(p.ID)
		if folio.VoucherCode != "" && s.Vouchers != nil {
			err := s.Vouchers.Redeem(ctx, q, voucher.Redemption{
				Code:        folio.VoucherCode,
				SubjectKind: repo.SubjectWalkInSale,
				SubjectID:   saleID,
				PaymentID:   p.ID,
				Discount:    folio.DiscountAmount,
			})
			if err != nil {
				s.Metrics.VoucherRedemption("failed")
				return err
			}
			s.Metrics.VoucherRedemption("redeemed")
		}
		return q.InsertFolioSnapshot(ctx, repo.InsertFolioSnapshotParams{
			SubjectKind: repo.SubjectWalkInSale,
			SubjectID:   saleID,
			GrandTotal:  folio.GrandTotal,
			AmountDue:   decimal.Zero,
			Payload:     snapshot,
		})
	})
	if err != nil {
		return WalkInResult{}, fail(span, err)
	}
	s.observeLarge(repo.SubjectWalkInSale, out.SaleID, folio.GrandTotal)
	s.Log.Info().
		Str("sale_id", out.SaleID).
		Bool("tax_exempt", req.TaxExempt).
		Str("grand_total", folio.GrandTotal.StringFixed(2)).
		Msg("walk-in sale recorded")
	return out, nil
}

// observeLarge flags settlements above the configured threshold for the
// anomaly review queue.
func (s *Service) observeLarge(subject, id string, total decimal.Decimal) {
	if !s.exceedsThreshold(total) {
		return
	}
	s.Metrics.LargeTransaction(subject)
	s.Log.Warn().
		Str("subject", subject).
		Str("subject_id", id).
		Str("grand_total", total.StringFixed(2)).
		Str("threshold", s.LargeTransactionThreshold.StringFixed(2)).
		Msg("large transaction")
}

func checkoutResultLabel(err error) string {
	switch {
	case errors.Is(err, pricing.ErrOutstandingBalance):
		return "outstanding_balance"
	case errors.Is(err, ErrConcurrentCheckout), errors.Is(err, lock.ErrNotAcquired):
		return "conflict"
	case errors.Is(err, voucher.ErrVoucherExhausted):
		return "voucher_exhausted"
	case errors.Is(err, ErrReservationNotFound), errors.Is(err, ErrReservationNotCheckedIn):
		return "not_eligible"
	default:
		return "error"
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
