// Package payment keeps the reservation payment ledger: deposits and advance
// payments taken before checkout.
package payment

import (
	"context"
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

	"github.com/noah-isme/backend-folio/internal/lock"
	"github.com/noah-isme/backend-folio/internal/money"
	"github.com/noah-isme/backend-folio/internal/obs"
	"github.com/noah-isme/backend-folio/internal/repo"
)

var (
	// ErrReservationNotFound is returned when the reservation id has no row.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrReservationClosed is returned when payments target a checked-out reservation.
	ErrReservationClosed = errors.New("reservation already checked out")
	// ErrInvalidAmount is returned for zero or negative payment amounts.
	ErrInvalidAmount = errors.New("payment amount must be positive")
	// ErrInvalidKind is returned for payment kinds other than deposit and advance.
	ErrInvalidKind = errors.New("payment kind must be deposit or advance")
)

// Querier captures the database methods required by the payment service.
type Querier interface {
	GetReservation(ctx context.Context, id pgtype.UUID) (repo.Reservation, error)
	InsertPayment(ctx context.Context, arg repo.InsertPaymentParams) (repo.Payment, error)
	SumReservationPayments(ctx context.Context, reservationID pgtype.UUID) (decimal.Decimal, error)
}

// Locker serialises work per key; lock.Locker satisfies it.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// AdvanceRequest is a payment taken against an open reservation.
type AdvanceRequest struct {
	ReservationID string
	Kind          string
	Amount        decimal.Decimal
	Method        string
	Reference     string
}

// Service records reservation payments.
type Service struct {
	Q       Querier
	Locker  Locker
	LockTTL time.Duration
	Metrics *obs.FolioMetrics
	Log     zerolog.Logger
}

// RecordAdvance stores a deposit or advance payment. It holds the
// reservation lock so a payment cannot land while checkout is settling.
func (s *Service) RecordAdvance(ctx context.Context, req AdvanceRequest) (repo.Payment, error) {
	if s == nil || s.Q == nil {
		return repo.Payment{}, errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.RecordAdvance")
	defer span.End()

	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if kind == "" {
		kind = repo.PaymentAdvance
	}
	if kind != repo.PaymentAdvance && kind != repo.PaymentDeposit {
		return repo.Payment{}, fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind)
	}
	amount := money.Round2(req.Amount)
	if !amount.IsPositive() {
		return repo.Payment{}, fmt.Errorf("%w: %s", ErrInvalidAmount, req.Amount)
	}
	id, err := repo.ParseUUID(req.ReservationID)
	if err != nil {
		return repo.Payment{}, fmt.Errorf("%w: %s", ErrReservationNotFound, req.ReservationID)
	}
	span.SetAttributes(
		attribute.String("reservation.id", req.ReservationID),
		attribute.String("payment.kind", kind),
	)

	var out repo.Payment
	record := func(ctx context.Context) error {
		res, err := s.Q.GetReservation(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrReservationNotFound, req.ReservationID)
			}
			return err
		}
		if res.Status == repo.ReservationCheckedOut {
			return fmt.Errorf("%w: %s", ErrReservationClosed, req.ReservationID)
		}
		out, err = s.Q.InsertPayment(ctx, repo.InsertPaymentParams{
			ReservationID: id,
			Kind:          kind,
			Amount:        amount,
			Method:        strings.TrimSpace(req.Method),
			Reference:     repo.Text(req.Reference),
		})
		return err
	}
	if s.Locker != nil {
		err = s.Locker.WithLock(ctx, lock.ReservationKey(req.ReservationID), s.LockTTL, record)
	} else {
		err = record(ctx)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return repo.Payment{}, err
	}
	s.Metrics.Payment(kind)
	s.Log.Info().
		Str("reservation_id", req.ReservationID).
		Str("payment_id", repo.UUIDString(out.ID)).
		Str("kind", kind).
		Str("amount", amount.StringFixed(2)).
		Msg("payment recorded")
	return out, nil
}

// AdvancePaid sums every payment recorded against the reservation.
func (s *Service) AdvancePaid(ctx context.Context, reservationID pgtype.UUID) (decimal.Decimal, error) {
	if s == nil || s.Q == nil {
		return decimal.Zero, errors.New("payment service not configured")
	}
	total, err := s.Q.SumReservationPayments(ctx, reservationID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}
