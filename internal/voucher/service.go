package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-folio/internal/money"
	"github.com/noah-isme/backend-folio/internal/repo"
)

// Querier captures the database methods required by the voucher service.
type Querier interface {
	GetVoucherByCode(ctx context.Context, code string) (repo.Voucher, error)
	GetVoucherByCodeForUpdate(ctx context.Context, code string) (repo.Voucher, error)
	GetVoucherRedemption(ctx context.Context, arg repo.GetVoucherRedemptionParams) (repo.VoucherRedemption, error)
	InsertVoucherRedemption(ctx context.Context, arg repo.InsertVoucherRedemptionParams) error
	IncreaseVoucherUsedCount(ctx context.Context, id pgtype.UUID) (int64, error)
}

// PreviewResult describes the outcome of evaluating a voucher without mutating state.
type PreviewResult struct {
	Code               string          `json:"code"`
	Kind               Kind            `json:"kind"`
	Discount           decimal.Decimal `json:"discount"`
	DiscountedSubtotal decimal.Decimal `json:"discountedSubtotal"`
}

// Redemption identifies what a voucher is being consumed by.
type Redemption struct {
	Code        string
	SubjectKind string
	SubjectID   pgtype.UUID
	PaymentID   pgtype.UUID
	Discount    decimal.Decimal
}

// Service encapsulates voucher lookup and redemption.
type Service struct {
	Q   Querier
	Now func() time.Time
}

// Lookup loads the voucher behind code.
func (s *Service) Lookup(ctx context.Context, code string) (Voucher, error) {
	if s == nil || s.Q == nil {
		return Voucher{}, errors.New("voucher service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Voucher{}, fmt.Errorf("code is required: %w", ErrVoucherNotFound)
	}
	row, err := s.Q.GetVoucherByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, fmt.Errorf("%w: %s", ErrVoucherNotFound, trimmed)
		}
		return Voucher{}, err
	}
	return FromRow(row)
}

// Preview performs a dry-run evaluation against subtotal.
func (s *Service) Preview(ctx context.Context, code string, subtotal decimal.Decimal) (PreviewResult, error) {
	v, err := s.Lookup(ctx, code)
	if err != nil {
		return PreviewResult{}, err
	}
	if err := v.Validate(s.now()); err != nil {
		return PreviewResult{}, err
	}
	discount, err := Discount(subtotal, v)
	if err != nil {
		return PreviewResult{}, err
	}
	return PreviewResult{
		Code:               v.Code,
		Kind:               v.Kind,
		Discount:           discount,
		DiscountedSubtotal: money.Round2(subtotal.Sub(discount)),
	}, nil
}

// Redeem consumes one use of the voucher for the subject using q, which is
// expected to be bound to the transaction that recorded the payment. A
// repeated redemption for the same subject is a no-op.
func (s *Service) Redeem(ctx context.Context, q Querier, r Redemption) error {
	if q == nil {
		if s == nil || s.Q == nil {
			return errors.New("voucher service not configured")
		}
		q = s.Q
	}
	code := strings.TrimSpace(r.Code)
	if code == "" || !r.SubjectID.Valid {
		return nil
	}
	row, err := q.GetVoucherByCodeForUpdate(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrVoucherNotFound, code)
		}
		return err
	}
	_, err = q.GetVoucherRedemption(ctx, repo.GetVoucherRedemptionParams{VoucherID: row.ID, SubjectID: r.SubjectID})
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	v, err := FromRow(row)
	if err != nil {
		return err
	}
	if err := v.Validate(s.now()); err != nil {
		return err
	}
	affected, err := q.IncreaseVoucherUsedCount(ctx, row.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrVoucherExhausted, v.Code)
	}
	discount := r.Discount
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return q.InsertVoucherRedemption(ctx, repo.InsertVoucherRedemptionParams{
		VoucherID:   row.ID,
		SubjectKind: r.SubjectKind,
		SubjectID:   r.SubjectID,
		PaymentID:   r.PaymentID,
		Discount:    discount,
	})
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// FromRow converts a stored voucher into its engine form.
func FromRow(row repo.Voucher) (Voucher, error) {
	kind, err := ParseKind(row.Kind)
	if err != nil {
		return Voucher{}, err
	}
	v := Voucher{
		ID:         repo.UUIDString(row.ID),
		Code:       row.Code,
		Kind:       kind,
		Amount:     row.Amount,
		UsedCount:  int(row.UsedCount),
		ValidFrom:  repo.TimePtr(row.ValidFrom),
		ValidUntil: repo.TimePtr(row.ValidUntil),
	}
	if row.MaxUses.Valid {
		limit := int(row.MaxUses.Int32)
		v.MaxUses = &limit
	}
	return v, nil
}
