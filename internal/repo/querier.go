package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Querier lists every statement the billing services run.
type Querier interface {
	GetReservation(ctx context.Context, id pgtype.UUID) (Reservation, error)
	GetReservationForUpdate(ctx context.Context, id pgtype.UUID) (Reservation, error)
	ListFoodOrderItems(ctx context.Context, reservationID pgtype.UUID) ([]FoodOrderItem, error)
	ListServiceCharges(ctx context.Context, reservationID pgtype.UUID) ([]ServiceCharge, error)
	SumReservationPayments(ctx context.Context, reservationID pgtype.UUID) (decimal.Decimal, error)
	InsertPayment(ctx context.Context, arg InsertPaymentParams) (Payment, error)
	GetVoucherByCode(ctx context.Context, code string) (Voucher, error)
	GetVoucherByCodeForUpdate(ctx context.Context, code string) (Voucher, error)
	GetVoucherRedemption(ctx context.Context, arg GetVoucherRedemptionParams) (VoucherRedemption, error)
	InsertVoucherRedemption(ctx context.Context, arg InsertVoucherRedemptionParams) error
	IncreaseVoucherUsedCount(ctx context.Context, id pgtype.UUID) (int64, error)
	ListActiveTaxRules(ctx context.Context) ([]TaxRule, error)
	InsertCheckoutOverride(ctx context.Context, arg InsertCheckoutOverrideParams) error
	InsertFolioSnapshot(ctx context.Context, arg InsertFolioSnapshotParams) error
	MarkCheckedOut(ctx context.Context, arg MarkCheckedOutParams) (int64, error)
	InsertWalkInSale(ctx context.Context, arg InsertWalkInSaleParams) (pgtype.UUID, error)
}

var _ Querier = (*Queries)(nil)
