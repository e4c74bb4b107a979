package repo

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Reservation statuses.
const (
	ReservationReserved   = "reserved"
	ReservationCheckedIn  = "checked_in"
	ReservationCheckedOut = "checked_out"
)

// Payment kinds.
const (
	PaymentDeposit    = "deposit"
	PaymentAdvance    = "advance"
	PaymentSettlement = "settlement"
	PaymentWalkIn     = "walk_in"
)

// Redemption and snapshot subjects.
const (
	SubjectReservation = "reservation"
	SubjectWalkInSale  = "walk_in_sale"
)

type Reservation struct {
	ID                     pgtype.UUID
	RoomLabel              string
	Status                 string
	Version                int64
	CheckInAt              time.Time
	CheckedOutAt           pgtype.Timestamptz
	OccupantCount          int32
	NegotiatedRate         decimal.Decimal
	CurrencyKind           string
	CurrencyCode           pgtype.Text
	ExchangeRate           *decimal.Decimal
	RateCapturedAt         pgtype.Timestamptz
	MealPlanName           pgtype.Text
	MealPlanPricePerPerson *decimal.Decimal
}

type FoodOrderItem struct {
	OrderID   pgtype.UUID
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

type ServiceCharge struct {
	ID          pgtype.UUID
	Description string
	Quantity    decimal.Decimal
	RatePerUnit decimal.Decimal
}

type Payment struct {
	ID            pgtype.UUID
	ReservationID pgtype.UUID
	SaleID        pgtype.UUID
	Kind          string
	Amount        decimal.Decimal
	Method        string
	Reference     pgtype.Text
	CreatedAt     time.Time
}

type InsertPaymentParams struct {
	ReservationID pgtype.UUID
	SaleID        pgtype.UUID
	Kind          string
	Amount        decimal.Decimal
	Method        string
	Reference     pgtype.Text
}

type Voucher struct {
	ID         pgtype.UUID
	Code       string
	Kind       string
	Amount     decimal.Decimal
	UsedCount  int32
	MaxUses    pgtype.Int4
	ValidFrom  pgtype.Timestamptz
	ValidUntil pgtype.Timestamptz
}

type VoucherRedemption struct {
	ID          pgtype.UUID
	VoucherID   pgtype.UUID
	SubjectKind string
	SubjectID   pgtype.UUID
	PaymentID   pgtype.UUID
	Discount    decimal.Decimal
	CreatedAt   time.Time
}

type GetVoucherRedemptionParams struct {
	VoucherID pgtype.UUID
	SubjectID pgtype.UUID
}

type InsertVoucherRedemptionParams struct {
	VoucherID   pgtype.UUID
	SubjectKind string
	SubjectID   pgtype.UUID
	PaymentID   pgtype.UUID
	Discount    decimal.Decimal
}

type TaxRule struct {
	TaxType     string
	DisplayName pgtype.Text
	Percent     decimal.Decimal
	IsActive    bool
}

type InsertCheckoutOverrideParams struct {
	ReservationID pgtype.UUID
	ActorID       string
	ActorRole     string
	Reason        string
	AmountDue     decimal.Decimal
}

type InsertFolioSnapshotParams struct {
	SubjectKind string
	SubjectID   pgtype.UUID
	GrandTotal  decimal.Decimal
	AmountDue   decimal.Decimal
	Payload     []byte
}

type MarkCheckedOutParams struct {
	ID           pgtype.UUID
	Version      int64
	CheckedOutAt time.Time
}

type InsertWalkInSaleParams struct {
	CashierID  pgtype.Text
	TaxExempt  bool
	Subtotal   decimal.Decimal
	GrandTotal decimal.Decimal
}
