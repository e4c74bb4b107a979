package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const reservationColumns = `id, room_label, status, version, check_in_at, checked_out_at, occupant_count,
       negotiated_rate, currency_kind, currency_code, exchange_rate, rate_captured_at,
       meal_plan_name, meal_plan_price_per_person`

const getReservation = `SELECT ` + reservationColumns + `
FROM reservations
WHERE id = $1`

func (q *Queries) GetReservation(ctx context.Context, id pgtype.UUID) (Reservation, error) {
	return scanReservation(q.db.QueryRow(ctx, getReservation, id))
}

const getReservationForUpdate = getReservation + `
FOR UPDATE`

func (q *Queries) GetReservationForUpdate(ctx context.Context, id pgtype.UUID) (Reservation, error) {
	return scanReservation(q.db.QueryRow(ctx, getReservationForUpdate, id))
}

func scanReservation(row pgx.Row) (Reservation, error) {
	var (
		r                         Reservation
		rate, exchange, mealPrice pgtype.Numeric
	)
	err := row.Scan(
		&r.ID,
		&r.RoomLabel,
		&r.Status,
		&r.Version,
		&r.CheckInAt,
		&r.CheckedOutAt,
		&r.OccupantCount,
		&rate,
		&r.CurrencyKind,
		&r.CurrencyCode,
		&exchange,
		&r.RateCapturedAt,
		&r.MealPlanName,
		&mealPrice,
	)
	if err != nil {
		return Reservation{}, err
	}
	r.NegotiatedRate = Decimal(rate)
	r.ExchangeRate = DecimalPtr(exchange)
	r.MealPlanPricePerPerson = DecimalPtr(mealPrice)
	return r, nil
}

const listFoodOrderItems = `SELECT o.id, i.name, i.quantity, i.unit_price
FROM food_orders o
JOIN food_order_items i ON i.order_id = o.id
WHERE o.reservation_id = $1 AND o.voided_at IS NULL
ORDER BY o.created_at, o.id, i.line_no`

func (q *Queries) ListFoodOrderItems(ctx context.Context, reservationID pgtype.UUID) ([]FoodOrderItem, error) {
	rows, err := q.db.Query(ctx, listFoodOrderItems, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FoodOrderItem
	for rows.Next() {
		var (
			i          FoodOrderItem
			qty, price pgtype.Numeric
		)
		if err := rows.Scan(&i.OrderID, &i.Name, &qty, &price); err != nil {
			return nil, err
		}
		i.Quantity = Decimal(qty)
		i.UnitPrice = Decimal(price)
		items = append(items, i)
	}
	return items, rows.Err()
}

const listServiceCharges = `SELECT id, description, quantity, rate_per_unit
FROM service_charges
WHERE reservation_id = $1 AND voided_at IS NULL
ORDER BY created_at, id`

func (q *Queries) ListServiceCharges(ctx context.Context, reservationID pgtype.UUID) ([]ServiceCharge, error) {
	rows, err := q.db.Query(ctx, listServiceCharges, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ServiceCharge
	for rows.Next() {
		var (
			c         ServiceCharge
			qty, rate pgtype.Numeric
		)
		if err := rows.Scan(&c.ID, &c.Description, &qty, &rate); err != nil {
			return nil, err
		}
		c.Quantity = Decimal(qty)
		c.RatePerUnit = Decimal(rate)
		items = append(items, c)
	}
	return items, rows.Err()
}

const sumReservationPayments = `SELECT COALESCE(SUM(amount), 0)
FROM payments
WHERE reservation_id = $1`

func (q *Queries) SumReservationPayments(ctx context.Context, reservationID pgtype.UUID) (decimal.Decimal, error) {
	var total pgtype.Numeric
	if err := q.db.QueryRow(ctx, sumReservationPayments, reservationID).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return Decimal(total), nil
}

const insertPayment = `INSERT INTO payments (reservation_id, sale_id, kind, amount, method, reference)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`

func (q *Queries) InsertPayment(ctx context.Context, arg InsertPaymentParams) (Payment, error) {
	p := Payment{
		ReservationID: arg.ReservationID,
		SaleID:        arg.SaleID,
		Kind:          arg.Kind,
		Amount:        arg.Amount,
		Method:        arg.Method,
		Reference:     arg.Reference,
	}
	err := q.db.QueryRow(ctx, insertPayment,
		arg.ReservationID,
		arg.SaleID,
		arg.Kind,
		Numeric(arg.Amount),
		arg.Method,
		arg.Reference,
	).Scan(&p.ID, &p.CreatedAt)
	return p, err
}

const getVoucherByCode = `SELECT id, code, kind, amount, used_count, max_uses, valid_from, valid_until
FROM vouchers
WHERE upper(code) = upper($1)`

func (q *Queries) GetVoucherByCode(ctx context.Context, code string) (Voucher, error) {
	return scanVoucher(q.db.QueryRow(ctx, getVoucherByCode, code))
}

const getVoucherByCodeForUpdate = getVoucherByCode + `
FOR UPDATE`

func (q *Queries) GetVoucherByCodeForUpdate(ctx context.Context, code string) (Voucher, error) {
	return scanVoucher(q.db.QueryRow(ctx, getVoucherByCodeForUpdate, code))
}

func scanVoucher(row pgx.Row) (Voucher, error) {
	var (
		v      Voucher
		amount pgtype.Numeric
	)
	if err := row.Scan(&v.ID, &v.Code, &v.Kind, &amount, &v.UsedCount, &v.MaxUses, &v.ValidFrom, &v.ValidUntil); err != nil {
		return Voucher{}, err
	}
	v.Amount = Decimal(amount)
	return v, nil
}

const getVoucherRedemption = `SELECT id, voucher_id, subject_kind, subject_id, payment_id, discount, created_at
FROM voucher_redemptions
WHERE voucher_id = $1 AND subject_id = $2`

func (q *Queries) GetVoucherRedemption(ctx context.Context, arg GetVoucherRedemptionParams) (VoucherRedemption, error) {
	var (
		r        VoucherRedemption
		discount pgtype.Numeric
	)
	err := q.db.QueryRow(ctx, getVoucherRedemption, arg.VoucherID, arg.SubjectID).
		Scan(&r.ID, &r.VoucherID, &r.SubjectKind, &r.SubjectID, &r.PaymentID, &discount, &r.CreatedAt)
	if err != nil {
		return VoucherRedemption{}, err
	}
	r.Discount = Decimal(discount)
	return r, nil
}

const insertVoucherRedemption = `INSERT INTO voucher_redemptions (voucher_id, subject_kind, subject_id, payment_id, discount)
VALUES ($1, $2, $3, $4, $5)`

func (q *Queries) InsertVoucherRedemption(ctx context.Context, arg InsertVoucherRedemptionParams) error {
	_, err := q.db.Exec(ctx, insertVoucherRedemption,
		arg.VoucherID, arg.SubjectKind, arg.SubjectID, arg.PaymentID, Numeric(arg.Discount))
	return err
}

const increaseVoucherUsedCount = `UPDATE vouchers
SET used_count = used_count + 1, updated_at = now()
WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)`

// IncreaseVoucherUsedCount returns the affected row count; zero means the
// voucher hit its usage limit concurrently.
func (q *Queries) IncreaseVoucherUsedCount(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, increaseVoucherUsedCount, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listActiveTaxRules = `SELECT tax_type, display_name, percent, is_active
FROM tax_rules
WHERE is_active
ORDER BY id`

func (q *Queries) ListActiveTaxRules(ctx context.Context) ([]TaxRule, error) {
	rows, err := q.db.Query(ctx, listActiveTaxRules)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []TaxRule
	for rows.Next() {
		var (
			r       TaxRule
			percent pgtype.Numeric
		)
		if err := rows.Scan(&r.TaxType, &r.DisplayName, &percent, &r.IsActive); err != nil {
			return nil, err
		}
		r.Percent = Decimal(percent)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

const insertCheckoutOverride = `INSERT INTO checkout_overrides (reservation_id, actor_id, actor_role, reason, amount_due)
VALUES ($1, $2, $3, $4, $5)`

func (q *Queries) InsertCheckoutOverride(ctx context.Context, arg InsertCheckoutOverrideParams) error {
	_, err := q.db.Exec(ctx, insertCheckoutOverride,
		arg.ReservationID, arg.ActorID, arg.ActorRole, arg.Reason, Numeric(arg.AmountDue))
	return err
}

const insertFolioSnapshot = `INSERT INTO folio_snapshots (subject_kind, subject_id, grand_total, amount_due, payload)
VALUES ($1, $2, $3, $4, $5)`

func (q *Queries) InsertFolioSnapshot(ctx context.Context, arg InsertFolioSnapshotParams) error {
	_, err := q.db.Exec(ctx, insertFolioSnapshot,
		arg.SubjectKind, arg.SubjectID, Numeric(arg.GrandTotal), Numeric(arg.AmountDue), arg.Payload)
	return err
}

const markCheckedOut = `UPDATE reservations
SET status = 'checked_out', checked_out_at = $3, version = version + 1
WHERE id = $1 AND version = $2 AND status = 'checked_in'`

// MarkCheckedOut returns zero affected rows when the version moved underneath
// the caller.
func (q *Queries) MarkCheckedOut(ctx context.Context, arg MarkCheckedOutParams) (int64, error) {
	tag, err := q.db.Exec(ctx, markCheckedOut, arg.ID, arg.Version, arg.CheckedOutAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const insertWalkInSale = `INSERT INTO walk_in_sales (cashier_id, tax_exempt, subtotal, grand_total)
VALUES ($1, $2, $3, $4)
RETURNING id`

func (q *Queries) InsertWalkInSale(ctx context.Context, arg InsertWalkInSaleParams) (pgtype.UUID, error) {
	var id pgtype.UUID
	err := q.db.QueryRow(ctx, insertWalkInSale,
		arg.CashierID, arg.TaxExempt, Numeric(arg.Subtotal), Numeric(arg.GrandTotal)).Scan(&id)
	return id, err
}
