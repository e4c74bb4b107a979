package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-folio/internal/pricing"
	"github.com/noah-isme/backend-folio/internal/repo"
	"github.com/noah-isme/backend-folio/internal/voucher"
)

// stayFromReservation rebuilds the engine view of a stay ending at checkOut.
// negotiated_rate is stored in the room's own currency.
func stayFromReservation(res repo.Reservation, checkOut time.Time) (*pricing.StayInput, error) {
	stay := &pricing.StayInput{
		RoomLabel: res.RoomLabel,
		Window:    pricing.StayWindow{CheckIn: res.CheckInAt, CheckOut: checkOut},
	}
	switch pricing.CurrencyKind(strings.ToUpper(res.CurrencyKind)) {
	case pricing.CurrencyForeign:
		if res.ExchangeRate == nil {
			return nil, fmt.Errorf("%w: reservation has no frozen exchange rate", pricing.ErrInvalidRate)
		}
		snap := pricing.RateSnapshot{Currency: res.CurrencyCode.String, Rate: *res.ExchangeRate}
		if res.RateCapturedAt.Valid {
			snap.CapturedAt = res.RateCapturedAt.Time
		}
		stay.Rate = pricing.ForeignRoomRate(res.NegotiatedRate, snap)
	default:
		stay.Rate = pricing.BaseRoomRate(res.NegotiatedRate)
	}
	if res.MealPlanName.Valid && res.MealPlanPricePerPerson != nil {
		stay.MealPlan = &pricing.MealPlanAllocation{
			PlanName:               res.MealPlanName.String,
			PricePerPersonPerNight: *res.MealPlanPricePerPerson,
			OccupantCount:          int(res.OccupantCount),
		}
	}
	return stay, nil
}

// foodOrdersFromRows groups flat item rows by order, keeping row order.
func foodOrdersFromRows(rows []repo.FoodOrderItem) []pricing.FoodOrder {
	var orders []pricing.FoodOrder
	index := map[string]int{}
	for _, row := range rows {
		id := repo.UUIDString(row.OrderID)
		i, ok := index[id]
		if !ok {
			i = len(orders)
			index[id] = i
			orders = append(orders, pricing.FoodOrder{OrderID: id})
		}
		orders[i].Items = append(orders[i].Items, pricing.FoodOrderItem{
			Name:      row.Name,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
		})
	}
	return orders
}

func serviceChargesFromRows(rows []repo.ServiceCharge) []pricing.ServiceCharge {
	out := make([]pricing.ServiceCharge, 0, len(rows))
	for _, row := range rows {
		out = append(out, pricing.ServiceCharge{
			ChargeID:    repo.UUIDString(row.ID),
			Description: row.Description,
			Quantity:    row.Quantity,
			RatePerUnit: row.RatePerUnit,
		})
	}
	return out
}

// lookupVoucher resolves code. A missing voucher is left nil so the engine
// reports it with the code attached.
func (s *Service) lookupVoucher(ctx context.Context, code string) (*voucher.Voucher, error) {
	if strings.TrimSpace(code) == "" || s.Vouchers == nil {
		return nil, nil
	}
	v, err := s.Vouchers.Lookup(ctx, code)
	if err != nil {
		if errors.Is(err, voucher.ErrVoucherNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// releaseOwnRedemption stops a closed stay's own redemption from counting
// against v, so its folio stays reproducible after the last use is taken.
func (s *Service) releaseOwnRedemption(ctx context.Context, q repo.Querier, reservationID pgtype.UUID, v *voucher.Voucher) error {
	if v == nil || v.MaxUses == nil {
		return nil
	}
	voucherID, err := repo.ParseUUID(v.ID)
	if err != nil {
		return nil
	}
	_, err = q.GetVoucherRedemption(ctx, repo.GetVoucherRedemptionParams{VoucherID: voucherID, SubjectID: reservationID})
	switch {
	case repo.IsNotFound(err):
		return nil
	case err != nil:
		return fmt.Errorf("load voucher redemption: %w", err)
	}
	if v.UsedCount > 0 {
		v.UsedCount--
	}
	return nil
}

func (s *Service) taxConfig(ctx context.Context) (pricing.TaxConfig, error) {
	if s.Taxes == nil {
		return pricing.TaxConfig{}, nil
	}
	return s.Taxes.Active(ctx)
}

// reservationInput assembles the folio input for res as of checkOut.
func (s *Service) reservationInput(ctx context.Context, q repo.Querier, res repo.Reservation, voucherCode string, checkOut time.Time) (pricing.FolioInput, error) {
	stay, err := stayFromReservation(res, checkOut)
	if err != nil {
		return pricing.FolioInput{}, err
	}
	items, err := q.ListFoodOrderItems(ctx, res.ID)
	if err != nil {
		return pricing.FolioInput{}, fmt.Errorf("list food orders: %w", err)
	}
	services, err := q.ListServiceCharges(ctx, res.ID)
	if err != nil {
		return pricing.FolioInput{}, fmt.Errorf("list service charges: %w", err)
	}
	paid, err := q.SumReservationPayments(ctx, res.ID)
	if err != nil {
		return pricing.FolioInput{}, fmt.Errorf("sum payments: %w", err)
	}
	v, err := s.lookupVoucher(ctx, voucherCode)
	if err != nil {
		return pricing.FolioInput{}, err
	}
	taxes, err := s.taxConfig(ctx)
	if err != nil {
		return pricing.FolioInput{}, err
	}
	return pricing.FolioInput{
		BaseCurrency:   s.BaseCurrency,
		Stay:           stay,
		FoodOrders:     foodOrdersFromRows(items),
		ServiceCharges: serviceChargesFromRows(services),
		VoucherCode:    strings.TrimSpace(voucherCode),
		Voucher:        v,
		Taxes:          taxes,
		AdvancePaid:    paid,
		Now:            checkOut,
		Policy:         s.Policy,
	}, nil
}

func (s *Service) exceedsThreshold(total decimal.Decimal) bool {
	return s.LargeTransactionThreshold.IsPositive() && total.GreaterThan(s.LargeTransactionThreshold)
}
