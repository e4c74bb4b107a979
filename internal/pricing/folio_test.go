package pricing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-folio/internal/voucher"
)

func standardTaxes() TaxConfig {
	return TaxConfig{Rules: []TaxRule{
		{TaxType: "service_tax", DisplayName: "Service Tax", Percent: dec("10"), IsActive: true},
		{TaxType: "vat", DisplayName: "VAT", Percent: dec("13"), IsActive: true},
		{TaxType: "luxury_tax", DisplayName: "Luxury Tax", Percent: dec("5"), IsActive: false},
	}}
}

func tenPercent() *voucher.Voucher {
	return &voucher.Voucher{Code: "WINTER10", Kind: voucher.KindPercentage, Amount: dec("10")}
}

func twoNightStay() *StayInput {
	return &StayInput{
		RoomLabel: "204",
		Window:    StayWindow{CheckIn: at("2025-01-01 14:00"), CheckOut: at("2025-01-03 10:00")},
		Rate:      BaseRoomRate(dec("5000")),
	}
}

func TestComputeFolioDiscountThenCompoundTax(t *testing.T) {
	in := FolioInput{
		BaseCurrency: "NPR",
		Stay:         twoNightStay(),
		VoucherCode:  "winter10",
		Voucher:      tenPercent(),
		Taxes:        standardTaxes(),
		AdvancePaid:  dec("5000"),
		Now:          at("2025-01-03 10:00"),
		Policy:       DefaultNightPolicy(time.UTC),
	}
	f, err := ComputeFolio(in)
	require.NoError(t, err)
	require.Equal(t, 2, f.Nights)
	requireDecimal(t, "10000", f.Subtotal)
	require.Equal(t, "WINTER10", f.VoucherCode)
	requireDecimal(t, "1000", f.DiscountAmount)
	requireDecimal(t, "9000", f.DiscountedSubtotal)
	require.Len(t, f.Taxes, 2)
	breakdown := f.TaxBreakdown()
	requireDecimal(t, "1170", breakdown[TaxTypeVAT].Amount)
	requireDecimal(t, "1017", breakdown[TaxTypeService].Amount)
	requireDecimal(t, "2187", f.TotalTax)
	requireDecimal(t, "11187", f.GrandTotal)
	requireDecimal(t, "6187", f.AmountDue)
	requireDecimal(t, "0", f.Overpayment)
	require.Equal(t, "NPR", f.Currency)
}

func TestComputeFolioMealPlanStay(t *testing.T) {
	stay := &StayInput{
		RoomLabel: "301",
		Window:    StayWindow{CheckIn: at("2025-01-01 14:00"), CheckOut: at("2025-01-04 11:00")},
		Rate:      BaseRoomRate(dec("5000")),
		MealPlan:  &MealPlanAllocation{PlanName: "MAP", PricePerPersonPerNight: dec("800"), OccupantCount: 2},
	}
	f, err := ComputeFolio(FolioInput{BaseCurrency: "NPR", Stay: stay, Policy: DefaultNightPolicy(time.UTC)})
	require.NoError(t, err)
	require.Equal(t, 3, f.Nights)
	require.Len(t, f.LineItems, 2)
	requireDecimal(t, "10200", f.LineItems[0].Amount)
	requireDecimal(t, "4800", f.LineItems[1].Amount)
	requireDecimal(t, "15000", f.Subtotal)
	requireDecimal(t, "15000", f.GrandTotal)
	require.Empty(t, f.Taxes)
}

func TestComputeFolioForeignRoom(t *testing.T) {
	stay := twoNightStay()
	stay.Rate = ForeignRoomRate(dec("40"), RateSnapshot{Currency: "USD", Rate: dec("125")})
	f, err := ComputeFolio(FolioInput{BaseCurrency: "NPR", Stay: stay, Policy: DefaultNightPolicy(time.UTC)})
	require.NoError(t, err)
	require.Equal(t, "USD", f.Rate.DisplayCurrency)
	requireDecimal(t, "10000", f.Subtotal)
	require.Equal(t, "NPR", f.Currency)
}

func TestComputeFolioTaxExemptAmenities(t *testing.T) {
	in := FolioInput{
		BaseCurrency: "NPR",
		ServiceCharges: []ServiceCharge{
			{Description: "Pool day pass", Quantity: dec("2"), RatePerUnit: dec("700")},
			{Description: "Towel rental", Quantity: dec("4"), RatePerUnit: dec("250")},
		},
		VoucherCode: "WINTER10",
		Voucher:     tenPercent(),
		Taxes:       standardTaxes(),
		TaxExempt:   true,
	}
	f, err := ComputeFolio(in)
	require.NoError(t, err)
	requireDecimal(t, "2400", f.Subtotal)
	requireDecimal(t, "0", f.DiscountAmount)
	requireDecimal(t, "0", f.TotalTax)
	requireDecimal(t, "2400", f.GrandTotal)
	require.Empty(t, f.Taxes)
	require.True(t, f.VoucherIgnored)
	require.Empty(t, f.VoucherCode)
	require.True(t, f.TaxExempt)
}

func TestComputeFolioIsDeterministic(t *testing.T) {
	build := func() FolioInput {
		return FolioInput{
			BaseCurrency: "NPR",
			Stay:         twoNightStay(),
			FoodOrders: []FoodOrder{{OrderID: "FO-9", Items: []FoodOrderItem{
				{Name: "Dal bhat", Quantity: dec("2"), UnitPrice: dec("450")},
			}}},
			ServiceCharges: []ServiceCharge{{Description: "Airport pickup", Quantity: dec("1"), RatePerUnit: dec("1500")}},
			VoucherCode:    "WINTER10",
			Voucher:        tenPercent(),
			Taxes:          standardTaxes(),
			AdvancePaid:    dec("2000"),
			Now:            at("2025-01-03 10:00"),
			Policy:         DefaultNightPolicy(time.UTC),
		}
	}
	first, err := ComputeFolio(build())
	require.NoError(t, err)
	second, err := ComputeFolio(build())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestComputeFolioVoucherFailuresAreSignalled(t *testing.T) {
	base := FolioInput{BaseCurrency: "NPR", Stay: twoNightStay(), Now: at("2025-01-03 10:00"), Policy: DefaultNightPolicy(time.UTC)}

	in := base
	in.VoucherCode = "GHOST"
	_, err := ComputeFolio(in)
	require.ErrorIs(t, err, voucher.ErrVoucherNotFound)

	until := at("2025-01-02 00:00")
	in = base
	in.VoucherCode = "OLD"
	in.Voucher = &voucher.Voucher{Code: "OLD", Kind: voucher.KindFixed, Amount: dec("100"), ValidUntil: &until}
	_, err = ComputeFolio(in)
	require.ErrorIs(t, err, voucher.ErrVoucherExpired)

	maxUses := 1
	in = base
	in.VoucherCode = "ONCE"
	in.Voucher = &voucher.Voucher{Code: "ONCE", Kind: voucher.KindFixed, Amount: dec("100"), MaxUses: &maxUses, UsedCount: 1}
	_, err = ComputeFolio(in)
	require.ErrorIs(t, err, voucher.ErrVoucherExhausted)
}

func TestComputeFolioRejectsBadInput(t *testing.T) {
	_, err := ComputeFolio(FolioInput{BaseCurrency: "NPR"})
	require.ErrorIs(t, err, ErrEmptyFolio)

	_, err = ComputeFolio(FolioInput{BaseCurrency: "NPR", Stay: twoNightStay(), AdvancePaid: dec("-1")})
	require.ErrorIs(t, err, ErrNegativeAmount)

	stay := twoNightStay()
	stay.MealPlan = &MealPlanAllocation{PricePerPersonPerNight: dec("3000"), OccupantCount: 2}
	_, err = ComputeFolio(FolioInput{BaseCurrency: "NPR", Stay: stay})
	require.ErrorIs(t, err, ErrMealPlanExceedsRoomRate)

	_, err = ComputeFolio(FolioInput{BaseCurrency: "NPR", FoodOrders: []FoodOrder{{OrderID: "FO-1", Items: []FoodOrderItem{{Name: "Tea", Quantity: dec("0"), UnitPrice: dec("1")}}}}})
	require.ErrorIs(t, err, ErrNonPositiveQuantity)
}

func TestReconcileAmountDue(t *testing.T) {
	s, err := ReconcileAmountDue(dec("11187"), dec("12000"), nil)
	require.NoError(t, err)
	requireDecimal(t, "0", s.AmountDue)
	require.False(t, s.Blocked)
}

func TestTaxBreakdownSumsToTotalTaxWithSharedDisplayNames(t *testing.T) {
	f, err := ComputeFolio(FolioInput{
		BaseCurrency: "NPR",
		Stay:         twoNightStay(),
		Taxes: TaxConfig{Rules: []TaxRule{
			{TaxType: "city", DisplayName: "Tax", Percent: dec("1"), IsActive: true},
			{TaxType: "tourism", DisplayName: "Tax", Percent: dec("2"), IsActive: true},
			{TaxType: "service", DisplayName: "Service Tax", Percent: dec("10"), IsActive: true},
			{TaxType: "VAT", DisplayName: "VAT", Percent: dec("13"), IsActive: true},
		}},
		Now:    at("2025-01-03 10:00"),
		Policy: DefaultNightPolicy(time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, f.Taxes, 4)

	breakdown := f.TaxBreakdown()
	require.Len(t, breakdown, 4)
	sum := dec("0")
	for _, line := range breakdown {
		sum = sum.Add(line.Amount)
	}
	requireDecimal(t, f.TotalTax.String(), sum)
	require.Equal(t, "Tax", breakdown["city"].Name)
	require.Equal(t, "Tax", breakdown["tourism"].Name)
}
