package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregateChargesKeepsItemGranularity(t *testing.T) {
	split, err := AllocateMealPlan(dec("5000"), &MealPlanAllocation{PlanName: "MAP", PricePerPersonPerNight: dec("800"), OccupantCount: 2}, 3)
	require.NoError(t, err)

	orders := []FoodOrder{
		{OrderID: "FO-1", Items: []FoodOrderItem{
			{Name: "Momo", Quantity: dec("2"), UnitPrice: dec("250")},
			{Name: "Lassi", Quantity: dec("1"), UnitPrice: dec("180.50")},
		}},
		{OrderID: "FO-2", Items: []FoodOrderItem{
			{Name: "Momo", Quantity: dec("1"), UnitPrice: dec("250")},
		}},
	}
	services := []ServiceCharge{
		{ChargeID: "SC-1", Description: "Laundry", Quantity: dec("3"), RatePerUnit: dec("99.995")},
	}

	charges, err := AggregateCharges(&split, "301", orders, services)
	require.NoError(t, err)
	require.Len(t, charges.Lines, 6)

	kinds := make([]LineKind, 0, len(charges.Lines))
	for _, l := range charges.Lines {
		kinds = append(kinds, l.Kind)
	}
	require.Equal(t, []LineKind{LineRoom, LineMealPlan, LineFood, LineFood, LineFood, LineService}, kinds)

	require.Equal(t, "Room 301", charges.Lines[0].Description)
	requireDecimal(t, "10200", charges.Lines[0].Amount)
	requireDecimal(t, "4800", charges.Lines[1].Amount)
	require.Equal(t, "FO-1", charges.Lines[2].Reference)
	requireDecimal(t, "500", charges.Lines[2].Amount)
	require.Equal(t, "FO-2", charges.Lines[4].Reference)
	// 3 x 99.995 = 299.985 rounds to 299.99
	requireDecimal(t, "299.99", charges.Lines[5].Amount)
	requireDecimal(t, "16230.49", charges.Subtotal)
}

func TestAggregateChargesDoesNotMutateInput(t *testing.T) {
	orders := []FoodOrder{{OrderID: "FO-1", Items: []FoodOrderItem{{Name: "Tea", Quantity: dec("1"), UnitPrice: dec("60")}}}}
	first, err := AggregateCharges(nil, "", orders, nil)
	require.NoError(t, err)
	first.Lines[0].Amount = dec("1")

	second, err := AggregateCharges(nil, "", orders, nil)
	require.NoError(t, err)
	requireDecimal(t, "60", second.Lines[0].Amount)
	requireDecimal(t, "60", orders[0].Items[0].UnitPrice)
}

func TestAggregateChargesRejectsNonPositiveQuantity(t *testing.T) {
	_, err := AggregateCharges(nil, "", []FoodOrder{{OrderID: "FO-1", Items: []FoodOrderItem{{Name: "Tea", Quantity: dec("0"), UnitPrice: dec("60")}}}}, nil)
	require.ErrorIs(t, err, ErrNonPositiveQuantity)

	_, err = AggregateCharges(nil, "", nil, []ServiceCharge{{Description: "Spa", Quantity: dec("-1"), RatePerUnit: dec("10")}})
	require.ErrorIs(t, err, ErrNonPositiveQuantity)

	_, err = AggregateCharges(nil, "", nil, []ServiceCharge{{Description: "Spa", Quantity: dec("1"), RatePerUnit: dec("-10")}})
	require.ErrorIs(t, err, ErrNegativeAmount)
}
