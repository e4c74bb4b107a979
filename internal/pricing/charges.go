package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-folio/internal/money"
)

// LineKind attributes a line to a revenue department.
type LineKind string

const (
	LineRoom     LineKind = "room"
	LineMealPlan LineKind = "meal_plan"
	LineFood     LineKind = "food"
	LineService  LineKind = "service"
)

// LineItem is one row of the folio breakdown.
type LineItem struct {
	Kind        LineKind        `json:"kind"`
	Reference   string          `json:"reference,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitRate    decimal.Decimal `json:"unitRate"`
	Amount      decimal.Decimal `json:"amount"`
}

// FoodOrderItem is one menu item on a food or beverage order.
type FoodOrderItem struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// FoodOrder groups the items of a single restaurant or room-service order.
type FoodOrder struct {
	OrderID string          `json:"orderId"`
	Items   []FoodOrderItem `json:"items"`
}

// ServiceCharge is an ad-hoc amenity or service charge.
type ServiceCharge struct {
	ChargeID    string          `json:"chargeId,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	RatePerUnit decimal.Decimal `json:"ratePerUnit"`
}

// Charges is the itemised pre-discount bill.
type Charges struct {
	Lines    []LineItem      `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// AggregateCharges builds the ordered line list: room, meal plan, food items
// in order sequence, then service charges. stay may be nil for folios without
// a room. The input slices are never modified.
func AggregateCharges(stay *MealPlanSplit, roomLabel string, orders []FoodOrder, services []ServiceCharge) (Charges, error) {
	lines := make([]LineItem, 0, 2+len(orders)+len(services))
	if stay != nil {
		nights := decimal.NewFromInt(int64(stay.Nights))
		lines = append(lines, LineItem{
			Kind:        LineRoom,
			Reference:   roomLabel,
			Description: roomDescription(roomLabel),
			Quantity:    nights,
			UnitRate:    stay.BillingRoomRatePerNight,
			Amount:      stay.TotalRoomCharges,
		})
		if stay.HasMealPlan {
			lines = append(lines, LineItem{
				Kind:        LineMealPlan,
				Reference:   stay.PlanName,
				Description: mealPlanDescription(stay.PlanName),
				Quantity:    nights,
				UnitRate:    stay.MealPlanPerNight,
				Amount:      stay.TotalMealPlanCharges,
			})
		}
	}
	for _, order := range orders {
		for i, item := range order.Items {
			line, err := priced(LineFood, order.OrderID, item.Name, item.Quantity, item.UnitPrice)
			if err != nil {
				return Charges{}, fmt.Errorf("food order %s item %d: %w", order.OrderID, i+1, err)
			}
			lines = append(lines, line)
		}
	}
	for i, sc := range services {
		line, err := priced(LineService, sc.ChargeID, sc.Description, sc.Quantity, sc.RatePerUnit)
		if err != nil {
			return Charges{}, fmt.Errorf("service charge %d: %w", i+1, err)
		}
		lines = append(lines, line)
	}
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Amount)
	}
	return Charges{Lines: lines, Subtotal: money.Round2(sum)}, nil
}

func priced(kind LineKind, ref, description string, qty, unit decimal.Decimal) (LineItem, error) {
	if !qty.IsPositive() {
		return LineItem{}, fmt.Errorf("%w: %q has quantity %s", ErrNonPositiveQuantity, description, qty)
	}
	if unit.IsNegative() {
		return LineItem{}, fmt.Errorf("%w: %q has unit price %s", ErrNegativeAmount, description, unit)
	}
	return LineItem{
		Kind:        kind,
		Reference:   ref,
		Description: strings.TrimSpace(description),
		Quantity:    qty,
		UnitRate:    unit,
		Amount:      money.Round2(qty.Mul(unit)),
	}, nil
}

func roomDescription(label string) string {
	if strings.TrimSpace(label) == "" {
		return "Room charges"
	}
	return "Room " + strings.TrimSpace(label)
}

func mealPlanDescription(plan string) string {
	if strings.TrimSpace(plan) == "" {
		return "Meal plan"
	}
	return "Meal plan (" + strings.TrimSpace(plan) + ")"
}
