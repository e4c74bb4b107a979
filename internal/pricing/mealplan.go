package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MealPlanAllocation is the meal component bundled into a negotiated rate.
type MealPlanAllocation struct {
	PlanName               string          `json:"planName"`
	PricePerPersonPerNight decimal.Decimal `json:"pricePerPersonPerNight"`
	OccupantCount          int             `json:"occupantCount"`
}

// TotalPerNight is price per person times occupants.
func (m MealPlanAllocation) TotalPerNight() decimal.Decimal {
	return m.PricePerPersonPerNight.Mul(decimal.NewFromInt(int64(m.OccupantCount)))
}

// MealPlanSplit decomposes the negotiated rate into its room and meal parts.
// BillingRoomRatePerNight + MealPlanPerNight == InitialNightlyRate exactly.
type MealPlanSplit struct {
	Nights                  int             `json:"nights"`
	PlanName                string          `json:"planName,omitempty"`
	HasMealPlan             bool            `json:"hasMealPlan"`
	InitialNightlyRate      decimal.Decimal `json:"initialNightlyRate"`
	BillingRoomRatePerNight decimal.Decimal `json:"billingRoomRatePerNight"`
	MealPlanPerNight        decimal.Decimal `json:"mealPlanPerNight"`
	TotalRoomCharges        decimal.Decimal `json:"totalRoomCharges"`
	TotalMealPlanCharges    decimal.Decimal `json:"totalMealPlanCharges"`
}

// AllocateMealPlan splits initialNightlyRate for the given number of nights.
// A nil plan leaves the whole rate as room revenue.
func AllocateMealPlan(initialNightlyRate decimal.Decimal, plan *MealPlanAllocation, nights int) (MealPlanSplit, error) {
	if nights < 1 {
		return MealPlanSplit{}, fmt.Errorf("%w: %d nights", ErrNonPositiveQuantity, nights)
	}
	if initialNightlyRate.IsNegative() {
		return MealPlanSplit{}, fmt.Errorf("%w: negative nightly rate", ErrInvalidRate)
	}
	split := MealPlanSplit{
		Nights:             nights,
		InitialNightlyRate: initialNightlyRate,
		MealPlanPerNight:   decimal.Zero,
	}
	if plan != nil {
		if plan.OccupantCount < 1 {
			return MealPlanSplit{}, fmt.Errorf("%w: occupant count %d", ErrInvalidMealPlan, plan.OccupantCount)
		}
		if plan.PricePerPersonPerNight.IsNegative() {
			return MealPlanSplit{}, fmt.Errorf("%w: negative price per person", ErrInvalidMealPlan)
		}
		split.HasMealPlan = true
		split.PlanName = plan.PlanName
		split.MealPlanPerNight = plan.TotalPerNight()
	}
	split.BillingRoomRatePerNight = initialNightlyRate.Sub(split.MealPlanPerNight)
	if split.BillingRoomRatePerNight.IsNegative() {
		return MealPlanSplit{}, fmt.Errorf("%w: meal plan %s per night against rate %s",
			ErrMealPlanExceedsRoomRate, split.MealPlanPerNight, initialNightlyRate)
	}
	n := decimal.NewFromInt(int64(nights))
	split.TotalRoomCharges = split.BillingRoomRatePerNight.Mul(n)
	split.TotalMealPlanCharges = split.MealPlanPerNight.Mul(n)
	return split, nil
}
