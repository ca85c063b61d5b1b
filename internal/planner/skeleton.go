// Package planner builds the weekly meal-slot skeleton and the meal plan
// record that every later stage covers.
package planner

import (
	"fmt"
	"math"

	"performance-meal-planner/internal/nutrition"
	"performance-meal-planner/internal/shared"
)

// Slot is one of the four daily meal slots.
type Slot string

const (
	SlotBreakfast Slot = "breakfast"
	SlotLunch     Slot = "lunch"
	SlotDinner    Slot = "dinner"
	SlotSnack     Slot = "snack"
)

// Slots lists the daily slots in serving order.
var Slots = []Slot{SlotBreakfast, SlotLunch, SlotDinner, SlotSnack}

// SlotsPerWeek is the number of meal slots in a full week.
const SlotsPerWeek = 7 * 4

// Title returns the slot name with an upper-case first letter.
func (s Slot) Title() string {
	return shared.UpperFirst(string(s))
}

// SlotTarget is the per-slot share of a day's macro target.
type SlotTarget struct {
	Fraction float64 `json:"fraction"`
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// MealSlot is one meal of the week.
type MealSlot struct {
	ID       string            `json:"meal_id"`
	DayIndex int               `json:"day_index"`
	Slot     Slot              `json:"slot"`
	Date     string            `json:"date"`
	DayType  nutrition.DayType `json:"day_type"`
	Target   SlotTarget        `json:"target"`
	Guidance string            `json:"guidance"`
}

// SlotID formats the identifier of a slot, e.g. "D3_Dinner".
func SlotID(dayIndex int, s Slot) string {
	return fmt.Sprintf("D%d_%s", dayIndex, s.Title())
}

// slotFractions is the share of daily energy per slot by day type.
var slotFractions = map[nutrition.DayType]map[Slot]float64{
	nutrition.DayHigh:     {SlotBreakfast: 0.22, SlotLunch: 0.28, SlotDinner: 0.32, SlotSnack: 0.18},
	nutrition.DayTraining: {SlotBreakfast: 0.25, SlotLunch: 0.30, SlotDinner: 0.32, SlotSnack: 0.13},
	nutrition.DayRest:     {SlotBreakfast: 0.25, SlotLunch: 0.30, SlotDinner: 0.33, SlotSnack: 0.12},
}

// SlotFraction returns the energy share of a slot on a given day type.
func SlotFraction(dt nutrition.DayType, s Slot) float64 {
	return slotFractions[dt][s]
}

var guidance = map[nutrition.DayType]map[Slot]string{
	nutrition.DayTraining: {
		SlotBreakfast: "Moderate carbs (50-70g), protein anchor 35-45g, easy prep. For example a Greek yogurt bowl or egg-based dish.",
		SlotLunch:     "Balanced and carb-forward, protein anchor 45-55g. For example a grain bowl or sandwich.",
		SlotDinner:    "Higher protein (50-60g), moderate carbs, batch-cook friendly. For example salmon or chicken with rice and veg.",
		SlotSnack:     "Protein-anchored (15g or more), light carbs. For example apple with nut butter or cottage cheese.",
	},
	nutrition.DayHigh: {
		SlotBreakfast: "High-carb (80-110g), easy prep, pre-training fuel. For example oats with banana and protein.",
		SlotLunch:     "Carb-forward post-training (100-120g carbs), protein anchor 40-50g. For example a turkey rice bowl.",
		SlotDinner:    "High protein (55-65g), high carbs (100-120g), recovery-focused. For example salmon pasta or chicken stir-fry with rice.",
		SlotSnack:     "Rapid carbs plus protein (20g protein, 30g carbs or more). For example yogurt with granola and berries.",
	},
	nutrition.DayRest: {
		SlotBreakfast: "Protein-forward (40-50g), lower carbs (under 30g), higher fat. For example an egg white scramble with avocado.",
		SlotLunch:     "Protein anchor (50-55g), moderate carbs (40-50g). For example chicken salad with quinoa.",
		SlotDinner:    "Early dinner, moderate protein (45-50g), lower carbs. For example miso tofu rice or chicken with veg.",
		SlotSnack:     "Protein-focused (20g or more), minimal carbs. For example cottage cheese with berries.",
	},
}

// Guidance returns the meal structure hint for a slot.
func Guidance(dt nutrition.DayType, s Slot) string {
	return guidance[dt][s]
}

// BuildSkeleton emits four slots for each day target, in day then slot
// order. Day indexes start at 1.
func BuildSkeleton(targets []nutrition.MacroTarget) []MealSlot {
	slots := make([]MealSlot, 0, len(targets)*len(Slots))
	for i, day := range targets {
		for _, s := range Slots {
			frac := SlotFraction(day.DayType, s)
			slots = append(slots, MealSlot{
				ID:       SlotID(i+1, s),
				DayIndex: i + 1,
				Slot:     s,
				Date:     day.Date,
				DayType:  day.DayType,
				Target: SlotTarget{
					Fraction: frac,
					Kcal:     math.Round(day.Kcal * frac),
					ProteinG: round1(day.ProteinG * frac),
					CarbsG:   round1(day.CarbsG * frac),
					FatG:     round1(day.FatG * frac),
				},
				Guidance: Guidance(day.DayType, s),
			})
		}
	}
	return slots
}

// CheckSkeleton reports an error unless slots holds exactly 28 distinct ids.
func CheckSkeleton(slots []MealSlot) error {
	if len(slots) != SlotsPerWeek {
		return fmt.Errorf("expected %d meal slots, got %d", SlotsPerWeek, len(slots))
	}
	seen := make(map[string]bool, len(slots))
	for _, s := range slots {
		if seen[s.ID] {
			return fmt.Errorf("duplicate meal slot %s", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
