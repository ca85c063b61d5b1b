package planner

import "performance-meal-planner/internal/nutrition"

// PlanStatus represents the lifecycle state of a meal plan.
type PlanStatus string

const (
	StatusDraft PlanStatus = "DRAFT"
	StatusFinal PlanStatus = "FINAL"
)

// Modification is one change proposed by the analysis stage.
type Modification struct {
	ID            string `json:"modification_id"`
	MealID        string `json:"meal_id"`
	ProposedValue string `json:"proposed_value"`
	Confidence    string `json:"confidence"`
}

// MealPlan is the weekly plan record: targets plus the 28 meal ids.
type MealPlan struct {
	WeekStart     string                  `json:"week_start"`
	WeekTier      nutrition.WeekTier      `json:"week_tier"`
	Status        PlanStatus              `json:"status"`
	Targets       []nutrition.MacroTarget `json:"targets"`
	Summary       nutrition.WeeklySummary `json:"summary"`
	Slots         []MealSlot              `json:"slots"`
	Modifications []Modification          `json:"modifications"`
}

// NewMealPlan bundles computed targets with their skeleton as a draft.
func NewMealPlan(weekStart string, t *nutrition.Targets, slots []MealSlot) *MealPlan {
	return &MealPlan{
		WeekStart:     weekStart,
		WeekTier:      t.Tier,
		Status:        StatusDraft,
		Targets:       t.Days,
		Summary:       t.Summary(),
		Slots:         slots,
		Modifications: []Modification{},
	}
}

// MealIDs returns the slot ids in order.
func (p *MealPlan) MealIDs() []string {
	ids := make([]string, len(p.Slots))
	for i, s := range p.Slots {
		ids[i] = s.ID
	}
	return ids
}

// Slot looks up a slot by id.
func (p *MealPlan) Slot(id string) (MealSlot, bool) {
	for _, s := range p.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return MealSlot{}, false
}
