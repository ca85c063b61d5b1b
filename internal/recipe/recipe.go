package recipe

import (
	"net/url"
	"strings"

	"performance-meal-planner/internal/inputs"
	"performance-meal-planner/internal/nutrition"
	"performance-meal-planner/internal/planner"
)

// FallbackMarker replaces the link of recipes described inline.
const FallbackMarker = "simple_build"

// MultiMealID marks an item shared by several meals.
const MultiMealID = "MULTI"

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Macros is a recipe's macro estimate.
type Macros struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// Recipe fills one meal slot.
type Recipe struct {
	MealID           string            `json:"meal_id"`
	Date             string            `json:"date"`
	Slot             planner.Slot      `json:"slot"`
	DayType          nutrition.DayType `json:"day_type"`
	Name             string            `json:"name"`
	Link             string            `json:"link"`
	Ingredients      []Ingredient      `json:"ingredients"`
	Macros           Macros            `json:"macros"`
	BatchCook        bool              `json:"batch_cook"`
	CookTimeMin      int               `json:"cook_time_min,omitempty"`
	SubstitutionNote string            `json:"substitution_note,omitempty"`
	Fallback         bool              `json:"fallback"`
	FallbackReason   string            `json:"fallback_reason,omitempty"`
	LinkError        string            `json:"link_error,omitempty"`
}

// UsesMarker reports whether the recipe carries the fallback marker
// instead of a link.
func (r Recipe) UsesMarker() bool {
	return r.Link == FallbackMarker
}

// Constraints are the dietary limits passed to the recipe service.
type Constraints struct {
	AvoidList          []string
	Allergies          []string
	DietaryPreferences []string
	CookingTimeMaxMin  int
	BudgetLevel        string
}

// Default constraint values used when the profile leaves them out.
const (
	DefaultCookingTimeMin = 45
	DefaultBudgetLevel    = "medium"
)

// ConstraintsFromProfile copies the profile's dietary fields, applying
// defaults for absent optional values.
func ConstraintsFromProfile(p inputs.UserProfile) Constraints {
	c := Constraints{
		AvoidList:          p.AvoidList,
		Allergies:          p.Allergies,
		DietaryPreferences: p.DietaryPreferences,
		CookingTimeMaxMin:  DefaultCookingTimeMin,
		BudgetLevel:        DefaultBudgetLevel,
	}
	if p.CookingTimeMaxMin != nil {
		c.CookingTimeMaxMin = *p.CookingTimeMaxMin
	}
	if p.BudgetLevel != nil {
		c.BudgetLevel = *p.BudgetLevel
	}
	return c
}

// Restricted returns avoid and allergy terms together.
func (c Constraints) Restricted() []string {
	out := make([]string, 0, len(c.AvoidList)+len(c.Allergies))
	out = append(out, c.AvoidList...)
	out = append(out, c.Allergies...)
	return out
}

var placeholderHosts = map[string]bool{
	"example.com": true, "www.example.com": true, "example.org": true,
	"example.net": true, "localhost": true, "url": true, "link": true,
}

// LooksLikeURL reports whether s is an absolute http(s) URL with a dotted
// host that is not a known placeholder.
func LooksLikeURL(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if !strings.Contains(host, ".") || placeholderHosts[host] {
		return false
	}
	return true
}

// MarkBatchCook flags dinners whose name repeats on another day.
func MarkBatchCook(recipes []Recipe) {
	counts := make(map[string]int)
	for _, r := range recipes {
		if r.Slot == planner.SlotDinner {
			counts[strings.ToLower(r.Name)]++
		}
	}
	for i := range recipes {
		if recipes[i].Slot == planner.SlotDinner && counts[strings.ToLower(recipes[i].Name)] > 1 {
			recipes[i].BatchCook = true
		}
	}
}
