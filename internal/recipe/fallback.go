package recipe

import (
	"performance-meal-planner/internal/ingredient"
	"performance-meal-planner/internal/planner"
)

type fallbackOption struct {
	name        string
	cookTime    int
	ingredients []Ingredient
}

var fallbackOptions = map[planner.Slot][]fallbackOption{
	planner.SlotBreakfast: {
		{"Oats with banana and Greek yogurt", 10, []Ingredient{
			{"rolled oats", 80, "g"}, {"banana", 1, "count"}, {"Greek yogurt", 150, "g"}, {"honey", 1, "tbsp"},
		}},
		{"Scrambled eggs on sourdough", 10, []Ingredient{
			{"eggs", 3, "count"}, {"sourdough bread", 2, "slice"}, {"olive oil", 1, "tsp"}, {"spinach", 40, "g"},
		}},
		{"Rice porridge with berries", 15, []Ingredient{
			{"rice", 70, "g"}, {"milk", 250, "ml"}, {"mixed berries", 100, "g"}, {"maple syrup", 1, "tbsp"},
		}},
	},
	planner.SlotLunch: {
		{"Chicken and quinoa bowl", 25, []Ingredient{
			{"chicken breast", 150, "g"}, {"quinoa", 75, "g"}, {"spinach", 50, "g"}, {"olive oil", 1, "tbsp"}, {"lemon", 0.5, "count"},
		}},
		{"Lentil and rice bowl", 30, []Ingredient{
			{"lentils", 80, "g"}, {"rice", 75, "g"}, {"carrots", 1, "count"}, {"olive oil", 1, "tbsp"},
		}},
		{"Turkey and hummus wrap", 10, []Ingredient{
			{"turkey breast", 120, "g"}, {"tortillas", 2, "count"}, {"hummus", 40, "g"}, {"lettuce", 50, "g"},
		}},
	},
	planner.SlotDinner: {
		{"Baked salmon with rice and broccoli", 30, []Ingredient{
			{"salmon fillet", 150, "g"}, {"rice", 90, "g"}, {"broccoli", 120, "g"}, {"olive oil", 1, "tbsp"},
		}},
		{"Turkey pasta with tomato sauce", 30, []Ingredient{
			{"turkey mince", 150, "g"}, {"pasta", 100, "g"}, {"tomato passata", 200, "ml"}, {"garlic", 2, "clove"},
		}},
		{"Tofu stir-fry with noodles", 25, []Ingredient{
			{"tofu", 200, "g"}, {"rice noodles", 90, "g"}, {"mixed vegetables", 150, "g"}, {"soy sauce", 1, "tbsp"},
		}},
	},
	planner.SlotSnack: {
		{"Greek yogurt with berries", 2, []Ingredient{
			{"Greek yogurt", 200, "g"}, {"mixed berries", 80, "g"},
		}},
		{"Cottage cheese with pineapple", 2, []Ingredient{
			{"cottage cheese", 150, "g"}, {"pineapple", 80, "g"},
		}},
		{"Rice cakes with banana", 2, []Ingredient{
			{"rice cakes", 3, "count"}, {"banana", 1, "count"},
		}},
	},
}

const genericFallbackName = "Simple balanced plate"

// Fallback builds the deterministic placeholder for one slot. It never
// names or lists a restricted term.
func Fallback(slot planner.MealSlot, restricted []string, reason string) Recipe {
	r := Recipe{
		MealID:         slot.ID,
		Date:           slot.Date,
		Slot:           slot.Slot,
		DayType:        slot.DayType,
		Name:           genericFallbackName,
		Link:           FallbackMarker,
		Ingredients:    []Ingredient{},
		Fallback:       true,
		FallbackReason: reason,
		Macros: Macros{
			Kcal:     slot.Target.Kcal,
			ProteinG: slot.Target.ProteinG,
			CarbsG:   slot.Target.CarbsG,
			FatG:     slot.Target.FatG,
		},
		SubstitutionNote: "Fallback recipe: " + reason,
	}

	opts := fallbackOptions[slot.Slot]
	start := max(slot.DayIndex-1, 0)
	for i := range opts {
		opt := opts[(start+i)%len(opts)]
		if mentionsAny(opt.name, restricted) {
			continue
		}
		r.Name = opt.name
		r.CookTimeMin = opt.cookTime
		for _, ing := range opt.ingredients {
			if !mentionsAny(ing.Name, restricted) {
				r.Ingredients = append(r.Ingredients, ing)
			}
		}
		break
	}
	return r
}

func mentionsAny(text string, terms []string) bool {
	for _, t := range terms {
		if ingredient.Mentions(text, t) {
			return true
		}
	}
	return false
}
