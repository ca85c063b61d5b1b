package ingredient

import (
	"fmt"
	"strings"
)

// Unit is one of the three base grocery units.
type Unit string

const (
	Gram       Unit = "g"
	Millilitre Unit = "ml"
	Count      Unit = "count"
)

// unitFactors maps a raw unit to its base unit and the multiplier into it.
var unitFactors = map[string]struct {
	base   Unit
	factor float64
}{
	"g": {Gram, 1}, "gram": {Gram, 1}, "grams": {Gram, 1}, "gr": {Gram, 1},
	"kg": {Gram, 1000}, "kilogram": {Gram, 1000}, "kilograms": {Gram, 1000},
	"mg": {Gram, 0.001},
	"oz": {Gram, 28.35}, "ounce": {Gram, 28.35}, "ounces": {Gram, 28.35},
	"lb": {Gram, 453.6}, "lbs": {Gram, 453.6}, "pound": {Gram, 453.6}, "pounds": {Gram, 453.6},

	"ml": {Millilitre, 1}, "milliliter": {Millilitre, 1}, "milliliters": {Millilitre, 1},
	"millilitre": {Millilitre, 1}, "millilitres": {Millilitre, 1},
	"l": {Millilitre, 1000}, "liter": {Millilitre, 1000}, "liters": {Millilitre, 1000},
	"litre": {Millilitre, 1000}, "litres": {Millilitre, 1000},
	"tbsp": {Millilitre, 15}, "tablespoon": {Millilitre, 15}, "tablespoons": {Millilitre, 15},
	"tsp": {Millilitre, 5}, "teaspoon": {Millilitre, 5}, "teaspoons": {Millilitre, 5},
	"cup": {Millilitre, 240}, "cups": {Millilitre, 240},
	"fl oz": {Millilitre, 29.57},

	"": {Count, 1}, "count": {Count, 1}, "whole": {Count, 1}, "each": {Count, 1},
	"piece": {Count, 1}, "pieces": {Count, 1}, "pc": {Count, 1}, "pcs": {Count, 1},
	"clove": {Count, 1}, "cloves": {Count, 1}, "slice": {Count, 1}, "slices": {Count, 1},
	"serving": {Count, 1}, "servings": {Count, 1}, "can": {Count, 1}, "cans": {Count, 1},
	"fillet": {Count, 1}, "fillets": {Count, 1}, "bunch": {Count, 1}, "handful": {Count, 1},
	"scoop": {Count, 1}, "scoops": {Count, 1},
}

// Quantity is an amount expressed in a base unit.
type Quantity struct {
	Amount float64
	Unit   Unit
}

// Normalize converts an amount in a raw unit into its base unit. known is
// false for unrecognized units, which are counted as pieces.
func Normalize(amount float64, unit string) (q Quantity, known bool) {
	u := strings.Join(strings.Fields(strings.ToLower(strings.TrimSuffix(strings.TrimSpace(unit), "."))), " ")
	f, ok := unitFactors[u]
	if !ok {
		return Quantity{Amount: amount, Unit: Count}, false
	}
	return Quantity{Amount: amount * f.factor, Unit: f.base}, true
}

// Approximate conversions used when one ingredient shows up in two
// dimensions.
var (
	densityGramsPerML = map[string]float64{
		"olive oil": 0.91, "oil": 0.92, "honey": 1.42, "milk": 1.03, "yogurt": 1.03,
		"greek yogurt": 1.05, "oat": 0.41, "rice": 0.85, "flour": 0.53, "sugar": 0.85,
		"maple syrup": 1.32, "butter": 0.96, "peanut butter": 1.08, "quinoa": 0.72,
		"granola": 0.45, "cottage cheese": 0.96, "soy sauce": 1.2, "water": 1,
	}
	gramsPerPiece = map[string]float64{
		"egg": 50, "banana": 120, "apple": 180, "avocado": 150, "onion": 110,
		"garlic": 5, "garlic clove": 5, "tomato": 120, "sweet potato": 200, "potato": 170,
		"lemon": 100, "lime": 65, "bread": 35, "sourdough bread": 45, "tortilla": 45,
		"chicken breast": 170, "salmon fillet": 150, "salmon": 150, "bell pepper": 160,
		"carrot": 60, "zucchini": 200, "cucumber": 300, "orange": 130, "bagel": 100,
	}
)

const (
	defaultDensity       = 1.0
	defaultGramsPerPiece = 100.0
)

// Convert moves q into the target base unit for the given canonical
// ingredient. exact is false when an approximate per-item or default factor
// was used.
func Convert(q Quantity, to Unit, canonical string) (out Quantity, exact bool, note string) {
	if q.Unit == to {
		return q, true, ""
	}
	grams, how := toGrams(q, canonical)
	switch to {
	case Gram:
		return Quantity{grams, Gram}, false, how
	case Millilitre:
		d, ok := densityGramsPerML[canonical]
		if !ok {
			d = defaultDensity
		}
		return Quantity{grams / d, Millilitre}, false, fmt.Sprintf("%s; %.2f g/ml", how, d)
	default:
		per, ok := gramsPerPiece[canonical]
		if !ok {
			per = defaultGramsPerPiece
		}
		return Quantity{grams / per, Count}, false, fmt.Sprintf("%s; %.0f g per piece", how, per)
	}
}

func toGrams(q Quantity, canonical string) (float64, string) {
	switch q.Unit {
	case Gram:
		return q.Amount, "mass"
	case Millilitre:
		d, ok := densityGramsPerML[canonical]
		if !ok {
			d = defaultDensity
		}
		return q.Amount * d, fmt.Sprintf("volume at %.2f g/ml", d)
	default:
		per, ok := gramsPerPiece[canonical]
		if !ok {
			per = defaultGramsPerPiece
		}
		return q.Amount * per, fmt.Sprintf("pieces at %.0f g", per)
	}
}
