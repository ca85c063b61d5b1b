package shopping

import (
	"slices"
	"strings"

	"performance-meal-planner/internal/ingredient"
)

// Confidence is how reliably an item maps to a purchasable product.
type Confidence string

const (
	Exact       Confidence = "exact"
	Approximate Confidence = "approximate"
	BestEffort  Confidence = "best-effort"
)

// CatalogEntry is a purchasable product keyed by canonical ingredient.
type CatalogEntry struct {
	Key         string
	ItemName    string
	Price       *float64
	SKU         string
	Substitutes []string
}

// Catalog resolves canonical ingredients to store products.
type Catalog interface {
	Lookup(canonical string) (CatalogEntry, Confidence)
}

// StaticCatalog is an in-memory catalog. A key equal to the canonical name
// is an exact match. A key sharing the name's head noun whose words appear
// in the name, or the reverse, is approximate, and longer keys win among
// approximate matches.
type StaticCatalog struct {
	entries map[string]CatalogEntry
	keys    []string
}

// NewStaticCatalog indexes entries by key.
func NewStaticCatalog(entries []CatalogEntry) *StaticCatalog {
	c := &StaticCatalog{entries: make(map[string]CatalogEntry, len(entries))}
	for _, e := range entries {
		c.entries[e.Key] = e
		c.keys = append(c.keys, e.Key)
	}
	// Longest first, then alphabetical, so approximate lookups are stable.
	slices.SortFunc(c.keys, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	return c
}

func (c *StaticCatalog) Lookup(canonical string) (CatalogEntry, Confidence) {
	if e, ok := c.entries[canonical]; ok {
		return e, Exact
	}
	head := ingredient.Head(canonical)
	noun := ingredient.HeadNoun(canonical)
	words := strings.Fields(head)
	for _, k := range c.keys {
		kw := strings.Fields(k)
		// The product must name the same thing: "oat milk" is not milk and
		// "rice cake" is not rice.
		if kw[len(kw)-1] != noun {
			continue
		}
		if containsRun(kw, words) {
			return c.entries[k], Approximate
		}
		if containsRun(words, kw) && !otherProductModifier(words, kw) {
			return c.entries[k], Approximate
		}
	}
	return CatalogEntry{}, BestEffort
}

// otherProductModifier reports whether a word of name outside key is itself
// a grocery item, which makes name a different product.
func otherProductModifier(name, key []string) bool {
	for _, w := range name {
		if slices.Contains(key, w) {
			continue
		}
		if _, ok := categories[w]; ok {
			return true
		}
	}
	return false
}

func containsRun(hay, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(hay) {
		return false
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func price(v float64) *float64 { return &v }

// DefaultCatalog is the built-in product list used when no store
// integration is configured.
func DefaultCatalog() *StaticCatalog {
	return NewStaticCatalog([]CatalogEntry{
		{Key: "chicken breast", ItemName: "Boneless Skinless Chicken Breast", Price: price(6.99), SKU: "FM-10021", Substitutes: []string{"chicken thigh", "turkey breast"}},
		{Key: "chicken thigh", ItemName: "Boneless Chicken Thighs", Price: price(5.49), SKU: "FM-10022"},
		{Key: "turkey breast", ItemName: "Sliced Turkey Breast", Price: price(5.99), SKU: "FM-10031", Substitutes: []string{"chicken breast"}},
		{Key: "turkey mince", ItemName: "93% Lean Ground Turkey", Price: price(5.79), SKU: "FM-10032", Substitutes: []string{"lean beef mince"}},
		{Key: "salmon fillet", ItemName: "Atlantic Salmon Fillet", Price: price(10.99), SKU: "FM-10041", Substitutes: []string{"trout fillet", "cod fillet"}},
		{Key: "tofu", ItemName: "Extra Firm Tofu", Price: price(2.49), SKU: "FM-10051", Substitutes: []string{"tempeh"}},
		{Key: "egg", ItemName: "Large Eggs, 12 ct", Price: price(3.99), SKU: "FM-10061"},
		{Key: "greek yogurt", ItemName: "Plain Greek Yogurt 32 oz", Price: price(5.49), SKU: "FM-20011", Substitutes: []string{"skyr"}},
		{Key: "cottage cheese", ItemName: "Low Fat Cottage Cheese", Price: price(3.29), SKU: "FM-20012"},
		{Key: "milk", ItemName: "2% Milk, Half Gallon", Price: price(2.99), SKU: "FM-20021", Substitutes: []string{"oat milk", "soy milk"}},
		{Key: "oat", ItemName: "Old Fashioned Rolled Oats", Price: price(3.49), SKU: "FM-30011"},
		{Key: "rice", ItemName: "Long Grain White Rice 2 lb", Price: price(2.79), SKU: "FM-30021", Substitutes: []string{"jasmine rice", "basmati rice"}},
		{Key: "quinoa", ItemName: "Organic Quinoa", Price: price(4.99), SKU: "FM-30031", Substitutes: []string{"couscous"}},
		{Key: "pasta", ItemName: "Penne Pasta 16 oz", Price: price(1.49), SKU: "FM-30041"},
		{Key: "sourdough bread", ItemName: "Sourdough Loaf", Price: price(4.29), SKU: "FM-30051", Substitutes: []string{"whole wheat bread"}},
		{Key: "tortilla", ItemName: "Flour Tortillas, 10 ct", Price: price(2.99), SKU: "FM-30061"},
		{Key: "rice noodle", ItemName: "Rice Stick Noodles", Price: price(2.49), SKU: "FM-30071"},
		{Key: "lentil", ItemName: "Dry Green Lentils", Price: price(1.99), SKU: "FM-30081"},
		{Key: "banana", ItemName: "Bananas", Price: price(0.25), SKU: "FM-40011"},
		{Key: "spinach", ItemName: "Baby Spinach 5 oz", Price: price(3.49), SKU: "FM-40021", Substitutes: []string{"kale"}},
		{Key: "broccoli", ItemName: "Broccoli Crowns", Price: price(2.29), SKU: "FM-40031"},
		{Key: "mixed berry", ItemName: "Frozen Mixed Berries", Price: price(4.99), SKU: "FM-40041"},
		{Key: "lemon", ItemName: "Lemons", Price: price(0.69), SKU: "FM-40051"},
		{Key: "carrot", ItemName: "Carrots 2 lb", Price: price(1.79), SKU: "FM-40061"},
		{Key: "garlic", ItemName: "Garlic Bulb", Price: price(0.59), SKU: "FM-40071"},
		{Key: "olive oil", ItemName: "Extra Virgin Olive Oil 500 ml", Price: price(8.99), SKU: "FM-50011", Substitutes: []string{"avocado oil"}},
		{Key: "honey", ItemName: "Clover Honey", Price: price(5.49), SKU: "FM-50021", Substitutes: []string{"maple syrup"}},
		{Key: "soy sauce", ItemName: "Low Sodium Soy Sauce", Price: price(2.99), SKU: "FM-50031"},
		{Key: "tomato passata", ItemName: "Tomato Passata", Price: price(2.49), SKU: "FM-50041", Substitutes: []string{"crushed tomato"}},
		{Key: "hummus", ItemName: "Classic Hummus", Price: price(3.99), SKU: "FM-50051"},
	})
}

// categories maps canonical names, or a single word inside them, to a
// grocery aisle.
var categories = map[string]string{
	"chicken": "protein", "turkey": "protein", "beef": "protein", "pork": "protein",
	"salmon": "protein", "tuna": "protein", "cod": "protein", "trout": "protein",
	"shrimp": "protein", "tofu": "protein", "tempeh": "protein", "egg": "protein",
	"lentil": "protein", "chickpea": "protein", "bean": "protein", "whey": "protein",

	"milk": "dairy", "yogurt": "dairy", "greek yogurt": "dairy", "cheese": "dairy",
	"cottage cheese": "dairy", "butter": "dairy", "skyr": "dairy", "kefir": "dairy",

	"oat": "grains", "rice": "grains", "quinoa": "grains", "pasta": "grains",
	"bread": "grains", "sourdough bread": "grains", "tortilla": "grains", "noodle": "grains",
	"rice noodle": "grains", "couscous": "grains", "bagel": "grains", "granola": "grains",
	"rice cake": "grains", "flour": "grains", "potato": "produce", "sweet potato": "produce",

	"banana": "produce", "berry": "produce", "mixed berry": "produce", "apple": "produce",
	"spinach": "produce", "broccoli": "produce", "lemon": "produce", "lime": "produce",
	"carrot": "produce", "garlic": "produce", "onion": "produce", "tomato": "produce",
	"lettuce": "produce", "avocado": "produce", "bell pepper": "produce", "zucchini": "produce",
	"cucumber": "produce", "kale": "produce", "pineapple": "produce", "vegetable": "produce",
	"mixed vegetable": "produce", "mushroom": "produce", "orange": "produce",

	"olive oil": "pantry", "oil": "pantry", "honey": "pantry", "maple syrup": "pantry",
	"soy sauce": "pantry", "tomato passata": "pantry", "hummus": "pantry", "peanut butter": "pantry",
	"stock": "pantry", "vinegar": "pantry", "sugar": "pantry", "nut": "pantry", "almond": "pantry",

	"salt": "spices", "pepper": "spices", "black pepper": "spices", "cumin": "spices",
	"paprika": "spices", "cinnamon": "spices", "oregano": "spices", "chili flake": "spices",
	"turmeric": "spices", "spice": "spices", "herb": "spices",
}

// stapleCategories receive the purchase buffer.
var stapleCategories = map[string]bool{"grains": true, "pantry": true, "spices": true}

// Category returns the grocery aisle for a canonical ingredient. The full
// name is tried first, then the head phrase before any "in"/"with" clause.
// A protein word in the head wins; otherwise trailing word pairs and words
// are tried from the end. Unknown names are "other".
func Category(canonical string) string {
	if c, ok := categories[canonical]; ok {
		return c
	}
	head := ingredient.Head(canonical)
	if c, ok := categories[head]; ok {
		return c
	}
	words := strings.Fields(head)
	for _, w := range words {
		if categories[w] == "protein" {
			return "protein"
		}
	}
	for i := len(words) - 1; i >= 0; i-- {
		if i > 0 {
			if c, ok := categories[words[i-1]+" "+words[i]]; ok {
				return c
			}
		}
		if c, ok := categories[words[i]]; ok {
			return c
		}
	}
	return "other"
}

// IsStaple reports whether a category is buffered.
func IsStaple(category string) bool {
	return stapleCategories[category]
}
