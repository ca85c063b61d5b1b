// Package shopping rolls recipe ingredients into a deduplicated grocery list.
package shopping

import (
	"fmt"
	"slices"
	"strings"

	"performance-meal-planner/internal/ingredient"
	"performance-meal-planner/internal/recipe"
	"performance-meal-planner/internal/shared"
)

// DefaultBuffer is the extra fraction bought for staple categories.
const DefaultBuffer = 0.10

// DefaultStore names the store on exported rows.
const DefaultStore = "Fred Meyer"

// GroceryItem is one purchasable line, keyed by canonical ingredient.
type GroceryItem struct {
	CanonicalID     string          `json:"canonical_id"`
	Canonical       string          `json:"canonical_name"`
	Category        string          `json:"category"`
	ItemName        string          `json:"item_name"`
	Quantity        float64         `json:"quantity"`
	Unit            ingredient.Unit `json:"unit"`
	MatchConfidence Confidence      `json:"match_confidence"`
	Store           string          `json:"store"`
	Price           *float64        `json:"price,omitempty"`
	SKU             string          `json:"sku,omitempty"`
	Substitutes     []string        `json:"substitutes"`
	MealIDs         []string        `json:"meal_ids"`
	Buffered        bool            `json:"buffered"`
	Notes           []string        `json:"notes,omitempty"`
}

// MealID returns the single meal the item serves, or recipe.MultiMealID
// when it is shared.
func (g GroceryItem) MealID() string {
	if len(g.MealIDs) == 1 {
		return g.MealIDs[0]
	}
	return recipe.MultiMealID
}

// Options tune aggregation.
type Options struct {
	Buffer float64
	Store  string
}

type bucket struct {
	item  GroceryItem
	meals map[string]bool
}

// Aggregate merges every recipe ingredient into one GroceryItem per
// canonical identity. The first unit seen for an ingredient is the unit of
// its item; later contributions are converted into it. Items are sorted by
// category and item name.
func Aggregate(recipes []recipe.Recipe, cat Catalog, opts Options) []GroceryItem {
	if cat == nil {
		cat = DefaultCatalog()
	}
	if opts.Buffer < 0 {
		opts.Buffer = 0
	}
	if opts.Store == "" {
		opts.Store = DefaultStore
	}

	buckets := make(map[string]*bucket)
	var order []string

	for _, r := range recipes {
		for _, ing := range r.Ingredients {
			name := CanonicalName(ing.Name)
			amount := ing.Quantity
			var notes []string
			if amount <= 0 {
				notes = append(notes, fmt.Sprintf("non-positive quantity for %q treated as 1 %s", ing.Name, unitLabel(ing.Unit)))
				amount = 1
			}
			q, known := ingredient.Normalize(amount, ing.Unit)
			if !known {
				notes = append(notes, fmt.Sprintf("unit %q counted as pieces", ing.Unit))
			}

			b, ok := buckets[name]
			if !ok {
				b = &bucket{
					item: GroceryItem{
						CanonicalID: ingredient.ID(name),
						Canonical:   name,
						Category:    Category(name),
						Unit:        q.Unit,
						Store:       opts.Store,
					},
					meals: make(map[string]bool),
				}
				buckets[name] = b
				order = append(order, name)
			}
			if q.Unit != b.item.Unit {
				conv, exact, how := ingredient.Convert(q, b.item.Unit, name)
				if !exact {
					notes = append(notes, fmt.Sprintf("approximate conversion from %s (%s)", q.Unit, how))
				}
				q = conv
			}
			b.item.Quantity += q.Amount
			b.meals[r.MealID] = true
			b.item.Notes = appendUnique(b.item.Notes, notes...)
		}
	}

	items := make([]GroceryItem, 0, len(order))
	for _, name := range order {
		b := buckets[name]
		it := b.item
		if IsStaple(it.Category) && opts.Buffer > 0 {
			it.Quantity *= 1 + opts.Buffer
			it.Buffered = true
			it.Notes = append(it.Notes, fmt.Sprintf("includes %.0f%% staple buffer", opts.Buffer*100))
		}
		for id := range b.meals {
			it.MealIDs = append(it.MealIDs, id)
		}
		slices.Sort(it.MealIDs)
		match(&it, cat)
		items = append(items, it)
	}

	slices.SortFunc(items, func(a, b GroceryItem) int {
		if c := strings.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		return strings.Compare(a.ItemName, b.ItemName)
	})
	return items
}

func match(it *GroceryItem, cat Catalog) {
	entry, conf := cat.Lookup(it.Canonical)
	it.MatchConfidence = conf
	it.ItemName = entry.ItemName
	if conf == BestEffort || strings.TrimSpace(it.ItemName) == "" {
		it.ItemName = GenericName(it.Canonical)
	}
	if conf != BestEffort {
		it.Price = entry.Price
		it.SKU = entry.SKU
	}
	it.Substitutes = make([]string, 0, 2)
	for _, s := range entry.Substitutes {
		if len(it.Substitutes) == 2 {
			break
		}
		if s != it.Canonical {
			it.Substitutes = append(it.Substitutes, s)
		}
	}
}

// CanonicalName is ingredient.Canonical with a non-empty guarantee.
func CanonicalName(raw string) string {
	if c := ingredient.Canonical(raw); c != "" {
		return c
	}
	if s := strings.ToLower(strings.TrimSpace(raw)); s != "" {
		return s
	}
	return "unnamed item"
}

// GenericName capitalizes a canonical name for display.
func GenericName(canonical string) string {
	if canonical == "" {
		return "Unnamed item"
	}
	return shared.UpperFirst(canonical)
}

func unitLabel(u string) string {
	if strings.TrimSpace(u) == "" {
		return "count"
	}
	return u
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

// Reconcile returns every recipe ingredient that has no grocery item
// serving its meal.
func Reconcile(recipes []recipe.Recipe, items []GroceryItem) []string {
	byID := make(map[string]GroceryItem, len(items))
	for _, it := range items {
		byID[it.CanonicalID] = it
	}
	var missing []string
	for _, r := range recipes {
		for _, ing := range r.Ingredients {
			it, ok := byID[ingredient.ID(CanonicalName(ing.Name))]
			if !ok || !slices.Contains(it.MealIDs, r.MealID) || it.Quantity <= 0 {
				missing = append(missing, fmt.Sprintf("%s: %s", r.MealID, ing.Name))
			}
		}
	}
	return missing
}
