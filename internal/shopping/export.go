package shopping

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
)

// CSVHeader is the column order of grocery_list.csv.
var CSVHeader = []string{
	"meal_id", "ingredient_id", "category", "item_name",
	"quantity", "unit", "store", "price", "sku",
	"match_confidence", "substitute_1", "substitute_2",
}

// WriteCSV writes one row per item under CSVHeader.
func WriteCSV(w io.Writer, items []GroceryItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, it := range items {
		subs := [2]string{}
		copy(subs[:], it.Substitutes)
		row := []string{
			it.MealID(), it.CanonicalID, it.Category, it.ItemName,
			FormatQuantity(it.Quantity), string(it.Unit), it.Store, formatPrice(it.Price), it.SKU,
			string(it.MatchConfidence), subs[0], subs[1],
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", it.CanonicalID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// List is the JSON grocery artifact.
type List struct {
	WeekStart string        `json:"week_start"`
	Items     []GroceryItem `json:"items"`
}

// WriteJSON writes the list as indented JSON.
func WriteJSON(w io.Writer, weekStart string, items []GroceryItem) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(List{WeekStart: weekStart, Items: items}); err != nil {
		return fmt.Errorf("failed to encode grocery list: %w", err)
	}
	return nil
}

// FormatQuantity rounds to one decimal and drops a trailing ".0".
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(math.Round(q*10)/10, 'f', -1, 64)
}

func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *p)
}

// Categories returns the distinct categories in sort order.
func Categories(items []GroceryItem) []string {
	var out []string
	for _, it := range items {
		if !slices.Contains(out, it.Category) {
			out = append(out, it.Category)
		}
	}
	slices.Sort(out)
	return out
}

// NotesMarkdown renders grocery_notes.md: budget estimate, flagged matches
// and shared items.
func NotesMarkdown(items []GroceryItem) string {
	store := DefaultStore
	if len(items) > 0 && items[0].Store != "" {
		store = items[0].Store
	}
	var approx, none, multi []string
	var known float64
	var priced int
	for _, it := range items {
		switch it.MatchConfidence {
		case Approximate:
			approx = append(approx, it.ItemName)
		case BestEffort:
			none = append(none, it.ItemName)
		}
		if len(it.MealIDs) > 1 {
			multi = append(multi, it.ItemName)
		}
		if it.Price != nil {
			known += *it.Price
			priced++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Grocery Notes\n\n## Store: %s\n", store)
	fmt.Fprintf(&b, "## Budget Estimate: $%.0f-$%.0f (approximate; %d line items, %d priced)\n\n",
		float64(len(items))*2.5, float64(len(items))*5.0, len(items), priced)
	if priced > 0 {
		fmt.Fprintf(&b, "Catalog prices total $%.2f for priced items.\n\n", known)
	}
	writeList(&b, "Items Flagged as Approximate", approx)
	writeList(&b, "Items With No Match (Needs Manual Lookup)", none)
	b.WriteString("## Shared Across Meals\n")
	if len(multi) == 0 {
		b.WriteString("- No ingredient is shared across meals this week\n")
	} else {
		fmt.Fprintf(&b, "- %d ingredients aggregated across multiple meals (meal_id=MULTI in CSV)\n", len(multi))
		for _, n := range multi {
			fmt.Fprintf(&b, "  - %s\n", n)
		}
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, names []string) {
	fmt.Fprintf(b, "## %s\n", title)
	if len(names) == 0 {
		b.WriteString("- None\n\n")
		return
	}
	slices.Sort(names)
	for _, n := range slices.Compact(names) {
		fmt.Fprintf(b, "- %s\n", n)
	}
	b.WriteString("\n")
}
