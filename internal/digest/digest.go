// Package digest composes the weekly markdown digest from the run's
// artifacts. A Document is composed once; Render fills the QA Summary from
// an already computed report.
package digest

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"performance-meal-planner/internal/history"
	"performance-meal-planner/internal/inputs"
	"performance-meal-planner/internal/nutrition"
	"performance-meal-planner/internal/planner"
	"performance-meal-planner/internal/recipe"
	"performance-meal-planner/internal/shared"
	"performance-meal-planner/internal/shopping"
)

// Section titles in their required order.
const (
	SectionTLDR      = "TL;DR"
	SectionTargets   = "This Week's Targets"
	SectionRationale = "Plan Rationale"
	SectionAnalyst   = "Data Analyst Notes"
	SectionMealPlan  = "Meal Plan"
	SectionGrocery   = "Grocery List"
	SectionNotes     = "Notes / Assumptions"
	SectionFeedback  = "Next Week Feedback Prompts"
	SectionQASummary = "QA Summary"
)

// RequiredSections is the fixed section order of every digest.
var RequiredSections = []string{
	SectionTLDR, SectionTargets, SectionRationale, SectionAnalyst, SectionMealPlan,
	SectionGrocery, SectionNotes, SectionFeedback, SectionQASummary,
}

// FeedbackQuestions close every digest.
var FeedbackQuestions = []string{
	"Any schedule changes or time constraints next week?",
	"Budget target or preferred price range?",
	"Meals you want repeated or avoided?",
	"Energy levels this week (1-5) — particularly on training days?",
}

// Section is one titled block of the digest.
type Section struct {
	Title string
	Body  string
}

// Document is the composed digest before the QA Summary is filled in.
type Document struct {
	Subject  string
	Theme    string
	Sections []Section
}

// Input collects everything the digest reports on.
type Input struct {
	Profile   inputs.UserProfile
	Week      inputs.WeeklyContext
	Targets   *nutrition.Targets
	Rationale []string
	Recipes   []recipe.Recipe
	Grocery   []shopping.GroceryItem
	Analysis  history.Analysis
	// Defaults lists every labeled default and fallback applied in the run.
	Defaults []string
}

// Summarizer supplies the QA Summary lines.
type Summarizer interface {
	SummaryLines() []string
}

// Compose builds the Document. It does not fail; missing inputs produce
// placeholder text in the affected section.
func Compose(in Input) Document {
	theme := Theme(in.Targets, len(in.Analysis.Modifications) > 0)
	doc := Document{
		Subject: Subject(in.Week.WeekStart, theme),
		Theme:   theme,
	}
	doc.Sections = []Section{
		{SectionTLDR, tldr(in)},
		{SectionTargets, targetsTable(in.Targets)},
		{SectionRationale, bullets(in.Rationale, "No rationale recorded.")},
		{SectionAnalyst, in.Analysis.Notes()},
		{SectionMealPlan, mealPlan(in.Recipes)},
		{SectionGrocery, groceryList(in.Grocery)},
		{SectionNotes, notesAssumptions(in.Defaults, in.Analysis.Modifications)},
		{SectionFeedback, bullets(FeedbackQuestions, "")},
		{SectionQASummary, ""},
	}
	return doc
}

// Subject labels the digest with the ISO week of weekStart and the theme.
func Subject(weekStart, theme string) string {
	label := "W??"
	if t, err := time.Parse(inputs.DateLayout, weekStart); err == nil {
		_, w := t.ISOWeek()
		label = fmt.Sprintf("W%02d", w)
	}
	return fmt.Sprintf("Week %s — %s", label, theme)
}

// Theme names the week from its day mix.
func Theme(t *nutrition.Targets, revised bool) string {
	switch {
	case revised:
		return "Higher-carb support for load"
	case t == nil:
		return "Supportive load balance"
	case t.Counts.High >= 2:
		return "Peak load week"
	case t.Counts.Rest >= 3:
		return "Recovery focus week"
	default:
		return "Supportive load balance"
	}
}

// Section returns the section with the given title.
func (d Document) Section(title string) (Section, bool) {
	i := slices.IndexFunc(d.Sections, func(s Section) bool { return s.Title == title })
	if i < 0 {
		return Section{}, false
	}
	return d.Sections[i], true
}

// Titles lists the section titles in document order.
func (d Document) Titles() []string {
	out := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		out[i] = s.Title
	}
	return out
}

// Body returns the text of every section except the QA Summary.
func (d Document) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Subject)
	for _, s := range d.Sections {
		if s.Title == SectionQASummary {
			continue
		}
		writeSection(&b, s.Title, s.Body)
	}
	return b.String()
}

// Render produces the final markdown with the QA Summary filled from r. A
// nil r renders a pending summary.
func (d Document) Render(r Summarizer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Subject)
	for _, s := range d.Sections {
		body := s.Body
		if s.Title == SectionQASummary {
			if r == nil {
				body = "- Status: PENDING"
			} else {
				body = bullets(r.SummaryLines(), "- Status: PENDING")
			}
		}
		writeSection(&b, s.Title, body)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeSection(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if body = strings.TrimSpace(body); body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func tldr(in Input) string {
	focus := in.Week.TrainingFocus
	if focus == "" {
		focus = "General training"
	}
	lines := []string{"Training focus: " + focus}
	if in.Targets != nil {
		c := in.Targets.Counts
		s := in.Targets.Summary()
		lines = append(lines,
			fmt.Sprintf("Pattern: %d intensity, %d endurance, %d rest days", c.High, c.Training, c.Rest),
			fmt.Sprintf("Goal: %s, avg %.0f kcal/day", in.Profile.Goal, s.AvgKcal),
			fmt.Sprintf("Protein target: %.0fg/day | Carbs: %.0fg training / %.0fg rest", s.AvgProteinG, s.AvgCarbsTraining, s.AvgCarbsRest),
		)
	}
	lines = append(lines, fmt.Sprintf("Grocery list ready: %d items across %d categories",
		len(in.Grocery), len(shopping.Categories(in.Grocery))))
	return bullets(lines, "")
}

func targetsTable(t *nutrition.Targets) string {
	if t == nil {
		return "- Targets unavailable."
	}
	lines := make([]string, 0, len(t.Days)+1)
	for _, d := range t.Days {
		lines = append(lines, fmt.Sprintf("%s (%s): %.0f kcal | P%.0fg C%.0fg F%.0fg",
			d.Date, d.DayType, d.Kcal, d.ProteinG, d.CarbsG, d.FatG))
	}
	out := bullets(lines, "")
	return out + fmt.Sprintf("\nWeek tier: **%s**", t.Tier)
}

func mealPlan(recipes []recipe.Recipe) string {
	byDate := map[string]map[planner.Slot]recipe.Recipe{}
	var dates []string
	dayTypes := map[string]nutrition.DayType{}
	for _, r := range recipes {
		if _, ok := byDate[r.Date]; !ok {
			byDate[r.Date] = map[planner.Slot]recipe.Recipe{}
			dates = append(dates, r.Date)
			dayTypes[r.Date] = r.DayType
		}
		byDate[r.Date][r.Slot] = r
	}
	if len(dates) == 0 {
		return "- No meals planned."
	}

	var b strings.Builder
	for _, date := range dates {
		day := date
		if t, err := time.Parse(inputs.DateLayout, date); err == nil {
			day = t.Format("Monday") + " " + date
		}
		fmt.Fprintf(&b, "### %s — %s Day\n", day, shared.UpperFirst(string(dayTypes[date])))
		for _, slot := range planner.Slots {
			r, ok := byDate[date][slot]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- **%s:** %s\n", slot.Title(), mealLine(r))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func mealLine(r recipe.Recipe) string {
	var line string
	if r.UsesMarker() || r.Link == "" {
		line = r.Name + " *(simple build)*"
	} else {
		line = fmt.Sprintf("[%s](%s)", r.Name, r.Link)
	}
	if r.BatchCook {
		line += " *(batch cook)*"
	}
	if r.LinkError != "" {
		line += " *(link unverified)*"
	}
	return line
}

func groceryList(items []shopping.GroceryItem) string {
	if len(items) == 0 {
		return "- No grocery items."
	}
	var b strings.Builder
	current := ""
	for _, it := range items {
		if it.Category != current {
			if current != "" {
				b.WriteString("\n")
			}
			current = it.Category
			fmt.Fprintf(&b, "**%s**\n", shared.UpperFirst(current))
		}
		fmt.Fprintf(&b, "- %s — %s %s", it.ItemName, shopping.FormatQuantity(it.Quantity), it.Unit)
		if it.Price != nil {
			fmt.Fprintf(&b, " | $%.2f", *it.Price)
			if it.MatchConfidence == shopping.Approximate {
				b.WriteString(" (approx match)")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("\nFull list with SKUs and substitutes: `grocery_list.csv`.")
	return b.String()
}

func notesAssumptions(defaults []string, mods []planner.Modification) string {
	var b strings.Builder
	if len(defaults) > 0 {
		b.WriteString("**Defaults and fallbacks applied:**\n")
		b.WriteString(bullets(defaults, ""))
		b.WriteString("\n")
	}
	if len(mods) > 0 {
		b.WriteString("**Plan modifications applied:**\n")
		for _, m := range mods {
			fmt.Fprintf(&b, "- %s: %s — %s\n", m.ID, m.MealID, m.ProposedValue)
		}
	}
	if b.Len() == 0 {
		return "- No defaults or modifications applied this week."
	}
	return b.String()
}

func bullets(lines []string, empty string) string {
	if len(lines) == 0 {
		return empty
	}
	var b strings.Builder
	for _, l := range lines {
		if strings.HasPrefix(l, "- ") {
			b.WriteString(l)
		} else {
			b.WriteString("- " + l)
		}
		b.WriteString("\n")
	}
	return b.String()
}
