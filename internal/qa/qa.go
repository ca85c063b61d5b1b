// Package qa runs the fixed rubric over a composed digest and the run's
// artifacts.
package qa

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"performance-meal-planner/internal/digest"
	"performance-meal-planner/internal/ingredient"
	"performance-meal-planner/internal/inputs"
	"performance-meal-planner/internal/planner"
	"performance-meal-planner/internal/recipe"
	"performance-meal-planner/internal/shopping"
)

// Status is a PASS/FAIL verdict.
type Status string

const (
	Pass Status = "PASS"
	Fail Status = "FAIL"
)

// Dimension names.
const (
	DimCoverage     = "Coverage"
	DimConstraints  = "Constraint Adherence"
	DimMacro        = "Macro Accuracy"
	DimGrocery      = "Grocery Completeness"
	DimRecipeLinks  = "Recipe Link Quality"
	DimModification = "Modification Audit"
	DimTone         = "Tone"
)

// DefaultMacroTolerance is the allowed relative gap between the stated and
// computed daily average.
const DefaultMacroTolerance = 0.10

// Dimension is one rubric check.
type Dimension struct {
	Name       string   `json:"name"`
	Blocking   bool     `json:"blocking"`
	Applicable bool     `json:"applicable"`
	Passed     bool     `json:"passed"`
	Findings   []string `json:"findings"`
}

// Status returns PASS, FAIL or N/A.
func (d Dimension) Status() string {
	switch {
	case !d.Applicable:
		return "N/A"
	case d.Passed:
		return string(Pass)
	default:
		return string(Fail)
	}
}

// Report is the outcome of one evaluation.
type Report struct {
	Dimensions []Dimension `json:"dimensions"`
	Overall    Status      `json:"overall"`
}

// Input is everything the rubric inspects.
type Input struct {
	Document digest.Document
	Plan     *planner.MealPlan
	Recipes  []recipe.Recipe
	Grocery  []shopping.GroceryItem
	Profile  inputs.UserProfile
	// Revised is true when a revision pass applied modifications.
	Revised        bool
	Modifications  []planner.Modification
	MacroTolerance float64
}

// Evaluate computes every dimension independently and derives the overall
// verdict from the applicable blocking ones.
func Evaluate(in Input) Report {
	if in.MacroTolerance <= 0 {
		in.MacroTolerance = DefaultMacroTolerance
	}
	dims := []Dimension{
		coverage(in.Document),
		constraints(in.Recipes, in.Profile),
		macroAccuracy(in.Document, in.Plan, in.MacroTolerance),
		groceryCompleteness(in.Grocery),
		recipeLinks(in.Plan, in.Recipes),
		modificationAudit(in),
		tone(in.Document),
	}
	return Report{Dimensions: dims, Overall: Verdict(dims)}
}

// Verdict is PASS iff every applicable blocking dimension passed.
func Verdict(dims []Dimension) Status {
	for _, d := range dims {
		if d.Applicable && d.Blocking && !d.Passed {
			return Fail
		}
	}
	return Pass
}

// Passed reports an overall PASS.
func (r Report) Passed() bool { return r.Overall == Pass }

// Dimension returns the named dimension.
func (r Report) Dimension(name string) (Dimension, bool) {
	i := slices.IndexFunc(r.Dimensions, func(d Dimension) bool { return d.Name == name })
	if i < 0 {
		return Dimension{}, false
	}
	return r.Dimensions[i], true
}

// BlockingFailures lists findings of failed blocking dimensions.
func (r Report) BlockingFailures() []string {
	var out []string
	for _, d := range r.Dimensions {
		if d.Applicable && d.Blocking && !d.Passed {
			for _, f := range d.Findings {
				out = append(out, d.Name+": "+f)
			}
		}
	}
	return out
}

// SummaryLines fills the digest's QA Summary section.
func (r Report) SummaryLines() []string {
	lines := []string{"Status: " + string(r.Overall)}
	blocking := r.BlockingFailures()
	if len(blocking) == 0 {
		lines = append(lines, "No blocking issues")
	}
	lines = append(lines, blocking...)
	for _, d := range r.Dimensions {
		if d.Applicable && !d.Blocking && !d.Passed {
			lines = append(lines, fmt.Sprintf("Advisory: %s (%d flag(s))", d.Name, len(d.Findings)))
		}
	}
	return lines
}

// Markdown renders qa_report.md.
func (r Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# QA Report\n\n")
	for _, d := range r.Dimensions {
		kind := "advisory"
		if d.Blocking {
			kind = "blocking"
		}
		fmt.Fprintf(&b, "## %s (%s): %s\n", d.Name, kind, d.Status())
		for _, f := range d.Findings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "## Overall: %s\n", r.Overall)
	return b.String()
}

func result(name string, blocking bool, findings []string) Dimension {
	return Dimension{Name: name, Blocking: blocking, Applicable: true, Passed: len(findings) == 0, Findings: findings}
}

func coverage(doc digest.Document) Dimension {
	var findings []string
	if strings.TrimSpace(doc.Subject) == "" {
		findings = append(findings, "Missing subject line")
	}
	titles := doc.Titles()
	for _, want := range digest.RequiredSections {
		if !slices.Contains(titles, want) {
			findings = append(findings, "Missing section: "+want)
		}
	}
	if len(findings) == 0 && !slices.Equal(titles, digest.RequiredSections) {
		findings = append(findings, "Sections out of order: "+strings.Join(titles, ", "))
	}
	return result(DimCoverage, true, findings)
}

func constraints(recipes []recipe.Recipe, p inputs.UserProfile) Dimension {
	var findings []string
	terms := p.RestrictedTerms()
	for _, r := range recipes {
		for _, term := range terms {
			if ingredient.Mentions(r.Name, term) {
				findings = append(findings, fmt.Sprintf("%s: meal %q contains restricted item %q", r.MealID, r.Name, term))
			}
			for _, ing := range r.Ingredients {
				if ingredient.Mentions(ing.Name, term) {
					findings = append(findings, fmt.Sprintf("%s: ingredient %q contains restricted item %q", r.MealID, ing.Name, term))
				}
			}
		}
	}
	return result(DimConstraints, true, findings)
}

var statedAvg = regexp.MustCompile(`avg ([0-9]+(?:\.[0-9]+)?) kcal/day`)

func macroAccuracy(doc digest.Document, plan *planner.MealPlan, tol float64) Dimension {
	if plan == nil || len(plan.Targets) == 0 {
		return result(DimMacro, false, []string{"No computed targets to compare against"})
	}
	var sum float64
	for _, d := range plan.Targets {
		sum += d.Kcal
	}
	computed := sum / float64(len(plan.Targets))

	sec, _ := doc.Section(digest.SectionTLDR)
	m := statedAvg.FindStringSubmatch(sec.Body)
	if m == nil {
		return result(DimMacro, false, []string{"Digest does not state a daily kcal average"})
	}
	stated, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return result(DimMacro, false, []string{"Unreadable daily kcal average: " + m[1]})
	}
	var findings []string
	if dev := math.Abs(stated-computed) / computed; dev > tol {
		findings = append(findings, fmt.Sprintf("Avg kcal deviation %.1f%% exceeds %.0f%% (stated: %.0f, computed: %.0f)",
			dev*100, tol*100, stated, computed))
	}
	return result(DimMacro, false, findings)
}

func groceryCompleteness(items []shopping.GroceryItem) Dimension {
	var findings []string
	if len(items) == 0 {
		findings = append(findings, "Grocery list has no items")
	}
	for _, it := range items {
		if strings.TrimSpace(it.ItemName) == "" {
			findings = append(findings, "Blank item_name for "+it.CanonicalID)
		}
		if !(it.Quantity > 0) {
			findings = append(findings, fmt.Sprintf("Non-positive quantity for %s: %v", it.CanonicalID, it.Quantity))
		}
		switch it.MatchConfidence {
		case shopping.Exact, shopping.Approximate, shopping.BestEffort:
		default:
			findings = append(findings, "Missing match_confidence for "+it.CanonicalID)
		}
	}
	return result(DimGrocery, false, findings)
}

func recipeLinks(plan *planner.MealPlan, recipes []recipe.Recipe) Dimension {
	var findings []string
	byID := make(map[string]recipe.Recipe, len(recipes))
	for _, r := range recipes {
		byID[r.MealID] = r
	}
	if plan != nil {
		for _, id := range plan.MealIDs() {
			if _, ok := byID[id]; !ok {
				findings = append(findings, id+": no recipe entry")
			}
		}
	}
	for _, r := range recipes {
		link := strings.TrimSpace(r.Link)
		switch {
		case link == "":
			findings = append(findings, r.MealID+": no recipe link")
		case r.UsesMarker():
			findings = append(findings, fmt.Sprintf("%s: fallback marker %s used", r.MealID, recipe.FallbackMarker))
		case !recipe.LooksLikeURL(link):
			findings = append(findings, fmt.Sprintf("%s: placeholder link %q", r.MealID, link))
		case r.LinkError != "":
			findings = append(findings, fmt.Sprintf("%s: link check failed (%s)", r.MealID, r.LinkError))
		}
	}
	return result(DimRecipeLinks, false, findings)
}

func modificationAudit(in Input) Dimension {
	if !in.Revised {
		return Dimension{Name: DimModification, Blocking: true, Applicable: false, Passed: true,
			Findings: []string{"No revision pass occurred"}}
	}
	var known []string
	if in.Plan != nil {
		known = in.Plan.MealIDs()
	}
	body := in.Document.Body()
	var findings []string
	for _, m := range in.Modifications {
		if !slices.Contains(known, m.MealID) {
			findings = append(findings, fmt.Sprintf("%s references unknown meal_id %s", m.ID, m.MealID))
		}
		if !strings.Contains(body, m.ID) || !strings.Contains(body, m.MealID) {
			findings = append(findings, fmt.Sprintf("%s for %s is not traceable in the digest", m.ID, m.MealID))
		}
	}
	return result(DimModification, true, findings)
}

var (
	medicalClaims = []string{"will improve", "proven to", "scientifically shown", "cures", "prevents disease", "treats"}
	prescriptive  = []string{"you must", "you need to", "you should always"}
	toneRules     = compileTone()
)

type toneRule struct {
	label string
	term  string
	re    *regexp.Regexp
}

func compileTone() []toneRule {
	var rules []toneRule
	add := func(label string, terms []string) {
		for _, t := range terms {
			rules = append(rules, toneRule{label, t, regexp.MustCompile(`\b` + regexp.QuoteMeta(t) + `\b`)})
		}
	}
	add("Medical claim", medicalClaims)
	add("Prescriptive language", prescriptive)
	return rules
}

func tone(doc digest.Document) Dimension {
	text := strings.ToLower(doc.Body())
	var findings []string
	for _, r := range toneRules {
		if r.re.MatchString(text) {
			findings = append(findings, fmt.Sprintf("%s: %q", r.label, r.term))
		}
	}
	return result(DimTone, true, findings)
}
