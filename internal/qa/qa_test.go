package qa

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"performance-meal-planner/internal/digest"
	"performance-meal-planner/internal/history"
	"performance-meal-planner/internal/inputs"
	"performance-meal-planner/internal/nutrition"
	"performance-meal-planner/internal/planner"
	"performance-meal-planner/internal/recipe"
	"performance-meal-planner/internal/shopping"
)

type fixture struct {
	profile inputs.UserProfile
	week    inputs.WeeklyContext
	targets *nutrition.Targets
	plan    *planner.MealPlan
	recipes []recipe.Recipe
}

func newFixture(t *testing.T, avoid ...string) *fixture {
	t.Helper()
	f := &fixture{
		profile: inputs.UserProfile{UserID: "u1", Name: "A", Age: 32, Sex: "male", WeightKG: 74, HeightCM: 178,
			Goal: inputs.GoalMaintain, AvoidList: avoid},
		week: inputs.WeeklyContext{WeekStart: "2026-03-02", Timezone: "UTC", TrainingFocus: "endurance"},
	}
	labels := []string{"intervals", "rest", "zone 2", "rest", "tempo", "long ride", "rest"}
	for i, l := range labels {
		f.week.Schedule = append(f.week.Schedule, inputs.ScheduleDay{Date: fmt.Sprintf("2026-03-%02d", i+2), ActivityType: l})
	}
	var err error
	f.targets, err = nutrition.ComputeTargets(f.profile, f.week, inputs.OutcomeSignals{}, nutrition.DefaultPolicy())
	require.NoError(t, err)
	slots := planner.BuildSkeleton(f.targets.Days)
	f.plan = planner.NewMealPlan(f.week.WeekStart, f.targets, slots)

	// Real links everywhere except two marker slots.
	for i, s := range slots {
		r := recipe.Fallback(s, f.profile.RestrictedTerms(), "test")
		if i != 5 && i != 17 {
			r.Link = "https://www.bbcgoodfood.com/recipes/" + strings.ToLower(s.ID)
			r.Fallback = false
		}
		f.recipes = append(f.recipes, r)
	}
	return f
}

func (f *fixture) input() Input {
	grocery := shopping.Aggregate(f.recipes, nil, shopping.Options{Buffer: shopping.DefaultBuffer})
	doc := digest.Compose(digest.Input{
		Profile:   f.profile,
		Week:      f.week,
		Targets:   f.targets,
		Rationale: nutrition.Rationale(f.profile, f.week, inputs.OutcomeSignals{}, f.targets),
		Recipes:   f.recipes,
		Grocery:   grocery,
		Analysis:  history.Analysis{Confidence: history.ConfidenceInsufficient, Threshold: 4, Note: "Insufficient historical data."},
		Defaults:  f.targets.Assumptions,
	})
	return Input{Document: doc, Plan: f.plan, Recipes: f.recipes, Grocery: grocery, Profile: f.profile}
}

func TestEvaluate_AdvisoryFlagsDoNotBlock(t *testing.T) {
	f := newFixture(t)
	report := Evaluate(f.input())

	assert.Equal(t, Pass, report.Overall)
	require.Len(t, report.Dimensions, 7)

	links, ok := report.Dimension(DimRecipeLinks)
	require.True(t, ok)
	assert.False(t, links.Passed)
	assert.False(t, links.Blocking)
	assert.Len(t, links.Findings, 2)

	audit, _ := report.Dimension(DimModification)
	assert.False(t, audit.Applicable)
	assert.Equal(t, "N/A", audit.Status())

	for _, name := range []string{DimCoverage, DimConstraints, DimMacro, DimGrocery, DimTone} {
		d, _ := report.Dimension(name)
		assert.True(t, d.Passed, "%s: %v", name, d.Findings)
	}
	assert.Contains(t, report.SummaryLines(), "Advisory: Recipe Link Quality (2 flag(s))")
}

func TestEvaluate_ConstraintViolationBlocks(t *testing.T) {
	f := newFixture(t, "bell peppers")
	f.recipes[3].Ingredients = append(f.recipes[3].Ingredients, recipe.Ingredient{Name: "bell peppers", Quantity: 1, Unit: "count"})

	report := Evaluate(f.input())
	d, _ := report.Dimension(DimConstraints)
	assert.False(t, d.Passed)
	assert.True(t, d.Blocking)
	assert.Equal(t, Fail, report.Overall)
	assert.NotEmpty(t, report.BlockingFailures())
}

func TestEvaluate_CoverageMissingSection(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	in.Document.Sections = in.Document.Sections[:len(in.Document.Sections)-1]

	report := Evaluate(in)
	d, _ := report.Dimension(DimCoverage)
	assert.Equal(t, []string{"Missing section: QA Summary"}, d.Findings)
	assert.Equal(t, Fail, report.Overall)
}

func TestEvaluate_CoverageOrder(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	s := in.Document.Sections
	s[0], s[1] = s[1], s[0]

	d, _ := Evaluate(in).Dimension(DimCoverage)
	assert.False(t, d.Passed)
}

func TestEvaluate_Tone(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	in.Document.Sections[2].Body += "\n- Extra carbs will improve your threshold power.\n- You must eat before 7am."

	d, _ := Evaluate(in).Dimension(DimTone)
	assert.False(t, d.Passed)
	assert.Len(t, d.Findings, 2)

	in = f.input()
	in.Document.Sections[2].Body += "\n- Mountain retreats are fine for rest days."
	d, _ = Evaluate(in).Dimension(DimTone)
	assert.True(t, d.Passed, d.Findings)
}

func TestEvaluate_MacroDeviationIsAdvisory(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	for i, s := range in.Document.Sections {
		if s.Title == digest.SectionTLDR {
			in.Document.Sections[i].Body = "- Goal: maintain, avg 1000 kcal/day"
		}
	}

	report := Evaluate(in)
	d, _ := report.Dimension(DimMacro)
	assert.False(t, d.Passed)
	assert.Equal(t, Pass, report.Overall)
}

func TestEvaluate_GroceryCompleteness(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	in.Grocery[0].ItemName = ""
	in.Grocery[1].MatchConfidence = ""

	d, _ := Evaluate(in).Dimension(DimGrocery)
	assert.Len(t, d.Findings, 2)
}

func TestEvaluate_ModificationAudit(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	in.Revised = true
	in.Modifications = []planner.Modification{{ID: "mod_001", MealID: "D9_Lunch", ProposedValue: "x"}}

	report := Evaluate(in)
	d, _ := report.Dimension(DimModification)
	assert.True(t, d.Applicable)
	assert.False(t, d.Passed)
	assert.Equal(t, Fail, report.Overall)
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		name string
		dims []Dimension
		want Status
	}{
		{"all pass", []Dimension{{Blocking: true, Applicable: true, Passed: true}}, Pass},
		{"advisory fail", []Dimension{
			{Blocking: true, Applicable: true, Passed: true},
			{Blocking: false, Applicable: true, Passed: false},
		}, Pass},
		{"blocking fail", []Dimension{{Blocking: true, Applicable: true, Passed: false}}, Fail},
		{"inapplicable blocking", []Dimension{{Blocking: true, Applicable: false, Passed: false}}, Pass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verdict(tt.dims))
		})
	}
}

func TestReport_Markdown(t *testing.T) {
	f := newFixture(t)
	md := Evaluate(f.input()).Markdown()
	assert.Contains(t, md, "## Coverage (blocking): PASS")
	assert.Contains(t, md, "## Recipe Link Quality (advisory): FAIL")
	assert.Contains(t, md, "## Overall: PASS")
}
