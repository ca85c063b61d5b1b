package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"performance-meal-planner/internal/config"
	"performance-meal-planner/internal/database"
	"performance-meal-planner/internal/history"
	"performance-meal-planner/internal/inputs"
	"performance-meal-planner/internal/llm"
	"performance-meal-planner/internal/planner"
	"performance-meal-planner/internal/qa"
	"performance-meal-planner/internal/recipe"
	"performance-meal-planner/internal/shared"
	"performance-meal-planner/internal/storage"
)

const week = "2026-03-02"

// recipeService answers every batch prompt with one record per meal id it
// lists, breaking the records named in malformed.
type recipeService struct {
	malformed map[string]bool
	calls     int
}

var mealIDLine = regexp.MustCompile(`(?m)^- (D\d_[A-Za-z]+) \|`)

func (s *recipeService) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	s.calls++
	var recs []map[string]any
	for _, m := range mealIDLine.FindAllStringSubmatch(prompt, -1) {
		id := m[1]
		rec := map[string]any{
			"meal_id": id,
			"name":    "Chicken rice bowl " + id,
			"url":     "https://www.budgetbytes.com/" + strings.ToLower(id),
			"ingredients": []map[string]any{
				{"name": "chicken breast", "quantity": 150, "unit": "g"},
				{"name": "jasmine rice", "quantity": 80, "unit": "g"},
				{"name": "broccoli", "quantity": 100, "unit": "g"},
			},
			"macros": map[string]any{"kcal": 620, "protein_g": 45, "carbs_g": 70, "fat_g": 14},
		}
		if s.malformed[id] {
			rec["name"] = ""
			rec["url"] = "TBD"
		}
		recs = append(recs, rec)
	}
	b, err := json.Marshal(map[string]any{"recipes": recs})
	if err != nil {
		return llm.ContentResponse{}, err
	}
	return llm.ContentResponse{
		Content: string(b),
		Usage:   shared.TokenUsage{PromptTokens: 900, CompletionTokens: 1200, TotalTokens: 2100, Model: "test-model"},
	}, nil
}

// stubFiller returns fixed recipes, bypassing record validation.
type stubFiller struct {
	edit func([]recipe.Recipe) []recipe.Recipe
}

func (f stubFiller) Fill(_ context.Context, slots []planner.MealSlot, c recipe.Constraints) recipe.FillResult {
	var out []recipe.Recipe
	for _, s := range slots {
		r := recipe.Fallback(s, c.Restricted(), "stub")
		r.Link = "https://www.seriouseats.com/" + strings.ToLower(s.ID)
		r.Fallback = false
		out = append(out, r)
	}
	if f.edit != nil {
		out = f.edit(out)
	}
	return recipe.FillResult{Recipes: out}
}

type fakeSender struct {
	subjects []string
	bodies   []string
	fail     bool
}

func (s *fakeSender) Send(_ context.Context, subject, body string) bool {
	s.subjects = append(s.subjects, subject)
	s.bodies = append(s.bodies, body)
	return !s.fail
}

type fakeMetrics struct{ metas []shared.AgentMeta }

func (m *fakeMetrics) RecordMeta(_ context.Context, _ string, meta shared.AgentMeta) error {
	m.metas = append(m.metas, meta)
	return nil
}

type fakeLinks struct{ bad map[string]bool }

func (l fakeLinks) Check(_ context.Context, url string) error {
	if l.bad[url] {
		return errors.New("unexpected status 404")
	}
	return nil
}

type fixedAnalysis struct{ a history.Analysis }

func (f fixedAnalysis) Analyze(context.Context, string, *planner.MealPlan) (history.Analysis, error) {
	return f.a, nil
}

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func bundle(avoid ...string) inputs.Bundle {
	b := inputs.Bundle{
		Profile: inputs.UserProfile{
			UserID: "u1", Name: "Rider", Age: 32, Sex: "male",
			WeightKG: 74, HeightCM: 178, Goal: inputs.GoalMaintain, AvoidList: avoid,
		},
		Week: inputs.WeeklyContext{WeekStart: week, Timezone: "America/Los_Angeles", TrainingFocus: "endurance"},
	}
	labels := []string{"intervals", "rest", "zone 2", "rest", "tempo", "long ride", "rest"}
	for i, l := range labels {
		b.Week.Schedule = append(b.Week.Schedule, inputs.ScheduleDay{Date: fmt.Sprintf("2026-03-%02d", i+2), ActivityType: l})
	}
	return b
}

type harness struct {
	ctrl    *Controller
	deps    Deps
	store   *history.Store
	sender  *fakeSender
	metrics *fakeMetrics
	outDir  string
}

func newHarness(t *testing.T, filler RecipeFiller, mutate func(*Deps)) *harness {
	t.Helper()
	dir := t.TempDir()
	db, err := database.NewDB(filepath.Join(dir, "planner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &harness{
		store:   history.NewStore(db.SQL),
		sender:  &fakeSender{},
		metrics: &fakeMetrics{},
		outDir:  filepath.Join(dir, "out"),
	}
	artifacts, err := storage.NewArtifactStore(h.outDir)
	require.NoError(t, err)

	h.deps = Deps{
		Filler:    filler,
		History:   h.store,
		Analysis:  history.NewGate(h.store, nil, history.DefaultThreshold),
		Metrics:   h.metrics,
		Artifacts: artifacts,
		Sender:    h.sender,
	}
	if mutate != nil {
		mutate(&h.deps)
	}
	cfg := config.PipelineConfig{GroceryBuffer: 0.10, MacroTolerance: 0.10, VerifyLinks: true}
	h.ctrl, err = New(cfg, h.deps, quiet())
	require.NoError(t, err)
	h.ctrl.now = func() time.Time { return time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC) }
	h.ctrl.newID = func() string { return "run-0001" }
	return h
}

func (h *harness) artifact(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.outDir, week, name))
	require.NoError(t, err)
	return string(data)
}

func (h *harness) exists(name string) bool {
	_, err := os.Stat(filepath.Join(h.outDir, week, name))
	return err == nil
}

func TestRun_TwoMalformedRecordsStillShips(t *testing.T) {
	svc := &recipeService{malformed: map[string]bool{"D2_Lunch": true, "D6_Dinner": true}}
	filler, err := recipe.NewFiller(svc, recipe.Options{}, quiet())
	require.NoError(t, err)
	h := newHarness(t, filler, nil)

	res, err := h.ctrl.Run(context.Background(), bundle())
	require.NoError(t, err)

	require.Len(t, res.Recipes, 28)
	var fallbacks []string
	for _, r := range res.Recipes {
		if r.Fallback {
			fallbacks = append(fallbacks, r.MealID)
			assert.Equal(t, recipe.FallbackMarker, r.Link)
		}
	}
	assert.Equal(t, []string{"D2_Lunch", "D6_Dinner"}, fallbacks)

	links, ok := res.Report.Dimension(qa.DimRecipeLinks)
	require.True(t, ok)
	assert.False(t, links.Passed)
	assert.Len(t, links.Findings, 2)
	assert.Equal(t, qa.Pass, res.Report.Overall)

	assert.True(t, res.Shipped)
	assert.True(t, res.Delivered)
	require.Len(t, h.sender.subjects, 1)
	assert.Equal(t, "Week W10 — Peak load week", h.sender.subjects[0])
	assert.Equal(t, res.Digest, h.sender.bodies[0])
	assert.Equal(t, planner.StatusFinal, res.Plan.Status)

	assert.Equal(t, 2, svc.calls)
	assert.Len(t, h.metrics.metas, 2)
	assert.True(t, res.Appended)

	for _, name := range []string{
		storage.MealPlanFile, storage.RecipesFile, storage.GroceryCSVFile, storage.GroceryJSONFile,
		storage.GroceryNotesFile, storage.QAReportFile, storage.QAReportJSONFile, storage.DigestFile,
		storage.ModificationsFile, storage.RunLogFile,
	} {
		assert.True(t, h.exists(name), name)
	}
	runLog := h.artifact(t, storage.RunLogFile)
	assert.Contains(t, runLog, "# Run Log — 2026-03-02")
	assert.Contains(t, runLog, "- D2_Lunch: fallback recipe (empty recipe name)")
	assert.Contains(t, runLog, "- QA Gate: 2026-03-01T18:00:00Z — PASS")
	assert.Contains(t, runLog, "- Revision: 2026-03-01T18:00:00Z — SKIP")
	assert.Contains(t, h.artifact(t, storage.DigestFile), "## QA Summary")
}

func TestRun_ConstraintViolationIsNotShipped(t *testing.T) {
	filler := stubFiller{edit: func(rs []recipe.Recipe) []recipe.Recipe {
		rs[9].Ingredients = append(rs[9].Ingredients, recipe.Ingredient{Name: "bell peppers", Quantity: 1, Unit: "count"})
		return rs
	}}
	h := newHarness(t, filler, nil)

	res, err := h.ctrl.Run(context.Background(), bundle("bell peppers"))
	require.NoError(t, err)

	d, _ := res.Report.Dimension(qa.DimConstraints)
	assert.False(t, d.Passed)
	assert.Equal(t, qa.Fail, res.Report.Overall)
	assert.False(t, res.Shipped)
	assert.Empty(t, h.sender.subjects)
	assert.Equal(t, planner.StatusDraft, res.Plan.Status)

	// A failed run still leaves its report behind.
	assert.Contains(t, h.artifact(t, storage.QAReportFile), "## Overall: FAIL")
	rec, ok := res.Log.Stage(StageDelivery)
	require.True(t, ok)
	assert.Equal(t, StatusSkip, rec.Status)
}

func TestRun_ValidationHalts(t *testing.T) {
	h := newHarness(t, stubFiller{}, nil)
	b := bundle()
	b.Profile.UserID = ""

	res, err := h.ctrl.Run(context.Background(), b)
	var gate *GateError
	require.True(t, errors.As(err, &gate))
	assert.Equal(t, StageValidate, gate.Gate)
	assert.Contains(t, gate.Reason, "user_id")

	var fe *inputs.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "user_profile", fe.Record)

	assert.Nil(t, res.Targets)
	assert.Empty(t, h.sender.subjects)
	assert.False(t, h.exists(storage.DigestFile))
	assert.Contains(t, h.artifact(t, storage.RunLogFile), "- Validate: 2026-03-01T18:00:00Z — HALT — user_profile: missing required field 'user_id'")

	n, err := h.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_RecipeCoverageGate(t *testing.T) {
	h := newHarness(t, stubFiller{edit: func(rs []recipe.Recipe) []recipe.Recipe { return rs[:27] }}, nil)

	_, err := h.ctrl.Run(context.Background(), bundle())
	var gate *GateError
	require.True(t, errors.As(err, &gate))
	assert.Equal(t, StageRecipes, gate.Gate)
	assert.Equal(t, "expected 28 recipes, got 27", gate.Reason)
}

func TestRun_HaltRemovesStaleDigest(t *testing.T) {
	h := newHarness(t, stubFiller{}, nil)
	_, err := h.ctrl.Run(context.Background(), bundle())
	require.NoError(t, err)
	require.True(t, h.exists(storage.DigestFile))

	h.ctrl.deps.Filler = stubFiller{edit: func(rs []recipe.Recipe) []recipe.Recipe {
		rs[0], rs[1] = rs[1], rs[0]
		return rs
	}}
	_, err = h.ctrl.Run(context.Background(), bundle())
	var gate *GateError
	require.True(t, errors.As(err, &gate))
	assert.Equal(t, StageRecipes, gate.Gate)
	assert.False(t, h.exists(storage.DigestFile))
	assert.Contains(t, h.artifact(t, storage.RunLogFile), "HALT")

	names, err := h.ctrl.deps.Artifacts.List(week)
	require.NoError(t, err)
	assert.Equal(t, []string{storage.RunLogFile}, names)
}

func TestRun_RerunDoesNotDuplicateHistory(t *testing.T) {
	h := newHarness(t, stubFiller{}, nil)
	ctx := context.Background()

	first, err := h.ctrl.Run(ctx, bundle())
	require.NoError(t, err)
	second, err := h.ctrl.Run(ctx, bundle())
	require.NoError(t, err)

	assert.True(t, first.Appended)
	assert.False(t, second.Appended)
	n, err := h.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, history.ConfidenceInsufficient, second.Analysis.Confidence)
	assert.Empty(t, second.Plan.Modifications)
}

func TestRun_AuthorizedRevisionIsAudited(t *testing.T) {
	mod := planner.Modification{ID: "mod_001", MealID: "D2_Lunch", ProposedValue: "add 30 g carbs", Confidence: "medium"}
	h := newHarness(t, stubFiller{}, func(d *Deps) {
		d.Analysis = fixedAnalysis{history.Analysis{
			Confidence: history.ConfidenceAnalyzed, WeeksAvailable: 5, Threshold: 4,
			RevisionAuthorized: true, Modifications: []planner.Modification{mod},
		}}
	})

	res, err := h.ctrl.Run(context.Background(), bundle())
	require.NoError(t, err)

	assert.Equal(t, []planner.Modification{mod}, res.Plan.Modifications)
	assert.Contains(t, res.Recipes[5].SubstitutionNote, "mod_001: add 30 g carbs")
	assert.Equal(t, "D2_Lunch", res.Recipes[5].MealID)

	audit, _ := res.Report.Dimension(qa.DimModification)
	assert.True(t, audit.Applicable)
	assert.True(t, audit.Passed, audit.Findings)
	assert.Contains(t, res.Document.Subject, "Higher-carb support for load")
	assert.True(t, res.Shipped)
}

func TestRun_DeliveryFailureKeepsArtifacts(t *testing.T) {
	h := newHarness(t, stubFiller{}, nil)
	h.sender.fail = true

	res, err := h.ctrl.Run(context.Background(), bundle())
	require.NoError(t, err)
	assert.True(t, res.Shipped)
	assert.False(t, res.Delivered)
	assert.True(t, h.exists(storage.DigestFile))
	rec, _ := res.Log.Stage(StageDelivery)
	assert.Equal(t, StatusFail, rec.Status)
}

func TestRun_NoSenderDisablesDelivery(t *testing.T) {
	h := newHarness(t, stubFiller{}, func(d *Deps) { d.Sender = nil })
	res, err := h.ctrl.Run(context.Background(), bundle())
	require.NoError(t, err)
	assert.True(t, res.Shipped)
	assert.False(t, res.Delivered)
	rec, _ := res.Log.Stage(StageDelivery)
	assert.Equal(t, "delivery disabled", rec.Note)
}

func TestRun_LinkCheckAnnotatesRecipes(t *testing.T) {
	bad := "https://www.seriouseats.com/d3_dinner"
	h := newHarness(t, stubFiller{}, func(d *Deps) { d.Links = fakeLinks{bad: map[string]bool{bad: true}} })

	res, err := h.ctrl.Run(context.Background(), bundle())
	require.NoError(t, err)

	var flagged []string
	for _, r := range res.Recipes {
		if r.LinkError != "" {
			flagged = append(flagged, r.MealID)
		}
	}
	assert.Equal(t, []string{"D3_Dinner"}, flagged)
	links, _ := res.Report.Dimension(qa.DimRecipeLinks)
	assert.Len(t, links.Findings, 1)
	assert.Equal(t, qa.Pass, res.Report.Overall)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(config.PipelineConfig{}, Deps{}, quiet())
	assert.Error(t, err)

	h := newHarness(t, stubFiller{}, nil)
	_, err = New(config.PipelineConfig{TierPriority: []string{"peak", "peak"}}, h.deps, quiet())
	assert.ErrorContains(t, err, "invalid tier priority")
}
