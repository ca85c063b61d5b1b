// Package pipeline runs the weekly plan as a fixed sequence of gated
// stages. A stage that cannot produce its minimum output halts the run
// with a *GateError; QA failure does not halt but blocks delivery.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"performance-meal-planner/internal/config"
	"performance-meal-planner/internal/digest"
	"performance-meal-planner/internal/history"
	"performance-meal-planner/internal/inputs"
	"performance-meal-planner/internal/nutrition"
	"performance-meal-planner/internal/planner"
	"performance-meal-planner/internal/qa"
	"performance-meal-planner/internal/recipe"
	"performance-meal-planner/internal/shared"
	"performance-meal-planner/internal/shopping"
	"performance-meal-planner/internal/storage"
)

// Stage names, also used as gate names.
const (
	StageValidate  = "Validate"
	StageTargets   = "Targets"
	StageSkeleton  = "Skeleton"
	StageRecipes   = "Recipes"
	StageLinks     = "Link Check"
	StageGrocery   = "Grocery"
	StageHistory   = "History"
	StageAnalysis  = "Data Analyst"
	StageRevision  = "Revision"
	StageDigest    = "Digest"
	StageQA        = "QA Gate"
	StageArtifacts = "Artifacts"
	StageDelivery  = "Delivery"
)

// GateError reports the gate that halted a run and why.
type GateError struct {
	Gate   string
	Reason string
	Err    error
}

func (e *GateError) Error() string {
	return fmt.Sprintf("run halted at %s gate: %s", e.Gate, e.Reason)
}

func (e *GateError) Unwrap() error { return e.Err }

// Sender delivers the final digest. It reports success and never returns
// an error into the pipeline.
type Sender interface {
	Send(ctx context.Context, subject, body string) bool
}

// RecipeFiller returns one recipe per slot.
type RecipeFiller interface {
	Fill(ctx context.Context, slots []planner.MealSlot, c recipe.Constraints) recipe.FillResult
}

// LinkChecker verifies a recipe link.
type LinkChecker interface {
	Check(ctx context.Context, url string) error
}

// HistoryStore appends the week's summary row.
type HistoryStore interface {
	AppendIfNew(ctx context.Context, r history.Row) (bool, error)
}

// AnalysisGate decides whether past weeks authorize a revision.
type AnalysisGate interface {
	Analyze(ctx context.Context, weekStart string, plan *planner.MealPlan) (history.Analysis, error)
}

// MetricsRecorder stores per-call token usage.
type MetricsRecorder interface {
	RecordMeta(ctx context.Context, runID string, meta shared.AgentMeta) error
}

// Deps are the collaborators of a Controller. Links, Metrics and Sender
// are optional; a nil Sender disables delivery.
type Deps struct {
	Filler    RecipeFiller
	Links     LinkChecker
	Catalog   shopping.Catalog
	History   HistoryStore
	Analysis  AnalysisGate
	Metrics   MetricsRecorder
	Artifacts *storage.ArtifactStore
	Sender    Sender
}

// Result is the outcome of a run. Shipped is true when QA passed and the
// digest was released; Delivered is true when the configured channel
// accepted it.
type Result struct {
	RunID     string
	WeekStart string
	Targets   *nutrition.Targets
	Plan      *planner.MealPlan
	Recipes   []recipe.Recipe
	Grocery   []shopping.GroceryItem
	Analysis  history.Analysis
	Document  digest.Document
	Report    qa.Report
	Digest    string
	Appended  bool
	Artifacts []string
	Log       *RunLog
	Shipped   bool
	Delivered bool
}

// Controller runs the pipeline. It is built once from an explicit
// configuration and never reads configuration mid-run.
type Controller struct {
	cfg    config.PipelineConfig
	policy nutrition.Policy
	deps   Deps
	log    logrus.FieldLogger
	now    func() time.Time
	newID  func() string
}

// New validates the dependencies and builds a Controller.
func New(cfg config.PipelineConfig, deps Deps, log logrus.FieldLogger) (*Controller, error) {
	if deps.Filler == nil {
		return nil, errors.New("pipeline requires a recipe filler")
	}
	if deps.History == nil || deps.Analysis == nil {
		return nil, errors.New("pipeline requires a history store and analysis gate")
	}
	if deps.Artifacts == nil {
		return nil, errors.New("pipeline requires an artifact store")
	}
	if deps.Catalog == nil {
		deps.Catalog = shopping.DefaultCatalog()
	}
	tiers, err := nutrition.NewTierPolicy(cfg.TierPriority)
	if err != nil {
		return nil, fmt.Errorf("invalid tier priority: %w", err)
	}
	policy := nutrition.Policy{Tiers: tiers, DefaultPAL: cfg.DefaultPAL}
	if policy.DefaultPAL <= 0 {
		policy.DefaultPAL = nutrition.DefaultPAL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		cfg:    cfg,
		policy: policy,
		deps:   deps,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// run carries the state of one execution between stages.
type run struct {
	*Result
	in  inputs.Bundle
	log logrus.FieldLogger
}

func (r *run) stage(name, status, note string) {
	r.Log.Record(name, status, note)
	entry := r.log.WithFields(logrus.Fields{"stage": name, "status": status})
	if note != "" {
		entry = entry.WithField("note", note)
	}
	entry.Info("stage complete")
}

func (r *run) halt(name, reason string, err error) error {
	r.Log.Record(name, StatusHalt, reason)
	r.log.WithFields(logrus.Fields{"stage": name, "status": StatusHalt}).WithError(err).Error("run halted")
	return &GateError{Gate: name, Reason: reason, Err: err}
}

// Run executes every stage in order. It returns a *GateError when a gate
// halts the run; the partial Result is returned alongside so the caller
// can report the run log.
func (c *Controller) Run(ctx context.Context, in inputs.Bundle) (*Result, error) {
	id := c.newID()
	weekStart := in.Week.WeekStart
	r := &run{
		Result: &Result{RunID: id, WeekStart: weekStart, Log: newRunLog(id, weekStart, c.now)},
		in:     in,
		log:    c.log.WithFields(logrus.Fields{"run_id": id, "week_start": weekStart}),
	}
	r.log.Info("run started")

	if err := c.execute(ctx, r); err != nil {
		c.writeHaltLog(r)
		return r.Result, err
	}
	return r.Result, nil
}

func (c *Controller) execute(ctx context.Context, r *run) error {
	steps := []func(context.Context, *run) error{
		c.validate,
		c.targets,
		c.skeleton,
		c.recipes,
		c.verifyLinks,
		c.grocery,
		c.history,
		c.analysis,
		c.compose,
		c.artifacts,
		c.deliver,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled: %w", err)
		}
		if err := step(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) validate(_ context.Context, r *run) error {
	if err := inputs.Validate(r.in); err != nil {
		return r.halt(StageValidate, err.Error(), err)
	}
	r.stage(StageValidate, StatusPass, "")
	return nil
}

func (c *Controller) targets(_ context.Context, r *run) error {
	t, err := nutrition.ComputeTargets(r.in.Profile, r.in.Week, r.in.Signals, c.policy)
	if err != nil {
		return r.halt(StageTargets, err.Error(), err)
	}
	for _, a := range t.Assumptions {
		r.Log.AddDefault("%s", a)
	}
	r.Targets = t
	r.stage(StageTargets, StatusPass, fmt.Sprintf("week tier %s", t.Tier))
	return nil
}

func (c *Controller) skeleton(_ context.Context, r *run) error {
	slots := planner.BuildSkeleton(r.Targets.Days)
	if err := planner.CheckSkeleton(slots); err != nil {
		return r.halt(StageSkeleton, err.Error(), err)
	}
	r.Plan = planner.NewMealPlan(r.WeekStart, r.Targets, slots)
	r.stage(StageSkeleton, StatusPass, fmt.Sprintf("%d meal ids", len(slots)))
	return nil
}

func (c *Controller) recipes(ctx context.Context, r *run) error {
	res := c.deps.Filler.Fill(ctx, r.Plan.Slots, recipe.ConstraintsFromProfile(r.in.Profile))
	c.recordMetrics(ctx, r, res.Metas)

	if len(res.Recipes) != len(r.Plan.Slots) {
		reason := fmt.Sprintf("expected %d recipes, got %d", len(r.Plan.Slots), len(res.Recipes))
		return r.halt(StageRecipes, reason, nil)
	}
	for i, rec := range res.Recipes {
		if rec.MealID != r.Plan.Slots[i].ID {
			reason := fmt.Sprintf("recipe %d is for %s, expected %s", i+1, rec.MealID, r.Plan.Slots[i].ID)
			return r.halt(StageRecipes, reason, nil)
		}
	}
	for _, fb := range res.Fallbacks {
		r.Log.AddFallback("%s: fallback recipe (%s)", fb.MealID, fb.Reason)
	}
	r.Recipes = res.Recipes

	note := fmt.Sprintf("%d recipes, %d fallback(s)", len(res.Recipes), len(res.Fallbacks))
	r.stage(StageRecipes, StatusPass, note)
	return nil
}

func (c *Controller) recordMetrics(ctx context.Context, r *run, metas []shared.AgentMeta) {
	if c.deps.Metrics == nil {
		return
	}
	for _, m := range metas {
		if err := c.deps.Metrics.RecordMeta(ctx, r.RunID, m); err != nil {
			r.log.WithError(err).Warnf("failed to record metrics for %s", m.AgentName)
		}
	}
}

// verifyLinks annotates recipes whose link does not resolve. Recipes are
// never replaced here.
func (c *Controller) verifyLinks(ctx context.Context, r *run) error {
	if c.deps.Links == nil || !c.cfg.VerifyLinks {
		r.stage(StageLinks, StatusSkip, "link verification disabled")
		return nil
	}
	checked := make(map[string]error)
	failed := 0
	for i := range r.Recipes {
		rec := &r.Recipes[i]
		if rec.UsesMarker() || rec.Link == "" {
			continue
		}
		err, done := checked[rec.Link]
		if !done {
			err = c.deps.Links.Check(ctx, rec.Link)
			checked[rec.Link] = err
		}
		if err != nil {
			rec.LinkError = err.Error()
			failed++
			r.Log.AddFallback("%s: link unverified (%s)", rec.MealID, err)
		}
	}
	r.stage(StageLinks, StatusPass, fmt.Sprintf("%d link(s) checked, %d unverified", len(checked), failed))
	return nil
}

func (c *Controller) grocery(_ context.Context, r *run) error {
	items := shopping.Aggregate(r.Recipes, c.deps.Catalog, shopping.Options{Buffer: c.cfg.GroceryBuffer})
	if missing := shopping.Reconcile(r.Recipes, items); len(missing) > 0 {
		reason := fmt.Sprintf("%d ingredient(s) not accounted for, first: %s", len(missing), missing[0])
		return r.halt(StageGrocery, reason, nil)
	}
	r.Grocery = items
	r.stage(StageGrocery, StatusPass, fmt.Sprintf("%d item(s)", len(items)))
	return nil
}

func (c *Controller) history(ctx context.Context, r *run) error {
	fallbacks := 0
	for _, rec := range r.Recipes {
		if rec.Fallback {
			fallbacks++
		}
	}
	notes := fmt.Sprintf("tier=%s fallbacks=%d", r.Targets.Tier, fallbacks)
	appended, err := c.deps.History.AppendIfNew(ctx, history.NewRow(r.WeekStart, r.Targets, r.in.Signals, notes))
	if err != nil {
		return r.halt(StageHistory, "failed to append history row", err)
	}
	r.Appended = appended
	note := "row appended"
	if !appended {
		note = "row already present for week"
	}
	r.stage(StageHistory, StatusPass, note)
	return nil
}

func (c *Controller) analysis(ctx context.Context, r *run) error {
	a, err := c.deps.Analysis.Analyze(ctx, r.WeekStart, r.Plan)
	if err != nil {
		return r.halt(StageAnalysis, "history analysis failed", err)
	}
	r.Analysis = a
	r.stage(StageAnalysis, StatusPass, a.Confidence)

	if !a.RevisionAuthorized {
		r.stage(StageRevision, StatusSkip, "revision not authorized: "+a.Confidence)
		return nil
	}
	applyModifications(r.Plan, r.Recipes, a.Modifications)
	r.stage(StageRevision, StatusPass, fmt.Sprintf("%d modification(s) applied", len(a.Modifications)))
	return nil
}

// applyModifications records each modification on the plan and notes it on
// the recipe it targets.
func applyModifications(plan *planner.MealPlan, recipes []recipe.Recipe, mods []planner.Modification) {
	plan.Modifications = append(plan.Modifications[:0], mods...)
	for _, m := range mods {
		for i := range recipes {
			if recipes[i].MealID != m.MealID {
				continue
			}
			note := fmt.Sprintf("%s: %s", m.ID, m.ProposedValue)
			if recipes[i].SubstitutionNote != "" {
				note = recipes[i].SubstitutionNote + "; " + note
			}
			recipes[i].SubstitutionNote = note
		}
	}
}

func (c *Controller) compose(_ context.Context, r *run) error {
	defaults := append([]string{}, r.Log.Defaults...)
	defaults = append(defaults, r.Log.Fallbacks...)
	r.Document = digest.Compose(digest.Input{
		Profile:   r.in.Profile,
		Week:      r.in.Week,
		Targets:   r.Targets,
		Rationale: nutrition.Rationale(r.in.Profile, r.in.Week, r.in.Signals, r.Targets),
		Recipes:   r.Recipes,
		Grocery:   r.Grocery,
		Analysis:  r.Analysis,
		Defaults:  defaults,
	})
	r.stage(StageDigest, StatusPass, r.Document.Subject)

	r.Report = qa.Evaluate(qa.Input{
		Document:       r.Document,
		Plan:           r.Plan,
		Recipes:        r.Recipes,
		Grocery:        r.Grocery,
		Profile:        r.in.Profile,
		Revised:        r.Analysis.RevisionAuthorized,
		Modifications:  r.Plan.Modifications,
		MacroTolerance: c.cfg.MacroTolerance,
	})
	r.Digest = r.Document.Render(r.Report)

	status, note := StatusPass, ""
	if !r.Report.Passed() {
		status = StatusFail
		note = fmt.Sprintf("blocking: %v", r.Report.BlockingFailures())
	}
	r.stage(StageQA, status, note)
	if r.Report.Passed() {
		r.Plan.Status = planner.StatusFinal
	}
	return nil
}

func (c *Controller) artifacts(_ context.Context, r *run) error {
	st := c.deps.Artifacts
	ws := r.WeekStart
	writes := []struct {
		name string
		fn   func() (string, error)
	}{
		{storage.MealPlanFile, func() (string, error) { return st.WriteJSON(ws, storage.MealPlanFile, r.Plan) }},
		{storage.RecipesFile, func() (string, error) { return st.WriteJSON(ws, storage.RecipesFile, r.Recipes) }},
		{storage.GroceryCSVFile, func() (string, error) {
			return st.Write(ws, storage.GroceryCSVFile, func(w io.Writer) error { return shopping.WriteCSV(w, r.Grocery) })
		}},
		{storage.GroceryJSONFile, func() (string, error) {
			return st.Write(ws, storage.GroceryJSONFile, func(w io.Writer) error { return shopping.WriteJSON(w, ws, r.Grocery) })
		}},
		{storage.GroceryNotesFile, func() (string, error) {
			return st.WriteString(ws, storage.GroceryNotesFile, shopping.NotesMarkdown(r.Grocery))
		}},
		{storage.ModificationsFile, func() (string, error) { return st.WriteJSON(ws, storage.ModificationsFile, r.Analysis) }},
		{storage.QAReportFile, func() (string, error) { return st.WriteString(ws, storage.QAReportFile, r.Report.Markdown()) }},
		{storage.QAReportJSONFile, func() (string, error) { return st.WriteJSON(ws, storage.QAReportJSONFile, r.Report) }},
		{storage.DigestFile, func() (string, error) { return st.WriteString(ws, storage.DigestFile, r.Digest) }},
	}
	for _, w := range writes {
		p, err := w.fn()
		if err != nil {
			return r.halt(StageArtifacts, "failed to write "+w.name, err)
		}
		r.Artifacts = append(r.Artifacts, p)
	}
	r.stage(StageArtifacts, StatusPass, fmt.Sprintf("%d file(s)", len(writes)))
	return nil
}

func (c *Controller) deliver(ctx context.Context, r *run) error {
	defer c.writeRunLog(r)

	if !r.Report.Passed() {
		r.stage(StageDelivery, StatusSkip, "QA failed: digest not shipped")
		return nil
	}
	r.Shipped = true
	if c.deps.Sender == nil {
		r.stage(StageDelivery, StatusSkip, "delivery disabled")
		return nil
	}
	r.Delivered = c.deps.Sender.Send(ctx, r.Document.Subject, r.Digest)
	if !r.Delivered {
		r.stage(StageDelivery, StatusFail, "channel rejected the digest; artifacts kept")
		return nil
	}
	r.stage(StageDelivery, StatusPass, "")
	return nil
}

func (c *Controller) writeRunLog(r *run) {
	p, err := c.deps.Artifacts.WriteString(r.WeekStart, storage.RunLogFile, r.Log.Markdown())
	if err != nil {
		r.log.WithError(err).Warn("failed to write run log")
		return
	}
	r.Artifacts = append(r.Artifacts, p)
}

// writeHaltLog removes outputs of an earlier run of the same week, which
// would otherwise look current, and writes the run log explaining the halt.
func (c *Controller) writeHaltLog(r *run) {
	if _, err := c.deps.Artifacts.Dir(r.WeekStart); err != nil {
		return
	}
	stale := []string{
		storage.DigestFile, storage.QAReportFile, storage.QAReportJSONFile, storage.MealPlanFile,
		storage.RecipesFile, storage.GroceryCSVFile, storage.GroceryJSONFile, storage.GroceryNotesFile,
		storage.ModificationsFile,
	}
	var present []string
	for _, name := range stale {
		if c.deps.Artifacts.Exists(r.WeekStart, name) {
			present = append(present, name)
		}
	}
	if len(present) > 0 {
		r.log.WithField("files", present).Info("removing artifacts of an earlier run")
		if err := c.deps.Artifacts.RemoveStale(r.WeekStart, present...); err != nil {
			r.log.WithError(err).Warn("failed to remove stale artifacts")
		}
	}
	c.writeRunLog(r)
}
