package history

import (
	"context"
	"fmt"
	"strings"

	"performance-meal-planner/internal/planner"
)

// DefaultThreshold is the number of prior weeks needed before analysis may run.
const DefaultThreshold = 4

// MaxModifications caps the changes one analysis may propose.
const MaxModifications = 3

// Confidence levels of an analysis.
const (
	ConfidenceInsufficient = "insufficient"
	ConfidenceInactive     = "inactive"
	ConfidenceAnalyzed     = "analyzed"
)

// CausalityNote accompanies every analyst section.
const CausalityNote = "These signals are correlational, not causal. Training load, sleep environment, and stress are not fully controlled."

// Analyzer proposes plan modifications from past weeks.
type Analyzer interface {
	Propose(ctx context.Context, past []Row, plan *planner.MealPlan) ([]planner.Modification, error)
}

// Analysis is the outcome of the analysis gate.
type Analysis struct {
	Confidence         string                 `json:"data_confidence"`
	WeeksAvailable     int                    `json:"weeks_available"`
	Threshold          int                    `json:"threshold"`
	RevisionAuthorized bool                   `json:"revision_pass_authorized"`
	Modifications      []planner.Modification `json:"modifications"`
	Note               string                 `json:"note"`
}

// Gate decides whether past weeks support analysis and runs the Analyzer
// when they do.
type Gate struct {
	store     *Store
	analyzer  Analyzer
	threshold int
}

// NewGate creates a Gate. A nil analyzer keeps the stage inactive at any
// row count; threshold <= 0 uses DefaultThreshold.
func NewGate(store *Store, analyzer Analyzer, threshold int) *Gate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Gate{store: store, analyzer: analyzer, threshold: threshold}
}

// Analyze counts weeks recorded before weekStart. Below the threshold the
// result is insufficient with zero modifications and no revision.
func (g *Gate) Analyze(ctx context.Context, weekStart string, plan *planner.MealPlan) (Analysis, error) {
	n, err := g.store.CountBefore(ctx, weekStart)
	if err != nil {
		return Analysis{}, err
	}
	a := Analysis{
		Confidence:     ConfidenceInsufficient,
		WeeksAvailable: n,
		Threshold:      g.threshold,
		Modifications:  []planner.Modification{},
	}
	if n < g.threshold {
		a.Note = fmt.Sprintf("Insufficient historical data: %d prior week(s) recorded (minimum %d required to activate analysis).", n, g.threshold)
		return a, nil
	}
	if g.analyzer == nil {
		a.Confidence = ConfidenceInactive
		a.Note = fmt.Sprintf("%d prior weeks recorded; analysis is not enabled.", n)
		return a, nil
	}

	past, err := g.store.Recent(ctx, n+1)
	if err != nil {
		return Analysis{}, err
	}
	prior := past[:0]
	for _, r := range past {
		if r.WeekStart < weekStart {
			prior = append(prior, r)
		}
	}
	mods, err := g.analyzer.Propose(ctx, prior, plan)
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to run analyzer: %w", err)
	}
	if len(mods) > MaxModifications {
		mods = mods[:MaxModifications]
	}
	a.Confidence = ConfidenceAnalyzed
	a.Modifications = append(a.Modifications, mods...)
	a.RevisionAuthorized = len(mods) > 0
	a.Note = fmt.Sprintf("%d prior weeks analyzed; %d modification(s) proposed.", n, len(mods))
	return a, nil
}

// Notes renders the Data Analyst Notes section body.
func (a Analysis) Notes() string {
	var b strings.Builder
	if len(a.Modifications) == 0 {
		reason := "insufficient historical data"
		if a.Confidence != ConfidenceInsufficient {
			reason = "no modifications proposed"
		}
		fmt.Fprintf(&b, "**Modifications applied to this plan:** None (%s)\n\n", reason)
		fmt.Fprintf(&b, "*%s*\n\n", a.Note)
		if a.Confidence == ConfidenceInsufficient {
			fmt.Fprintf(&b, "*Analysis activates after %d weeks of history.*\n\n", a.Threshold)
		}
	} else {
		fmt.Fprintf(&b, "**Modifications applied to this plan:** %d of %d max\n\n", len(a.Modifications), MaxModifications)
		for _, m := range a.Modifications {
			fmt.Fprintf(&b, "- %s: %s (confidence: %s)\n", m.MealID, m.ProposedValue, m.Confidence)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "*%s*", CausalityNote)
	return b.String()
}
