// Package recipe fills meal slots with recipes from an LLM and substitutes
// deterministic placeholders wherever the service falls short.
package recipe

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"

	"performance-meal-planner/internal/ingredient"
	"performance-meal-planner/internal/llm"
	"performance-meal-planner/internal/planner"
	"performance-meal-planner/internal/shared"
)

//go:embed filler_prompt.md
var fillerPrompt string

const agentName = "RecipeCurator"

// Options bounds the recipe service calls.
type Options struct {
	BatchSize int
	Timeout   time.Duration
	MaxResend int
}

// DefaultOptions are used for zero fields.
var DefaultOptions = Options{BatchSize: 14, Timeout: 60 * time.Second, MaxResend: 1}

// FallbackNote records why a slot received a placeholder.
type FallbackNote struct {
	MealID string
	Reason string
}

// FillResult holds one recipe per slot in slot order.
type FillResult struct {
	Recipes   []Recipe
	Fallbacks []FallbackNote
	Metas     []shared.AgentMeta
}

// Filler asks a text generator for recipes in batches.
type Filler struct {
	gen  llm.TextGenerator
	opts Options
	log  logrus.FieldLogger
	tmpl *template.Template
}

// NewFiller creates a Filler. gen may be nil, in which case every slot
// falls back.
func NewFiller(gen llm.TextGenerator, opts Options, log logrus.FieldLogger) (*Filler, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions.BatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions.Timeout
	}
	if opts.MaxResend < 0 {
		opts.MaxResend = 0
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	tmpl, err := template.New("filler").Funcs(template.FuncMap{"join": strings.Join}).Parse(fillerPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filler prompt: %w", err)
	}
	return &Filler{gen: gen, opts: opts, log: log, tmpl: tmpl}, nil
}

// wireRecipe is the record shape the service must return.
type wireRecipe struct {
	MealID           string       `json:"meal_id"`
	Date             string       `json:"date"`
	Slot             string       `json:"slot"`
	DayType          string       `json:"day_type"`
	Name             string       `json:"name"`
	URL              string       `json:"url"`
	CookTimeMin      int          `json:"cook_time_min"`
	BatchCook        bool         `json:"batch_cook"`
	Ingredients      []Ingredient `json:"ingredients"`
	Macros           Macros       `json:"macros"`
	SubstitutionNote string       `json:"substitution_note"`
}

type wireResponse struct {
	Recipes []wireRecipe `json:"recipes"`
}

// Fill returns exactly one recipe per slot. It never fails; every shortfall
// becomes a per-slot fallback with a reason.
func (f *Filler) Fill(ctx context.Context, slots []planner.MealSlot, c Constraints) FillResult {
	res := FillResult{Recipes: make([]Recipe, 0, len(slots))}
	restricted := c.Restricted()

	for start := 0; start < len(slots); start += f.opts.BatchSize {
		end := min(start+f.opts.BatchSize, len(slots))
		batch := slots[start:end]
		log := f.log.WithFields(logrus.Fields{"batch": start/f.opts.BatchSize + 1, "slots": len(batch)})

		if f.gen == nil {
			f.appendFallbacks(&res, batch, restricted, "no recipe service configured")
			continue
		}

		records, meta, err := f.requestBatch(ctx, batch, c)
		if meta.AgentName != "" {
			res.Metas = append(res.Metas, meta)
		}
		if err != nil {
			log.WithError(err).Warn("recipe batch failed, using fallback for batch")
			f.appendFallbacks(&res, batch, restricted, err.Error())
			continue
		}

		byID := make(map[string]wireRecipe, len(records))
		dup := make(map[string]bool)
		for _, rec := range records {
			if _, seen := byID[rec.MealID]; seen {
				dup[rec.MealID] = true
				continue
			}
			byID[rec.MealID] = rec
		}

		for _, slot := range batch {
			rec, ok := byID[slot.ID]
			var reason string
			switch {
			case !ok:
				reason = "no recipe returned for slot"
			case dup[slot.ID]:
				reason = "duplicate recipes returned for slot"
			default:
				reason = validateRecord(rec, restricted)
			}
			if reason != "" {
				log.WithField("meal_id", slot.ID).Warnf("invalid recipe record: %s", reason)
				f.appendFallbacks(&res, []planner.MealSlot{slot}, restricted, reason)
				continue
			}
			res.Recipes = append(res.Recipes, fromWire(slot, rec))
		}
	}

	MarkBatchCook(res.Recipes)
	return res
}

func (f *Filler) appendFallbacks(res *FillResult, slots []planner.MealSlot, restricted []string, reason string) {
	for _, s := range slots {
		res.Recipes = append(res.Recipes, Fallback(s, restricted, reason))
		res.Fallbacks = append(res.Fallbacks, FallbackNote{MealID: s.ID, Reason: reason})
	}
}

// requestBatch performs the call, resending at most MaxResend times when the
// call itself fails. A response that does not decode is not resent.
func (f *Filler) requestBatch(ctx context.Context, batch []planner.MealSlot, c Constraints) ([]wireRecipe, shared.AgentMeta, error) {
	prompt, err := f.buildPrompt(batch, c)
	if err != nil {
		return nil, shared.AgentMeta{}, err
	}

	start := time.Now()
	var resp llm.ContentResponse
	var usage shared.TokenUsage
	for attempt := 0; attempt <= f.opts.MaxResend; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
		resp, err = f.gen.GenerateContent(callCtx, prompt)
		cancel()
		usage = usage.Add(resp.Usage)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	meta := shared.AgentMeta{AgentName: agentName, Usage: usage, Latency: time.Since(start)}
	if err != nil {
		return nil, meta, fmt.Errorf("recipe service call failed: %w", err)
	}

	records, err := decodeStrict(resp.Content)
	if err != nil {
		return nil, meta, fmt.Errorf("malformed recipe response: %w", err)
	}
	return records, meta, nil
}

// decodeStrict accepts exactly one JSON object with a "recipes" array and no
// unknown fields or trailing data.
func decodeStrict(content string) ([]wireRecipe, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()
	var out wireResponse
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after response object")
	}
	if out.Recipes == nil {
		return nil, fmt.Errorf("missing recipes array")
	}
	return out.Recipes, nil
}

// validateRecord returns an empty string for a usable record, otherwise the
// reason it was rejected.
func validateRecord(rec wireRecipe, restricted []string) string {
	if strings.TrimSpace(rec.Name) == "" {
		return "empty recipe name"
	}
	link := strings.TrimSpace(rec.URL)
	if link != FallbackMarker && !LooksLikeURL(link) {
		return fmt.Sprintf("link %q is neither a URL nor %s", rec.URL, FallbackMarker)
	}
	if link != FallbackMarker && len(rec.Ingredients) == 0 {
		return "no ingredients"
	}
	for _, term := range restricted {
		if ingredient.Mentions(rec.Name, term) {
			return fmt.Sprintf("name contains restricted term %q", term)
		}
		for _, ing := range rec.Ingredients {
			if ingredient.Mentions(ing.Name, term) {
				return fmt.Sprintf("ingredient %q contains restricted term %q", ing.Name, term)
			}
		}
	}
	for _, ing := range rec.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return "ingredient without a name"
		}
	}
	return ""
}

func fromWire(slot planner.MealSlot, rec wireRecipe) Recipe {
	ings := rec.Ingredients
	if ings == nil {
		ings = []Ingredient{}
	}
	return Recipe{
		MealID:           slot.ID,
		Date:             slot.Date,
		Slot:             slot.Slot,
		DayType:          slot.DayType,
		Name:             strings.TrimSpace(rec.Name),
		Link:             strings.TrimSpace(rec.URL),
		Ingredients:      ings,
		Macros:           rec.Macros,
		BatchCook:        rec.BatchCook,
		CookTimeMin:      rec.CookTimeMin,
		SubstitutionNote: rec.SubstitutionNote,
	}
}

type promptData struct {
	Marker      string
	Constraints Constraints
	Slots       []planner.MealSlot
}

func (f *Filler) buildPrompt(batch []planner.MealSlot, c Constraints) (string, error) {
	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, promptData{Marker: FallbackMarker, Constraints: c, Slots: batch}); err != nil {
		return "", fmt.Errorf("failed to render filler prompt: %w", err)
	}
	return buf.String(), nil
}
