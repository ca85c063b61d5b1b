// Package nutrition computes per-day energy and macro targets from the user
// profile, the weekly schedule and optional outcome signals.
package nutrition

import (
	"fmt"
	"math"
	"strings"

	"performance-meal-planner/internal/inputs"
)

const (
	kcalPerGramFat     = 9
	kcalPerGramCarb    = 4
	kcalPerGramProtein = 4

	// DefaultPAL is used when the profile carries no pal_value.
	DefaultPAL = 1.35

	fatFraction      = 0.25
	fatFractionFloor = 0.20

	cutOffsetKcal  = -300
	gainOffsetKcal = 200

	acwrThreshold  = 1.3
	acwrBufferKcal = 100

	proteinFloorGrams  = 120
	proteinFloorPerKG  = 1.6
	mastersAge         = 40
	mastersBonusPerKG  = 0.2
	proteinFactorCapKG = 2.3
)

// AssumptionACWRBuffer is logged whenever the high-ACWR buffer is applied.
const AssumptionACWRBuffer = "ACWR high — training day buffer applied."

// AssumptionNoMFP is logged when no MyFitnessPal averages were supplied.
const AssumptionNoMFP = "MFP data: not available; macro adherence tracking unavailable this week"

var proteinFactors = map[DayType]map[inputs.Goal]float64{
	DayHigh:     {inputs.GoalMaintain: 1.4, inputs.GoalGain: 1.8, inputs.GoalCut: 2.0},
	DayTraining: {inputs.GoalMaintain: 1.6, inputs.GoalGain: 1.8, inputs.GoalCut: 2.0},
	DayRest:     {inputs.GoalMaintain: 1.8, inputs.GoalGain: 1.8, inputs.GoalCut: 2.0},
}

// CarbRange is the permitted carbohydrate intake in g per kg body weight.
type CarbRange struct {
	Min float64
	Max float64
}

// CarbRanges holds the permitted range per day type.
var CarbRanges = map[DayType]CarbRange{
	DayHigh:     {Min: 6, Max: 12},
	DayTraining: {Min: 5, Max: 7},
	DayRest:     {Min: 3, Max: 5},
}

// MacroTarget is the energy and macro target of one day.
type MacroTarget struct {
	Date        string   `json:"date"`
	Activity    string   `json:"activity_type"`
	DayType     DayType  `json:"day_type"`
	WeekTier    WeekTier `json:"week_tier"`
	Kcal        float64  `json:"kcal"`
	ProteinG    float64  `json:"protein_g"`
	CarbsG      float64  `json:"carbs_g"`
	FatG        float64  `json:"fat_g"`
	FatFraction float64  `json:"fat_fraction"`
	Notes       []string `json:"notes,omitempty"`
}

// MacroKcal returns the energy implied by the day's macros.
func (m MacroTarget) MacroKcal() float64 {
	return m.ProteinG*kcalPerGramProtein + m.CarbsG*kcalPerGramCarb + m.FatG*kcalPerGramFat
}

// Targets is the output of ComputeTargets.
type Targets struct {
	Days        []MacroTarget `json:"days"`
	Tier        WeekTier      `json:"week_tier"`
	Counts      DayCounts     `json:"-"`
	RMR         float64       `json:"rmr"`
	PAL         float64       `json:"pal"`
	Assumptions []string      `json:"assumptions"`
}

// Policy carries the configurable parts of the engine.
type Policy struct {
	Tiers      TierPolicy
	DefaultPAL float64
}

// DefaultPolicy returns the default tier order and PAL.
func DefaultPolicy() Policy {
	return Policy{Tiers: DefaultTierPolicy(), DefaultPAL: DefaultPAL}
}

// InfeasibleError reports a configuration for which carbohydrates come out
// negative.
type InfeasibleError struct {
	Date     string
	DayType  DayType
	Kcal     float64
	ProteinG float64
	FatG     float64
	CarbsG   float64
	WeightKG float64
	Goal     inputs.Goal
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("infeasible macro configuration on %s (%s): kcal=%.0f protein_g=%.1f fat_g=%.1f yields carbs_g=%.1f (weight_kg=%.1f goal=%s)",
		e.Date, e.DayType, e.Kcal, e.ProteinG, e.FatG, e.CarbsG, e.WeightKG, e.Goal)
}

type assumptionLog struct {
	items []string
	seen  map[string]bool
}

func (l *assumptionLog) add(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if l.seen[msg] {
		return
	}
	l.seen[msg] = true
	l.items = append(l.items, msg)
}

// ComputeTargets derives the seven daily targets and the week tier. Every
// default applied is recorded in Targets.Assumptions. The only error is
// *InfeasibleError.
func ComputeTargets(profile inputs.UserProfile, week inputs.WeeklyContext, signals inputs.OutcomeSignals, policy Policy) (*Targets, error) {
	log := &assumptionLog{}

	rmr := restingMetabolicRate(profile, log)
	pal := policy.DefaultPAL
	if pal <= 0 {
		pal = DefaultPAL
	}
	if profile.PALValue != nil {
		pal = *profile.PALValue
	} else {
		log.add("pal_value absent: default PAL %.2f applied", pal)
	}

	acwrHigh := false
	if signals.ACWR == nil {
		log.add("acwr absent: no training day buffer applied")
	} else if *signals.ACWR > acwrThreshold {
		acwrHigh = true
	}
	labelMissingSignals(signals, log)

	acts := make([]Activity, len(week.Schedule))
	dayTypes := make([]DayType, len(week.Schedule))
	for i, day := range week.Schedule {
		act, known := LookupActivity(day.ActivityType)
		if !known {
			log.add("activity %q unmapped: treated as training with the moderate coefficient", day.ActivityType)
		}
		acts[i] = act
		dayTypes[i] = act.DayType
	}

	counts := CountDays(dayTypes)
	tier, matched := policy.Tiers.Classify(counts)
	if !matched {
		log.add("no week tier rule matched: defaulted to %s", TierBuild)
	}

	out := &Targets{Tier: tier, Counts: counts, RMR: rmr, PAL: pal}
	for i, day := range week.Schedule {
		act := acts[i]
		kcal := rmr*pal + rmr*act.MET*act.Hours/24 + goalOffset(profile.Goal)
		if acwrHigh && act.DayType != DayRest {
			kcal += acwrBufferKcal
			log.add(AssumptionACWRBuffer)
		}
		kcal = math.Round(kcal)

		mt, err := splitMacros(day.Date, act.DayType, kcal, profile)
		if err != nil {
			return nil, err
		}
		mt.Activity = day.ActivityType
		mt.WeekTier = tier
		out.Days = append(out.Days, mt)
	}
	out.Assumptions = log.items
	return out, nil
}

// labelMissingSignals records one default for every optional signal that
// was not supplied, so absence is never read as zero.
func labelMissingSignals(s inputs.OutcomeSignals, log *assumptionLog) {
	if s.AvgSleepHr == nil {
		log.add("avg_sleep_hr absent: no sleep guidance applied")
	}
	if s.AvgRHR == nil {
		log.add("avg_rhr absent: not recorded in history")
	}
	if s.TrainingLoad == nil {
		log.add("training_load absent: standard fuelling assumed")
	}
	if s.AlcoholFlag == nil {
		log.add("alcohol_flag absent: no alcohol adjustment applied")
	}
	if s.AlcoholUnits7d == nil {
		log.add("alcohol_units_7d absent: unit count not reported")
	}
	if s.MFP == nil || s.MFP.AvgKcal == nil {
		log.add(AssumptionNoMFP)
	}
}

func restingMetabolicRate(p inputs.UserProfile, log *assumptionLog) float64 {
	w, h, a := p.WeightKG, p.HeightCM, float64(p.Age)
	if p.BodyFatPct != nil {
		leanMass := w * (1 - *p.BodyFatPct/100)
		return 22*leanMass + 500
	}
	log.add("body_fat_pct absent: RMR estimated with Harris-Benedict")
	switch strings.ToLower(strings.TrimSpace(p.Sex)) {
	case "female", "f":
		return 655.0955 + 9.5634*w + 1.8496*h - 4.6756*a
	case "male", "m":
	default:
		log.add("sex %q not male or female: male Harris-Benedict equation used", p.Sex)
	}
	return 66.473 + 13.7516*w + 5.0033*h - 6.755*a
}

func goalOffset(g inputs.Goal) float64 {
	switch g {
	case inputs.GoalCut:
		return cutOffsetKcal
	case inputs.GoalGain:
		return gainOffsetKcal
	default:
		return 0
	}
}

// ProteinGrams returns the daily protein target for a day type.
func ProteinGrams(dt DayType, p inputs.UserProfile) float64 {
	factor := proteinFactors[dt][p.Goal]
	if factor == 0 {
		factor = proteinFactors[dt][inputs.GoalMaintain]
	}
	if p.Age >= mastersAge {
		factor = mastersFactor(factor)
	}
	protein := round1(p.WeightKG * factor)
	floor := math.Max(proteinFloorGrams, round1(p.WeightKG*proteinFloorPerKG))
	return math.Max(protein, floor)
}

// mastersFactor adds the age bonus to a goal factor, capped at
// proteinFactorCapKG.
func mastersFactor(factor float64) float64 {
	return math.Min(factor+mastersBonusPerKG, proteinFactorCapKG)
}

func splitMacros(date string, dt DayType, kcal float64, p inputs.UserProfile) (MacroTarget, error) {
	protein := ProteinGrams(dt, p)
	rng := CarbRanges[dt]

	frac := fatFraction
	fat := fatGrams(kcal, frac)
	carbs := carbGrams(kcal, protein, fat)
	var notes []string

	if carbs < rng.Min*p.WeightKG {
		frac = fatFractionFloor
		fat = fatGrams(kcal, frac)
		carbs = carbGrams(kcal, protein, fat)
		notes = append(notes, fmt.Sprintf("carbs below %.0f g/kg at 25%% fat: fat lowered to 20%%", rng.Min))
		if carbs >= 0 && carbs < rng.Min*p.WeightKG {
			notes = append(notes, fmt.Sprintf("carbs remain below %.0f g/kg after fat adjustment", rng.Min))
		}
	} else if carbs > rng.Max*p.WeightKG {
		notes = append(notes, fmt.Sprintf("carbs above %.0f g/kg kept", rng.Max))
	}

	if carbs < 0 {
		return MacroTarget{}, &InfeasibleError{
			Date: date, DayType: dt, Kcal: kcal, ProteinG: protein, FatG: fat, CarbsG: carbs,
			WeightKG: p.WeightKG, Goal: p.Goal,
		}
	}

	return MacroTarget{
		Date:        date,
		DayType:     dt,
		Kcal:        kcal,
		ProteinG:    protein,
		CarbsG:      carbs,
		FatG:        fat,
		FatFraction: frac,
		Notes:       notes,
	}, nil
}

// fatGrams rounds up to 0.1 g so the fat share never drops below frac.
func fatGrams(kcal, frac float64) float64 {
	return math.Ceil(kcal*frac/kcalPerGramFat*10-1e-9) / 10
}

func carbGrams(kcal, protein, fat float64) float64 {
	return round1((kcal - fat*kcalPerGramFat - protein*kcalPerGramProtein) / kcalPerGramCarb)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
