// Package inputs defines the per-run input records (profile, weekly context,
// outcome signals) and loads and validates them.
package inputs

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by every input record.
const DateLayout = "2006-01-02"

// Goal is the user's body-composition goal.
type Goal string

const (
	GoalMaintain Goal = "maintain"
	GoalCut      Goal = "cut"
	GoalGain     Goal = "gain"
)

// UserProfile is the immutable profile of the user for one run.
type UserProfile struct {
	UserID             string   `json:"user_id" yaml:"user_id" validate:"required"`
	Name               string   `json:"name" yaml:"name" validate:"required"`
	Age                int      `json:"age" yaml:"age" validate:"required,gt=0,lt=120"`
	Sex                string   `json:"sex" yaml:"sex" validate:"required"`
	WeightKG           float64  `json:"weight_kg" yaml:"weight_kg" validate:"required,gt=0"`
	HeightCM           float64  `json:"height_cm" yaml:"height_cm" validate:"required,gt=0"`
	Goal               Goal     `json:"goal" yaml:"goal" validate:"required,oneof=maintain cut gain"`
	BodyFatPct         *float64 `json:"body_fat_pct,omitempty" yaml:"body_fat_pct,omitempty" validate:"omitempty,gt=3,lt=60"`
	PALValue           *float64 `json:"pal_value,omitempty" yaml:"pal_value,omitempty" validate:"omitempty,gte=1,lte=3"`
	DietaryPreferences []string `json:"dietary_preferences,omitempty" yaml:"dietary_preferences,omitempty"`
	AvoidList          []string `json:"avoid_list,omitempty" yaml:"avoid_list,omitempty"`
	Allergies          []string `json:"allergies,omitempty" yaml:"allergies,omitempty"`
	CookingTimeMaxMin  *int     `json:"cooking_time_max_min,omitempty" yaml:"cooking_time_max_min,omitempty" validate:"omitempty,gt=0"`
	BudgetLevel        *string  `json:"budget_level,omitempty" yaml:"budget_level,omitempty" validate:"omitempty,oneof=low medium high"`
}

// RestrictedTerms returns the avoid list and allergies as one list.
func (p UserProfile) RestrictedTerms() []string {
	terms := make([]string, 0, len(p.AvoidList)+len(p.Allergies))
	terms = append(terms, p.AvoidList...)
	terms = append(terms, p.Allergies...)
	return terms
}

// ScheduleDay is one day of the weekly training schedule.
type ScheduleDay struct {
	Date         string `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	ActivityType string `json:"activity_type" yaml:"activity_type"`
	Notes        string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Time parses the day's date.
func (d ScheduleDay) Time() (time.Time, error) {
	return time.Parse(DateLayout, d.Date)
}

// WeeklyContext is the immutable weekly schedule for one run.
type WeeklyContext struct {
	WeekStart     string        `json:"week_start" yaml:"week_start" validate:"required,datetime=2006-01-02"`
	Timezone      string        `json:"timezone" yaml:"timezone" validate:"required"`
	TrainingFocus string        `json:"training_focus" yaml:"training_focus" validate:"required"`
	Schedule      []ScheduleDay `json:"schedule" yaml:"schedule" validate:"required,len=7,dive"`
}

// WeekStartTime parses week_start.
func (w WeeklyContext) WeekStartTime() (time.Time, error) {
	t, err := time.Parse(DateLayout, w.WeekStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid week_start %q: %w", w.WeekStart, err)
	}
	return t, nil
}

// MFPSummary holds MyFitnessPal weekly averages.
type MFPSummary struct {
	AvgKcal  *float64 `json:"avg_kcal,omitempty" yaml:"avg_kcal,omitempty"`
	ProteinG *float64 `json:"protein_g,omitempty" yaml:"protein_g,omitempty"`
	CarbsG   *float64 `json:"carbs_g,omitempty" yaml:"carbs_g,omitempty"`
	FatG     *float64 `json:"fat_g,omitempty" yaml:"fat_g,omitempty"`
}

// OutcomeSignals holds optional wearable and logging signals. Every field may
// be absent; absence is never treated as zero.
type OutcomeSignals struct {
	ACWR           *float64    `json:"acwr,omitempty" yaml:"acwr,omitempty" validate:"omitempty,gte=0"`
	AvgSleepHr     *float64    `json:"avg_sleep_hr,omitempty" yaml:"avg_sleep_hr,omitempty" validate:"omitempty,gte=0,lte=24"`
	AvgRHR         *float64    `json:"avg_rhr,omitempty" yaml:"avg_rhr,omitempty" validate:"omitempty,gt=0"`
	TrainingLoad   *string     `json:"training_load,omitempty" yaml:"training_load,omitempty" validate:"omitempty,oneof=low moderate high"`
	AlcoholFlag    *string     `json:"alcohol_flag,omitempty" yaml:"alcohol_flag,omitempty" validate:"omitempty,oneof=none light moderate heavy"`
	AlcoholUnits7d *float64    `json:"alcohol_units_7d,omitempty" yaml:"alcohol_units_7d,omitempty" validate:"omitempty,gte=0"`
	MFP            *MFPSummary `json:"mfp,omitempty" yaml:"mfp,omitempty"`
}

// Bundle groups the three records of one run.
type Bundle struct {
	Profile UserProfile
	Week    WeeklyContext
	Signals OutcomeSignals
}
