package nutrition

import (
	"fmt"
	"math"

	"performance-meal-planner/internal/inputs"
)

// WeeklySummary holds the averages reported in the digest and history.
type WeeklySummary struct {
	AvgKcal          float64 `json:"avg_kcal"`
	AvgProteinG      float64 `json:"avg_protein_g"`
	AvgCarbsG        float64 `json:"avg_carbs_g"`
	AvgFatG          float64 `json:"avg_fat_g"`
	AvgCarbsTraining float64 `json:"avg_carbs_g_training"`
	AvgCarbsRest     float64 `json:"avg_carbs_g_rest"`
}

// Summary averages the daily targets. Training carbs cover high and training
// days.
func (t *Targets) Summary() WeeklySummary {
	var s WeeklySummary
	if len(t.Days) == 0 {
		return s
	}
	var trainCarbs, restCarbs float64
	var trainN, restN int
	for _, d := range t.Days {
		s.AvgKcal += d.Kcal
		s.AvgProteinG += d.ProteinG
		s.AvgCarbsG += d.CarbsG
		s.AvgFatG += d.FatG
		if d.DayType == DayRest {
			restCarbs += d.CarbsG
			restN++
		} else {
			trainCarbs += d.CarbsG
			trainN++
		}
	}
	n := float64(len(t.Days))
	s.AvgKcal = math.Round(s.AvgKcal / n)
	s.AvgProteinG = round1(s.AvgProteinG / n)
	s.AvgCarbsG = round1(s.AvgCarbsG / n)
	s.AvgFatG = round1(s.AvgFatG / n)
	if trainN > 0 {
		s.AvgCarbsTraining = round1(trainCarbs / float64(trainN))
	}
	if restN > 0 {
		s.AvgCarbsRest = round1(restCarbs / float64(restN))
	}
	return s
}

// Rationale returns the plan rationale bullets for the week.
func Rationale(profile inputs.UserProfile, week inputs.WeeklyContext, signals inputs.OutcomeSignals, t *Targets) []string {
	var out []string

	rmrMethod := "Harris-Benedict"
	if profile.BodyFatPct != nil {
		rmrMethod = "Cunningham"
	}
	out = append(out, fmt.Sprintf("Goal: %s. Calorie targets use %s RMR with PAL %.2f plus training expenditure.",
		profile.Goal, rmrMethod, t.PAL))

	out = append(out, fmt.Sprintf("Week pattern: %d high-intensity, %d training, %d rest. Week tier is '%s'.",
		t.Counts.High, t.Counts.Training, t.Counts.Rest, t.Tier))

	proteinNote := "standard endurance athlete range"
	if profile.Age >= mastersAge {
		proteinNote = "raised by 0.2 g/kg for age 40+"
	}
	out = append(out, fmt.Sprintf("Protein scales with day type at %.0f kg body weight (%s). Rest days carry more protein and fewer carbs.",
		profile.WeightKG, proteinNote))

	structure := "consistent moderate carbs across training days"
	if t.Counts.High > 0 {
		structure = "carb periodization: high on intensity days, moderate on endurance days, lower on rest days"
	}
	out = append(out, fmt.Sprintf("Training focus: %s. Meal structure supports it with %s.", week.TrainingFocus, structure))

	load := ""
	if signals.TrainingLoad != nil {
		load = *signals.TrainingLoad
	}
	switch {
	case signals.ACWR != nil && *signals.ACWR > acwrThreshold:
		out = append(out, fmt.Sprintf("Training load is high (ACWR %.2f). About 100 kcal was added on training days to support recovery.", *signals.ACWR))
	case load == "high":
		out = append(out, "Training load is reported high. Watch for fatigue and reduce load if energy drops.")
	case load == "moderate":
		out = append(out, "Training load is moderate. Standard fuelling applied.")
	}

	if signals.AvgSleepHr != nil {
		sleep := *signals.AvgSleepHr
		if sleep < 7 {
			out = append(out, fmt.Sprintf("Sleep average %.1f h is below the 7 h target. Earlier dinners on rest days and magnesium-rich foods may help.", sleep))
		} else if sleep >= 8 {
			out = append(out, fmt.Sprintf("Sleep average %.1f h is good. Meal timing is unchanged.", sleep))
		}
	}

	if signals.AlcoholFlag != nil {
		flag := *signals.AlcoholFlag
		intake := fmt.Sprintf("%s intake reported for the last 7 days, units not logged", flag)
		if signals.AlcoholUnits7d != nil {
			intake = fmt.Sprintf("%.1f units in the last 7 days (%s)", *signals.AlcoholUnits7d, flag)
		}
		switch flag {
		case "moderate", "heavy":
			out = append(out, fmt.Sprintf("Alcohol: %s. Extra hydration and protein at breakfast are planned.", intake))
		case "light":
			if signals.AlcoholUnits7d != nil && *signals.AlcoholUnits7d > 0 {
				out = append(out, fmt.Sprintf("Alcohol: %s. Keep hydration up.", intake))
			}
		}
	}
	return out
}
