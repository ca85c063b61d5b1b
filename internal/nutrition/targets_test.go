package nutrition

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"performance-meal-planner/internal/inputs"
)

func ptr[T any](v T) *T { return &v }

func testProfile() inputs.UserProfile {
	return inputs.UserProfile{
		UserID:   "u1",
		Name:     "Test Rider",
		Age:      32,
		Sex:      "male",
		WeightKG: 74,
		HeightCM: 178,
		Goal:     inputs.GoalMaintain,
	}
}

func testWeek(labels ...string) inputs.WeeklyContext {
	dates := []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06", "2026-03-07", "2026-03-08"}
	w := inputs.WeeklyContext{WeekStart: dates[0], Timezone: "UTC", TrainingFocus: "endurance"}
	for i, d := range dates {
		w.Schedule = append(w.Schedule, inputs.ScheduleDay{Date: d, ActivityType: labels[i]})
	}
	return w
}

func TestComputeTargets_RecoveryWeekHarrisBenedict(t *testing.T) {
	week := testWeek("zone 2", "rest", "rest", "rest", "rest", "rest", "rest")

	got, err := ComputeTargets(testProfile(), week, inputs.OutcomeSignals{}, DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, got.Days, 7)

	assert.Equal(t, TierRecovery, got.Tier)
	hb := 66.473 + 13.7516*74 + 5.0033*178 - 6.755*32
	assert.InDelta(t, hb, got.RMR, 1e-9)
	assert.Equal(t, DefaultPAL, got.PAL)

	rest := got.Days[1]
	assert.Equal(t, DayRest, rest.DayType)
	assert.Equal(t, 133.2, rest.ProteinG)
	assert.Equal(t, math.Round(hb*1.35), rest.Kcal)

	training := got.Days[0]
	assert.Equal(t, DayTraining, training.DayType)
	assert.Equal(t, math.Round(hb*1.35+hb*8*1.5/24), training.Kcal)
	// 1.6 g/kg is below the 120 g floor.
	assert.Equal(t, 120.0, training.ProteinG)

	assert.Contains(t, got.Assumptions, "body_fat_pct absent: RMR estimated with Harris-Benedict")
	assert.Contains(t, got.Assumptions, "pal_value absent: default PAL 1.35 applied")
}

func TestComputeTargets_ACWRBuffer(t *testing.T) {
	week := testWeek("zone 2", "rest", "intervals", "rest", "endurance", "rest", "rest")

	base, err := ComputeTargets(testProfile(), week, inputs.OutcomeSignals{ACWR: ptr(1.0)}, DefaultPolicy())
	require.NoError(t, err)
	high, err := ComputeTargets(testProfile(), week, inputs.OutcomeSignals{ACWR: ptr(1.7)}, DefaultPolicy())
	require.NoError(t, err)

	for i := range week.Schedule {
		diff := high.Days[i].Kcal - base.Days[i].Kcal
		if base.Days[i].DayType == DayRest {
			assert.Equal(t, 0.0, diff, "day %d", i)
		} else {
			assert.Equal(t, 100.0, diff, "day %d", i)
		}
	}
	assert.Contains(t, high.Assumptions, AssumptionACWRBuffer)
	assert.NotContains(t, base.Assumptions, AssumptionACWRBuffer)
}

func TestComputeTargets_Invariants(t *testing.T) {
	schedules := [][]string{
		{"rest", "rest", "rest", "rest", "rest", "rest", "rest"},
		{"intervals", "race", "long ride", "rest", "zone 2", "vo2", "threshold"},
		{"zone 2", "strength", "endurance", "rest", "tempo", "rest", "swim"},
		{"kite surfing", "", "yoga", "RUN", "long-run", "Easy_Ride", "rest"},
	}
	profiles := []inputs.UserProfile{
		testProfile(),
		{UserID: "f", Name: "F", Age: 45, Sex: "female", WeightKG: 58, HeightCM: 165, Goal: inputs.GoalCut},
		{UserID: "g", Name: "G", Age: 24, Sex: "male", WeightKG: 90, HeightCM: 190, Goal: inputs.GoalGain, BodyFatPct: ptr(14.0), PALValue: ptr(1.6)},
	}

	for _, p := range profiles {
		for _, s := range schedules {
			got, err := ComputeTargets(p, testWeek(s...), inputs.OutcomeSignals{ACWR: ptr(1.5)}, DefaultPolicy())
			require.NoError(t, err)
			require.Len(t, got.Days, 7)
			for _, d := range got.Days {
				assert.Greater(t, d.Kcal, 0.0)
				assert.Equal(t, d.Kcal, math.Round(d.Kcal))
				assert.GreaterOrEqual(t, d.FatG*9, 0.2*d.Kcal-1e-9, "fat share on %s", d.Date)
				assert.InDelta(t, d.Kcal, d.MacroKcal(), 1.0, "identity on %s", d.Date)
				assert.GreaterOrEqual(t, d.ProteinG, math.Max(120, p.WeightKG*1.6)-0.05)
				assert.GreaterOrEqual(t, d.CarbsG, 0.0)
				assert.Equal(t, got.Tier, d.WeekTier)
			}
		}
	}
}

func TestComputeTargets_UnmappedActivity(t *testing.T) {
	week := testWeek("kite surfing", "rest", "rest", "rest", "rest", "rest", "")

	got, err := ComputeTargets(testProfile(), week, inputs.OutcomeSignals{}, DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, DayTraining, got.Days[0].DayType)
	assert.Equal(t, DayRest, got.Days[6].DayType)
	assert.Contains(t, got.Assumptions, `activity "kite surfing" unmapped: treated as training with the moderate coefficient`)
}

func TestComputeTargets_Cunningham(t *testing.T) {
	p := testProfile()
	p.BodyFatPct = ptr(15.0)

	got, err := ComputeTargets(p, testWeek("rest", "rest", "rest", "rest", "rest", "rest", "rest"), inputs.OutcomeSignals{}, DefaultPolicy())
	require.NoError(t, err)
	assert.InDelta(t, 22*74*0.85+500, got.RMR, 1e-9)
	assert.NotContains(t, got.Assumptions, "body_fat_pct absent: RMR estimated with Harris-Benedict")
}

func TestComputeTargets_Infeasible(t *testing.T) {
	p := inputs.UserProfile{UserID: "x", Name: "X", Age: 110, Sex: "male", WeightKG: 40, HeightCM: 100, Goal: inputs.GoalCut, PALValue: ptr(1.0)}

	_, err := ComputeTargets(p, testWeek("rest", "rest", "rest", "rest", "rest", "rest", "rest"), inputs.OutcomeSignals{}, DefaultPolicy())
	require.Error(t, err)

	var infeasible *InfeasibleError
	require.True(t, errors.As(err, &infeasible))
	assert.Less(t, infeasible.CarbsG, 0.0)
	assert.Equal(t, 120.0, infeasible.ProteinG)
	assert.Contains(t, err.Error(), "infeasible macro configuration")
}

func TestComputeTargets_FatLoweredWhenCarbsShort(t *testing.T) {
	// A low-energy cut on a high day leaves carbs under 6 g/kg at 25% fat.
	p := inputs.UserProfile{UserID: "f", Name: "F", Age: 60, Sex: "female", WeightKG: 58, HeightCM: 165, Goal: inputs.GoalCut, PALValue: ptr(1.2)}
	week := testWeek("intervals", "rest", "rest", "rest", "rest", "rest", "rest")

	got, err := ComputeTargets(p, week, inputs.OutcomeSignals{}, DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, 0.20, got.Days[0].FatFraction)
	assert.NotEmpty(t, got.Days[0].Notes)
}

func TestProteinGrams_MastersBonusCapped(t *testing.T) {
	p := testProfile()
	p.Age = 45
	p.Goal = inputs.GoalCut
	p.WeightKG = 80

	// 2.0 + 0.2 stays under the cap.
	assert.Equal(t, 176.0, ProteinGrams(DayRest, p))

	p.Goal = inputs.GoalMaintain
	assert.Equal(t, 160.0, ProteinGrams(DayRest, p))
	// 1.4 + 0.2 = 1.6 g/kg equals the floor.
	assert.Equal(t, 128.0, ProteinGrams(DayHigh, p))
}

func TestMastersFactor_Cap(t *testing.T) {
	assert.InDelta(t, 2.2, mastersFactor(2.0), 1e-9)
	assert.InDelta(t, 2.3, mastersFactor(2.1), 1e-9)
	assert.InDelta(t, 2.3, mastersFactor(2.2), 1e-9)
	assert.InDelta(t, 2.3, mastersFactor(2.5), 1e-9)
	assert.Equal(t, 2.3, proteinFactorCapKG)
}

func TestLookupActivity_DayType(t *testing.T) {
	tests := []struct {
		label string
		want  DayType
	}{
		{"", DayRest},
		{"Rest", DayRest},
		{"zone-2", DayTraining},
		{"Zone_2", DayTraining},
		{"Long Ride", DayHigh},
		{"intervals", DayHigh},
		{"underwater hockey", DayTraining},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			act, _ := LookupActivity(tt.label)
			assert.Equal(t, tt.want, act.DayType)
		})
	}
}

func TestComputeTargets_LabelsMissingSignals(t *testing.T) {
	week := testWeek("zone 2", "rest", "rest", "rest", "rest", "rest", "rest")
	signalDefaults := []string{
		"acwr absent: no training day buffer applied",
		"avg_sleep_hr absent: no sleep guidance applied",
		"avg_rhr absent: not recorded in history",
		"training_load absent: standard fuelling assumed",
		"alcohol_units_7d absent: unit count not reported",
		AssumptionNoMFP,
	}

	got, err := ComputeTargets(testProfile(), week, inputs.OutcomeSignals{AlcoholFlag: ptr("heavy")}, DefaultPolicy())
	require.NoError(t, err)
	for _, want := range signalDefaults {
		assert.Contains(t, got.Assumptions, want)
	}
	assert.NotContains(t, got.Assumptions, "alcohol_flag absent: no alcohol adjustment applied")

	got, err = ComputeTargets(testProfile(), week, inputs.OutcomeSignals{}, DefaultPolicy())
	require.NoError(t, err)
	assert.Contains(t, got.Assumptions, "alcohol_flag absent: no alcohol adjustment applied")

	full := inputs.OutcomeSignals{
		ACWR:           ptr(1.0),
		AvgSleepHr:     ptr(7.5),
		AvgRHR:         ptr(48.0),
		TrainingLoad:   ptr("moderate"),
		AlcoholFlag:    ptr("none"),
		AlcoholUnits7d: ptr(0.0),
		MFP:            &inputs.MFPSummary{AvgKcal: ptr(2400.0)},
	}
	got, err = ComputeTargets(testProfile(), week, full, DefaultPolicy())
	require.NoError(t, err)
	for _, d := range append(signalDefaults, "alcohol_flag absent: no alcohol adjustment applied") {
		assert.NotContains(t, got.Assumptions, d)
	}
}

func TestRationale_AlcoholWithoutUnits(t *testing.T) {
	week := testWeek("intervals", "rest", "intervals", "rest", "intervals", "rest", "zone 2")
	signals := inputs.OutcomeSignals{AlcoholFlag: ptr("heavy")}
	targets, err := ComputeTargets(testProfile(), week, signals, DefaultPolicy())
	require.NoError(t, err)

	lines := Rationale(testProfile(), week, signals, targets)
	var alcohol string
	for _, l := range lines {
		assert.NotContains(t, l, "end of each daily range")
		if strings.HasPrefix(l, "Alcohol:") {
			alcohol = l
		}
	}
	assert.Equal(t, "Alcohol: heavy intake reported for the last 7 days, units not logged. Extra hydration and protein at breakfast are planned.", alcohol)
	assert.NotContains(t, alcohol, "0.0 units")

	signals.AlcoholUnits7d = ptr(9.0)
	lines = Rationale(testProfile(), week, signals, targets)
	assert.Contains(t, lines, "Alcohol: 9.0 units in the last 7 days (heavy). Extra hydration and protein at breakfast are planned.")
	assert.Contains(t, lines, fmt.Sprintf("Week pattern: %d high-intensity, %d training, %d rest. Week tier is '%s'.",
		targets.Counts.High, targets.Counts.Training, targets.Counts.Rest, targets.Tier))
}
