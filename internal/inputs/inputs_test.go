package inputs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBundle() Bundle {
	b := Bundle{
		Profile: UserProfile{
			UserID: "u1", Name: "Rider", Age: 32, Sex: "male",
			WeightKG: 74, HeightCM: 178, Goal: GoalMaintain,
		},
		Week: WeeklyContext{WeekStart: "2026-03-02", Timezone: "Europe/London", TrainingFocus: "endurance"},
	}
	for _, d := range []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06", "2026-03-07", "2026-03-08"} {
		b.Week.Schedule = append(b.Week.Schedule, ScheduleDay{Date: d, ActivityType: "rest"})
	}
	return b
}

func TestValidate(t *testing.T) {
	t.Run("valid bundle", func(t *testing.T) {
		assert.NoError(t, Validate(validBundle()))
	})

	t.Run("missing user id", func(t *testing.T) {
		b := validBundle()
		b.Profile.UserID = ""
		err := Validate(b)

		var fe *FieldError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "user_profile", fe.Record)
		assert.Equal(t, "user_id", fe.Field)
		assert.Equal(t, "user_profile: missing required field 'user_id'", err.Error())
	})

	t.Run("missing week start", func(t *testing.T) {
		b := validBundle()
		b.Week.WeekStart = ""
		var fe *FieldError
		require.True(t, errors.As(Validate(b), &fe))
		assert.Equal(t, "week_start", fe.Field)
	})

	t.Run("bad goal", func(t *testing.T) {
		b := validBundle()
		b.Profile.Goal = "bulk"
		var fe *FieldError
		require.True(t, errors.As(Validate(b), &fe))
		assert.Equal(t, "goal", fe.Field)
		assert.Equal(t, "oneof", fe.Rule)
	})

	t.Run("six day schedule", func(t *testing.T) {
		b := validBundle()
		b.Week.Schedule = b.Week.Schedule[:6]
		var fe *FieldError
		require.True(t, errors.As(Validate(b), &fe))
		assert.Equal(t, "schedule", fe.Field)
	})

	t.Run("gap in dates", func(t *testing.T) {
		b := validBundle()
		b.Week.Schedule[3].Date = "2026-03-09"
		var fe *FieldError
		require.True(t, errors.As(Validate(b), &fe))
		assert.Equal(t, "schedule[3].date", fe.Field)
		assert.Equal(t, "consecutive", fe.Rule)
	})

	t.Run("bad signal enum", func(t *testing.T) {
		b := validBundle()
		load := "extreme"
		b.Signals.TrainingLoad = &load
		var fe *FieldError
		require.True(t, errors.As(Validate(b), &fe))
		assert.Equal(t, "outcome_signals", fe.Record)
		assert.Equal(t, "training_load", fe.Field)
	})
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	profile := `{"user_id":"u1","name":"Rider","age":41,"sex":"female","weight_kg":61.5,"height_cm":168,"goal":"cut","avoid_list":["bell peppers"]}`
	week := `
week_start: "2026-03-02"
timezone: UTC
training_focus: threshold
schedule:
  - {date: "2026-03-02", activity_type: intervals}
  - {date: "2026-03-03", activity_type: rest}
  - {date: "2026-03-04", activity_type: zone 2}
  - {date: "2026-03-05", activity_type: rest}
  - {date: "2026-03-06", activity_type: tempo}
  - {date: "2026-03-07", activity_type: long ride}
  - {date: "2026-03-08", activity_type: rest}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProfileFile), []byte(profile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ContextFile), []byte(week), 0o644))

	b, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 61.5, b.Profile.WeightKG)
	assert.Equal(t, []string{"bell peppers"}, b.Profile.RestrictedTerms())
	assert.Nil(t, b.Profile.BodyFatPct)
	assert.Len(t, b.Week.Schedule, 7)
	assert.Nil(t, b.Signals.ACWR)
	assert.NoError(t, Validate(b))

	signals := `{"acwr": 0, "avg_sleep_hr": 6.5}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, SignalsFile), []byte(signals), 0o644))
	b, err = LoadDir(dir)
	require.NoError(t, err)
	require.NotNil(t, b.Signals.ACWR)
	assert.Equal(t, 0.0, *b.Signals.ACWR)
	assert.Equal(t, 6.5, *b.Signals.AvgSleepHr)
}

func TestLoadDir_MissingProfile(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.Error(t, err)
}
