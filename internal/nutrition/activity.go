package nutrition

import "strings"

// DayType is the per-day training intensity classification.
type DayType string

const (
	DayHigh     DayType = "high"
	DayTraining DayType = "training"
	DayRest     DayType = "rest"
)

// Activity is the energy coefficient and day type for one activity label.
type Activity struct {
	DayType DayType
	MET     float64
	Hours   float64
}

// moderateActivity is used for labels missing from the table.
var moderateActivity = Activity{DayType: DayTraining, MET: 8, Hours: 1.5}

var restActivity = Activity{DayType: DayRest}

// activityTable maps normalized activity labels to their coefficients.
var activityTable = map[string]Activity{
	"rest":          restActivity,
	"off":           restActivity,
	"day off":       restActivity,
	"mobility":      restActivity,
	"stretching":    restActivity,
	"yoga":          restActivity,
	"walk":          restActivity,
	"zone 2":        {DayType: DayTraining, MET: 8, Hours: 1.5},
	"z2":            {DayType: DayTraining, MET: 8, Hours: 1.5},
	"endurance":     {DayType: DayTraining, MET: 8, Hours: 1.5},
	"easy ride":     {DayType: DayTraining, MET: 7, Hours: 1.5},
	"recovery ride": {DayType: DayTraining, MET: 5, Hours: 1},
	"easy run":      {DayType: DayTraining, MET: 8, Hours: 1},
	"run":           {DayType: DayTraining, MET: 9, Hours: 1},
	"swim":          {DayType: DayTraining, MET: 8, Hours: 1},
	"strength":      {DayType: DayTraining, MET: 6, Hours: 1},
	"gym":           {DayType: DayTraining, MET: 6, Hours: 1},
	"tempo":         {DayType: DayTraining, MET: 9, Hours: 1.5},
	"intervals":     {DayType: DayHigh, MET: 10, Hours: 2},
	"vo2":           {DayType: DayHigh, MET: 11, Hours: 1.5},
	"threshold":     {DayType: DayHigh, MET: 10, Hours: 1.5},
	"long ride":     {DayType: DayHigh, MET: 10, Hours: 3},
	"long run":      {DayType: DayHigh, MET: 10, Hours: 2},
	"race":          {DayType: DayHigh, MET: 12, Hours: 2},
	"group ride":    {DayType: DayHigh, MET: 10, Hours: 2},
}

// NormalizeLabel lowercases an activity label and folds '-' and '_' into
// single spaces.
func NormalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)
	return strings.Join(strings.Fields(label), " ")
}

// LookupActivity resolves a label. known is false when the label is not in
// the table and the moderate coefficient was used.
func LookupActivity(label string) (act Activity, known bool) {
	norm := NormalizeLabel(label)
	if norm == "" {
		return restActivity, true
	}
	if a, ok := activityTable[norm]; ok {
		return a, true
	}
	return moderateActivity, false
}
