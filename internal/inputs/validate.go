package inputs

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FieldError reports the first input field that failed validation.
type FieldError struct {
	Record string
	Field  string
	Rule   string
}

func (e *FieldError) Error() string {
	if e.Rule == "required" {
		return fmt.Sprintf("%s: missing required field '%s'", e.Record, e.Field)
	}
	return fmt.Sprintf("%s: field '%s' failed rule '%s'", e.Record, e.Field, e.Rule)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks all three records. It returns a *FieldError naming the
// first offending field.
func Validate(b Bundle) error {
	if err := validateRecord("user_profile", b.Profile); err != nil {
		return err
	}
	if err := validateRecord("weekly_context", b.Week); err != nil {
		return err
	}
	if err := validateSchedule(b.Week); err != nil {
		return err
	}
	return validateRecord("outcome_signals", b.Signals)
}

func validateRecord(record string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%s: validation failed: %w", record, err)
	}
	first := verrs[0]
	return &FieldError{Record: record, Field: fieldPath(first.Namespace()), Rule: first.Tag()}
}

// fieldPath strips the struct name from a validator namespace,
// e.g. "WeeklyContext.schedule[2].date" -> "schedule[2].date".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// validateSchedule enforces seven consecutive dates beginning at week_start.
func validateSchedule(w WeeklyContext) error {
	start, err := w.WeekStartTime()
	if err != nil {
		return &FieldError{Record: "weekly_context", Field: "week_start", Rule: "datetime"}
	}
	for i, day := range w.Schedule {
		d, err := day.Time()
		if err != nil {
			return &FieldError{Record: "weekly_context", Field: fmt.Sprintf("schedule[%d].date", i), Rule: "datetime"}
		}
		if !d.Equal(start.AddDate(0, 0, i)) {
			return &FieldError{Record: "weekly_context", Field: fmt.Sprintf("schedule[%d].date", i), Rule: "consecutive"}
		}
	}
	return nil
}

// Dates returns the seven schedule dates.
func (w WeeklyContext) Dates() []time.Time {
	out := make([]time.Time, 0, len(w.Schedule))
	for _, d := range w.Schedule {
		t, _ := d.Time()
		out = append(out, t)
	}
	return out
}
