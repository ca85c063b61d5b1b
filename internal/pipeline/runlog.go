package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Stage statuses recorded in the run log.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
	StatusHalt = "HALT"
)

// StageRecord is one line of the run log.
type StageRecord struct {
	Stage  string    `json:"stage"`
	At     time.Time `json:"at"`
	Status string    `json:"status"`
	Note   string    `json:"note,omitempty"`
}

// RunLog records stage completions, defaults applied and fallbacks.
type RunLog struct {
	RunID     string        `json:"run_id"`
	WeekStart string        `json:"week_start"`
	Stages    []StageRecord `json:"stages"`
	Defaults  []string      `json:"defaults"`
	Fallbacks []string      `json:"fallbacks"`

	now func() time.Time
}

func newRunLog(runID, weekStart string, now func() time.Time) *RunLog {
	return &RunLog{RunID: runID, WeekStart: weekStart, now: now}
}

// Record appends a stage line stamped with the current UTC time.
func (l *RunLog) Record(stage, status, note string) {
	l.Stages = append(l.Stages, StageRecord{Stage: stage, At: l.now().UTC(), Status: status, Note: note})
}

// AddDefault records a labeled default.
func (l *RunLog) AddDefault(format string, args ...any) {
	l.Defaults = append(l.Defaults, fmt.Sprintf(format, args...))
}

// AddFallback records a fallback substitution.
func (l *RunLog) AddFallback(format string, args ...any) {
	l.Fallbacks = append(l.Fallbacks, fmt.Sprintf(format, args...))
}

// Stage returns the last record for stage.
func (l *RunLog) Stage(stage string) (StageRecord, bool) {
	for i := len(l.Stages) - 1; i >= 0; i-- {
		if l.Stages[i].Stage == stage {
			return l.Stages[i], true
		}
	}
	return StageRecord{}, false
}

// Markdown renders run_log.md.
func (l *RunLog) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run Log — %s\n\n", l.WeekStart)
	fmt.Fprintf(&b, "Run ID: %s\n\n", l.RunID)

	b.WriteString("## Stage Completions\n")
	for _, s := range l.Stages {
		note := ""
		if s.Note != "" {
			note = " — " + s.Note
		}
		fmt.Fprintf(&b, "- %s: %s — %s%s\n", s.Stage, s.At.Format(time.RFC3339), s.Status, note)
	}
	writeList(&b, "Defaults Applied", l.Defaults)
	writeList(&b, "Fallbacks", l.Fallbacks)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "\n## %s\n", title)
	if len(items) == 0 {
		b.WriteString("- None\n")
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}
