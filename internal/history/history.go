// Package history keeps one summary row per planned week and decides when
// the week-over-week analysis stage may run.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"performance-meal-planner/internal/inputs"
	"performance-meal-planner/internal/nutrition"
)

// Row summarizes one completed run.
type Row struct {
	WeekStart      string   `json:"week_start"`
	WeekTier       string   `json:"week_tier"`
	AvgKcal        float64  `json:"avg_kcal"`
	AvgProteinG    float64  `json:"avg_protein_g"`
	AvgCarbsG      float64  `json:"avg_carbs_g"`
	AvgFatG        float64  `json:"avg_fat_g"`
	TrainingDays   int      `json:"training_days"`
	RestDays       int      `json:"rest_days"`
	HighDays       int      `json:"high_days"`
	AvgSleepHr     *float64 `json:"avg_sleep_hr,omitempty"`
	AvgRHR         *float64 `json:"avg_rhr,omitempty"`
	ACWR           *float64 `json:"acwr,omitempty"`
	TrainingLoad   *string  `json:"training_load,omitempty"`
	AlcoholUnits7d *float64 `json:"alcohol_units_7d,omitempty"`
	AlcoholFlag    *string  `json:"alcohol_flag,omitempty"`
	MFPAvgKcal     *float64 `json:"mfp_avg_kcal,omitempty"`
	MFPProteinG    *float64 `json:"mfp_protein_g,omitempty"`
	Notes          string   `json:"notes"`
}

// NewRow builds the row for a run from its targets and signals.
func NewRow(weekStart string, t *nutrition.Targets, s inputs.OutcomeSignals, notes string) Row {
	sum := t.Summary()
	row := Row{
		WeekStart:      weekStart,
		WeekTier:       string(t.Tier),
		AvgKcal:        sum.AvgKcal,
		AvgProteinG:    sum.AvgProteinG,
		AvgCarbsG:      sum.AvgCarbsG,
		AvgFatG:        sum.AvgFatG,
		TrainingDays:   t.Counts.Training,
		RestDays:       t.Counts.Rest,
		HighDays:       t.Counts.High,
		AvgSleepHr:     s.AvgSleepHr,
		AvgRHR:         s.AvgRHR,
		ACWR:           s.ACWR,
		TrainingLoad:   s.TrainingLoad,
		AlcoholUnits7d: s.AlcoholUnits7d,
		AlcoholFlag:    s.AlcoholFlag,
		Notes:          notes,
	}
	if s.MFP != nil {
		row.MFPAvgKcal = s.MFP.AvgKcal
		row.MFPProteinG = s.MFP.ProteinG
	}
	return row
}

// Store persists rows in the history table.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const insertRow = `
INSERT INTO history (
    week_start, week_tier, avg_kcal, avg_protein_g, avg_carbs_g, avg_fat_g,
    training_days, rest_days, high_days, avg_sleep_hr, avg_rhr, acwr, training_load,
    alcohol_units_7d, alcohol_flag, mfp_avg_kcal, mfp_protein_g, notes, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(week_start) DO NOTHING`

// AppendIfNew inserts the row unless its week is already recorded. It
// reports whether a row was written. The conflict clause makes concurrent
// duplicate appends safe.
func (s *Store) AppendIfNew(ctx context.Context, r Row) (bool, error) {
	if r.WeekStart == "" {
		return false, fmt.Errorf("history row has no week_start")
	}
	res, err := s.db.ExecContext(ctx, insertRow,
		r.WeekStart, r.WeekTier, r.AvgKcal, r.AvgProteinG, r.AvgCarbsG, r.AvgFatG,
		r.TrainingDays, r.RestDays, r.HighDays, r.AvgSleepHr, r.AvgRHR, r.ACWR, r.TrainingLoad,
		r.AlcoholUnits7d, r.AlcoholFlag, r.MFPAvgKcal, r.MFPProteinG, r.Notes, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert history row: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// Count returns the number of recorded weeks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history rows: %w", err)
	}
	return n, nil
}

// CountBefore returns the number of weeks recorded before weekStart.
func (s *Store) CountBefore(ctx context.Context, weekStart string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history WHERE week_start < ?`, weekStart).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count prior history rows: %w", err)
	}
	return n, nil
}

// Recent returns up to limit rows, newest week first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT week_start, week_tier, avg_kcal, avg_protein_g, avg_carbs_g, avg_fat_g,
       training_days, rest_days, high_days, avg_sleep_hr, avg_rhr, acwr, training_load,
       alcohol_units_7d, alcohol_flag, mfp_avg_kcal, mfp_protein_g, notes
FROM history ORDER BY week_start DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var sleep, rhr, acwr, units, mfpKcal, mfpProtein sql.NullFloat64
		var load, flag sql.NullString
		if err := rows.Scan(&r.WeekStart, &r.WeekTier, &r.AvgKcal, &r.AvgProteinG, &r.AvgCarbsG, &r.AvgFatG,
			&r.TrainingDays, &r.RestDays, &r.HighDays, &sleep, &rhr, &acwr, &load,
			&units, &flag, &mfpKcal, &mfpProtein, &r.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		r.AvgSleepHr = floatPtr(sleep)
		r.AvgRHR = floatPtr(rhr)
		r.ACWR = floatPtr(acwr)
		r.AlcoholUnits7d = floatPtr(units)
		r.MFPAvgKcal = floatPtr(mfpKcal)
		r.MFPProteinG = floatPtr(mfpProtein)
		r.TrainingLoad = stringPtr(load)
		r.AlcoholFlag = stringPtr(flag)
		out = append(out, r)
	}
	return out, rows.Err()
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
