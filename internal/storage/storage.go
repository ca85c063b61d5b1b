// Package storage writes the per-run artifacts under <base>/<week_start>/.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Artifact file names.
const (
	MealPlanFile      = "meal_plan.json"
	RecipesFile       = "recipes.json"
	GroceryCSVFile    = "grocery_list.csv"
	GroceryJSONFile   = "grocery_list.json"
	GroceryNotesFile  = "grocery_notes.md"
	QAReportFile      = "qa_report.md"
	QAReportJSONFile  = "qa_report.json"
	DigestFile        = "digest.md"
	RunLogFile        = "run_log.md"
	ModificationsFile = "plan_modifications.json"
)

// ArtifactStore provides file-based storage for one week's outputs.
type ArtifactStore struct {
	basePath string
}

// NewArtifactStore creates a new ArtifactStore and ensures the base directory exists.
func NewArtifactStore(basePath string) (*ArtifactStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &ArtifactStore{basePath: basePath}, nil
}

// Dir returns the artifact directory for weekStart.
func (s *ArtifactStore) Dir(weekStart string) (string, error) {
	if _, err := time.Parse("2006-01-02", weekStart); err != nil {
		return "", fmt.Errorf("invalid week start %q: %w", weekStart, err)
	}
	return filepath.Join(s.basePath, weekStart), nil
}

func (s *ArtifactStore) path(weekStart, name string) (string, error) {
	dir, err := s.Dir(weekStart)
	if err != nil {
		return "", err
	}
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return filepath.Join(dir, name), nil
}

// Write renders an artifact through fn and replaces the file atomically.
func (s *ArtifactStore) Write(weekStart, name string, fn func(io.Writer) error) (string, error) {
	target, err := s.path(weekStart, name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return target, nil
}

// WriteString stores text content.
func (s *ArtifactStore) WriteString(weekStart, name, content string) (string, error) {
	return s.Write(weekStart, name, func(w io.Writer) error {
		_, err := io.WriteString(w, content)
		return err
	})
}

// WriteJSON stores v as indented JSON.
func (s *ArtifactStore) WriteJSON(weekStart, name string, v any) (string, error) {
	return s.Write(weekStart, name, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// LoadJSON decodes a stored JSON artifact into out.
func (s *ArtifactStore) LoadJSON(weekStart, name string, out any) error {
	p, err := s.path(weekStart, name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return fmt.Errorf("failed to read artifact file: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

// ReadString returns a stored text artifact.
func (s *ArtifactStore) ReadString(weekStart, name string) (string, error) {
	p, err := s.path(weekStart, name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact file: %w", err)
	}
	return string(data), nil
}

// Exists checks if an artifact is present for weekStart.
func (s *ArtifactStore) Exists(weekStart, name string) bool {
	p, err := s.path(weekStart, name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// List returns the artifact names stored for weekStart, sorted.
func (s *ArtifactStore) List(weekStart string) ([]string, error) {
	dir, err := s.Dir(weekStart)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && e.Name()[0] != '.' {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RemoveStale deletes the named artifacts left by an earlier run of the
// same week so a rerun never mixes outputs.
func (s *ArtifactStore) RemoveStale(weekStart string, names ...string) error {
	for _, name := range names {
		p, err := s.path(weekStart, name)
		if err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale file %s: %w", p, err)
		}
	}
	return nil
}
