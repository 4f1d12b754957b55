package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultFillsSolverBudget(t *testing.T) {
	cfg := Default()
	if cfg.SolverNodeBudget != DefaultSolverNodeBudget {
		t.Errorf("Default().SolverNodeBudget = %d, want %d", cfg.SolverNodeBudget, DefaultSolverNodeBudget)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regalloc.json")

	want := Config{SolverNodeBudget: 500, MaxWorkers: 4, RequireSolver: true, Target: "x64"}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != want {
		t.Errorf("round-trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestLoadFillsZeroSolverBudget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.json")
	if err := Save(path, Config{MaxWorkers: 2}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.SolverNodeBudget != DefaultSolverNodeBudget {
		t.Errorf("expected zero budget filled from default, got %d", got.SolverNodeBudget)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error loading a nonexistent config file")
	}
}
