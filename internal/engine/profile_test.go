package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultProfileSetValid ensures the shipped calibration passes its
// own validation
func TestDefaultProfileSetValid(t *testing.T) {
	if err := DefaultProfileSet().Validate(); err != nil {
		t.Fatalf("Default profile set failed validation: %v", err)
	}
}

// TestValidateRejectsBadProfiles verifies configuration faults are
// caught at load time, before any evaluation runs
func TestValidateRejectsBadProfiles(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProfileSet)
	}{
		{"missing version", func(ps *ProfileSet) { ps.Version = "" }},
		{"no horizons", func(ps *ProfileSet) { ps.Horizons = nil }},
		{"duplicate horizon", func(ps *ProfileSet) { ps.Horizons[1].Horizon = ps.Horizons[0].Horizon }},
		{"empty multiplier table", func(ps *ProfileSet) { ps.Horizons[0].Multipliers = nil }},
		{"multiplier below one", func(ps *ProfileSet) { ps.Horizons[0].Multipliers[0] = 0.9 }},
		{"decreasing multipliers", func(ps *ProfileSet) { ps.Horizons[0].Multipliers[3] = 1.01 }},
		{"negative dampening", func(ps *ProfileSet) { ps.Horizons[0].Dampening = -0.5 }},
		{"ceiling at one", func(ps *ProfileSet) { ps.Horizons[0].WinRateCeiling = 1.0 }},
		{"base rate out of range", func(ps *ProfileSet) { ps.Horizons[0].Detectors.TrendBaseRate = 1.2 }},
		{"invalid action", func(ps *ProfileSet) { ps.Horizons[0].Action = "YOLO" }},
		{"zero leverage", func(ps *ProfileSet) { ps.Horizons[0].Sizing.Leverage = 0 }},
		{"inverted confidence thresholds", func(ps *ProfileSet) { ps.Confidence.High = ps.Confidence.Medium }},
		{"inverted risk thresholds", func(ps *ProfileSet) { ps.Risk.HighVariance = ps.Risk.LowVariance }},
	}

	for _, tt := range tests {
		ps := DefaultProfileSet()
		tt.mutate(ps)
		if err := ps.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got nil", tt.name)
		}
	}
}

// TestMultiplierTableExtension verifies counts past the table use the
// last entry
func TestMultiplierTableExtension(t *testing.T) {
	prof := &HorizonProfile{Multipliers: []float64{1.0, 1.05, 1.12}}

	if m := prof.Multiplier(0); m != 1.0 {
		t.Errorf("count 0: expected 1.0, got %.3f", m)
	}
	if m := prof.Multiplier(2); m != 1.05 {
		t.Errorf("count 2: expected 1.05, got %.3f", m)
	}
	if m := prof.Multiplier(9); m != 1.12 {
		t.Errorf("count 9: expected last entry 1.12, got %.3f", m)
	}
}

// TestLoadProfileSet round-trips the default calibration through a file
func TestLoadProfileSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.json")

	data, err := json.Marshal(DefaultProfileSet())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	ps, err := LoadProfileSet(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if ps.Version != "builtin-v1" || len(ps.Horizons) != 3 {
		t.Errorf("Loaded profile set does not match: version=%s horizons=%d", ps.Version, len(ps.Horizons))
	}
}

// TestLoadProfileSetRejectsInvalid verifies a bad file fails eagerly
func TestLoadProfileSetRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")

	ps := DefaultProfileSet()
	ps.Horizons[0].Dampening = 2.0
	data, _ := json.Marshal(ps)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := LoadProfileSet(path); err == nil {
		t.Error("Expected validation error for out-of-range dampening")
	}

	if _, err := LoadProfileSet(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}
