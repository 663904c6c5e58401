package engine

import (
	"math"
	"testing"
)

func shortProfile() *HorizonProfile {
	ps := DefaultProfileSet()
	return &ps.Horizons[0]
}

// TestNeutralDefault verifies the empty signal set yields the neutral result
func TestNeutralDefault(t *testing.T) {
	result := Aggregate(nil, shortProfile())

	if result.Direction != DirectionNeutral {
		t.Errorf("Expected NEUTRAL direction, got %s", result.Direction)
	}
	if result.CalibratedWinRate != 0.50 {
		t.Errorf("Expected win rate 0.50, got %.4f", result.CalibratedWinRate)
	}
	if result.Score != 50 {
		t.Errorf("Expected score 50, got %.2f", result.Score)
	}
	if result.SignalCount != 0 {
		t.Errorf("Expected 0 signals, got %d", result.SignalCount)
	}
}

// TestMajorityTieIsNeutral verifies an even long/short split stays NEUTRAL
func TestMajorityTieIsNeutral(t *testing.T) {
	signals := []Signal{
		{PatternID: "volume_breakout", Direction: DirectionLong, Strength: 0.8, BaseWinRate: 0.65},
		{PatternID: "rapid_move", Direction: DirectionShort, Strength: 0.7, BaseWinRate: 0.72},
	}
	result := Aggregate(signals, shortProfile())

	if result.Direction != DirectionNeutral {
		t.Errorf("Expected NEUTRAL on tie, got %s", result.Direction)
	}
	// All signals stay relevant on a tie: multiplier keyed by full count
	if result.MultiplierApplied != shortProfile().Multiplier(2) {
		t.Errorf("Expected multiplier for 2 relevant signals, got %.3f", result.MultiplierApplied)
	}
}

// TestTwoSignalConfluence pins down the reference two-signal scenario:
// strength-weighted base rate, multiplier(2), dampening, no ceiling hit.
func TestTwoSignalConfluence(t *testing.T) {
	prof := shortProfile()
	signals := []Signal{
		{PatternID: "volume_breakout", Direction: DirectionLong, Strength: 0.8, BaseWinRate: 0.65},
		{PatternID: "ai_momentum", Direction: DirectionLong, Strength: 0.9, BaseWinRate: 0.85},
	}
	result := Aggregate(signals, prof)

	if result.Direction != DirectionLong {
		t.Fatalf("Expected LONG direction, got %s", result.Direction)
	}

	baseRate := (0.8*0.65 + 0.9*0.85) / 1.7
	want := baseRate * prof.Multiplier(2) * prof.Dampening
	if math.Abs(result.CalibratedWinRate-want) > 1e-9 {
		t.Errorf("Expected calibrated %.6f, got %.6f", want, result.CalibratedWinRate)
	}
	if math.Abs(result.Score-want*100) > 1e-6 {
		t.Errorf("Expected score %.2f, got %.2f", want*100, result.Score)
	}
	if result.MultiplierApplied != 1.05 {
		t.Errorf("Expected multiplier 1.05, got %.3f", result.MultiplierApplied)
	}
}

// TestOpposingSignalFiltered verifies the minority direction is excluded
// from the weighted average
func TestOpposingSignalFiltered(t *testing.T) {
	prof := shortProfile()
	agreeing := []Signal{
		{PatternID: "a", Direction: DirectionLong, Strength: 0.8, BaseWinRate: 0.70},
		{PatternID: "b", Direction: DirectionLong, Strength: 0.8, BaseWinRate: 0.70},
	}
	withOpposition := append(append([]Signal{}, agreeing...),
		Signal{PatternID: "c", Direction: DirectionShort, Strength: 1.0, BaseWinRate: 0.85})

	base := Aggregate(agreeing, prof)
	opposed := Aggregate(withOpposition, prof)

	if opposed.Direction != DirectionLong {
		t.Fatalf("Expected LONG with 2-1 majority, got %s", opposed.Direction)
	}
	// The SHORT signal must not contribute to the base rate
	if opposed.CalibratedWinRate != base.CalibratedWinRate {
		t.Errorf("Opposing signal leaked into weighted average: %.4f vs %.4f",
			opposed.CalibratedWinRate, base.CalibratedWinRate)
	}
	if opposed.MultiplierApplied != prof.Multiplier(2) {
		t.Errorf("Multiplier should key on relevant count 2, got %.3f", opposed.MultiplierApplied)
	}
}

// TestMonotonicity verifies that adding agreeing signals of comparable
// quality never lowers the calibrated win rate, with diminishing returns
// from the multiplier table
func TestMonotonicity(t *testing.T) {
	for _, prof := range DefaultProfileSet().Horizons {
		signals := []Signal{}
		prev := 0.0
		for n := 1; n <= 10; n++ {
			signals = append(signals, Signal{
				PatternID:   "s",
				Direction:   DirectionLong,
				Strength:    0.7,
				BaseWinRate: 0.62,
			})
			result := Aggregate(signals, &prof)
			if result.CalibratedWinRate < prev {
				t.Errorf("horizon %s: win rate decreased from %.4f to %.4f at %d signals",
					prof.Horizon, prev, result.CalibratedWinRate, n)
			}
			prev = result.CalibratedWinRate
		}
	}
}

// TestBoundedness verifies no signal pile-up breaches the ceiling
func TestBoundedness(t *testing.T) {
	for _, prof := range DefaultProfileSet().Horizons {
		signals := []Signal{}
		for n := 0; n < 12; n++ {
			signals = append(signals, Signal{
				PatternID:   "s",
				Direction:   DirectionShort,
				Strength:    1.0,
				BaseWinRate: 0.90,
			})
		}
		result := Aggregate(signals, &prof)
		if result.CalibratedWinRate > prof.WinRateCeiling {
			t.Errorf("horizon %s: calibrated %.4f exceeds ceiling %.4f",
				prof.Horizon, result.CalibratedWinRate, prof.WinRateCeiling)
		}
		if result.CalibratedWinRate <= 0 || result.CalibratedWinRate >= 1 {
			t.Errorf("horizon %s: calibrated %.4f outside (0,1)", prof.Horizon, result.CalibratedWinRate)
		}
		if result.CalibratedWinRate != prof.WinRateCeiling {
			t.Errorf("horizon %s: 12 maximal signals should hit the ceiling, got %.4f",
				prof.Horizon, result.CalibratedWinRate)
		}
	}
}

// TestZeroStrengthSignals verifies all-zero strengths fall back to neutral
func TestZeroStrengthSignals(t *testing.T) {
	signals := []Signal{
		{PatternID: "a", Direction: DirectionLong, Strength: 0, BaseWinRate: 0.8},
		{PatternID: "b", Direction: DirectionLong, Strength: 0, BaseWinRate: 0.8},
	}
	result := Aggregate(signals, shortProfile())
	if result.CalibratedWinRate != 0.50 {
		t.Errorf("Expected neutral 0.50 for zero total strength, got %.4f", result.CalibratedWinRate)
	}
}
