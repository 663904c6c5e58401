package engine

import "testing"

func makeResult(horizon string, dir Direction, score float64, actionable bool) TimeframeResult {
	return TimeframeResult{
		Horizon:           horizon,
		Direction:         dir,
		Score:             score,
		CalibratedWinRate: score / 100,
		Actionable:        actionable,
	}
}

// TestWaitPath verifies the WAIT recommendation when no horizon clears
// its actionability threshold
func TestWaitPath(t *testing.T) {
	ps := DefaultProfileSet()
	results := []TimeframeResult{
		makeResult("short", DirectionLong, 62, false),
		makeResult("medium", DirectionLong, 58, false),
		makeResult("long", DirectionShort, 55, false),
	}

	rec := Recommend("BTCUSDT", results, ps)

	if rec.Action != ActionWait {
		t.Errorf("Expected WAIT, got %s", rec.Action)
	}
	if rec.ConfidenceTier != TierLow {
		t.Errorf("Expected LOW confidence, got %s", rec.ConfidenceTier)
	}
	if rec.RiskDispersion != RiskHigh {
		t.Errorf("Expected HIGH risk on WAIT, got %s", rec.RiskDispersion)
	}
	// Reported score is the max raw score, display only
	if rec.Score != 62 {
		t.Errorf("Expected reported score 62, got %.1f", rec.Score)
	}
	if rec.Primary != nil {
		t.Error("WAIT recommendation must not carry a primary result")
	}
	if rec.Sizing != nil {
		t.Error("WAIT recommendation must not carry sizing")
	}
}

// TestPrimarySelection verifies the highest-scoring actionable horizon
// wins and drives action and sizing
func TestPrimarySelection(t *testing.T) {
	ps := DefaultProfileSet()
	results := []TimeframeResult{
		makeResult("short", DirectionLong, 91, true),
		makeResult("medium", DirectionLong, 82, true),
		makeResult("long", DirectionShort, 60, false),
	}

	rec := Recommend("ETHUSDT", results, ps)

	if rec.Primary == nil || rec.Primary.Horizon != "short" {
		t.Fatalf("Expected short horizon primary, got %+v", rec.Primary)
	}
	if rec.Action != ActionScalp {
		t.Errorf("Expected SCALP from short horizon, got %s", rec.Action)
	}
	if rec.Score != 91 {
		t.Errorf("Expected score 91, got %.1f", rec.Score)
	}
	if rec.Sizing == nil || rec.Sizing.Leverage != 10 {
		t.Errorf("Expected short-horizon sizing tier, got %+v", rec.Sizing)
	}
	if rec.ConfidenceTier != TierHigh {
		t.Errorf("Expected HIGH tier at score 91, got %s", rec.ConfidenceTier)
	}
	// 2 of 3 horizons agree with LONG
	if rec.Agreement != AgreementStrong {
		t.Errorf("Expected STRONG agreement, got %s", rec.Agreement)
	}
}

// TestAgreementClassification covers the STRONG/MODERATE/WEAK split
func TestAgreementClassification(t *testing.T) {
	tests := []struct {
		name    string
		results []TimeframeResult
		want    Agreement
	}{
		{
			name: "two of three match",
			results: []TimeframeResult{
				makeResult("short", DirectionLong, 91, true),
				makeResult("medium", DirectionLong, 82, true),
				makeResult("long", DirectionShort, 60, true),
			},
			want: AgreementStrong,
		},
		{
			name: "primary alone, others neutral",
			results: []TimeframeResult{
				makeResult("short", DirectionLong, 80, true),
				makeResult("medium", DirectionNeutral, 50, false),
				makeResult("long", DirectionNeutral, 50, false),
			},
			want: AgreementModerate,
		},
		{
			name: "primary alone, one opposed",
			results: []TimeframeResult{
				makeResult("short", DirectionLong, 80, true),
				makeResult("medium", DirectionShort, 60, false),
				makeResult("long", DirectionNeutral, 50, false),
			},
			want: AgreementWeak,
		},
	}

	ps := DefaultProfileSet()
	for _, tt := range tests {
		rec := Recommend("X", tt.results, ps)
		if rec.Agreement != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, rec.Agreement)
		}
	}
}

// TestRiskDispersion verifies the variance/mean classification
func TestRiskDispersion(t *testing.T) {
	th := RiskThresholds{LowVariance: 40, HighVariance: 180, HighMean: 70}

	tight := []TimeframeResult{
		makeResult("short", DirectionLong, 80, true),
		makeResult("medium", DirectionLong, 78, true),
		makeResult("long", DirectionLong, 82, true),
	}
	if got := riskDispersion(tight, th); got != RiskLow {
		t.Errorf("Tight high scores: expected LOW, got %s", got)
	}

	wide := []TimeframeResult{
		makeResult("short", DirectionLong, 90, true),
		makeResult("medium", DirectionShort, 50, false),
		makeResult("long", DirectionNeutral, 55, false),
	}
	if got := riskDispersion(wide, th); got != RiskHigh {
		t.Errorf("Wide spread: expected HIGH, got %s", got)
	}

	middling := []TimeframeResult{
		makeResult("short", DirectionLong, 66, false),
		makeResult("medium", DirectionLong, 60, false),
		makeResult("long", DirectionLong, 58, false),
	}
	if got := riskDispersion(middling, th); got != RiskMedium {
		t.Errorf("Tight low scores: expected MEDIUM, got %s", got)
	}
}

// TestScoreTieResolvesToEarlierHorizon keeps primary selection deterministic
func TestScoreTieResolvesToEarlierHorizon(t *testing.T) {
	ps := DefaultProfileSet()
	results := []TimeframeResult{
		makeResult("short", DirectionLong, 85, true),
		makeResult("medium", DirectionShort, 85, true),
	}
	rec := Recommend("X", results, ps)
	if rec.Primary == nil || rec.Primary.Horizon != "short" {
		t.Errorf("Expected tie to resolve to short, got %+v", rec.Primary)
	}
}
