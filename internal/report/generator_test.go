package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"confluence-engine/config"
	"confluence-engine/internal/engine"
	"confluence-engine/internal/service"
)

func sampleEvaluation() *service.StoredEvaluation {
	primary := engine.TimeframeResult{
		Horizon:           "short",
		Label:             "1-4h",
		Direction:         engine.DirectionLong,
		SignalCount:       3,
		CalibratedWinRate: 0.68,
		Score:             68,
		MultiplierApplied: 1.25,
		Actionable:        true,
		Signals: []engine.Signal{
			{PatternID: "trend_adx", Direction: engine.DirectionLong, Strength: 0.8, BaseWinRate: 0.62},
			{PatternID: "volume_surge", Direction: engine.DirectionLong, Strength: 0.6, BaseWinRate: 0.58},
		},
	}
	return &service.StoredEvaluation{
		ID:          uuid.New(),
		EvaluatedAt: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
		Evaluation: &engine.Evaluation{
			Symbol:         "BTCUSDT",
			ProfileVersion: "builtin-v1",
			Timeframes: []engine.TimeframeResult{
				primary,
				{Horizon: "medium", Label: "4-24h", Direction: engine.DirectionNeutral},
			},
			Recommendation: engine.Recommendation{
				Symbol:         "BTCUSDT",
				Primary:        &primary,
				Action:         engine.ActionScalp,
				ConfidenceTier: engine.TierMedium,
				Agreement:      engine.AgreementModerate,
				RiskDispersion: engine.RiskMedium,
				Sizing:         &engine.SizingTier{Leverage: 5, MaxPositionPct: 10},
				Score:          68,
			},
		},
	}
}

// TestGenerateRendersAllSections checks the Markdown layout
func TestGenerateRendersAllSections(t *testing.T) {
	g := NewGenerator(config.ReportConfig{}, nil, 0)

	out, err := g.Generate(context.Background(), sampleEvaluation())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	for _, want := range []string{
		"# BTCUSDT Confluence Report",
		"**Action:** SCALP",
		"**Primary horizon:** 1-4h (LONG)",
		"**Sizing:** 5x leverage, max 10.0% of capital",
		"| 1-4h | LONG | 3 | 68.0% | 68.0 | 1.25x | yes |",
		"`trend_adx` LONG (strength 0.80, base rate 62.0%)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "## Narrative") {
		t.Error("Narrative section should be absent when the LLM is not configured")
	}
}

// TestGenerateNoSignals covers the quiet-market rendering
func TestGenerateNoSignals(t *testing.T) {
	g := NewGenerator(config.ReportConfig{}, nil, 0)

	eval := sampleEvaluation()
	eval.Timeframes = []engine.TimeframeResult{
		{Horizon: "short", Label: "1-4h", Direction: engine.DirectionNeutral},
	}
	eval.Recommendation.Primary = nil
	eval.Recommendation.Sizing = nil
	eval.Recommendation.Action = engine.ActionWait

	out, err := g.Generate(context.Background(), eval)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.Contains(out, "No signals fired in this evaluation.") {
		t.Errorf("expected quiet-market note:\n%s", out)
	}
	if !strings.Contains(out, "**Action:** WAIT") {
		t.Error("expected WAIT action in report")
	}
}

// TestGenerateNilEvaluation rejects missing input
func TestGenerateNilEvaluation(t *testing.T) {
	g := NewGenerator(config.ReportConfig{}, nil, 0)
	if _, err := g.Generate(context.Background(), nil); err == nil {
		t.Error("Expected error for nil evaluation")
	}
}

// TestNarrativeDisabledWithoutKey ensures the narrative client stays off
// when no API key is configured
func TestNarrativeDisabledWithoutKey(t *testing.T) {
	g := NewGenerator(config.ReportConfig{NarrativeEnabled: true}, nil, 0)
	if g.llm != nil {
		t.Error("LLM client should not be built without an API key")
	}
}
