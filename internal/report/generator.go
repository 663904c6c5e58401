package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"confluence-engine/config"
	"confluence-engine/internal/cache"
	"confluence-engine/internal/logging"
	"confluence-engine/internal/service"
)

// Generator renders evaluation reports in Markdown. When a narrative
// client is configured, a model-written summary is appended; narrative
// failures degrade to the plain report, never an error.
type Generator struct {
	llm      *LLMClient
	cache    *cache.CacheService
	cacheTTL time.Duration
	log      *logging.Logger
}

// NewGenerator wires the report pipeline. cacheService may be nil.
func NewGenerator(cfg config.ReportConfig, cacheService *cache.CacheService, cacheTTL time.Duration) *Generator {
	g := &Generator{
		cache:    cacheService,
		cacheTTL: cacheTTL,
		log:      logging.WithComponent("report"),
	}
	if cfg.NarrativeEnabled && cfg.LLMAPIKey != "" {
		llmCfg := DefaultLLMConfig()
		llmCfg.Provider = Provider(cfg.LLMProvider)
		llmCfg.APIKey = cfg.LLMAPIKey
		if cfg.LLMModel != "" {
			llmCfg.Model = cfg.LLMModel
		}
		g.llm = NewLLMClient(llmCfg)
	}
	return g
}

// Generate renders the report for one stored evaluation. Rendered
// reports are cached per symbol so repeated reads stay cheap.
func (g *Generator) Generate(ctx context.Context, eval *service.StoredEvaluation) (string, error) {
	if eval == nil {
		return "", fmt.Errorf("no evaluation to report on")
	}

	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, cache.ReportKey(eval.Symbol)); err == nil && cached != "" {
			return cached, nil
		}
	}

	report := g.render(eval)

	if g.llm != nil {
		narrative, err := g.narrative(eval)
		if err != nil {
			g.log.Warn("Narrative generation failed", "symbol", eval.Symbol, "error", err)
		} else if narrative != "" {
			report += "\n## Narrative\n\n" + strings.TrimSpace(narrative) + "\n"
		}
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, cache.ReportKey(eval.Symbol), report, g.cacheTTL); err != nil {
			g.log.Debug("Report cache write skipped", "symbol", eval.Symbol, "error", err)
		}
	}

	return report, nil
}

// Invalidate drops the cached report for a symbol, used after a fresh
// evaluation lands
func (g *Generator) Invalidate(ctx context.Context, symbol string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Delete(ctx, cache.ReportKey(symbol)); err != nil {
		g.log.Debug("Report cache invalidation skipped", "symbol", symbol, "error", err)
	}
}

func (g *Generator) render(eval *service.StoredEvaluation) string {
	rec := eval.Recommendation

	var b strings.Builder
	fmt.Fprintf(&b, "# %s Confluence Report\n\n", eval.Symbol)
	fmt.Fprintf(&b, "- **Evaluated:** %s\n", eval.EvaluatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Profile version:** %s\n", eval.ProfileVersion)
	fmt.Fprintf(&b, "- **Evaluation ID:** %s\n\n", eval.ID)

	b.WriteString("## Recommendation\n\n")
	fmt.Fprintf(&b, "- **Action:** %s\n", rec.Action)
	if rec.Primary != nil {
		fmt.Fprintf(&b, "- **Primary horizon:** %s (%s)\n", rec.Primary.Label, rec.Primary.Direction)
	}
	fmt.Fprintf(&b, "- **Score:** %.1f\n", rec.Score)
	fmt.Fprintf(&b, "- **Confidence:** %s\n", rec.ConfidenceTier)
	fmt.Fprintf(&b, "- **Cross-horizon agreement:** %s\n", rec.Agreement)
	fmt.Fprintf(&b, "- **Risk dispersion:** %s\n", rec.RiskDispersion)
	if rec.Sizing != nil {
		fmt.Fprintf(&b, "- **Sizing:** %dx leverage, max %.1f%% of capital\n",
			rec.Sizing.Leverage, rec.Sizing.MaxPositionPct)
	}
	b.WriteString("\n")

	b.WriteString("## Horizons\n\n")
	b.WriteString("| Horizon | Direction | Signals | Win Rate | Score | Multiplier | Actionable |\n")
	b.WriteString("|---------|-----------|---------|----------|-------|------------|------------|\n")
	for _, tf := range eval.Timeframes {
		fmt.Fprintf(&b, "| %s | %s | %d | %.1f%% | %.1f | %.2fx | %s |\n",
			tf.Label, tf.Direction, tf.SignalCount,
			tf.CalibratedWinRate*100, tf.Score, tf.MultiplierApplied,
			yesNo(tf.Actionable))
	}
	b.WriteString("\n")

	b.WriteString("## Signals\n\n")
	any := false
	for _, tf := range eval.Timeframes {
		if len(tf.Signals) == 0 {
			continue
		}
		any = true
		fmt.Fprintf(&b, "### %s\n\n", tf.Label)
		for _, s := range tf.Signals {
			fmt.Fprintf(&b, "- `%s` %s (strength %.2f, base rate %.1f%%)\n",
				s.PatternID, s.Direction, s.Strength, s.BaseWinRate*100)
		}
		b.WriteString("\n")
	}
	if !any {
		b.WriteString("No signals fired in this evaluation.\n\n")
	}

	return b.String()
}

func (g *Generator) narrative(eval *service.StoredEvaluation) (string, error) {
	rec := eval.Recommendation

	var facts strings.Builder
	fmt.Fprintf(&facts, "Symbol: %s\nAction: %s\nScore: %.1f\nConfidence: %s\nAgreement: %s\nRisk dispersion: %s\n",
		eval.Symbol, rec.Action, rec.Score, rec.ConfidenceTier, rec.Agreement, rec.RiskDispersion)
	if rec.Primary != nil {
		fmt.Fprintf(&facts, "Primary horizon: %s, direction %s, calibrated win rate %.1f%%\n",
			rec.Primary.Label, rec.Primary.Direction, rec.Primary.CalibratedWinRate*100)
	}
	for _, tf := range eval.Timeframes {
		fmt.Fprintf(&facts, "Horizon %s: direction %s, %d signals, win rate %.1f%%, score %.1f\n",
			tf.Label, tf.Direction, tf.SignalCount, tf.CalibratedWinRate*100, tf.Score)
		for _, s := range tf.Signals {
			fmt.Fprintf(&facts, "  Signal %s: %s, strength %.2f\n", s.PatternID, s.Direction, s.Strength)
		}
	}

	system := "You are a trading analyst. Write a concise 2-3 paragraph summary of a " +
		"multi-timeframe confluence evaluation. Stick strictly to the numbers given. " +
		"Do not invent price targets or data not present. Plain prose, no headings."

	return g.llm.Complete(system, facts.String())
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
