package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

// DetectorThresholds holds per-horizon detector calibration. Shorter
// horizons fire on smaller moves and carry higher base rates; longer
// horizons need larger moves and carry lower base rates.
type DetectorThresholds struct {
	// Trade-history momentum
	MomentumMinTrades  int     `json:"momentum_min_trades"`
	MomentumMinWinRate float64 `json:"momentum_min_win_rate"`
	MomentumBaseRate   float64 `json:"momentum_base_rate"`

	// Volume-imbalance breakout
	VolumeSpikeRatio       float64 `json:"volume_spike_ratio"`
	VolumeBreakoutBaseRate float64 `json:"volume_breakout_base_rate"`

	// Rapid-movement follow-through
	RapidMovePct      float64 `json:"rapid_move_pct"`
	RapidMoveBaseRate float64 `json:"rapid_move_base_rate"`

	// Liquidation-spike reversal
	LiquidationSpikeUSD  float64 `json:"liquidation_spike_usd"`
	LiquidationImbalance float64 `json:"liquidation_imbalance"` // 0.5-1.0, share on one side
	LiquidationBaseRate  float64 `json:"liquidation_base_rate"`

	// OHLCV candle breakout
	BreakoutLookback int     `json:"breakout_lookback"`
	BreakoutBaseRate float64 `json:"breakout_base_rate"`

	// Long/short ratio extremity (contrarian)
	LongShortExtreme  float64 `json:"long_short_extreme"` // ratio considered crowded
	LongShortBaseRate float64 `json:"long_short_base_rate"`

	// Trend-indicator strength
	TrendADXMin   float64 `json:"trend_adx_min"`
	TrendBaseRate float64 `json:"trend_base_rate"`

	// Institutional accumulation (long horizons only)
	InstitutionalEnabled      bool    `json:"institutional_enabled"`
	InstitutionalMinVolumeUSD float64 `json:"institutional_min_volume_usd"`
	InstitutionalBaseRate     float64 `json:"institutional_base_rate"`
}

// HorizonProfile is the complete calibration for one trading horizon.
// Profiles are external configuration: a new horizon needs no detector
// or aggregator changes, only a new profile.
type HorizonProfile struct {
	Horizon string `json:"horizon"` // "short", "medium", "long"
	Label   string `json:"label"`   // "hours", "days", "weeks"

	// Multipliers is the confluence multiplier table keyed by relevant
	// signal count: Multipliers[0] applies to 1 signal. Counts past the
	// end of the table use the last entry.
	Multipliers []float64 `json:"multipliers"`

	Dampening      float64 `json:"dampening"`        // flat market-uncertainty discount
	WinRateCeiling float64 `json:"win_rate_ceiling"` // hard cap on calibrated win rate

	ActionThreshold float64 `json:"action_threshold"` // min score to be actionable
	Action          Action  `json:"action"`           // style when this horizon is primary
	Sizing          SizingTier `json:"sizing"`

	Detectors DetectorThresholds `json:"detectors"`
}

// ConfidenceThresholds map the primary score to a confidence tier
type ConfidenceThresholds struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
}

// RiskThresholds control dispersion-based risk classification
type RiskThresholds struct {
	LowVariance  float64 `json:"low_variance"`
	HighVariance float64 `json:"high_variance"`
	HighMean     float64 `json:"high_mean"`
}

// ProfileSet is the versioned calibration document the engine runs
// against. Version changes are persisted so recalibrations are
// auditable.
type ProfileSet struct {
	Version    string               `json:"version"`
	Horizons   []HorizonProfile     `json:"horizons"`
	Confidence ConfidenceThresholds `json:"confidence"`
	Risk       RiskThresholds       `json:"risk"`
}

// Validate checks the profile set eagerly at load time. A profile set
// that passes Validate can never produce a fault mid-evaluation.
func (ps *ProfileSet) Validate() error {
	if ps.Version == "" {
		return fmt.Errorf("profile set: version is required")
	}
	if len(ps.Horizons) == 0 {
		return fmt.Errorf("profile set %s: no horizons configured", ps.Version)
	}
	seen := make(map[string]bool, len(ps.Horizons))
	for i := range ps.Horizons {
		if err := ps.Horizons[i].Validate(); err != nil {
			return fmt.Errorf("profile set %s: %w", ps.Version, err)
		}
		if seen[ps.Horizons[i].Horizon] {
			return fmt.Errorf("profile set %s: duplicate horizon %q", ps.Version, ps.Horizons[i].Horizon)
		}
		seen[ps.Horizons[i].Horizon] = true
	}
	if ps.Confidence.High <= ps.Confidence.Medium {
		return fmt.Errorf("profile set %s: confidence high threshold %.1f must exceed medium %.1f",
			ps.Version, ps.Confidence.High, ps.Confidence.Medium)
	}
	if ps.Risk.HighVariance <= ps.Risk.LowVariance {
		return fmt.Errorf("profile set %s: risk high variance %.1f must exceed low variance %.1f",
			ps.Version, ps.Risk.HighVariance, ps.Risk.LowVariance)
	}
	return nil
}

// Validate checks a single horizon profile for out-of-range values
func (p *HorizonProfile) Validate() error {
	if p.Horizon == "" {
		return fmt.Errorf("horizon name is required")
	}
	if len(p.Multipliers) == 0 {
		return fmt.Errorf("horizon %s: multiplier table is empty", p.Horizon)
	}
	prev := 0.0
	for i, m := range p.Multipliers {
		if m < 1.0 {
			return fmt.Errorf("horizon %s: multiplier[%d]=%.3f below 1.0", p.Horizon, i, m)
		}
		if m < prev {
			return fmt.Errorf("horizon %s: multiplier table not non-decreasing at index %d", p.Horizon, i)
		}
		prev = m
	}
	if p.Dampening <= 0 || p.Dampening > 1 {
		return fmt.Errorf("horizon %s: dampening %.3f outside (0,1]", p.Horizon, p.Dampening)
	}
	if p.WinRateCeiling <= 0.5 || p.WinRateCeiling >= 1.0 {
		return fmt.Errorf("horizon %s: win rate ceiling %.3f outside (0.5,1.0)", p.Horizon, p.WinRateCeiling)
	}
	if p.ActionThreshold < 0 || p.ActionThreshold > 100 {
		return fmt.Errorf("horizon %s: action threshold %.1f outside [0,100]", p.Horizon, p.ActionThreshold)
	}
	switch p.Action {
	case ActionScalp, ActionSwing, ActionPosition:
	default:
		return fmt.Errorf("horizon %s: invalid action %q", p.Horizon, p.Action)
	}
	if p.Sizing.Leverage < 1 {
		return fmt.Errorf("horizon %s: leverage %d below 1", p.Horizon, p.Sizing.Leverage)
	}
	if p.Sizing.MaxPositionPct <= 0 || p.Sizing.MaxPositionPct > 100 {
		return fmt.Errorf("horizon %s: max position pct %.1f outside (0,100]", p.Horizon, p.Sizing.MaxPositionPct)
	}
	return p.Detectors.validate(p.Horizon)
}

func (d *DetectorThresholds) validate(horizon string) error {
	rates := map[string]float64{
		"momentum_base_rate":        d.MomentumBaseRate,
		"volume_breakout_base_rate": d.VolumeBreakoutBaseRate,
		"rapid_move_base_rate":      d.RapidMoveBaseRate,
		"liquidation_base_rate":     d.LiquidationBaseRate,
		"breakout_base_rate":        d.BreakoutBaseRate,
		"long_short_base_rate":      d.LongShortBaseRate,
		"trend_base_rate":           d.TrendBaseRate,
	}
	if d.InstitutionalEnabled {
		rates["institutional_base_rate"] = d.InstitutionalBaseRate
	}
	for name, r := range rates {
		if r <= 0 || r >= 1 {
			return fmt.Errorf("horizon %s: %s=%.3f outside (0,1)", horizon, name, r)
		}
	}
	if d.VolumeSpikeRatio <= 1 {
		return fmt.Errorf("horizon %s: volume spike ratio %.2f must exceed 1", horizon, d.VolumeSpikeRatio)
	}
	if d.RapidMovePct <= 0 {
		return fmt.Errorf("horizon %s: rapid move pct %.2f must be positive", horizon, d.RapidMovePct)
	}
	if d.LiquidationImbalance < 0.5 || d.LiquidationImbalance > 1 {
		return fmt.Errorf("horizon %s: liquidation imbalance %.2f outside [0.5,1]", horizon, d.LiquidationImbalance)
	}
	if d.BreakoutLookback < 2 {
		return fmt.Errorf("horizon %s: breakout lookback %d below 2", horizon, d.BreakoutLookback)
	}
	if d.LongShortExtreme <= 1 {
		return fmt.Errorf("horizon %s: long/short extreme %.2f must exceed 1", horizon, d.LongShortExtreme)
	}
	return nil
}

// Multiplier returns the confluence multiplier for the given relevant
// signal count. Counts past the table use the last entry; zero or
// negative counts return 1.0.
func (p *HorizonProfile) Multiplier(count int) float64 {
	if count <= 0 {
		return 1.0
	}
	if count > len(p.Multipliers) {
		return p.Multipliers[len(p.Multipliers)-1]
	}
	return p.Multipliers[count-1]
}

// LoadProfileSet reads and validates a profile set from a JSON file
func LoadProfileSet(path string) (*ProfileSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile set %s: %w", path, err)
	}
	var ps ProfileSet
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("failed to parse profile set %s: %w", path, err)
	}
	if err := ps.Validate(); err != nil {
		return nil, err
	}
	return &ps, nil
}

// DefaultProfileSet returns the built-in short/medium/long calibration.
// Shorter horizons use steeper multiplier tables and higher base rates.
func DefaultProfileSet() *ProfileSet {
	return &ProfileSet{
		Version: "builtin-v1",
		Horizons: []HorizonProfile{
			{
				Horizon:         "short",
				Label:           "hours",
				Multipliers:     []float64{1.00, 1.05, 1.12, 1.20, 1.30, 1.40, 1.52, 1.65},
				Dampening:       0.95,
				WinRateCeiling:  0.96,
				ActionThreshold: 75,
				Action:          ActionScalp,
				Sizing:          SizingTier{Leverage: 10, MaxPositionPct: 5},
				Detectors: DetectorThresholds{
					MomentumMinTrades:      10,
					MomentumMinWinRate:     0.55,
					MomentumBaseRate:       0.85,
					VolumeSpikeRatio:       1.8,
					VolumeBreakoutBaseRate: 0.65,
					RapidMovePct:           3.0,
					RapidMoveBaseRate:      0.72,
					LiquidationSpikeUSD:    2_000_000,
					LiquidationImbalance:   0.70,
					LiquidationBaseRate:    0.70,
					BreakoutLookback:       20,
					BreakoutBaseRate:       0.68,
					LongShortExtreme:       2.5,
					LongShortBaseRate:      0.66,
					TrendADXMin:            25,
					TrendBaseRate:          0.75,
					InstitutionalEnabled:   false,
					InstitutionalBaseRate:  0.60,
				},
			},
			{
				Horizon:         "medium",
				Label:           "days",
				Multipliers:     []float64{1.00, 1.04, 1.10, 1.16, 1.24, 1.32, 1.42, 1.52},
				Dampening:       0.95,
				WinRateCeiling:  0.97,
				ActionThreshold: 70,
				Action:          ActionSwing,
				Sizing:          SizingTier{Leverage: 5, MaxPositionPct: 10},
				Detectors: DetectorThresholds{
					MomentumMinTrades:      20,
					MomentumMinWinRate:     0.55,
					MomentumBaseRate:       0.72,
					VolumeSpikeRatio:       2.2,
					VolumeBreakoutBaseRate: 0.60,
					RapidMovePct:           6.0,
					RapidMoveBaseRate:      0.62,
					LiquidationSpikeUSD:    10_000_000,
					LiquidationImbalance:   0.72,
					LiquidationBaseRate:    0.62,
					BreakoutLookback:       50,
					BreakoutBaseRate:       0.60,
					LongShortExtreme:       3.0,
					LongShortBaseRate:      0.58,
					TrendADXMin:            28,
					TrendBaseRate:          0.66,
					InstitutionalEnabled:   true,
					InstitutionalMinVolumeUSD: 100_000_000,
					InstitutionalBaseRate:  0.58,
				},
			},
			{
				Horizon:         "long",
				Label:           "weeks",
				Multipliers:     []float64{1.00, 1.03, 1.07, 1.12, 1.18, 1.25, 1.33, 1.42},
				Dampening:       0.95,
				WinRateCeiling:  0.98,
				ActionThreshold: 65,
				Action:          ActionPosition,
				Sizing:          SizingTier{Leverage: 2, MaxPositionPct: 20},
				Detectors: DetectorThresholds{
					MomentumMinTrades:      30,
					MomentumMinWinRate:     0.52,
					MomentumBaseRate:       0.65,
					VolumeSpikeRatio:       2.5,
					VolumeBreakoutBaseRate: 0.55,
					RapidMovePct:           12.0,
					RapidMoveBaseRate:      0.52,
					LiquidationSpikeUSD:    25_000_000,
					LiquidationImbalance:   0.75,
					LiquidationBaseRate:    0.54,
					BreakoutLookback:       90,
					BreakoutBaseRate:       0.55,
					LongShortExtreme:       3.5,
					LongShortBaseRate:      0.50,
					TrendADXMin:            32,
					TrendBaseRate:          0.60,
					InstitutionalEnabled:   true,
					InstitutionalMinVolumeUSD: 250_000_000,
					InstitutionalBaseRate:  0.56,
				},
			},
		},
		Confidence: ConfidenceThresholds{High: 80, Medium: 65},
		Risk:       RiskThresholds{LowVariance: 40, HighVariance: 180, HighMean: 70},
	}
}
