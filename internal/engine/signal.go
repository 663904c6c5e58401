package engine

// Direction represents the directional call of a signal or result
type Direction string

const (
	DirectionLong    Direction = "LONG"
	DirectionShort   Direction = "SHORT"
	DirectionNeutral Direction = "NEUTRAL"
)

// Opposite returns the opposing direction. NEUTRAL opposes nothing.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return DirectionNeutral
	}
}

// Signal is one detector's piece of directional evidence.
// Strength is in [0,1], BaseWinRate in (0,1). A Signal is produced by
// exactly one detector call and never mutated afterward.
type Signal struct {
	PatternID   string    `json:"pattern_id"`
	Direction   Direction `json:"direction"`
	Strength    float64   `json:"strength"`
	BaseWinRate float64   `json:"base_win_rate"`
}

// TimeframeResult is the aggregated outcome for one horizon.
// Signals are kept in detection order for reproducibility.
type TimeframeResult struct {
	Horizon           string    `json:"horizon"`
	Label             string    `json:"label"`
	Signals           []Signal  `json:"signals"`
	SignalCount       int       `json:"signal_count"`
	CalibratedWinRate float64   `json:"calibrated_win_rate"`
	Score             float64   `json:"score"`
	Direction         Direction `json:"direction"`
	MultiplierApplied float64   `json:"confluence_multiplier_applied"`
	Actionable        bool      `json:"actionable"`
}

// Action is the recommended trade style
type Action string

const (
	ActionScalp    Action = "SCALP"
	ActionSwing    Action = "SWING"
	ActionPosition Action = "POSITION"
	ActionWait     Action = "WAIT"
)

// ConfidenceTier classifies how much weight to put on the primary call
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "HIGH"
	TierMedium ConfidenceTier = "MEDIUM"
	TierLow    ConfidenceTier = "LOW"
)

// Agreement classifies cross-horizon directional alignment
type Agreement string

const (
	AgreementStrong   Agreement = "STRONG"
	AgreementModerate Agreement = "MODERATE"
	AgreementWeak     Agreement = "WEAK"
)

// RiskLevel classifies dispersion-based risk across horizons
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// SizingTier carries the position-sizing parameters attached to an
// actionable recommendation. Derived from the primary horizon's profile.
type SizingTier struct {
	Leverage       int     `json:"leverage"`
	MaxPositionPct float64 `json:"max_position_pct"`
}

// Recommendation is the final output of one evaluation. Derived and
// read-only; recomputed fresh each evaluation.
type Recommendation struct {
	Symbol         string          `json:"symbol"`
	Primary        *TimeframeResult `json:"primary,omitempty"`
	Action         Action          `json:"action"`
	ConfidenceTier ConfidenceTier  `json:"confidence_tier"`
	Agreement      Agreement       `json:"cross_horizon_agreement"`
	RiskDispersion RiskLevel       `json:"risk_dispersion"`
	Sizing         *SizingTier     `json:"sizing,omitempty"`
	// Score is the primary candidate's score, or for WAIT the max of
	// the raw horizon scores (display only, not actionable).
	Score float64 `json:"score"`
}

// Evaluation bundles the recommendation with the per-horizon results it
// was derived from. The whole struct is a pure function of the snapshot
// and the profile set: no timestamps, no randomness.
type Evaluation struct {
	Symbol         string            `json:"symbol"`
	ProfileVersion string            `json:"profile_version"`
	Timeframes     []TimeframeResult `json:"timeframes"`
	Recommendation Recommendation    `json:"recommendation"`
}
