package engine

import "math"

// Detector inspects one slice of a snapshot and emits zero or one
// Signal. Detectors are stateless and deterministic, never read each
// other's output, and treat missing or malformed data as "no signal".
type Detector interface {
	Name() string
	Detect(snap *RawSnapshot, prof *HorizonProfile) *Signal
}

// Catalog returns the registered detector list. The aggregator never
// cares which detectors exist; growing the catalog needs no changes
// outside this file.
func Catalog() []Detector {
	return []Detector{
		&momentumDetector{},
		&volumeBreakoutDetector{},
		&rapidMoveDetector{},
		&liquidationReversalDetector{},
		&candleBreakoutDetector{},
		&longShortExtremeDetector{},
		&trendStrengthDetector{},
		&institutionalDetector{},
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// momentumDetector fires when historical trade outcomes show a
// persistent directional edge.
type momentumDetector struct{}

func (d *momentumDetector) Name() string { return "ai_momentum" }

func (d *momentumDetector) Detect(snap *RawSnapshot, prof *HorizonProfile) *Signal {
	th := snap.TradeHistory
	if th == nil || th.Trades < prof.Detectors.MomentumMinTrades {
		return nil
	}
	if th.WinRate < prof.Detectors.MomentumMinWinRate {
		return nil
	}
	direction := DirectionNeutral
	if th.RecentBias > 0.1 {
		direction = DirectionLong
	} else if th.RecentBias < -0.1 {
		direction = DirectionShort
	}
	if direction == DirectionNeutral {
		return nil
	}
	// Strength grows with the edge over the minimum win rate
	edge := (th.WinRate - prof.Detectors.MomentumMinWinRate) / (1 - prof.Detectors.MomentumMinWinRate)
	strength := clamp01(0.5 + edge)
	return &Signal{
		PatternID:   d.Name(),
		Direction:   direction,
		Strength:    strength,
		BaseWinRate: prof.Detectors.MomentumBaseRate,
	}
}

// volumeBreakoutDetector fires on 24h volume running well above its
// trailing average with a directional price move behind it.
type volumeBreakoutDetector struct{}

func (d *volumeBreakoutDetector) Name() string { return "volume_breakout" }

func (d *volumeBreakoutDetector) Detect(snap *RawSnapshot, prof *HorizonProfile) *Signal {
	t := snap.Ticker
	if t == nil || t.AvgQuoteVolume <= 0 || t.QuoteVolume <= 0 {
		return nil
	}
	ratio := t.QuoteVolume / t.AvgQuoteVolume
	if ratio < prof.Detectors.VolumeSpikeRatio {
		return nil
	}
	direction := DirectionNeutral
	if t.PriceChangePct > 0 {
		direction = DirectionLong
	} else if t.PriceChangePct < 0 {
		direction = DirectionShort
	}
	if direction == DirectionNeutral {
		return nil
	}
	strength := clamp01(ratio / (2 * prof.Detectors.VolumeSpikeRatio))
	return &Signal{
		PatternID:   d.Name(),
		Direction:   direction,
		Strength:    strength,
		BaseWinRate: prof.Detectors.VolumeBreakoutBaseRate,
	}
}

// rapidMoveDetector fires on an outsized 24h price move, betting on
// follow-through in the same direction.
type rapidMoveDetector struct{}

func (d *rapidMoveDetector) Name() string { return "rapid_move" }

func (d *rapidMoveDetector) Detect(snap *RawSnapshot, prof *HorizonProfile) *Signal {
	t := snap.Ticker
	if t == nil {
		return nil
	}
	move := math.Abs(t.PriceChangePct)
	if move < prof.Detectors.RapidMovePct {
		return nil
	}
	direction := DirectionLong
	if t.PriceChangePct < 0 {
		direction = DirectionShort
	}
	strength := clamp01(move / (2 * prof.Detectors.RapidMovePct))
	return &Signal{
		PatternID:   d.Name(),
		Direction:   direction,
		Strength:    strength,
		BaseWinRate: prof.Detectors.RapidMoveBaseRate,
	}
}

// liquidationReversalDetector is contrarian: a one-sided liquidation
// cascade marks capitulation, so heavy long liquidations set up a LONG
// reversal and vice versa.
type liquidationReversalDetector struct{}

func (d *liquidationReversalDetector) Name() string { return "liquidation_reversal" }

func (d *liquidationReversalDetector) Detect(snap *RawSnapshot, prof *HorizonProfile) *Signal {
	liq := snap.Liquidations
	if liq == nil || liq.TotalUSD < prof.Detectors.LiquidationSpikeUSD {
		return nil
	}
	total := liq.LongLiquidationsUSD + liq.ShortLiquidationsUSD
	if total <= 0 {
		return nil
	}
	longShare := liq.LongLiquidationsUSD / total
	var direction Direction
	var share float64
	switch {
	case longShare >= prof.Detectors.LiquidationImbalance:
		direction = DirectionLong
		share = longShare
	case (1 - longShare) >= prof.Detectors.LiquidationImbalance:
		direction = DirectionShort
		share = 1 - longShare
	default:
		return nil
	}
	// More one-sided cascades carry more strength
	strength := clamp01((share - 0.5) * 2)
	return &Signal{
		PatternID:   d.Name(),
		Direction:   direction,
		Strength:    strength,
		BaseWinRate: prof.Detectors.LiquidationBaseRate,
	}
}

// candleBreakoutDetector fires when the latest close breaks the
// high/low range of the lookback window.
type candleBreakoutDetector struct{}

func (d *candleBreakoutDetector) Name() string { return "candle_breakout" }

func (d *candleBreakoutDetector) Detect(snap *RawSnapshot, prof *HorizonProfile) *Signal {
	lookback := prof.Detectors.BreakoutLookback
	klines := snap.Klines
	if len(klines) < lookback+1 {
		return nil
	}
	window := klines[len(klines)-lookback-1 : len(klines)-1]
	last := klines[len(klines)-1]

	highest := window[0].High
	lowest := window[0].Low
	for _, k := range window[1:] {
		if k.High > highest {
			highest = k.High
		}
		if k.Low < lowest {
			lowest = k.Low
		}
	}
	if highest <= lowest {
		return nil
	}

	var direction Direction
	var margin float64
	switch {
	case last.Close > highest:
		direction = DirectionLong
		margin = (last.Close - highest) / highest
	case last.Close < lowest:
		direction = DirectionShort
		margin = (lowest - last.Close) / lowest
	default:
		return nil
	}
	// 1% breakout margin saturates strength
	strength := clamp01(0.5 + margin*50)
	return &Signal{
		PatternID:   d.Name(),
		Direction:   direction,
		Strength:    strength,
		BaseWinRate: prof.Detectors.BreakoutBaseRate,
	}
}

// longShortExtremeDetector is contrarian: a crowded long book signals
// SHORT, a crowded short book signals LONG.
type longShortExtremeDetector struct{}

func (d *longShortExtremeDetector) Name() string { return "long_short_extreme" }

func (d *longShortExtremeDetector) Detect(snap *RawSnapshot, prof *HorizonProfile) *Signal {
	ls := snap.LongShort
	if ls == nil || ls.Ratio <= 0 {
		return nil
	}
	extreme := prof.Detectors.LongShortExtreme
	var direction Direction
	var stretch float64
	switch {
	case ls.Ratio >= extreme:
		direction = DirectionShort
		stretch = ls.Ratio / extreme
	case ls.Ratio <= 1/extreme:
		direction = DirectionLong
		stretch = (1 / extreme) / ls.Ratio
	default:
		return nil
	}
	strength := clamp01(0.5 + (stretch-1)*0.5)
	return &Signal{
		PatternID:   d.Name(),
		Direction:   direction,
		Strength:    strength,
		BaseWinRate: prof.Detectors.LongShortBaseRate,
	}
}

// trendStrengthDetector fires when the trend indicator reads strong
// and directional.
type trendStrengthDetector struct{}

func (d *trendStrengthDetector) Name() string { return "trend_strength" }

func (d *trendStrengthDetector) Detect(snap *RawSnapshot, prof *HorizonProfile) *Signal {
	tr := snap.Trend
	if tr == nil || tr.ADX < prof.Detectors.TrendADXMin {
		return nil
	}
	if tr.Direction != DirectionLong && tr.Direction != DirectionShort {
		return nil
	}
	// ADX 25 -> ~0.5, ADX 60+ -> 1.0
	strength := clamp01((tr.ADX - prof.Detectors.TrendADXMin) / 35 * 0.5 + 0.5)
	return &Signal{
		PatternID:   d.Name(),
		Direction:   tr.Direction,
		Strength:    strength,
		BaseWinRate: prof.Detectors.TrendBaseRate,
	}
}

// institutionalDetector is the catch-all fundamental signal for longer
// horizons: sustained heavy volume with an established trend reads as
// institutional accumulation or distribution.
type institutionalDetector struct{}

func (d *institutionalDetector) Name() string { return "institutional_flow" }

func (d *institutionalDetector) Detect(snap *RawSnapshot, prof *HorizonProfile) *Signal {
	if !prof.Detectors.InstitutionalEnabled {
		return nil
	}
	t := snap.Ticker
	tr := snap.Trend
	if t == nil || tr == nil {
		return nil
	}
	if t.QuoteVolume < prof.Detectors.InstitutionalMinVolumeUSD {
		return nil
	}
	if tr.Direction != DirectionLong && tr.Direction != DirectionShort {
		return nil
	}
	strength := clamp01(t.QuoteVolume / (2 * prof.Detectors.InstitutionalMinVolumeUSD))
	return &Signal{
		PatternID:   d.Name(),
		Direction:   tr.Direction,
		Strength:    strength,
		BaseWinRate: prof.Detectors.InstitutionalBaseRate,
	}
}
