package engine

// Aggregate combines the ordered signals detected for one horizon into
// a TimeframeResult.
//
// The dominant direction is the strict majority among non-neutral
// signals; an even split is NEUTRAL and keeps every signal relevant.
// The calibrated win rate is the strength-weighted average of the
// relevant signals' base rates, amplified by the profile's confluence
// multiplier for the relevant count, discounted by the dampening
// factor, and hard-capped at the profile ceiling. No combination of
// evidence is allowed to imply near-certainty.
func Aggregate(signals []Signal, prof *HorizonProfile) TimeframeResult {
	result := TimeframeResult{
		Horizon:           prof.Horizon,
		Label:             prof.Label,
		Signals:           signals,
		SignalCount:       len(signals),
		Direction:         DirectionNeutral,
		MultiplierApplied: 1.0,
	}

	if len(signals) == 0 {
		// Neutral default: no evidence means a coin flip, not zero
		result.CalibratedWinRate = 0.50
		result.Score = 50
		return result
	}

	result.Direction = dominantDirection(signals)

	relevant := signals
	if result.Direction != DirectionNeutral {
		relevant = make([]Signal, 0, len(signals))
		for _, s := range signals {
			if s.Direction == result.Direction {
				relevant = append(relevant, s)
			}
		}
	}

	var weightedSum, totalStrength float64
	for _, s := range relevant {
		weightedSum += s.Strength * s.BaseWinRate
		totalStrength += s.Strength
	}
	if totalStrength <= 0 {
		result.CalibratedWinRate = 0.50
		result.Score = 50
		return result
	}

	baseRate := weightedSum / totalStrength
	multiplier := prof.Multiplier(len(relevant))

	calibrated := baseRate * multiplier * prof.Dampening
	if calibrated > prof.WinRateCeiling {
		calibrated = prof.WinRateCeiling
	}

	result.CalibratedWinRate = calibrated
	result.Score = calibrated * 100
	result.MultiplierApplied = multiplier
	result.Actionable = result.Score >= prof.ActionThreshold
	return result
}

// dominantDirection returns the direction with a strict majority among
// non-neutral signals, or NEUTRAL when the counts tie.
func dominantDirection(signals []Signal) Direction {
	longCount, shortCount := 0, 0
	for _, s := range signals {
		switch s.Direction {
		case DirectionLong:
			longCount++
		case DirectionShort:
			shortCount++
		}
	}
	switch {
	case longCount > shortCount:
		return DirectionLong
	case shortCount > longCount:
		return DirectionShort
	default:
		return DirectionNeutral
	}
}
