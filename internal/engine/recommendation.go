package engine

// Recommend selects the primary actionable horizon, classifies
// cross-horizon agreement and estimates dispersion-based risk.
//
// A horizon becomes a candidate by clearing its own action threshold.
// With no candidates the call is WAIT with the max raw score reported
// for display only. Score ties resolve to the earlier horizon in
// profile order, keeping output deterministic.
func Recommend(symbol string, results []TimeframeResult, ps *ProfileSet) Recommendation {
	rec := Recommendation{
		Symbol:         symbol,
		Action:         ActionWait,
		ConfidenceTier: TierLow,
		Agreement:      AgreementWeak,
		RiskDispersion: RiskHigh,
	}
	if len(results) == 0 {
		return rec
	}

	var primary *TimeframeResult
	var primaryProf *HorizonProfile
	maxScore := 0.0
	for i := range results {
		if results[i].Score > maxScore {
			maxScore = results[i].Score
		}
		if !results[i].Actionable {
			continue
		}
		if primary == nil || results[i].Score > primary.Score {
			primary = &results[i]
			primaryProf = profileFor(ps, results[i].Horizon)
		}
	}

	if primary == nil {
		// WAIT path: nothing cleared its bar, risk stays HIGH
		rec.Score = maxScore
		return rec
	}

	rec.Primary = primary
	rec.Score = primary.Score
	rec.Action = primaryProf.Action
	rec.Sizing = &SizingTier{
		Leverage:       primaryProf.Sizing.Leverage,
		MaxPositionPct: primaryProf.Sizing.MaxPositionPct,
	}
	rec.ConfidenceTier = confidenceTier(primary.Score, ps.Confidence)
	rec.Agreement = crossHorizonAgreement(primary.Direction, results)
	rec.RiskDispersion = riskDispersion(results, ps.Risk)
	return rec
}

func profileFor(ps *ProfileSet, horizon string) *HorizonProfile {
	for i := range ps.Horizons {
		if ps.Horizons[i].Horizon == horizon {
			return &ps.Horizons[i]
		}
	}
	return nil
}

func confidenceTier(score float64, th ConfidenceThresholds) ConfidenceTier {
	switch {
	case score >= th.High:
		return TierHigh
	case score >= th.Medium:
		return TierMedium
	default:
		return TierLow
	}
}

// crossHorizonAgreement counts horizons whose direction matches the
// primary's, the primary included. Two or more is STRONG; a direct
// opposition with no second supporter is WEAK; otherwise MODERATE.
func crossHorizonAgreement(primary Direction, results []TimeframeResult) Agreement {
	matches := 0
	opposed := false
	for i := range results {
		if results[i].Direction == primary {
			matches++
		} else if results[i].Direction == primary.Opposite() && primary != DirectionNeutral {
			opposed = true
		}
	}
	switch {
	case matches >= 2:
		return AgreementStrong
	case opposed:
		return AgreementWeak
	default:
		return AgreementModerate
	}
}

// riskDispersion classifies risk from the spread of the horizon
// scores: tight and high means the horizons agree on a strong setup,
// wide means they disagree.
func riskDispersion(results []TimeframeResult, th RiskThresholds) RiskLevel {
	if len(results) == 0 {
		return RiskHigh
	}
	mean := 0.0
	for i := range results {
		mean += results[i].Score
	}
	mean /= float64(len(results))

	variance := 0.0
	for i := range results {
		d := results[i].Score - mean
		variance += d * d
	}
	variance /= float64(len(results))

	switch {
	case variance >= th.HighVariance:
		return RiskHigh
	case variance <= th.LowVariance && mean >= th.HighMean:
		return RiskLow
	default:
		return RiskMedium
	}
}
