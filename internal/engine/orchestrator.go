package engine

import "sync"

// Engine runs the detector catalog and aggregator once per configured
// horizon and derives the final recommendation. One evaluation is a
// pure function of the snapshot and profile set: no I/O, no clocks, no
// shared state, so identical inputs always produce identical output.
type Engine struct {
	detectors []Detector
	profiles  *ProfileSet
}

// New creates an engine bound to a validated profile set
func New(profiles *ProfileSet) *Engine {
	return &Engine{
		detectors: Catalog(),
		profiles:  profiles,
	}
}

// Profiles returns the profile set the engine is calibrated with
func (e *Engine) Profiles() *ProfileSet {
	return e.profiles
}

// Evaluate runs the full pipeline for one symbol. Horizons share no
// state and run concurrently; results join in profile order so the
// output is reproducible.
func (e *Engine) Evaluate(snap *RawSnapshot) *Evaluation {
	results := make([]TimeframeResult, len(e.profiles.Horizons))

	var wg sync.WaitGroup
	for i := range e.profiles.Horizons {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = e.evaluateHorizon(snap, &e.profiles.Horizons[idx])
		}(i)
	}
	wg.Wait()

	rec := Recommend(snap.Symbol, results, e.profiles)

	return &Evaluation{
		Symbol:         snap.Symbol,
		ProfileVersion: e.profiles.Version,
		Timeframes:     results,
		Recommendation: rec,
	}
}

// evaluateHorizon runs every detector against the snapshot with the
// horizon's calibration and aggregates whatever fired.
func (e *Engine) evaluateHorizon(snap *RawSnapshot, prof *HorizonProfile) TimeframeResult {
	signals := make([]Signal, 0, len(e.detectors))
	for _, d := range e.detectors {
		if s := d.Detect(snap, prof); s != nil {
			signals = append(signals, *s)
		}
	}
	return Aggregate(signals, prof)
}
