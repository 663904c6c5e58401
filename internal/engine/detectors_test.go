package engine

import "testing"

// TestDetectorsNoSignalOnEmptySnapshot verifies every detector degrades
// to "no signal" on missing data instead of erroring
func TestDetectorsNoSignalOnEmptySnapshot(t *testing.T) {
	snap := &RawSnapshot{Symbol: "BTCUSDT"}
	for _, prof := range DefaultProfileSet().Horizons {
		for _, d := range Catalog() {
			if s := d.Detect(snap, &prof); s != nil {
				t.Errorf("%s/%s: emitted a signal from an empty snapshot: %+v", prof.Horizon, d.Name(), s)
			}
		}
	}
}

// TestDetectorRanges verifies emitted signals stay within the contract
// ranges for a fully populated snapshot
func TestDetectorRanges(t *testing.T) {
	snap := fullSnapshot()
	for _, prof := range DefaultProfileSet().Horizons {
		for _, d := range Catalog() {
			s := d.Detect(snap, &prof)
			if s == nil {
				continue
			}
			if s.Strength < 0 || s.Strength > 1 {
				t.Errorf("%s/%s: strength %.3f outside [0,1]", prof.Horizon, d.Name(), s.Strength)
			}
			if s.BaseWinRate <= 0 || s.BaseWinRate >= 1 {
				t.Errorf("%s/%s: base win rate %.3f outside (0,1)", prof.Horizon, d.Name(), s.BaseWinRate)
			}
			if s.Direction != DirectionLong && s.Direction != DirectionShort {
				t.Errorf("%s/%s: unexpected direction %s", prof.Horizon, d.Name(), s.Direction)
			}
			if s.PatternID != d.Name() {
				t.Errorf("%s: pattern id %q does not match detector name", d.Name(), s.PatternID)
			}
		}
	}
}

// TestVolumeBreakout checks the fire/no-fire boundary
func TestVolumeBreakout(t *testing.T) {
	prof := shortProfile()
	d := &volumeBreakoutDetector{}

	snap := &RawSnapshot{
		Symbol: "BTCUSDT",
		Ticker: &TickerStats{QuoteVolume: 200e6, AvgQuoteVolume: 100e6, PriceChangePct: 2.5},
	}
	s := d.Detect(snap, prof)
	if s == nil {
		t.Fatal("Should fire at 2.0x average volume with positive move")
	}
	if s.Direction != DirectionLong {
		t.Errorf("Positive move should read LONG, got %s", s.Direction)
	}

	snap.Ticker.QuoteVolume = 150e6 // 1.5x, below the 1.8 threshold
	if d.Detect(snap, prof) != nil {
		t.Error("Should not fire below the spike ratio")
	}

	snap.Ticker.QuoteVolume = 200e6
	snap.Ticker.PriceChangePct = 0 // volume without direction
	if d.Detect(snap, prof) != nil {
		t.Error("Should not fire without a directional move")
	}
}

// TestLiquidationReversal checks the contrarian direction mapping
func TestLiquidationReversal(t *testing.T) {
	prof := shortProfile()
	d := &liquidationReversalDetector{}

	// Heavy long liquidations mark a flush down: reversal is LONG
	snap := &RawSnapshot{
		Liquidations: &LiquidationStats{
			LongLiquidationsUSD:  8e6,
			ShortLiquidationsUSD: 1e6,
			TotalUSD:             9e6,
		},
	}
	s := d.Detect(snap, prof)
	if s == nil {
		t.Fatal("Should fire on a one-sided liquidation cascade")
	}
	if s.Direction != DirectionLong {
		t.Errorf("Long-side cascade should signal LONG reversal, got %s", s.Direction)
	}

	// Balanced liquidations carry no edge
	snap.Liquidations.ShortLiquidationsUSD = 7e6
	snap.Liquidations.TotalUSD = 15e6
	if d.Detect(snap, prof) != nil {
		t.Error("Should not fire on balanced liquidations")
	}

	// Below the spike floor
	snap.Liquidations = &LiquidationStats{LongLiquidationsUSD: 0.9e6, ShortLiquidationsUSD: 0.1e6, TotalUSD: 1e6}
	if d.Detect(snap, prof) != nil {
		t.Error("Should not fire below the USD spike threshold")
	}
}

// TestLongShortExtreme checks both contrarian sides
func TestLongShortExtreme(t *testing.T) {
	prof := shortProfile()
	d := &longShortExtremeDetector{}

	crowdedLong := &RawSnapshot{LongShort: &LongShortRatio{Ratio: 3.0}}
	s := d.Detect(crowdedLong, prof)
	if s == nil || s.Direction != DirectionShort {
		t.Errorf("Crowded long book should signal SHORT, got %+v", s)
	}

	crowdedShort := &RawSnapshot{LongShort: &LongShortRatio{Ratio: 0.3}}
	s = d.Detect(crowdedShort, prof)
	if s == nil || s.Direction != DirectionLong {
		t.Errorf("Crowded short book should signal LONG, got %+v", s)
	}

	balanced := &RawSnapshot{LongShort: &LongShortRatio{Ratio: 1.1}}
	if d.Detect(balanced, prof) != nil {
		t.Error("Balanced book should not fire")
	}
}

// TestCandleBreakout checks range-break detection on both sides
func TestCandleBreakout(t *testing.T) {
	prof := shortProfile()
	d := &candleBreakoutDetector{}

	klines := make([]Kline, 0, prof.Detectors.BreakoutLookback+1)
	for i := 0; i < prof.Detectors.BreakoutLookback; i++ {
		klines = append(klines, Kline{Open: 100, High: 105, Low: 95, Close: 100})
	}

	up := append(append([]Kline{}, klines...), Kline{Open: 104, High: 108, Low: 103, Close: 107})
	s := d.Detect(&RawSnapshot{Klines: up}, prof)
	if s == nil || s.Direction != DirectionLong {
		t.Errorf("Close above range high should signal LONG, got %+v", s)
	}

	down := append(append([]Kline{}, klines...), Kline{Open: 96, High: 97, Low: 91, Close: 92})
	s = d.Detect(&RawSnapshot{Klines: down}, prof)
	if s == nil || s.Direction != DirectionShort {
		t.Errorf("Close below range low should signal SHORT, got %+v", s)
	}

	inside := append(append([]Kline{}, klines...), Kline{Open: 100, High: 103, Low: 98, Close: 101})
	if d.Detect(&RawSnapshot{Klines: inside}, prof) != nil {
		t.Error("Close inside the range should not fire")
	}

	// Not enough candles is missing data, not an error
	if d.Detect(&RawSnapshot{Klines: klines[:5]}, prof) != nil {
		t.Error("Short kline history should not fire")
	}
}

// TestInstitutionalGatedByHorizon verifies the detector only runs where
// the profile enables it
func TestInstitutionalGatedByHorizon(t *testing.T) {
	ps := DefaultProfileSet()
	d := &institutionalDetector{}
	snap := &RawSnapshot{
		Ticker: &TickerStats{QuoteVolume: 500e6, AvgQuoteVolume: 400e6, PriceChangePct: 1},
		Trend:  &TrendStrength{ADX: 40, Direction: DirectionLong},
	}

	if s := d.Detect(snap, &ps.Horizons[0]); s != nil {
		t.Errorf("Institutional detector must not fire on the short horizon, got %+v", s)
	}
	if s := d.Detect(snap, &ps.Horizons[2]); s == nil {
		t.Error("Institutional detector should fire on the long horizon")
	}
}

// fullSnapshot builds a snapshot with every slice populated and enough
// extremity to trip most detectors on the short horizon
func fullSnapshot() *RawSnapshot {
	klines := make([]Kline, 0, 100)
	price := 100.0
	for i := 0; i < 100; i++ {
		price += 0.4
		klines = append(klines, Kline{
			OpenTime: int64(i) * 60000,
			Open:     price - 0.4,
			High:     price + 0.5,
			Low:      price - 0.8,
			Close:    price,
			Volume:   1500,
		})
	}
	// Final candle breaks the range high
	klines = append(klines, Kline{
		OpenTime: 100 * 60000,
		Open:     price,
		High:     price + 4,
		Low:      price - 0.2,
		Close:    price + 3.5,
		Volume:   4000,
	})

	return &RawSnapshot{
		Symbol: "BTCUSDT",
		Ticker: &TickerStats{
			LastPrice:      price + 3.5,
			PriceChangePct: 6.5,
			QuoteVolume:    300e6,
			AvgQuoteVolume: 100e6,
			TradeCount:     250000,
		},
		Klines:    klines,
		LongShort: &LongShortRatio{LongAccount: 0.78, ShortAccount: 0.22, Ratio: 3.5},
		Liquidations: &LiquidationStats{
			LongLiquidationsUSD:  22e6,
			ShortLiquidationsUSD: 4e6,
			TotalUSD:             26e6,
		},
		TradeHistory: &TradeOutcomeStats{
			Trades:     45,
			Wins:       30,
			WinRate:    0.667,
			AvgMovePct: 1.8,
			RecentBias: 0.6,
		},
		Trend: &TrendStrength{ADX: 38, Direction: DirectionLong},
	}
}
