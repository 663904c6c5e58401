package marketdata

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"confluence-engine/config"
	"confluence-engine/internal/engine"
)

// TestSnapshotDegradesOnFetchFailure verifies an unreachable upstream
// yields a snapshot with every section missing, not an error
func TestSnapshotDegradesOnFetchFailure(t *testing.T) {
	p := NewProvider(config.MarketDataConfig{
		BaseURL:        "http://127.0.0.1:1",
		FuturesBaseURL: "http://127.0.0.1:1",
		TimeoutSecs:    1,
		KlineInterval:  "5m",
		KlineLimit:     50,
	})

	snap := p.Snapshot("BTCUSDT")
	if snap == nil {
		t.Fatal("Snapshot must never be nil")
	}
	if snap.Symbol != "BTCUSDT" {
		t.Errorf("Expected symbol BTCUSDT, got %s", snap.Symbol)
	}
	if snap.Ticker != nil || snap.Klines != nil || snap.LongShort != nil || snap.Liquidations != nil {
		t.Errorf("All sections should be missing when every fetch fails: %+v", snap)
	}
}

// TestSnapshotAssembly runs the provider against a stub exchange
func TestSnapshotAssembly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/klines":
			w.Write([]byte(`[
				[1000,"100","105","95","102","1500",1299,"150000",120,"700","70000",""],
				[1300,"102","108","101","107","2500",1599,"260000",180,"1300","130000",""],
				[1600,"107","112","106","111","2400",1899,"255000",170,"1250","127000",""]
			]`))
		case "/api/v3/ticker/24hr":
			w.Write([]byte(`{"symbol":"BTCUSDT","priceChange":"5.0","priceChangePercent":"4.7","lastPrice":"111","volume":"6400","quoteVolume":"665000","count":470}`))
		case "/futures/data/globalLongShortAccountRatio":
			w.Write([]byte(`[{"symbol":"BTCUSDT","longAccount":"0.70","shortAccount":"0.30","longShortRatio":"2.33","timestamp":1600}]`))
		case "/fapi/v1/allForceOrders":
			w.Write([]byte(`[
				{"symbol":"BTCUSDT","side":"SELL","price":"100","origQty":"10","averagePrice":"100","status":"FILLED","time":1500},
				{"symbol":"BTCUSDT","side":"BUY","price":"110","origQty":"2","averagePrice":"110","status":"FILLED","time":1550}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProvider(config.MarketDataConfig{
		BaseURL:        srv.URL,
		FuturesBaseURL: srv.URL,
		TimeoutSecs:    2,
		KlineInterval:  "5m",
		KlineLimit:     3,
	})

	snap := p.Snapshot("BTCUSDT")

	if len(snap.Klines) != 3 {
		t.Fatalf("Expected 3 klines, got %d", len(snap.Klines))
	}
	if snap.Klines[1].Close != 107 {
		t.Errorf("Kline parse mismatch: %+v", snap.Klines[1])
	}
	if snap.Ticker == nil || snap.Ticker.LastPrice != 111 || snap.Ticker.TradeCount != 470 {
		t.Errorf("Ticker parse mismatch: %+v", snap.Ticker)
	}
	if snap.LongShort == nil || snap.LongShort.Ratio != 2.33 {
		t.Errorf("Long/short parse mismatch: %+v", snap.LongShort)
	}
	if snap.Liquidations == nil {
		t.Fatal("Expected liquidation stats")
	}
	if snap.Liquidations.LongLiquidationsUSD != 1000 || snap.Liquidations.ShortLiquidationsUSD != 220 {
		t.Errorf("Liquidation aggregation mismatch: %+v", snap.Liquidations)
	}
	if snap.Liquidations.TotalUSD != 1220 {
		t.Errorf("Expected total 1220, got %.0f", snap.Liquidations.TotalUSD)
	}
}

func TestIntervalMinutes(t *testing.T) {
	tests := []struct {
		interval string
		want     int
	}{
		{"1m", 1},
		{"5m", 5},
		{"1h", 60},
		{"4h", 240},
		{"1d", 1440},
		{"", 0},
		{"5x", 0},
	}
	for _, tt := range tests {
		if got := intervalMinutes(tt.interval); got != tt.want {
			t.Errorf("intervalMinutes(%q) = %d, want %d", tt.interval, got, tt.want)
		}
	}
}

// TestOutcomeStats verifies follow-through counting on a known window
func TestOutcomeStats(t *testing.T) {
	// up, up, down, down: transitions up->up (win), up->down (loss),
	// down->down (win)
	klines := []engine.Kline{
		{Open: 100, Close: 102},
		{Open: 102, Close: 104},
		{Open: 104, Close: 101},
		{Open: 101, Close: 99},
	}
	stats := outcomeStats(klines)
	if stats == nil {
		t.Fatal("Expected stats")
	}
	if stats.Trades != 3 || stats.Wins != 2 {
		t.Errorf("Expected 2/3 wins, got %d/%d", stats.Wins, stats.Trades)
	}
	if stats.RecentBias >= 0.5 {
		t.Errorf("Half-down window should not read strongly bullish, got %.2f", stats.RecentBias)
	}
}

// TestTrendStrengthDirection verifies a steady climb reads LONG with a
// meaningful ADX
func TestTrendStrengthDirection(t *testing.T) {
	klines := make([]engine.Kline, 0, 60)
	price := 100.0
	for i := 0; i < 60; i++ {
		price += 1
		klines = append(klines, engine.Kline{
			Open: price - 1, High: price + 0.5, Low: price - 1.5, Close: price,
		})
	}
	trend := trendStrength(klines, 14)
	if trend == nil {
		t.Fatal("Expected trend reading")
	}
	if trend.Direction != engine.DirectionLong {
		t.Errorf("Steady climb should read LONG, got %s", trend.Direction)
	}
	if trend.ADX < 20 {
		t.Errorf("Steady climb should have ADX >= 20, got %.1f", trend.ADX)
	}

	if trendStrength(klines[:10], 14) != nil {
		t.Error("Short window should yield no trend reading")
	}
}

// TestClientTimeout keeps the HTTP client bounded
func TestClientTimeout(t *testing.T) {
	c := NewClient("http://x", "http://y", 0)
	if c.httpClient.Timeout != 10*time.Second {
		t.Errorf("Expected default 10s timeout, got %s", c.httpClient.Timeout)
	}
}
