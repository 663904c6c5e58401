package engine

// RawSnapshot is the immutable per-symbol bundle of market data slices
// an evaluation runs against. Any slice may be nil or empty: partial
// coverage is the normal case and detectors degrade to "no signal"
// rather than erroring. The snapshot is never mutated by the engine.
type RawSnapshot struct {
	Symbol string `json:"symbol"`

	Ticker       *TickerStats       `json:"ticker,omitempty"`
	Klines       []Kline            `json:"klines,omitempty"`
	LongShort    *LongShortRatio    `json:"long_short,omitempty"`
	Liquidations *LiquidationStats  `json:"liquidations,omitempty"`
	TradeHistory *TradeOutcomeStats `json:"trade_history,omitempty"`
	Trend        *TrendStrength     `json:"trend,omitempty"`
}

// TickerStats summarizes rolling 24h market activity
type TickerStats struct {
	LastPrice      float64 `json:"last_price"`
	PriceChangePct float64 `json:"price_change_pct"` // signed, e.g. -3.2
	QuoteVolume    float64 `json:"quote_volume"`     // 24h volume in quote currency
	AvgQuoteVolume float64 `json:"avg_quote_volume"` // trailing average for spike detection
	TradeCount     int64   `json:"trade_count"`
}

// Kline is a single OHLCV candle
type Kline struct {
	OpenTime  int64   `json:"open_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"close_time"`
}

// LongShortRatio is the global long/short account ratio for the symbol
type LongShortRatio struct {
	LongAccount  float64 `json:"long_account"`  // fraction of accounts long
	ShortAccount float64 `json:"short_account"` // fraction of accounts short
	Ratio        float64 `json:"ratio"`         // long/short
}

// LiquidationStats totals forced liquidations over the provider's window
type LiquidationStats struct {
	LongLiquidationsUSD  float64 `json:"long_liquidations_usd"`
	ShortLiquidationsUSD float64 `json:"short_liquidations_usd"`
	TotalUSD             float64 `json:"total_usd"`
}

// TradeOutcomeStats summarizes historical trade outcomes for the symbol
type TradeOutcomeStats struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate"`      // wins/trades, 0-1
	AvgMovePct  float64 `json:"avg_move_pct"`  // signed mean move of past trades
	RecentBias  float64 `json:"recent_bias"`   // signed, -1..1, direction of recent outcomes
}

// TrendStrength is a precomputed trend-indicator reading (ADX-style)
type TrendStrength struct {
	ADX       float64   `json:"adx"` // 0-100
	Direction Direction `json:"direction"`
}
