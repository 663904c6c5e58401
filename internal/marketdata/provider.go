package marketdata

import (
	"math"
	"strconv"
	"strings"
	"time"

	"confluence-engine/config"
	"confluence-engine/internal/engine"
	"confluence-engine/internal/logging"
)

// Provider assembles raw market snapshots for the scoring engine. Every
// upstream failure degrades to a missing section, never an error: the
// engine treats absent data as "no signal".
type Provider struct {
	client   *Client
	interval string
	limit    int
	log      *logging.Logger
}

func NewProvider(cfg config.MarketDataConfig) *Provider {
	return &Provider{
		client:   NewClient(cfg.BaseURL, cfg.FuturesBaseURL, time.Duration(cfg.TimeoutSecs)*time.Second),
		interval: cfg.KlineInterval,
		limit:    cfg.KlineLimit,
		log:      logging.WithComponent("marketdata"),
	}
}

// Snapshot fetches and assembles all observable inputs for a symbol
func (p *Provider) Snapshot(symbol string) *engine.RawSnapshot {
	snap := &engine.RawSnapshot{Symbol: symbol}

	klines, err := p.client.GetKlines(symbol, p.interval, p.limit)
	if err != nil {
		p.log.Warn("Kline fetch failed", "symbol", symbol, "error", err)
	} else {
		snap.Klines = convertKlines(klines)
	}

	ticker, err := p.client.Get24hrTicker(symbol)
	if err != nil {
		p.log.Warn("Ticker fetch failed", "symbol", symbol, "error", err)
	} else {
		snap.Ticker = &engine.TickerStats{
			LastPrice:      ticker.LastPrice,
			PriceChangePct: ticker.PriceChangePercent,
			QuoteVolume:    ticker.QuoteVolume,
			AvgQuoteVolume: avgDailyQuoteVolume(klines, p.interval),
			TradeCount:     ticker.Count,
		}
	}

	ratio, err := p.client.GetLongShortRatio(symbol, "5m")
	if err != nil {
		p.log.Warn("Long/short ratio fetch failed", "symbol", symbol, "error", err)
	} else {
		snap.LongShort = &engine.LongShortRatio{
			LongAccount:  ratio.LongAccount,
			ShortAccount: ratio.ShortAccount,
			Ratio:        ratio.LongShortRatio,
		}
	}

	orders, err := p.client.GetForceOrders(symbol, 100)
	if err != nil {
		p.log.Warn("Force order fetch failed", "symbol", symbol, "error", err)
	} else {
		snap.Liquidations = aggregateLiquidations(orders)
	}

	if len(snap.Klines) > 0 {
		snap.TradeHistory = outcomeStats(snap.Klines)
		snap.Trend = trendStrength(snap.Klines, 14)
	}

	return snap
}

func convertKlines(klines []Kline) []engine.Kline {
	out := make([]engine.Kline, len(klines))
	for i, k := range klines {
		out[i] = engine.Kline{
			OpenTime: k.OpenTime,
			Open:     k.Open,
			High:     k.High,
			Low:      k.Low,
			Close:    k.Close,
			Volume:   k.Volume,
		}
	}
	return out
}

// avgDailyQuoteVolume scales the mean per-candle quote volume up to a
// 24h figure so it compares against the ticker's rolling quote volume
func avgDailyQuoteVolume(klines []Kline, interval string) float64 {
	if len(klines) == 0 {
		return 0
	}
	mins := intervalMinutes(interval)
	if mins <= 0 {
		return 0
	}
	total := 0.0
	for _, k := range klines {
		total += k.QuoteVolume
	}
	perCandle := total / float64(len(klines))
	return perCandle * (24 * 60 / float64(mins))
}

func intervalMinutes(interval string) int {
	if interval == "" {
		return 0
	}
	unit := interval[len(interval)-1]
	n, err := strconv.Atoi(strings.TrimSuffix(interval, string(unit)))
	if err != nil {
		return 0
	}
	switch unit {
	case 'm':
		return n
	case 'h':
		return n * 60
	case 'd':
		return n * 24 * 60
	default:
		return 0
	}
}

// aggregateLiquidations sums liquidation notionals per side. A SELL force
// order closes a long position.
func aggregateLiquidations(orders []ForceOrder) *engine.LiquidationStats {
	if len(orders) == 0 {
		return nil
	}
	stats := &engine.LiquidationStats{}
	for _, o := range orders {
		price := o.AvgPrice
		if price == 0 {
			price = o.Price
		}
		notional := price * o.OrigQty
		if o.Side == "SELL" {
			stats.LongLiquidationsUSD += notional
		} else {
			stats.ShortLiquidationsUSD += notional
		}
	}
	stats.TotalUSD = stats.LongLiquidationsUSD + stats.ShortLiquidationsUSD
	return stats
}

// outcomeStats measures directional follow-through on the candle window:
// a "win" is a candle whose direction carries into the next one
func outcomeStats(klines []engine.Kline) *engine.TradeOutcomeStats {
	if len(klines) < 3 {
		return nil
	}

	stats := &engine.TradeOutcomeStats{}
	moveTotal := 0.0
	for i := 0; i+1 < len(klines); i++ {
		cur := klines[i].Close - klines[i].Open
		next := klines[i+1].Close - klines[i+1].Open
		if cur == 0 {
			continue
		}
		stats.Trades++
		if (cur > 0) == (next > 0) && next != 0 {
			stats.Wins++
		}
		if klines[i].Open != 0 {
			moveTotal += math.Abs(cur/klines[i].Open) * 100
		}
	}
	if stats.Trades == 0 {
		return nil
	}
	stats.WinRate = float64(stats.Wins) / float64(stats.Trades)
	stats.AvgMovePct = moveTotal / float64(stats.Trades)

	// Recent bias: net direction of the last 10 candles, in [-1, 1]
	start := len(klines) - 10
	if start < 0 {
		start = 0
	}
	up, down := 0, 0
	for _, k := range klines[start:] {
		if k.Close > k.Open {
			up++
		} else if k.Close < k.Open {
			down++
		}
	}
	if up+down > 0 {
		stats.RecentBias = float64(up-down) / float64(up+down)
	}
	return stats
}

// trendStrength computes ADX with Wilder smoothing and reads direction
// from the dominant directional index
func trendStrength(klines []engine.Kline, period int) *engine.TrendStrength {
	if len(klines) < 2*period+1 {
		return nil
	}

	var trSum, plusSum, minusSum float64
	for i := 1; i <= period; i++ {
		tr, plus, minus := directionalMove(klines[i-1], klines[i])
		trSum += tr
		plusSum += plus
		minusSum += minus
	}

	var adx float64
	dxCount := 0
	for i := period + 1; i < len(klines); i++ {
		tr, plus, minus := directionalMove(klines[i-1], klines[i])
		trSum = trSum - trSum/float64(period) + tr
		plusSum = plusSum - plusSum/float64(period) + plus
		minusSum = minusSum - minusSum/float64(period) + minus

		if trSum == 0 {
			continue
		}
		plusDI := 100 * plusSum / trSum
		minusDI := 100 * minusSum / trSum
		if plusDI+minusDI == 0 {
			continue
		}
		dx := 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
		dxCount++
		if dxCount == 1 {
			adx = dx
		} else {
			adx = (adx*float64(period-1) + dx) / float64(period)
		}
	}
	if dxCount == 0 {
		return nil
	}

	direction := engine.DirectionNeutral
	if trSum > 0 {
		plusDI := 100 * plusSum / trSum
		minusDI := 100 * minusSum / trSum
		if plusDI > minusDI {
			direction = engine.DirectionLong
		} else if minusDI > plusDI {
			direction = engine.DirectionShort
		}
	}

	return &engine.TrendStrength{ADX: adx, Direction: direction}
}

func directionalMove(prev, cur engine.Kline) (tr, plusDM, minusDM float64) {
	upMove := cur.High - prev.High
	downMove := prev.Low - cur.Low
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}

	tr = math.Max(cur.High-cur.Low,
		math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
	return tr, plusDM, minusDM
}
