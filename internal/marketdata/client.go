package marketdata

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a read-only REST client for the exchange's public market data
type Client struct {
	baseURL        string
	futuresBaseURL string
	httpClient     *http.Client
}

func NewClient(baseURL, futuresBaseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:        baseURL,
		futuresBaseURL: futuresBaseURL,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// Kline represents a candlestick
type Kline struct {
	OpenTime    int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	CloseTime   int64
	QuoteVolume float64
	TradeCount  int
}

// Ticker24hr represents 24hr ticker price change statistics
type Ticker24hr struct {
	Symbol             string  `json:"symbol"`
	PriceChange        float64 `json:"priceChange,string"`
	PriceChangePercent float64 `json:"priceChangePercent,string"`
	LastPrice          float64 `json:"lastPrice,string"`
	Volume             float64 `json:"volume,string"`
	QuoteVolume        float64 `json:"quoteVolume,string"`
	Count              int64   `json:"count"`
}

// LongShortRatioPoint is one bucket of the global account long/short ratio
type LongShortRatioPoint struct {
	Symbol         string  `json:"symbol"`
	LongAccount    float64 `json:"longAccount,string"`
	ShortAccount   float64 `json:"shortAccount,string"`
	LongShortRatio float64 `json:"longShortRatio,string"`
	Timestamp      int64   `json:"timestamp"`
}

// ForceOrder is a single liquidation order
type ForceOrder struct {
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Price        float64 `json:"price,string"`
	OrigQty      float64 `json:"origQty,string"`
	AvgPrice     float64 `json:"averagePrice,string"`
	Status       string  `json:"status"`
	Time         int64   `json:"time"`
}

// GetKlines fetches candlestick data
func (c *Client) GetKlines(symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, params.Encode())

	body, err := c.get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching klines: %w", err)
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("error parsing klines: %w", err)
	}

	klines := make([]Kline, len(rawKlines))
	for i, raw := range rawKlines {
		if len(raw) < 9 {
			return nil, fmt.Errorf("malformed kline at index %d", i)
		}
		klines[i] = Kline{
			OpenTime:    int64(raw[0].(float64)),
			Open:        parseFloat(raw[1]),
			High:        parseFloat(raw[2]),
			Low:         parseFloat(raw[3]),
			Close:       parseFloat(raw[4]),
			Volume:      parseFloat(raw[5]),
			CloseTime:   int64(raw[6].(float64)),
			QuoteVolume: parseFloat(raw[7]),
			TradeCount:  int(raw[8].(float64)),
		}
	}

	return klines, nil
}

// Get24hrTicker fetches 24hr ticker statistics for one symbol
func (c *Client) Get24hrTicker(symbol string) (*Ticker24hr, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", c.baseURL, url.QueryEscape(symbol))

	body, err := c.get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching ticker: %w", err)
	}

	var ticker Ticker24hr
	if err := json.Unmarshal(body, &ticker); err != nil {
		return nil, fmt.Errorf("error parsing ticker: %w", err)
	}

	return &ticker, nil
}

// GetLongShortRatio fetches the most recent global account long/short ratio
func (c *Client) GetLongShortRatio(symbol, period string) (*LongShortRatioPoint, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("period", period)
	params.Set("limit", "1")

	endpoint := fmt.Sprintf("%s/futures/data/globalLongShortAccountRatio?%s", c.futuresBaseURL, params.Encode())

	body, err := c.get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching long/short ratio: %w", err)
	}

	var points []LongShortRatioPoint
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, fmt.Errorf("error parsing long/short ratio: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no long/short ratio data for %s", symbol)
	}

	return &points[len(points)-1], nil
}

// GetForceOrders fetches recent liquidation orders for a symbol
func (c *Client) GetForceOrders(symbol string, limit int) ([]ForceOrder, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/fapi/v1/allForceOrders?%s", c.futuresBaseURL, params.Encode())

	body, err := c.get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching force orders: %w", err)
	}

	var orders []ForceOrder
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("error parsing force orders: %w", err)
	}

	return orders, nil
}

func (c *Client) get(endpoint string) ([]byte, error) {
	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	return body, nil
}

func parseFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
