package kalshi

import (
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// Market represents a market as returned by the Kalshi REST API. Prices
// arrive in cents (1-99); NormPrice converts them to probabilities.
type Market struct {
	Ticker       string  `json:"ticker"`
	EventTicker  string  `json:"event_ticker"`
	SeriesTicker string  `json:"series_ticker"`
	Title        string  `json:"title"`
	Subtitle     string  `json:"subtitle"`
	Status       string  `json:"status"` // "open", "closed", "settled"
	YesBid       float64 `json:"yes_bid"`
	YesAsk       float64 `json:"yes_ask"`
	NoBid        float64 `json:"no_bid"`
	NoAsk        float64 `json:"no_ask"`
	LastPrice    float64 `json:"last_price"`
	Volume       int64   `json:"volume"`
	Volume24H    int64   `json:"volume_24h"`
	OpenInterest int64   `json:"open_interest"`
	Liquidity    float64 `json:"liquidity"`
	Category     string  `json:"category"`
	Result       string  `json:"result"` // "yes", "no", "" (unsettled)
	OpenTime     string  `json:"open_time"`
	CloseTime    string  `json:"close_time"`
}

// NormPrice converts a Kalshi price to the [0,1] probability scale. Values
// above 1 are treated as cents and divided by 100; values already in [0,1]
// pass through unchanged.
func NormPrice(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}

// ToSnapshot converts the API market into a domain snapshot taken at ts.
// All prices are normalised to [0,1].
func (m Market) ToSnapshot(ts time.Time) domain.MarketSnapshot {
	s := domain.MarketSnapshot{
		Timestamp:    ts.UTC(),
		EventID:      m.EventTicker,
		MarketID:     m.Ticker,
		Title:        m.Title,
		Status:       m.Status,
		YesBid:       NormPrice(m.YesBid),
		YesAsk:       NormPrice(m.YesAsk),
		LastPrice:    NormPrice(m.LastPrice),
		Volume:       m.Volume,
		OpenInterest: m.OpenInterest,
		Liquidity:    m.Liquidity,
		SeriesTicker: m.SeriesTicker,
		Category:     m.Category,
	}

	if m.CloseTime != "" {
		if ct, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
			s.CloseTime = m.CloseTime
			s.TimeToClose = int64(ct.Sub(ts).Seconds())
		}
	}

	return s
}

// ErrorResponse represents a Kalshi API error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --------------------------------------------------------------------------
// Kalshi WebSocket DTOs
// --------------------------------------------------------------------------

// WSMessage is the envelope for Kalshi WebSocket messages.
type WSMessage struct {
	Type string `json:"type"` // "ticker", "subscribed", "error", etc.
	SID  int64  `json:"sid"`
	Msg  struct {
		MarketTicker string  `json:"market_ticker"`
		Price        float64 `json:"price"`
		YesBid       float64 `json:"yes_bid"`
		YesAsk       float64 `json:"yes_ask"`
		Volume       int64   `json:"volume"`
		OpenInterest int64   `json:"open_interest"`
		TS           int64   `json:"ts"`
	} `json:"msg"`
}

// TickerUpdate is a single price update from the WebSocket ticker channel,
// normalised to the [0,1] probability scale.
type TickerUpdate struct {
	MarketTicker string
	Price        float64
	YesBid       float64
	YesAsk       float64
	Volume       int64
	OpenInterest int64
	At           time.Time
}

// WSSubscribeCmd is the command sent to subscribe to Kalshi WebSocket channels.
type WSSubscribeCmd struct {
	ID     int64             `json:"id"`
	Cmd    string            `json:"cmd"` // "subscribe" or "unsubscribe"
	Params WSSubscribeParams `json:"params"`
}

// WSSubscribeParams defines the subscription parameters.
type WSSubscribeParams struct {
	Channels []string `json:"channels"` // e.g. ["ticker"]
	Tickers  []string `json:"market_tickers"`
}
