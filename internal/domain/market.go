package domain

import "time"

// MarketSnapshot is one normalized observation of a Kalshi market. The
// collector appends these to the snapshot log; the snapshot tools read them
// back. Prices are normalized to the [0,1] range.
type MarketSnapshot struct {
	Timestamp    time.Time `json:"timestamp"`
	EventID      string    `json:"event_id,omitempty"`
	MarketID     string    `json:"market_id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	YesBid       float64   `json:"yes_bid"`
	YesAsk       float64   `json:"yes_ask"`
	LastPrice    float64   `json:"last_price"`
	Volume       int64     `json:"volume"`
	OpenInterest int64     `json:"open_interest"`
	Liquidity    float64   `json:"liquidity"`
	CloseTime    string    `json:"close_time,omitempty"`
	TimeToClose  int64     `json:"time_to_close_sec"`
	SeriesTicker string    `json:"series_ticker,omitempty"`
	Category     string    `json:"category,omitempty"`
}

// Price returns the usable price for the snapshot. Priority: last_price when
// positive, else the yes bid/ask midpoint when either side is quoted. ok is
// false when no usable price exists.
func (s MarketSnapshot) Price() (price float64, ok bool) {
	if s.LastPrice > 0 {
		return s.LastPrice, true
	}
	if s.YesBid > 0 || s.YesAsk > 0 {
		return (s.YesBid + s.YesAsk) / 2, true
	}
	return 0, false
}

// Event converts the snapshot into the pipeline input for a single run.
func (s MarketSnapshot) Event() Event {
	price, _ := s.Price()
	eventID := s.EventID
	if eventID == "" {
		eventID = s.MarketID
	}
	capturedAt := s.Timestamp
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}
	return Event{
		EventID:    eventID,
		MarketID:   s.MarketID,
		Title:      s.Title,
		Price:      Clamp01(price),
		Category:   s.Category,
		CapturedAt: capturedAt,
	}
}

// Event is the single market a pipeline run operates on.
type Event struct {
	EventID    string    `json:"event_id"`
	MarketID   string    `json:"market_id"`
	Title      string    `json:"market_title"`
	Price      float64   `json:"current_price"`
	Category   string    `json:"category,omitempty"`
	CapturedAt time.Time `json:"timestamp"`
}

// Clamp01 clamps v into the [0,1] price range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
