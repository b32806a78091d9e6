package domain

import "time"

// WatchState is the watch loop's state machine position.
type WatchState string

const (
	WatchIdle     WatchState = "idle"
	WatchPolling  WatchState = "polling"
	WatchHit      WatchState = "hit"
	WatchTimedOut WatchState = "timed_out"
)

// WatchDirection selects the trigger comparison for the watch loop.
type WatchDirection string

const (
	// WatchAbove triggers when price >= threshold.
	WatchAbove WatchDirection = "above"
	// WatchBelow triggers when price <= threshold.
	WatchBelow WatchDirection = "below"
)

// Triggered reports whether price trips the threshold in this direction.
func (d WatchDirection) Triggered(price, threshold float64) bool {
	if d == WatchBelow {
		return price <= threshold
	}
	return price >= threshold
}

// WatcherTick is a single successful price poll.
type WatcherTick struct {
	MarketID  string    `json:"market_id"`
	Price     float64   `json:"polled_price"`
	Threshold float64   `json:"threshold"`
	At        time.Time `json:"timestamp"`
	Triggered bool      `json:"triggered"`
}

// WatchOutcome is the terminal result of a watch loop. State is WatchHit or
// WatchTimedOut. On a hit, Price and TickIndex identify the triggering poll
// (0-based). On a timeout, LastPrice is the most recent successfully observed
// price and TicksElapsed counts the tick slots consumed, including failed
// polls.
type WatchOutcome struct {
	State        WatchState    `json:"state"`
	Price        float64       `json:"price,omitempty"`
	TickIndex    int           `json:"tick_index,omitempty"`
	LastPrice    float64       `json:"last_price,omitempty"`
	TicksElapsed int           `json:"ticks_elapsed"`
	Ticks        []WatcherTick `json:"-"`
}

// Hit reports whether the watch ended on a threshold hit.
func (o WatchOutcome) Hit() bool { return o.State == WatchHit }
