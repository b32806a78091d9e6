package kalshi

// stubMarkets is the crash-safe fallback set served when credentials are
// missing or the API is unreachable. Prices are already on the [0,1] scale.
var stubMarkets = []Market{
	{
		Ticker:       "STUB-NBA-LAL-BOS-001",
		SeriesTicker: "NBA",
		Title:        "Lakers vs Celtics: Lakers Win",
		Status:       "active",
		YesBid:       0.50,
		YesAsk:       0.55,
		LastPrice:    0.53,
		Volume:       1000,
		OpenInterest: 500,
		Liquidity:    10000.0,
		CloseTime:    "2026-03-01T00:00:00Z",
		Category:     "Sports",
	},
	{
		Ticker:       "STUB-ECON-CPI-MAR-002",
		SeriesTicker: "CPI",
		Title:        "US CPI > 3.0%",
		Status:       "active",
		YesBid:       0.20,
		YesAsk:       0.25,
		LastPrice:    0.22,
		Volume:       5000,
		OpenInterest: 2000,
		Liquidity:    50000.0,
		CloseTime:    "2026-03-10T12:00:00Z",
		Category:     "Economics",
	},
	{
		Ticker:       "STUB-POL-PREZ-2028",
		SeriesTicker: "PREZ",
		Title:        "Who will be president 2028?",
		Status:       "active",
		YesBid:       0.10,
		YesAsk:       0.12,
		LastPrice:    0.11,
		Volume:       100000,
		OpenInterest: 50000,
		Liquidity:    25000.0,
		CloseTime:    "2028-11-05T00:00:00Z",
		Category:     "Politics",
	},
}

// StubMarkets returns up to limit stub markets. The result is a copy; callers
// may mutate it freely.
func StubMarkets(limit int) []Market {
	if limit < 1 || limit > len(stubMarkets) {
		limit = len(stubMarkets)
	}
	out := make([]Market, limit)
	copy(out, stubMarkets[:limit])
	return out
}
