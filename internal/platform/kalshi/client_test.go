package kalshi_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/kalshibot/internal/crypto"
	"github.com/alanyoungcy/kalshibot/internal/domain"
	"github.com/alanyoungcy/kalshibot/internal/platform/kalshi"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testSigner builds a RequestSigner around a freshly generated RSA key.
func testSigner(t *testing.T) *crypto.RequestSigner {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	signer, err := crypto.NewRequestSigner("test-key-id", pemBytes)
	require.NoError(t, err)
	return signer
}

// authedClient returns a signed client pointed at srv with the rate limiter
// opened up so multi-request tests do not sleep.
func authedClient(t *testing.T, srv *httptest.Server) *kalshi.Client {
	t.Helper()
	c := kalshi.NewClient(srv.URL, testLogger())
	c.SetSigner(testSigner(t))
	c.SetRateLimit(1000)
	return c
}

const marketJSON = `{
  "ticker": "KXNBA-LAL",
  "event_ticker": "KXNBA",
  "series_ticker": "KXNBAGAME",
  "title": "Will the Lakers win?",
  "status": "open",
  "yes_bid": 50,
  "yes_ask": 55,
  "last_price": 53,
  "volume": 1200,
  "open_interest": 800,
  "liquidity": 15000,
  "category": "Sports",
  "close_time": "2026-03-01T00:00:00Z"
}`

// --- Stub fallback ---

func TestListTopMarkets_StubsWithoutSigner(t *testing.T) {
	c := kalshi.NewClient("http://unused", testLogger())

	markets, err := c.ListTopMarkets(context.Background(), "", 2)
	require.NoError(t, err)
	require.Len(t, markets, 2)
	for _, m := range markets {
		assert.True(t, strings.HasPrefix(m.Ticker, "STUB-"), "ticker %q", m.Ticker)
	}
}

func TestListTopMarkets_APIFailureFallsBackToStubs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	markets, err := authedClient(t, srv).ListTopMarkets(context.Background(), "", 3)
	require.NoError(t, err)
	require.Len(t, markets, 3)
	assert.True(t, strings.HasPrefix(markets[0].Ticker, "STUB-"))
}

func TestGetMarket_StubsWithoutSigner(t *testing.T) {
	c := kalshi.NewClient("http://unused", testLogger())

	m, err := c.GetMarket(context.Background(), "STUB-ECON-CPI-MAR-002")
	require.NoError(t, err)
	assert.Equal(t, "STUB-ECON-CPI-MAR-002", m.Ticker)

	// Unknown tickers fall back to the first stub.
	m, err = c.GetMarket(context.Background(), "KXNBA-NOPE")
	require.NoError(t, err)
	assert.Equal(t, "STUB-NBA-LAL-BOS-001", m.Ticker)
}

// --- Listing ---

func TestListTopMarkets_PaginatesWithCursor(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		if r.URL.Query().Get("cursor") == "" {
			fmt.Fprint(w, `{"markets": [{"ticker": "M1"}, {"ticker": "M2"}], "cursor": "page2"}`)
			return
		}
		fmt.Fprint(w, `{"markets": [{"ticker": "M3"}], "cursor": ""}`)
	}))
	defer srv.Close()

	markets, err := authedClient(t, srv).ListTopMarkets(context.Background(), "KXNBAGAME", 5)
	require.NoError(t, err)

	require.Len(t, markets, 3)
	assert.Equal(t, "M1", markets[0].Ticker)
	assert.Equal(t, "M3", markets[2].Ticker)

	require.Len(t, queries, 2)
	assert.Contains(t, queries[0], "series_ticker=KXNBAGAME")
	assert.Contains(t, queries[0], "status=open")
	assert.NotContains(t, queries[0], "cursor=")
	assert.Contains(t, queries[1], "cursor=page2")
}

func TestListTopMarkets_TruncatesToLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"markets": [{"ticker": "M1"}, {"ticker": "M2"}, {"ticker": "M3"}], "cursor": ""}`)
	}))
	defer srv.Close()

	markets, err := authedClient(t, srv).ListTopMarkets(context.Background(), "", 2)
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "M2", markets[1].Ticker)
}

// --- Single market ---

func TestGetMarket_SendsAuthHeaders(t *testing.T) {
	var gotPath, gotKey, gotSig, gotTS string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("KALSHI-ACCESS-KEY")
		gotSig = r.Header.Get("KALSHI-ACCESS-SIGNATURE")
		gotTS = r.Header.Get("KALSHI-ACCESS-TIMESTAMP")
		fmt.Fprintf(w, `{"market": %s}`, marketJSON)
	}))
	defer srv.Close()

	m, err := authedClient(t, srv).GetMarket(context.Background(), "KXNBA-LAL")
	require.NoError(t, err)

	assert.Equal(t, "/markets/KXNBA-LAL", gotPath)
	assert.Equal(t, "test-key-id", gotKey)
	assert.NotEmpty(t, gotSig)
	assert.NotEmpty(t, gotTS)

	assert.Equal(t, "KXNBA-LAL", m.Ticker)
	assert.Equal(t, "Will the Lakers win?", m.Title)
	assert.Equal(t, 53.0, m.LastPrice)
}

func TestGetMarket_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code": "not_found", "message": "no such market"}`)
	}))
	defer srv.Close()

	_, err := authedClient(t, srv).GetMarket(context.Background(), "KXNBA-NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Contains(t, err.Error(), "no such market")
}

func TestGetMarket_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"code": "unauthorized", "message": "bad signature"}`)
	}))
	defer srv.Close()

	_, err := authedClient(t, srv).GetMarket(context.Background(), "KXNBA-LAL")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGetMarket_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"code": "rate_limited", "message": "slow down"}`)
	}))
	defer srv.Close()

	_, err := authedClient(t, srv).GetMarket(context.Background(), "KXNBA-LAL")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

// --- Snapshots and prices ---

func TestFetchSnapshots_NormalizesCentPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"markets": [%s], "cursor": ""}`, marketJSON)
	}))
	defer srv.Close()

	rows, err := authedClient(t, srv).FetchSnapshots(context.Background(), "", 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "KXNBA-LAL", row.MarketID)
	assert.Equal(t, "KXNBA", row.EventID)
	assert.Equal(t, 0.50, row.YesBid)
	assert.Equal(t, 0.55, row.YesAsk)
	assert.Equal(t, 0.53, row.LastPrice)
	assert.Equal(t, int64(1200), row.Volume)
	assert.False(t, row.Timestamp.IsZero())
}

func TestMarketPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"market": %s}`, marketJSON)
	}))
	defer srv.Close()

	price, err := authedClient(t, srv).MarketPrice(context.Background(), "KXNBA-LAL")
	require.NoError(t, err)
	assert.Equal(t, 0.53, price)
}

func TestMarketPrice_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"market": {"ticker": "KXNBA-LAL", "status": "open"}}`)
	}))
	defer srv.Close()

	_, err := authedClient(t, srv).MarketPrice(context.Background(), "KXNBA-LAL")
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

// --- DTO conversion ---

func TestNormPrice(t *testing.T) {
	assert.Equal(t, 0.53, kalshi.NormPrice(53))
	assert.Equal(t, 0.5, kalshi.NormPrice(0.5))
	assert.Equal(t, 1.0, kalshi.NormPrice(1))
	assert.Equal(t, 1.0, kalshi.NormPrice(100))
}

func TestMarketToSnapshot_TimeToClose(t *testing.T) {
	m := kalshi.Market{
		Ticker:    "KXNBA-LAL",
		LastPrice: 53,
		CloseTime: "2026-03-01T00:00:00Z",
	}
	ts := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	s := m.ToSnapshot(ts)
	assert.Equal(t, int64(86400), s.TimeToClose)
	assert.Equal(t, "2026-03-01T00:00:00Z", s.CloseTime)
	assert.Equal(t, 0.53, s.LastPrice)

	// Unparseable close times leave the countdown unset.
	m.CloseTime = "soon"
	s = m.ToSnapshot(ts)
	assert.Empty(t, s.CloseTime)
	assert.Zero(t, s.TimeToClose)
}
