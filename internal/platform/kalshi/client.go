// Package kalshi implements the REST and WebSocket clients for the Kalshi
// trade API, with stub-market fallback so the pipeline stays runnable without
// credentials.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/kalshibot/internal/crypto"
	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// maxPages is the hard cap on pagination depth for market listings.
const maxPages = 10

// Client is the REST client for the Kalshi exchange API. Without a signer it
// serves stub markets instead of calling the network, so collection and
// pipeline runs degrade gracefully when credentials are absent.
type Client struct {
	baseURL    string
	signer     *crypto.RequestSigner
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a new Kalshi REST client.
//
// baseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 1),
		logger:  logger.With(slog.String("component", "kalshi")),
	}
}

// SetSigner configures the client for signed authentication. A nil signer
// puts the client back into stub mode.
func (c *Client) SetSigner(s *crypto.RequestSigner) {
	c.signer = s
}

// SetTimeout overrides the default HTTP timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// SetRateLimit overrides the default request rate limit.
func (c *Client) SetRateLimit(rps float64) {
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// Authenticated reports whether the client holds signing credentials.
func (c *Client) Authenticated() bool {
	return c.signer != nil
}

// ListTopMarkets fetches up to limit open markets, paginating with the API
// cursor. series filters by series ticker when non-empty. Credentials missing
// or any API failure falls back to the stub markets so callers always get a
// usable list.
func (c *Client) ListTopMarkets(ctx context.Context, series string, limit int) ([]Market, error) {
	if limit < 1 {
		limit = 1
	}

	if !c.Authenticated() {
		c.logger.Warn("missing credentials, returning stub markets")
		return StubMarkets(limit), nil
	}

	var all []Market
	cursor := ""

	for page := 0; page < maxPages && len(all) < limit; page++ {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(min(100, limit-len(all))))
		params.Set("status", "open")
		if series != "" {
			params.Set("series_ticker", series)
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		body, err := c.doRequest(ctx, http.MethodGet, "/markets?"+params.Encode())
		if err != nil {
			c.logger.Warn("market listing failed, returning stub markets", slog.String("error", err.Error()))
			return StubMarkets(limit), nil
		}

		var resp struct {
			Markets []Market `json:"markets"`
			Cursor  string   `json:"cursor"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			c.logger.Warn("market listing decode failed, returning stub markets", slog.String("error", err.Error()))
			return StubMarkets(limit), nil
		}

		all = append(all, resp.Markets...)
		cursor = resp.Cursor
		if cursor == "" {
			break
		}
	}

	if len(all) > limit {
		all = all[:limit]
	}
	c.logger.Info("fetched active markets", slog.Int("count", len(all)))
	return all, nil
}

// GetMarket returns a single market by its ticker. Without credentials it is
// served from the stub set (falling back to the first stub for unknown
// tickers, mirroring the listing fallback).
func (c *Client) GetMarket(ctx context.Context, ticker string) (Market, error) {
	if !c.Authenticated() {
		for _, m := range StubMarkets(len(stubMarkets)) {
			if m.Ticker == ticker {
				return m, nil
			}
		}
		return StubMarkets(1)[0], nil
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/markets/"+url.PathEscape(ticker))
	if err != nil {
		return Market{}, fmt.Errorf("kalshi: get market %s: %w", ticker, err)
	}

	var resp struct {
		Market Market `json:"market"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Market{}, fmt.Errorf("kalshi: decode market: %w", err)
	}

	return resp.Market, nil
}

// FetchSnapshots lists the top open markets and converts them to snapshots
// stamped with the current UTC time.
func (c *Client) FetchSnapshots(ctx context.Context, series string, limit int) ([]domain.MarketSnapshot, error) {
	markets, err := c.ListTopMarkets(ctx, series, limit)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rows := make([]domain.MarketSnapshot, 0, len(markets))
	for _, m := range markets {
		rows = append(rows, m.ToSnapshot(now))
	}
	return rows, nil
}

// MarketPrice returns the current [0,1] price for ticker. Errors propagate
// when the client is authenticated; only a market with no quoted price maps
// to domain.ErrPriceUnavailable.
func (c *Client) MarketPrice(ctx context.Context, ticker string) (float64, error) {
	m, err := c.GetMarket(ctx, ticker)
	if err != nil {
		return 0, err
	}

	price, ok := m.ToSnapshot(time.Now().UTC()).Price()
	if !ok {
		return 0, fmt.Errorf("kalshi: market %s has no usable price: %w", ticker, domain.ErrPriceUnavailable)
	}
	return price, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doRequest builds, signs, sends, and reads an HTTP GET-style request against
// the Kalshi API. path must already carry any query string; the signature
// covers it.
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.signer != nil {
		if err := c.signer.SignRequest(req); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkStatus maps non-2xx HTTP status codes to appropriate errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr ErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s (%s)", domain.ErrUnauthorized, apiErr.Message, apiErr.Code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s (%s)", domain.ErrRateLimited, apiErr.Message, apiErr.Code)
	case http.StatusNotFound:
		return fmt.Errorf("kalshi: not found: %s (%s)", apiErr.Message, apiErr.Code)
	case http.StatusBadRequest:
		return fmt.Errorf("kalshi: bad request: %s (%s)", apiErr.Message, apiErr.Code)
	default:
		return fmt.Errorf("kalshi: HTTP %d: %s (%s)", statusCode, apiErr.Message, apiErr.Code)
	}
}
