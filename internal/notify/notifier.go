// Package notify fans run alerts out to the configured channels: the console
// table, a Telegram chat, a Discord webhook. Channels are best-effort; the
// pipeline never blocks a run on a slow webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Alert kinds the pipeline raises.
const (
	EventRunCompleted = "run_completed"
	EventBetPlaced    = "bet_placed"
	EventWatchHit     = "watch_hit"
	EventStaleData    = "stale_data"
)

// Sender delivers one alert on one channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans alerts out to its senders, filtered by event kind. An empty
// filter list means every kind is delivered.
type Notifier struct {
	senders []Sender
	allow   map[string]struct{}
	logger  *slog.Logger
}

func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	n := &Notifier{
		senders: senders,
		allow:   make(map[string]struct{}, len(events)),
		logger:  logger.With(slog.String("component", "notifier")),
	}
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			n.allow[e] = struct{}{}
		}
	}
	return n
}

// Notify delivers the alert when its event kind passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.allow) > 0 {
		if _, ok := n.allow[event]; !ok {
			n.logger.DebugContext(ctx, "alert filtered", slog.String("event", event))
			return nil
		}
	}
	return n.fanOut(ctx, title, message)
}

// NotifyAll delivers the alert on every channel regardless of the filter.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.fanOut(ctx, title, message)
}

// fanOut tries every sender even after one fails, so a dead webhook cannot
// silence the others. Failures come back as one combined error.
func (n *Notifier) fanOut(ctx context.Context, title, message string) error {
	var failed []string
	for _, s := range n.senders {
		err := s.Send(ctx, title, message)
		if err == nil {
			n.logger.DebugContext(ctx, "alert delivered",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
			continue
		}
		n.logger.ErrorContext(ctx, "alert delivery failed",
			slog.String("sender", s.Name()),
			slog.String("error", err.Error()),
		)
		failed = append(failed, fmt.Sprintf("%s: %v", s.Name(), err))
	}
	if len(failed) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}

// postJSON marshals payload and POSTs it, treating any non-2xx status as an
// error carrying up to 1 KiB of the response body. Shared by the webhook
// senders.
func postJSON(ctx context.Context, client *http.Client, scope, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal payload: %w", scope, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", scope, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: post: %w", scope, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: unexpected status %d: %s", scope, resp.StatusCode, snippet)
	}
	return nil
}

func webhookClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
