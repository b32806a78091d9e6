package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeChecker reports tool membership from a fixed set.
type fakeChecker map[string]bool

func (f fakeChecker) Has(name string) bool { return f[name] }

// priceResp is one scripted answer from a price source.
type priceResp struct {
	price float64
	err   error
}

// scriptedSource replays a fixed sequence of price responses and counts the
// polls it served.
type scriptedSource struct {
	mu    sync.Mutex
	resps []priceResp
	calls int
}

func (s *scriptedSource) MarketPrice(_ context.Context, _ string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.resps) {
		return 0, domain.ErrPriceUnavailable
	}
	r := s.resps[s.calls]
	s.calls++
	return r.price, r.err
}

func (s *scriptedSource) polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubTool returns a fixed vector (or error) and captures the inputs it was
// given.
type stubTool struct {
	name       string
	vector     []float64
	err        error
	calls      int
	lastInputs map[string]any
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub tool for tests" }

func (s *stubTool) Run(_ context.Context, _ domain.Event, inputs map[string]any) (domain.ToolOutput, error) {
	s.calls++
	s.lastInputs = inputs
	if s.err != nil {
		return domain.ToolOutput{}, s.err
	}
	return domain.ToolOutput{Tool: s.name, Vector: s.vector}, nil
}
