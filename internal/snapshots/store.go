// Package snapshots persists market observations to an append-only JSONL
// file and reads them back filtered by market and time window. The file is
// the only state shared between the collector and the snapshot tools.
package snapshots

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// maxLineBytes bounds a single JSONL line when scanning the snapshot file.
const maxLineBytes = 1 << 20

// Store is an append-only JSONL snapshot store. Appends are serialized so
// concurrent writers cannot interleave partial lines.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a Store backed by the JSONL file at path. The file and
// its parent directories are created on first append.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With(slog.String("component", "snapshots")),
		now:    time.Now,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Append writes each snapshot as one JSON line at the end of the file.
// An empty batch is a no-op.
func (s *Store) Append(ctx context.Context, rows []domain.MarketSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("snapshots: append cancelled: %w", err)
	}

	var buf bytes.Buffer
	for _, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("snapshots: marshal snapshot %s: %w", row.MarketID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("snapshots: %w: create dir for %s: %v", domain.ErrLogWrite, s.path, err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("snapshots: %w: open %s: %v", domain.ErrLogWrite, s.path, err)
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("snapshots: %w: append %d rows to %s: %v", domain.ErrLogWrite, len(rows), s.path, err)
	}
	return nil
}

// Rows returns snapshots for marketID observed within window of now, sorted
// ascending by timestamp. Malformed lines and rows without a timestamp are
// skipped. A missing snapshot file yields an empty result, not an error.
func (s *Store) Rows(ctx context.Context, marketID string, window time.Duration) ([]domain.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("snapshots: read cancelled: %w", err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("snapshot file not found", slog.String("path", s.path))
			return nil, nil
		}
		return nil, fmt.Errorf("snapshots: open %s: %w", s.path, err)
	}
	defer f.Close()

	cutoff := s.now().UTC().Add(-window)
	var rows []domain.MarketSnapshot

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var row domain.MarketSnapshot
		if err := json.Unmarshal(line, &row); err != nil {
			continue
		}
		if row.MarketID != marketID || row.Timestamp.IsZero() {
			continue
		}
		if row.Timestamp.Before(cutoff) {
			continue
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("snapshots: scan %s: %w", s.path, err)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
	return rows, nil
}
