package betlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// maxLineBytes bounds a single JSONL line when scanning a log file.
const maxLineBytes = 1 << 20

// jsonlFile is a mutex-guarded append-only JSONL file. Parent directories
// are created on first append.
type jsonlFile struct {
	path string
	mu   sync.Mutex
}

// append marshals record and writes it as one line at the end of the file.
func (f *jsonlFile) append(record any) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("betlog: marshal record: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("betlog: %w: create dir for %s: %v", domain.ErrLogWrite, f.path, err)
	}
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("betlog: %w: open %s: %v", domain.ErrLogWrite, f.path, err)
	}
	defer fh.Close()

	if _, err := fh.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("betlog: %w: append to %s: %v", domain.ErrLogWrite, f.path, err)
	}
	return nil
}

// tail returns up to the last n non-empty lines, oldest first. A missing
// file yields an empty result.
func (f *jsonlFile) tail(n int) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("betlog: read %s: %w", f.path, err)
	}

	raw := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	lines := make([][]byte, 0, len(raw))
	for _, line := range raw {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		lines = append(lines, line)
	}

	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	out := make([][]byte, len(lines))
	for i, line := range lines {
		out[i] = append([]byte(nil), line...)
	}
	return out, nil
}

// count returns the number of non-empty lines in the file.
func (f *jsonlFile) count() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("betlog: open %s: %w", f.path, err)
	}
	defer fh.Close()

	n := 0
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) > 0 {
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("betlog: scan %s: %w", f.path, err)
	}
	return n, nil
}
