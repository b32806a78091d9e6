package s3blob

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// Files past this size go through the multipart manager.
const multipartThreshold int64 = 32 * 1024 * 1024

// Archiver uploads the bot's append-only JSONL logs to object storage for
// cold retention. Objects are keyed by upload date:
//
//	<prefix>/2025/08/26/paper_bets.jsonl
//	<prefix>/2025/08/26/market_snapshots.jsonl
//
// Local files are never deleted, and a day that already has an object is
// skipped, so re-running an archive pass is idempotent.
type Archiver struct {
	store  *Store
	prefix string
	paths  []string
	logger *slog.Logger
}

// NewArchiver creates an Archiver that uploads the given local files under
// prefix in the store's bucket.
func NewArchiver(store *Store, prefix string, paths []string, logger *slog.Logger) *Archiver {
	return &Archiver{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		paths:  paths,
		logger: logger.With(slog.String("component", "s3_archiver")),
	}
}

// ArchiveLogs uploads every configured log file under day's date prefix and
// returns how many objects were written. Missing or empty files are skipped
// with a log line; an upload failure stops the pass.
func (a *Archiver) ArchiveLogs(ctx context.Context, day time.Time) (int, error) {
	archived := 0
	for _, path := range a.paths {
		ok, err := a.archiveFile(ctx, day, path)
		if err != nil {
			return archived, err
		}
		if ok {
			archived++
		}
	}
	return archived, nil
}

func (a *Archiver) archiveFile(ctx context.Context, day time.Time, path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		a.logger.Warn("log file missing, skipping", slog.String("path", path))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("s3blob: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		a.logger.Info("log file empty, skipping", slog.String("path", path))
		return false, nil
	}

	key := a.key(day, filepath.Base(path))
	exists, err := a.store.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		a.logger.Info("archive object already present, skipping", slog.String("key", key))
		return false, nil
	}

	fh, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("s3blob: open %s: %w", path, err)
	}
	defer fh.Close()

	if info.Size() >= multipartThreshold {
		err = a.store.UploadLarge(ctx, key, fh)
	} else {
		err = a.store.Upload(ctx, key, fh)
	}
	if err != nil {
		return false, err
	}

	a.logger.Info("log archived",
		slog.String("key", key),
		slog.Int64("bytes", info.Size()),
	)
	return true, nil
}

// ListArchives returns every archived object under the configured prefix.
func (a *Archiver) ListArchives(ctx context.Context) ([]domain.ArchiveObject, error) {
	return a.store.List(ctx, a.prefix)
}

// key builds the object key for a file archived on day.
func (a *Archiver) key(day time.Time, name string) string {
	key := fmt.Sprintf("%s/%s", day.UTC().Format("2006/01/02"), name)
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}
	return key
}
