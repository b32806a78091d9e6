package domain

import "time"

// ArchiveObject is one archived log file in the blob store.
type ArchiveObject struct {
	Key      string
	Bytes    int64
	StoredAt time.Time
}
