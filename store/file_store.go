package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	// DefaultLockTimeout bounds how long Load and Commit wait for the
	// backing file's exclusive lock before failing the run.
	DefaultLockTimeout = 6 * time.Second

	// lockRetryDelay is how often lock acquisition is retried while waiting.
	lockRetryDelay = 10 * time.Millisecond

	// timestampStep is the minimum spacing enforced between committed
	// timestamps. Microseconds stay exactly representable in a float64
	// holding seconds-since-epoch.
	timestampStep = 1e-6
)

// FileStore is the durable, multi-process-safe history of completed trials.
// One backing file holds a single structured document; every commit re-reads
// the document under an exclusive lock, merges, and rewrites it in full, so
// any number of independent trial processes converge on one shared history.
type FileStore struct {
	path        string
	codec       Codec
	lockTimeout time.Duration
}

// StoreOption configures a FileStore.
type StoreOption func(*FileStore)

// WithCodec forces a serialization protocol instead of deriving it from the
// backing file's extension.
func WithCodec(c Codec) StoreOption {
	return func(s *FileStore) { s.codec = c }
}

// WithLockTimeout bounds lock acquisition. Expiry is fatal for the current
// operation; retry policy belongs to the caller.
func WithLockTimeout(d time.Duration) StoreOption {
	return func(s *FileStore) { s.lockTimeout = d }
}

// New creates a store backed by the file at path. The parent directory is
// created if needed; the file itself appears on first Load or Commit.
func New(path string, opts ...StoreOption) (*FileStore, error) {
	s := &FileStore{
		path:        path,
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.codec == nil {
		codec, err := CodecForPath(path)
		if err != nil {
			return nil, err
		}
		s.codec = codec
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Codec returns the serialization protocol in use.
func (s *FileStore) Codec() Codec { return s.codec }

// Load reads the current document, creating an empty-but-present backing
// file on first use.
func (s *FileStore) Load() (*Document, error) {
	lock, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	return s.readLocked()
}

// Commit merges one completed trial into the shared history:
//
//  1. Acquire the exclusive lock, waiting at most the configured timeout.
//  2. Re-read the on-disk document and union it with the caller's in-memory
//     examples (disk order first, then genuinely new ones).
//  3. Assign the example's timestamp under the lock, strictly after every
//     timestamp already visible on disk.
//  4. Rewrite the full merged document and force it durable before
//     releasing the lock.
//
// The caller's schema replaces the stored one (last writer wins). The merged
// document is returned so the caller can adopt the combined history.
func (s *FileStore) Commit(current *Document, ex *Example) (*Document, error) {
	if ex.Timestamp != 0 {
		return nil, fmt.Errorf("example already committed at %v", ex.Timestamp)
	}
	if !ex.HasReward() {
		return nil, fmt.Errorf("example has no loss or gain to commit")
	}

	lock, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	merged, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	ex.Timestamp = nextTimestamp(merged.MaxTimestamp())

	merged.Params = current.Params.Clone()
	merged.AddExamples(current.Examples...)
	merged.AddExamples(*ex)

	data, err := s.codec.Marshal(merged)
	if err != nil {
		return nil, err
	}
	if err := s.rewrite(data); err != nil {
		return nil, err
	}

	slog.Debug("Example committed",
		"path", s.path,
		"timestamp", ex.Timestamp,
		"examples", len(merged.Examples))
	return merged, nil
}

// acquireLock takes the exclusive advisory lock on the backing file,
// creating the file if it does not exist yet.
func (s *FileStore) acquireLock() (*flock.Flock, error) {
	lock := flock.New(s.path)
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return nil, &LockTimeoutError{Path: s.path, Timeout: s.lockTimeout}
	}
	return lock, nil
}

// readLocked parses the backing file. Callers must hold the lock.
func (s *FileStore) readLocked() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return NewDocument(), nil
	}
	doc := NewDocument()
	if err := s.codec.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// rewrite truncates the backing file and writes the full document, syncing
// before return so the write is durable while the lock is still held.
func (s *FileStore) rewrite(data []byte) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open store file for writing: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync store file: %w", err)
	}
	return f.Close()
}

// nextTimestamp returns the current time in seconds since the epoch, bumped
// past maxSeen so commits stay strictly ordered even within one tick.
func nextTimestamp(maxSeen float64) float64 {
	ts := float64(time.Now().UnixNano()) / float64(time.Second)
	if ts <= maxSeen {
		ts = maxSeen + timestampStep
	}
	return ts
}
