package persist

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/rolegate/internal/core/domain"
	"github.com/yndnr/rolegate/internal/storage/epd"
)

// Strategy is the persistence backend. It is a tagged variant rather
// than a conditional sprinkled through the ingestion path: the no-op
// strategy serves disabled persistence, the file strategy serves the
// opt-in, and the scheduler treats both identically.
type Strategy interface {
	// Load reads the previous snapshot, or (nil, nil) when none exists.
	Load() ([]domain.ActivityRecord, error)

	// Store durably writes a new snapshot generation.
	Store(records []domain.ActivityRecord) error

	// Enabled reports whether Store does anything.
	Enabled() bool
}

// NoopStrategy is the strategy used when persistence is disabled.
// Counters then live only in memory, which is the default and the
// privacy-preserving mode.
type NoopStrategy struct{}

func (NoopStrategy) Load() ([]domain.ActivityRecord, error) { return nil, nil }

func (NoopStrategy) Store([]domain.ActivityRecord) error { return nil }

func (NoopStrategy) Enabled() bool { return false }

// FileStrategy persists snapshots to a single .epd file. Each write
// goes to a fresh temp path in the same directory and is renamed over
// the target, so a reader never observes a half-written file and a
// crash mid-write leaves the previous generation intact.
type FileStrategy struct {
	path  string
	codec *epd.Codec
}

// NewFileStrategy creates a file-backed strategy writing to path.
func NewFileStrategy(path string, codec *epd.Codec) *FileStrategy {
	return &FileStrategy{path: path, codec: codec}
}

// Path returns the snapshot file path.
func (f *FileStrategy) Path() string { return f.path }

func (f *FileStrategy) Enabled() bool { return true }

// Load reads and decodes the snapshot file. A missing file is not an
// error; format errors propagate for the caller to classify.
func (f *FileStrategy) Load() ([]domain.ActivityRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("persist: read snapshot: %w", err)
	}
	return f.codec.Decode(data)
}

// Store encodes records and writes them with the temp-write-then-
// rename idiom. The temp name carries a ULID so concurrent process
// instances never collide on it.
func (f *FileStrategy) Store(records []domain.ActivityRecord) error {
	data, err := f.codec.Encode(records)
	if err != nil {
		return domain.ErrSnapshotWrite.WithDetails("encode").WithCause(err)
	}

	dir := filepath.Dir(f.path)
	tempPath := filepath.Join(dir, filepath.Base(f.path)+"."+ulid.Make().String()+".tmp")

	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return domain.ErrSnapshotWrite.WithDetails(tempPath).WithCause(err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return domain.ErrSnapshotWrite.WithDetails(tempPath).WithCause(err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return domain.ErrSnapshotWrite.WithDetails(tempPath).WithCause(err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return domain.ErrSnapshotWrite.WithDetails(tempPath).WithCause(err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return domain.ErrSnapshotWrite.WithDetails(f.path).WithCause(err)
	}
	return nil
}
