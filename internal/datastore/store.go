package datastore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// MaxListEntries caps how many entries List returns in one call.
const MaxListEntries = 10000

var (
	// ErrNotFound indicates the requested filename (or a non-empty result
	// set) does not exist in the store.
	ErrNotFound = errors.New("entry not found")

	// ErrStorageWrite indicates a disk or database write failed. Any audio
	// already written for the failed insert has been cleaned up.
	ErrStorageWrite = errors.New("storage write failed")
)

// Filter restricts Count to entries matching the given equality terms.
// Empty fields are not applied.
type Filter struct {
	Language    string
	Environment string
	Intent      string
}

// RecordStore persists collected entries. Implementations must make Insert
// atomic: either metadata and audio are both durable, or neither is.
type RecordStore interface {
	// Name identifies the backend variant, for logs and /debug.
	Name() string

	// Insert assigns a fresh filename, persists the entry and returns the
	// filename. The caller populates Audio and AudioBase64 beforehand.
	Insert(ctx context.Context, e *Entry) (string, error)

	// Count returns how many entries match the filter.
	Count(ctx context.Context, f Filter) (int, error)

	// List returns up to MaxListEntries entries. When includeAudio is
	// false the Audio and AudioBase64 fields are left empty.
	List(ctx context.Context, includeAudio bool) ([]*Entry, error)

	// GetByFilename returns one entry with its audio, or ErrNotFound.
	GetByFilename(ctx context.Context, filename string) (*Entry, error)
}

// NewAudioFilename generates a unique storage name for a recording.
// UUID collisions are treated as impossible.
func NewAudioFilename() string {
	return uuid.New().String() + AudioExt
}

func (f Filter) matches(e *Entry) bool {
	if f.Language != "" && e.Language != f.Language {
		return false
	}
	if f.Environment != "" && e.Environment != f.Environment {
		return false
	}
	if f.Intent != "" && e.Intent != f.Intent {
		return false
	}
	return true
}
