package datastore

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps metadata in an append-only CSV ledger and one audio file
// per entry under <root>/audio. This is the original deployment layout for
// small collection runs on a single persistent disk.
type FileStore struct {
	root     string
	audioDir string
	csvPath  string
	schema   Schema

	// mu serializes ledger appends. Audio writes go to unique paths and
	// need no lock.
	mu sync.Mutex
}

// NewFileStore prepares the dataset directory tree and writes the CSV
// header row if the ledger does not exist yet.
func NewFileStore(root string, schema Schema) (*FileStore, error) {
	s := &FileStore{
		root:     root,
		audioDir: filepath.Join(root, "audio"),
		csvPath:  filepath.Join(root, "metadata.csv"),
		schema:   schema,
	}

	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory %s: %w", s.audioDir, err)
	}

	if _, err := os.Stat(s.csvPath); os.IsNotExist(err) {
		f, err := os.Create(s.csvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create metadata ledger %s: %w", s.csvPath, err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(schema.Columns()); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write ledger header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write ledger header: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("failed to write ledger header: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat metadata ledger %s: %w", s.csvPath, err)
	}

	return s, nil
}

func (s *FileStore) Name() string { return "files" }

// Insert writes the audio file first, then appends the metadata row under
// the ledger lock. If the append fails the audio file is removed so no
// orphaned recording is left behind.
func (s *FileStore) Insert(ctx context.Context, e *Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.Filename = NewAudioFilename()
	e.Timestamp = time.Now().UTC()

	audioPath := filepath.Join(s.audioDir, e.Filename)
	if err := os.WriteFile(audioPath, e.Audio, 0o644); err != nil {
		return "", fmt.Errorf("%w: save audio file %s: %w", ErrStorageWrite, e.Filename, err)
	}

	if err := s.appendRow(e); err != nil {
		if rmErr := os.Remove(audioPath); rmErr != nil {
			log.Printf("CRITICAL: failed to remove orphaned audio file %s after ledger error: %v. Ledger error was: %v", audioPath, rmErr, err)
		}
		return "", fmt.Errorf("%w: append metadata row for %s: %w", ErrStorageWrite, e.Filename, err)
	}

	return e.Filename, nil
}

func (s *FileStore) appendRow(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.csvPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(e.Record(s.schema)); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *FileStore) Count(ctx context.Context, filter Filter) (int, error) {
	entries, err := s.readLedger(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if filter.matches(e) {
			n++
		}
	}
	return n, nil
}

func (s *FileStore) List(ctx context.Context, includeAudio bool) ([]*Entry, error) {
	entries, err := s.readLedger(ctx)
	if err != nil {
		return nil, err
	}
	if !includeAudio {
		return entries, nil
	}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(s.audioDir, e.Filename))
		if err != nil {
			if os.IsNotExist(err) {
				// Ledger row without its recording; export skips the
				// audio member but keeps the metadata.
				log.Printf("audio file missing for ledger entry %s", e.Filename)
				continue
			}
			return nil, fmt.Errorf("failed to read audio file %s: %w", e.Filename, err)
		}
		e.Audio = data
	}
	return entries, nil
}

func (s *FileStore) GetByFilename(ctx context.Context, filename string) (*Entry, error) {
	entries, err := s.readLedger(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Filename != filename {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.audioDir, filename))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("failed to read audio file %s: %w", filename, err)
		}
		e.Audio = data
		return e, nil
	}
	return nil, ErrNotFound
}

// readLedger parses the CSV ledger into entries, newest rows last. Cells
// are mapped by header name so ledgers written under either schema parse.
func (s *FileStore) readLedger(ctx context.Context) ([]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return []*Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read ledger header: %w", err)
	}

	entries := []*Entry{}
	for len(entries) < MaxListEntries {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger row: %w", err)
		}
		e := &Entry{}
		for i, name := range header {
			if i < len(row) {
				e.setColumn(name, row[i])
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
