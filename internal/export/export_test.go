package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"testing"

	"voice-dataset-collector/internal/datastore"
)

func seededExporter(t *testing.T, n int) (*Exporter, []string) {
	t.Helper()
	store, err := datastore.NewFileStore(t.TempDir(), datastore.SchemaExtended)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	filenames := make([]string, 0, n)
	for i := 0; i < n; i++ {
		e := &datastore.Entry{
			SpeakerID:   "SPK-01",
			Text:        fmt.Sprintf("utterance %d", i),
			Language:    "english",
			Environment: "quiet",
			Audio:       []byte(fmt.Sprintf("audio-%d", i)),
		}
		fn, err := store.Insert(context.Background(), e)
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		filenames = append(filenames, fn)
	}
	return New(store, datastore.SchemaExtended), filenames
}

func TestCSVExportEmpty(t *testing.T) {
	x, _ := seededExporter(t, 0)
	if _, err := x.CSV(context.Background()); !errors.Is(err, datastore.ErrNotFound) {
		t.Errorf("expected ErrNotFound on empty store, got %v", err)
	}
}

func TestCSVExport(t *testing.T) {
	const n = 4
	x, _ := seededExporter(t, n)

	data, err := x.CSV(context.Background())
	if err != nil {
		t.Fatalf("CSV export failed: %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("export is not well-formed CSV: %v", err)
	}
	if len(rows) != n+1 {
		t.Fatalf("expected %d data rows plus header, got %d rows", n, len(rows))
	}

	wantCols := datastore.SchemaExtended.Columns()
	for i, col := range rows[0] {
		if col != wantCols[i] {
			t.Errorf("header column %d: expected %q, got %q", i, wantCols[i], col)
		}
	}
}

func TestAudioExportNotFound(t *testing.T) {
	x, _ := seededExporter(t, 1)
	if _, err := x.Audio(context.Background(), "missing.webm"); !errors.Is(err, datastore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBundleExport(t *testing.T) {
	const n = 3
	x, filenames := seededExporter(t, n)

	data, err := x.Bundle(context.Background())
	if err != nil {
		t.Fatalf("bundle export failed: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("bundle is not a valid zip: %v", err)
	}

	members := map[string]bool{}
	for _, f := range zr.File {
		members[f.Name] = true
	}

	if !members["metadata.csv"] {
		t.Error("bundle missing metadata.csv member")
	}
	if len(members) != n+1 {
		t.Errorf("expected %d members, got %d", n+1, len(members))
	}
	for i, fn := range filenames {
		if !members["audio/"+fn] {
			t.Errorf("bundle missing audio member for entry %d (%s)", i, fn)
		}
	}

	// Spot-check one audio member round-trips its bytes.
	for _, f := range zr.File {
		if f.Name != "audio/"+filenames[0] {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open archive member: %v", err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read archive member: %v", err)
		}
		if string(got) != "audio-0" {
			t.Errorf("audio member content mismatch: %q", got)
		}
	}
}

func TestBundleExportEmpty(t *testing.T) {
	x, _ := seededExporter(t, 0)
	if _, err := x.Bundle(context.Background()); !errors.Is(err, datastore.ErrNotFound) {
		t.Errorf("expected ErrNotFound on empty store, got %v", err)
	}
}
