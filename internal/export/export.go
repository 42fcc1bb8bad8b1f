// Package export renders the collected dataset as CSV, single audio
// attachments, or a ZIP bundle of metadata plus every recording.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"voice-dataset-collector/internal/datastore"
)

// Exporter reads from a RecordStore and renders export documents. Entry
// order inside exports is whatever the backend returns.
type Exporter struct {
	store  datastore.RecordStore
	schema datastore.Schema
}

func New(store datastore.RecordStore, schema datastore.Schema) *Exporter {
	return &Exporter{store: store, schema: schema}
}

// CSV renders all metadata as one CSV document: a header row in the
// schema's column order plus one row per entry. Returns
// datastore.ErrNotFound when the store is empty.
func (x *Exporter) CSV(ctx context.Context) ([]byte, error) {
	entries, err := x.store.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries for CSV export: %w", err)
	}
	if len(entries) == 0 {
		return nil, datastore.ErrNotFound
	}
	return x.renderCSV(entries)
}

// Audio fetches one entry with its decoded recording bytes.
func (x *Exporter) Audio(ctx context.Context, filename string) (*datastore.Entry, error) {
	return x.store.GetByFilename(ctx, filename)
}

// Bundle builds a ZIP archive holding metadata.csv and one
// audio/<filename> member per entry that has a recording. The archive is
// assembled in a memory buffer; entries without audio keep their metadata
// row but get no audio member. Returns datastore.ErrNotFound when empty.
func (x *Exporter) Bundle(ctx context.Context) ([]byte, error) {
	entries, err := x.store.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries for bundle export: %w", err)
	}
	if len(entries) == 0 {
		return nil, datastore.ErrNotFound
	}

	metadata, err := x.renderCSV(entries)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("metadata.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata.csv archive member: %w", err)
	}
	if _, err := w.Write(metadata); err != nil {
		return nil, fmt.Errorf("failed to write metadata.csv archive member: %w", err)
	}

	for _, e := range entries {
		if len(e.Audio) == 0 {
			continue
		}
		w, err := zw.Create("audio/" + e.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive member for %s: %w", e.Filename, err)
		}
		if _, err := w.Write(e.Audio); err != nil {
			return nil, fmt.Errorf("failed to write archive member for %s: %w", e.Filename, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func (x *Exporter) renderCSV(entries []*datastore.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(x.schema.Columns()); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range entries {
		if err := w.Write(e.Record(x.schema)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row for %s: %w", e.Filename, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render CSV: %w", err)
	}
	return buf.Bytes(), nil
}
