// Package collection implements the HTTP surface of the voice dataset
// collector: upload ingestion, dataset statistics, and the export
// endpoints.
package collection

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voice-dataset-collector/internal/audiocodec"
	"voice-dataset-collector/internal/datastore"
	"voice-dataset-collector/internal/export"
	"voice-dataset-collector/internal/validation"
)

// Handler carries the dependencies the endpoints need. Constructed once in
// main and registered on the router; no package globals.
type Handler struct {
	store         datastore.RecordStore
	exporter      *export.Exporter
	schema        datastore.Schema
	maxAudioBytes int
}

func NewHandler(store datastore.RecordStore, schema datastore.Schema, maxAudioBytes int) *Handler {
	return &Handler{
		store:         store,
		exporter:      export.New(store, schema),
		schema:        schema,
		maxAudioBytes: maxAudioBytes,
	}
}

// Upload handles POST /upload: validate the form fields, decode the audio
// payload, persist the entry. Validation and decode failures are client
// errors; only the store write maps to a 500.
func (h *Handler) Upload(c *gin.Context) {
	in := validation.Input{
		Text:        c.PostForm("text"),
		SpeakerID:   c.PostForm("speaker_id"),
		Language:    c.PostForm("language"),
		Environment: c.PostForm("environment"),
		Intent:      c.PostForm("intent"),
		ObjectColor: c.PostForm("object_color"),
		TargetColor: c.PostForm("target_color"),
		Direction:   c.PostForm("direction"),
	}

	entry, err := validation.Validate(in, h.schema)
	if err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			log.Printf("upload rejected: field %s: %s", verr.Field, verr.Reason)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decoded, err := audiocodec.Decode(c.PostForm("audio_data"), h.maxAudioBytes)
	if err != nil {
		log.Printf("upload rejected: audio decode: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry.Audio = decoded.Bytes
	entry.AudioBase64 = decoded.Base64

	filename, err := h.store.Insert(c.Request.Context(), entry)
	if err != nil {
		log.Printf("upload failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save entry: " + err.Error()})
		return
	}

	log.Printf("saved %s | lang=%s | env=%s | text=%s", filename, entry.Language, entry.Environment, textPreview(entry.Text, 40))
	c.JSON(http.StatusOK, gin.H{"message": "Saved successfully!", "filename": filename})
}

// Stats handles GET /stats: total plus per-language and per-environment
// buckets, and under the extended schema a per-intent breakdown. One count
// query per bucket; entry volume is small.
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.store.Count(ctx, datastore.Filter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats: " + err.Error()})
		return
	}

	stats := gin.H{"total": total}
	for _, lang := range validation.Languages {
		n, err := h.store.Count(ctx, datastore.Filter{Language: lang})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats: " + err.Error()})
			return
		}
		stats[lang] = n
	}
	for _, env := range validation.Environments {
		n, err := h.store.Count(ctx, datastore.Filter{Environment: env})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats: " + err.Error()})
			return
		}
		stats[env] = n
	}

	if h.schema == datastore.SchemaExtended {
		intents := gin.H{}
		for _, intent := range validation.Intents {
			n, err := h.store.Count(ctx, datastore.Filter{Intent: intent})
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats: " + err.Error()})
				return
			}
			intents[intent] = n
		}
		stats["intents"] = intents
	}

	c.JSON(http.StatusOK, stats)
}

// DownloadCSV handles GET /download-csv.
func (h *Handler) DownloadCSV(c *gin.Context) {
	data, err := h.exporter.CSV(c.Request.Context())
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No entries to export"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export CSV: " + err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="metadata.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// DownloadAudio handles GET /download-audio/:filename.
func (h *Handler) DownloadAudio(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" || strings.ContainsAny(filename, "/\\") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}

	entry, err := h.exporter.Audio(c.Request.Context(), filename)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Audio file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audio: " + err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+entry.Filename+`"`)
	c.Data(http.StatusOK, "audio/webm", entry.Audio)
}

// DownloadAll handles GET /download-all: ZIP of metadata.csv plus every
// recording.
func (h *Handler) DownloadAll(c *gin.Context) {
	data, err := h.exporter.Bundle(c.Request.Context())
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No entries to export"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build bundle: " + err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="dataset.zip"`)
	c.Data(http.StatusOK, "application/zip", data)
}

// Debug handles GET /debug: backend name, total count and one sample entry
// with the audio payload stripped.
func (h *Handler) Debug(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.store.Count(ctx, datastore.Filter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reach store: " + err.Error()})
		return
	}

	resp := gin.H{
		"backend": h.store.Name(),
		"schema":  h.schema.String(),
		"total":   total,
	}

	entries, err := h.store.List(ctx, false)
	if err == nil && len(entries) > 0 {
		sample := *entries[0]
		sample.Audio = nil
		sample.AudioBase64 = ""
		resp["sample"] = sample
	}

	c.JSON(http.StatusOK, resp)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// textPreview truncates s to at most n characters for log lines without
// splitting a multi-byte sequence.
func textPreview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
