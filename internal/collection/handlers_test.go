package collection_test

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"voice-dataset-collector/internal/apigateway"
	"voice-dataset-collector/internal/collection"
	"voice-dataset-collector/internal/datastore"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := datastore.NewFileStore(t.TempDir(), datastore.SchemaExtended)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	h := collection.NewHandler(store, datastore.SchemaExtended, 1<<20)
	return apigateway.SetupRouter(h)
}

func validForm() url.Values {
	audio := "data:audio/webm;codecs=opus;base64," + base64.StdEncoding.EncodeToString([]byte("fake-webm-bytes"))
	return url.Values{
		"audio_data":   {audio},
		"text":         {"place the red block on the blue one"},
		"speaker_id":   {"spk-01"},
		"language":     {"english"},
		"environment":  {"quiet"},
		"intent":       {"place"},
		"object_color": {"red"},
		"target_color": {"blue"},
		"direction":    {""},
	}
}

func postUpload(router *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadSuccess(t *testing.T) {
	router := newTestServer(t)

	w := postUpload(router, validForm())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Message  string `json:"message"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Filename == "" || !strings.HasSuffix(resp.Filename, ".webm") {
		t.Errorf("expected a .webm filename, got %q", resp.Filename)
	}

	// The stored entry must be retrievable with its audio.
	w = get(router, "/download-audio/"+resp.Filename)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for stored audio, got %d", w.Code)
	}
	if w.Body.String() != "fake-webm-bytes" {
		t.Errorf("audio bytes mismatch: %q", w.Body.String())
	}
}

func TestUploadValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(url.Values)
	}{
		{
			name:   "empty text",
			mutate: func(f url.Values) { f.Set("text", "   ") },
		},
		{
			name:   "bad language",
			mutate: func(f url.Values) { f.Set("language", "german") },
		},
		{
			name:   "missing audio separator",
			mutate: func(f url.Values) { f.Set("audio_data", "data:audio/webm;base64SGVsbG8=") },
		},
		{
			name:   "non-audio payload",
			mutate: func(f url.Values) { f.Set("audio_data", "data:image/png;base64,SGVsbG8=") },
		},
		{
			name:   "invalid base64",
			mutate: func(f url.Values) { f.Set("audio_data", "data:audio/webm;base64,???") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestServer(t)
			form := validForm()
			tt.mutate(form)

			w := postUpload(router, form)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), "error") {
				t.Errorf("expected error payload, got %s", w.Body.String())
			}
		})
	}
}

func TestStats(t *testing.T) {
	router := newTestServer(t)

	for i := 0; i < 2; i++ {
		form := validForm()
		form.Set("language", "bengali")
		form.Set("environment", "noisy")
		form.Set("intent", "pick")
		if w := postUpload(router, form); w.Code != http.StatusOK {
			t.Fatalf("seed upload failed: %d", w.Code)
		}
	}
	if w := postUpload(router, validForm()); w.Code != http.StatusOK {
		t.Fatalf("seed upload failed")
	}

	w := get(router, "/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var stats struct {
		Total   int            `json:"total"`
		Bengali int            `json:"bengali"`
		English int            `json:"english"`
		Noisy   int            `json:"noisy"`
		Quiet   int            `json:"quiet"`
		Intents map[string]int `json:"intents"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid stats JSON: %v", err)
	}
	if stats.Total != 3 || stats.Bengali != 2 || stats.English != 1 {
		t.Errorf("language buckets wrong: %+v", stats)
	}
	if stats.Noisy != 2 || stats.Quiet != 1 {
		t.Errorf("environment buckets wrong: %+v", stats)
	}
	if stats.Intents["pick"] != 2 || stats.Intents["place"] != 1 {
		t.Errorf("intent buckets wrong: %+v", stats.Intents)
	}
}

func TestExportsEmptyDataset(t *testing.T) {
	router := newTestServer(t)

	for _, path := range []string{"/download-csv", "/download-all"} {
		if w := get(router, path); w.Code != http.StatusNotFound {
			t.Errorf("%s on empty dataset: expected 404, got %d", path, w.Code)
		}
	}
}

func TestDownloadCSV(t *testing.T) {
	router := newTestServer(t)
	if w := postUpload(router, validForm()); w.Code != http.StatusOK {
		t.Fatalf("seed upload failed")
	}

	w := get(router, "/download-csv")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "filename,speaker_id,text") {
		t.Errorf("unexpected CSV header: %q", strings.SplitN(w.Body.String(), "\n", 2)[0])
	}
}

func TestDownloadAudioUnknown(t *testing.T) {
	router := newTestServer(t)
	if w := get(router, "/download-audio/unknown.webm"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDownloadAll(t *testing.T) {
	router := newTestServer(t)
	if w := postUpload(router, validForm()); w.Code != http.StatusOK {
		t.Fatalf("seed upload failed")
	}

	w := get(router, "/download-all")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("expected application/zip, got %q", ct)
	}
	// "PK" zip signature
	if body := w.Body.Bytes(); len(body) < 2 || body[0] != 'P' || body[1] != 'K' {
		t.Error("response is not a zip archive")
	}
}

func TestDebug(t *testing.T) {
	router := newTestServer(t)
	if w := postUpload(router, validForm()); w.Code != http.StatusOK {
		t.Fatalf("seed upload failed")
	}

	w := get(router, "/debug")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Backend string          `json:"backend"`
		Total   int             `json:"total"`
		Sample  json.RawMessage `json:"sample"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid debug JSON: %v", err)
	}
	if resp.Backend != "files" || resp.Total != 1 {
		t.Errorf("unexpected debug payload: %s", w.Body.String())
	}
	if strings.Contains(string(resp.Sample), "audio_base64") {
		t.Error("debug sample must not carry audio")
	}
}

func TestHealth(t *testing.T) {
	router := newTestServer(t)
	w := get(router, "/health")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("unexpected health response: %d %q", w.Code, w.Body.String())
	}
}
