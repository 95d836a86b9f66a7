package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"rssingest/app/database"
	"rssingest/app/feed"
)

type fakeSourceRepo struct{}

func (r *fakeSourceRepo) GetSource(string) (*database.Source, error)        { return nil, nil }
func (r *fakeSourceRepo) GetSourceCount() (int, error)                      { return 0, nil }
func (r *fakeSourceRepo) UpsertSource(string, string, string) (bool, error) { return false, nil }
func (r *fakeSourceRepo) UpdateFetchResult(string, string) error            { return nil }

type fakeEntryRepo struct {
	entries []database.Entry
}

func (r *fakeEntryRepo) GetEntries(string, int) ([]database.Entry, error) { return r.entries, nil }
func (r *fakeEntryRepo) GetEntryCount(string) (int, error)                { return len(r.entries), nil }
func (r *fakeEntryRepo) UpsertEntry(string, database.Entry) error         { return nil }
func (r *fakeEntryRepo) GetEntriesForExtraction(string, int) ([]database.EntryForExtraction, error) {
	return nil, nil
}
func (r *fakeEntryRepo) UpdateExtractedContent(int64, string) error { return nil }
func (r *fakeEntryRepo) UpdateExtractionStatus(int64, string) error { return nil }

type fakeRunner struct {
	enqueued []string
}

func (r *fakeRunner) Start() {}
func (r *fakeRunner) Stop()  {}
func (r *fakeRunner) EnqueueIngest(sourceName string) error {
	r.enqueued = append(r.enqueued, sourceName)
	return nil
}

func newTestSourceCache(t *testing.T, names ...string) *feed.SourceCache {
	t.Helper()
	dir := t.TempDir()
	cache := feed.NewSourceCache(dir)
	for _, name := range names {
		path := filepath.Join(dir, name+".yml")
		if err := os.WriteFile(path, []byte("url: https://example.com/"+name+".xml\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := cache.LoadSource(name, path); err != nil {
			t.Fatal(err)
		}
	}
	return cache
}

func TestGetEntries(t *testing.T) {
	entryRepo := &fakeEntryRepo{entries: []database.Entry{
		{Title: "Item One", URL: "https://example.com/one", GUID: "g1"},
	}}
	handler := NewHandler(newTestSourceCache(t, "news"), &fakeSourceRepo{}, entryRepo, &fakeRunner{})
	server := NewServer(handler, "")

	req := httptest.NewRequest(http.MethodGet, "/sources/news/entries", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d", w.Code)
	}

	var body struct {
		Source  string          `json:"source"`
		Entries []EntryResponse `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Source != "news" || len(body.Entries) != 1 || body.Entries[0].Title != "Item One" {
		t.Errorf("Unexpected response: %+v", body)
	}
}

func TestGetEntriesUnknownSource(t *testing.T) {
	handler := NewHandler(newTestSourceCache(t), &fakeSourceRepo{}, &fakeEntryRepo{}, &fakeRunner{})
	server := NewServer(handler, "")

	req := httptest.NewRequest(http.MethodGet, "/sources/absent/entries", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got: %d", w.Code)
	}
}

func TestGetEntriesInvalidLimit(t *testing.T) {
	handler := NewHandler(newTestSourceCache(t, "news"), &fakeSourceRepo{}, &fakeEntryRepo{}, &fakeRunner{})
	server := NewServer(handler, "")

	req := httptest.NewRequest(http.MethodGet, "/sources/news/entries?limit=zero", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got: %d", w.Code)
	}
}

func TestAPIRequiresKey(t *testing.T) {
	handler := NewHandler(newTestSourceCache(t, "news"), &fakeSourceRepo{}, &fakeEntryRepo{}, &fakeRunner{})
	server := NewServer(handler, "secret-key")

	req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with valid key, got: %d", w.Code)
	}
}

func TestAPIBearerToken(t *testing.T) {
	handler := NewHandler(newTestSourceCache(t, "news"), &fakeSourceRepo{}, &fakeEntryRepo{}, &fakeRunner{})
	server := NewServer(handler, "secret-key")

	req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer token, got: %d", w.Code)
	}
}

func TestAPIIngestSource(t *testing.T) {
	runner := &fakeRunner{}
	handler := NewHandler(newTestSourceCache(t, "news"), &fakeSourceRepo{}, &fakeEntryRepo{}, runner)
	server := NewServer(handler, "secret-key")

	req := httptest.NewRequest(http.MethodPost, "/api/sources/news/ingest", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got: %d", w.Code)
	}
	if len(runner.enqueued) != 1 || runner.enqueued[0] != "news" {
		t.Errorf("Expected ingestion enqueued, got: %v", runner.enqueued)
	}
}

func TestAPIIngestUnknownSource(t *testing.T) {
	runner := &fakeRunner{}
	handler := NewHandler(newTestSourceCache(t), &fakeSourceRepo{}, &fakeEntryRepo{}, runner)
	server := NewServer(handler, "secret-key")

	req := httptest.NewRequest(http.MethodPost, "/api/sources/absent/ingest", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got: %d", w.Code)
	}
	if len(runner.enqueued) != 0 {
		t.Errorf("Expected nothing enqueued, got: %v", runner.enqueued)
	}
}
