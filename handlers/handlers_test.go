package handlers

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dbnomics-fetchers/paj-fetcher/converter/entities"
	"github.com/dbnomics-fetchers/paj-fetcher/data"
	"github.com/go-chi/chi/v5"
)

func testRouter(t *testing.T, store *data.Container) http.Handler {
	t.Helper()
	h := New(store)

	router := chi.NewRouter()
	router.Get("/provider", h.Provider)
	router.Get("/datasets", h.Datasets)
	router.Get("/datasets/{code}", h.Dataset)
	router.Get("/datasets/{code}/series", h.DatasetSeries)
	router.Get("/datasets/{code}/series/{seriesCode}", h.SingleSeries)
	router.Get("/health", h.Health)
	return router
}

func loadedStore() *data.Container {
	store := data.NewContainer()

	series := make([]entities.Series, 0, 60)
	refs := make([]entities.SeriesRef, 0, 60)
	for i := 0; i < 60; i++ {
		code := "series-" + string(rune('a'+i/26)) + string(rune('a'+i%26))
		series = append(series, entities.Series{
			Code: code, Name: "Series " + code,
			Observations: []entities.Observation{{Period: "2025-01", Value: "1"}},
		})
		refs = append(refs, entities.SeriesRef{Code: code, Name: "Series " + code})
	}

	store.UpdateData(
		entities.Provider{Code: "PAJ", Name: "Petroleum Association of Japan", Website: "https://www.paj.gr.jp"},
		[]entities.Dataset{{Code: "paj-01", Name: "paj-1", UpdatedAt: "2025-06-25", Series: refs}},
		map[string][]entities.Series{"paj-01": series},
	)
	return store
}

func doRequest(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestProvider(t *testing.T) {
	router := testRouter(t, loadedStore())
	rec := doRequest(t, router, "/provider")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var provider entities.Provider
	if err := json.Unmarshal(rec.Body.Bytes(), &provider); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if provider.Code != "PAJ" {
		t.Errorf("Expected PAJ, got %s", provider.Code)
	}
}

func TestDataset(t *testing.T) {
	router := testRouter(t, loadedStore())

	rec := doRequest(t, router, "/datasets/paj-01")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, router, "/datasets/paj-99")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown dataset, got %d", rec.Code)
	}

	rec = doRequest(t, router, "/datasets/NOT%20A%20CODE")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid code, got %d", rec.Code)
	}
}

func TestDatasetSeriesPaging(t *testing.T) {
	router := testRouter(t, loadedStore())

	rec := doRequest(t, router, "/datasets/paj-01/series")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var page struct {
		Data     []entities.Series `json:"data"`
		Page     int               `json:"page"`
		MaxPage  int               `json:"maxPage"`
		Total    int               `json:"totalItems"`
		PageSize int               `json:"pageSize"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(page.Data) != seriesPageSize || page.Total != 60 || page.MaxPage != 2 {
		t.Errorf("Unexpected first page: len=%d total=%d maxPage=%d", len(page.Data), page.Total, page.MaxPage)
	}

	rec = doRequest(t, router, "/datasets/paj-01/series?page=2")
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(page.Data) != 10 {
		t.Errorf("Expected 10 series on page 2, got %d", len(page.Data))
	}

	rec = doRequest(t, router, "/datasets/paj-01/series?page=3")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 past the last page, got %d", rec.Code)
	}

	rec = doRequest(t, router, "/datasets/paj-01/series?page=zero")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad page number, got %d", rec.Code)
	}
}

func TestSingleSeries(t *testing.T) {
	router := testRouter(t, loadedStore())

	rec := doRequest(t, router, "/datasets/paj-01/series/series-aa")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var series entities.Series
	if err := json.Unmarshal(rec.Body.Bytes(), &series); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if series.Code != "series-aa" {
		t.Errorf("Expected series-aa, got %s", series.Code)
	}

	rec = doRequest(t, router, "/datasets/paj-01/series/does-not-exist")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown series, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router := testRouter(t, loadedStore())
	rec := doRequest(t, router, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var health map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", health["status"])
	}

	// An empty store reports empty, not an error
	rec = doRequest(t, testRouter(t, data.NewContainer()), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &health)
	if health["status"] != "empty" {
		t.Errorf("Expected empty, got %v", health["status"])
	}
}

func TestGzipResponses(t *testing.T) {
	router := testRouter(t, loadedStore())

	req := httptest.NewRequest(http.MethodGet, "/datasets/paj-01/series", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatal("Expected a gzip response for a large payload")
	}
	gz, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("Invalid gzip body: %v", err)
	}
	body, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("Failed to decompress: %v", err)
	}
	if !strings.Contains(string(body), "series-aa") {
		t.Error("Decompressed body does not contain the expected series")
	}

	// Small responses stay uncompressed
	req = httptest.NewRequest(http.MethodGet, "/provider", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("Expected small response to stay uncompressed")
	}
}
