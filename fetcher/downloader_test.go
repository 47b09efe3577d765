package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func fileServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/english/statis/data/01/paj-1.xlsx":
			_, _ = w.Write([]byte("workbook one"))
		case "/english/statis/data/02/paj-2.xlsx":
			_, _ = w.Write([]byte("workbook two"))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestDownloaderRun(t *testing.T) {
	var hits atomic.Int64
	server := fileServer(t, &hits)
	defer server.Close()

	sourceDir := t.TempDir()
	resources := []Resource{
		{ID: "2025-06-25_paj-1", Index: "01", URL: server.URL + "/english/statis/data/01/paj-1.xlsx", Name: "2025-06-25_paj-1.xlsx"},
		{ID: "2025-07-01_paj-2", Index: "02", URL: server.URL + "/english/statis/data/02/paj-2.xlsx", Name: "2025-07-01_paj-2.xlsx"},
	}

	d := NewDownloader(testConfig(server.URL))
	if err := d.Run(context.Background(), sourceDir, resources, Options{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(sourceDir, "01", "2025-06-25_paj-1.xlsx"))
	if err != nil {
		t.Fatalf("Expected downloaded file: %v", err)
	}
	if string(content) != "workbook one" {
		t.Errorf("Unexpected file content: %q", content)
	}

	events, err := LoadEvents(sourceDir)
	if err != nil {
		t.Fatalf("LoadEvents failed: %v", err)
	}
	for _, r := range resources {
		if events[r.ID].Status != StatusSuccess {
			t.Errorf("Expected success event for %s, got %+v", r.ID, events[r.ID])
		}
	}

	// A second run must skip everything already journaled as success.
	before := hits.Load()
	if err := d.Run(context.Background(), sourceDir, resources, Options{}); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if hits.Load() != before {
		t.Errorf("Expected no new requests on rerun, got %d extra", hits.Load()-before)
	}

	// Full forces a re-download.
	if err := d.Run(context.Background(), sourceDir, resources, Options{Full: true}); err != nil {
		t.Fatalf("Full run failed: %v", err)
	}
	if hits.Load() != before+2 {
		t.Errorf("Expected 2 re-downloads with Full, got %d", hits.Load()-before)
	}
}

func TestDownloaderRecordsFailures(t *testing.T) {
	var hits atomic.Int64
	server := fileServer(t, &hits)
	defer server.Close()

	sourceDir := t.TempDir()
	resources := []Resource{
		{ID: "2025-06-25_paj-1", Index: "01", URL: server.URL + "/english/statis/data/01/paj-1.xlsx", Name: "2025-06-25_paj-1.xlsx"},
		{ID: "2025-01-01_gone", Index: "09", URL: server.URL + "/english/statis/data/09/gone.xlsx", Name: "2025-01-01_gone.xlsx"},
	}

	d := NewDownloader(testConfig(server.URL))
	err := d.Run(context.Background(), sourceDir, resources, Options{})
	if err == nil {
		t.Fatal("Expected error when a resource fails")
	}

	events, err := LoadEvents(sourceDir)
	if err != nil {
		t.Fatalf("LoadEvents failed: %v", err)
	}
	if events["2025-06-25_paj-1"].Status != StatusSuccess {
		t.Errorf("Expected the healthy resource to succeed, got %+v", events["2025-06-25_paj-1"])
	}
	if events["2025-01-01_gone"].Status != StatusFailure {
		t.Errorf("Expected failure event, got %+v", events["2025-01-01_gone"])
	}

	// The failed resource is retried on the next run, the good one is not.
	before := hits.Load()
	_ = d.Run(context.Background(), sourceDir, resources, Options{})
	if hits.Load() != before+1 {
		t.Errorf("Expected exactly 1 retry request, got %d", hits.Load()-before)
	}
}

func TestDownloaderLimit(t *testing.T) {
	var hits atomic.Int64
	server := fileServer(t, &hits)
	defer server.Close()

	sourceDir := t.TempDir()
	resources := []Resource{
		{ID: "2025-06-25_paj-1", Index: "01", URL: server.URL + "/english/statis/data/01/paj-1.xlsx", Name: "2025-06-25_paj-1.xlsx"},
		{ID: "2025-07-01_paj-2", Index: "02", URL: server.URL + "/english/statis/data/02/paj-2.xlsx", Name: "2025-07-01_paj-2.xlsx"},
	}

	d := NewDownloader(testConfig(server.URL))
	if err := d.Run(context.Background(), sourceDir, resources, Options{Limit: 1}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 request with Limit=1, got %d", hits.Load())
	}
}

func TestDownloaderRelativeSourceDir(t *testing.T) {
	var hits atomic.Int64
	server := fileServer(t, &hits)
	defer server.Close()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	resources := []Resource{
		{ID: "2025-06-25_paj-1", Index: "01", URL: server.URL + "/english/statis/data/01/paj-1.xlsx", Name: "2025-06-25_paj-1.xlsx"},
	}

	d := NewDownloader(testConfig(server.URL))
	if err := d.Run(context.Background(), ".", resources, Options{}); err != nil {
		t.Fatalf("Run with a relative source dir failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join("01", "2025-06-25_paj-1.xlsx")); err != nil {
		t.Errorf("Expected downloaded file under the working directory: %v", err)
	}
}

func TestDownloaderRejectsEscapingIndex(t *testing.T) {
	var hits atomic.Int64
	server := fileServer(t, &hits)
	defer server.Close()

	sourceDir := t.TempDir()
	resources := []Resource{
		{ID: "2025-06-25_evil", Index: "../evil", URL: server.URL + "/english/statis/data/01/paj-1.xlsx", Name: "2025-06-25_evil.xlsx"},
	}

	d := NewDownloader(testConfig(server.URL))
	if err := d.Run(context.Background(), sourceDir, resources, Options{}); err == nil {
		t.Fatal("Expected error for an index escaping the source directory")
	}
	if hits.Load() != 0 {
		t.Errorf("Expected no request for a rejected resource, got %d", hits.Load())
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(sourceDir), "evil")); !os.IsNotExist(err) {
		t.Error("Expected nothing to be written outside the source directory")
	}
}

func TestDownloaderMissingSourceDir(t *testing.T) {
	d := NewDownloader(testConfig("http://localhost"))
	err := d.Run(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), nil, Options{})
	if err == nil {
		t.Fatal("Expected error for missing source directory")
	}
}
