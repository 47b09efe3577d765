package fetcher

import (
	"os"
	"path/filepath"
	"testing"
)

func TestJournalRoundTrip(t *testing.T) {
	dir := t.TempDir()

	journal, err := OpenJournal(dir)
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}

	events := []Event{
		{ResourceID: "2025-06-25_paj-1", Status: StatusFailure, Message: "status 503"},
		{ResourceID: "2025-07-01_paj-2", Status: StatusSuccess, Bytes: 1234},
		// Retry of the first resource; last event wins
		{ResourceID: "2025-06-25_paj-1", Status: StatusSuccess, Bytes: 99},
	}
	for _, e := range events {
		if err := journal.Append(e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := journal.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	loaded, err := LoadEvents(dir)
	if err != nil {
		t.Fatalf("LoadEvents failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 distinct resources, got %d", len(loaded))
	}
	if loaded["2025-06-25_paj-1"].Status != StatusSuccess {
		t.Errorf("Expected last event to win, got %+v", loaded["2025-06-25_paj-1"])
	}
	if loaded["2025-07-01_paj-2"].Bytes != 1234 {
		t.Errorf("Expected bytes 1234, got %d", loaded["2025-07-01_paj-2"].Bytes)
	}
	if loaded["2025-06-25_paj-1"].Time.IsZero() {
		t.Error("Expected Append to stamp the event time")
	}
}

func TestLoadEventsMissingJournal(t *testing.T) {
	events, err := LoadEvents(t.TempDir())
	if err != nil {
		t.Fatalf("Expected no error for missing journal, got %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected empty events, got %d", len(events))
	}
}

func TestLoadEventsSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"resource_id":"a","status":"success","time":"2025-06-25T00:00:00Z"}
not json at all
{"status":"success","time":"2025-06-25T00:00:00Z"}
`
	if err := os.WriteFile(filepath.Join(dir, journalName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	events, err := LoadEvents(dir)
	if err != nil {
		t.Fatalf("LoadEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 valid event, got %d", len(events))
	}
	if _, ok := events["a"]; !ok {
		t.Error("Expected event for resource a")
	}
}
