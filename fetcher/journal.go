package fetcher

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dbnomics-fetchers/paj-fetcher/logging"
)

// The journal lives inside the source directory so it travels with the
// downloaded data. It is append-only; the effective status of a resource is
// its last event.
const journalName = "events.jsonl"

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Event is one journal line: the outcome of processing a single resource.
type Event struct {
	ResourceID string    `json:"resource_id"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Bytes      int64     `json:"bytes,omitempty"`
	Time       time.Time `json:"time"`
}

// Journal appends events to <source-dir>/events.jsonl.
type Journal struct {
	mu   sync.Mutex
	file *os.File
}

func OpenJournal(sourceDir string) (*Journal, error) {
	path := filepath.Join(sourceDir, journalName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	return &Journal{file: file}, nil
}

func (j *Journal) Append(e Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal journal event: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append journal event: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// LoadEvents reads the journal of a previous run, keeping the last event per
// resource. A missing journal is an empty one. Corrupt lines are skipped.
func LoadEvents(sourceDir string) (map[string]Event, error) {
	path := filepath.Join(sourceDir, journalName)
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("Failed to close journal", "error", err)
		}
	}()

	events := make(map[string]Event)
	skipped := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil || e.ResourceID == "" {
			skipped++
			continue
		}
		events[e.ResourceID] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal %s: %w", path, err)
	}

	if skipped > 0 {
		logging.Warn("Journal contained corrupt lines", "skipped", skipped, "path", path)
	}
	return events, nil
}
