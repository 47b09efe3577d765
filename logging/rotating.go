package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Log files rotate per ISO week and are deleted after the retention period.
// There is no size-based rotation: a fetcher run writes a few hundred lines,
// not gigabytes.
const defaultRetention = 4 * 7 * 24 * time.Hour

// RotatingWriter writes to fetch-<year>-W<week>.log inside its directory,
// switching files when the ISO week changes.
type RotatingWriter struct {
	dir       string
	retention time.Duration

	mu       sync.Mutex
	week     string
	file     *os.File
	lastSeen time.Time
}

func NewRotatingWriter(dir string, retention time.Duration) *RotatingWriter {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &RotatingWriter{dir: dir, retention: retention}
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if key := weekKey(now); key != w.week || w.file == nil {
		if err := w.rotate(key); err != nil {
			return 0, err
		}
		// Cleanup piggybacks on rotation, it is rare enough.
		w.cleanup(now)
	}
	w.lastSeen = now
	return w.file.Write(p)
}

// rotate opens the log file for the given week, closing the previous one.
// Caller holds the lock.
func (w *RotatingWriter) rotate(key string) error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close old log file: %v\n", err)
		}
		w.file = nil
	}

	path := filepath.Join(w.dir, "fetch-"+key+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	w.file = file
	w.week = key
	return nil
}

// cleanup removes log files older than the retention period. Caller holds
// the lock.
func (w *RotatingWriter) cleanup(now time.Time) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	cutoff := now.Add(-w.retention)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "fetch-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(w.dir, name))
		}
	}
}

// Close closes the current log file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Setup builds the slog logger: always a text handler on stdout, plus a JSON
// handler into the rotating file when logDir is usable.
func Setup(logDir string, level slog.Level) *slog.Logger {
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if logDir == "" {
		return slog.New(console)
	}

	if err := os.MkdirAll(logDir, 0o750); err != nil {
		logger := slog.New(console)
		logger.Error("Failed to create log directory, console only", "dir", logDir, "error", err)
		return logger
	}

	fileHandler := slog.NewJSONHandler(NewRotatingWriter(logDir, defaultRetention), &slog.HandlerOptions{Level: level})
	return slog.New(&teeHandler{handlers: []slog.Handler{console, fileHandler}})
}

// teeHandler fans a record out to every handler.
type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range t.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: handlers}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: handlers}
}
