// Package audit appends security-relevant events to a flat file, one
// line per event:
//
//	[2026-01-02T15:04:05Z] LOGIN user="a@x.com" method="password"
//
// Writes are best-effort: an unwritable audit file must never fail the
// request that triggered the event, so errors are reported through the
// structured logger and otherwise swallowed.
package audit

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Pair is a single key="value" attribute. Pairs render in the order
// given, so callers control line layout.
type Pair struct {
	Key   string
	Value string
}

// P is shorthand for constructing a Pair inline.
func P(key, value string) Pair {
	return Pair{Key: key, Value: value}
}

// Logger appends events to one file, serialized by a mutex so
// concurrent requests never interleave partial lines.
type Logger struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

func New(path string, log *slog.Logger) *Logger {
	return &Logger{path: path, log: log}
}

// Record appends one event line. Failures are logged, never returned.
func (l *Logger) Record(event string, pairs ...Pair) {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteString("] ")
	b.WriteString(event)
	for _, p := range pairs {
		fmt.Fprintf(&b, " %s=%q", p.Key, p.Value)
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.log.Error("audit log unwritable", "path", l.path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(b.String()); err != nil {
		l.log.Error("audit log write failed", "path", l.path, "error", err)
	}
}

// Read returns every recorded line, oldest first. A missing file reads
// as empty: nothing has been audited yet.
func (l *Logger) Read() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("audit: opening log: %w", err)
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	// Lines carrying base64 photo URLs can outgrow the default buffer.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: reading log: %w", err)
	}
	return lines, nil
}
