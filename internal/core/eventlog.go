package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/forjar/forjar/internal/consts"
)

// NewRunID generates a fresh identifier for one apply invocation.
func NewRunID() string {
	return uuid.NewString()
}

// nowRFC3339 stamps an event in UTC, matching the lock file's timestamp format.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// EventLog appends JSONL records to a machine's event log. Each record is
// written with a single call so two concurrent writers (which never happens
// within one run, but might across overlapping runs against the same
// machine) can't interleave a partial line.
type EventLog struct {
	file *os.File
}

// OpenEventLog opens (creating if absent) the append-only event log for a
// machine's state directory.
func OpenEventLog(stateDir, machine string) (*EventLog, error) {
	dir := filepath.Join(stateDir, machine)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, consts.EventLogName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log %s: %w", path, err)
	}
	return &EventLog{file: f}, nil
}

// Append writes one event as a single line of JSON, stamping the timestamp
// if the caller left it blank.
func (l *EventLog) Append(e Event) error {
	if e.Timestamp == "" {
		e.Timestamp = nowRFC3339()
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Close releases the underlying file handle.
func (l *EventLog) Close() error {
	return l.file.Close()
}
