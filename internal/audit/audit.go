// Package audit records block lifecycle events.
// Events are stored as JSON Lines (JSONL) files, one per provider label.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/provider"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventSubmit     EventType = "submit"
	EventReject     EventType = "reject"
	EventTransition EventType = "transition"
	EventError      EventType = "error"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      EventType       `json:"type"`
	Provider  string          `json:"provider"`
	Job       string          `json:"job,omitempty"`
	From      provider.Status `json:"from,omitempty"`
	To        provider.Status `json:"to,omitempty"`
	Details   string          `json:"details,omitempty"`
}

// Logger writes and reads audit events for providers.
// Events are stored in {dir}/{label}.events.jsonl.
type Logger struct {
	dir string
	mu  sync.Mutex
}

var _ provider.Observer = (*Logger)(nil)

// NewLogger creates a new audit logger rooted at dir.
func NewLogger(dir string) *Logger {
	return &Logger{dir: dir}
}

// eventPath returns the path to the JSONL event log for a provider.
func (l *Logger) eventPath(label string) string {
	return filepath.Join(l.dir, label+".events.jsonl")
}

// Log appends an event to the provider's audit log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(l.eventPath(event.Provider), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent is a convenience method that creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, label, job, details string) error {
	return l.Log(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Provider:  label,
		Job:       job,
		Details:   details,
	})
}

// JobSubmitted records a submission.
func (l *Logger) JobSubmitted(rec provider.JobRecord) {
	l.logOrWarn(Event{
		Timestamp: rec.SubmittedAt,
		Type:      EventSubmit,
		Provider:  rec.Label,
		Job:       rec.ID,
		To:        rec.Status,
		Details:   fmt.Sprintf("block_size=%d script=%s", rec.BlockSize, rec.ScriptPath),
	})
}

// JobRejected records a submission refused at capacity.
func (l *Logger) JobRejected(label string) {
	l.logOrWarn(Event{Type: EventReject, Provider: label, Details: "at capacity"})
}

// JobTransitioned records a status change.
func (l *Logger) JobTransitioned(rec provider.JobRecord, from provider.Status) {
	l.logOrWarn(Event{Type: EventTransition, Provider: rec.Label, Job: rec.ID, From: from, To: rec.Status})
}

func (l *Logger) logOrWarn(event Event) {
	if err := l.Log(event); err != nil {
		logging.Warn("failed to write audit event", "type", event.Type, "job", event.Job, "error", err)
	}
}

// Events reads all events for a provider in chronological order.
func (l *Logger) Events(label string) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.eventPath(label))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// JobEvents returns the events for one job of a provider.
func (l *Logger) JobEvents(label, job string) ([]Event, error) {
	all, err := l.Events(label)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, e := range all {
		if e.Job == job {
			out = append(out, e)
		}
	}
	return out, nil
}

// Remove deletes the audit log for a provider.
func (l *Logger) Remove(label string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Remove(l.eventPath(label)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
