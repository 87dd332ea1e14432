package telemetry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is one entry of the operation event stream.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// Host is the device the event concerns.
	Host string `json:"host"`

	// Operation is the engine operation, if applicable.
	Operation string `json:"operation,omitempty"`

	// RunID is the associated history run, if applicable.
	RunID string `json:"run_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants.
const (
	EventTypeRunStarted      = "run.started"
	EventTypeRunCompleted    = "run.completed"
	EventTypeRunFailed       = "run.failed"
	EventTypeDriftDetected   = "drift.detected"
	EventTypePolicyViolation = "policy.violation"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher delivers events to its subscribers in publish order. A nil
// publisher drops everything.
type EventPublisher struct {
	mu          sync.RWMutex
	subscribers []subscriberEntry
	filters     []EventFilter
	now         func() time.Time
	file        *os.File
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a publisher from cfg. When cfg.Output is set,
// events are appended to that file as JSON lines. A disabled configuration
// yields nil.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	ep := &EventPublisher{now: time.Now}
	if len(cfg.Types) > 0 {
		ep.AddFilter(FilterByType(cfg.Types...))
	}
	if cfg.MinLevel != "" {
		ep.AddFilter(FilterByLevel(cfg.MinLevel))
	}

	if cfg.Output != "" {
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open event output: %w", err)
		}
		ep.file = file
		ep.Subscribe(LogSubscriber(zerolog.New(file)), nil)
	}

	return ep, nil
}

// Publish stamps event with an ID and timestamp and delivers it.
func (ep *EventPublisher) Publish(event Event) {
	if ep == nil {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = ep.now().UTC()
	}

	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, filter := range ep.filters {
		if !filter(event) {
			return
		}
	}
	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// PublishRunStarted publishes a run started event.
func (ep *EventPublisher) PublishRunStarted(host, operation, runID string) {
	ep.Publish(Event{
		Type:      EventTypeRunStarted,
		Source:    "engine",
		Host:      host,
		Operation: operation,
		RunID:     runID,
		Message:   fmt.Sprintf("%s started on %s", operation, host),
		Level:     EventLevelInfo,
	})
}

// PublishRunCompleted publishes a run completed event.
func (ep *EventPublisher) PublishRunCompleted(host, operation, runID string, changed bool, duration time.Duration) {
	ep.Publish(Event{
		Type:      EventTypeRunCompleted,
		Source:    "engine",
		Host:      host,
		Operation: operation,
		RunID:     runID,
		Message:   fmt.Sprintf("%s completed on %s", operation, host),
		Level:     EventLevelInfo,
		Data: map[string]interface{}{
			"changed":  changed,
			"duration": duration.Seconds(),
		},
	})
}

// PublishRunFailed publishes a run failed event.
func (ep *EventPublisher) PublishRunFailed(host, operation, runID, status, reason string) {
	ep.Publish(Event{
		Type:      EventTypeRunFailed,
		Source:    "engine",
		Host:      host,
		Operation: operation,
		RunID:     runID,
		Message:   fmt.Sprintf("%s failed on %s: %s", operation, host, reason),
		Level:     EventLevelError,
		Data: map[string]interface{}{
			"status": status,
			"reason": reason,
		},
	})
}

// PublishDriftDetected publishes a drift event for a device whose running
// configuration differs from the intended one.
func (ep *EventPublisher) PublishDriftDetected(host, runID, runningFingerprint, intendedFingerprint string) {
	ep.Publish(Event{
		Type:    EventTypeDriftDetected,
		Source:  "engine",
		Host:    host,
		RunID:   runID,
		Message: fmt.Sprintf("Running configuration of %s differs from intended", host),
		Level:   EventLevelWarning,
		Data: map[string]interface{}{
			"running_fingerprint":  runningFingerprint,
			"intended_fingerprint": intendedFingerprint,
		},
	})
}

// PublishPolicyViolation publishes a policy violation event.
func (ep *EventPublisher) PublishPolicyViolation(host, operation, policyName, severity, reason string) {
	ep.Publish(Event{
		Type:      EventTypePolicyViolation,
		Source:    "policy_engine",
		Host:      host,
		Operation: operation,
		Message:   fmt.Sprintf("Policy violation on %s: %s - %s", host, policyName, reason),
		Level:     EventLevelError,
		Data: map[string]interface{}{
			"policy":   policyName,
			"severity": severity,
			"reason":   reason,
		},
	})
}

// Subscribe adds a subscriber. A nil filter receives every event.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a filter applied before any subscriber.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// Shutdown closes the event output file.
func (ep *EventPublisher) Shutdown() error {
	if ep == nil || ep.file == nil {
		return nil
	}
	return ep.file.Close()
}

// LogSubscriber writes each event as one log entry.
func LogSubscriber(logger zerolog.Logger) EventSubscriber {
	return func(event Event) {
		entry := logger.Log().
			Str("id", event.ID).
			Time("timestamp", event.Timestamp).
			Str("type", event.Type).
			Str("source", event.Source).
			Str("host", event.Host).
			Str("event_level", event.Level)
		if event.Operation != "" {
			entry = entry.Str("operation", event.Operation)
		}
		if event.RunID != "" {
			entry = entry.Str("run_id", event.RunID)
		}
		if len(event.Data) > 0 {
			entry = entry.Interface("data", event.Data)
		}
		entry.Msg(event.Message)
	}
}

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}
