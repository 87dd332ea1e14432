package stores

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus represents the outcome of an engine operation.
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusSucceeded   RunStatus = "succeeded"
	RunStatusFailed      RunStatus = "failed"
	RunStatusUnsatisfied RunStatus = "unsatisfied"
)

// Run is one engine operation against a device.
type Run struct {
	ID        string    `json:"id" yaml:"id"`
	Host      string    `json:"host" yaml:"host"`
	Operation string    `json:"operation" yaml:"operation"`
	Status    RunStatus `json:"status" yaml:"status"`
	Changed   bool      `json:"changed" yaml:"changed"`

	// Commands are the commands sent to the device, or that would have
	// been sent in check mode.
	Commands         []string `json:"commands" yaml:"commands"`
	FailedConditions []string `json:"failed_conditions,omitempty" yaml:"failed_conditions,omitempty"`

	Error    *string           `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Snapshot is a full running configuration captured from a device.
type Snapshot struct {
	ID          string    `json:"id" yaml:"id"`
	RunID       *string   `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Host        string    `json:"host" yaml:"host"`
	Source      string    `json:"source" yaml:"source"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`
	Content     string    `json:"content,omitempty" yaml:"content,omitempty"`
	TakenAt     time.Time `json:"taken_at" yaml:"taken_at"`
}

// RunFilter narrows ListRuns. Zero fields match everything.
type RunFilter struct {
	Host      string
	Operation string
	Limit     int
	Offset    int
}
