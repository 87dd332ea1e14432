package policy

import (
	"time"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that are reported but do not block a push.
	SeverityWarning Severity = "warning"

	// SeverityError blocks the command batch.
	SeverityError Severity = "error"

	// SeverityCritical blocks the command batch.
	SeverityCritical Severity = "critical"
)

// Blocking reports whether a violation of this severity denies the batch.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy represents a policy rule with its Rego code. The module must define
// a "deny" set; each element is either a message string or an object with
// "message" and optional "severity" and "command" keys.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name" yaml:"name"`

	// Description provides a human-readable description.
	Description string `json:"description" yaml:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego" yaml:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity" yaml:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// PolicyInput is the document a policy sees as "input".
type PolicyInput struct {
	// Host is the device the batch is for.
	Host string `json:"host"`

	// Operation is the engine operation, such as "command" or "config".
	Operation string `json:"operation"`

	// Commands is the batch in execution order.
	Commands []string `json:"commands"`

	// CheckMode is true when nothing will be pushed.
	CheckMode bool `json:"check_mode"`

	Context *PolicyContext `json:"context"`
}

// PolicyContext provides context information for policy evaluation.
type PolicyContext struct {
	// User is the local user running rtxctl.
	User string `json:"user,omitempty"`

	// Environment is the inventory environment (e.g., "production", "lab").
	Environment string `json:"environment,omitempty"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`
}

// PolicyBundle represents a collection of related policies.
type PolicyBundle struct {
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version" yaml:"version"`
	Description string   `json:"description" yaml:"description"`
	Policies    []Policy `json:"policies" yaml:"policies"`
}
