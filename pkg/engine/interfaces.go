package engine

import (
	"context"
	"time"

	"github.com/rtxops/rtxctl/pkg/stores"
)

// PolicyEngine enforces policies on command batches before they reach a
// device.
type PolicyEngine interface {
	// EvaluateCommands evaluates policies against a command batch.
	EvaluateCommands(ctx context.Context, batch *CommandBatch) (*PolicyResult, error)
}

// CommandBatch is the input to policy evaluation.
type CommandBatch struct {
	// Host is the target device.
	Host string `json:"host"`

	// Operation is "command" or "config".
	Operation string `json:"operation"`

	// Commands are the commands about to be sent, in order.
	Commands []string `json:"commands"`

	// CheckMode is set when nothing will be pushed.
	CheckMode bool `json:"check_mode"`
}

// PolicyResult represents the result of policy evaluation.
type PolicyResult struct {
	// Allowed indicates if the operation is allowed.
	Allowed bool `json:"allowed"`

	// Violations lists policy violations.
	Violations []PolicyViolation `json:"violations,omitempty"`

	// Warnings lists policy warnings.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedAt is when the policy was evaluated.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// PolicyViolation represents a single policy violation.
type PolicyViolation struct {
	// Policy is the policy name that was violated.
	Policy string `json:"policy"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity (error, warning).
	Severity string `json:"severity"`

	// Command is the offending command, if applicable.
	Command string `json:"command,omitempty"`
}

// Recorder persists run history and configuration snapshots.
// *stores.SQLiteStore implements it.
type Recorder interface {
	CreateRun(ctx context.Context, run *stores.Run) error
	CompleteRun(ctx context.Context, run *stores.Run) error
	SaveSnapshot(ctx context.Context, snap *stores.Snapshot) error
}
