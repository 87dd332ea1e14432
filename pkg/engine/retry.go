package engine

import (
	"context"
	"time"

	"github.com/rtxops/rtxctl/pkg/conditional"
)

// RetryPolicy bounds the command retry loop.
type RetryPolicy struct {
	Match MatchMode

	// Retries is the total number of attempts; values below 1 mean 1.
	Retries int

	// Interval is the pause between attempts. There is no pause after the
	// last attempt.
	Interval time.Duration
}

// AttemptFunc executes the command batch once. attempt starts at 1.
type AttemptFunc func(ctx context.Context, attempt int) ([]string, error)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryOutcome is the terminal state of a retry loop.
type RetryOutcome struct {
	// Outputs are the results of the last attempt.
	Outputs []string

	// Failed holds the raw text of every condition still unsatisfied.
	Failed []string

	// Errors records evaluation problems of the last attempt, such as a
	// condition indexing past the available results.
	Errors []string

	Attempts int
}

// Satisfied reports whether the loop ended with no active conditions.
func (o *RetryOutcome) Satisfied() bool {
	return len(o.Failed) == 0
}

// RetryLoop runs attempt until every condition is satisfied (MatchAll), one
// is (MatchAny), or the attempt budget is spent. With no conditions it runs
// exactly once. An error from attempt ends the loop immediately and is
// returned along with the outcome so far.
func RetryLoop(
	ctx context.Context,
	conditions []*conditional.Condition,
	policy RetryPolicy,
	attempt AttemptFunc,
	sleep SleepFunc,
) (*RetryOutcome, error) {
	if sleep == nil {
		sleep = sleepContext
	}
	retries := policy.Retries
	if retries < 1 {
		retries = 1
	}

	active := append([]*conditional.Condition(nil), conditions...)
	outcome := &RetryOutcome{}

	for n := 1; ; n++ {
		outputs, err := attempt(ctx, n)
		outcome.Attempts = n
		if err != nil {
			outcome.Failed = rawConditions(active)
			return outcome, err
		}
		outcome.Outputs = outputs
		outcome.Errors = nil

		remaining := make([]*conditional.Condition, 0, len(active))
		anySatisfied := false
		for _, c := range active {
			ok, evalErr := c.Evaluate(outputs)
			if evalErr != nil {
				outcome.Errors = append(outcome.Errors, evalErr.Error())
			}
			if ok {
				anySatisfied = true
				continue
			}
			remaining = append(remaining, c)
		}

		if policy.Match == MatchAny && anySatisfied {
			remaining = nil
		}
		active = remaining

		if len(active) == 0 || n >= retries {
			break
		}

		if err := sleep(ctx, policy.Interval); err != nil {
			outcome.Failed = rawConditions(active)
			return outcome, err
		}
	}

	outcome.Failed = rawConditions(active)
	return outcome, nil
}

func rawConditions(conds []*conditional.Condition) []string {
	if len(conds) == 0 {
		return nil
	}
	raw := make([]string, 0, len(conds))
	for _, c := range conds {
		raw = append(raw, c.Raw())
	}
	return raw
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
