package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultMaxParallel bounds concurrent device sessions when none is given.
const DefaultMaxParallel = 10

// SessionFactory opens a session to host and returns its engine together
// with a function that closes the session.
type SessionFactory func(ctx context.Context, host string) (*Engine, func() error, error)

// FleetFunc is the work done on each device.
type FleetFunc func(ctx context.Context, e *Engine) (interface{}, error)

// FleetResult is the outcome for one device.
type FleetResult struct {
	Host     string        `json:"host" yaml:"host"`
	Value    interface{}   `json:"result,omitempty" yaml:"result,omitempty"`
	Err      error         `json:"-" yaml:"-"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Fleet runs the same operation against several devices. Each device gets
// its own session and Engine on its own goroutine; nothing is shared between
// them.
type Fleet struct {
	maxParallel int
	open        SessionFactory
}

// NewFleet creates a fleet runner.
func NewFleet(maxParallel int, open SessionFactory) *Fleet {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	return &Fleet{maxParallel: maxParallel, open: open}
}

// Run applies fn to every host and returns the results in host order.
func (f *Fleet) Run(ctx context.Context, hosts []string, fn FleetFunc) []FleetResult {
	results := make([]FleetResult, len(hosts))
	if len(hosts) == 0 {
		return results
	}

	workerCount := f.maxParallel
	if len(hosts) < workerCount {
		workerCount = len(hosts)
	}

	workQueue := make(chan int, len(hosts))
	for i := range hosts {
		workQueue <- i
	}
	close(workQueue)

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for i := range workQueue {
				results[i] = f.runOne(ctx, hosts[i], fn)
			}
		}()
	}

	wg.Wait()
	return results
}

func (f *Fleet) runOne(ctx context.Context, host string, fn FleetFunc) (result FleetResult) {
	result.Host = host
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		if result.Err != nil {
			result.Error = result.Err.Error()
		}
	}()

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	e, closeFn, err := f.open(ctx, host)
	if err != nil {
		result.Err = fmt.Errorf("failed to open session: %w", err)
		return result
	}
	defer func() {
		e.Close()
		if closeFn == nil {
			return
		}
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Str("host", host).Msg("Failed to close session")
			result.Err = errors.Join(result.Err, err)
		}
	}()

	result.Value, result.Err = fn(ctx, e)
	return result
}

// Failed returns the results that carry an error.
func Failed(results []FleetResult) []FleetResult {
	var failed []FleetResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
