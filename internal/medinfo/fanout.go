package medinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultMaxConcurrent is the lookup concurrency ceiling used when the
	// caller (usually the LLM's tool call) doesn't ask for one.
	DefaultMaxConcurrent = 5

	// defaultTaskTimeout is the outer per-lookup deadline enforced by the
	// pool, independent of the HTTP client's own timeout.
	defaultTaskTimeout = 30 * time.Second
)

// Pool fans out independent lookups with a bounded concurrency ceiling.
//
// The contract: every input name yields exactly one Result, no matter how
// the individual lookup ends (failure, panic, timeout, cancelled context).
// Results come back in completion order, not input order. There are no
// retries; a failed lookup is reported once.
type Pool struct {
	lookuper    Lookuper
	taskTimeout time.Duration
}

func NewPool(lookuper Lookuper) *Pool {
	return &Pool{
		lookuper:    lookuper,
		taskTimeout: defaultTaskTimeout,
	}
}

// LookupBatch looks up all names with at most maxConcurrent lookups in
// flight at once. maxConcurrent <= 0 selects DefaultMaxConcurrent. It
// blocks until every name has produced a Result.
func (p *Pool) LookupBatch(ctx context.Context, names []string, maxConcurrent int) []Result {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if len(names) == 0 {
		return []Result{}
	}

	start := time.Now()
	sem := semaphore.NewWeighted(int64(maxConcurrent))
	out := make(chan Result, len(names))

	for _, name := range names {
		go func(name string) {
			if err := sem.Acquire(ctx, 1); err != nil {
				// Context died while queued; the name still gets a result.
				out <- errorResult(name, fmt.Sprintf("cancelled before dispatch: %v", err))
				return
			}
			defer sem.Release(1)
			out <- p.lookupOne(ctx, name)
		}(name)
	}

	results := make([]Result, 0, len(names))
	for range names {
		results = append(results, <-out)
	}

	log.Info().
		Int("count", len(names)).
		Int("maxConcurrent", maxConcurrent).
		Dur("elapsed", time.Since(start)).
		Msg("lookup batch complete")

	return results
}

// lookupOne runs a single lookup under the pool's outer timeout. A lookup
// that overruns the deadline is abandoned and reported as an error result;
// a panicking lookup is recovered into one.
func (p *Pool) lookupOne(ctx context.Context, name string) Result {
	done := make(chan Result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("medicine", name).Interface("panic", r).Msg("lookup panicked")
				done <- errorResult(name, fmt.Sprintf("lookup panicked: %v", r))
			}
		}()
		done <- p.lookuper.Lookup(ctx, name)
	}()

	timer := time.NewTimer(p.taskTimeout)
	defer timer.Stop()

	select {
	case result := <-done:
		return result
	case <-timer.C:
		log.Warn().Str("medicine", name).Dur("timeout", p.taskTimeout).Msg("lookup timed out")
		return errorResult(name, fmt.Sprintf("timed out after %s", p.taskTimeout))
	case <-ctx.Done():
		return errorResult(name, fmt.Sprintf("cancelled: %v", ctx.Err()))
	}
}
