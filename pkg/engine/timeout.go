package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned when a script runs past the engine timeout.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned to an evaluation overtaken by a newer one.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

type evalResult struct {
	plan   *Plan
	errors []EvalError
	err    error
}

// waitWithTimeout waits for ch up to limit. The generation check discards
// results of evaluations that a newer Evaluate call has overtaken.
//
// On timeout the goroutine may still be running; its result is dropped
// when it finishes because ch is buffered.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	limit time.Duration,
) (*Plan, []EvalError, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.plan, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, limit)
	}
}
