package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/quarry/pkg/csg"
)

// DefaultTimeout bounds one evaluation unless WithTimeout overrides it.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine timeout or
	// the caller's context ends first.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded is returned to an Evaluate call whose result arrived
	// after a newer Evaluate had started.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
)

// WithTimeout sets the per-evaluation time limit. Non-positive values keep
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// outcome is what the evaluation goroutine reports back.
type outcome struct {
	scene  *csg.Scene
	errors []EvalError
	err    error
}

// latest reports whether gen is still the newest evaluation.
func (e *Engine) latest(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

// await blocks until evaluation gen reports on ch or its time runs out. A
// goroutine that outlives the wait keeps running in its own sandbox; its
// scene is never handed out.
func (e *Engine) await(ctx context.Context, ch <-chan outcome, gen uint64) (*csg.Scene, []EvalError, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	select {
	case out := <-ch:
		if !e.latest(gen) {
			return nil, nil, ErrSuperseded
		}
		return out.scene, out.errors, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
}
