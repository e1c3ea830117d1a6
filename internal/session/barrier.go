package session

import (
	"context"
	"sync"
)

// Barrier is a join over a fixed set of named inputs. Done is closed once
// every input has been signalled. Signals are idempotent.
type Barrier struct {
	mu      sync.Mutex
	pending map[string]struct{}
	fired   map[string]struct{}
	done    chan struct{}
}

// NewBarrier creates a barrier waiting on inputs
func NewBarrier(inputs ...string) *Barrier {
	b := &Barrier{
		pending: make(map[string]struct{}, len(inputs)),
		fired:   make(map[string]struct{}, len(inputs)),
		done:    make(chan struct{}),
	}
	for _, in := range inputs {
		b.pending[in] = struct{}{}
	}
	if len(b.pending) == 0 {
		close(b.done)
	}
	return b
}

// Signal marks input as satisfied. It reports whether this call completed
// the barrier. Unknown and repeated inputs are ignored.
func (b *Barrier) Signal(input string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pending[input]; !ok {
		return false
	}
	delete(b.pending, input)
	b.fired[input] = struct{}{}

	if len(b.pending) == 0 {
		close(b.done)
		return true
	}
	return false
}

// Signalled reports whether input has been signalled
func (b *Barrier) Signalled(input string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.fired[input]
	return ok
}

// Done is closed when every input has been signalled
func (b *Barrier) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the barrier completes or ctx is done
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
