package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isDone(b *Barrier) bool {
	select {
	case <-b.Done():
		return true
	default:
		return false
	}
}

func TestBarrierNeedsEveryInput(t *testing.T) {
	for _, order := range [][]string{{"reading", "reveal"}, {"reveal", "reading"}} {
		b := NewBarrier("reading", "reveal")

		assert.False(t, b.Signal(order[0]))
		assert.False(t, isDone(b), "done after only %s", order[0])
		assert.True(t, b.Signalled(order[0]))

		assert.True(t, b.Signal(order[1]))
		assert.True(t, isDone(b))
	}
}

func TestBarrierSignalsAreIdempotent(t *testing.T) {
	b := NewBarrier("reading", "reveal")

	b.Signal("reveal")
	assert.False(t, b.Signal("reveal"))
	assert.False(t, b.Signal("unknown"))
	assert.False(t, isDone(b))

	assert.True(t, b.Signal("reading"))
	assert.False(t, b.Signal("reading"))
}

func TestBarrierWait(t *testing.T) {
	b := NewBarrier("a")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Wait(ctx), context.DeadlineExceeded)

	go b.Signal("a")
	require.NoError(t, b.Wait(context.Background()))
}

func TestEmptyBarrierIsDone(t *testing.T) {
	assert.True(t, isDone(NewBarrier()))
}
