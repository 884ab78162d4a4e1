package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue_FIFO(t *testing.T) {
	q := NewInMemoryQueue()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(&Task{ID: id}))
	}
	assert.Equal(t, 3, q.Size())

	for _, id := range []string{"a", "b", "c"} {
		task, err := q.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, id, task.ID)
		assert.False(t, task.EnqueuedAt.IsZero())
	}

	_, err := q.TryPop()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestInMemoryQueue_PopWaits(t *testing.T) {
	q := NewInMemoryQueue()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = q.Push(&Task{ID: "late"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	task, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "late", task.ID)
}

func TestInMemoryQueue_PopCancelled(t *testing.T) {
	q := NewInMemoryQueue()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	require.NoError(t, q.Push(&Task{ID: "queued"}))
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Push(&Task{ID: "rejected"}), ErrQueueClosed)

	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "queued", task.ID)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}
