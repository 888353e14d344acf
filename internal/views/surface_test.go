package views_test

import (
	"context"
	"testing"
	"time"

	"packedit/internal/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	q := views.NewQueue()
	assert.Zero(t, q.Drain())

	var order []int
	go func() {
		q.Do(func() {
			order = append(order, 1)
			// queued while draining, runs in the same drain
			q.Do(func() { order = append(order, 2) })
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.RunOne(ctx))
	assert.Equal(t, []int{1, 2}, order)
	assert.Zero(t, q.Len())

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	assert.ErrorIs(t, q.RunOne(short), context.DeadlineExceeded)
}
