package publishq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikilsp/wikilsp/internal/workspace/state"
)

func TestQueueDeliversInFIFOOrder(t *testing.T) {
	q := New()
	q.Start()
	q.Enqueue(state.Publish{DocumentKey: "a"})
	q.Enqueue(state.Publish{DocumentKey: "b"})
	q.Stop()

	var got []string
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		q.Run(ctx, func(p state.Publish) error {
			got = append(got, p.DocumentKey)
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("Run did not return after Stop drained the queue")
	}

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestQueueEnqueueAfterRunStarted(t *testing.T) {
	q := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	received := make(chan state.Publish, 4)
	go q.Run(ctx, func(p state.Publish) error {
		received <- p
		return nil
	})

	q.Start()
	q.Enqueue(state.Publish{DocumentKey: "x"})

	select {
	case p := <-received:
		assert.Equal(t, "x", p.DocumentKey)
	case <-ctx.Done():
		t.Fatal("timed out waiting for delivery")
	}

	q.Stop()
}

func TestQueueHoldsEnqueuesUntilStart(t *testing.T) {
	q := New()
	q.Enqueue(state.Publish{DocumentKey: "early"})
	q.Enqueue(state.Publish{DocumentKey: "also-early"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	received := make(chan state.Publish, 4)
	go q.Run(ctx, func(p state.Publish) error {
		received <- p
		return nil
	})

	select {
	case <-received:
		t.Fatal("publish delivered before Start was called")
	case <-time.After(100 * time.Millisecond):
	}

	q.Start()

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case p := <-received:
			got = append(got, p.DocumentKey)
		case <-ctx.Done():
			t.Fatal("timed out waiting for held publishes to flush")
		}
	}
	assert.Equal(t, []string{"early", "also-early"}, got)

	q.Stop()
}

func TestQueueRunExitsOnContextCancel(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		q.Run(ctx, func(state.Publish) error { return nil })
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after context cancellation")
	}
}

func TestQueueSinkErrorsDoNotStopDrain(t *testing.T) {
	q := New()
	q.Start()
	q.Enqueue(state.Publish{DocumentKey: "a"})
	q.Enqueue(state.Publish{DocumentKey: "b"})
	q.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var count int
	done := make(chan struct{})
	go func() {
		q.Run(ctx, func(state.Publish) error {
			count++
			return assertErr
		})
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("Run did not return")
	}
	require.Equal(t, 2, count)
}

var assertErr = &queueTestError{}

type queueTestError struct{}

func (*queueTestError) Error() string { return "boom" }
