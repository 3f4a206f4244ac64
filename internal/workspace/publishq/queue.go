// Package publishq is the single-consumer FIFO that decouples computing
// a diagnostics publish (done synchronously inside the jsonrpc2 handler
// task, per spec.md §5) from the actual notification send (done by a
// dedicated goroutine so a slow client connection never stalls request
// handling). Modeled as a typed message enum per spec.md §4.9/§9,
// mirroring the condition-variable buffer shape of the teacher's
// internal/lspserver/pipe_test.go pipe type.
package publishq

import (
	"context"
	"sync"

	"github.com/wikilsp/wikilsp/internal/workspace/state"
)

type messageKind int

const (
	msgStart messageKind = iota
	msgStop
	msgEnqueue
)

type message struct {
	kind    messageKind
	publish state.Publish
}

// Queue is an unbounded FIFO of Publish notifications awaiting delivery.
// The zero value is not usable; construct with New.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buf     []message
	stopped bool
}

// New returns an empty Queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start unblocks Run, allowing it to begin draining. Calling Start
// before Run has no effect on ordering: messages enqueued before Start
// are delivered in the order they arrived once Run is pumping.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buf = append(q.buf, message{kind: msgStart})
	q.cond.Broadcast()
}

// Stop asks Run to exit once the buffer drains, and wakes any blocked
// waiter so it can observe the stop request promptly.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buf = append(q.buf, message{kind: msgStop})
	q.cond.Broadcast()
}

// Enqueue appends a Publish to the tail of the queue.
func (q *Queue) Enqueue(p state.Publish) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buf = append(q.buf, message{kind: msgEnqueue, publish: p})
	q.cond.Broadcast()
}

// Run drains the queue, calling sink for every enqueued Publish, until a
// Stop message is processed or ctx is cancelled. It is meant to be
// called exactly once, from a single dedicated goroutine. sink errors
// are not fatal to the loop; callers that want to log them should do so
// inside sink itself.
func (q *Queue) Run(ctx context.Context, sink func(state.Publish) error) {
	go func() {
		<-ctx.Done()
		q.mu.Lock()
		q.stopped = true
		q.cond.Broadcast()
		q.mu.Unlock()
	}()

	started := false
	var held []state.Publish

	for {
		q.mu.Lock()
		for len(q.buf) == 0 && !q.stopped {
			q.cond.Wait()
		}
		if len(q.buf) == 0 && q.stopped {
			q.mu.Unlock()
			return
		}
		msg := q.buf[0]
		q.buf = q.buf[1:]
		q.mu.Unlock()

		switch msg.kind {
		case msgStop:
			q.mu.Lock()
			q.stopped = true
			q.mu.Unlock()
		case msgEnqueue:
			// Messages enqueued before the msgStart marker accumulate
			// here rather than reaching sink, so nothing is delivered
			// before the client has actually sent "initialized".
			if started {
				_ = sink(msg.publish)
			} else {
				held = append(held, msg.publish)
			}
		case msgStart:
			started = true
			for _, p := range held {
				_ = sink(p)
			}
			held = nil
		}

		q.mu.Lock()
		stopRequestedAndDrained := q.stopped && len(q.buf) == 0
		q.mu.Unlock()
		if stopRequestedAndDrained && msg.kind == msgStop {
			return
		}
	}
}
