package plug

import (
	"context"
	"sync"
	"time"
)

// pendingCommand pairs an outbound frame with its resolution channel. Every
// command resolves exactly once: true when the plug acknowledged it, false
// when the session gave up on it.
type pendingCommand struct {
	frame []byte
	done  chan bool
	once  sync.Once
}

func newPendingCommand(frame []byte) *pendingCommand {
	// Buffered so resolution never blocks on an abandoned waiter
	return &pendingCommand{frame: frame, done: make(chan bool, 1)}
}

// resolve delivers the outcome. Calls after the first are no-ops, which lets
// session teardown sweep a batch without tracking which commands already
// resolved.
func (c *pendingCommand) resolve(delivered bool) {
	c.once.Do(func() { c.done <- delivered })
}

// wait blocks until the command resolves or ctx ends
func (c *pendingCommand) wait(ctx context.Context) (bool, error) {
	select {
	case delivered := <-c.done:
		return delivered, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// commandQueue is an unbounded FIFO shared by any number of submitters and a
// single consuming session
type commandQueue struct {
	mu    sync.Mutex
	items []*pendingCommand
	wake  chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{wake: make(chan struct{}, 1)}
}

// push appends a command. It never blocks.
func (q *commandQueue) push(cmd *pendingCommand) {
	q.mu.Lock()
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pushFront returns commands to the head of the queue, preserving their
// order. Used when a session aborts with admitted commands it never
// attempted: they go back ahead of anything submitted since.
func (q *commandQueue) pushFront(cmds []*pendingCommand) {
	if len(cmds) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(append([]*pendingCommand(nil), cmds...), q.items...)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// drain atomically takes the whole backlog
func (q *commandQueue) drain() []*pendingCommand {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

// pull waits up to timeout for one command. ok is false when the timeout or
// ctx expired first.
func (q *commandQueue) pull(ctx context.Context, timeout time.Duration) (*pendingCommand, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			cmd := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return cmd, true
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-deadline.C:
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

// size reports the current backlog length
func (q *commandQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
