package bridge

import (
	"context"
	"sync"
)

// ReplySink receives the reply for one executed command. The network
// connection that originated a command is its sink; tests substitute fakes.
type ReplySink interface {
	WriteReply(msg string)
}

// QueuedCommand is one decoded frame awaiting execution.
//
// WantReply marks the final command of a batch: when several complete lines
// arrive in a single read, only the last one's reply is transmitted. Earlier
// commands in the batch still execute for their side effects.
type QueuedCommand struct {
	Line      []byte
	Reply     ReplySink
	WantReply bool
}

// CommandQueue is the strict global FIFO between connection readers and the
// single dispatch goroutine. Push never blocks; Pop blocks on empty. Ordering
// is arrival order across all connections, with no per-connection reordering.
type CommandQueue struct {
	mu    sync.Mutex
	items []QueuedCommand
	wake  chan struct{}
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{wake: make(chan struct{}, 1)}
}

func (q *CommandQueue) Push(cmd QueuedCommand) {
	q.mu.Lock()
	q.items = append(q.items, cmd)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop returns the oldest queued command, blocking until one is available or
// the context is canceled.
func (q *CommandQueue) Pop(ctx context.Context) (QueuedCommand, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			cmd := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return cmd, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return QueuedCommand{}, ctx.Err()
		case <-q.wake:
		}
	}
}

func (q *CommandQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
