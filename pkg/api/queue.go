package api

import "sync"

// WorkQueue is a lock-protected FIFO of actions shared by any number of
// processors. Every processor claims from the head, so an idle processor
// takes the next action instead of owning a private backlog.
//
// Assign never blocks beyond the critical section. Claim never blocks; callers
// that want to wait select on Ready.
type WorkQueue struct {
	name  string
	mu    sync.Mutex
	items []Executable
	ready chan struct{} // buffered(1); coalesces wakeups
}

// NewWorkQueue creates an empty queue. The name is used in logs and for
// sub-queue routing.
func NewWorkQueue(name string) *WorkQueue {
	return &WorkQueue{
		name:  name,
		items: make([]Executable, 0, 16),
		ready: make(chan struct{}, 1),
	}
}

// Name returns the queue name.
func (q *WorkQueue) Name() string {
	return q.name
}

// Assign appends action to the tail of the queue.
func (q *WorkQueue) Assign(action Executable) {
	if action == nil {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, action)
	q.mu.Unlock()
	q.notify()
}

// Claim removes and returns the head of the queue. ok is false when the queue
// is empty.
func (q *WorkQueue) Claim() (action Executable, ok bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	action = q.items[0]
	q.items[0] = nil
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	remaining := len(q.items)
	q.mu.Unlock()

	// Another waiter may be parked on Ready while work remains.
	if remaining > 0 {
		q.notify()
	}
	return action, true
}

// Len returns the number of queued actions.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready returns a channel that receives a value when actions may be
// available. Wakeups are coalesced, so a receive does not guarantee that a
// subsequent Claim succeeds.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Ready():
//	    // Claim
//	}
func (q *WorkQueue) Ready() <-chan struct{} {
	return q.ready
}

func (q *WorkQueue) notify() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
