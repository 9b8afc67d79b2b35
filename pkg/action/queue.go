package action

import "sync"

// Queue is a FIFO holding pending actions until the executor drains
// them. Unbounded; capacity pressure in this system lives on the store,
// not the queue.
type Queue struct {
	mu      sync.Mutex
	actions []*Action
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{actions: make([]*Action, 0)}
}

// Enqueue appends a pending action.
func (q *Queue) Enqueue(a *Action) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.actions = append(q.actions, a)
}

// Dequeue pops the oldest action. ok is false when the queue is empty.
func (q *Queue) Dequeue() (*Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return nil, false
	}
	a := q.actions[0]
	q.actions = q.actions[1:]
	if len(q.actions) == 0 {
		q.actions = make([]*Action, 0)
	}
	return a, true
}

// Len returns the number of queued actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Snapshot returns clones of the queued actions in FIFO order.
func (q *Queue) Snapshot() []*Action {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]*Action, len(q.actions))
	for i, a := range q.actions {
		snapshot[i] = a.Clone()
	}
	return snapshot
}
