package bench

import "sync"

// errQueue collects worker failures. Pushes never block, so a failing
// worker can always deposit its error and continue to its barrier
// arrivals. The coordinator is the only consumer.
type errQueue struct {
	mu   sync.Mutex
	errs []error
}

// Push appends err to the queue. A nil err is ignored.
func (q *errQueue) Push(err error) {
	if err == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.errs = append(q.errs, err)
}

// Pop removes and returns the oldest error, or nil if the queue is empty.
func (q *errQueue) Pop() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.errs) == 0 {
		return nil
	}

	err := q.errs[0]
	q.errs = q.errs[1:]

	return err
}

// Len returns the number of queued errors.
func (q *errQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.errs)
}
