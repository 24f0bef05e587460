package dice

import "sync"

// Override supplies a forced value for the next applicable roll.
//
// Next is consulted once per applicable roll; returning ok == false leaves that
// roll random. A value returned by Next affects that single roll only.
type Override interface {
	Next() (value int, ok bool)
}

// OverrideFunc adapts a function to the Override interface.
type OverrideFunc func() (int, bool)

// Next calls f.
func (f OverrideFunc) Next() (int, bool) { return f() }

// QueuedOverride yields queued values in FIFO order and declines once empty.
// It is safe for concurrent use.
type QueuedOverride struct {
	mu     sync.Mutex
	values []int
}

// NewQueuedOverride returns a QueuedOverride preloaded with values.
func NewQueuedOverride(values ...int) *QueuedOverride {
	q := &QueuedOverride{}
	q.Push(values...)
	return q
}

// Push appends values to the queue.
func (q *QueuedOverride) Push(values ...int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.values = append(q.values, values...)
}

// Next pops the oldest queued value.
//
// Postcondition: ok is false iff the queue was empty.
func (q *QueuedOverride) Next() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.values) == 0 {
		return 0, false
	}
	v := q.values[0]
	q.values = q.values[1:]
	return v, true
}

// Len returns the number of values still queued.
func (q *QueuedOverride) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.values)
}
