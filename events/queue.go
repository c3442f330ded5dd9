package events

import "container/heap"

// item carries the insertion sequence used to break time ties.
type item struct {
	ev  Event
	seq uint64
}

// eventHeap implements heap.Interface ordered by time, then insertion order.
type eventHeap []item

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].ev.Time != h[j].ev.Time {
		return h[i].ev.Time < h[j].ev.Time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(item))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// Queue is a binary min-heap of events keyed by time.
// Stale entries are not removed on insert; the consumer filters them on pop.
type Queue struct {
	events eventHeap
	seq    uint64
}

// NewQueue creates an empty queue with room for capacity events.
func NewQueue(capacity int) *Queue {
	return &Queue{events: make(eventHeap, 0, capacity)}
}

// Push inserts an event in O(log n).
func (q *Queue) Push(e Event) {
	heap.Push(&q.events, item{ev: e, seq: q.seq})
	q.seq++
}

// Pop removes and returns the earliest event. ok is false if the queue is empty.
func (q *Queue) Pop() (e Event, ok bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	it := heap.Pop(&q.events).(item)
	return it.ev, true
}

// Peek returns the earliest event without removing it.
func (q *Queue) Peek() (e Event, ok bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	return q.events[0].ev, true
}

// Len returns the number of queued events, stale ones included.
func (q *Queue) Len() int {
	return len(q.events)
}

// Reset drops every event but keeps the backing array.
func (q *Queue) Reset() {
	q.events = q.events[:0]
	q.seq = 0
}
