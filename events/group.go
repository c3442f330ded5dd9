package events

import "container/heap"

// group is one owner's sub-queue of speculative events.
type group struct {
	owner  int
	events eventHeap
	index  int // position in the global heap, -1 when detached
}

func (g *group) head() item { return g.events[0] }

// groupHeap orders groups by their earliest event.
type groupHeap []*group

func (h groupHeap) Len() int { return len(h) }
func (h groupHeap) Less(i, j int) bool {
	a, b := h[i].head(), h[j].head()
	if a.ev.Time != b.ev.Time {
		return a.ev.Time < b.ev.Time
	}
	return a.seq < b.seq
}
func (h groupHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *groupHeap) Push(x any) {
	g := x.(*group)
	g.index = len(*h)
	*h = append(*h, g)
}

func (h *groupHeap) Pop() any {
	old := *h
	n := len(old)
	g := old[n-1]
	old[n-1] = nil
	g.index = -1
	*h = old[:n-1]
	return g
}

// GroupQueue keeps each owner's predictions in a local sub-queue and orders
// the sub-queues by their earliest entry. Replacing an owner's predictions
// drops the previous sub-queue in O(log G) instead of leaving its entries to
// be filtered one by one.
//
// Ties are broken by a queue-wide insertion sequence, so for the same push
// order the pop order matches Queue.
type GroupQueue struct {
	global groupHeap
	owners []*group
	seq    uint64
	count  int
}

// NewGroupQueue creates a queue for owners in [0, n).
func NewGroupQueue(n int) *GroupQueue {
	return &GroupQueue{
		global: make(groupHeap, 0, n),
		owners: make([]*group, n),
	}
}

// Replace discards owner's current sub-queue and installs evs in its place.
// An empty evs leaves the owner with no pending events.
func (q *GroupQueue) Replace(owner int, evs []Event) {
	if old := q.owners[owner]; old != nil {
		if old.index >= 0 {
			heap.Remove(&q.global, old.index)
		}
		q.count -= len(old.events)
		q.owners[owner] = nil
	}
	if len(evs) == 0 {
		return
	}

	g := &group{owner: owner, events: make(eventHeap, len(evs)), index: -1}
	for i, e := range evs {
		g.events[i] = item{ev: e, seq: q.seq}
		q.seq++
	}
	heap.Init(&g.events)
	heap.Push(&q.global, g)
	q.owners[owner] = g
	q.count += len(evs)
}

// Push adds a single event to owner's sub-queue.
func (q *GroupQueue) Push(owner int, e Event) {
	g := q.owners[owner]
	if g == nil {
		q.Replace(owner, []Event{e})
		return
	}
	heap.Push(&g.events, item{ev: e, seq: q.seq})
	q.seq++
	q.count++
	heap.Fix(&q.global, g.index)
}

// Pop removes and returns the earliest event across all sub-queues, and the
// owner it was filed under.
func (q *GroupQueue) Pop() (e Event, owner int, ok bool) {
	if len(q.global) == 0 {
		return Event{}, NoParticle, false
	}
	g := q.global[0]
	it := heap.Pop(&g.events).(item)
	q.count--
	if len(g.events) == 0 {
		heap.Pop(&q.global)
		q.owners[g.owner] = nil
	} else {
		heap.Fix(&q.global, 0)
	}
	return it.ev, g.owner, true
}

// Peek returns the earliest event without removing it.
func (q *GroupQueue) Peek() (e Event, ok bool) {
	if len(q.global) == 0 {
		return Event{}, false
	}
	return q.global[0].head().ev, true
}

// Len returns the number of queued events across all sub-queues.
func (q *GroupQueue) Len() int {
	return q.count
}

// Groups returns the number of non-empty sub-queues.
func (q *GroupQueue) Groups() int {
	return len(q.global)
}

// Pending returns the number of events filed under owner.
func (q *GroupQueue) Pending(owner int) int {
	if g := q.owners[owner]; g != nil {
		return len(g.events)
	}
	return 0
}
