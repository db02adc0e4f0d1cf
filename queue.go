// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import "container/heap"

// PendingEntry is a read-only snapshot of one entry still sitting in a
// delivery queue, exposed to a [Policy] so it can reason about what is
// already in flight. Duplicated packets appear as separate entries.
type PendingEntry struct {
	Deadline    int64
	Destination Endpoint
}

// PendingView is an ordered, append-only snapshot of a delivery queue at
// the moment a [Policy] is consulted. It does not reflect later pushes or
// pops; the emulator rebuilds it once per ingress datagram.
type PendingView []PendingEntry

// deliveryQueue is a deadline-ordered priority queue of [scheduled]
// entries, backed by container/heap, generalized from a sequence number
// to a delivery deadline.
type deliveryQueue struct {
	h      scheduledHeap
	nextID uint64
}

// newDeliveryQueue constructs an empty delivery queue.
func newDeliveryQueue() *deliveryQueue {
	return &deliveryQueue{}
}

// push enqueues s, stamping it with the next sequence number if it has not
// already been stamped (seq 0 means unstamped; stamps start at 1), so an
// entry pushed back after a refused send keeps its place among ties.
func (q *deliveryQueue) push(s *scheduled) {
	if s.seq == 0 {
		q.nextID++
		s.seq = q.nextID
	}
	heap.Push(&q.h, s)
}

// len reports the number of entries still queued.
func (q *deliveryQueue) len() int {
	return len(q.h)
}

// peek returns the earliest-deadline entry without removing it, or nil if
// the queue is empty.
func (q *deliveryQueue) peek() *scheduled {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0]
}

// pop removes and returns the earliest-deadline entry, or nil if the queue
// is empty.
func (q *deliveryQueue) pop() *scheduled {
	if len(q.h) == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*scheduled)
}

// snapshot builds a [PendingView] over every entry currently queued,
// ordered by deadline. It allocates the view and one scratch copy of the
// heap per call: a [PendingView] must never alias queue internals that a
// concurrent push/pop could mutate out from under a [Policy].
func (q *deliveryQueue) snapshot() PendingView {
	view := make(PendingView, len(q.h))
	ordered := make(scheduledHeap, len(q.h))
	copy(ordered, q.h)
	// Sorting a copy via repeated Pop gives deadline order without
	// disturbing q.h itself.
	for i := range view {
		s := heap.Pop(&ordered).(*scheduled)
		view[i] = PendingEntry{Deadline: s.deadlineMS, Destination: s.destination}
	}
	return view
}

// scheduledHeap implements container/heap.Interface over *scheduled,
// ordered by deadline and then by insertion order among ties — directly
// ordered by deadline and then by insertion order among ties.
type scheduledHeap []*scheduled

func (h scheduledHeap) Len() int { return len(h) }
func (h scheduledHeap) Less(i, j int) bool {
	if h[i].deadlineMS != h[j].deadlineMS {
		return h[i].deadlineMS < h[j].deadlineMS
	}
	return h[i].seq < h[j].seq
}
func (h scheduledHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scheduledHeap) Push(x any) {
	*h = append(*h, x.(*scheduled))
}

func (h *scheduledHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}
