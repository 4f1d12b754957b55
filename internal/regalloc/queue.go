package regalloc

import "container/heap"

// Queue is the max-heap priority queue that orders pending VRegs by
// decreasing spill weight, ties broken deterministically by VReg identity
// so that heap-order never depends on push order.
type Queue struct {
	h vregHeap
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.h)
	return q
}

// Push enqueues v. Any VReg needing (re-)allocation must be enqueued
// through this method — it is the sole source of work items for the driver.
func (q *Queue) Push(v *VReg) {
	heap.Push(&q.h, v)
}

// Pop dequeues and returns the heaviest pending VReg, or nil if empty.
func (q *Queue) Pop() *VReg {
	if q.h.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*VReg)
}

// Len reports the number of pending VRegs.
func (q *Queue) Len() int { return q.h.Len() }

type vregHeap []*VReg

func (h vregHeap) Len() int { return len(h) }

// Less implements "A < B ⇔ weight(A) < weight(B)" with a tie-break on ID so
// that a container/heap max-heap (we invert the comparison to pop the
// largest first) never depends on push order.
func (h vregHeap) Less(i, j int) bool {
	if h[i].Weight != h[j].Weight {
		return h[i].Weight > h[j].Weight
	}
	return h[i].ID < h[j].ID
}

func (h vregHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *vregHeap) Push(x interface{}) {
	*h = append(*h, x.(*VReg))
}

func (h *vregHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return v
}
