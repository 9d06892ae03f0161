// Package priority is the resting-order priority queue used inside one
// price level of the book. It generalizes the teacher's BuyBook/SellBook
// pair (internal/book/buy_book.go, internal/book/sell_book.go in the
// source tree this was adapted from) into one container/heap.Interface
// implementation ordered by one explicit comparator, instead of two
// near-duplicate types each hard-coding a price direction — see
// SPEC_FULL.md design note on "dynamic comparison in heaps".
//
// Price level selection (which side of the book, which price) is entirely
// the book's job; this package only orders resting orders that already sit
// at the same price level, by (rating desc, time asc), per spec.md §4.4.
// That tie-break does not depend on side, so unlike the teacher's pair this
// package needs only one comparator.
package priority

import (
	"container/heap"

	"agora/internal/common"
)

// HigherPriority reports whether a should be matched before b at the same
// price level: higher client rating wins; on a tie, the earlier order wins.
func HigherPriority(a, b *common.Order) bool {
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	return a.Time.Before(b.Time)
}

// orderHeap is the container/heap.Interface backing store.
type orderHeap []*common.Order

func (h orderHeap) Len() int { return len(h) }
func (h orderHeap) Less(i, j int) bool {
	return HigherPriority(h[i], h[j])
}
func (h orderHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *orderHeap) Push(x any) {
	*h = append(*h, x.(*common.Order))
}

func (h *orderHeap) Pop() any {
	old := *h
	n := len(old)
	order := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return order
}

// Queue is a priority queue of resting orders at one price level. It is not
// safe for concurrent use; the owning book serializes all access to a
// price level.
type Queue struct {
	h orderHeap
}

func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.h)
	return q
}

func (q *Queue) Len() int { return q.h.Len() }

// Push inserts a resting order, maintaining the heap invariant.
func (q *Queue) Push(order *common.Order) {
	heap.Push(&q.h, order)
}

// Peek returns the highest-priority order without removing it.
func (q *Queue) Peek() (*common.Order, bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	return q.h[0], true
}

// Pop removes and returns the highest-priority order.
func (q *Queue) Pop() (*common.Order, bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&q.h).(*common.Order), true
}

// Orders returns every resting order, in priority order, without mutating
// the queue. Used for book snapshots and tests.
func (q *Queue) Orders() []*common.Order {
	out := make([]*common.Order, len(q.h))
	copy(out, q.h)
	// heap order is only root-correct; sort the copy to present a fully
	// deterministic priority ordering for callers that want to see the
	// whole level (snapshot, tests).
	insertionSortByPriority(out)
	return out
}

func insertionSortByPriority(orders []*common.Order) {
	for i := 1; i < len(orders); i++ {
		for j := i; j > 0 && HigherPriority(orders[j], orders[j-1]); j-- {
			orders[j], orders[j-1] = orders[j-1], orders[j]
		}
	}
}
