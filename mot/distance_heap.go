package mot

import "container/heap"

// candidatePair is a gated (track, detection) pair with its association cost
type candidatePair struct {
	trackIdx int
	detIdx   int
	distance float64
	iou      float64
	ordinal  uint64
}

// distanceHeap is a min-heap of candidate pairs. Use pushPair/popPair rather than the heap.Interface methods
type distanceHeap []*candidatePair

func newDistanceHeap(candidates []*candidatePair) *distanceHeap {
	h := make(distanceHeap, len(candidates))
	copy(h, candidates)
	heap.Init(&h)
	return &h
}

func (h distanceHeap) Len() int { return len(h) }

// Less orders by distance, then by IoU (higher first), then by track age and detection index.
// Ties have to be broken explicitly, otherwise matching would depend on heap layout.
func (h distanceHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	if a.iou != b.iou {
		return a.iou > b.iou
	}
	if a.ordinal != b.ordinal {
		return a.ordinal < b.ordinal
	}
	return a.detIdx < b.detIdx
}

func (h distanceHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *distanceHeap) Push(x any) { *h = append(*h, x.(*candidatePair)) }

func (h *distanceHeap) Pop() any {
	old := *h
	n := len(old)
	last := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return last
}

func (h *distanceHeap) pushPair(pair *candidatePair) { heap.Push(h, pair) }

func (h *distanceHeap) popPair() *candidatePair { return heap.Pop(h).(*candidatePair) }
