package broadcast

import "distributed-protocols/internal/wire"

// seqMsg pairs a BCAST message with the sequence number its originator
// assigned it, so a hold-back queue can order messages from one source
// that arrived out of order.
type seqMsg struct {
	seq int
	msg wire.Message
}

// seqHeap is a container/heap min-heap of seqMsg ordered by seq, giving a
// per-source hold-back queue O(log n) insert/peek/pop.
type seqHeap []seqMsg

func (h seqHeap) Len() int            { return len(h) }
func (h seqHeap) Less(i, j int) bool  { return h[i].seq < h[j].seq }
func (h seqHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *seqHeap) Push(x any)         { *h = append(*h, x.(seqMsg)) }
func (h *seqHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
