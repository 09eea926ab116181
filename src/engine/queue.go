package engine

// -----------------------------------------------------------------------------
// Pending task queue - binary heap ordered by priority weight, with a
// monotonic sequence number so equal-priority tasks run in submission order.
// -----------------------------------------------------------------------------

type queuedTask struct {
	key    string
	weight int
	seq    uint64
	run    func() (any, error)
	done   func(value any, err error)
}

// -----------------------------------------------------------------------------

type taskHeap []*queuedTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight > h[j].weight
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*queuedTask))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return task
}
