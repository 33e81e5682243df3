package engine

// Scorer gives the heap read access to cell scores and write access to
// fringe membership. Grid implements it.
type Scorer interface {
	Score(x, y int) float64
	// SetFringeSlot records the heap slot holding (x, y); -1 when it leaves the heap
	SetFringeSlot(x, y, slot int)
}

// Heap is a binary min-heap of coordinates stored in a Pool. The key of a
// slot is read through the Scorer. A queued cell whose score improves is
// found through the slot the grid records for it, never by a heap scan.
type Heap struct {
	pool   *Pool
	scorer Scorer
}

// NewHeap creates a heap with the given fixed capacity
func NewHeap(capacity int, scorer Scorer) *Heap {
	return &Heap{pool: NewPool(capacity), scorer: scorer}
}

func (h *Heap) score(i int) float64 {
	at := h.pool.At(i)
	return h.scorer.Score(at.X, at.Y)
}

// Len returns the number of queued coordinates
func (h *Heap) Len() int { return h.pool.Len() }

// Cap returns the fixed capacity
func (h *Heap) Cap() int { return h.pool.Cap() }

// Reset empties the heap. Fringe flags on the grid are left to the caller.
func (h *Heap) Reset() { h.pool.Reset() }

// Enqueue pushes a coordinate and marks it in the fringe; false when full
func (h *Heap) Enqueue(at Index) bool {
	if !h.pool.Push(at.X, at.Y) {
		return false
	}
	i := h.pool.Len() - 1
	h.scorer.SetFringeSlot(at.X, at.Y, i)
	h.siftUp(i)
	return true
}

// Fix restores heap order after the score at slot i decreased
func (h *Heap) Fix(i int) {
	if i < 0 || i >= h.pool.Len() {
		return
	}
	h.siftUp(i)
}

// Peek returns the lowest-scored coordinate without removing it
func (h *Heap) Peek() (Index, bool) {
	if h.pool.Len() == 0 {
		return Index{}, false
	}
	return h.pool.At(0), true
}

// Dequeue removes and returns the lowest-scored coordinate
func (h *Heap) Dequeue() (Index, bool) {
	n := h.pool.Len()
	if n == 0 {
		return Index{}, false
	}
	root := h.pool.At(0)
	h.scorer.SetFringeSlot(root.X, root.Y, -1)
	h.pool.count--
	if h.pool.count > 0 {
		last := h.pool.At(h.pool.count)
		h.pool.items[0] = last
		h.scorer.SetFringeSlot(last.X, last.Y, 0)
		h.siftDown(0)
	}
	return root, true
}

func (h *Heap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.score(parent) <= h.score(i) {
			return
		}
		h.swap(parent, i)
		i = parent
	}
}

func (h *Heap) siftDown(i int) {
	n := h.pool.Len()
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.score(left) < h.score(smallest) {
			smallest = left
		}
		if right < n && h.score(right) < h.score(smallest) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.swap(i, smallest)
		i = smallest
	}
}

func (h *Heap) swap(i, j int) {
	h.pool.swap(i, j)
	a, b := h.pool.At(i), h.pool.At(j)
	h.scorer.SetFringeSlot(a.X, a.Y, i)
	h.scorer.SetFringeSlot(b.X, b.Y, j)
}

// valid checks the heap property over every non-root slot
func (h *Heap) valid() bool {
	for i := 1; i < h.pool.Len(); i++ {
		if h.score(i) < h.score((i-1)/2) {
			return false
		}
	}
	return true
}
