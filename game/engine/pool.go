package engine

// Pool is a fixed-capacity coordinate buffer with a live-count cursor.
// Pushing past capacity drops the coordinate.
type Pool struct {
	items []Index
	count int
}

// NewPool allocates a pool for capacity coordinates
func NewPool(capacity int) *Pool {
	return &Pool{items: make([]Index, max(0, capacity))}
}

// Push appends (x, y) and reports false if the pool is full
func (p *Pool) Push(x, y int) bool {
	if p.count >= len(p.items) {
		return false
	}
	p.items[p.count] = Index{X: x, Y: y}
	p.count++
	return true
}

// At returns the i-th live coordinate
func (p *Pool) At(i int) Index {
	return p.items[i]
}

// Len returns the live count
func (p *Pool) Len() int { return p.count }

// Cap returns the fixed capacity
func (p *Pool) Cap() int { return len(p.items) }

// Full reports whether another Push would be dropped
func (p *Pool) Full() bool { return p.count >= len(p.items) }

// Reset empties the pool without releasing storage
func (p *Pool) Reset() { p.count = 0 }

func (p *Pool) swap(i, j int) {
	p.items[i], p.items[j] = p.items[j], p.items[i]
}
