package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestEngine(t *testing.T, seed uint64, sc SizeClass) *MapEngine {
	t.Helper()
	e, err := NewEngine(createValidParams(), NewRand(seed))
	require.NoError(t, err)
	e.SetSizeClass(sc)
	return e
}

func generate(t *testing.T, e *MapEngine) *Frame {
	t.Helper()
	f := e.NewFrame()
	require.NoError(t, e.Generate(f))
	return f
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine(createValidParams(), NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, Narrow, e.SizeClass())
	assert.Equal(t, 80, e.goals.Cap())
	assert.Equal(t, 120, e.trail.Cap())
	assert.Equal(t, 120, e.fringe.Cap())
	assert.Equal(t, 31, e.run.Cap())
	assert.Len(t, e.blocks, 3)

	_, err = NewEngine(createValidParams(), nil)
	assert.Error(t, err)

	bad := createValidParams()
	bad.Width = 1
	_, err = NewEngine(bad, NewRand(1))
	assert.Error(t, err)
}

func TestResetIdempotent(t *testing.T) {
	e := createTestEngine(t, 7, Wide)
	generate(t, e)

	e.Reset()
	once := append([]Cell(nil), e.grid.cells...)
	e.Reset()
	assert.Equal(t, once, e.grid.cells)

	for _, c := range e.grid.cells {
		assert.True(t, math.IsInf(c.G, 1))
		assert.True(t, math.IsInf(c.F, 1))
		assert.Equal(t, NoPredecessor, c.FromX)
		assert.False(t, c.InFringe || c.CanPass || c.HasBlock || c.IsRemoved)
	}
	assert.Zero(t, e.goals.Len())
	assert.Zero(t, e.trail.Len())
	assert.Zero(t, e.fringe.Len())
	for _, pool := range e.blocks {
		assert.Zero(t, pool.Len())
	}
}

func TestResetTripKeepsTerrain(t *testing.T) {
	e := createTestEngine(t, 3, Wide)
	generate(t, e)
	goals := e.goals.Len()
	removed := 0
	for _, c := range e.grid.cells {
		if c.IsRemoved {
			removed++
		}
	}

	e.ResetTrip()
	after := 0
	for _, c := range e.grid.cells {
		if c.IsRemoved {
			after++
		}
	}
	assert.Equal(t, removed, after)
	assert.Equal(t, goals, e.goals.Len())
	assert.Zero(t, e.trail.Len())
	assert.Zero(t, e.fringe.Len())

	t.Run("scratch cleared inside trip rectangle", func(t *testing.T) {
		b := e.Bounds()
		for x := b.Trip.Left; x < e.grid.Width-b.Trip.Right; x++ {
			for y := b.Trip.Top; y < e.grid.Height-b.Trip.Bottom; y++ {
				c := e.grid.at(x, y)
				require.True(t, math.IsInf(c.G, 1), "cell (%d,%d)", x, y)
				require.False(t, c.InFringe)
			}
		}
	})
}

func TestGenerateScenario(t *testing.T) {
	for seed := uint64(0); seed < 25; seed++ {
		for _, sc := range []SizeClass{Wide, Narrow} {
			e := createTestEngine(t, seed, sc)
			f := generate(t, e)
			b := e.Bounds()

			require.NotEmpty(t, f.Route, "seed %d", seed)
			assert.Equal(t, f.Source, f.Route[0])
			last := f.Route[len(f.Route)-1]
			assert.True(t, AtGoal(last, f.Goal), "route must end beside the goal edge, got %v for goal %v", last, f.Goal)
			assert.GreaterOrEqual(t, abs(f.Source.X-f.Goal.X), 4)
			assert.GreaterOrEqual(t, abs(f.Source.Y-f.Goal.Y), 4)

			for i, at := range f.Route {
				c := e.grid.at(at.X, at.Y)
				assert.True(t, c.CanPass, "route cell %v must be passable", at)
				assert.True(t, b.inTrip(at.X, at.Y, e.grid.Width, e.grid.Height), "route cell %v outside trip rectangle", at)
				assert.Equal(t, float64(i), c.G, "g must grow by one per step")
				if i > 0 {
					assert.True(t, IsAdjacent(f.Route[i-1], at), "step %d from %v to %v", i, f.Route[i-1], at)
				}
			}

			assert.InDelta(t, float64(len(f.Route)-1)+0.5+0.3, f.Length, 1e-9)
			assert.Equal(t, e.params.RevealDuration(f.Length), f.Duration)
			assert.Equal(t, sc, f.SizeClass)
		}
	}
}

func TestGoalCandidatesRespectBounds(t *testing.T) {
	e := createTestEngine(t, 11, Narrow)
	generate(t, e)
	w, h := e.grid.Width, e.grid.Height
	b := e.Bounds()

	require.Positive(t, e.GoalCandidates())
	for i := 0; i < e.GoalCandidates(); i++ {
		at, ok := e.GoalCandidate(i)
		require.True(t, ok)
		c := e.grid.at(at.X, at.Y)
		assert.True(t, c.CanPass)
		assert.False(t, c.HasBlock)
		assert.True(t, b.inGoal(at.X, at.Y, w, h))
		assert.False(t, b.inText(at.X, at.Y, w, h))
	}
	_, ok := e.GoalCandidate(-1)
	assert.False(t, ok)
}

func TestTextRectangleRemoved(t *testing.T) {
	e := createTestEngine(t, 5, Wide)
	generate(t, e)
	t0 := e.Bounds().Text
	for x := t0.Left; x < e.grid.Width-t0.Right; x++ {
		for y := t0.Top; y < e.grid.Height-t0.Bottom; y++ {
			c := e.grid.at(x, y)
			assert.True(t, c.IsRemoved)
			assert.False(t, c.CanPass)
			assert.False(t, c.HasBlock)
		}
	}
}

func TestDeterministicGeneration(t *testing.T) {
	a := createTestEngine(t, 99, Wide)
	b := createTestEngine(t, 99, Wide)
	fa, fb := generate(t, a), generate(t, b)

	assert.Equal(t, fa.Cells, fb.Cells)
	assert.Equal(t, fa.Route, fb.Route)
	assert.Equal(t, fa.Snapshot().Commands, fb.Snapshot().Commands)

	// Replaying the recorded draws reproduces the map
	rec := NewRecordingRand(NewRand(1234))
	c, err := NewEngine(createValidParams(), rec)
	require.NoError(t, err)
	fc := c.NewFrame()
	require.NoError(t, c.Generate(fc))

	d, err := NewEngine(createValidParams(), NewSequenceRand(rec.Draws()...))
	require.NoError(t, err)
	fd := d.NewFrame()
	require.NoError(t, d.Generate(fd))
	assert.Equal(t, fc.Cells, fd.Cells)
	assert.Equal(t, fc.Route, fd.Route)
}

func TestFrameReuseDoesNotGrow(t *testing.T) {
	e := createTestEngine(t, 21, Wide)
	f := e.NewFrame()
	commands, ops, route := cap(f.Commands), cap(f.ops), cap(f.Route)

	for i := 0; i < 50; i++ {
		require.NoError(t, e.Generate(f))
	}
	assert.Equal(t, commands, cap(f.Commands))
	assert.Equal(t, ops, cap(f.ops))
	assert.Equal(t, route, cap(f.Route))
}

func TestGenerateDoesNotAllocate(t *testing.T) {
	for _, sc := range []SizeClass{Narrow, Wide} {
		t.Run(sc.String(), func(t *testing.T) {
			e := createTestEngine(t, 5, sc)
			f := e.NewFrame()
			require.NoError(t, e.Generate(f))

			var err error
			allocs := testing.AllocsPerRun(50, func() {
				err = e.Generate(f)
			})
			require.NoError(t, err)
			assert.Zero(t, allocs, "Generate must reuse the arena and the frame")
		})
	}
}

func TestDegenerateGoalBoundsRegenerate(t *testing.T) {
	p := createValidParams()
	p.Bounds.Narrow.Goal = Margins{Left: 15, Right: 15, Top: 6, Bottom: 6}
	p.Bounds.Wide.Goal = p.Bounds.Narrow.Goal
	p.MaxRegenerations = 5
	e, err := NewEngine(p, NewRand(1))
	require.NoError(t, err)
	assert.Zero(t, e.goals.Cap())

	f := e.NewFrame()
	err = e.Generate(f)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRoute))
	assert.Equal(t, 5, e.Stats().Regenerations)
	assert.Zero(t, e.Stats().Attempts, "no goal attempt is spent on an empty candidate pool")
	assert.Empty(t, f.Route)
}

func TestUnreachableSourceFailsAttempts(t *testing.T) {
	p := createValidParams()
	p.MaxRegenerations = 2
	e, err := NewEngine(p, NewRand(8))
	require.NoError(t, err)
	// Out of reach of every trip cell; validation rejects this in files
	e.params.MinDistance = MaxMinDistance

	err = e.Generate(e.NewFrame())
	require.ErrorIs(t, err, ErrNoRoute)
	assert.Positive(t, e.Stats().Attempts)
	assert.LessOrEqual(t, e.Stats().Attempts, 3*p.MaxAttempts)
	assert.Equal(t, 2, e.Stats().Regenerations)
}

type runCollector struct {
	vertical   [][]Index
	horizontal [][]Index
}

func (c *runCollector) Road(run *Pool, vertical bool) {
	cells := make([]Index, run.Len())
	for i := range cells {
		cells[i] = run.At(i)
	}
	if vertical {
		c.vertical = append(c.vertical, cells)
	} else {
		c.horizontal = append(c.horizontal, cells)
	}
}

// removeAll marks every cell removed so tests can carve pavement by hand
func removeAll(e *MapEngine) {
	e.Reset()
	for i := range e.grid.cells {
		e.grid.cells[i].IsRemoved = true
	}
}

func TestScanRoadsDiscardsStray(t *testing.T) {
	e := createTestEngine(t, 1, Wide)
	removeAll(e)

	// Isolated interior vertical run: stray
	for y := 3; y <= 5; y++ {
		e.grid.at(4, y).IsRemoved = false
	}
	// Vertical run touching the bottom edge: kept
	for y := 9; y < e.grid.Height; y++ {
		e.grid.at(20, y).IsRemoved = false
	}

	var c runCollector
	roads := e.ScanRoads(&c)
	assert.Equal(t, 1, len(c.vertical))
	assert.Equal(t, Index{X: 20, Y: 9}, c.vertical[0][0])
	assert.Len(t, c.vertical[0], e.grid.Height-9)

	// Each single cell of the kept run is also a one-cell horizontal run
	// whose vertical neighbors are pavement, so it is kept too
	assert.Equal(t, roads, len(c.vertical)+len(c.horizontal))
}

func TestScanRoadsNeighborKeepsRun(t *testing.T) {
	e := createTestEngine(t, 1, Wide)
	removeAll(e)

	// Two adjacent vertical runs keep each other
	for y := 3; y <= 5; y++ {
		e.grid.at(6, y).IsRemoved = false
		e.grid.at(7, y).IsRemoved = false
	}

	var c runCollector
	e.ScanRoads(&c)
	assert.Len(t, c.vertical, 2)
	// Rows 3..5 each hold one horizontal run of two cells
	assert.Len(t, c.horizontal, 3)
	for _, run := range c.horizontal {
		assert.Len(t, run, 2)
	}
}

func TestScanRoadsIntersectingStrays(t *testing.T) {
	e := createTestEngine(t, 1, Wide)
	removeAll(e)

	// A plus shape away from every edge is isolated, yet every run has a
	// crossing cell as pavement neighbor and survives
	for d := -2; d <= 2; d++ {
		e.grid.at(6+d, 6).IsRemoved = false
		e.grid.at(6, 6+d).IsRemoved = false
	}

	var c runCollector
	e.ScanRoads(&c)
	assert.Len(t, c.vertical, 5)
	assert.Len(t, c.horizontal, 5)
}

func TestOccupyBlocksHonorsCapacity(t *testing.T) {
	p := createValidParams()
	p.Probability = map[string]float64{"green": 1}
	e, err := NewEngine(p, NewSequenceRand(0.5))
	require.NoError(t, err)
	e.SetSizeClass(Wide)

	e.OccupyBlocks()
	green := e.blocks[0]
	assert.Equal(t, green.Cap(), categoryCapacity(p.Width, p.Height, 1))

	blocked := 0
	for x := 0; x < p.Width; x++ {
		for y := 0; y < p.Height; y++ {
			c := e.grid.at(x, y)
			if x == 0 || y == 0 || e.bounds.inText(x, y, p.Width, p.Height) {
				assert.False(t, c.HasBlock, "(%d,%d)", x, y)
				continue
			}
			if c.HasBlock {
				blocked++
				assert.Equal(t, 0, c.Category)
			}
		}
	}
	assert.Equal(t, green.Len(), blocked)
}

func TestRemovePoints(t *testing.T) {
	e := createTestEngine(t, 1, Wide)
	e.RemovePoints(0)
	w, h := e.grid.Width, e.grid.Height
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			assert.Equal(t, e.bounds.inTextRemoved(x, y, w, h), e.grid.at(x, y).IsRemoved)
		}
	}

	e.Reset()
	e.RemovePoints(1)
	for _, c := range e.grid.cells {
		assert.True(t, c.IsRemoved)
	}
}

func TestSetSizeClassSwapsBounds(t *testing.T) {
	e := createTestEngine(t, 4, Wide)
	generate(t, e)
	assert.Equal(t, 8, e.Bounds().Trip.Left)

	e.SetSizeClass(Narrow)
	assert.Equal(t, 10, e.Bounds().Trip.Left)
	assert.Zero(t, e.goals.Len(), "size class change must reset the arena")

	f := generate(t, e)
	for _, at := range f.Route {
		assert.GreaterOrEqual(t, at.X, 10)
		assert.Less(t, at.X, e.grid.Width-10)
	}
}

func TestCellReturnsCopy(t *testing.T) {
	e := createTestEngine(t, 2, Wide)
	generate(t, e)

	c, ok := e.Cell(0, 0)
	require.True(t, ok)
	c.CanPass = !c.CanPass
	again, _ := e.Cell(0, 0)
	assert.NotEqual(t, c.CanPass, again.CanPass)

	_, ok = e.Cell(-1, 0)
	assert.False(t, ok)
	_, ok = e.Cell(e.grid.Width, 0)
	assert.False(t, ok)
}
