package engine

import (
	"errors"
	"math"
)

// ErrNoRoute is returned when no route is found within the regeneration budget
var ErrNoRoute = errors.New("no route found within the regeneration budget")

var directions = [4]Index{{X: -1, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: 0, Y: 1}}

// heuristic measures only the horizontal distance to the goal's left edge
func heuristic(a, goal Index) float64 {
	return math.Abs(float64(a.X) - (float64(goal.X) - 0.5))
}

// AtGoal reports whether at is on either side of the goal's dividing edge,
// which is where a route is allowed to end
func AtGoal(at, goal Index) bool {
	return (at.X == goal.X || at.X == goal.X-1) && at.Y == goal.Y
}

// findTrip runs terrain passes until a goal attempt finds a route. The
// caller resets the arena before the first pass.
func (e *MapEngine) findTrip() error {
	p := e.params
	for pass := 0; pass <= p.MaxRegenerations; pass++ {
		if pass > 0 {
			e.stats.Regenerations++
			e.Reset()
		}

		e.OccupyBlocks()
		e.RemovePoints(p.RemoveProbability)
		e.AssessZones()

		if e.goals.Len() == 0 {
			continue
		}

		for attempt := 0; attempt < p.MaxAttempts; attempt++ {
			e.stats.Attempts++
			e.pickGoal()
			if e.drawSource() && e.search() {
				return nil
			}
			e.ResetTrip()
		}
	}
	return ErrNoRoute
}

func (e *MapEngine) pickGoal() {
	e.goal = e.goals.At(intn(e.rng, e.goals.Len()))
	cell := e.grid.at(e.goal.X, e.goal.Y)
	left := e.grid.at(e.goal.X-1, e.goal.Y)
	e.house = Point{
		X: cell.X - (cell.X-left.X)/2,
		Y: cell.Y - e.params.Porch,
	}
}

// drawSource rejection-samples a traversable source far enough from the goal
func (e *MapEngine) drawSource() bool {
	w, h := e.grid.Width, e.grid.Height
	t := e.bounds.Trip
	spanX, spanY := w-t.Right-t.Left, h-t.Bottom-t.Top
	if spanX <= 0 || spanY <= 0 {
		return false
	}

	limit := sourceDrawFactor * w * h
	for draw := 0; draw < limit; draw++ {
		x := intn(e.rng, spanX) + t.Left
		y := intn(e.rng, spanY) + t.Top
		if !e.grid.at(x, y).CanPass {
			continue
		}
		if abs(x-e.goal.X) < e.params.MinDistance || abs(y-e.goal.Y) < e.params.MinDistance {
			continue
		}
		e.source = Index{X: x, Y: y}
		return true
	}
	return false
}

// search runs A* from the source to the goal and fills the trail pool,
// goal first. It reports whether a trail was found.
func (e *MapEngine) search() bool {
	g := e.grid
	src := g.at(e.source.X, e.source.Y)
	src.G = 0
	src.F = heuristic(e.source, e.goal)
	e.fringe.Enqueue(e.source)

	for {
		current, ok := e.fringe.Dequeue()
		if !ok {
			return false
		}

		if AtGoal(current, e.goal) {
			for current.X != NoPredecessor {
				e.trail.Push(current.X, current.Y)
				cell := g.at(current.X, current.Y)
				current = Index{X: cell.FromX, Y: cell.FromY}
			}
			return e.trail.Len() > 0
		}

		tentative := g.at(current.X, current.Y).G + 1
		for _, d := range directions {
			next := Index{X: current.X + d.X, Y: current.Y + d.Y}
			if !g.Contains(next.X, next.Y) {
				continue
			}
			cell := g.at(next.X, next.Y)
			if !cell.CanPass {
				continue
			}
			if tentative < cell.G {
				cell.FromX = current.X
				cell.FromY = current.Y
				cell.G = tentative
				cell.F = tentative + heuristic(next, e.goal)
				if cell.InFringe {
					e.fringe.Fix(cell.Slot)
				} else {
					e.fringe.Enqueue(next)
				}
			}
		}
	}
}
