package engine

// AssessZones marks the pavement of the trip rectangle traversable and
// collects goal candidates: unblocked traversable cells strictly inside the
// goal rectangle and outside the text rectangle.
func (e *MapEngine) AssessZones() {
	w, h := e.grid.Width, e.grid.Height
	t := e.bounds.Trip
	for x := max(0, t.Left); x < w-t.Right; x++ {
		for y := max(0, t.Top); y < h-t.Bottom; y++ {
			cell := e.grid.at(x, y)
			if cell.IsRemoved {
				continue
			}
			cell.CanPass = true
			if cell.HasBlock {
				continue
			}
			if !e.bounds.inGoal(x, y, w, h) || e.bounds.inText(x, y, w, h) {
				continue
			}
			e.goals.Push(x, y)
		}
	}
}

// GoalCandidates returns the number of goal candidates collected since the last reset
func (e *MapEngine) GoalCandidates() int {
	return e.goals.Len()
}

// GoalCandidate returns the i-th goal candidate
func (e *MapEngine) GoalCandidate(i int) (Index, bool) {
	if i < 0 || i >= e.goals.Len() {
		return Index{}, false
	}
	return e.goals.At(i), true
}
