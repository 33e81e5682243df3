package engine

import "fmt"

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ManhattanDistance calculates the Manhattan distance between two cells
func ManhattanDistance(from, to Index) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// IsAdjacent reports whether two cells are one axis-aligned step apart
func IsAdjacent(a, b Index) bool {
	return ManhattanDistance(a, b) == 1
}

// DescribeCell returns a human-readable summary of one cell of a snapshot
func DescribeCell(s *Snapshot, x, y int) (string, error) {
	if x < 0 || x >= s.Width || y < 0 || y >= s.Height {
		return "", fmt.Errorf("cell (%d,%d) is outside the %dx%d grid", x, y, s.Width, s.Height)
	}
	r := string(s.Rows[y][x])
	meaning, ok := s.Legend[r]
	if !ok {
		meaning = "unknown"
	}
	return fmt.Sprintf("(%d,%d) %s: %s", x, y, r, meaning), nil
}

// RouteIndex returns the position of at along the route, or -1
func RouteIndex(route []Index, at Index) int {
	for i, r := range route {
		if r == at {
			return i
		}
	}
	return -1
}
