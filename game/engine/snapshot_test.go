package engine

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathData(t *testing.T) {
	ops := []Op{
		{Kind: OpMove, X: 1, Y: 2},
		{Kind: OpLine, X: 0.5, Y: 2},
		{Kind: OpRelLine, X: -0.3, Y: 0},
		{Kind: OpClose},
	}
	assert.Equal(t, "M1,2L0.5,2l-0.3,0Z", PathData(ops))
	assert.Empty(t, PathData(nil))
}

func TestFrameCommandOrder(t *testing.T) {
	e := createTestEngine(t, 17, Wide)
	f := generate(t, e)

	var kinds []Kind
	for _, cmd := range f.Commands {
		if len(kinds) == 0 || kinds[len(kinds)-1] != cmd.Kind {
			kinds = append(kinds, cmd.Kind)
		}
	}
	require.NotEmpty(t, kinds)
	assert.Equal(t, KindBackdrop, kinds[0])
	tail := kinds[len(kinds)-7:]
	assert.Equal(t, []Kind{KindTrip, KindSourceRipple, KindSource, KindHouse, KindLeftEdge, KindRightEdge, KindFade}, tail)

	fade := f.Commands[len(f.Commands)-1]
	assert.Equal(t, 2*500*time.Millisecond+f.Duration, fade.Duration)

	trip, ok := f.Trip()
	require.True(t, ok)
	assert.Equal(t, f.Length, trip.Length)
	assert.Equal(t, OpMove, trip.Ops[0].Kind)
	assert.Equal(t, float64(f.Source.X), trip.Ops[0].X)
	end := trip.Ops[len(trip.Ops)-1]
	assert.InDelta(t, f.House.Y-0.1, end.Y, 1e-9)
	assert.InDelta(t, float64(f.Goal.X)-0.5, end.X, 1e-9)
}

func TestBlocksDrawnClockwise(t *testing.T) {
	e := createTestEngine(t, 17, Wide)
	f := generate(t, e)

	found := false
	for _, cmd := range f.Commands {
		if cmd.Kind != KindBlock {
			continue
		}
		found = true
		require.Len(t, cmd.Ops, 5)
		br := cmd.Ops[0]
		assert.Equal(t, Op{Kind: OpLine, X: br.X - 1, Y: br.Y}, cmd.Ops[1])
		assert.Equal(t, Op{Kind: OpLine, X: br.X - 1, Y: br.Y - 1}, cmd.Ops[2])
		assert.Equal(t, Op{Kind: OpLine, X: br.X, Y: br.Y - 1}, cmd.Ops[3])
		assert.Equal(t, OpClose, cmd.Ops[4].Kind)
		assert.Contains(t, f.Categories, cmd.Category)
	}
	assert.True(t, found, "expected at least one block")
}

func TestSnapshot(t *testing.T) {
	e := createTestEngine(t, 23, Wide)
	f := generate(t, e)
	f.ID = 7
	s := f.Snapshot()

	assert.Equal(t, 7, s.ID)
	assert.Equal(t, "wide", s.SizeClass)
	assert.Equal(t, "0 0 30 12", s.ViewBox)
	require.Len(t, s.Rows, f.Height)
	for _, row := range s.Rows {
		assert.Len(t, row, f.Width)
	}
	assert.Equal(t, byte(LegendSource), s.Rows[f.Source.Y][f.Source.X])
	assert.Equal(t, byte(LegendGoal), s.Rows[f.Goal.Y][f.Goal.X])
	assert.Equal(t, "green", s.Legend["G"])
	assert.Equal(t, f.Duration.Milliseconds(), s.DurationMs)

	house := s.Commands[len(s.Commands)-4]
	assert.Equal(t, KindHouse, house.Kind)
	assert.True(t, strings.HasPrefix(house.D, "M"))
	assert.Equal(t, 5, strings.Count(house.D, "l"))
	assert.True(t, strings.HasSuffix(house.D, "Z"))

	// Regenerating the frame must not change the snapshot
	route := append([]Index(nil), s.Route...)
	require.NoError(t, e.Generate(f))
	assert.Equal(t, route, s.Route)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration_ms"`)
	assert.Contains(t, string(data), `"kind":"trip"`)
}

func TestDebugZonesOverlay(t *testing.T) {
	p := createValidParams()
	p.DebugZones = true
	e, err := NewEngine(p, NewRand(31))
	require.NoError(t, err)
	f := e.NewFrame()
	require.NoError(t, e.Generate(f))

	var trips, goals int
	for _, cmd := range f.Commands {
		switch cmd.Kind {
		case KindDeveloperTrip:
			trips++
		case KindDeveloperGoal:
			goals++
			require.Len(t, cmd.Ops, 2)
			assert.Equal(t, cmd.Ops[0].X-1, cmd.Ops[1].X)
		}
	}
	assert.Positive(t, trips)
	assert.Equal(t, e.GoalCandidates(), goals)
}

func TestDescribeCell(t *testing.T) {
	e := createTestEngine(t, 23, Wide)
	s := generate(t, e).Snapshot()

	desc, err := DescribeCell(s, s.Source.X, s.Source.Y)
	require.NoError(t, err)
	assert.Contains(t, desc, "source")

	_, err = DescribeCell(s, -1, 0)
	assert.Error(t, err)
}
