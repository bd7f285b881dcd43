package gridmap

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/glpdispatch/core/model"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func c(x, y int) model.Coordinate { return model.Coordinate{X: x, Y: y} }

func assertContiguous(t *testing.T, path []model.Coordinate) {
	t.Helper()
	for i := 1; i < len(path); i++ {
		require.Equal(t, 1, path[i-1].Manhattan(path[i]), "step %d is not a unit move", i)
	}
}

func TestShortestPathManhattanOnEmptyGrid(t *testing.T) {
	g := New(70, 50)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		from := c(rng.Intn(71), rng.Intn(51))
		to := c(rng.Intn(71), rng.Intn(51))
		p := g.ShortestPath(from, to, t0)
		require.NotEmpty(t, p)
		assert.Equal(t, from, p[0])
		assert.Equal(t, to, p[len(p)-1])
		assert.Equal(t, from.Manhattan(to), len(p)-1)
		assertContiguous(t, p)
	}
}

func TestShortestPathSameNode(t *testing.T) {
	g := New(10, 10)
	assert.Equal(t, []model.Coordinate{c(3, 3)}, g.ShortestPath(c(3, 3), c(3, 3), t0))
}

func TestShortestPathOutOfBounds(t *testing.T) {
	g := New(10, 10)
	assert.Empty(t, g.ShortestPath(c(-1, 0), c(3, 3), t0))
	assert.Empty(t, g.ShortestPath(c(0, 0), c(11, 3), t0))
}

func TestShortestPathAvoidsActiveBlockage(t *testing.T) {
	g := New(10, 10)
	// the street x=5 is closed between y=0 and y=8
	closed := model.Blockage{Start: t0.Add(-time.Hour), End: t0.Add(time.Hour), Nodes: []model.Coordinate{c(5, 0), c(5, 8)}}
	g.SetBlockages([]model.Blockage{closed})

	blocked := map[model.Edge]bool{}
	for _, e := range closed.Edges() {
		blocked[e] = true
	}

	p := g.ShortestPath(c(5, 0), c(5, 8), t0)
	require.NotEmpty(t, p)
	assertContiguous(t, p)
	for i := 1; i < len(p); i++ {
		assert.False(t, blocked[model.NewEdge(p[i-1], p[i])])
	}
	assert.Equal(t, 10, len(p)-1)

	// once the window closes the direct route is back
	p = g.ShortestPath(c(5, 0), c(5, 8), t0.Add(2*time.Hour))
	assert.Equal(t, 8, len(p)-1)
}

func TestShortestPathEnclosedTargetIsEmpty(t *testing.T) {
	g := New(10, 10)
	// both edges incident to the corner (0,0) are closed
	corner := model.Blockage{
		Start: t0.Add(-time.Hour),
		End:   t0.Add(time.Hour),
		Nodes: []model.Coordinate{c(1, 0), c(0, 0), c(0, 1)},
	}
	g.SetBlockages([]model.Blockage{corner})
	assert.Empty(t, g.ShortestPath(c(5, 9), c(0, 0), t0))
	assert.Empty(t, g.ShortestPath(c(0, 0), c(5, 9), t0))
	assert.NotEmpty(t, g.ShortestPath(c(5, 9), c(0, 0), t0.Add(time.Hour)))
}

func TestPlaceAndClear(t *testing.T) {
	g := New(10, 10)
	require.NoError(t, g.Place(c(1, 1), DepotNode("C", true)))
	assert.ErrorIs(t, g.Place(c(1, 1), OrderNode("O1")), ErrCellOccupied)
	assert.ErrorIs(t, g.Place(c(11, 1), OrderNode("O1")), ErrOutOfBounds)
	require.NoError(t, g.Place(c(2, 2), OrderNode("O1")))

	n, err := g.NodeAt(c(2, 2))
	require.NoError(t, err)
	assert.Equal(t, NodeOrder, n.Kind)

	assert.False(t, g.Clear(c(2, 2), NodeOrder, "O2"))
	assert.True(t, g.Clear(c(2, 2), NodeOrder, "O1"))
	n, _ = g.NodeAt(c(2, 2))
	assert.Equal(t, Plain, n)
	assert.Len(t, g.Nodes(NodeDepot), 1)
}

func TestIsNodeBlocked(t *testing.T) {
	g := New(10, 10)
	g.SetBlockages([]model.Blockage{{Start: t0, End: t0.Add(time.Hour), Nodes: []model.Coordinate{c(2, 2), c(2, 5)}}})
	assert.True(t, g.IsNodeBlocked(c(2, 3), t0.Add(time.Minute)))
	assert.False(t, g.IsNodeBlocked(c(2, 3), t0))
	assert.False(t, g.IsNodeBlocked(c(3, 3), t0.Add(time.Minute)))
	assert.Len(t, g.ActiveBlockages(t0.Add(time.Minute)), 1)
}

func TestShortestPathCacheReturnsCopies(t *testing.T) {
	g := New(10, 10)
	p1 := g.ShortestPath(c(0, 0), c(3, 0), t0)
	p1[0] = c(9, 9)
	p2 := g.ShortestPath(c(0, 0), c(3, 0), t0)
	assert.Equal(t, c(0, 0), p2[0])
}
