package gridmap

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/glpdispatch/core/model"
)

const defaultCacheSize = 4096

type compiledBlockage struct {
	model.Blockage
	edges map[model.Edge]struct{}
}

// GridMap is an arena of nodes indexed by coordinate. Cell updates and
// blockage replacements are atomic; path queries observe the state at the
// moment they start.
type GridMap struct {
	width  int
	height int

	mu        sync.RWMutex
	cells     map[model.Coordinate]Node
	blockages []compiledBlockage

	cacheMu   sync.Mutex
	cache     map[cacheKey][]model.Coordinate
	cacheSize int
}

type cacheKey struct {
	from, to model.Coordinate
	active   string
}

// New creates a grid whose coordinates span [0,width]×[0,height].
func New(width, height int) *GridMap {
	return &GridMap{
		width:     width,
		height:    height,
		cells:     map[model.Coordinate]Node{},
		cache:     map[cacheKey][]model.Coordinate{},
		cacheSize: defaultCacheSize,
	}
}

// Width returns the largest valid X.
func (g *GridMap) Width() int { return g.width }

// Height returns the largest valid Y.
func (g *GridMap) Height() int { return g.height }

// InBounds reports whether c is a node of the grid.
func (g *GridMap) InBounds(c model.Coordinate) bool {
	return c.X >= 0 && c.Y >= 0 && c.X <= g.width && c.Y <= g.height
}

// Place stores n at c. Placing the node already present is a no-op.
func (g *GridMap) Place(c model.Coordinate, n Node) error {
	if !g.InBounds(c) {
		return ErrOutOfBounds
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if n.Kind == NodePlain {
		delete(g.cells, c)
		return nil
	}
	if cur, ok := g.cells[c]; ok && cur != n {
		return ErrCellOccupied
	}
	g.cells[c] = n
	return nil
}

// Clear resets c to Plain if it currently holds a node of the given kind and
// reference. It returns false when the cell holds something else.
func (g *GridMap) Clear(c model.Coordinate, kind NodeKind, ref string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	cur, ok := g.cells[c]
	if !ok || cur.Kind != kind || cur.Ref != ref {
		return false
	}
	delete(g.cells, c)
	return true
}

// NodeAt returns the node stored at c.
func (g *GridMap) NodeAt(c model.Coordinate) (Node, error) {
	if !g.InBounds(c) {
		return Node{}, ErrOutOfBounds
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n, ok := g.cells[c]; ok {
		return n, nil
	}
	return Plain, nil
}

// Nodes returns all non-plain cells of the given kind keyed by coordinate.
func (g *GridMap) Nodes(kind NodeKind) map[model.Coordinate]Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := map[model.Coordinate]Node{}
	for c, n := range g.cells {
		if n.Kind == kind {
			out[c] = n
		}
	}
	return out
}

// SetBlockages replaces the blockage schedule and invalidates cached paths.
func (g *GridMap) SetBlockages(bs []model.Blockage) {
	compiled := make([]compiledBlockage, 0, len(bs))
	for _, b := range bs {
		cb := compiledBlockage{Blockage: b.Clone(), edges: map[model.Edge]struct{}{}}
		for _, e := range b.Edges() {
			cb.edges[e] = struct{}{}
		}
		compiled = append(compiled, cb)
	}
	g.mu.Lock()
	g.blockages = compiled
	g.mu.Unlock()

	g.cacheMu.Lock()
	g.cache = map[cacheKey][]model.Coordinate{}
	g.cacheMu.Unlock()
}

// Blockages returns the whole schedule.
func (g *GridMap) Blockages() []model.Blockage {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.Blockage, len(g.blockages))
	for i, b := range g.blockages {
		out[i] = b.Blockage.Clone()
	}
	return out
}

// ActiveBlockages returns the blockages in force at t.
func (g *GridMap) ActiveBlockages(t time.Time) []model.Blockage {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []model.Blockage
	for _, b := range g.blockages {
		if b.Active(t) {
			out = append(out, b.Blockage.Clone())
		}
	}
	return out
}

// IsNodeBlocked reports whether an active blockage passes through c at t.
func (g *GridMap) IsNodeBlocked(c model.Coordinate, t time.Time) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, b := range g.blockages {
		if b.Active(t) && b.Covers(c) {
			return true
		}
	}
	return false
}

// activeSet returns the edge sets of blockages active at t and a key
// identifying that set for caching.
func (g *GridMap) activeSet(t time.Time) ([]map[model.Edge]struct{}, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var (
		sets []map[model.Edge]struct{}
		ids  []int
	)
	for i, b := range g.blockages {
		if b.Active(t) {
			sets = append(sets, b.edges)
			ids = append(ids, i)
		}
	}
	sort.Ints(ids)
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(strconv.Itoa(id))
		sb.WriteByte(',')
	}
	return sets, sb.String()
}

// ShortestPath returns the path from one coordinate to another, both
// endpoints included, avoiding edges blocked at t. An empty result means the
// destination is unreachable. The returned slice is owned by the caller.
func (g *GridMap) ShortestPath(from, to model.Coordinate, t time.Time) []model.Coordinate {
	if !g.InBounds(from) || !g.InBounds(to) {
		return nil
	}
	if from == to {
		return []model.Coordinate{from}
	}
	sets, fp := g.activeSet(t)
	key := cacheKey{from: from, to: to, active: fp}

	g.cacheMu.Lock()
	if p, ok := g.cache[key]; ok {
		g.cacheMu.Unlock()
		return append([]model.Coordinate(nil), p...)
	}
	g.cacheMu.Unlock()

	blocked := func(e model.Edge) bool {
		for _, s := range sets {
			if _, ok := s[e]; ok {
				return true
			}
		}
		return false
	}
	path := astar(g.width, g.height, from, to, blocked)

	g.cacheMu.Lock()
	if len(g.cache) >= g.cacheSize {
		g.cache = map[cacheKey][]model.Coordinate{}
	}
	g.cache[key] = path
	g.cacheMu.Unlock()
	return append([]model.Coordinate(nil), path...)
}
