package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTruckIsFull(t *testing.T) {
	tr, err := NewTruck("TA01", ClassTA, Coordinate{X: 12, Y: 8})
	require.NoError(t, err)
	assert.Equal(t, 25.0, tr.GLPCurrent)
	assert.Equal(t, 25.0, tr.FuelCurrent)
	assert.True(t, tr.Available())
	assert.NoError(t, tr.Validate())

	_, err = NewTruck("X", TruckClass("TZ"), Coordinate{})
	assert.Error(t, err)
}

func TestTruckFuelFor(t *testing.T) {
	tr, _ := NewTruck("TD01", ClassTD, Coordinate{})
	// 1.0 t tare + 5 m³ * 0.5 t = 3.5 t
	assert.InDelta(t, 3.5, tr.CombinedWeight(), 1e-9)
	assert.InDelta(t, 18*3.5/180, tr.FuelFor(18), 1e-9)

	tr.GLPCurrent = 0
	assert.InDelta(t, 10*1.0/180, tr.FuelFor(10), 1e-9)
}

func TestTruckCloneIsDeep(t *testing.T) {
	tr, _ := NewTruck("TB01", ClassTB, Coordinate{})
	tr.AssignedRoute = []Waypoint{{Kind: WaypointOrder, Ref: "O1"}}
	cp := tr.Clone()
	cp.AssignedRoute[0].Ref = "O2"
	assert.Equal(t, "O1", tr.AssignedRoute[0].Ref)
}

func TestTruckStateText(t *testing.T) {
	b, err := StateRelocating.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "RELOCATING_TO_DEPOT", string(b))

	var s TruckState
	require.NoError(t, s.UnmarshalText([]byte("OUT_OF_FUEL")))
	assert.Equal(t, StateOutOfFuel, s)
	assert.Error(t, s.UnmarshalText([]byte("BROKEN")))
}

func TestOrderDeliverClamps(t *testing.T) {
	o := Order{Code: "O1", VolumeAssigned: 10}
	assert.Equal(t, 4.0, o.Deliver(4))
	assert.False(t, o.IsDelivered())
	assert.Equal(t, 6.0, o.Deliver(9))
	assert.True(t, o.IsDelivered())
	assert.Equal(t, OrderDelivered, o.State)
	assert.Equal(t, 0.0, o.Deliver(1))
	assert.Equal(t, 10.0, o.VolumeDelivered)
}

func TestDepotDraw(t *testing.T) {
	central := Depot{Code: "C", Central: true}
	assert.Equal(t, 40.0, central.DrawGLP(40))
	assert.Equal(t, 12.0, central.DrawFuel(12))

	sec := Depot{Code: "N", GLPCurrent: 5, GLPMax: 160, FuelCurrent: 3, FuelMax: 50}
	assert.Equal(t, 5.0, sec.DrawGLP(8))
	assert.Equal(t, 0.0, sec.GLPCurrent)
	assert.Equal(t, 3.0, sec.DrawFuel(10))
	sec.Refill()
	assert.Equal(t, 160.0, sec.GLPCurrent)
	assert.Equal(t, 50.0, sec.FuelCurrent)
}

func TestBlockageEdgesAndCovers(t *testing.T) {
	b := Blockage{Nodes: []Coordinate{{X: 1, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 0}}}
	edges := b.Edges()
	assert.Equal(t, []Edge{
		NewEdge(Coordinate{X: 1, Y: 1}, Coordinate{X: 2, Y: 1}),
		NewEdge(Coordinate{X: 2, Y: 1}, Coordinate{X: 3, Y: 1}),
		NewEdge(Coordinate{X: 3, Y: 1}, Coordinate{X: 3, Y: 0}),
	}, edges)
	assert.True(t, b.Covers(Coordinate{X: 2, Y: 1}))
	assert.True(t, b.Covers(Coordinate{X: 3, Y: 0}))
	assert.False(t, b.Covers(Coordinate{X: 2, Y: 0}))
}

func TestBlockageActiveBoundsExclusive(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	b := Blockage{Start: start, End: start.Add(time.Hour)}
	assert.False(t, b.Active(start))
	assert.True(t, b.Active(start.Add(time.Minute)))
	assert.False(t, b.Active(start.Add(time.Hour)))
}

func TestNewBreakdownSchedule(t *testing.T) {
	at := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

	ti1 := NewBreakdown("b1", "TA01", IncidentTI1, at, time.UTC)
	assert.Equal(t, at.Add(2*time.Hour), ti1.AvailableAt)
	assert.True(t, ti1.RelocationWaitEnd.IsZero())

	ti2 := NewBreakdown("b2", "TA01", IncidentTI2, at, time.UTC)
	assert.Equal(t, at.Add(2*time.Hour), ti2.RelocationWaitEnd)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), ti2.AvailableAt)

	ti3 := NewBreakdown("b3", "TA01", IncidentTI3, at, time.UTC)
	assert.Equal(t, at.Add(4*time.Hour), ti3.RelocationWaitEnd)
	assert.Equal(t, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), ti3.AvailableAt)
}

func TestNextShiftStartOnBoundary(t *testing.T) {
	at := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC), NextShiftStart(at, time.UTC))
}
