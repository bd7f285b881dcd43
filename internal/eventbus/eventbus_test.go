package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/glpdispatch/core/events"
	"github.com/kilianp07/glpdispatch/core/model"
)

var _ EventBus = New()

func TestBusFansOutEvents(t *testing.T) {
	bus := New()
	a, b := bus.Subscribe(), bus.Subscribe()
	ev := events.PacketEvent{ID: "p0", Kind: "NORMAL", IntervalStart: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	bus.Publish(ev)

	for _, ch := range []<-chan events.Event{a, b} {
		got := <-ch
		assert.Equal(t, "packet", got.EventType())
		assert.Equal(t, ev, got)
	}
	bus.Unsubscribe(a)
	_, open := <-a
	assert.False(t, open)
}

func TestBusCountsDroppedEvents(t *testing.T) {
	bus := NewBus[events.Event](2)
	sub := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(events.BreakdownEvent{Breakdown: model.Breakdown{TruckCode: "TA01"}, Discarded: i})
	}
	assert.Equal(t, uint64(3), bus.Dropped())
	first := (<-sub).(events.BreakdownEvent)
	assert.Equal(t, 0, first.Discarded)
}

func TestBusClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	_, open := <-ch
	assert.False(t, open)

	late := bus.Subscribe()
	_, open = <-late
	assert.False(t, open)

	require.NotPanics(t, func() {
		bus.Publish(events.OptimizationEvent{Purpose: "interval"})
		bus.Unsubscribe(ch)
		bus.Close()
	})
}

func TestBusCarriesDomainValues(t *testing.T) {
	bus := NewBus[model.Breakdown](0)
	sub := bus.Subscribe()
	bus.Publish(model.Breakdown{TruckCode: "TB01", Incident: model.IncidentTI1})
	bus.Publish(model.Breakdown{TruckCode: "TC01"})
	got := <-sub
	assert.Equal(t, "TB01", got.TruckCode)
	assert.Equal(t, uint64(1), bus.Dropped())
}
