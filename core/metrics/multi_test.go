package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type packetOnly struct{ packets int }

func (p *packetOnly) RecordPacket(PacketRecord) error {
	p.packets++
	return nil
}

type recordAll struct {
	packetOnly
	optimizations int
	breakdowns    int
	states        int
}

func (r *recordAll) RecordOptimization(OptimizationRecord) error {
	r.optimizations++
	return nil
}

func (r *recordAll) RecordBreakdown(BreakdownRecord) error {
	r.breakdowns++
	return nil
}

func (r *recordAll) RecordTruckState(recs []TruckStateRecord) error {
	r.states += len(recs)
	return nil
}

type failing struct{}

func (failing) RecordPacket(PacketRecord) error { return errors.New("boom") }

func TestMultiSinkForwardsToCapableSinks(t *testing.T) {
	a := &packetOnly{}
	b := &recordAll{}
	m := NewMultiSink(a, b)

	assert.NoError(t, m.RecordPacket(PacketRecord{Index: 1}))
	assert.NoError(t, m.RecordOptimization(OptimizationRecord{}))
	assert.NoError(t, m.RecordBreakdown(BreakdownRecord{}))
	assert.NoError(t, m.RecordTruckState(make([]TruckStateRecord, 3)))

	assert.Equal(t, 1, a.packets)
	assert.Equal(t, 1, b.packets)
	assert.Equal(t, 1, b.optimizations)
	assert.Equal(t, 1, b.breakdowns)
	assert.Equal(t, 3, b.states)
}

func TestMultiSinkReturnsFirstError(t *testing.T) {
	after := &packetOnly{}
	m := NewMultiSink(failing{}, after)
	assert.Error(t, m.RecordPacket(PacketRecord{}))
	assert.Equal(t, 0, after.packets)
}
