package metrics

import (
	"time"

	"github.com/kilianp07/glpdispatch/core/model"
)

// PacketRecord summarises an emitted solution packet.
type PacketRecord struct {
	PacketID      string
	Index         int
	Kind          string
	IntervalStart time.Time
	IntervalEnd   time.Time
	Fitness       float64
	Trucks        int
	Orders        int
	Delivered     int
	Blockages     int
	Time          time.Time
}

// MetricsSink records solution packets for observability purposes.
type MetricsSink interface {
	RecordPacket(rec PacketRecord) error
}

// OptimizationRecord captures one optimizer run.
type OptimizationRecord struct {
	Purpose     string
	Fitness     float64
	Evaluations int
	Generations int
	Duration    time.Duration
	Failed      bool
	Time        time.Time
}

// OptimizationRecorder records optimizer runs.
type OptimizationRecorder interface {
	RecordOptimization(rec OptimizationRecord) error
}

// BreakdownRecord captures a processed breakdown.
type BreakdownRecord struct {
	TruckCode string
	Incident  model.IncidentType
	Discarded int
	Released  int
	Time      time.Time
}

// BreakdownRecorder records truck breakdowns.
type BreakdownRecorder interface {
	RecordBreakdown(rec BreakdownRecord) error
}

// TruckStateRecord is a snapshot of a truck after a packet was committed.
type TruckStateRecord struct {
	Truck model.Truck
	Time  time.Time
}

// TruckStateRecorder records truck snapshots.
type TruckStateRecorder interface {
	RecordTruckState(recs []TruckStateRecord) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPacket(PacketRecord) error             { return nil }
func (NopSink) RecordOptimization(OptimizationRecord) error { return nil }
func (NopSink) RecordBreakdown(BreakdownRecord) error       { return nil }
func (NopSink) RecordTruckState([]TruckStateRecord) error   { return nil }
