package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPacket forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPacket(rec PacketRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordPacket(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordOptimization forwards to sinks implementing OptimizationRecorder.
func (m *MultiSink) RecordOptimization(rec OptimizationRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(OptimizationRecorder); ok {
			if err := r.RecordOptimization(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordBreakdown forwards to sinks implementing BreakdownRecorder.
func (m *MultiSink) RecordBreakdown(rec BreakdownRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(BreakdownRecorder); ok {
			if err := r.RecordBreakdown(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordTruckState forwards to sinks implementing TruckStateRecorder.
func (m *MultiSink) RecordTruckState(recs []TruckStateRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(TruckStateRecorder); ok {
			if err := r.RecordTruckState(recs); err != nil {
				return err
			}
		}
	}
	return nil
}
