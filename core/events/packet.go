package events

import "time"

// PacketEvent is published when a solution packet is emitted.
type PacketEvent struct {
	ID            string
	Index         int
	Kind          string
	IntervalStart time.Time
	IntervalEnd   time.Time
	Fitness       float64
}
