package events

// Event is implemented by every simulation event carried on the bus.
type Event interface {
	EventType() string
}

// EventType implements Event.
func (PacketEvent) EventType() string { return "packet" }

// EventType implements Event.
func (OptimizationEvent) EventType() string { return "optimization" }

// EventType implements Event.
func (BreakdownEvent) EventType() string { return "breakdown" }
