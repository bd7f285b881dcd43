package events

import (
	"github.com/kilianp07/glpdispatch/core/model"
)

// BreakdownEvent is published once a breakdown has been processed.
// Discarded is the number of queued packets dropped; Released lists the
// orders put back to REGISTERED. Trucks is the fleet as it stood when the
// breakdown was received.
type BreakdownEvent struct {
	Breakdown model.Breakdown
	Discarded int
	Released  []string
	Trucks    []model.Truck
	Err       error
}
