package simulation

import (
	"time"

	"github.com/kilianp07/glpdispatch/core/model"
)

// MaintenanceEntry anchors a truck's preventive maintenance cycle on its
// first recorded maintenance day.
type MaintenanceEntry struct {
	TruckCode string    `json:"truck_code" yaml:"truck_code"`
	First     time.Time `json:"first" yaml:"first"`
}

// MaintenancePlan schedules one maintenance day every two months per truck.
// Anchors falling on a day some months lack (29 to 31) skip those months.
type MaintenancePlan struct {
	loc    *time.Location
	anchor map[string]time.Time
}

// NewMaintenancePlan indexes the entries by truck; the latest anchor wins.
func NewMaintenancePlan(entries []MaintenanceEntry, loc *time.Location) MaintenancePlan {
	if loc == nil {
		loc = time.UTC
	}
	p := MaintenancePlan{loc: loc, anchor: make(map[string]time.Time, len(entries))}
	for _, e := range entries {
		p.anchor[e.TruckCode] = model.LocalMidnight(e.First, loc)
	}
	return p
}

// Due reports whether the truck is maintained on the local day containing day.
func (p MaintenancePlan) Due(truckCode string, day time.Time) bool {
	first, ok := p.anchor[truckCode]
	if !ok {
		return false
	}
	d := model.LocalMidnight(day, p.loc)
	if d.Before(first) {
		return false
	}
	months := (d.Year()-first.Year())*12 + int(d.Month()) - int(first.Month())
	return months%2 == 0 && d.Day() == first.Day()
}

// Len returns the number of trucks with a maintenance cycle.
func (p MaintenancePlan) Len() int { return len(p.anchor) }
