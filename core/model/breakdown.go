package model

import (
	"fmt"
	"time"
)

// IncidentType classifies the severity of a truck breakdown.
type IncidentType string

const (
	// IncidentTI1 resolves in place after two hours.
	IncidentTI1 IncidentType = "TI1"
	// IncidentTI2 immobilizes for two hours then requires a depot stay until
	// the start of the shift after the next one.
	IncidentTI2 IncidentType = "TI2"
	// IncidentTI3 immobilizes for four hours then keeps the truck at the depot
	// until midnight three days later.
	IncidentTI3 IncidentType = "TI3"
)

// ShiftLength is the duration of one operating shift; shifts start at local midnight.
const ShiftLength = 8 * time.Hour

// ParseIncidentType validates a textual incident type.
func ParseIncidentType(s string) (IncidentType, error) {
	switch IncidentType(s) {
	case IncidentTI1, IncidentTI2, IncidentTI3:
		return IncidentType(s), nil
	}
	return "", fmt.Errorf("unknown incident type %q", s)
}

// RequiresRelocation reports whether the truck is towed to a central depot.
func (t IncidentType) RequiresRelocation() bool {
	return t == IncidentTI2 || t == IncidentTI3
}

// Breakdown records a truck failure and its release schedule.
type Breakdown struct {
	ID                string       `json:"id"`
	TruckCode         string       `json:"truck_code"`
	Incident          IncidentType `json:"incident_type"`
	OccurredAt        time.Time    `json:"occurred_at"`
	RelocationWaitEnd time.Time    `json:"relocation_wait_end,omitempty"`
	AvailableAt       time.Time    `json:"available_at"`
}

// NewBreakdown computes the relocation and release instants for an incident
// occurring at t. loc defines local midnight and shift boundaries.
func NewBreakdown(id, truckCode string, incident IncidentType, t time.Time, loc *time.Location) Breakdown {
	if loc == nil {
		loc = time.UTC
	}
	b := Breakdown{ID: id, TruckCode: truckCode, Incident: incident, OccurredAt: t}
	switch incident {
	case IncidentTI1:
		b.AvailableAt = t.Add(2 * time.Hour)
	case IncidentTI2:
		b.RelocationWaitEnd = t.Add(2 * time.Hour)
		b.AvailableAt = NextShiftStart(t, loc).Add(ShiftLength)
	case IncidentTI3:
		b.RelocationWaitEnd = t.Add(4 * time.Hour)
		b.AvailableAt = LocalMidnight(t, loc).AddDate(0, 0, 3)
	}
	return b
}

// LocalMidnight returns the start of t's day in loc.
func LocalMidnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// NextShiftStart returns the first shift boundary strictly after t.
func NextShiftStart(t time.Time, loc *time.Location) time.Time {
	s := LocalMidnight(t, loc)
	for !s.After(t) {
		s = s.Add(ShiftLength)
	}
	return s
}
