package solutionlog

import (
	"context"
	"encoding/json"
	"time"
)

// Record is the persisted form of one solution packet. Packet holds the
// complete packet encoded as JSON.
type Record struct {
	Timestamp     time.Time       `json:"timestamp"`
	PacketID      string          `json:"packet_id"`
	Index         int             `json:"index"`
	Kind          string          `json:"kind"`
	IntervalStart time.Time       `json:"interval_start"`
	IntervalEnd   time.Time       `json:"interval_end"`
	Fitness       float64         `json:"fitness"`
	Feasible      bool            `json:"feasible"`
	Trucks        []string        `json:"trucks"`
	Packet        json.RawMessage `json:"packet,omitempty"`
}

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	TruckCode string
	Kind      string
}

// Match reports whether r satisfies every filter of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.TruckCode != "" {
		for _, c := range r.Trucks {
			if c == q.TruckCode {
				return true
			}
		}
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
