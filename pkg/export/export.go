// Package export writes solution packet routes as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/glpdispatch/core/simulation"
)

// WriteJSON writes the packets to w as a JSON array.
func WriteJSON(w io.Writer, packets []simulation.SolutionPacket) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(packets)
}

var csvHeader = []string{
	"packet_index", "kind", "interval_start", "truck_code", "seq",
	"waypoint_kind", "ref", "x", "y", "arrival", "departure", "volume_m3",
}

// WriteCSV writes one row per visited waypoint. Routes without visits
// produce a single row with an empty waypoint so idle trucks stay visible.
func WriteCSV(w io.Writer, packets []simulation.SolutionPacket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range packets {
		head := []string{strconv.Itoa(p.Index), string(p.Kind), p.IntervalStart.Format(time.RFC3339)}
		for _, r := range p.Routes {
			if len(r.Visits) == 0 {
				rec := append(append([]string{}, head...), r.TruckCode, "0", "", "", "", "", "", "", "0")
				if err := cw.Write(rec); err != nil {
					return err
				}
				continue
			}
			for i, v := range r.Visits {
				rec := append(append([]string{}, head...),
					r.TruckCode,
					strconv.Itoa(i+1),
					v.Waypoint.Kind.String(),
					v.Waypoint.Ref,
					strconv.Itoa(v.Waypoint.Position.X),
					strconv.Itoa(v.Waypoint.Position.Y),
					v.Arrival.Format(time.RFC3339),
					v.Departure.Format(time.RFC3339),
					strconv.FormatFloat(v.Volume, 'f', -1, 64),
				)
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
