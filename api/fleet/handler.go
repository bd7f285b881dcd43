// Package fleet exposes read-only views of the simulated fleet.
package fleet

import (
	"encoding/json"
	"net/http"
	"strings"

	corefleet "github.com/kilianp07/glpdispatch/core/fleet"
	"github.com/kilianp07/glpdispatch/core/model"
)

// Source provides the current registry content.
type Source interface {
	Fleet() corefleet.State
}

// Filter narrows the listed entries. Empty fields match everything.
type Filter struct {
	State string
	Class string
	Truck string
}

func filterFrom(r *http.Request) Filter {
	q := r.URL.Query()
	return Filter{State: q.Get("state"), Class: q.Get("class"), Truck: q.Get("truck")}
}

// NewStatusHandler returns the fleet routes:
//
//	GET /api/fleet/trucks?state=&class=
//	GET /api/fleet/orders?state=
//	GET /api/fleet/depots
//	GET /api/fleet/breakdowns?truck=
func NewStatusHandler(src Source) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/fleet/trucks", func(w http.ResponseWriter, r *http.Request) {
		encode(w, Trucks(src.Fleet().Trucks, filterFrom(r)))
	})
	mux.HandleFunc("GET /api/fleet/orders", func(w http.ResponseWriter, r *http.Request) {
		encode(w, Orders(src.Fleet().Orders, filterFrom(r)))
	})
	mux.HandleFunc("GET /api/fleet/depots", func(w http.ResponseWriter, _ *http.Request) {
		encode(w, src.Fleet().Depots)
	})
	mux.HandleFunc("GET /api/fleet/breakdowns", func(w http.ResponseWriter, r *http.Request) {
		encode(w, Breakdowns(src.Fleet().Breakdowns, filterFrom(r)))
	})
	return mux
}

// Trucks returns the trucks matching f.
func Trucks(ts []model.Truck, f Filter) []model.Truck {
	out := make([]model.Truck, 0, len(ts))
	for _, t := range ts {
		if f.State != "" && !strings.EqualFold(t.State.String(), f.State) {
			continue
		}
		if f.Class != "" && !strings.EqualFold(string(t.Class), f.Class) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Orders returns the orders matching f.State.
func Orders(orders []model.Order, f Filter) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if f.State != "" && !strings.EqualFold(o.State.String(), f.State) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Breakdowns returns the breakdowns of f.Truck.
func Breakdowns(bs []model.Breakdown, f Filter) []model.Breakdown {
	out := make([]model.Breakdown, 0, len(bs))
	for _, b := range bs {
		if f.Truck != "" && b.TruckCode != f.Truck {
			continue
		}
		out = append(out, b)
	}
	return out
}

func encode(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
