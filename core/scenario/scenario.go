// Package scenario loads the input feed of a simulation: the grid size,
// the fleet, the depots, the order book, the blockage schedule, the
// maintenance cycles and the breakdowns known in advance.
//
// Files are YAML unless their extension is .json:
//
//	start: 2025-01-01T08:00:00Z
//	grid: {width: 70, height: 50}
//	trucks:
//	  - {code: TA01, class: TA, position: {x: 12, y: 8}}
//	depots:
//	  - {code: CENTRAL, central: true, position: {x: 12, y: 8}}
//	  - {code: NORTH, position: {x: 42, y: 42}, glp_max: 160, fuel_max: 160}
//	orders:
//	  - {code: O1, position: {x: 20, y: 15}, volume_m3: 6, deadline_hours: 24}
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/glpdispatch/core/model"
	"github.com/kilianp07/glpdispatch/core/simulation"
)

// Default grid size used when a feed omits it.
const (
	DefaultWidth  = 70
	DefaultHeight = 50
)

// Grid is the map size in kilometres.
type Grid struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Truck describes one fleet member. Trucks start full.
type Truck struct {
	Code     string           `json:"code" yaml:"code"`
	Class    model.TruckClass `json:"class" yaml:"class"`
	Position model.Coordinate `json:"position" yaml:"position"`
}

// Depot describes a supply point. Central depots need no capacity.
type Depot struct {
	Code     string           `json:"code" yaml:"code"`
	Central  bool             `json:"central" yaml:"central"`
	Position model.Coordinate `json:"position" yaml:"position"`
	GLPMax   float64          `json:"glp_max" yaml:"glp_max"`
	FuelMax  float64          `json:"fuel_max" yaml:"fuel_max"`
}

// Order is a delivery request. RegisteredAt defaults to the scenario start;
// the deadline is either absolute or DeadlineHours after registration.
type Order struct {
	Code          string           `json:"code" yaml:"code"`
	Position      model.Coordinate `json:"position" yaml:"position"`
	VolumeM3      float64          `json:"volume_m3" yaml:"volume_m3"`
	RegisteredAt  time.Time        `json:"registered_at" yaml:"registered_at"`
	Deadline      time.Time        `json:"deadline" yaml:"deadline"`
	DeadlineHours float64          `json:"deadline_hours" yaml:"deadline_hours"`
}

// Blockage closes a polyline of the grid between Start and End.
type Blockage struct {
	Start time.Time          `json:"start" yaml:"start"`
	End   time.Time          `json:"end" yaml:"end"`
	Nodes []model.Coordinate `json:"nodes" yaml:"nodes"`
}

// Scenario is a parsed input feed.
type Scenario struct {
	Start       time.Time                       `json:"start" yaml:"start"`
	Grid        Grid                            `json:"grid" yaml:"grid"`
	Trucks      []Truck                         `json:"trucks" yaml:"trucks"`
	Depots      []Depot                         `json:"depots" yaml:"depots"`
	Orders      []Order                         `json:"orders" yaml:"orders"`
	Blockages   []Blockage                      `json:"blockages" yaml:"blockages"`
	Maintenance []simulation.MaintenanceEntry   `json:"maintenance" yaml:"maintenance"`
	Breakdowns  []simulation.ScheduledBreakdown `json:"breakdowns" yaml:"breakdowns"`
}

// Load reads and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scenario in the given format ("yaml" or "json").
// Unknown fields are rejected.
func Parse(data []byte, format string) (*Scenario, error) {
	var s Scenario
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown scenario format %q", format)
	}
	if s.Grid == (Grid{}) {
		s.Grid = Grid{Width: DefaultWidth, Height: DefaultHeight}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks references, bounds and time windows.
func (s *Scenario) Validate() error {
	if s.Start.IsZero() {
		return fmt.Errorf("start is required")
	}
	if s.Grid.Width <= 0 || s.Grid.Height <= 0 {
		return fmt.Errorf("grid size must be positive, got %dx%d", s.Grid.Width, s.Grid.Height)
	}
	inGrid := func(c model.Coordinate) bool {
		return c.X >= 0 && c.Y >= 0 && c.X <= s.Grid.Width && c.Y <= s.Grid.Height
	}
	if len(s.Trucks) == 0 {
		return fmt.Errorf("at least one truck is required")
	}
	trucks := make(map[string]struct{}, len(s.Trucks))
	for _, t := range s.Trucks {
		if _, dup := trucks[t.Code]; dup {
			return fmt.Errorf("duplicate truck %s", t.Code)
		}
		trucks[t.Code] = struct{}{}
		if _, ok := t.Class.Spec(); !ok {
			return fmt.Errorf("truck %s: unknown class %q", t.Code, t.Class)
		}
		if !inGrid(t.Position) {
			return fmt.Errorf("truck %s: position %s outside the grid", t.Code, t.Position)
		}
	}
	central := false
	for _, d := range s.Depots {
		central = central || d.Central
		if !inGrid(d.Position) {
			return fmt.Errorf("depot %s: position %s outside the grid", d.Code, d.Position)
		}
		if !d.Central && (d.GLPMax <= 0 || d.FuelMax <= 0) {
			return fmt.Errorf("depot %s: secondary depots need glp_max and fuel_max", d.Code)
		}
	}
	if !central {
		return fmt.Errorf("at least one central depot is required")
	}
	for _, o := range s.Orders {
		if !inGrid(o.Position) {
			return fmt.Errorf("order %s: position %s outside the grid", o.Code, o.Position)
		}
		if o.Deadline.IsZero() && o.DeadlineHours <= 0 {
			return fmt.Errorf("order %s: deadline or deadline_hours is required", o.Code)
		}
	}
	for i, b := range s.Blockages {
		mb := model.Blockage{Start: b.Start, End: b.End, Nodes: b.Nodes}
		if err := mb.Validate(); err != nil {
			return fmt.Errorf("blockage %d: %w", i, err)
		}
		for _, n := range b.Nodes {
			if !inGrid(n) {
				return fmt.Errorf("blockage %d: node %s outside the grid", i, n)
			}
		}
	}
	for _, m := range s.Maintenance {
		if _, ok := trucks[m.TruckCode]; !ok {
			return fmt.Errorf("maintenance: unknown truck %s", m.TruckCode)
		}
	}
	for _, b := range s.Breakdowns {
		if _, ok := trucks[b.TruckCode]; !ok {
			return fmt.Errorf("breakdown: unknown truck %s", b.TruckCode)
		}
		if _, err := model.ParseIncidentType(string(b.Incident)); err != nil {
			return fmt.Errorf("breakdown of %s: %w", b.TruckCode, err)
		}
	}
	return nil
}
