package model

// Depot is a GLP and fuel supply point. Central depots are inexhaustible;
// secondary depots are reset to their maximum at local midnight.
type Depot struct {
	Code        string     `json:"code"`
	Central     bool       `json:"central"`
	Position    Coordinate `json:"position"`
	GLPCurrent  float64    `json:"glp_current"`
	GLPMax      float64    `json:"glp_max"`
	FuelCurrent float64    `json:"fuel_current"`
	FuelMax     float64    `json:"fuel_max"`
}

// DrawGLP takes up to want m³ from the depot and returns the granted volume.
func (d *Depot) DrawGLP(want float64) float64 {
	if want <= 0 {
		return 0
	}
	if d.Central {
		return want
	}
	if want > d.GLPCurrent {
		want = d.GLPCurrent
	}
	d.GLPCurrent -= want
	return want
}

// DrawFuel takes up to want gallons from the depot and returns the granted amount.
func (d *Depot) DrawFuel(want float64) float64 {
	if want <= 0 {
		return 0
	}
	if d.Central {
		return want
	}
	if want > d.FuelCurrent {
		want = d.FuelCurrent
	}
	d.FuelCurrent -= want
	return want
}

// Refill restores the depot inventory to its maximum.
func (d *Depot) Refill() {
	d.GLPCurrent = d.GLPMax
	d.FuelCurrent = d.FuelMax
}
