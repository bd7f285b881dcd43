package model

import (
	"fmt"
	"time"
)

// DeliveryEpsilon is the residual volume (m³) below which an order counts as delivered.
const DeliveryEpsilon = 1e-6

// OrderState tracks the progress of a customer order.
type OrderState int

const (
	OrderRegistered OrderState = iota
	OrderPlanned
	OrderDelivered
)

var orderStateNames = map[OrderState]string{
	OrderRegistered: "REGISTERED",
	OrderPlanned:    "PLANNED",
	OrderDelivered:  "DELIVERED",
}

func (s OrderState) String() string {
	if n, ok := orderStateNames[s]; ok {
		return n
	}
	return "unknown"
}

// MarshalText encodes the state with its canonical name.
func (s OrderState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a canonical state name.
func (s *OrderState) UnmarshalText(b []byte) error {
	for k, v := range orderStateNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown order state %q", string(b))
}

// Order is a GLP delivery request placed at a grid coordinate.
type Order struct {
	Code            string     `json:"code"`
	Position        Coordinate `json:"position"`
	RegisteredAt    time.Time  `json:"registered_at"`
	Deadline        time.Time  `json:"deadline"`
	VolumeAssigned  float64    `json:"volume_assigned"`
	VolumeDelivered float64    `json:"volume_delivered"`
	State           OrderState `json:"state"`
}

// Validate checks the order is plannable.
func (o Order) Validate() error {
	if o.Code == "" {
		return fmt.Errorf("order code is required")
	}
	if o.VolumeAssigned <= 0 {
		return fmt.Errorf("order %s: volume must be positive", o.Code)
	}
	if !o.Deadline.After(o.RegisteredAt) {
		return fmt.Errorf("order %s: deadline must be after registration", o.Code)
	}
	if o.VolumeDelivered < 0 || o.VolumeDelivered > o.VolumeAssigned {
		return fmt.Errorf("order %s: delivered volume out of range", o.Code)
	}
	return nil
}

// Remaining returns the volume still to deliver.
func (o Order) Remaining() float64 {
	r := o.VolumeAssigned - o.VolumeDelivered
	if r < 0 {
		return 0
	}
	return r
}

// IsDelivered reports whether the residual volume is below DeliveryEpsilon.
func (o Order) IsDelivered() bool {
	return o.VolumeAssigned-o.VolumeDelivered < DeliveryEpsilon
}

// Deliver adds up to volume m³ and returns the amount actually applied.
// The state switches to DELIVERED once the residual falls below epsilon.
func (o *Order) Deliver(volume float64) float64 {
	if volume <= 0 {
		return 0
	}
	rem := o.Remaining()
	if volume > rem {
		volume = rem
	}
	o.VolumeDelivered += volume
	if o.VolumeDelivered > o.VolumeAssigned {
		o.VolumeDelivered = o.VolumeAssigned
	}
	if o.IsDelivered() {
		o.State = OrderDelivered
	}
	return volume
}
