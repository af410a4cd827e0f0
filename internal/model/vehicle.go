package model

import "strconv"

// Vehicle is an ordered sequence of trips a single hypothetical shuttle
// serves. Index is 1-based, assigned on creation, and reflects creation
// order within the plan.
type Vehicle struct {
	Index int
	Trips []*Trip
}

// NewVehicle creates an empty vehicle with the given 1-based index.
func NewVehicle(index int) *Vehicle {
	return &Vehicle{Index: index}
}

// LastTrip returns the most recently assigned trip, or nil if the vehicle
// has none yet.
func (v *Vehicle) LastTrip() *Trip {
	if len(v.Trips) == 0 {
		return nil
	}
	return v.Trips[len(v.Trips)-1]
}

// AddTrip appends a trip to this vehicle's schedule. Trips are always
// appended in assignment order.
func (v *Vehicle) AddTrip(t *Trip) {
	v.Trips = append(v.Trips, t)
}

// Capability is the union of the assistance bitmasks of every trip
// assigned to this vehicle.
func (v *Vehicle) Capability() Assistance {
	var a Assistance
	for _, t := range v.Trips {
		a |= t.Assistance
	}
	return a
}

// Name is the synthetic vehicle name rendered in the output: the 1-based
// index followed by the capability code across all assigned trips.
func (v *Vehicle) Name() string {
	return strconv.Itoa(v.Index) + v.Capability().Code()
}

// Plan is the ordered list of vehicles produced by the scheduler.
type Plan struct {
	Vehicles []*Vehicle
}

// NextIndex returns the 1-based index the next-created vehicle would get.
func (p *Plan) NextIndex() int {
	return len(p.Vehicles) + 1
}

// AddVehicle appends a newly created vehicle to the plan.
func (p *Plan) AddVehicle(v *Vehicle) {
	p.Vehicles = append(p.Vehicles, v)
}
