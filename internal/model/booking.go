// Package model contains the domain types for the shuttle scheduler.
package model

import "encoding/json"

// Assistance is a bitmask over the mobility-assistance capabilities a
// booking may require. It doubles as the vehicle capability code.
type Assistance int

const (
	Ambulatory Assistance = 1 << 0
	Wheelchair Assistance = 1 << 1
	Stretcher  Assistance = 1 << 4
)

// assistanceTags maps a case-insensitive booking tag to the capability it
// grants. Unknown tags fall back to Ambulatory.
var assistanceTags = map[string]Assistance{
	"ambulatory": Ambulatory,
	"wheelchair": Wheelchair,
	"stretcher":  Stretcher,
	"gurney":     Stretcher,
}

// ParseAssistance folds a booking's tag list into a single bitmask.
// Unknown or empty tag lists default to Ambulatory so the result is
// always > 0.
func ParseAssistance(tags []string) Assistance {
	var a Assistance
	for _, tag := range tags {
		if v, ok := assistanceTags[lower(tag)]; ok {
			a |= v
		} else {
			a |= Ambulatory
		}
	}
	if a == 0 {
		a = Ambulatory
	}
	return a
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Code renders the vehicle capability code used in the synthetic shuttle
// name: "GUR" for stretcher-capable, then "WC" or "AMBI".
func (a Assistance) Code() string {
	code := ""
	if a&Stretcher != 0 {
		code += "GUR"
	}
	if a&Wheelchair != 0 {
		code += "WC"
	} else {
		code += "AMBI"
	}
	return code
}

// Bucket returns the scheduling priority bucket for this capability set:
// 0 = stretcher, 1 = wheelchair, 2 = ambulatory-only.
func (a Assistance) Bucket() int {
	switch {
	case a&Stretcher != 0:
		return 0
	case a&Wheelchair != 0:
		return 1
	default:
		return 2
	}
}

// Booking is a single passenger pickup-to-dropoff request for a specific
// time of day, as received in a scheduling request.
//
// Payment and other numeric fields the scheduler doesn't interpret pass
// through the pipeline unmodified: Extra captures any JSON object members
// not named below so that (Un)MarshalJSON round-trips their values
// (compacted JSON; member order is not kept) alongside the fields the scheduler does fill in (travel_time,
// travel_distance, scheduled_pickup_time, ...).
type Booking struct {
	BookingID   string `json:"booking_id"`
	PassengerID string `json:"passenger_id,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`

	PickupAddress  string  `json:"pickup_address"`
	DropoffAddress string  `json:"dropoff_address"`
	PickupAddrID   string  `json:"pickup_address_id,omitempty"`
	DropoffAddrID  string  `json:"dropoff_address_id,omitempty"`
	PickupLat      float64 `json:"pickup_lat,omitempty"`
	PickupLon      float64 `json:"pickup_lon,omitempty"`
	DropoffLat     float64 `json:"dropoff_lat,omitempty"`
	DropoffLon     float64 `json:"dropoff_lon,omitempty"`

	PickupTime      string   `json:"pickup_time"`
	ProgramTimezone string   `json:"program_timezone"`
	MobilityTags    []string `json:"mobility_assistance,omitempty"`

	// Filled in by the scheduler after trip construction / assignment.
	TravelTimeSec    *int    `json:"travel_time,omitempty"`
	TravelDistanceM  *int    `json:"travel_distance,omitempty"`
	ScheduledPickup  *string `json:"scheduled_pickup_time,omitempty"`
	ScheduledDropoff *string `json:"scheduled_dropoff_time,omitempty"`
	ActualPickup     *string `json:"actual_pickup_time,omitempty"`
	ActualDropoff    *string `json:"actual_dropoff_time,omitempty"`
	DriverArrivalAt  *string `json:"driver_arrival_time,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// bookingKnownFields lists the JSON members owned by typed struct fields,
// used to split an incoming object into typed + passthrough members.
var bookingKnownFields = map[string]bool{
	"booking_id": true, "passenger_id": true, "first_name": true, "last_name": true,
	"pickup_address": true, "dropoff_address": true, "pickup_address_id": true, "dropoff_address_id": true,
	"pickup_lat": true, "pickup_lon": true, "dropoff_lat": true, "dropoff_lon": true,
	"pickup_time": true, "program_timezone": true, "mobility_assistance": true,
	"travel_time": true, "travel_distance": true,
	"scheduled_pickup_time": true, "scheduled_dropoff_time": true,
	"actual_pickup_time": true, "actual_dropoff_time": true, "driver_arrival_time": true,
}

// UnmarshalJSON decodes the known fields via the default decoder, then
// stashes every other member in Extra for passthrough.
func (b *Booking) UnmarshalJSON(data []byte) error {
	type alias Booking
	if err := json.Unmarshal(data, (*alias)(b)); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Extra = make(map[string]json.RawMessage)
	for k, v := range raw {
		if !bookingKnownFields[k] {
			b.Extra[k] = v
		}
	}
	return nil
}

// MarshalJSON emits the known fields plus every passthrough member from
// Extra, so unrecognized payment/numeric fields survive unmodified.
func (b Booking) MarshalJSON() ([]byte, error) {
	type alias Booking
	base, err := json.Marshal(alias(b))
	if err != nil {
		return nil, err
	}
	if len(b.Extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range b.Extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// PassengerKey returns the identity used to group a passenger's trips for
// last-leg marking: the passenger id when present, else "First Last".
func (b *Booking) PassengerKey() string {
	if b.PassengerID != "" {
		return b.PassengerID
	}
	return b.FirstName + " " + b.LastName
}
