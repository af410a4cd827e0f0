package handler

import (
	"time"

	"github.com/shiva/paratransit-scheduler/internal/model"
)

// Envelope is the top-level response shape for both the synchronous
// schedule endpoint and a completed task's result.
type Envelope struct {
	Result ResultBody `json:"result"`
}

// ResultBody carries status/diagnostic fields alongside the payload.
type ResultBody struct {
	Status    string   `json:"status"`
	ErrorCode int      `json:"error_code"`
	Message   string   `json:"message"`
	Data      DataBody `json:"data"`
}

// DataBody wraps the produced plan.
type DataBody struct {
	VehicleTripList []VehicleOut `json:"vehicle_trip_list"`
}

// VehicleOut is one vehicle's rendering in the response.
type VehicleOut struct {
	ShuttleName string    `json:"shuttle_name"`
	ShuttleID   *string   `json:"shuttle_id"`
	DriverID    *string   `json:"driver_id"`
	DriverName  *string   `json:"driver_name"`
	Trips       []TripOut `json:"trips"`
}

// TripOut is one assigned trip's rendering within a vehicle.
type TripOut struct {
	FirstPickupTime string           `json:"first_pickup_time"`
	LastDropoffTime string           `json:"last_dropoff_time"`
	PickupLat       float64          `json:"pickup_lat"`
	PickupLon       float64          `json:"pickup_lon"`
	DropoffLat      float64          `json:"dropoff_lat"`
	DropoffLon      float64          `json:"dropoff_lon"`
	DriverArrivalAt *string          `json:"driver_arrival_time"`
	ActionStatus    *string          `json:"action_status"`
	Bookings        []*model.Booking `json:"bookings"`
}

const twelveHourLayout = "3:04 PM"

// successEnvelope renders a completed plan into the response envelope.
func successEnvelope(plan *model.Plan) Envelope {
	vehicles := make([]VehicleOut, 0, len(plan.Vehicles))
	for _, v := range plan.Vehicles {
		vehicles = append(vehicles, renderVehicle(v))
	}
	return Envelope{Result: ResultBody{
		Status:    "success",
		ErrorCode: 0,
		Message:   "ok",
		Data:      DataBody{VehicleTripList: vehicles},
	}}
}

func errorEnvelope(message string) Envelope {
	return Envelope{Result: ResultBody{
		Status:    "error",
		ErrorCode: 1,
		Message:   message,
		Data:      DataBody{VehicleTripList: []VehicleOut{}},
	}}
}

func renderVehicle(v *model.Vehicle) VehicleOut {
	out := VehicleOut{ShuttleName: v.Name(), Trips: make([]TripOut, 0, len(v.Trips))}
	for _, t := range v.Trips {
		out.Trips = append(out.Trips, renderTrip(t))
	}
	return out
}

func renderTrip(t *model.Trip) TripOut {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		loc = time.UTC
	}

	pickup := pickupInstant(t)
	dropoff := t.DropoffTime()

	pickupStr := pickup.In(loc).Format(time.RFC3339)
	dropoffStr := dropoff.In(loc).Format(time.RFC3339)
	t.Booking.ScheduledPickup = &pickupStr
	t.Booking.ScheduledDropoff = &dropoffStr
	t.Booking.ActualPickup = nil
	t.Booking.ActualDropoff = nil
	t.Booking.DriverArrivalAt = nil

	return TripOut{
		FirstPickupTime: pickup.In(loc).Format(twelveHourLayout),
		LastDropoffTime: dropoff.In(loc).Format(twelveHourLayout),
		PickupLat:       t.Booking.PickupLat,
		PickupLon:       t.Booking.PickupLon,
		DropoffLat:      t.Booking.DropoffLat,
		DropoffLon:      t.Booking.DropoffLon,
		DriverArrivalAt: nil,
		ActionStatus:    nil,
		Bookings:        []*model.Booking{t.Booking},
	}
}

// pickupInstant returns the scheduler's adjusted pickup time if one was
// assigned, else the trip's originally requested pickup time.
func pickupInstant(t *model.Trip) time.Time {
	dropoff := t.DropoffTime()
	return dropoff.Add(-time.Duration(t.DurationInSec) * time.Second)
}
