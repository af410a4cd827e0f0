package model

import "time"

// Trip is a scheduler-internal object built from a Booking, carrying
// absolute instants and routing results. It is immutable after
// construction except for the scheduling outputs (IsLast,
// AdjustedPickupTime, EarliestArrivalTime).
type Trip struct {
	Booking *Booking

	PickupAddress  string
	DropoffAddress string
	Passenger      string
	Assistance     Assistance
	Timezone       string

	PickupTime time.Time

	DistanceInMeter int
	DurationInSec   int

	IsLast bool

	// Scheduling outputs, filled by the scheduler.
	AdjustedPickupTime  time.Time
	EarliestArrivalTime time.Time
	hasAdjustedPickup   bool
	hasEarliestArrival  bool
}

// SetAdjustedPickupTime records the scheduler's chosen pickup time.
func (t *Trip) SetAdjustedPickupTime(v time.Time) {
	t.AdjustedPickupTime = v
	t.hasAdjustedPickup = true
}

// SetEarliestArrivalTime records the vehicle's estimated arrival for this trip.
func (t *Trip) SetEarliestArrivalTime(v time.Time) {
	t.EarliestArrivalTime = v
	t.hasEarliestArrival = true
}

// effectivePickup returns AdjustedPickupTime once the scheduler has set
// one, else falls back to the originally requested PickupTime.
func (t *Trip) effectivePickup() time.Time {
	if t.hasAdjustedPickup {
		return t.AdjustedPickupTime
	}
	return t.PickupTime
}

// LatestPickup returns the latest instant a driver may pick this trip up.
// Last legs earn the afterPickup lateness tolerance; outgoing trips must
// be picked up at or before the booked time.
func (t *Trip) LatestPickup(afterPickup time.Duration) time.Time {
	if t.IsLast {
		return t.PickupTime.Add(afterPickup)
	}
	return t.PickupTime
}

// EarliestPickup returns the earliest instant a driver may arrive.
// Last legs have no early window; outgoing trips get the beforePickup
// early-arrival cushion.
func (t *Trip) EarliestPickup(beforePickup time.Duration) time.Time {
	if t.IsLast {
		return t.PickupTime
	}
	return t.PickupTime.Add(-beforePickup)
}

// DropoffTime returns the instant the passenger is dropped off, based on
// the effective pickup time and the routed travel duration.
func (t *Trip) DropoffTime() time.Time {
	return t.effectivePickup().Add(time.Duration(t.DurationInSec) * time.Second)
}

// FinishTime returns the instant the vehicle is free for its next trip:
// drop-off plus unloading time.
func (t *Trip) FinishTime(dropoffUnloading time.Duration) time.Time {
	return t.DropoffTime().Add(dropoffUnloading)
}
