package scheduler

import (
	"context"
	"time"

	"github.com/shiva/paratransit-scheduler/internal/model"
)

// fit reports whether vehicle v can take on trip t, and if so, at what
// estimated arrival time. A nil, nil return means "does not fit"; a
// non-nil time means it fits with that arrival estimate.
func fit(ctx context.Context, router Router, v *model.Vehicle, t *model.Trip, m Margins) (*time.Time, error) {
	last := v.LastTrip()
	if last == nil {
		// An empty vehicle always fits; callers only call fit on
		// non-empty vehicles, but guard anyway.
		arrival := t.EarliestPickup(m.BeforePickup)
		return &arrival, nil
	}

	finish := last.FinishTime(m.DropoffUnloading)
	latest := t.LatestPickup(m.AfterPickup)
	if finish.After(latest) {
		return nil, nil
	}

	if last.DropoffAddress == t.PickupAddress {
		return &finish, nil
	}

	route, err := router.GetDirection(ctx, last.DropoffAddress, t.PickupAddress, finish)
	if err != nil {
		return nil, err
	}
	if route == nil {
		// No route for the reposition leg: skip this vehicle rather than
		// failing the whole request, distinct from the fatal NoRoute at
		// initial trip construction.
		return nil, nil
	}

	arrival := finish.Add(time.Duration(route.DurationSec) * time.Second)
	if arrival.After(latest) {
		return nil, nil
	}
	return &arrival, nil
}

// isBetter implements the dual arrival-preference policy. For a last leg,
// a later arrival wins while the current best is at or before the booked
// pickup time, and an earlier one wins once it is past it. For an outgoing
// trip, the same rule applies around the start of the early window
// (pickup time minus beforePickup).
func isBetter(incoming, current time.Time, t *model.Trip, beforePickup time.Duration) bool {
	if t.IsLast {
		if current.After(t.PickupTime) {
			return incoming.Before(current)
		}
		return incoming.After(current)
	}

	early := t.PickupTime.Add(-beforePickup)
	if current.After(early) {
		return incoming.Before(current)
	}
	return incoming.After(current)
}

// assignTrip scans the plan's vehicles in creation order looking for the
// best fit for t, appending to the winner or creating a new vehicle when
// none fits.
func assignTrip(ctx context.Context, router Router, plan *model.Plan, t *model.Trip, m Margins) error {
	var best *model.Vehicle
	var bestArrival time.Time

	for _, v := range plan.Vehicles {
		if v.LastTrip() == nil {
			continue
		}
		arrival, err := fit(ctx, router, v, t, m)
		if err != nil {
			return err
		}
		if arrival == nil {
			continue
		}
		if best == nil {
			best, bestArrival = v, *arrival
			continue
		}
		if isBetter(*arrival, bestArrival, t, m.BeforePickup) {
			best, bestArrival = v, *arrival
		}
	}

	if best == nil {
		v := model.NewVehicle(plan.NextIndex())
		v.AddTrip(t)
		t.SetEarliestArrivalTime(t.EarliestPickup(m.BeforePickup))
		plan.AddVehicle(v)
		return nil
	}

	best.AddTrip(t)
	t.SetEarliestArrivalTime(bestArrival)

	adjusted := bestArrival
	if adjusted.Before(t.PickupTime) {
		adjusted = t.PickupTime
	}
	t.SetAdjustedPickupTime(adjusted)
	return nil
}
