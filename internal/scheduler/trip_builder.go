package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/shiva/paratransit-scheduler/internal/directions"
	"github.com/shiva/paratransit-scheduler/internal/model"
	"github.com/shiva/paratransit-scheduler/internal/tzresolver"
)

// Router is the subset of the directions client the scheduler depends on,
// narrowed to an interface so tests can fake it without an HTTP server.
type Router interface {
	GetDirection(ctx context.Context, from, to string, departureAt time.Time) (*directions.Result, error)
}

// buildTrips resolves each booking's pickup instant and route into a Trip,
// in input order, then marks last legs across the resulting set.
func buildTrips(ctx context.Context, router Router, zipTable tzresolver.ZipTimezoneTable, date string, bookings []*model.Booking) ([]*model.Trip, error) {
	trips := make([]*model.Trip, 0, len(bookings))

	for _, b := range bookings {
		tz, ok := tzresolver.TimezoneFromAddress(zipTable, b.PickupAddress)
		if !ok {
			tz = b.ProgramTimezone
		}

		pickupInstant, err := tzresolver.ResolveInstant(date, b.PickupTime, tz)
		if err != nil {
			switch err {
			case tzresolver.ErrInvalidZone:
				return nil, ErrInvalidZone
			default:
				return nil, ErrInvalidDate
			}
		}

		route, err := router.GetDirection(ctx, b.PickupAddress, b.DropoffAddress, pickupInstant)
		if err != nil {
			return nil, err
		}
		if route == nil {
			return nil, ErrNoRoute
		}

		trip := &model.Trip{
			Booking:         b,
			PickupAddress:   b.PickupAddress,
			DropoffAddress:  b.DropoffAddress,
			Passenger:       b.PassengerKey(),
			Assistance:      model.ParseAssistance(b.MobilityTags),
			Timezone:        tz,
			PickupTime:      pickupInstant,
			DistanceInMeter: route.DistanceMeters,
			DurationInSec:   route.DurationSec,
		}

		distance := route.DistanceMeters
		duration := route.DurationSec
		b.TravelDistanceM = &distance
		b.TravelTimeSec = &duration

		trips = append(trips, trip)
	}

	markLastLegs(trips)
	return trips, nil
}

// markLastLegs sorts trips by pickup time, groups by passenger, and flags
// the trip with the largest pickup time for any passenger with two or
// more trips in the day.
func markLastLegs(trips []*model.Trip) {
	sort.SliceStable(trips, func(i, j int) bool {
		return trips[i].PickupTime.Before(trips[j].PickupTime)
	})

	byPassenger := make(map[string][]*model.Trip)
	for _, t := range trips {
		byPassenger[t.Passenger] = append(byPassenger[t.Passenger], t)
	}
	for _, group := range byPassenger {
		if len(group) < 2 {
			continue
		}
		last := group[0]
		for _, t := range group[1:] {
			if t.PickupTime.After(last.PickupTime) {
				last = t
			}
		}
		last.IsLast = true
	}
}

// bucketTrips groups trips into the three mobility-priority buckets,
// preserving the pickup-time order established by markLastLegs within
// each bucket (stable partition).
func bucketTrips(trips []*model.Trip) [3][]*model.Trip {
	var buckets [3][]*model.Trip
	for _, t := range trips {
		bucket := t.Assistance.Bucket()
		buckets[bucket] = append(buckets[bucket], t)
	}
	return buckets
}
