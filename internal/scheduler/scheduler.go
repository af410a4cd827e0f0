package scheduler

import (
	"context"

	"github.com/shiva/paratransit-scheduler/internal/model"
	"github.com/shiva/paratransit-scheduler/internal/tzresolver"
)

// Scheduler runs the greedy assignment algorithm for one request. Each
// invocation constructs its own Plan and operates only on the trips it
// builds — no mutable state is shared across concurrent invocations,
// since each synchronous call and each worker owns an independent
// Scheduler.
type Scheduler struct {
	Router   Router
	ZipTable tzresolver.ZipTimezoneTable
	Margins  Margins
}

// New builds a Scheduler. zipTable may be tzresolver.DefaultZipTable() if
// the caller has no better zip→zone source configured.
func New(router Router, zipTable tzresolver.ZipTimezoneTable, margins Margins) *Scheduler {
	return &Scheduler{Router: router, ZipTable: zipTable, Margins: margins}
}

// Run builds trips for every booking, marks last legs, buckets by
// mobility priority, and assigns each bucket's trips to vehicles in
// order. Bookings are mutated in place with travel_time, travel_distance,
// and (via the returned plan) scheduled pickup/dropoff times.
func (s *Scheduler) Run(ctx context.Context, date string, bookings []*model.Booking) (*model.Plan, error) {
	trips, err := buildTrips(ctx, s.Router, s.ZipTable, date, bookings)
	if err != nil {
		return nil, err
	}

	plan := &model.Plan{}
	buckets := bucketTrips(trips)
	for _, bucket := range buckets {
		for _, t := range bucket {
			if err := assignTrip(ctx, s.Router, plan, t, s.Margins); err != nil {
				return nil, err
			}
		}
	}

	return plan, nil
}
