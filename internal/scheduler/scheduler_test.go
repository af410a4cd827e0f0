package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/shiva/paratransit-scheduler/internal/directions"
	"github.com/shiva/paratransit-scheduler/internal/model"
	"github.com/shiva/paratransit-scheduler/internal/tzresolver"
)

// fakeRouter returns a fixed distance/duration for every lookup,
// regardless of from/to/departure, unless a specific leg is stubbed.
type fakeRouter struct {
	defaultDistance int
	defaultDuration int
	legs            map[string]*directions.Result // key: from+"->"+to
	calls           int
}

func (f *fakeRouter) key(from, to string) string { return from + "->" + to }

func (f *fakeRouter) GetDirection(ctx context.Context, from, to string, departureAt time.Time) (*directions.Result, error) {
	f.calls++
	if f.legs != nil {
		if r, ok := f.legs[f.key(from, to)]; ok {
			return r, nil
		}
	}
	return &directions.Result{DistanceMeters: f.defaultDistance, DurationSec: f.defaultDuration}, nil
}

func testMargins() Margins {
	return Margins{
		BeforePickup:     15 * time.Minute,
		AfterPickup:      15 * time.Minute,
		DropoffUnloading: 2 * time.Minute,
	}
}

func booking(id, pickupTime, pickupAddr, dropoffAddr string, tags ...string) *model.Booking {
	return &model.Booking{
		BookingID:       id,
		PassengerID:     id,
		PickupAddress:   pickupAddr,
		DropoffAddress:  dropoffAddr,
		PickupTime:      pickupTime,
		ProgramTimezone: "America/New_York",
		MobilityTags:    tags,
	}
}

const testDate = "July 29, 2026"

// Single ambulatory booking produces one vehicle with one trip.
func TestRun_SingleBooking_OneVehicle(t *testing.T) {
	router := &fakeRouter{defaultDistance: 5000, defaultDuration: 600}
	sched := New(router, tzresolver.DefaultZipTable(), testMargins())

	bookings := []*model.Booking{
		booking("p1", "09:00", "100 Main St", "200 Oak Ave", "ambulatory"),
	}

	plan, err := sched.Run(context.Background(), testDate, bookings)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(plan.Vehicles) != 1 {
		t.Fatalf("want 1 vehicle, got %d", len(plan.Vehicles))
	}
	if len(plan.Vehicles[0].Trips) != 1 {
		t.Fatalf("want 1 trip, got %d", len(plan.Vehicles[0].Trips))
	}
	if bookings[0].TravelDistanceM == nil || *bookings[0].TravelDistanceM != 5000 {
		t.Errorf("booking travel distance not filled in: %+v", bookings[0].TravelDistanceM)
	}
}

// Two back-to-back bookings for different passengers at the same
// location, spaced comfortably apart, fit on a single vehicle.
func TestRun_TwoBackToBackBookings_OneVehicle(t *testing.T) {
	router := &fakeRouter{defaultDistance: 1000, defaultDuration: 300} // 5 min leg
	sched := New(router, tzresolver.DefaultZipTable(), testMargins())

	bookings := []*model.Booking{
		booking("p1", "09:00", "100 Main St", "200 Oak Ave", "ambulatory"),
		booking("p2", "09:30", "200 Oak Ave", "300 Pine Rd", "ambulatory"),
	}

	plan, err := sched.Run(context.Background(), testDate, bookings)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(plan.Vehicles) != 1 {
		t.Fatalf("want 1 vehicle (back-to-back fit), got %d", len(plan.Vehicles))
	}
	if len(plan.Vehicles[0].Trips) != 2 {
		t.Fatalf("want 2 trips on the one vehicle, got %d", len(plan.Vehicles[0].Trips))
	}
}

// Tight timing that leaves no room for the first vehicle to reach the
// second pickup within its lateness tolerance forces a second vehicle.
func TestRun_TightTiming_TwoVehicles(t *testing.T) {
	router := &fakeRouter{defaultDistance: 1000, defaultDuration: 300}
	m := testMargins()
	m.AfterPickup = 5 * time.Minute // tight after-pickup tolerance
	sched := New(router, tzresolver.DefaultZipTable(), m)

	bookings := []*model.Booking{
		// first trip: 09:00 pickup, 5 min ride -> dropoff 09:05, + 2 min
		// unloading -> vehicle free at 09:07.
		booking("p1", "09:00", "100 Main St", "200 Oak Ave", "ambulatory"),
		// second trip needs pickup by 09:00 (latestPickup = pickupTime,
		// non-last trip gets no lateness tolerance beyond AfterPickup
		// only applying to last legs) -- vehicle can't make it in time.
		booking("p2", "09:00", "500 Elm St", "600 Cedar Blvd", "ambulatory"),
	}

	plan, err := sched.Run(context.Background(), testDate, bookings)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(plan.Vehicles) != 2 {
		t.Fatalf("want 2 vehicles under tight timing, got %d", len(plan.Vehicles))
	}
}

// Stretcher and wheelchair bookings are assigned before ambulatory-only
// bookings regardless of input order (mobility priority bucketing).
func TestRun_MobilityPriorityOrdering(t *testing.T) {
	router := &fakeRouter{defaultDistance: 1000, defaultDuration: 300}
	sched := New(router, tzresolver.DefaultZipTable(), testMargins())

	bookings := []*model.Booking{
		booking("amb1", "09:00", "100 Main St", "200 Oak Ave", "ambulatory"),
		booking("gur1", "09:00", "300 Pine Rd", "400 Birch Ln", "stretcher"),
		booking("wc1", "09:00", "500 Elm St", "600 Cedar Blvd", "wheelchair"),
	}

	plan, err := sched.Run(context.Background(), testDate, bookings)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(plan.Vehicles) != 3 {
		t.Fatalf("want 3 vehicles (identical pickup times, distinct locations), got %d", len(plan.Vehicles))
	}
	// Vehicle creation order follows bucket order: stretcher, wheelchair,
	// ambulatory — so vehicle 1 must carry the stretcher trip.
	if plan.Vehicles[0].Trips[0].Passenger != "gur1" {
		t.Errorf("vehicle 1 should carry the stretcher trip first, got passenger %q", plan.Vehicles[0].Trips[0].Passenger)
	}
	if plan.Vehicles[1].Trips[0].Passenger != "wc1" {
		t.Errorf("vehicle 2 should carry the wheelchair trip, got passenger %q", plan.Vehicles[1].Trips[0].Passenger)
	}
	if plan.Vehicles[2].Trips[0].Passenger != "amb1" {
		t.Errorf("vehicle 3 should carry the ambulatory trip, got passenger %q", plan.Vehicles[2].Trips[0].Passenger)
	}
}

// A passenger's final trip of the day is marked as the last leg, the
// trip that earns the AfterPickup lateness tolerance.
func TestRun_LastLegTolerance(t *testing.T) {
	router := &fakeRouter{defaultDistance: 1000, defaultDuration: 600} // 10 min leg
	m := testMargins()
	m.AfterPickup = 20 * time.Minute
	sched := New(router, tzresolver.DefaultZipTable(), m)

	bookings := []*model.Booking{
		// p1's morning trip, first of two for this passenger.
		booking("p1", "09:00", "100 Main St", "200 Oak Ave", "ambulatory"),
		// p1's afternoon trip (the last leg): vehicle busy with the
		// first trip is free at 09:12 (10 min ride + 2 min unloading),
		// far earlier than 15:00, so this doesn't exercise lateness
		// directly; it confirms IsLast is set on the 15:00 trip.
		booking("p1", "15:00", "200 Oak Ave", "700 Maple Dr", "ambulatory"),
	}

	plan, err := sched.Run(context.Background(), testDate, bookings)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var lastTrip *model.Trip
	for _, v := range plan.Vehicles {
		for _, tr := range v.Trips {
			if tr.Passenger == "p1" && tr.IsLast {
				lastTrip = tr
			}
		}
	}
	if lastTrip == nil {
		t.Fatal("expected one trip for p1 marked as the last leg")
	}
	if lastTrip.PickupAddress != "200 Oak Ave" {
		t.Errorf("expected the 15:00 trip to be marked last, got pickup %q", lastTrip.PickupAddress)
	}
}

func TestMarkLastLegs_SinglePassengerTripIsNeverLast(t *testing.T) {
	trips := []*model.Trip{
		{Passenger: "solo", PickupTime: mustTime(t, "09:00")},
	}
	markLastLegs(trips)
	if trips[0].IsLast {
		t.Error("a passenger with a single trip should never be marked last")
	}
}

func TestMarkLastLegs_MarksLatestPickupPerPassenger(t *testing.T) {
	trips := []*model.Trip{
		{Passenger: "p1", PickupTime: mustTime(t, "15:00")},
		{Passenger: "p1", PickupTime: mustTime(t, "09:00")},
		{Passenger: "p2", PickupTime: mustTime(t, "10:00")},
	}
	markLastLegs(trips)

	for _, tr := range trips {
		switch {
		case tr.Passenger == "p1" && tr.PickupTime.Hour() == 15:
			if !tr.IsLast {
				t.Error("p1's 15:00 trip should be marked last")
			}
		case tr.Passenger == "p1" && tr.PickupTime.Hour() == 9:
			if tr.IsLast {
				t.Error("p1's 09:00 trip should not be marked last")
			}
		case tr.Passenger == "p2":
			if tr.IsLast {
				t.Error("p2 has only one trip and should never be marked last")
			}
		}
	}
}

func TestBucketTrips_PartitionsByAssistance(t *testing.T) {
	trips := []*model.Trip{
		{Passenger: "a", Assistance: model.Ambulatory},
		{Passenger: "w", Assistance: model.Wheelchair},
		{Passenger: "s", Assistance: model.Stretcher},
	}
	buckets := bucketTrips(trips)
	if len(buckets[0]) != 1 || buckets[0][0].Passenger != "s" {
		t.Errorf("bucket 0 should hold the stretcher trip, got %+v", buckets[0])
	}
	if len(buckets[1]) != 1 || buckets[1][0].Passenger != "w" {
		t.Errorf("bucket 1 should hold the wheelchair trip, got %+v", buckets[1])
	}
	if len(buckets[2]) != 1 || buckets[2][0].Passenger != "a" {
		t.Errorf("bucket 2 should hold the ambulatory trip, got %+v", buckets[2])
	}
}

func TestFit_EmptyVehicleAlwaysFits(t *testing.T) {
	router := &fakeRouter{defaultDistance: 100, defaultDuration: 60}
	v := model.NewVehicle(1)
	tr := &model.Trip{PickupTime: mustTime(t, "09:00")}

	arrival, err := fit(context.Background(), router, v, tr, testMargins())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if arrival == nil {
		t.Fatal("an empty vehicle should always fit")
	}
}

func TestFit_TooLateReturnsNoFit(t *testing.T) {
	router := &fakeRouter{defaultDistance: 100, defaultDuration: 3600} // 1 hour reposition
	v := model.NewVehicle(1)
	v.AddTrip(&model.Trip{
		PickupTime:     mustTime(t, "09:00"),
		DropoffAddress: "100 Main St",
		DurationInSec:  60,
	})
	next := &model.Trip{PickupTime: mustTime(t, "09:05"), PickupAddress: "999 Far Away Rd"}

	arrival, err := fit(context.Background(), router, v, next, testMargins())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if arrival != nil {
		t.Error("a trip requiring an hour-long reposition for a 5-minute window should not fit")
	}
}

func TestFit_NoRouteOnRepositionSkipsVehicle(t *testing.T) {
	router := &noRouteRouter{}
	v := model.NewVehicle(1)
	v.AddTrip(&model.Trip{
		PickupTime:     mustTime(t, "09:00"),
		DropoffAddress: "100 Main St",
		DurationInSec:  60,
	})
	next := &model.Trip{PickupTime: mustTime(t, "09:30"), PickupAddress: "200 Oak Ave"}

	arrival, err := fit(context.Background(), router, v, next, testMargins())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if arrival != nil {
		t.Error("a nil route on reposition should mean the vehicle does not fit, not an error")
	}
}

type noRouteRouter struct{}

func (noRouteRouter) GetDirection(ctx context.Context, from, to string, departureAt time.Time) (*directions.Result, error) {
	return nil, nil
}

func TestIsBetter_LastLeg_PrefersEarlierWhenAlreadyLate(t *testing.T) {
	tr := &model.Trip{IsLast: true, PickupTime: mustTime(t, "09:00")}
	current := mustTime(t, "09:10") // already past booked pickup
	earlier := mustTime(t, "09:05")
	if !isBetter(earlier, current, tr, 15*time.Minute) {
		t.Error("when already late, an earlier arrival should be preferred")
	}
}

func TestIsBetter_LastLeg_PrefersLaterWhenStillEarly(t *testing.T) {
	tr := &model.Trip{IsLast: true, PickupTime: mustTime(t, "09:00")}
	current := mustTime(t, "08:50") // still before booked pickup
	later := mustTime(t, "08:55")
	if !isBetter(later, current, tr, 15*time.Minute) {
		t.Error("when still early, a later (closer to pickup) arrival should be preferred")
	}
}

func TestIsBetter_Outgoing_PrefersLaterWithinEarlyWindow(t *testing.T) {
	tr := &model.Trip{IsLast: false, PickupTime: mustTime(t, "09:00")}
	beforePickup := 15 * time.Minute
	current := mustTime(t, "08:40") // before the early window (08:45)
	later := mustTime(t, "08:50")
	if !isBetter(later, current, tr, beforePickup) {
		t.Error("when outside the early window, a later arrival closer to it should be preferred")
	}
}

func mustTime(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		t.Fatalf("parse %q: %v", hhmm, err)
	}
	return time.Date(2026, 7, 29, parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
}
