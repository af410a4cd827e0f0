package handler

import (
	"strings"
	"testing"
	"time"

	"github.com/shiva/paratransit-scheduler/internal/model"
)

func newTrip(pickupHHMM string, durationSec int) *model.Trip {
	loc, _ := time.LoadLocation("America/New_York")
	pickup := time.Date(2026, 7, 29, 0, 0, 0, 0, loc)
	parsed, _ := time.Parse("15:04", pickupHHMM)
	pickup = pickup.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute)

	b := &model.Booking{BookingID: "b1", PickupLat: 1.5, PickupLon: 2.5, DropoffLat: 3.5, DropoffLon: 4.5}
	return &model.Trip{
		Booking:       b,
		Timezone:      "America/New_York",
		PickupTime:    pickup,
		DurationInSec: durationSec,
	}
}

func TestRenderTrip_FormatsTwelveHourPickupAndDropoff(t *testing.T) {
	tr := newTrip("09:00", 30*60) // 30 minute ride

	out := renderTrip(tr)

	if out.FirstPickupTime != "9:00 AM" {
		t.Errorf("FirstPickupTime = %q, want 9:00 AM", out.FirstPickupTime)
	}
	if out.LastDropoffTime != "9:30 AM" {
		t.Errorf("LastDropoffTime = %q, want 9:30 AM", out.LastDropoffTime)
	}
}

func TestRenderTrip_WritesScheduledTimesBackOntoBooking(t *testing.T) {
	tr := newTrip("14:00", 15*60)

	renderTrip(tr)

	if tr.Booking.ScheduledPickup == nil || !strings.Contains(*tr.Booking.ScheduledPickup, "T") {
		t.Fatalf("ScheduledPickup not written in RFC3339 form: %+v", tr.Booking.ScheduledPickup)
	}
	if tr.Booking.ScheduledDropoff == nil {
		t.Fatal("ScheduledDropoff should be set")
	}
	if tr.Booking.ActualPickup != nil || tr.Booking.ActualDropoff != nil || tr.Booking.DriverArrivalAt != nil {
		t.Error("actual/driver-arrival fields should be nulled by rendering")
	}
}

func TestRenderTrip_AdjustedPickupOverridesOriginal(t *testing.T) {
	tr := newTrip("09:00", 10*60)
	adjusted := tr.PickupTime.Add(20 * time.Minute)
	tr.SetAdjustedPickupTime(adjusted)

	out := renderTrip(tr)

	// effective pickup becomes 09:20, +10 min ride = 09:30 dropoff.
	if out.FirstPickupTime != "9:20 AM" {
		t.Errorf("FirstPickupTime = %q, want 9:20 AM (adjusted)", out.FirstPickupTime)
	}
	if out.LastDropoffTime != "9:30 AM" {
		t.Errorf("LastDropoffTime = %q, want 9:30 AM", out.LastDropoffTime)
	}
}

func TestRenderVehicle_NameAndTripCount(t *testing.T) {
	v := model.NewVehicle(3)
	v.AddTrip(newTrip("09:00", 600))
	v.AddTrip(newTrip("10:00", 600))

	out := renderVehicle(v)

	if out.ShuttleName != "3AMBI" {
		t.Errorf("ShuttleName = %q, want 3AMBI", out.ShuttleName)
	}
	if len(out.Trips) != 2 {
		t.Fatalf("want 2 rendered trips, got %d", len(out.Trips))
	}
}

func TestSuccessEnvelope_StatusAndErrorCode(t *testing.T) {
	plan := &model.Plan{}
	env := successEnvelope(plan)
	if env.Result.Status != "success" || env.Result.ErrorCode != 0 {
		t.Errorf("unexpected success envelope: %+v", env.Result)
	}
}

func TestBucketsUsed_CountsDistinctBuckets(t *testing.T) {
	v1 := model.NewVehicle(1)
	v1.AddTrip(&model.Trip{Assistance: model.Ambulatory})
	v2 := model.NewVehicle(2)
	v2.AddTrip(&model.Trip{Assistance: model.Wheelchair})
	plan := &model.Plan{Vehicles: []*model.Vehicle{v1, v2}}

	if got := bucketsUsed(plan); got != 2 {
		t.Errorf("bucketsUsed = %d, want 2", got)
	}
}

func TestErrorEnvelope_CarriesMessage(t *testing.T) {
	env := errorEnvelope("boom")
	if env.Result.Status != "error" || env.Result.Message != "boom" || env.Result.ErrorCode == 0 {
		t.Errorf("unexpected error envelope: %+v", env.Result)
	}
	if env.Result.Data.VehicleTripList == nil {
		t.Error("error envelope should still carry a non-nil (empty) vehicle list")
	}
}
