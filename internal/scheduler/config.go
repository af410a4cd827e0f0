// Package scheduler implements the greedy, multi-pass, priority-ordered
// assignment algorithm: trip construction, last-leg marking,
// mobility-priority bucketing, and vehicle selection via a
// fit/arrival-time contract.
package scheduler

import (
	"errors"
	"time"
)

// ErrNoRoute is fatal to trip construction: the directions service
// returned no route for a booking's pickup/dropoff pair.
var ErrNoRoute = errors.New("scheduler: no route between pickup and dropoff")

// ErrInvalidDate and ErrInvalidZone propagate from the time/zone resolver
// and are fatal to the whole request.
var (
	ErrInvalidDate = errors.New("scheduler: invalid date")
	ErrInvalidZone = errors.New("scheduler: invalid timezone")
)

// Margins holds the three configurable time windows, always in time.Duration
// form by the time they reach the scheduler — env vars are milliseconds on
// input and converted once at config load, so nothing downstream deals in
// raw milliseconds.
type Margins struct {
	BeforePickup     time.Duration
	AfterPickup      time.Duration
	DropoffUnloading time.Duration
}
