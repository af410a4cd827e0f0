// Package tzresolver normalizes a (date, time-of-day, address) triple into
// an absolute instant in the correct time zone.
//
// The zip-code→time-zone lookup table itself is an external collaborator:
// a static, read-only mapping maintained outside this service.
// ZipTimezoneTable is the interface this package consumes;
// DefaultZipTable is a minimal, in-memory stand-in good enough to resolve
// common US zip ranges out of the box.
package tzresolver

import (
	"errors"
	"regexp"
	"time"
)

// ErrInvalidDate is returned when the date/time-of-day cannot be parsed,
// or when the requested civil time does not exist (spring-forward gap).
var ErrInvalidDate = errors.New("tzresolver: invalid date")

// ErrInvalidZone is returned when the time zone id cannot be loaded.
var ErrInvalidZone = errors.New("tzresolver: invalid zone")

// ZipTimezoneTable resolves a 5-digit zip code to an IANA time zone id.
type ZipTimezoneTable interface {
	Lookup(zip string) (tzID string, ok bool)
}

// zipRange is a closed [Start, End] interval of 5-digit zip codes
// mapped to a single IANA time zone id.
type zipRange struct {
	Start, End int
	TzID       string
}

// staticZipTable is the in-memory default ZipTimezoneTable implementation.
// Ranges are checked in order; the first match wins, matching the
// specification's "first matching interval" rule.
type staticZipTable struct {
	ranges []zipRange
}

// DefaultZipTable returns a minimal built-in zip→timezone table covering
// the contiguous US's broad zone bands. Real deployments inject their own
// ZipTimezoneTable sourced from the external mapping service.
func DefaultZipTable() ZipTimezoneTable {
	return &staticZipTable{ranges: []zipRange{
		{10000, 19699, "America/New_York"},
		{19700, 19999, "America/New_York"},
		{20000, 33999, "America/New_York"},
		{34000, 34999, "America/New_York"},
		{35000, 42999, "America/Chicago"},
		{43000, 45999, "America/New_York"},
		{46000, 58999, "America/Chicago"},
		{59000, 59999, "America/Denver"},
		{60000, 69999, "America/Chicago"},
		{70000, 79999, "America/Chicago"},
		{80000, 83199, "America/Denver"},
		{83200, 83899, "America/Denver"},
		{84000, 84999, "America/Denver"},
		{85000, 86599, "America/Phoenix"},
		{87000, 88499, "America/Denver"},
		{88900, 89899, "America/Denver"},
		{90000, 96199, "America/Los_Angeles"},
		{96700, 96899, "Pacific/Honolulu"},
		{97000, 97999, "America/Los_Angeles"},
		{98000, 99499, "America/Los_Angeles"},
		{99500, 99999, "America/Anchorage"},
	}}
}

func (t *staticZipTable) Lookup(zip string) (string, bool) {
	n := 0
	for _, c := range zip {
		if c < '0' || c > '9' {
			return "", false
		}
		n = n*10 + int(c-'0')
	}
	for _, r := range t.ranges {
		if n >= r.Start && n <= r.End {
			return r.TzID, true
		}
	}
	return "", false
}

var zipPattern = regexp.MustCompile(`\d{5}`)

// TimezoneFromAddress extracts the last 5-digit run in address and looks
// it up in the table. Returns ("", false) if no zip is found or no
// interval matches.
func TimezoneFromAddress(table ZipTimezoneTable, address string) (string, bool) {
	matches := zipPattern.FindAllString(address, -1)
	if len(matches) == 0 {
		return "", false
	}
	return table.Lookup(matches[len(matches)-1])
}

const dateLayout = "January 2, 2006"
const timeLayout = "15:04"

// ResolveInstant parses dateString ("Month Day, Year") and timeOfDay
// ("HH:MM"), combines them into a naive local civil time, and converts
// from the given zone into an absolute instant.
//
// Ambiguity policy: during fall-back the first occurrence of the
// ambiguous hour is chosen (Go's civil-time construction picks the offset
// in effect immediately before the transition, which is the first
// occurrence of the repeated hour). During spring-forward, nonexistent
// civil times are rejected with ErrInvalidDate.
func ResolveInstant(dateString, timeOfDay, timezone string) (time.Time, error) {
	d, err := time.Parse(dateLayout, dateString)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	tod, err := time.Parse(timeLayout, timeOfDay)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, ErrInvalidZone
	}

	t := time.Date(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), 0, 0, loc)

	// A nonexistent civil time (spring-forward gap) gets normalized
	// forward by time.Date, shifting the wall clock fields away from
	// what was requested. Detect that and reject it.
	if t.Hour() != tod.Hour() || t.Minute() != tod.Minute() || t.Day() != d.Day() {
		return time.Time{}, ErrInvalidDate
	}

	return t, nil
}
