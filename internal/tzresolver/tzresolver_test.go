package tzresolver

import "testing"

func TestTimezoneFromAddress_Found(t *testing.T) {
	table := DefaultZipTable()
	tz, ok := TimezoneFromAddress(table, "123 Main St, New York, NY 10001")
	if !ok {
		t.Fatalf("expected a match")
	}
	if tz != "America/New_York" {
		t.Errorf("tz = %q, want America/New_York", tz)
	}
}

func TestTimezoneFromAddress_NoZip(t *testing.T) {
	table := DefaultZipTable()
	_, ok := TimezoneFromAddress(table, "No zip here")
	if ok {
		t.Errorf("expected no match")
	}
}

func TestTimezoneFromAddress_LastZipWins(t *testing.T) {
	table := DefaultZipTable()
	// Two 5-digit runs; the last one should be used (e.g. a +4 extension
	// preceding a different 5-digit address elsewhere in the string).
	tz, ok := TimezoneFromAddress(table, "98101 then later 90001")
	if !ok {
		t.Fatalf("expected a match")
	}
	if tz != "America/Los_Angeles" {
		t.Errorf("tz = %q, want America/Los_Angeles", tz)
	}
}

func TestResolveInstant_Basic(t *testing.T) {
	instant, err := ResolveInstant("January 15, 2025", "09:00", "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if instant.Hour() != 9 || instant.Minute() != 0 {
		t.Errorf("instant = %v, want 09:00 local", instant)
	}
}

func TestResolveInstant_InvalidDate(t *testing.T) {
	_, err := ResolveInstant("Not A Date", "09:00", "America/New_York")
	if err != ErrInvalidDate {
		t.Errorf("err = %v, want ErrInvalidDate", err)
	}
}

func TestResolveInstant_InvalidZone(t *testing.T) {
	_, err := ResolveInstant("January 15, 2025", "09:00", "Not/AZone")
	if err != ErrInvalidZone {
		t.Errorf("err = %v, want ErrInvalidZone", err)
	}
}

func TestResolveInstant_SpringForwardGap(t *testing.T) {
	// 2025-03-09 is the US spring-forward date; 2:30 AM does not exist.
	_, err := ResolveInstant("March 9, 2025", "02:30", "America/New_York")
	if err != ErrInvalidDate {
		t.Errorf("err = %v, want ErrInvalidDate for nonexistent civil time", err)
	}
}

func TestResolveInstant_BeforeSpringForward(t *testing.T) {
	// 1:59 AM on the transition day still exists (pre-transition).
	instant, err := ResolveInstant("March 9, 2025", "01:59", "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if instant.Hour() != 1 || instant.Minute() != 59 {
		t.Errorf("instant = %v, want 01:59 local", instant)
	}
}
