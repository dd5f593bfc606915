package astro

import (
	"errors"
	"testing"
	"time"
)

func TestTimes_Equator(t *testing.T) {
	c := NewCalculator(0, 0, time.UTC)
	date := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC) // equinox

	times, err := c.Times(date)
	if err != nil {
		t.Fatalf("Times() error: %v", err)
	}

	// At the equator on the equinox the sun rises and sets close to
	// 06:00/18:00 UTC.
	assertWithin(t, "sunrise", times.Sunrise, time.Date(2026, 3, 20, 6, 0, 0, 0, time.UTC), 40*time.Minute)
	assertWithin(t, "sunset", times.Sunset, time.Date(2026, 3, 20, 18, 0, 0, 0, time.UTC), 40*time.Minute)

	if !times.Sunrise.Before(times.Sunset) {
		t.Error("sunrise should precede sunset")
	}
}

func TestTimes_NonUTCTimezone(t *testing.T) {
	cest := time.FixedZone("CEST", 2*3600)
	c := NewCalculator(52.52, 13.405, cest) // Berlin
	date := time.Date(2026, 6, 21, 12, 0, 0, 0, cest)

	times, err := c.Times(date)
	if err != nil {
		t.Fatalf("Times() error: %v", err)
	}

	if times.Sunrise.Location() != cest {
		t.Error("sunrise should be reported in the configured timezone")
	}

	// Midsummer in Berlin: sunrise around 04:43, sunset around 21:33 local.
	assertWithin(t, "sunrise", times.Sunrise, time.Date(2026, 6, 21, 4, 43, 0, 0, cest), 20*time.Minute)
	assertWithin(t, "sunset", times.Sunset, time.Date(2026, 6, 21, 21, 33, 0, 0, cest), 20*time.Minute)
}

func TestTimes_PolarDayAndNight(t *testing.T) {
	c := NewCalculator(69.68, 18.94, time.UTC) // Tromsø

	// Midnight sun: no sunset in June
	if _, err := c.Times(time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)); !errors.Is(err, ErrNoSolarEvent) {
		t.Errorf("polar day: err = %v, want ErrNoSolarEvent", err)
	}

	// Polar night: no sunrise in December
	if _, err := c.Times(time.Date(2026, 12, 21, 12, 0, 0, 0, time.UTC)); !errors.Is(err, ErrNoSolarEvent) {
		t.Errorf("polar night: err = %v, want ErrNoSolarEvent", err)
	}

	// Equinox is fine even at high latitude
	if _, err := c.Times(time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Errorf("equinox at high latitude: %v", err)
	}
}

func TestTimes_CachedPerDate(t *testing.T) {
	c := NewCalculator(48.14, 11.58, time.UTC)

	morning := time.Date(2026, 8, 28, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)

	first, err := c.Times(morning)
	if err != nil {
		t.Fatalf("Times() error: %v", err)
	}
	second, err := c.Times(evening)
	if err != nil {
		t.Fatalf("Times() error: %v", err)
	}

	if !first.Sunrise.Equal(second.Sunrise) || !first.Sunset.Equal(second.Sunset) {
		t.Error("same calendar date should yield identical cached times")
	}
}

func assertWithin(t *testing.T, name string, got, want time.Time, tolerance time.Duration) {
	t.Helper()
	diff := got.Sub(want)
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		t.Errorf("%s = %v, want %v ± %v", name, got, want, tolerance)
	}
}
