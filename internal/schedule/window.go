package schedule

import (
	"fmt"

	"github.com/anhoff/huewatchd/internal/astro"
)

// PointKind represents the kind of a window endpoint
type PointKind int

const (
	PointClock PointKind = iota
	PointSunrise
	PointSunset
)

const minutesPerDay = 24 * 60

// TimePoint is one endpoint of a time window: either a fixed clock time or
// a solar event resolved per day.
type TimePoint struct {
	Kind   PointKind
	Hour   int // for PointClock (0-23)
	Minute int // for PointClock (0-59)
}

// String returns the endpoint in the mini-language notation.
func (p TimePoint) String() string {
	switch p.Kind {
	case PointSunrise:
		return "sunrise"
	case PointSunset:
		return "sunset"
	default:
		return fmt.Sprintf("%d:%02dh", p.Hour, p.Minute)
	}
}

// Resolve converts the endpoint to minutes since local midnight.
// Solar endpoints resolve through the day's sun times; ok is false when the
// required solar event is unavailable (polar day/night).
func (p TimePoint) Resolve(sun *astro.Times) (int, bool) {
	switch p.Kind {
	case PointSunrise:
		if sun == nil || sun.Sunrise.IsZero() {
			return 0, false
		}
		return sun.Sunrise.Hour()*60 + sun.Sunrise.Minute(), true
	case PointSunset:
		if sun == nil || sun.Sunset.IsZero() {
			return 0, false
		}
		return sun.Sunset.Hour()*60 + sun.Sunset.Minute(), true
	default:
		return p.Hour*60 + p.Minute, true
	}
}

// Window is a start/end pair during which a scene is eligible for
// activation. A window whose start is later than its end wraps past
// midnight.
type Window struct {
	Start TimePoint
	End   TimePoint
}

// String returns the window in the mini-language notation.
func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// Active reports whether the window contains nowMin (minutes since local
// midnight). The end is exclusive; a degenerate window (start == end) is
// never active. Windows with unresolvable solar endpoints are inactive.
func (w Window) Active(nowMin int, sun *astro.Times) bool {
	s, ok := w.Start.Resolve(sun)
	if !ok {
		return false
	}
	e, ok := w.End.Resolve(sun)
	if !ok {
		return false
	}

	switch {
	case s == e:
		return false
	case s < e:
		return nowMin >= s && nowMin < e
	default: // wraps past midnight
		return nowMin >= s || nowMin < e
	}
}

// SinceStart returns how many minutes ago the window's start occurred,
// measured backwards from nowMin along the wrapped 1440-minute day.
// ok is false when the start cannot be resolved.
func (w Window) SinceStart(nowMin int, sun *astro.Times) (int, bool) {
	s, ok := w.Start.Resolve(sun)
	if !ok {
		return 0, false
	}
	return ((nowMin-s)%minutesPerDay + minutesPerDay) % minutesPerDay, true
}
