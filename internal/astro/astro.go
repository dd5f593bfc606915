package astro

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrNoSolarEvent is returned when the sun does not rise or set on the
// requested date (polar day or polar night).
var ErrNoSolarEvent = errors.New("no sunrise/sunset on this date")

// Times holds the solar events for one calendar day, in the calculator's
// timezone.
type Times struct {
	Sunrise time.Time
	Sunset  time.Time
}

// Calculator computes sunrise and sunset for a fixed location.
// Results are cached per calendar date.
type Calculator struct {
	lat float64
	lon float64
	tz  *time.Location

	mu    sync.Mutex
	cache map[string]Times
}

// NewCalculator creates a calculator for the given coordinates and timezone.
func NewCalculator(lat, lon float64, tz *time.Location) *Calculator {
	if tz == nil {
		tz = time.UTC
	}
	return &Calculator{
		lat:   lat,
		lon:   lon,
		tz:    tz,
		cache: make(map[string]Times),
	}
}

// Timezone returns the calculator's timezone.
func (c *Calculator) Timezone() *time.Location {
	return c.tz
}

// Times returns sunrise and sunset for the calendar date of t in the
// calculator's timezone. Returns ErrNoSolarEvent for polar day/night.
func (c *Calculator) Times(t time.Time) (Times, error) {
	date := t.In(c.tz)
	key := date.Format("2006-01-02")

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	times, err := c.calculate(date)
	if err != nil {
		return Times{}, fmt.Errorf("solar events for %s: %w", key, err)
	}

	c.mu.Lock()
	c.cache[key] = times
	c.mu.Unlock()

	return times, nil
}

// calculate computes sunrise/sunset using the NOAA declination/hour-angle
// method.
func (c *Calculator) calculate(date time.Time) (Times, error) {
	// Julian day - add 0.5 because the sunrise equation expects JD at noon,
	// not midnight
	jd := toJulianDay(date) + 0.5

	sunrise, err := sunTime(jd, c.lat, c.lon, true)
	if err != nil {
		return Times{}, err
	}
	sunset, err := sunTime(jd, c.lat, c.lon, false)
	if err != nil {
		return Times{}, err
	}

	return Times{
		Sunrise: sunrise.In(c.tz),
		Sunset:  sunset.In(c.tz),
	}, nil
}

// toJulianDay converts a date to Julian day number
func toJulianDay(t time.Time) float64 {
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())

	if m <= 2 {
		y--
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
}

// sunTime calculates the sunrise (rising=true) or sunset instant for the
// given Julian day. The -0.833 degree angle accounts for atmospheric
// refraction and the solar disc radius.
func sunTime(jd, lat, lon float64, rising bool) (time.Time, error) {
	const angle = -0.833

	n := jd - 2451545.0 + 0.0008
	jStar := n - lon/360.0

	// Solar mean anomaly
	m := math.Mod(357.5291+0.98560028*jStar, 360.0)
	mRad := m * math.Pi / 180.0

	// Equation of center
	eoc := 1.9148*math.Sin(mRad) + 0.02*math.Sin(2*mRad) + 0.0003*math.Sin(3*mRad)

	// Ecliptic longitude
	lambda := math.Mod(m+eoc+180+102.9372, 360.0)
	lambdaRad := lambda * math.Pi / 180.0

	// Solar transit
	jTransit := 2451545.0 + jStar + 0.0053*math.Sin(mRad) - 0.0069*math.Sin(2*lambdaRad)

	// Declination of the sun
	dec := math.Asin(math.Sin(lambdaRad) * math.Sin(23.44*math.Pi/180.0))

	// Hour angle
	latRad := lat * math.Pi / 180.0
	angleRad := angle * math.Pi / 180.0

	cosOmega := (math.Sin(angleRad) - math.Sin(latRad)*math.Sin(dec)) / (math.Cos(latRad) * math.Cos(dec))

	// The sun never crosses the horizon at this latitude on this date
	if cosOmega > 1 || cosOmega < -1 {
		return time.Time{}, ErrNoSolarEvent
	}

	omega := math.Acos(cosOmega) * 180.0 / math.Pi

	var jTime float64
	if rising {
		jTime = jTransit - omega/360.0
	} else {
		jTime = jTransit + omega/360.0
	}

	return julianToTime(jTime), nil
}

// julianToTime converts a Julian day to a UTC instant
func julianToTime(jd float64) time.Time {
	unixTime := (jd - 2440587.5) * 86400.0
	sec := math.Floor(unixTime)
	return time.Unix(int64(sec), int64((unixTime-sec)*1e9)).UTC()
}
