package location

import (
	"math"
	"time"

	"courier-driver-agent/internal/backoff"
	"courier-driver-agent/internal/domain"
)

// Filter coalesces raw position samples: a sample passes when the courier
// moved at least MinDistanceMeters OR MinInterval elapsed since the last
// emitted sample, whichever trips first. Bounds battery and network cost.
type Filter struct {
	MinDistanceMeters float64
	MinInterval       time.Duration

	clock  backoff.Clock
	last   *domain.Location
	lastAt time.Time
}

// NewFilter creates a coalescing filter. clock may be nil for real time.
func NewFilter(minDistanceMeters float64, minInterval time.Duration, clock backoff.Clock) *Filter {
	if clock == nil {
		clock = backoff.RealClock{}
	}
	return &Filter{
		MinDistanceMeters: minDistanceMeters,
		MinInterval:       minInterval,
		clock:             clock,
	}
}

// Pass reports whether the sample should be emitted, updating the filter's
// reference point when it does. The first sample always passes.
func (f *Filter) Pass(loc domain.Location) bool {
	now := f.clock.Now()
	if f.last == nil {
		f.remember(loc, now)
		return true
	}
	if f.MinInterval > 0 && now.Sub(f.lastAt) >= f.MinInterval {
		f.remember(loc, now)
		return true
	}
	if f.MinDistanceMeters > 0 && haversineMeters(*f.last, loc) >= f.MinDistanceMeters {
		f.remember(loc, now)
		return true
	}
	return false
}

// Reset forgets the reference point; the next sample passes unconditionally.
func (f *Filter) Reset() {
	f.last = nil
	f.lastAt = time.Time{}
}

func (f *Filter) remember(loc domain.Location, at time.Time) {
	cp := loc
	f.last = &cp
	f.lastAt = at
}

const earthRadiusMeters = 6371000

// haversineMeters returns the great-circle distance between two samples.
func haversineMeters(a, b domain.Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
