package location

import (
	"context"
	"math/rand"
	"time"

	"courier-driver-agent/internal/domain"
)

// Simulator is a Source that random-walks from a start coordinate. It stands
// in for the device positioning API on development machines and in tests.
type Simulator struct {
	Start    domain.Location
	Tick     time.Duration
	StepDeg  float64
	randSeed int64
}

// NewSimulator creates a simulator emitting every tick.
func NewSimulator(start domain.Location, tick time.Duration) *Simulator {
	if tick <= 0 {
		tick = time.Second
	}
	return &Simulator{Start: start, Tick: tick, StepDeg: 0.0005}
}

// WithSeed fixes the walk for reproducible runs.
func (s *Simulator) WithSeed(seed int64) *Simulator {
	s.randSeed = seed
	return s
}

// Watch emits a random walk until ctx is cancelled.
func (s *Simulator) Watch(ctx context.Context) (<-chan domain.Location, error) {
	seed := s.randSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	out := make(chan domain.Location)
	go func() {
		defer close(out)
		cur := s.Start
		t := time.NewTicker(s.Tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				cur.Latitude += (rng.Float64() - 0.5) * 2 * s.StepDeg
				cur.Longitude += (rng.Float64() - 0.5) * 2 * s.StepDeg
				cur.Heading = rng.Float64() * 360
				select {
				case out <- cur:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
