package backoff

import "time"

// Policy computes reconnect delays: Base doubled per attempt, capped at Max.
// Attempt numbering starts at 0; resetting to attempt 0 is the caller's job
// after a successful open.
type Policy struct {
	Base time.Duration
	Max  time.Duration
}

// Default matches the dispatch backend's expectations: 1s, 2s, 4s, ... 30s cap.
func Default() Policy {
	return Policy{Base: time.Second, Max: 30 * time.Second}
}

// Delay returns the wait before reconnect attempt n.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := p.Base
	if base <= 0 {
		base = time.Second
	}
	max := p.Max
	if max <= 0 {
		max = 30 * time.Second
	}
	// Shifting past the cap overflows; bail out early instead.
	d := base
	for i := 0; i < attempt; i++ {
		d <<= 1
		if d >= max || d <= 0 {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
