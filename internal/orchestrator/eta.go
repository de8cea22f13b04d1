package orchestrator

import "time"

// throughputSmoother computes an exponentially smoothed entries/second
// rate from completed batches, per spec §4.8 ("exponentially smoothed
// throughput ... over the last >=8 completed batches"). alpha is
// chosen so the EMA's effective window matches that minimum sample
// size before its estimate is trusted.
type throughputSmoother struct {
	alpha   float64
	rate    float64 // entries/sec
	samples int
}

const minSamplesBeforeETA = 8

func newThroughputSmoother() *throughputSmoother {
	return &throughputSmoother{alpha: 2.0 / float64(minSamplesBeforeETA+1)}
}

// Observe records one completed batch of n entries taking elapsed time.
func (s *throughputSmoother) Observe(n int, elapsed time.Duration) {
	if elapsed <= 0 || n <= 0 {
		return
	}
	instant := float64(n) / elapsed.Seconds()
	if s.samples == 0 {
		s.rate = instant
	} else {
		s.rate = s.alpha*instant + (1-s.alpha)*s.rate
	}
	s.samples++
}

// ETASeconds estimates seconds remaining for `remaining` entries, or
// false if fewer than minSamplesBeforeETA batches have completed.
func (s *throughputSmoother) ETASeconds(remaining int) (int, bool) {
	if s.samples < minSamplesBeforeETA || s.rate <= 0 {
		return 0, false
	}
	return int(float64(remaining) / s.rate), true
}
