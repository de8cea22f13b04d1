// Package orchestrator drives one translation pipeline job end to end:
// track selection, cache lookup, extraction, parsing, chunked
// translation with retry/fallback/backoff, generation, and
// publication (spec §4.7). Styled after the teacher's usecase
// package: an injected-ports struct with an Execute-shaped entry
// point (internal/usecase/stream_torrent.go).
package orchestrator

import "time"

// Config holds the tunables spec §4.7 and §9 call out as configurable.
type Config struct {
	BatchSize               int           // entries per translate batch; default 15
	MaxRetriesPerBackend    int           // R in "per-batch retry up to R attempts"
	ConsecutiveFailureAbort int           // C; default 3
	SuccessRateThreshold    float64       // default 0.5
	NoProgressThreshold     float64       // default 0.95
	InterBatchPacing        time.Duration // default 500ms
	BaseBackoff             time.Duration // default 500ms
	MaxBackoff              time.Duration // default 32s
	JitterFraction          float64       // default 0.2 (±20%)
	ConcurrentBatches       int           // P in "MAY dispatch up to P batches concurrently"; default 1
}

// DefaultConfig returns spec §4.7/§9's documented defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:               15,
		MaxRetriesPerBackend:    3,
		ConsecutiveFailureAbort: 3,
		SuccessRateThreshold:    0.5,
		NoProgressThreshold:     0.95,
		InterBatchPacing:        500 * time.Millisecond,
		BaseBackoff:             500 * time.Millisecond,
		MaxBackoff:              32 * time.Second,
		JitterFraction:          0.2,
		ConcurrentBatches:       1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxRetriesPerBackend <= 0 {
		c.MaxRetriesPerBackend = d.MaxRetriesPerBackend
	}
	if c.ConsecutiveFailureAbort <= 0 {
		c.ConsecutiveFailureAbort = d.ConsecutiveFailureAbort
	}
	if c.SuccessRateThreshold <= 0 {
		c.SuccessRateThreshold = d.SuccessRateThreshold
	}
	if c.NoProgressThreshold <= 0 {
		c.NoProgressThreshold = d.NoProgressThreshold
	}
	if c.InterBatchPacing <= 0 {
		c.InterBatchPacing = d.InterBatchPacing
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = d.BaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.JitterFraction <= 0 {
		c.JitterFraction = d.JitterFraction
	}
	if c.ConcurrentBatches <= 0 {
		c.ConcurrentBatches = d.ConcurrentBatches
	}
	return c
}
