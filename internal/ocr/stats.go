package ocr

import (
	"context"
	"slices"
	"sync"
	"time"
)

type sample struct {
	at       time.Time
	provider string
	ms       int64
	failed   bool
}

// StatsSnapshot aggregates the recognitions inside the rolling window.
// Latency figures cover successful recognitions only.
type StatsSnapshot struct {
	Count      int            `json:"count"`
	Failures   int            `json:"failures"`
	MinMs      int64          `json:"min_ms"`
	MaxMs      int64          `json:"max_ms"`
	AvgMs      float64        `json:"avg_ms"`
	P50Ms      float64        `json:"p50_ms"`
	P95Ms      float64        `json:"p95_ms"`
	P99Ms      float64        `json:"p99_ms"`
	ByProvider map[string]int `json:"by_provider,omitempty"`
}

// Stats tracks recent recognition latencies within a rolling window.
type Stats struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
	now     func() time.Time
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{
		samples: make([]sample, 0, 64),
		window:  window,
		now:     time.Now,
	}
}

// Record adds one recognition outcome.
func (s *Stats) Record(provider string, elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		at:       now,
		provider: provider,
		ms:       max(elapsed.Milliseconds(), 0),
		failed:   err != nil,
	})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())

	var snap StatsSnapshot
	var values []int64
	var sum int64
	for _, sm := range s.samples {
		if snap.ByProvider == nil {
			snap.ByProvider = make(map[string]int)
		}
		snap.ByProvider[sm.provider]++
		if sm.failed {
			snap.Failures++
			continue
		}
		values = append(values, sm.ms)
		sum += sm.ms
	}
	snap.Count = len(values)
	if len(values) == 0 {
		return snap
	}

	slices.Sort(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks of a sorted
// slice.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}

type timed struct {
	Recognizer
	stats *Stats
}

// Timed records the latency and outcome of every recognition in stats.
func Timed(r Recognizer, stats *Stats) Recognizer {
	return &timed{Recognizer: r, stats: stats}
}

func (t *timed) Recognize(ctx context.Context, image []byte, progress ProgressFunc) (string, error) {
	start := time.Now()
	text, err := t.Recognizer.Recognize(ctx, image, progress)
	t.stats.Record(t.Recognizer.Name(), time.Since(start), err)
	return text, err
}

// Close closes the wrapped recognizer if it holds resources.
func (t *timed) Close() error {
	if c, ok := t.Recognizer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
