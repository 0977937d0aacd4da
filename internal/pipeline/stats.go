package pipeline

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at       time.Time
	duration time.Duration
	status   JobStatus
}

// StatsSnapshot aggregates recent extraction runs.
type StatsSnapshot struct {
	Count    int               `json:"count"`
	ByStatus map[JobStatus]int `json:"by_status"`
	MinMs    int64             `json:"min_ms"`
	MaxMs    int64             `json:"max_ms"`
	AvgMs    float64           `json:"avg_ms"`
	P50Ms    float64           `json:"p50_ms"`
	P95Ms    float64           `json:"p95_ms"`
	P99Ms    float64           `json:"p99_ms"`
}

// RunStats tracks finished job durations within a rolling window.
type RunStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewRunStats(maxAge time.Duration) *RunStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &RunStats{
		samples: make([]sample, 0, 64),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one finished job. Negative durations count as zero.
func (s *RunStats) Record(status JobStatus, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{at: now, duration: max(d, 0), status: status})
}

func (s *RunStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	snap := StatsSnapshot{ByStatus: make(map[JobStatus]int)}
	if len(s.samples) == 0 {
		return snap
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		ms := sm.duration.Milliseconds()
		values = append(values, ms)
		sum += ms
		snap.ByStatus[sm.status]++
	}
	slices.Sort(values)

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *RunStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*weight
}
