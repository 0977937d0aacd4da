package pipeline

import (
	"testing"
	"time"
)

func TestRunStatsSnapshotPercentiles(t *testing.T) {
	stats := NewRunStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(StatusCompleted, time.Duration(ms)*time.Millisecond)
	}
	stats.Record(StatusFailed, 0)

	snap := stats.Snapshot()
	if snap.Count != 6 {
		t.Fatalf("expected count=6, got %d", snap.Count)
	}
	if snap.ByStatus[StatusCompleted] != 5 || snap.ByStatus[StatusFailed] != 1 {
		t.Fatalf("unexpected status counts: %v", snap.ByStatus)
	}
	if snap.MinMs != 0 {
		t.Fatalf("expected min=0, got %d", snap.MinMs)
	}
	if snap.MaxMs != 500 {
		t.Fatalf("expected max=500, got %d", snap.MaxMs)
	}
	if snap.AvgMs != 250 {
		t.Fatalf("expected avg=250, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 250 {
		t.Fatalf("expected p50=250, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 475 {
		t.Fatalf("expected p95=475, got %f", snap.P95Ms)
	}
}

func TestRunStatsPrunesExpiredSamples(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	stats := NewRunStats(time.Minute)
	stats.now = func() time.Time { return now }

	stats.Record(StatusCompleted, 100*time.Millisecond)
	now = now.Add(2 * time.Minute)

	if snap := stats.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	stats.Record(StatusPartial, 200*time.Millisecond)
	snap := stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1 for fresh sample, got %d", snap.Count)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestRunStatsClampsNegativeDuration(t *testing.T) {
	stats := NewRunStats(time.Hour)
	stats.Record(StatusCompleted, -10*time.Millisecond)
	snap := stats.Snapshot()
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestRunStatsEmpty(t *testing.T) {
	snap := NewRunStats(0).Snapshot()
	if snap.Count != 0 || snap.ByStatus == nil {
		t.Fatalf("expected empty snapshot with status map, got %+v", snap)
	}
}
