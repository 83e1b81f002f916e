package history

import (
	"testing"
	"time"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
)

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalProbes != 0 || s.UptimePercent != 0 || s.AvgLatencyMs != 0 {
		t.Errorf("Summarize(nil) = %+v, want zero summary", s)
	}
	if s.FirstSample != "" || s.LastSample != "" {
		t.Errorf("Summarize(nil) carries timestamps: %+v", s)
	}
}

func TestSummarizeMixedOutcomes(t *testing.T) {
	t0 := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	samples := []models.ProbeSample{
		sampleAt(t0, 0, true, 10),
		sampleAt(t0, 1, true, 30),
		sampleAt(t0, 2, false, 0),
		sampleAt(t0, 3, true, 20),
	}

	s := Summarize(samples)
	if s.TotalProbes != 4 || s.Succeeded != 3 || s.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 4/3/1", s.TotalProbes, s.Succeeded, s.Failed)
	}
	if s.UptimePercent != 75.0 {
		t.Errorf("UptimePercent = %v, want 75", s.UptimePercent)
	}
	if s.AvgLatencyMs != 20.0 {
		t.Errorf("AvgLatencyMs = %v, want 20", s.AvgLatencyMs)
	}
	if s.MinLatencyMs != 10 || s.MaxLatencyMs != 30 {
		t.Errorf("latency bounds = %d/%d, want 10/30", s.MinLatencyMs, s.MaxLatencyMs)
	}
	if s.FirstSample != "2026-08-24T12:00:00Z" {
		t.Errorf("FirstSample = %q", s.FirstSample)
	}
	if s.LastSample != "2026-08-24T12:00:03Z" {
		t.Errorf("LastSample = %q", s.LastSample)
	}
}

func TestSummarizeAllFailures(t *testing.T) {
	t0 := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	samples := []models.ProbeSample{
		sampleAt(t0, 0, false, 0),
		sampleAt(t0, 1, false, 0),
	}

	s := Summarize(samples)
	if s.UptimePercent != 0 {
		t.Errorf("UptimePercent = %v, want 0", s.UptimePercent)
	}
	if s.AvgLatencyMs != 0 || s.MinLatencyMs != 0 || s.MaxLatencyMs != 0 {
		t.Errorf("latency fields = %v/%d/%d, want zeros with no successes",
			s.AvgLatencyMs, s.MinLatencyMs, s.MaxLatencyMs)
	}
}

func TestBuildTimelineBucketsStates(t *testing.T) {
	t0 := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	end := t0.Add(40 * time.Second)

	// Bucket layout at 4 points over 40s: [0,10) ok, [10,20) mixed,
	// [20,30) failing, [30,40) empty.
	samples := []models.ProbeSample{
		sampleAt(t0, 1, true, 10),
		sampleAt(t0, 5, true, 20),
		sampleAt(t0, 12, true, 30),
		sampleAt(t0, 15, false, 0),
		sampleAt(t0, 22, false, 0),
		sampleAt(t0, 25, false, 0),
	}

	points := BuildTimeline(samples, t0, end, 4)
	if len(points) != 4 {
		t.Fatalf("points = %d, want 4", len(points))
	}

	if points[0].ClassName != "state-success" || points[0].Samples != 2 {
		t.Errorf("bucket 0 = %+v, want success with 2 samples", points[0])
	}
	if points[0].AvgLatencyMs != 15.0 {
		t.Errorf("bucket 0 avg = %v, want 15", points[0].AvgLatencyMs)
	}
	if points[1].ClassName != "state-warning" || points[1].Failures != 1 {
		t.Errorf("bucket 1 = %+v, want degraded with 1 failure", points[1])
	}
	if points[2].ClassName != "state-error" || points[2].Failures != 2 {
		t.Errorf("bucket 2 = %+v, want unreachable with 2 failures", points[2])
	}
	if points[3].ClassName != "state-missing" || points[3].Samples != 0 {
		t.Errorf("bucket 3 = %+v, want no data", points[3])
	}
}

func TestBuildTimelineDefaultsPoints(t *testing.T) {
	t0 := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	points := BuildTimeline(nil, t0, t0.Add(time.Minute), 0)
	if len(points) != DefaultTimelinePoints {
		t.Errorf("points = %d, want default %d", len(points), DefaultTimelinePoints)
	}
}

func TestBuildTimelineDegenerateWindow(t *testing.T) {
	t0 := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	points := BuildTimeline(nil, t0, t0, 4)
	if len(points) != 4 {
		t.Fatalf("points = %d, want 4 even for an empty window", len(points))
	}
	if !points[3].End.After(points[0].Start) {
		t.Error("window was not widened for end <= start")
	}
}

func TestBuildTimelineCoversFullWindow(t *testing.T) {
	t0 := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	end := t0.Add(35 * time.Second)
	points := BuildTimeline(nil, t0, end, 3)

	if !points[0].Start.Equal(t0) {
		t.Errorf("first bucket starts %v, want %v", points[0].Start, t0)
	}
	if !points[len(points)-1].End.Equal(end) {
		t.Errorf("last bucket ends %v, want %v", points[len(points)-1].End, end)
	}
}
