package history

import (
	"math"
	"time"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
)

// DefaultTimelinePoints controls how many buckets the feed strip renders.
const DefaultTimelinePoints = 80

// Summary aggregates probe health over a sample window.
type Summary struct {
	UptimePercent float64 `json:"uptime_percent"`
	TotalProbes   int     `json:"total_probes"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	MinLatencyMs  int64   `json:"min_latency_ms"`
	MaxLatencyMs  int64   `json:"max_latency_ms"`
	FirstSample   string  `json:"first_sample,omitempty"`
	LastSample    string  `json:"last_sample,omitempty"`
}

// Summarize reduces samples to uptime and latency aggregates. Latency fields
// cover successful probes only.
func Summarize(samples []models.ProbeSample) Summary {
	var s Summary
	var latencySum int64

	for _, sample := range samples {
		s.TotalProbes++
		if sample.Success {
			s.Succeeded++
			latencySum += sample.LatencyMs
			if s.Succeeded == 1 || sample.LatencyMs < s.MinLatencyMs {
				s.MinLatencyMs = sample.LatencyMs
			}
			if sample.LatencyMs > s.MaxLatencyMs {
				s.MaxLatencyMs = sample.LatencyMs
			}
		} else {
			s.Failed++
		}
	}

	if s.TotalProbes > 0 {
		s.UptimePercent = round2(float64(s.Succeeded) / float64(s.TotalProbes) * 100)
		s.FirstSample = samples[0].At.UTC().Format(time.RFC3339)
		s.LastSample = samples[len(samples)-1].At.UTC().Format(time.RFC3339)
	}
	if s.Succeeded > 0 {
		s.AvgLatencyMs = round2(float64(latencySum) / float64(s.Succeeded))
	}
	return s
}

// BuildTimeline compresses samples into points fixed-width buckets spanning
// [start, end). Samples are assumed chronological, as Ring.Recent returns
// them.
func BuildTimeline(samples []models.ProbeSample, start, end time.Time, points int) []models.TimelinePoint {
	if points <= 0 {
		points = DefaultTimelinePoints
	}
	if !end.After(start) {
		end = start.Add(time.Minute)
	}

	bucketDuration := end.Sub(start) / time.Duration(points)
	if bucketDuration <= 0 {
		bucketDuration = time.Second
	}

	result := make([]models.TimelinePoint, 0, points)
	cursor := 0
	for i := 0; i < points; i++ {
		bucketStart := start.Add(time.Duration(i) * bucketDuration)
		bucketEnd := bucketStart.Add(bucketDuration)
		if i == points-1 {
			bucketEnd = end
		}

		for cursor < len(samples) && samples[cursor].At.Before(bucketStart) {
			cursor++
		}
		j := cursor
		for j < len(samples) && samples[j].At.Before(bucketEnd) {
			j++
		}

		point := evaluateBucket(samples[cursor:j])
		point.Start = bucketStart
		point.End = bucketEnd
		result = append(result, point)
		cursor = j
	}
	return result
}

func evaluateBucket(samples []models.ProbeSample) models.TimelinePoint {
	point := models.TimelinePoint{Samples: len(samples)}
	if len(samples) == 0 {
		point.ClassName = "state-missing"
		point.Label = "No data"
		return point
	}

	var latencySum int64
	succeeded := 0
	for _, sample := range samples {
		if sample.Success {
			succeeded++
			latencySum += sample.LatencyMs
		} else {
			point.Failures++
		}
	}
	if succeeded > 0 {
		point.AvgLatencyMs = round2(float64(latencySum) / float64(succeeded))
	}

	switch {
	case point.Failures == 0:
		point.ClassName = "state-success"
		point.Label = "Responding"
	case succeeded == 0:
		point.ClassName = "state-error"
		point.Label = "Unreachable"
	default:
		point.ClassName = "state-warning"
		point.Label = "Degraded"
	}
	return point
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
