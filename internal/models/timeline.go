package models

import "time"

// TimelinePoint is one fixed-width bucket of compressed probe history, sized
// for rendering as a single strip cell on the feed page.
type TimelinePoint struct {
	ClassName    string    `json:"className"`
	Label        string    `json:"label"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Samples      int       `json:"samples"`
	Failures     int       `json:"failures,omitempty"`
	AvgLatencyMs float64   `json:"avg_latency_ms,omitempty"`
}
