package models

import "time"

// FailureKind classifies why a probe did not succeed.
type FailureKind string

const (
	FailTimeout     FailureKind = "timeout"
	FailUnreachable FailureKind = "unreachable"
	FailDNS         FailureKind = "dns"
	FailOther       FailureKind = "other"
)

// ProbeOutcome captures the result of a single liveness probe. Kind is empty
// when Success is true.
type ProbeOutcome struct {
	Success   bool        `json:"success"`
	LatencyMs int64       `json:"latency_ms"`
	Kind      FailureKind `json:"kind,omitempty"`
}

// Status is the fused, externally visible state of the engine. It is
// recomputed as a whole on every contributing event and never partially
// updated.
type Status struct {
	DisplayText  string   `json:"display_text"`
	TooltipLines []string `json:"tooltip_lines"`
	IsError      bool     `json:"is_error"`
	IsTransition bool     `json:"is_transition"`
	UseDarkText  bool     `json:"use_dark_text"`
}

// ProbeSample is one probe result retained in the in-memory history ring.
// Code is empty for a success, otherwise the failure kind.
type ProbeSample struct {
	At        time.Time `json:"at"`
	Success   bool      `json:"success"`
	LatencyMs int64     `json:"latency_ms"`
	Code      string    `json:"code,omitempty"`
}
