package models

import "time"

// WirelessSnapshot is the immutable view of the current wireless association
// published by the wireless tracker. Empty BSSID means not associated.
type WirelessSnapshot struct {
	BSSID             string `json:"bssid,omitempty"`
	SSID              string `json:"ssid,omitempty"`
	Band              string `json:"band,omitempty"`
	SignalPercent     int    `json:"signal_percent"`
	CapabilityEnabled bool   `json:"capability_enabled"`
}

// EngineSnapshot is the coordinator's full fused state at a moment in time,
// served by the status feed and rendered by the terminal UI.
type EngineSnapshot struct {
	Target           Target           `json:"target"`
	ResolvedAddress  string           `json:"resolved_address,omitempty"`
	ResolutionError  bool             `json:"resolution_error,omitempty"`
	Gateway          string           `json:"gateway,omitempty"`
	NetworkAvailable bool             `json:"network_available"`
	Wireless         WirelessSnapshot `json:"wireless"`
	PreviousBSSID    string           `json:"previous_bssid,omitempty"`
	InTransition     bool             `json:"in_transition"`
	LastOutcome      ProbeOutcome     `json:"last_outcome"`
	HasOutcome       bool             `json:"has_outcome"`
	Status           Status           `json:"status"`
	GeneratedAt      time.Time        `json:"generated_at"`
}
