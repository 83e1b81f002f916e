// Package monitor implements the network liveness and topology coordination
// engine: gateway tracking, wireless association tracking, liveness probing,
// and the coordinator that fuses them into a single status value.
package monitor

import "errors"

// Contract and lifecycle sentinels. Callers can match them with errors.Is.
var (
	// ErrStopped is returned by calls into a component that has been torn
	// down.
	ErrStopped = errors.New("component stopped")

	// ErrEmptyAddress rejects a probe without a destination.
	ErrEmptyAddress = errors.New("probe address is empty")

	// ErrInvalidTimeout rejects a non-positive probe timeout.
	ErrInvalidTimeout = errors.New("probe timeout must be positive")

	// ErrEmptyHost rejects an empty custom target.
	ErrEmptyHost = errors.New("custom host is empty")
)

// logAddr renders an optional address for log output.
func logAddr(addr string) string {
	if addr == "" {
		return "none"
	}
	return addr
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
