package monitor

import (
	"strconv"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
)

// Tray display codes. Anything that is not a bare RTT number is a state
// marker.
const (
	codeIdle        = "--"
	codeFailure     = "X"
	codeDNSFailure  = "DNS"
	codeNoGateway   = "GW?"
	codeNetworkOff  = "OFF"
	codeNetworkDown = "NET"
)

// buildStatusLocked fuses the coordinator's state into one Status. The
// precedence order runs from the broadest outage down to the last probe
// result; a healthy probe renders as the bare millisecond count. Callers
// hold c.mu.
func (c *Coordinator) buildStatusLocked() models.Status {
	s := models.Status{
		IsTransition: c.inTransition,
		UseDarkText:  c.inTransition,
	}

	switch {
	case !c.netAvailable:
		if c.target.Kind == models.TargetCustom {
			s.DisplayText = codeNetworkDown
		} else {
			s.DisplayText = codeNetworkOff
		}
		s.IsError = true
	case c.target.Kind == models.TargetGateway && c.gateway == "":
		s.DisplayText = codeNoGateway
		s.IsError = true
	case c.resolutionErr:
		// An unresolvable target outranks any outcome: a latency carried
		// over from the previous target must not read as health.
		s.DisplayText = codeDNSFailure
		s.IsError = true
	case c.haveOutcome && c.lastOutcome.Success:
		s.DisplayText = strconv.FormatInt(c.lastOutcome.LatencyMs, 10)
	case c.haveOutcome:
		if c.lastOutcome.Kind == models.FailDNS {
			s.DisplayText = codeDNSFailure
		} else {
			s.DisplayText = codeFailure
		}
		s.IsError = true
	default:
		s.DisplayText = codeIdle
	}

	s.TooltipLines = c.tooltipLocked()
	return s
}

// tooltipLocked composes the hover detail lines. Callers hold c.mu.
func (c *Coordinator) tooltipLocked() []string {
	lines := make([]string, 0, 6)

	if !c.netAvailable {
		lines = append(lines, "network: down")
	}

	switch c.target.Kind {
	case models.TargetCustom:
		if c.resolved != "" && !c.resolutionErr && c.resolved != c.target.Host {
			lines = append(lines, "target: "+c.target.Host+" ("+c.resolved+")")
		} else if c.resolutionErr || c.resolved == "" {
			lines = append(lines, "target: "+c.target.Host+" (unresolved)")
		} else {
			lines = append(lines, "target: "+c.target.Host)
		}
	default:
		if c.gateway != "" {
			lines = append(lines, "gateway: "+c.gateway)
		} else {
			lines = append(lines, "gateway: unknown")
		}
	}

	if c.resolutionErr {
		lines = append(lines, "dns: unable to resolve "+c.target.Host)
	}

	if c.netAvailable {
		if !c.capability {
			lines = append(lines, "wifi: access denied")
		} else if c.bssid != "" {
			lines = append(lines, c.apLineLocked())
		}
	}

	if c.inTransition {
		lines = append(lines, "roaming: "+logAddr(c.prevBssid)+" -> "+logAddr(c.bssid))
	}

	if c.haveOutcome {
		if c.lastOutcome.Success {
			lines = append(lines, "rtt: "+strconv.FormatInt(c.lastOutcome.LatencyMs, 10)+" ms")
		} else {
			lines = append(lines, "error: "+failureLabel(c.lastOutcome.Kind))
		}
	}

	return lines
}

// apLineLocked renders the associated access point, preferring a stored
// display name over the raw SSID. Callers hold c.mu.
func (c *Coordinator) apLineLocked() string {
	name := c.store.DisplayName(c.bssid)
	if name == "" {
		name = c.ssid
	}
	line := "ap: "
	if name != "" {
		line += name + " "
	}
	line += "(" + c.bssid + ")"
	if c.band != "" {
		line += " " + c.band
	}
	return line + " " + strconv.Itoa(c.signal) + "%"
}

func failureLabel(kind models.FailureKind) string {
	switch kind {
	case models.FailTimeout:
		return "timeout"
	case models.FailUnreachable:
		return "host unreachable"
	case models.FailDNS:
		return "dns resolution failed"
	default:
		return "ping failed"
	}
}
