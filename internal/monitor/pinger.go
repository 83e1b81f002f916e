package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
)

// icmpPinger sends a single ICMP echo per probe.
type icmpPinger struct {
	privileged bool
}

// NewICMPPinger returns the production pinger. privileged selects raw ICMP
// sockets, which Windows requires; unprivileged UDP echo works on most unix
// systems without capabilities.
func NewICMPPinger(privileged bool) Pinger {
	return &icmpPinger{privileged: privileged}
}

func (p *icmpPinger) Ping(ctx context.Context, address string, timeout time.Duration) (models.ProbeOutcome, error) {
	pinger, err := probing.NewPinger(address)
	if err != nil {
		return models.ProbeOutcome{Kind: classifyPingError(err)}, fmt.Errorf("resolve probe target %s: %w", address, err)
	}
	pinger.SetPrivileged(p.privileged)
	pinger.Count = 1
	pinger.Timeout = timeout

	if err := pinger.RunWithContext(ctx); err != nil {
		return models.ProbeOutcome{Kind: classifyPingError(err)}, fmt.Errorf("probe %s: %w", address, err)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return models.ProbeOutcome{Kind: models.FailTimeout}, nil
	}
	return models.ProbeOutcome{Success: true, LatencyMs: stats.AvgRtt.Milliseconds()}, nil
}

// classifyPingError maps a probe error onto the failure taxonomy.
func classifyPingError(err error) models.FailureKind {
	if err == nil {
		return models.FailOther
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return models.FailDNS
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailTimeout
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return models.FailUnreachable
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unreachable"):
		return models.FailUnreachable
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return models.FailTimeout
	case strings.Contains(msg, "no such host"):
		return models.FailDNS
	}
	return models.FailOther
}
