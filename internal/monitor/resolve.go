package monitor

import (
	"context"
	"fmt"
	"net"
)

// resolveHost resolves a user-supplied host to the literal address the
// engine probes: IPv4 preferred, else IPv6. A literal IP passes through
// without a lookup.
func resolveHost(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}

	var v6 string
	for _, addr := range addrs {
		if v4 := addr.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
		if v6 == "" && len(addr.IP) > 0 {
			v6 = addr.IP.String()
		}
	}
	if v6 != "" {
		return v6, nil
	}
	return "", fmt.Errorf("resolve %s: no addresses", host)
}
