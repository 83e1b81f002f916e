package monitor

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackpal/gateway"
)

// sysRouteSource reads the default gateway from the OS route table and
// derives availability from interface enumeration. The route table already
// encodes the OS's interface preference, so no local ranking is needed.
type sysRouteSource struct{}

// NewSystemRouteSource returns the production route source.
func NewSystemRouteSource() RouteSource { return sysRouteSource{} }

func (sysRouteSource) DefaultGateway() (string, error) {
	ip, err := gateway.DiscoverGateway()
	if err != nil {
		return "", fmt.Errorf("discover gateway: %w", err)
	}
	return ip.String(), nil
}

func (sysRouteSource) NetworkAvailable() bool {
	return len(candidateAddrs()) > 0
}

// candidateAddrs lists global IPv4 addresses on up, non-loopback interfaces
// in stable interface order.
func candidateAddrs() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var out []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ip := addrIP(addr)
			if ip == nil {
				continue
			}
			v4 := ip.To4()
			if v4 == nil || v4.IsLoopback() || v4.IsUnspecified() || v4.IsLinkLocalUnicast() {
				continue
			}
			out = append(out, iface.Name+"/"+v4.String())
		}
	}
	return out
}

func addrIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	default:
		return nil
	}
}

// ifaceNotifier approximates OS network change notifications by scanning the
// interface set at a short interval and diffing availability plus an IPv4
// address fingerprint. Dropped notifications are harmless: the gateway
// tracker's redundant poll recovers the state.
type ifaceNotifier struct {
	interval time.Duration

	ch chan NetChange

	mu      sync.Mutex
	started bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewInterfaceNotifier returns the production network change notifier.
func NewInterfaceNotifier(interval time.Duration) NetNotifier {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ifaceNotifier{
		interval: interval,
		ch:       make(chan NetChange, 8),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (n *ifaceNotifier) Start() (<-chan NetChange, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return n.ch, nil
	}
	n.started = true
	go n.run()
	return n.ch, nil
}

func (n *ifaceNotifier) Stop() {
	n.mu.Lock()
	started := n.started
	n.mu.Unlock()

	n.stopOnce.Do(func() { close(n.stopCh) })
	if started {
		<-n.doneCh
	}
}

func (n *ifaceNotifier) run() {
	defer close(n.doneCh)
	defer close(n.ch)

	avail, fingerprint := scanInterfaces()

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			newAvail, newFingerprint := scanInterfaces()
			switch {
			case newAvail && !avail:
				n.send(NetUp)
			case !newAvail && avail:
				n.send(NetDown)
			case newAvail && newFingerprint != fingerprint:
				n.send(NetAddrChange)
			}
			avail, fingerprint = newAvail, newFingerprint
		case <-n.stopCh:
			return
		}
	}
}

func (n *ifaceNotifier) send(ev NetChange) {
	select {
	case n.ch <- ev:
	default:
	}
}

func scanInterfaces() (bool, string) {
	addrs := candidateAddrs()
	if len(addrs) == 0 {
		return false, ""
	}
	sorted := make([]string, len(addrs))
	copy(sorted, addrs)
	sort.Strings(sorted)
	return true, strings.Join(sorted, ",")
}
