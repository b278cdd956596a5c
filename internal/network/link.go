package network

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"time"

	psnet "github.com/shirou/gopsutil/v4/net"
)

// Link watches the wireless interface. Association itself is owned by the
// OS (wpa_supplicant / NetworkManager); the station only waits for it.
type Link struct {
	iface  string
	poll   time.Duration
	logger *slog.Logger

	interfaces func(ctx context.Context) (psnet.InterfaceStatList, error)
}

func NewLink(iface string, poll time.Duration, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	return &Link{
		iface:      iface,
		poll:       poll,
		logger:     logger,
		interfaces: psnet.InterfacesWithContext,
	}
}

// WaitAssociated blocks until the interface is up with a usable IPv4
// address and returns that address. There is no timeout; only ctx ends the
// wait. An empty interface name returns immediately.
func (l *Link) WaitAssociated(ctx context.Context) (string, error) {
	if l.iface == "" {
		return "", nil
	}

	l.logger.Info("connecting to network", "interface", l.iface)
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	polls := 0
	for {
		addr, err := l.address(ctx)
		if err == nil {
			l.logger.Info("network connected", "interface", l.iface, "ip", addr, "polls", polls)
			return addr, nil
		}
		polls++
		l.logger.Debug("network not ready", "interface", l.iface, "reason", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Link) address(ctx context.Context) (string, error) {
	list, err := l.interfaces(ctx)
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}

	idx := slices.IndexFunc(list, func(s psnet.InterfaceStat) bool { return s.Name == l.iface })
	if idx < 0 {
		return "", fmt.Errorf("interface %s not present", l.iface)
	}
	stat := list[idx]

	if !slices.Contains(stat.Flags, "up") {
		return "", fmt.Errorf("interface %s down", l.iface)
	}
	for _, a := range stat.Addrs {
		ip, _, err := net.ParseCIDR(a.Addr)
		if err != nil {
			ip = net.ParseIP(a.Addr)
		}
		if ip == nil || ip.To4() == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		return ip.String(), nil
	}
	return "", fmt.Errorf("interface %s has no IPv4 address", l.iface)
}
