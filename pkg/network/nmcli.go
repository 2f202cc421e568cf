package network

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"time"
)

// NMCLI joins a Wi-Fi access point through NetworkManager.
type NMCLI struct {
	ssid     string
	password string
	iface    string
	logger   *slog.Logger

	run    func(ctx context.Context, name string, args ...string) ([]byte, error)
	linkUp func(iface string) bool
}

func NewNMCLI(ssid, password, iface string, logger *slog.Logger) *NMCLI {
	if logger == nil {
		logger = slog.Default()
	}
	return &NMCLI{
		ssid:     ssid,
		password: password,
		iface:    iface,
		logger:   logger,
		run:      runCommand,
		linkUp:   interfaceHasIPv4,
	}
}

// IsAssociated reports whether the interface is up with an IPv4 address.
func (n *NMCLI) IsAssociated() bool {
	return n.linkUp(n.iface)
}

func (n *NMCLI) Associate(ctx context.Context, attempts int, delay time.Duration) bool {
	if n.IsAssociated() {
		return true
	}
	n.logger.Info("connecting to wifi", "ssid", n.ssid, "interface", n.iface)
	args := []string{"device", "wifi", "connect", n.ssid}
	if n.password != "" {
		args = append(args, "password", n.password)
	}
	if n.iface != "" {
		args = append(args, "ifname", n.iface)
	}
	if out, err := n.run(ctx, "nmcli", args...); err != nil {
		// the link may still come up on its own, keep polling
		n.logger.Warn("nmcli connect failed", "ssid", n.ssid, "error", err, "output", string(out))
	}
	attempt := 0
	return poll(ctx, attempts, delay, func() bool {
		attempt++
		ok := n.IsAssociated()
		n.logger.Debug("waiting for wifi", "attempt", attempt, "associated", ok)
		return ok
	})
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func interfaceHasIPv4(name string) bool {
	ifi, err := net.InterfaceByName(name)
	if err != nil || ifi.Flags&net.FlagUp == 0 {
		return false
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil && !ipn.IP.IsLoopback() {
			return true
		}
	}
	return false
}
