// Package netcheck probes local ports.
package netcheck

import (
	"context"
	"net"
	"strconv"
)

// PortAvailable reports whether a TCP listener can be bound on host:port.
// The probe listener is closed before returning in every case.
func PortAvailable(ctx context.Context, host string, port int) bool {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	return ln.Close() == nil
}
