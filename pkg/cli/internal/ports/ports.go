// Package ports provides port availability checking.
package ports

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
)

// Check reports whether host:port can be listened on. A port that is taken
// gets a hint on how to recover; other failures such as a bad host or a
// privileged port keep their cause. Port zero is always available.
func Check(host string, port int) error {
	if port == 0 {
		return nil
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("address %s is already in use: stop the other program or pick another port with --port: %w", addr, err)
		}
		return fmt.Errorf("cannot listen on %s: %w", addr, err)
	}
	_ = ln.Close()
	return nil
}
