package net

import (
	"fmt"
	"net"
)

// EphemeralLoopbackAddr reserves a free loopback port and returns it as host:port.
// The port is released before returning, so another process could in principle grab it first.
func EphemeralLoopbackAddr() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listening to acquire port: %w", err)
	}
	defer listener.Close()
	return listener.Addr().String(), nil
}
