package model

import (
	"context"
	"net"
)

// SecurityLayer produces the listener the server serves on, plain TCP or TLS
// depending on deployment config.
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

// Server is the HTTP front of the application.
type Server interface {
	Start(securityLayer SecurityLayer) error
	Stop(ctx context.Context) error
	Address() string
}
