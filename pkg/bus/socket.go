package bus

import (
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register all mangos transports (tcp, ipc, inproc, ws)
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// PubSocket is the slice of a PUB socket the publisher needs. Tests
// substitute an in-memory recorder.
type PubSocket interface {
	Listen(addr string) error
	Send(data []byte) error
	Close() error
}

// SocketFactory creates PUB sockets.
type SocketFactory interface {
	NewPubSocket() (PubSocket, error)
}

// NNGFactory creates real mangos sockets. mangos is pure Go, so the
// factory carries no build constraints.
type NNGFactory struct{}

func (NNGFactory) NewPubSocket() (PubSocket, error) {
	return pub.NewSocket()
}
