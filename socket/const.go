package socket

import (
	"fmt"
	"strings"

	"github.com/rigado/winc"
)

// ID is the module-side socket number.
type ID = winc.SocketID

const (
	// MTU is the largest chunk the module hands over in one receive.
	MTU = 1400

	// UDPHeaderSize is the per-datagram record header kept in the ring.
	UDPHeaderSize = 8

	TCPBufferSize = 3 * MTU
	UDPBufferSize = 3 * (MTU + UDPHeaderSize)
)

// Flag bits of a socket entry. On a bound (listening) socket the low byte
// is not a set of flags: it holds the id+1 of the most recently accepted
// child, 0 meaning none.
type Flag uint16

const (
	FlagConnected Flag = 1 << 0
	FlagFull      Flag = 1 << 1
	FlagBound     Flag = 1 << 8
	FlagSpawned   Flag = 1 << 9

	ChildMask Flag = 0xFF
)

func (f Flag) String() string {
	var ss []string
	if f&FlagBound != 0 {
		ss = append(ss, "bound")
		if c := f & ChildMask; c != 0 {
			ss = append(ss, fmt.Sprintf("child=%d", c-1))
		}
	} else {
		if f&FlagConnected != 0 {
			ss = append(ss, "connected")
		}
		if f&FlagFull != 0 {
			ss = append(ss, "full")
		}
	}
	if f&FlagSpawned != 0 {
		ss = append(ss, "spawned")
	}
	return strings.Join(ss, "|")
}

// Kind selects the buffer layout of a socket.
type Kind int

const (
	Stream Kind = iota
	Datagram
)

func (k Kind) size() int {
	if k == Datagram {
		return UDPBufferSize
	}
	return TCPBufferSize
}

func (k Kind) String() string {
	if k == Datagram {
		return "datagram"
	}
	return "stream"
}
