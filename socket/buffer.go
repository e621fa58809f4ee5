package socket

import (
	"encoding/binary"
	"io"
	"net/netip"

	"github.com/pkg/errors"
)

// Buffer is the receive ring of one socket. The manager appends at tail from
// inside the event pump; the consumer reads from head. Neither side blocks.
type Buffer struct {
	id    ID
	kind  Kind
	flags Flag

	buf  []byte
	head int
	tail int
	n    int

	// less than one record of space left after an append; the receive
	// stays unarmed until the consumer frees space.
	stalled bool
	dropped int
	remote  netip.AddrPort

	m *Manager
}

func newBuffer(m *Manager, id ID, kind Kind) *Buffer {
	return &Buffer{
		id:   id,
		kind: kind,
		buf:  make([]byte, kind.size()),
		m:    m,
	}
}

func (b *Buffer) ID() ID      { return b.id }
func (b *Buffer) Kind() Kind  { return b.kind }
func (b *Buffer) Flags() Flag { return b.flags }
func (b *Buffer) Cap() int    { return len(b.buf) }

// Len is the number of raw bytes held, datagram record headers included.
func (b *Buffer) Len() int { return b.n }

// Connected reports whether a stream socket has a live peer.
func (b *Buffer) Connected() bool {
	return !b.listening() && b.flags&FlagConnected != 0
}

// Full reports that data was dropped since the consumer last made room.
func (b *Buffer) Full() bool {
	return !b.listening() && b.flags&FlagFull != 0
}

// listening sockets keep a child id in the low flag byte.
func (b *Buffer) listening() bool {
	return b.kind == Stream && b.flags&FlagBound != 0
}

// Dropped is the number of payload bytes discarded because the ring was full.
func (b *Buffer) Dropped() int { return b.dropped }

// Remote is the peer of an accepted child socket.
func (b *Buffer) Remote() netip.AddrPort { return b.remote }

// Available returns the number of bytes the next Read can return. For
// datagram sockets this is the payload size of the next datagram.
func (b *Buffer) Available() int {
	if b.kind == Datagram {
		if b.n < UDPHeaderSize {
			return 0
		}
		return int(b.peekAt(0))<<8 | int(b.peekAt(1))
	}
	return b.n
}

// Peek returns the next payload byte without consuming it.
func (b *Buffer) Peek() (byte, bool) {
	off := 0
	if b.kind == Datagram {
		off = UDPHeaderSize
	}
	if b.Available() == 0 {
		return 0, false
	}
	return b.peekAt(off), true
}

// Read copies buffered bytes into p. An empty buffer returns 0, nil while the
// peer is connected and io.EOF after it went away. On datagram sockets Read
// returns one datagram, truncated to len(p).
func (b *Buffer) Read(p []byte) (int, error) {
	if b.kind == Datagram {
		n, _, err := b.ReadDatagram(p)
		return n, err
	}

	if b.n == 0 {
		if !b.Connected() {
			return 0, io.EOF
		}
		return 0, nil
	}

	n := b.read(p)
	b.m.drained(b)
	return n, nil
}

// ReadDatagram pops the next datagram. Payload beyond len(p) is discarded.
func (b *Buffer) ReadDatagram(p []byte) (int, netip.AddrPort, error) {
	if b.kind != Datagram {
		return 0, netip.AddrPort{}, errors.Errorf("socket %d is not a datagram socket", b.id)
	}
	if b.n < UDPHeaderSize {
		return 0, netip.AddrPort{}, nil
	}

	var hdr [UDPHeaderSize]byte
	b.read(hdr[:])
	l := int(binary.BigEndian.Uint16(hdr[0:]))
	from := netip.AddrPortFrom(netip.AddrFrom4([4]byte(hdr[4:8])), binary.BigEndian.Uint16(hdr[2:]))

	n := b.read(p[:min(l, len(p))])
	b.discard(l - n)
	b.m.drained(b)
	return n, from, nil
}

func (b *Buffer) free() int { return len(b.buf) - b.n }

// threshold is the space needed before another receive is armed.
func (b *Buffer) threshold() int {
	if b.kind == Datagram {
		return MTU + UDPHeaderSize
	}
	return MTU
}

func (b *Buffer) appendStream(p []byte) {
	w := b.write(p)
	if w < len(p) {
		b.flags |= FlagFull
		b.dropped += len(p) - w
	}
	b.stalled = b.free() < b.threshold()
}

// appendDatagram stores p as one record or drops it whole.
func (b *Buffer) appendDatagram(from netip.AddrPort, p []byte) bool {
	if UDPHeaderSize+len(p) > b.free() {
		b.flags |= FlagFull
		b.dropped += len(p)
		b.stalled = true
		return false
	}

	var hdr [UDPHeaderSize]byte
	binary.BigEndian.PutUint16(hdr[0:], uint16(len(p)))
	binary.BigEndian.PutUint16(hdr[2:], from.Port())
	a4 := from.Addr().As4()
	copy(hdr[4:], a4[:])

	b.write(hdr[:])
	b.write(p)
	b.stalled = b.free() < b.threshold()
	return true
}

func (b *Buffer) write(p []byte) int {
	w := min(len(p), b.free())
	first := min(w, len(b.buf)-b.tail)
	copy(b.buf[b.tail:], p[:first])
	copy(b.buf, p[first:w])
	b.tail = (b.tail + w) % len(b.buf)
	b.n += w
	return w
}

func (b *Buffer) read(p []byte) int {
	r := min(len(p), b.n)
	first := min(r, len(b.buf)-b.head)
	copy(p, b.buf[b.head:b.head+first])
	copy(p[first:r], b.buf[:r-first])
	b.head = (b.head + r) % len(b.buf)
	b.n -= r
	return r
}

func (b *Buffer) discard(k int) {
	k = min(k, b.n)
	b.head = (b.head + k) % len(b.buf)
	b.n -= k
}

func (b *Buffer) peekAt(off int) byte {
	return b.buf[(b.head+off)%len(b.buf)]
}
