package bridge

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Frame layout: type, code, payload length (LE u16), payload.
const (
	headerOffsetType   = 0
	headerOffsetCode   = 1
	headerOffsetLength = 2
	headerLength       = 4

	maxPayload = 2048
)

const (
	typeRequest       = 0x01
	typeReply         = 0x02
	typeWifiEvent     = 0x03
	typeSocketEvent   = 0x04
	typeResolveEvent  = 0x05
	partialFrameLimit = 500 * time.Millisecond
)

var errBadLength = fmt.Errorf("bad frame length")

func encodeFrame(t, code uint8, payload []byte) []byte {
	b := make([]byte, headerLength, headerLength+len(payload))
	b[headerOffsetType] = t
	b[headerOffsetCode] = code
	binary.LittleEndian.PutUint16(b[headerOffsetLength:], uint16(len(payload)))
	return append(b, payload...)
}

// frame reassembles module frames from arbitrary read chunks.
type frame struct {
	b       []byte
	timeout time.Time
	out     func([]byte)
}

func newFrame(out func([]byte)) *frame {
	return &frame{
		b:   make([]byte, 0, 256),
		out: out,
	}
}

func (f *frame) Assemble(b []byte) {
	switch {
	case len(b) == 0:
		return

	case !f.timeout.IsZero() && time.Now().After(f.timeout):
		// stale partial frame
		fallthrough
	case f.b == nil:
		f.reset()

	default:
		// ok
	}

	if len(f.b) == 0 {
		if err := f.waitStart(b); err != nil {
			return
		}
	} else {
		f.b = append(f.b, b...)
	}

	rf, err := f.frame()
	switch {
	case err == errBadLength:
		// not a real start byte, hunt again past it
		rem := make([]byte, len(f.b)-1)
		copy(rem, f.b[1:])
		f.reset()
		f.Assemble(rem)
		return
	case err != nil:
		return
	}

	out := make([]byte, len(rf))
	copy(out, rf)
	f.out(out)

	// shift
	if len(f.b) > len(rf) {
		rem := make([]byte, len(f.b)-len(rf))
		copy(rem, f.b[len(rf):])
		f.reset()
		f.Assemble(rem)
	} else {
		f.reset()
	}
}

func (f *frame) reset() {
	f.b = make([]byte, 0, 256)
	f.timeout = time.Time{}
}

func (f *frame) waitStart(b []byte) error {
	for i, v := range b {
		switch v {
		case typeReply, typeWifiEvent, typeSocketEvent, typeResolveEvent:
		default:
			continue
		}

		f.timeout = time.Now().Add(partialFrameLimit)
		f.b = append(f.b, b[i:]...)
		return nil
	}
	return fmt.Errorf("couldnt find start byte")
}

func (f *frame) frame() ([]byte, error) {
	if len(f.b) < headerLength {
		return nil, fmt.Errorf("not enough bytes")
	}

	l := int(binary.LittleEndian.Uint16(f.b[headerOffsetLength:]))
	if l > maxPayload {
		return nil, errBadLength
	}

	tl := headerLength + l
	if len(f.b) < tl {
		return nil, fmt.Errorf("not enough bytes")
	}
	return f.b[:tl], nil
}
