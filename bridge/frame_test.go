package bridge

import (
	"bytes"
	"testing"
	"time"
)

func collect() (*frame, *[][]byte) {
	var got [][]byte
	f := newFrame(func(b []byte) { got = append(got, b) })
	return f, &got
}

func TestFrameSplit(t *testing.T) {
	f, got := collect()
	fr := encodeFrame(typeWifiEvent, 0x2c, []byte{1, 0})

	f.Assemble(fr[:1])
	f.Assemble(fr[1:3])
	if len(*got) != 0 {
		t.Fatal("frame out before complete")
	}
	f.Assemble(fr[3:])

	if len(*got) != 1 || !bytes.Equal((*got)[0], fr) {
		t.Fatalf("got % X", *got)
	}
}

func TestFrameJunkAndBatch(t *testing.T) {
	f, got := collect()
	a := encodeFrame(typeReply, 0x10, []byte{0, 0xb1, 0x02, 0x15, 0x00})
	b := encodeFrame(typeSocketEvent, 6, []byte{2, 3, 0})

	in := append([]byte{0x00, 0xff, 0x7e}, a...)
	in = append(in, b...)
	f.Assemble(in)

	if len(*got) != 2 {
		t.Fatalf("got %d frames", len(*got))
	}
	if !bytes.Equal((*got)[0], a) || !bytes.Equal((*got)[1], b) {
		t.Fatalf("got % X", *got)
	}
}

func TestFrameBadLengthRehunt(t *testing.T) {
	f, got := collect()
	good := encodeFrame(typeWifiEvent, 0x04, []byte{0xc4})

	// a type byte followed by an impossible length
	in := append([]byte{typeWifiEvent, 0, 0xff, 0xff}, good...)
	f.Assemble(in)

	if len(*got) != 1 || !bytes.Equal((*got)[0], good) {
		t.Fatalf("got % X", *got)
	}
}

func TestFrameStalePartial(t *testing.T) {
	f, got := collect()
	fr := encodeFrame(typeWifiEvent, 0x13, []byte{1, 2, 3, 4})

	f.Assemble(fr[:5])
	f.timeout = time.Now().Add(-time.Millisecond)

	f.Assemble(fr)
	if len(*got) != 1 || !bytes.Equal((*got)[0], fr) {
		t.Fatalf("got % X", *got)
	}
}
