package bridge

import (
	"io"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

// DefaultSerialOptions is 115200 8N1 with a 100ms read timeout.
func DefaultSerialOptions() serial.OpenOptions {
	return serial.OpenOptions{
		BaudRate:              115200,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       0,
		InterCharacterTimeout: 100,
	}
}

type serialPort struct {
	io.ReadWriteCloser
}

func newSerial(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	// force these, the read loop relies on timeouts
	opts.MinimumReadSize = 0
	if opts.InterCharacterTimeout == 0 {
		opts.InterCharacterTimeout = 100
	}

	sp, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %v", opts.PortName)
	}

	// drop whatever the bridge sent before we were listening
	if err := flush(sp); err != nil {
		sp.Close()
		return nil, errors.Wrap(err, "can't flush serial port")
	}

	return &serialPort{sp}, nil
}

// Read maps the EOF of an expired tty read timeout to an empty read.
func (s *serialPort) Read(b []byte) (int, error) {
	n, err := s.ReadWriteCloser.Read(b)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}
