package bridge

import (
	"io"

	"golang.org/x/sys/unix"
)

type fder interface {
	Fd() uintptr
}

func flush(rwc io.ReadWriteCloser) error {
	f, ok := rwc.(fder)
	if !ok {
		return nil
	}
	return unix.IoctlSetInt(int(f.Fd()), unix.TCFLSH, unix.TCIOFLUSH)
}
