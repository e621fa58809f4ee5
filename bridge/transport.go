package bridge

import (
	"fmt"
	"io"
	"time"
)

type transportUART struct {
	path string
	baud uint
}

type transportTCP struct {
	addr    string
	timeout time.Duration
}

type transport struct {
	uart *transportUART
	tcp  *transportTCP
}

func getTransport(t transport) (io.ReadWriteCloser, error) {
	switch {
	case t.tcp != nil:
		return newSocket(t.tcp.addr, t.tcp.timeout)

	case t.uart != nil:
		so := DefaultSerialOptions()
		so.PortName = t.uart.path
		if t.uart.baud != 0 {
			so.BaudRate = t.uart.baud
		}
		return newSerial(so)

	default:
		return nil, fmt.Errorf("no valid transport found")
	}
}
