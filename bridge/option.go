package bridge

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/winc"
)

// SetErrorHandler ...
func (d *Driver) SetErrorHandler(handler func(error)) error {
	d.errorHandler = handler
	return nil
}

func (d *Driver) SetLogger(l winc.Logger) error {
	if l == nil {
		return errors.New("nil logger")
	}
	d.logger = l.ChildLogger(map[string]interface{}{"component": "bridge"})
	return nil
}

// SetChipID is a controller setting, ignored here
func (d *Driver) SetChipID(id uint32) error {
	return nil
}

// SetPrecomputePSK is a controller setting, ignored here
func (d *Driver) SetPrecomputePSK(enable bool) error {
	return nil
}

// SetTransportUART sets a serial port transport
func (d *Driver) SetTransportUART(path string, baud uint) error {
	d.transport = transport{
		uart: &transportUART{path, baud},
	}
	return nil
}

// SetTransportTCP sets a tcp socket transport
func (d *Driver) SetTransportTCP(addr string, timeout time.Duration) error {
	d.transport = transport{
		tcp: &transportTCP{addr, timeout},
	}
	return nil
}
