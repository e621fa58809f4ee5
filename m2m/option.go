package m2m

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/winc"
)

// SetErrorHandler sets the handler for problems found while events are pumped.
func (c *Controller) SetErrorHandler(handler func(error)) error {
	c.errorHandler = handler
	c.sockets.SetErrorHandler(handler)
	return nil
}

func (c *Controller) SetLogger(l winc.Logger) error {
	if l == nil {
		return errors.New("nil logger")
	}
	c.logger = l.ChildLogger(map[string]interface{}{"component": "m2m"})
	c.sockets.SetLogger(l.ChildLogger(map[string]interface{}{"component": "socket"}))
	return nil
}

// SetChipID overrides the identity checked after bring-up.
func (c *Controller) SetChipID(id uint32) error {
	c.chipID = id
	return nil
}

func (c *Controller) SetPrecomputePSK(enable bool) error {
	c.precomputePSK = enable
	return nil
}

// SetTransportUART is not supported, the transport belongs to the driver
func (c *Controller) SetTransportUART(path string, baud uint) error {
	return errors.Wrap(winc.ErrNotSupported, "controller transport")
}

// SetTransportTCP is not supported, the transport belongs to the driver
func (c *Controller) SetTransportTCP(addr string, timeout time.Duration) error {
	return errors.Wrap(winc.ErrNotSupported, "controller transport")
}
