package bridge

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/winc"
	"github.com/rigado/winc/m2m/evt"
)

const (
	rxQueueSize  = 64
	replyTimeout = 3 * time.Second
)

// ErrCommand is a request the module answered with a failure status.
type ErrCommand struct {
	Code   uint8
	Status int8
}

func (e ErrCommand) Error() string {
	return fmt.Sprintf("request 0x%02x failed with status %d", e.Code, e.Status)
}

// Driver is a winc.Driver for a module behind a framed byte link: a UART
// bridge board or a TCP simulator. A read goroutine queues incoming events;
// handlers only run from HandleEvents on the caller's goroutine.
type Driver struct {
	transport transport
	rwc       io.ReadWriteCloser
	wmu       sync.Mutex

	frame   *frame
	rxQueue chan []byte

	muSent sync.Mutex
	sent   map[uint8]chan []byte

	done    chan struct{}
	muClose sync.Mutex
	err     error

	wifi    winc.EventHandler
	sock    winc.SocketHandler
	resolve winc.ResolveHandler
	numAP   int

	logger       winc.Logger
	errorHandler func(error)
}

// New returns a driver for the transport selected by opts. The link is
// opened by Init.
func New(opts ...winc.Option) (*Driver, error) {
	d := &Driver{
		rxQueue: make(chan []byte, rxQueueSize),
		sent:    map[uint8]chan []byte{},
		logger:  winc.ComponentLogger("bridge"),
	}
	d.frame = newFrame(d.route)

	if err := winc.ApplyOptions(d, opts...); err != nil {
		return nil, errors.Wrap(err, "can't apply options")
	}
	return d, nil
}

// NewWithConn returns a driver talking over an already open link.
func NewWithConn(rwc io.ReadWriteCloser, opts ...winc.Option) (*Driver, error) {
	d, err := New(opts...)
	if err != nil {
		return nil, err
	}
	d.rwc = rwc
	return d, nil
}

func (d *Driver) open() error {
	if d.rwc == nil {
		rwc, err := getTransport(d.transport)
		if err != nil {
			return errors.Wrap(err, "can't open transport")
		}
		d.rwc = rwc
	}

	d.done = make(chan struct{})
	go d.readLoop()
	return nil
}

// Stop ends the read loop and closes the link.
func (d *Driver) Stop() error {
	return d.close(nil)
}

func (d *Driver) close(err error) error {
	d.muClose.Lock()
	defer d.muClose.Unlock()

	if d.done == nil {
		return nil
	}
	select {
	case <-d.done:
		//already closed, nothing to do
		return nil
	default:
		d.err = err
		close(d.done)
	}
	return errors.Wrap(d.rwc.Close(), "can't close bridge")
}

// closedErr explains why the driver is not open.
func (d *Driver) closedErr() error {
	d.muClose.Lock()
	defer d.muClose.Unlock()

	switch {
	case d.done == nil:
		return winc.ErrNotInitialized
	case d.err != nil:
		return d.err
	default:
		return io.EOF
	}
}

func (d *Driver) isOpen() bool {
	if d.done == nil {
		return false
	}
	select {
	case <-d.done:
		return false
	default:
		return true
	}
}

func (d *Driver) readLoop() {
	b := make([]byte, 4096)

	for {
		n, err := d.rwc.Read(b)

		switch {
		case n == 0 && err == nil:
			// read timeout
			select {
			case <-d.done:
				return
			default:
				continue
			}

		case err != nil:
			select {
			case <-d.done:
				// closed under us
			default:
				err = errors.Wrap(err, "bridge read")
				d.dispatchError(err)
				d.close(err)
			}
			return

		default:
			d.frame.Assemble(b[:n])
		}
	}
}

// route takes a complete frame from the assembler.
func (d *Driver) route(b []byte) {
	t, code, p := b[headerOffsetType], b[headerOffsetCode], b[headerLength:]

	if t == typeReply {
		d.muSent.Lock()
		ch, ok := d.sent[code]
		d.muSent.Unlock()
		if !ok {
			d.logger.Debugf("reply 0x%02x with no pending request: [% X]", code, p)
			return
		}
		select {
		case ch <- p:
		default:
			d.logger.Debugf("duplicate reply 0x%02x", code)
		}
		return
	}

	select {
	case d.rxQueue <- b:
	default:
		d.logger.Warnf("event queue full, dropping frame type 0x%02x code 0x%02x", t, code)
	}
}

// HandleEvents runs the handlers for the events queued so far. Events that
// arrive meanwhile wait for the next call.
func (d *Driver) HandleEvents() error {
	if !d.isOpen() {
		return d.closedErr()
	}

	var first error
	for n := len(d.rxQueue); n > 0; n-- {
		b := <-d.rxQueue
		if err := d.handleEvent(b); err != nil {
			if first == nil {
				first = err
			}
			d.logger.Debugf("event [% X]: %v", b, err)
		}
	}
	return first
}

func (d *Driver) handleEvent(b []byte) error {
	t, code, p := b[headerOffsetType], b[headerOffsetCode], b[headerLength:]

	switch t {
	case typeWifiEvent:
		if code == evt.ScanDoneCode {
			d.numAP = int(evt.ScanDone(p).NumAP())
		}
		if d.wifi != nil {
			d.wifi(code, p)
		}

	case typeSocketEvent:
		if len(p) < 1 {
			return errors.Errorf("socket event 0x%02x without socket", code)
		}
		if d.sock != nil {
			d.sock(winc.SocketID(int8(p[0])), code, p[1:])
		}

	case typeResolveEvent:
		e := evt.DNSResolve(p)
		host, err := e.HostWErr()
		if err != nil {
			return errors.Wrap(err, "resolve event")
		}
		// a missing address is a failed lookup
		addr, _ := e.AddrWErr()
		if d.resolve != nil {
			d.resolve(host, addr)
		}

	default:
		return errors.Errorf("unexpected frame type 0x%02x", t)
	}
	return nil
}

// send writes a request and waits for its reply. The first reply byte is the
// status; the rest is returned.
func (d *Driver) send(code uint8, payload []byte) ([]byte, error) {
	if !d.isOpen() {
		return nil, d.closedErr()
	}

	ch := make(chan []byte, 1)
	d.muSent.Lock()
	if _, ok := d.sent[code]; ok {
		d.muSent.Unlock()
		return nil, errors.Errorf("request 0x%02x pending", code)
	}
	d.sent[code] = ch
	d.muSent.Unlock()

	defer func() {
		d.muSent.Lock()
		delete(d.sent, code)
		d.muSent.Unlock()
	}()

	b := encodeFrame(typeRequest, code, payload)
	d.wmu.Lock()
	n, err := d.rwc.Write(b)
	d.wmu.Unlock()
	switch {
	case err != nil:
		return nil, errors.Wrapf(err, "can't send request 0x%02x", code)
	case n != len(b):
		return nil, errors.Errorf("short write of request 0x%02x: %d of %d", code, n, len(b))
	}

	// emergency timeout in case the bridge stops answering
	select {
	case <-time.After(replyTimeout):
		err := errors.Errorf("no reply to request 0x%02x: %s", code, hex.EncodeToString(b))
		d.dispatchError(err)
		return nil, err

	case <-d.done:
		return nil, d.closedErr()

	case r := <-ch:
		if len(r) < 1 {
			return nil, errors.Errorf("empty reply to request 0x%02x", code)
		}
		if st := int8(r[0]); st < 0 {
			return nil, ErrCommand{Code: code, Status: st}
		}
		return r[1:], nil
	}
}

func (d *Driver) dispatchError(e error) {
	switch {
	case e == nil:
	case d.errorHandler == nil:
		d.logger.Error(e)
	default:
		d.errorHandler(e)
	}
}
