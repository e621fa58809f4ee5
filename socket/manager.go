package socket

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/rigado/winc"
	"github.com/rigado/winc/m2m/evt"
)

type handlerFn func(b *Buffer, payload []byte) error

// Manager owns the receive buffers of all registered sockets and turns the
// module's socket notifications into buffered data and role flags.
type Manager struct {
	drv   winc.SocketDriver
	table map[ID]*Buffer

	// notifications for ids with no entry
	dropped int

	evth         map[uint8]handlerFn
	logger       winc.Logger
	errorHandler func(error)
}

// NewManager returns an empty manager issuing socket requests through drv.
func NewManager(drv winc.SocketDriver) *Manager {
	m := &Manager{
		drv:    drv,
		table:  map[ID]*Buffer{},
		logger: winc.ComponentLogger("socket"),
	}

	m.evth = map[uint8]handlerFn{
		evt.SocketBindCode:     m.handleBind,
		evt.SocketListenCode:   m.handleListen,
		evt.SocketAcceptCode:   m.handleAccept,
		evt.SocketConnectCode:  m.handleConnect,
		evt.SocketRecvCode:     m.handleRecv,
		evt.SocketRecvFromCode: m.handleRecvFrom,
		evt.SocketSendCode:     m.handleSend,
		evt.SocketSendToCode:   m.handleSend,
	}
	return m
}

// Init drops every entry.
func (m *Manager) Init() {
	m.table = map[ID]*Buffer{}
	m.dropped = 0
}

func (m *Manager) SetErrorHandler(handler func(error)) {
	m.errorHandler = handler
}

func (m *Manager) SetLogger(l winc.Logger) {
	m.logger = l
}

// Register creates the entry for id, replacing any previous one.
func (m *Manager) Register(id ID, kind Kind) *Buffer {
	if _, ok := m.table[id]; ok {
		m.logger.Debugf("socket %d re-registered as %v", id, kind)
	}
	b := newBuffer(m, id, kind)
	m.table[id] = b
	return b
}

// Unregister releases the entry for id. Later notifications for it are dropped.
func (m *Manager) Unregister(id ID) {
	delete(m.table, id)
}

func (m *Manager) Lookup(id ID) (*Buffer, bool) {
	b, ok := m.table[id]
	return b, ok
}

// IDs returns the registered ids in ascending order.
func (m *Manager) IDs() []ID {
	ids := make([]ID, 0, len(m.table))
	for id := range m.table {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Dropped is the number of notifications that arrived for unregistered ids.
func (m *Manager) Dropped() int { return m.dropped }

// Accept takes the most recently accepted child of a listening socket.
func (m *Manager) Accept(parent ID) (ID, bool) {
	b, ok := m.table[parent]
	if !ok || !b.listening() {
		return 0, false
	}
	c := b.flags & ChildMask
	if c == 0 {
		return 0, false
	}
	b.flags &^= ChildMask
	return ID(c - 1), true
}

// Handle is the socket notification handler given to the driver.
func (m *Manager) Handle(id winc.SocketID, msg uint8, payload []byte) {
	b, ok := m.table[id]
	if !ok {
		m.dropped++
		m.logger.Debugf("socket %d not registered, dropping msg %d", id, msg)
		return
	}

	f, found := m.evth[msg]
	if !found {
		m.logger.Debugf("socket %d: unhandled msg %d: [% X]", id, msg, payload)
		return
	}

	if err := f(b, payload); err != nil {
		m.dispatchError(errors.Wrapf(err, "socket %d msg %d", id, msg))
	}
}

func (m *Manager) handleBind(b *Buffer, payload []byte) error {
	st, err := evt.SocketStatus(payload).StatusWErr()
	if err != nil {
		return err
	}
	if st != 0 {
		return m.close(b)
	}

	if b.kind == Datagram {
		b.flags |= FlagBound
		return m.arm(b)
	}
	return errors.Wrap(m.drv.Listen(b.id, 0), "can't listen")
}

func (m *Manager) handleListen(b *Buffer, payload []byte) error {
	st, err := evt.SocketStatus(payload).StatusWErr()
	if err != nil {
		return err
	}
	if st != 0 {
		return m.close(b)
	}
	b.flags |= FlagBound
	return nil
}

func (m *Manager) handleAccept(b *Buffer, payload []byte) error {
	e := evt.SocketAccept(payload)
	child, err := e.SockWErr()
	if err != nil {
		return err
	}
	if child < 0 {
		m.logger.Debugf("socket %d: accept failed (%d)", b.id, child)
		return nil
	}

	b.flags = (b.flags &^ ChildMask) | Flag(child+1)

	// a reused id starts over; nothing of the previous peer survives
	cb := m.Register(ID(child), Stream)
	cb.flags |= FlagConnected | FlagSpawned
	cb.remote, _ = e.RemoteWErr()
	return m.arm(cb)
}

func (m *Manager) handleConnect(b *Buffer, payload []byte) error {
	e := evt.SocketConnect(payload)
	code, err := e.ErrorWErr()
	if err != nil {
		return err
	}
	if code < 0 {
		b.flags &^= FlagConnected
		return m.close(b)
	}
	b.flags |= FlagConnected
	return m.arm(b)
}

func (m *Manager) handleRecv(b *Buffer, payload []byte) error {
	e := evt.SocketRecv(payload)
	sz, err := e.SizeWErr()
	if err != nil {
		return err
	}
	if sz <= 0 {
		b.flags &^= FlagConnected
		return nil
	}

	data, err := e.DataWErr()
	if err != nil {
		return err
	}
	b.appendStream(data)
	if b.Full() {
		m.logger.Debugf("socket %d full, %d bytes dropped so far", b.id, b.dropped)
	}
	if b.stalled {
		return nil
	}
	return m.arm(b)
}

func (m *Manager) handleRecvFrom(b *Buffer, payload []byte) error {
	e := evt.SocketRecv(payload)
	sz, err := e.SizeWErr()
	if err != nil {
		return err
	}
	if sz >= 0 {
		data, err := e.DataWErr()
		if err != nil {
			return err
		}
		from, err := e.RemoteWErr()
		if err != nil {
			return err
		}
		if !b.appendDatagram(from, data) {
			m.logger.Debugf("socket %d full, dropped %d byte datagram", b.id, len(data))
		}
	}
	if b.stalled {
		return nil
	}
	return m.arm(b)
}

func (m *Manager) handleSend(b *Buffer, payload []byte) error {
	if sent, err := evt.SocketStatus(payload).StatusWErr(); err == nil && sent < 0 {
		m.logger.Debugf("socket %d: send failed (%d)", b.id, sent)
	}
	return nil
}

// drained is called after the consumer took data out of b.
func (m *Manager) drained(b *Buffer) {
	if !b.stalled && !b.Full() {
		return
	}
	if b.free() < b.threshold() {
		return
	}
	b.flags &^= FlagFull
	b.stalled = false
	if err := m.arm(b); err != nil {
		m.dispatchError(err)
	}
}

func (m *Manager) arm(b *Buffer) error {
	var err error
	if b.kind == Datagram {
		err = m.drv.RecvFrom(b.id, MTU)
	} else {
		err = m.drv.Recv(b.id, MTU)
	}
	return errors.Wrapf(err, "can't arm receive on socket %d", b.id)
}

func (m *Manager) close(b *Buffer) error {
	return errors.Wrapf(m.drv.Close(b.id), "can't close socket %d", b.id)
}

func (m *Manager) dispatchError(e error) {
	if m.errorHandler == nil {
		m.logger.Error(e)
		return
	}
	m.errorHandler(e)
}
