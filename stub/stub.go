// Package stub provides a scriptable in-memory winc.Driver for tests and
// dry runs. Requests are recorded; notifications are queued by the test and
// delivered from HandleEvents on a chosen pump.
package stub

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/rigado/winc"
	"github.com/rigado/winc/m2m/evt"
)

// DefaultChipID is the identity reported unless ID is changed.
const DefaultChipID = 0x1502b1

const (
	kindWifi = iota
	kindSocket
	kindResolve
)

type event struct {
	kind    int
	due     int
	code    uint8
	payload []byte
	sock    winc.SocketID
	host    string
	addr    netip.Addr
}

// GPIOWrite is one recorded pin operation.
type GPIOWrite struct {
	Pin  winc.GPIO
	High bool
	Dir  bool
}

// Driver is a fake module. Set the *Err fields to make the matching request
// fail synchronously.
type Driver struct {
	InitErr           error
	SocketInitErr     error
	HandleErr         error
	ConnectErr        error
	DefaultConnectErr error
	DisconnectErr     error
	ScanErr           error
	ScanResultErr     error
	RSSIErr           error
	ResolveErr        error
	APErr             error
	ProvisionErr      error
	StaticIPErr       error
	ChipIDErr         error
	SocketErr         error

	ID  uint32
	MAC net.HardwareAddr
	Rev winc.Revision

	// NumAP is reported by NumAPFound. A delivered scan done event updates it.
	NumAP int

	// Hook runs after every recorded request, e.g. to queue its reply.
	Hook func(call string)

	Calls     []string
	Pumps     int
	GPIO      []GPIOWrite
	Connects  []winc.ConnectParams
	APs       []winc.APConfig
	StaticIPs []winc.IPConfig

	wifi    winc.EventHandler
	sock    winc.SocketHandler
	resolve winc.ResolveHandler
	queue   []event
}

func New() *Driver {
	return &Driver{
		ID:  DefaultChipID,
		MAC: net.HardwareAddr{0xf8, 0xf0, 0x05, 0x01, 0x02, 0x03},
		Rev: winc.Revision{FirmwareMajor: 19, FirmwareMinor: 7, FirmwarePatch: 7},
	}
}

// Queue delivers a wifi notification on the next pump.
func (d *Driver) Queue(code uint8, payload []byte) {
	d.QueueAfter(1, code, payload)
}

// QueueAfter delivers a wifi notification n pumps from now.
func (d *Driver) QueueAfter(n int, code uint8, payload []byte) {
	d.queue = append(d.queue, event{kind: kindWifi, due: d.Pumps + n, code: code, payload: payload})
}

// QueueSocket delivers a socket notification on the next pump.
func (d *Driver) QueueSocket(id winc.SocketID, msg uint8, payload []byte) {
	d.queue = append(d.queue, event{kind: kindSocket, due: d.Pumps + 1, sock: id, code: msg, payload: payload})
}

// QueueResolve delivers a lookup result on the next pump.
func (d *Driver) QueueResolve(host string, addr netip.Addr) {
	d.queue = append(d.queue, event{kind: kindResolve, due: d.Pumps + 1, host: host, addr: addr})
}

// Pending is the number of queued notifications not yet delivered.
func (d *Driver) Pending() int { return len(d.queue) }

func (d *Driver) record(call string, err error) error {
	d.Calls = append(d.Calls, call)
	if d.Hook != nil {
		d.Hook(call)
	}
	return err
}

func (d *Driver) Init(h winc.EventHandler) error {
	if d.InitErr == nil {
		d.wifi = h
	}
	return d.record("init", d.InitErr)
}

func (d *Driver) SocketInit() error {
	return d.record("socket-init", d.SocketInitErr)
}

func (d *Driver) RegisterSocketHandlers(s winc.SocketHandler, r winc.ResolveHandler) {
	d.sock = s
	d.resolve = r
}

// HandleEvents delivers every notification due at this pump, in queue order.
func (d *Driver) HandleEvents() error {
	d.Pumps++
	if d.HandleErr != nil {
		return d.HandleErr
	}

	var due, rest []event
	for _, e := range d.queue {
		if e.due <= d.Pumps {
			due = append(due, e)
		} else {
			rest = append(rest, e)
		}
	}
	d.queue = rest

	for _, e := range due {
		switch e.kind {
		case kindWifi:
			if e.code == evt.ScanDoneCode {
				d.NumAP = int(evt.ScanDone(e.payload).NumAP())
			}
			if d.wifi != nil {
				d.wifi(e.code, e.payload)
			}
		case kindSocket:
			if d.sock != nil {
				d.sock(e.sock, e.code, e.payload)
			}
		case kindResolve:
			if d.resolve != nil {
				d.resolve(e.host, e.addr)
			}
		}
	}
	return nil
}

func (d *Driver) Connect(p winc.ConnectParams) error {
	d.Connects = append(d.Connects, p)
	return d.record("connect "+p.SSID, d.ConnectErr)
}

func (d *Driver) DefaultConnect() error {
	return d.record("default-connect", d.DefaultConnectErr)
}

func (d *Driver) Disconnect() error {
	return d.record("disconnect", d.DisconnectErr)
}

func (d *Driver) RequestScan(ch winc.Channel) error {
	return d.record(fmt.Sprintf("scan %d", ch), d.ScanErr)
}

func (d *Driver) NumAPFound() int {
	return d.NumAP
}

func (d *Driver) RequestScanResult(index int) error {
	return d.record(fmt.Sprintf("scan-result %d", index), d.ScanResultErr)
}

func (d *Driver) RequestRSSI() error {
	return d.record("rssi", d.RSSIErr)
}

func (d *Driver) GetHostByName(host string) error {
	return d.record("resolve "+host, d.ResolveErr)
}

func (d *Driver) EnableAP(cfg winc.APConfig) error {
	d.APs = append(d.APs, cfg)
	return d.record("ap "+cfg.SSID, d.APErr)
}

func (d *Driver) StartProvisionMode(cfg winc.APConfig, url string, redirect bool) error {
	d.APs = append(d.APs, cfg)
	return d.record(fmt.Sprintf("provision %s %s", cfg.SSID, url), d.ProvisionErr)
}

func (d *Driver) SetStaticIP(cfg winc.IPConfig) error {
	d.StaticIPs = append(d.StaticIPs, cfg)
	return d.record("static-ip "+cfg.LocalIP.String(), d.StaticIPErr)
}

func (d *Driver) MACAddress() (net.HardwareAddr, error) {
	return d.MAC, nil
}

func (d *Driver) FirmwareInfo() (winc.Revision, error) {
	return d.Rev, nil
}

func (d *Driver) ChipID() (uint32, error) {
	return d.ID, d.ChipIDErr
}

func (d *Driver) GPIOSet(pin winc.GPIO, high bool) error {
	d.GPIO = append(d.GPIO, GPIOWrite{Pin: pin, High: high})
	return nil
}

func (d *Driver) GPIODir(pin winc.GPIO, output bool) error {
	d.GPIO = append(d.GPIO, GPIOWrite{Pin: pin, High: output, Dir: true})
	return nil
}

// Pin returns the recorded levels written to pin, oldest first.
func (d *Driver) Pin(pin winc.GPIO) []bool {
	var out []bool
	for _, w := range d.GPIO {
		if w.Pin == pin && !w.Dir {
			out = append(out, w.High)
		}
	}
	return out
}

func (d *Driver) Listen(id winc.SocketID, backlog int) error {
	return d.record(fmt.Sprintf("listen %d", id), d.SocketErr)
}

func (d *Driver) Recv(id winc.SocketID, n int) error {
	return d.record(fmt.Sprintf("recv %d", id), d.SocketErr)
}

func (d *Driver) RecvFrom(id winc.SocketID, n int) error {
	return d.record(fmt.Sprintf("recvfrom %d", id), d.SocketErr)
}

func (d *Driver) Close(id winc.SocketID) error {
	return d.record(fmt.Sprintf("close %d", id), d.SocketErr)
}
