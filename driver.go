package winc

import (
	"fmt"
	"net"
	"net/netip"
)

// EventHandler receives wifi notifications. It is only invoked from inside
// Driver.HandleEvents.
type EventHandler func(code uint8, payload []byte)

// SocketID identifies a socket on the module.
type SocketID int8

// SocketHandler receives socket notifications, see socket.Manager.Handle.
type SocketHandler func(id SocketID, msg uint8, payload []byte)

// ResolveHandler receives the outcome of a host name lookup. An invalid or
// unspecified addr means the lookup failed.
type ResolveHandler func(host string, addr netip.Addr)

// Driver is the lower boundary to the vendor driver running the module.
// Requests either fail synchronously or are accepted and report their
// outcome later through a handler called from HandleEvents.
type Driver interface {
	Init(h EventHandler) error
	SocketInit() error
	RegisterSocketHandlers(s SocketHandler, r ResolveHandler)

	// HandleEvents runs the handlers for every pending notification once.
	HandleEvents() error

	Connect(p ConnectParams) error
	DefaultConnect() error
	Disconnect() error
	RequestScan(ch Channel) error
	NumAPFound() int
	RequestScanResult(index int) error
	RequestRSSI() error
	GetHostByName(host string) error
	EnableAP(cfg APConfig) error
	StartProvisionMode(cfg APConfig, url string, redirect bool) error
	SetStaticIP(cfg IPConfig) error

	MACAddress() (net.HardwareAddr, error)
	FirmwareInfo() (Revision, error)
	ChipID() (uint32, error)

	GPIOSet(pin GPIO, high bool) error
	GPIODir(pin GPIO, output bool) error

	SocketDriver
}

// SocketDriver is the part of Driver used by the socket buffer layer.
type SocketDriver interface {
	Listen(id SocketID, backlog int) error
	Recv(id SocketID, n int) error
	RecvFrom(id SocketID, n int) error
	Close(id SocketID) error
}

// ConnectParams describes a station connect request.
type ConnectParams struct {
	SSID    string
	Auth    AuthType
	Channel Channel

	// Passphrase is the WPA passphrase or a 64 character hex PSK.
	Passphrase string

	WEPKeyIndex uint8
	WEPKey      string
}

// APConfig describes the network hosted in access point and provisioning mode.
type APConfig struct {
	SSID    string
	Channel Channel
	Auth    AuthType
	Hidden  bool
	Gateway netip.Addr
}

// IPConfig is a static address configuration.
type IPConfig struct {
	LocalIP netip.Addr
	DNS     netip.Addr
	Gateway netip.Addr
	Subnet  netip.Addr
}

// Revision is the firmware revision reported by the module.
type Revision struct {
	FirmwareMajor uint8
	FirmwareMinor uint8
	FirmwarePatch uint8
}

func (r Revision) String() string {
	return fmt.Sprintf("%d.%d.%d", r.FirmwareMajor, r.FirmwareMinor, r.FirmwarePatch)
}

// ScanResult is one access point found by a scan.
type ScanResult struct {
	Index   int              `json:"index"`
	SSID    string           `json:"ssid"`
	RSSI    int8             `json:"rssi"`
	Auth    AuthType         `json:"auth"`
	Channel Channel          `json:"channel"`
	BSSID   net.HardwareAddr `json:"bssid,omitempty"`
}
