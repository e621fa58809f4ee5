package bridge

import (
	"encoding/binary"
	"net"
	"net/netip"

	"github.com/pkg/errors"
	"github.com/rigado/winc"
)

// Request codes understood by the bridge firmware.
const (
	reqInit           = 0x01
	reqSocketInit     = 0x02
	reqConnect        = 0x03
	reqDefaultConnect = 0x04
	reqDisconnect     = 0x05
	reqScan           = 0x06
	reqScanResult     = 0x08
	reqRSSI           = 0x09
	reqGetHostByName  = 0x0a
	reqEnableAP       = 0x0b
	reqProvision      = 0x0c
	reqStaticIP       = 0x0d
	reqMACAddress     = 0x0e
	reqFirmwareInfo   = 0x0f
	reqChipID         = 0x10
	reqGPIOSet        = 0x11
	reqGPIODir        = 0x12

	reqListen   = 0x20
	reqRecv     = 0x21
	reqRecvFrom = 0x22
	reqClose    = 0x23
)

// Init opens the link on first use, then asks the bridge to reset the module.
func (d *Driver) Init(h winc.EventHandler) error {
	if d.done == nil {
		if err := d.open(); err != nil {
			return err
		}
	}
	d.wifi = h
	_, err := d.send(reqInit, nil)
	return errors.Wrap(err, "init")
}

func (d *Driver) SocketInit() error {
	_, err := d.send(reqSocketInit, nil)
	return errors.Wrap(err, "socket init")
}

func (d *Driver) RegisterSocketHandlers(s winc.SocketHandler, r winc.ResolveHandler) {
	d.sock = s
	d.resolve = r
}

func (d *Driver) Connect(p winc.ConnectParams) error {
	b := putString(nil, p.SSID)
	b = append(b, byte(p.Auth), byte(p.Channel), p.WEPKeyIndex)
	if p.Auth == winc.SecWEP {
		b = putString(b, p.WEPKey)
	} else {
		b = putString(b, p.Passphrase)
	}
	_, err := d.send(reqConnect, b)
	return err
}

func (d *Driver) DefaultConnect() error {
	_, err := d.send(reqDefaultConnect, nil)
	return err
}

func (d *Driver) Disconnect() error {
	_, err := d.send(reqDisconnect, nil)
	return err
}

func (d *Driver) RequestScan(ch winc.Channel) error {
	_, err := d.send(reqScan, []byte{byte(ch)})
	return err
}

// NumAPFound returns the count carried by the last scan done event.
func (d *Driver) NumAPFound() int {
	return d.numAP
}

func (d *Driver) RequestScanResult(index int) error {
	_, err := d.send(reqScanResult, []byte{byte(index)})
	return err
}

func (d *Driver) RequestRSSI() error {
	_, err := d.send(reqRSSI, nil)
	return err
}

func (d *Driver) GetHostByName(host string) error {
	_, err := d.send(reqGetHostByName, putString(nil, host))
	return err
}

func (d *Driver) EnableAP(cfg winc.APConfig) error {
	_, err := d.send(reqEnableAP, putAPConfig(nil, cfg))
	return err
}

func (d *Driver) StartProvisionMode(cfg winc.APConfig, url string, redirect bool) error {
	b := putAPConfig(nil, cfg)
	b = putString(b, url)
	b = append(b, putBool(redirect))
	_, err := d.send(reqProvision, b)
	return err
}

func (d *Driver) SetStaticIP(cfg winc.IPConfig) error {
	var b []byte
	for _, a := range []netip.Addr{cfg.LocalIP, cfg.DNS, cfg.Gateway, cfg.Subnet} {
		b = putAddr4(b, a)
	}
	_, err := d.send(reqStaticIP, b)
	return err
}

func (d *Driver) MACAddress() (net.HardwareAddr, error) {
	r, err := d.send(reqMACAddress, nil)
	if err != nil {
		return nil, err
	}
	if len(r) < 6 {
		return nil, errors.Errorf("short mac address reply: [% X]", r)
	}
	mac := make(net.HardwareAddr, 6)
	copy(mac, r)
	return mac, nil
}

func (d *Driver) FirmwareInfo() (winc.Revision, error) {
	r, err := d.send(reqFirmwareInfo, nil)
	if err != nil {
		return winc.Revision{}, err
	}
	if len(r) < 3 {
		return winc.Revision{}, errors.Errorf("short firmware info reply: [% X]", r)
	}
	return winc.Revision{FirmwareMajor: r[0], FirmwareMinor: r[1], FirmwarePatch: r[2]}, nil
}

func (d *Driver) ChipID() (uint32, error) {
	r, err := d.send(reqChipID, nil)
	if err != nil {
		return 0, err
	}
	if len(r) < 4 {
		return 0, errors.Errorf("short chip id reply: [% X]", r)
	}
	return binary.LittleEndian.Uint32(r), nil
}

func (d *Driver) GPIOSet(pin winc.GPIO, high bool) error {
	_, err := d.send(reqGPIOSet, []byte{byte(pin), putBool(high)})
	return err
}

func (d *Driver) GPIODir(pin winc.GPIO, output bool) error {
	_, err := d.send(reqGPIODir, []byte{byte(pin), putBool(output)})
	return err
}

func (d *Driver) Listen(id winc.SocketID, backlog int) error {
	_, err := d.send(reqListen, []byte{byte(id), byte(backlog)})
	return err
}

func (d *Driver) Recv(id winc.SocketID, n int) error {
	_, err := d.send(reqRecv, putSizedSock(id, n))
	return err
}

func (d *Driver) RecvFrom(id winc.SocketID, n int) error {
	_, err := d.send(reqRecvFrom, putSizedSock(id, n))
	return err
}

func (d *Driver) Close(id winc.SocketID) error {
	_, err := d.send(reqClose, []byte{byte(id)})
	return err
}

func putString(b []byte, s string) []byte {
	if len(s) > 255 {
		s = s[:255]
	}
	b = append(b, byte(len(s)))
	return append(b, s...)
}

func putAddr4(b []byte, a netip.Addr) []byte {
	if !a.Is4() {
		return append(b, 0, 0, 0, 0)
	}
	a4 := a.As4()
	return append(b, a4[:]...)
}

func putBool(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func putAPConfig(b []byte, cfg winc.APConfig) []byte {
	b = putString(b, cfg.SSID)
	b = append(b, byte(cfg.Channel), byte(cfg.Auth), putBool(cfg.Hidden))
	return putAddr4(b, cfg.Gateway)
}

func putSizedSock(id winc.SocketID, n int) []byte {
	b := []byte{byte(id), 0, 0}
	binary.LittleEndian.PutUint16(b[1:], uint16(n))
	return b
}
