package evt

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
)

func (e ConnStateChanged) CurrStateWErr() (uint8, error) {
	return getByte(e, 0, 0xff)
}

func (e ConnStateChanged) ErrCodeWErr() (uint8, error) {
	return getByte(e, 1, 0)
}

func (e DHCPConf) AddrWErr() (netip.Addr, error) {
	return getAddr4(e, 0)
}

func (e DHCPConf) GatewayWErr() (netip.Addr, error) {
	return getAddr4(e, 4)
}

func (e DHCPConf) DNSWErr() (netip.Addr, error) {
	return getAddr4(e, 8)
}

func (e DHCPConf) SubnetWErr() (netip.Addr, error) {
	return getAddr4(e, 12)
}

func (e CurrentRSSI) RSSIWErr() (int8, error) {
	v, err := getByte(e, 0, 0)
	return int8(v), err
}

// ProvisionInfo layout:
//
//     Status, SecType, SSIDLen, SSID..., PassLen, Pass...

func (e ProvisionInfo) StatusWErr() (uint8, error) {
	return getByte(e, 0, 0xff)
}

func (e ProvisionInfo) SecTypeWErr() (uint8, error) {
	return getByte(e, 1, 0)
}

func (e ProvisionInfo) SSIDWErr() (string, error) {
	s, _, err := getString(e, 2)
	return s, err
}

func (e ProvisionInfo) PasswordWErr() (string, error) {
	_, next, err := getString(e, 2)
	if err != nil {
		return "", err
	}
	s, _, err := getString(e, next)
	return s, err
}

func (e ScanDone) NumAPWErr() (uint8, error) {
	return getByte(e, 0, 0)
}

func (e ScanDone) NumChannelsWErr() (uint8, error) {
	return getByte(e, 1, 0)
}

func (e ScanDone) StateWErr() (int8, error) {
	v, err := getByte(e, 2, 0)
	return int8(v), err
}

// ScanResult layout:
//
//     Index, RSSI, AuthType, Channel, BSSID[6], SSIDLen, SSID...

func (e ScanResult) IndexWErr() (uint8, error) {
	return getByte(e, 0, 0xff)
}

func (e ScanResult) RSSIWErr() (int8, error) {
	v, err := getByte(e, 1, 0)
	return int8(v), err
}

func (e ScanResult) AuthTypeWErr() (uint8, error) {
	return getByte(e, 2, 0)
}

func (e ScanResult) ChannelWErr() (uint8, error) {
	return getByte(e, 3, 0)
}

func (e ScanResult) BSSIDWErr() (net.HardwareAddr, error) {
	bb, err := getBytes(e, 4, 6)
	if err != nil {
		return nil, err
	}
	out := make(net.HardwareAddr, 6)
	copy(out, bb)
	return out, nil
}

func (e ScanResult) SSIDWErr() (string, error) {
	s, _, err := getString(e, 10)
	return s, err
}

func (e SocketStatus) StatusWErr() (int8, error) {
	v, err := getByte(e, 0, 0xff)
	return int8(v), err
}

// SocketAccept layout:
//
//     Sock, Port(BE), IPv4[4]

func (e SocketAccept) SockWErr() (int8, error) {
	v, err := getByte(e, 0, 0xff)
	return int8(v), err
}

func (e SocketAccept) RemoteWErr() (netip.AddrPort, error) {
	return getAddrPort(e, 1)
}

func (e SocketConnect) SockWErr() (int8, error) {
	v, err := getByte(e, 0, 0xff)
	return int8(v), err
}

func (e SocketConnect) ErrorWErr() (int8, error) {
	v, err := getByte(e, 1, 0xff)
	return int8(v), err
}

// SocketRecv layout, shared by recv and recvfrom:
//
//     Size(LE int16), Port(BE), IPv4[4], Data...
//
// A size <= 0 reports a closed or failed socket.

func (e SocketRecv) SizeWErr() (int16, error) {
	v, err := getUint16LE(e, 0, 0)
	return int16(v), err
}

func (e SocketRecv) RemoteWErr() (netip.AddrPort, error) {
	return getAddrPort(e, 2)
}

func (e SocketRecv) DataWErr() ([]byte, error) {
	sz, err := e.SizeWErr()
	if err != nil {
		return nil, err
	}
	if sz <= 0 {
		return nil, nil
	}
	return getBytes(e, 8, int(sz))
}

// DNSResolve layout:
//
//     HostLen, Host..., IPv4[4]

func (e DNSResolve) HostWErr() (string, error) {
	s, _, err := getString(e, 0)
	return s, err
}

func (e DNSResolve) AddrWErr() (netip.Addr, error) {
	_, next, err := getString(e, 0)
	if err != nil {
		return netip.Addr{}, err
	}
	return getAddr4(e, next)
}

//get or default
func getByte(b []byte, i int, def byte) (byte, error) {
	bb, err := getBytes(b, i, 1)
	if err != nil {
		return def, err
	}
	return bb[0], nil
}

//get or default
func getUint16LE(b []byte, i int, def uint16) (uint16, error) {
	bb, err := getBytes(b, i, 2)
	if err != nil {
		return def, err
	}
	return binary.LittleEndian.Uint16(bb), nil
}

func getAddr4(b []byte, i int) (netip.Addr, error) {
	bb, err := getBytes(b, i, 4)
	if err != nil {
		return netip.Addr{}, err
	}
	return netip.AddrFrom4([4]byte{bb[0], bb[1], bb[2], bb[3]}), nil
}

func getAddrPort(b []byte, i int) (netip.AddrPort, error) {
	bb, err := getBytes(b, i, 2)
	if err != nil {
		return netip.AddrPort{}, err
	}
	a, err := getAddr4(b, i+2)
	if err != nil {
		return netip.AddrPort{}, err
	}
	return netip.AddrPortFrom(a, binary.BigEndian.Uint16(bb)), nil
}

// getString reads a u8 length prefixed string at i and returns the index after it.
func getString(b []byte, i int) (string, int, error) {
	l, err := getByte(b, i, 0)
	if err != nil {
		return "", i, err
	}
	if l == 0 {
		return "", i + 1, nil
	}
	bb, err := getBytes(b, i+1, int(l))
	if err != nil {
		return "", i, err
	}
	return string(bb), i + 1 + int(l), nil
}

func getBytes(bytes []byte, start int, count int) ([]byte, error) {
	if bytes == nil || start >= len(bytes) {
		return nil, fmt.Errorf("index error")
	}

	if count < 0 {
		return bytes[start:], nil
	}

	end := start + count
	//end is non-inclusive
	if end > len(bytes) {
		return nil, fmt.Errorf("index error")
	}

	return bytes[start:end], nil
}
