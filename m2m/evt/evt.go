package evt

import (
	"net/netip"
)

func (e ConnStateChanged) CurrState() uint8 {
	v, _ := e.CurrStateWErr()
	return v
}

func (e DHCPConf) Addr() netip.Addr {
	v, _ := e.AddrWErr()
	return v
}

func (e CurrentRSSI) RSSI() int8 {
	v, _ := e.RSSIWErr()
	return v
}

func (e ScanDone) NumAP() uint8 {
	v, _ := e.NumAPWErr()
	return v
}

func (e ScanDone) NumChannels() uint8 {
	v, _ := e.NumChannelsWErr()
	return v
}

func (e ScanResult) Index() uint8 {
	v, _ := e.IndexWErr()
	return v
}

func (e ScanResult) SSID() string {
	v, _ := e.SSIDWErr()
	return v
}

func (e SocketStatus) Status() int8 {
	v, _ := e.StatusWErr()
	return v
}

func (e SocketRecv) Size() int16 {
	v, _ := e.SizeWErr()
	return v
}
