package m2m

import (
	"fmt"
	"net/netip"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/winc"
	"github.com/rigado/winc/m2m/evt"
	"github.com/rigado/winc/socket"
	"github.com/rigado/winc/stub"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time        { return f.t }
func (f *fakeClock) Sleep(d time.Duration) { f.t = f.t.Add(d) }

var epoch = time.Unix(1000, 0)

func newTestController(t *testing.T, opts ...winc.Option) (*Controller, *stub.Driver, *fakeClock) {
	t.Helper()
	d := stub.New()
	c, err := NewController(d, opts...)
	if err != nil {
		t.Fatal(err)
	}
	clk := &fakeClock{t: epoch}
	c.clock = clk
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	return c, d, clk
}

func connState(s uint8) []byte {
	return []byte{s, 0}
}

func scanResult(idx uint8, rssi int8, auth winc.AuthType, ch uint8, ssid string) []byte {
	b := []byte{idx, byte(rssi), byte(auth), ch, 0x10, 0x20, 0x30, 0x40, 0x50, byte(idx), byte(len(ssid))}
	return append(b, ssid...)
}

func provisionInfo(status uint8, sec winc.AuthType, ssid, pass string) []byte {
	b := []byte{status, byte(sec), byte(len(ssid))}
	b = append(b, ssid...)
	b = append(b, byte(len(pass)))
	return append(b, pass...)
}

func TestInit(t *testing.T) {
	d := stub.New()
	c, err := NewController(d)
	if err != nil {
		t.Fatal(err)
	}
	if c.status != winc.NoShield || c.mode != winc.ModeReset {
		t.Fatalf("initial %v %v", c.status, c.mode)
	}

	// lazy
	if st := c.Status(); st != winc.Idle {
		t.Fatalf("status %v", st)
	}
	if len(d.Calls) != 2 || d.Calls[0] != "init" || d.Calls[1] != "socket-init" {
		t.Fatalf("calls %v", d.Calls)
	}
	for _, pin := range []winc.GPIO{winc.GPIO15, winc.GPIO16, winc.GPIO18} {
		lv := d.Pin(pin)
		if len(lv) != 1 || !lv[0] {
			t.Fatalf("gpio %d levels %v", pin, lv)
		}
	}

	// once
	c.Status()
	if len(d.Calls) != 2 {
		t.Fatalf("init ran twice: %v", d.Calls)
	}
}

func TestInitFailure(t *testing.T) {
	d := stub.New()
	d.InitErr = fmt.Errorf("spi timeout")
	c, _ := NewController(d)

	if err := c.Init(); err == nil {
		t.Fatal("no error")
	}
	// error led on
	if lv := d.Pin(winc.GPIO18); len(lv) != 1 || lv[0] {
		t.Fatalf("gpio18 levels %v", lv)
	}
	if len(d.GPIO) != 2 || !d.GPIO[1].Dir {
		t.Fatalf("gpio %v", d.GPIO)
	}
	if c.Status() != winc.NoShield {
		t.Fatalf("status %v", c.status)
	}
	if _, err := c.RSSI(); err == nil {
		t.Fatal("rssi without a module")
	}
}

func TestChipMismatch(t *testing.T) {
	d := stub.New()
	d.ID = 0x1503a0
	c, _ := NewController(d)

	if c.Status() != winc.NoShield {
		t.Fatalf("status %v", c.status)
	}
	if _, err := c.Begin("net"); errors.Cause(err) != winc.ErrNoShield {
		t.Fatalf("expected no shield, got %v", err)
	}
	if len(d.Connects) != 0 {
		t.Fatal("connect sent to unknown chip")
	}

	if err := c.Disconnect(); err != nil {
		t.Fatal(err)
	}
	if d.Calls[len(d.Calls)-1] != "disconnect" {
		t.Fatalf("calls %v", d.Calls)
	}

	// accepted with an override
	d2 := stub.New()
	d2.ID = 0x1503a0
	c2, _ := NewController(d2, winc.OptChipID(0x1503a0))
	if c2.Status() != winc.Idle {
		t.Fatalf("status %v", c2.status)
	}
}

func TestConnectSubmitRejected(t *testing.T) {
	c, d, _ := newTestController(t)
	d.ConnectErr = fmt.Errorf("busy")

	st, err := c.BeginWPA("net", "password")
	if err == nil {
		t.Fatal("no error")
	}
	if st != winc.ConnectFailed || c.Status() != winc.ConnectFailed {
		t.Fatalf("status %v", st)
	}
	if c.Mode() != winc.ModeReset {
		t.Fatalf("mode %v", c.Mode())
	}
	if d.Pumps != 0 {
		t.Fatalf("pumped %d times", d.Pumps)
	}
}

func TestConnect(t *testing.T) {
	c, d, clk := newTestController(t)
	d.QueueAfter(3, evt.ConnStateChangedCode, connState(evt.StateConnected))

	st, err := c.Begin("guest")
	if err != nil {
		t.Fatal(err)
	}
	if st != winc.Connected || c.Mode() != winc.ModeStation {
		t.Fatalf("%v %v", st, c.Mode())
	}
	if c.SSID() != "guest" {
		t.Fatalf("ssid %q", c.SSID())
	}
	if d.Pumps != 3 {
		t.Fatalf("pumps %d", d.Pumps)
	}
	if clk.t.Sub(epoch) < dhcpSettle {
		t.Fatalf("no settle delay, elapsed %v", clk.t.Sub(epoch))
	}
	if p := d.Connects[0]; p.Auth != winc.SecOpen || p.Channel != winc.ChannelAll {
		t.Fatalf("params %+v", p)
	}
}

func TestConnectTimeout(t *testing.T) {
	c, d, clk := newTestController(t)

	st, err := c.BeginWEP("lab", 1, "0123456789")
	if errors.Cause(err) != winc.ErrTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if st != winc.Idle {
		t.Fatalf("status %v", st)
	}
	if c.Mode() != winc.ModeReset {
		t.Fatalf("mode %v", c.Mode())
	}
	if el := clk.t.Sub(epoch); el < connectTimeout {
		t.Fatalf("gave up after %v", el)
	}
	if c.SSID() != "" {
		t.Fatalf("ssid %q while not connected", c.SSID())
	}
	if p := d.Connects[0]; p.WEPKeyIndex != 1 || p.WEPKey != "0123456789" {
		t.Fatalf("params %+v", p)
	}
}

func TestConnectRejectedByNetwork(t *testing.T) {
	c, d, _ := newTestController(t)
	d.Queue(evt.ConnStateChangedCode, connState(evt.StateDisconnected))

	st, err := c.BeginWPA("net", "wrongpass")
	if err == nil || errors.Cause(err) == winc.ErrTimeout {
		t.Fatalf("err %v", err)
	}
	if st != winc.Disconnected || c.Mode() != winc.ModeReset {
		t.Fatalf("%v %v", st, c.Mode())
	}
	if d.Pumps != 1 {
		t.Fatalf("pumps %d", d.Pumps)
	}
	// wifi led off
	if lv := d.Pin(winc.GPIO15); lv[len(lv)-1] != true {
		t.Fatalf("gpio15 %v", lv)
	}
}

func TestBeginDefault(t *testing.T) {
	c, d, clk := newTestController(t)
	d.Queue(evt.ConnStateChangedCode, connState(evt.StateConnected))

	st, err := c.BeginDefault()
	if err != nil {
		t.Fatal(err)
	}
	if st != winc.Connected || c.SSID() != "" {
		t.Fatalf("%v %q", st, c.SSID())
	}
	if clk.t.Sub(epoch) >= dhcpSettle {
		t.Fatalf("settled %v", clk.t.Sub(epoch))
	}
	if d.Calls[len(d.Calls)-1] != "default-connect" {
		t.Fatalf("calls %v", d.Calls)
	}
}

func TestDHCPAndDisconnect(t *testing.T) {
	c, d, _ := newTestController(t)
	d.Queue(evt.ConnStateChangedCode, connState(evt.StateConnected))
	if _, err := c.Begin("net"); err != nil {
		t.Fatal(err)
	}

	d.Queue(evt.DHCPConfCode, []byte{192, 168, 0, 42, 192, 168, 0, 1, 8, 8, 8, 8, 255, 255, 255, 0})
	c.Refresh()
	if c.LocalIP() != netip.MustParseAddr("192.168.0.42") {
		t.Fatalf("ip %v", c.LocalIP())
	}
	if lv := d.Pin(winc.GPIO15); lv[len(lv)-1] != false {
		t.Fatalf("wifi led %v", lv)
	}

	d.Queue(evt.ConnStateChangedCode, connState(evt.StateDisconnected))
	c.Refresh()
	if c.Status() != winc.Disconnected || c.LocalIP().IsValid() {
		t.Fatalf("%v %v", c.Status(), c.LocalIP())
	}
	if lv := d.Pin(winc.GPIO15); lv[len(lv)-1] != true {
		t.Fatalf("wifi led %v", lv)
	}
}

func TestDHCPIgnoredOutsideStation(t *testing.T) {
	c, d, _ := newTestController(t)
	if _, err := c.BeginAP("ap", 6); err != nil {
		t.Fatal(err)
	}

	d.Queue(evt.DHCPConfCode, []byte{10, 0, 0, 5})
	d.Queue(evt.ConnStateChangedCode, connState(evt.StateDisconnected))
	c.Refresh()

	if c.LocalIP() != apGateway {
		t.Fatalf("ip %v", c.LocalIP())
	}
	if c.Status() != winc.Connected {
		t.Fatalf("status %v", c.Status())
	}
}

func TestBeginAP(t *testing.T) {
	c, d, _ := newTestController(t)

	st, err := c.BeginAP("setup", 6)
	if err != nil {
		t.Fatal(err)
	}
	if st != winc.Connected || c.Mode() != winc.ModeAP {
		t.Fatalf("%v %v", st, c.Mode())
	}
	if c.LocalIP() != netip.MustParseAddr("192.168.1.1") || c.SSID() != "setup" {
		t.Fatalf("%v %q", c.LocalIP(), c.SSID())
	}
	cfg := d.APs[0]
	if cfg.Channel != 6 || cfg.Auth != winc.SecOpen || cfg.Gateway != apGateway {
		t.Fatalf("cfg %+v", cfg)
	}
	if lv := d.Pin(winc.GPIO15); lv[len(lv)-1] != false {
		t.Fatalf("wifi led %v", lv)
	}
	if d.Pumps != 0 {
		t.Fatalf("pumps %d", d.Pumps)
	}

	d.APErr = fmt.Errorf("bad channel")
	if st, err := c.BeginAP("setup", 15); err == nil || st != winc.ConnectFailed {
		t.Fatalf("%v %v", st, err)
	}
}

func TestProvision(t *testing.T) {
	c, d, _ := newTestController(t)

	st, err := c.BeginProvision("winc-setup", "wincconf.net", 11)
	if err != nil {
		t.Fatal(err)
	}
	if st != winc.Connected || c.Mode() != winc.ModeProvisioning {
		t.Fatalf("%v %v", st, c.Mode())
	}
	if d.APs[0].Channel != 11 || d.APs[0].Hidden {
		t.Fatalf("cfg %+v", d.APs[0])
	}
	if c.Provisioned() {
		t.Fatal("provisioned before credentials arrived")
	}

	d.Queue(evt.ProvisionInfoCode, provisionInfo(0, winc.SecWPAPSK, "home", "secret123"))
	d.QueueAfter(2, evt.ConnStateChangedCode, connState(evt.StateConnected))
	c.Refresh()

	if !c.Provisioned() {
		t.Fatalf("mode %v", c.Mode())
	}
	p := d.Connects[0]
	if p.SSID != "home" || p.Auth != winc.SecWPAPSK || p.Passphrase != "secret123" || p.Channel != winc.ChannelAll {
		t.Fatalf("params %+v", p)
	}

	c.Refresh()
	if c.Status() != winc.Connected || c.SSID() != "home" {
		t.Fatalf("%v %q", c.Status(), c.SSID())
	}
}

func TestProvisionFailure(t *testing.T) {
	c, d, _ := newTestController(t)
	c.BeginProvision("winc-setup", "wincconf.net", 1)

	d.Queue(evt.ProvisionInfoCode, provisionInfo(1, 0, "", ""))
	c.Refresh()
	if c.Status() != winc.ConnectFailed {
		t.Fatalf("status %v", c.Status())
	}
	if len(d.Connects) != 0 {
		t.Fatal("connected without credentials")
	}
}

func TestPrecomputePSK(t *testing.T) {
	c, d, _ := newTestController(t, winc.OptPrecomputePSK(true))
	d.Queue(evt.ConnStateChangedCode, connState(evt.StateConnected))

	if _, err := c.BeginWPA("IEEE", "password"); err != nil {
		t.Fatal(err)
	}
	exp := "f42c6fc52df0ebef9ebb4b90b38a5f902e83fe1b135a70e23aed762e9710a12e"
	if d.Connects[0].Passphrase != exp {
		t.Fatalf("psk %v", d.Connects[0].Passphrase)
	}
}

func TestScanNetworks(t *testing.T) {
	c, d, _ := newTestController(t)
	d.Queue(evt.ConnStateChangedCode, connState(evt.StateConnected))
	c.Begin("net")

	d.Queue(evt.ScanResultCode, scanResult(0, -40, winc.SecWPAPSK, 1, "a"))
	d.Queue(evt.ScanResultCode, scanResult(1, -70, winc.SecOpen, 6, "b"))
	d.Queue(evt.ScanDoneCode, []byte{2, 14, 0})

	n, err := c.ScanNetworks()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("found %d", n)
	}
	if c.Status() != winc.Connected {
		t.Fatalf("status not restored: %v", c.Status())
	}
}

func TestScanNetworksTimeout(t *testing.T) {
	c, d, clk := newTestController(t)

	n, err := c.ScanNetworks()
	if errors.Cause(err) != winc.ErrTimeout || n != 0 {
		t.Fatalf("%d %v", n, err)
	}
	if c.Status() != winc.Idle {
		t.Fatalf("status %v", c.Status())
	}
	if clk.t.Sub(epoch) < scanTimeout {
		t.Fatalf("elapsed %v", clk.t.Sub(epoch))
	}

	d.ScanErr = fmt.Errorf("busy")
	pumps := d.Pumps
	if _, err := c.ScanNetworks(); err == nil || d.Pumps != pumps {
		t.Fatalf("err %v, pumps %d", err, d.Pumps-pumps)
	}
}

func TestScanResult(t *testing.T) {
	c, d, _ := newTestController(t)
	c.status = winc.Disconnected
	d.Hook = func(call string) {
		if call == "scan-result 1" {
			d.Queue(evt.ScanResultCode, scanResult(1, -63, winc.SecWEP, 11, "cafe"))
		}
	}

	r, err := c.ScanResult(1)
	if err != nil {
		t.Fatal(err)
	}
	if r.SSID != "cafe" || r.RSSI != -63 || r.Auth != winc.SecWEP || r.Channel != 11 {
		t.Fatalf("result %+v", r)
	}
	if r.BSSID.String() != "10:20:30:40:50:01" {
		t.Fatalf("bssid %v", r.BSSID)
	}
	if c.status != winc.Disconnected {
		t.Fatalf("status not restored: %v", c.status)
	}

	if c.SSIDAt(1) != "cafe" || c.RSSIAt(1) != -63 || c.EncryptionTypeAt(1) != winc.SecWEP {
		t.Fatal("convenience accessors")
	}

	// no reply: the previous result must not come back
	if _, err := c.ScanResult(2); errors.Cause(err) != winc.ErrTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if c.SSIDAt(2) != "" || c.RSSIAt(2) != 0 || c.EncryptionTypeAt(2) != winc.SecInvalid {
		t.Fatal("stale scan result")
	}
	if c.status != winc.Disconnected {
		t.Fatalf("status not restored: %v", c.status)
	}
}

func TestScanResultIndexMismatch(t *testing.T) {
	c, d, _ := newTestController(t)
	d.Hook = func(call string) {
		if call == "scan-result 3" {
			d.Queue(evt.ScanResultCode, scanResult(0, -50, winc.SecOpen, 1, "x"))
		}
	}
	if _, err := c.ScanResult(3); errors.Cause(err) != winc.ErrNoResult {
		t.Fatalf("expected no result, got %v", err)
	}
}

func TestRSSI(t *testing.T) {
	c, d, _ := newTestController(t)

	d.Queue(evt.CurrentRSSICode, []byte{0xc9})
	v, err := c.RSSI()
	if err != nil || v != -55 {
		t.Fatalf("%v %v", v, err)
	}

	// reset before every request
	v, err = c.RSSI()
	if errors.Cause(err) != winc.ErrTimeout || v != 0 {
		t.Fatalf("stale rssi %v %v", v, err)
	}

	// 0 dBm is a reading
	d.Queue(evt.CurrentRSSICode, []byte{0})
	if v, err := c.RSSI(); err != nil || v != 0 {
		t.Fatalf("%v %v", v, err)
	}

	d.RSSIErr = fmt.Errorf("not connected")
	if _, err := c.RSSI(); err == nil {
		t.Fatal("no error on rejected request")
	}
}

func TestResolve(t *testing.T) {
	c, d, _ := newTestController(t)
	exp := netip.MustParseAddr("93.184.216.34")
	d.Hook = func(call string) {
		if call == "resolve example.com" {
			d.QueueResolve("example.com", exp)
		}
	}

	before := len(d.Pin(winc.GPIO16))
	addr, err := c.Resolve("example.com")
	if err != nil {
		t.Fatal(err)
	}
	if addr != exp {
		t.Fatalf("addr %v", addr)
	}
	lv := d.Pin(winc.GPIO16)[before:]
	if len(lv) != 2 || lv[0] != false || lv[1] != true {
		t.Fatalf("network led %v", lv)
	}
}

func TestResolveFailure(t *testing.T) {
	c, d, clk := newTestController(t)

	if _, err := c.Resolve(""); errors.Cause(err) != winc.ErrInvalidHost {
		t.Fatalf("expected invalid host, got %v", err)
	}
	if len(d.Calls) != 2 {
		t.Fatalf("calls %v", d.Calls)
	}

	// nothing arrives
	if _, err := c.Resolve("example.com"); errors.Cause(err) != winc.ErrTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if clk.t.Sub(epoch) < resolveTimeout {
		t.Fatalf("elapsed %v", clk.t.Sub(epoch))
	}

	// lookup failed on the module
	d.QueueResolve("nowhere.example", netip.IPv4Unspecified())
	if _, err := c.Resolve("nowhere.example"); errors.Cause(err) != winc.ErrNoResult {
		t.Fatalf("expected no result, got %v", err)
	}

	d.ResolveErr = fmt.Errorf("no socket")
	if _, err := c.Resolve("example.com"); err == nil {
		t.Fatal("no error on rejected request")
	}
	if lv := d.Pin(winc.GPIO16); lv[len(lv)-1] != true {
		t.Fatalf("network led left on: %v", lv)
	}
}

func TestReentrantCall(t *testing.T) {
	c, d, _ := newTestController(t)

	var got error
	c.evth[0x7f] = func(b []byte) error {
		_, got = c.RSSI()
		return nil
	}
	d.Queue(0x7f, nil)

	if err := c.Refresh(); err != nil {
		t.Fatal(err)
	}
	if got != winc.ErrReentrant {
		t.Fatalf("expected reentrant error, got %v", got)
	}
	if d.Pumps != 1 {
		t.Fatalf("pumps %d", d.Pumps)
	}
}

func TestMalformedEvent(t *testing.T) {
	var got []error
	c, d, _ := newTestController(t, winc.OptErrorHandler(func(err error) { got = append(got, err) }))

	d.Queue(evt.ScanResultCode, []byte{1, 2})
	d.Queue(0x55, []byte{1})
	c.Refresh()

	if len(got) != 1 {
		t.Fatalf("errors %v", got)
	}
	if c.scan.done() {
		t.Fatal("malformed result stored")
	}
}

func TestPumpErrorsDoNotAbortWait(t *testing.T) {
	var got int
	c, d, _ := newTestController(t, winc.OptErrorHandler(func(err error) { got++ }))
	d.HandleErr = fmt.Errorf("link down")

	if _, err := c.RSSI(); errors.Cause(err) != winc.ErrTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if got != d.Pumps || got == 0 {
		t.Fatalf("reported %d of %d pump errors", got, d.Pumps)
	}
}

func TestStatusSurface(t *testing.T) {
	c, d, _ := newTestController(t)

	v, err := c.FirmwareVersion()
	if err != nil || v != "19.7.7" {
		t.Fatalf("%q %v", v, err)
	}
	mac, err := c.MACAddress()
	if err != nil || mac.String() != d.MAC.String() {
		t.Fatalf("%v %v", mac, err)
	}

	ip := netip.MustParseAddr("10.1.1.9")
	if err := c.Config(winc.IPConfig{LocalIP: ip}); err != nil {
		t.Fatal(err)
	}
	if c.LocalIP() != ip || d.StaticIPs[0].LocalIP != ip {
		t.Fatalf("ip %v", c.LocalIP())
	}

	if err := c.Disconnect(); err != nil {
		t.Fatal(err)
	}
	if lv := d.Pin(winc.GPIO15); lv[len(lv)-1] != true {
		t.Fatalf("wifi led %v", lv)
	}

	s := c.Snapshot()
	if !s.Initialized || !s.Present || s.Status != winc.Idle || s.LocalIP != ip {
		t.Fatalf("snapshot %+v", s)
	}
}

func TestSocketEventsReachManager(t *testing.T) {
	c, d, _ := newTestController(t)
	b := c.Sockets().Register(2, socket.Stream)

	d.QueueSocket(2, evt.SocketConnectCode, []byte{2, 0})
	d.QueueSocket(2, evt.SocketRecvCode, []byte{5, 0, 0, 80, 10, 0, 0, 1, 'h', 'e', 'l', 'l', 'o'})
	c.Refresh()

	if !b.Connected() || b.Available() != 5 {
		t.Fatalf("connected %v, available %d", b.Connected(), b.Available())
	}
	if d.Calls[len(d.Calls)-1] != "recv 2" {
		t.Fatalf("calls %v", d.Calls)
	}
}

func TestTransportOptionsRejected(t *testing.T) {
	d := stub.New()
	_, err := NewController(d, winc.OptTransportTCP("127.0.0.1:1", time.Second))
	if errors.Cause(err) != winc.ErrNotSupported {
		t.Fatalf("expected not supported, got %v", err)
	}
}

func TestDisconnectBeforeInit(t *testing.T) {
	d := stub.New()
	c, _ := NewController(d)

	if err := c.Disconnect(); err != nil {
		t.Fatal(err)
	}
	if len(d.Calls) != 1 || d.Calls[0] != "disconnect" {
		t.Fatalf("calls %v", d.Calls)
	}
	if c.initialized {
		t.Fatal("disconnect brought the module up")
	}
}
