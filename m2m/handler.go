package m2m

import (
	"net/netip"

	"github.com/pkg/errors"
	"github.com/rigado/winc"
	"github.com/rigado/winc/m2m/evt"
)

type handlerFn func(b []byte) error

func (c *Controller) handlers() map[uint8]handlerFn {
	return map[uint8]handlerFn{
		evt.ConnStateChangedCode: c.handleConnState,
		evt.DHCPConfCode:         c.handleDHCPConf,
		evt.CurrentRSSICode:      c.handleCurrentRSSI,
		evt.ProvisionInfoCode:    c.handleProvisionInfo,
		evt.ScanDoneCode:         c.handleScanDone,
		evt.ScanResultCode:       c.handleScanResult,
	}
}

// handleWifi is the wifi notification handler given to the driver.
func (c *Controller) handleWifi(code uint8, payload []byte) {
	f, found := c.evth[code]
	if !found {
		c.logger.Debugf("unhandled event 0x%02x: [% X]", code, payload)
		return
	}
	if err := f(payload); err != nil {
		c.dispatchError(errors.Wrapf(err, "event 0x%02x", code))
	}
}

func (c *Controller) handleConnState(b []byte) error {
	e := evt.ConnStateChanged(b)
	st, err := e.CurrStateWErr()
	if err != nil {
		return err
	}

	switch st {
	case evt.StateConnected:
		if c.mode == winc.ModeStation {
			c.status = winc.Connected
		}
	case evt.StateDisconnected:
		if c.mode == winc.ModeStation {
			c.status = winc.Disconnected
			c.localIP = netip.Addr{}
		}
		c.setLED(ledWifi, false)
	default:
		c.logger.Debugf("unknown connection state %d", st)
	}
	return nil
}

func (c *Controller) handleDHCPConf(b []byte) error {
	if c.mode != winc.ModeStation {
		return nil
	}
	addr, err := evt.DHCPConf(b).AddrWErr()
	if err != nil {
		return err
	}
	c.localIP = addr
	c.setLED(ledWifi, true)
	c.logger.Infof("address %v", addr)
	return nil
}

func (c *Controller) handleCurrentRSSI(b []byte) error {
	v, err := evt.CurrentRSSI(b).RSSIWErr()
	if err != nil {
		return err
	}
	c.rssi.set(v)
	return nil
}

func (c *Controller) handleProvisionInfo(b []byte) error {
	e := evt.ProvisionInfo(b)
	st, err := e.StatusWErr()
	if err != nil {
		return err
	}
	if st != 0 {
		c.status = winc.ConnectFailed
		c.logger.Warnf("provisioning failed (%d)", st)
		return nil
	}

	ssid, err := e.SSIDWErr()
	if err != nil {
		return err
	}
	pass, err := e.PasswordWErr()
	if err != nil {
		return err
	}
	sec, err := e.SecTypeWErr()
	if err != nil {
		return err
	}

	c.ssid = winc.BoundSSID(ssid)
	c.mode = winc.ModeStation
	c.logger.Infof("provisioned for %q", c.ssid)

	p := winc.ConnectParams{
		SSID:       c.ssid,
		Auth:       winc.AuthType(sec),
		Channel:    winc.ChannelAll,
		Passphrase: pass,
	}
	if err := c.drv.Connect(c.withPSK(p)); err != nil {
		c.status = winc.ConnectFailed
		return errors.Wrapf(err, "can't connect to provisioned %q", c.ssid)
	}
	return nil
}

func (c *Controller) handleScanDone(b []byte) error {
	n, err := evt.ScanDone(b).NumChannelsWErr()
	if err != nil {
		return err
	}
	if n >= 1 {
		c.status = winc.ScanCompleted
	}
	return nil
}

func (c *Controller) handleScanResult(b []byte) error {
	e := evt.ScanResult(b)

	idx, err := e.IndexWErr()
	if err != nil {
		return err
	}
	rssi, err := e.RSSIWErr()
	if err != nil {
		return err
	}
	auth, err := e.AuthTypeWErr()
	if err != nil {
		return err
	}
	ch, err := e.ChannelWErr()
	if err != nil {
		return err
	}
	bssid, err := e.BSSIDWErr()
	if err != nil {
		return err
	}
	ssid, err := e.SSIDWErr()
	if err != nil {
		return err
	}

	c.scan.set(winc.ScanResult{
		Index:   int(idx),
		SSID:    winc.BoundSSID(ssid),
		RSSI:    rssi,
		Auth:    winc.AuthType(auth),
		Channel: winc.Channel(ch),
		BSSID:   bssid,
	})
	c.status = winc.ScanCompleted
	return nil
}

// handleResolve is the host name lookup handler given to the driver.
func (c *Controller) handleResolve(host string, addr netip.Addr) {
	c.logger.Debugf("resolved %q: %v", host, addr)
	c.resolved.set(addr)
}
