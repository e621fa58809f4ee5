package m2m

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/rigado/winc"
	"golang.org/x/crypto/pbkdf2"
)

// Begin joins an open network.
func (c *Controller) Begin(ssid string) (winc.Status, error) {
	return c.startConnect(winc.ConnectParams{
		SSID:    ssid,
		Auth:    winc.SecOpen,
		Channel: winc.ChannelAll,
	})
}

// BeginWEP joins a WEP network using key number keyIndex.
func (c *Controller) BeginWEP(ssid string, keyIndex uint8, key string) (winc.Status, error) {
	return c.startConnect(winc.ConnectParams{
		SSID:        ssid,
		Auth:        winc.SecWEP,
		Channel:     winc.ChannelAll,
		WEPKeyIndex: keyIndex,
		WEPKey:      key,
	})
}

// BeginWPA joins a WPA/WPA2 personal network.
func (c *Controller) BeginWPA(ssid, passphrase string) (winc.Status, error) {
	return c.startConnect(winc.ConnectParams{
		SSID:       ssid,
		Auth:       winc.SecWPAPSK,
		Channel:    winc.ChannelAll,
		Passphrase: passphrase,
	})
}

// BeginDefault joins the network whose credentials are stored on the module.
func (c *Controller) BeginDefault() (winc.Status, error) {
	if err := c.enter(); err != nil {
		return c.status, err
	}

	if err := c.drv.DefaultConnect(); err != nil {
		c.status = winc.ConnectFailed
		return c.status, errors.Wrap(err, "can't submit default connect")
	}

	err := c.awaitConnect()
	c.ssid = ""
	return c.status, err
}

func (c *Controller) startConnect(p winc.ConnectParams) (winc.Status, error) {
	if err := c.enter(); err != nil {
		return c.status, err
	}

	p.SSID = winc.BoundSSID(p.SSID)
	if err := c.drv.Connect(c.withPSK(p)); err != nil {
		c.status = winc.ConnectFailed
		return c.status, errors.Wrapf(err, "can't submit connect to %q", p.SSID)
	}

	err := c.awaitConnect()

	// address assignment
	c.clock.Sleep(dhcpSettle)

	c.ssid = p.SSID
	return c.status, errors.Wrapf(err, "connect to %q", p.SSID)
}

// awaitConnect waits for the outcome of a submitted connect. The mode falls
// back to reset unless the module reported a connection.
func (c *Controller) awaitConnect() error {
	c.status = winc.Idle
	c.mode = winc.ModeStation

	settled := c.wait(connectTimeout, func() bool { return connectSettled(c.status) })
	if c.status == winc.Connected {
		return nil
	}

	c.mode = winc.ModeReset
	if !settled {
		return winc.ErrTimeout
	}
	return errors.Errorf("module reported %v", c.status)
}

// BeginAP hosts an open network on channel ch. The module serves addresses
// from 192.168.1.1.
func (c *Controller) BeginAP(ssid string, ch winc.Channel) (winc.Status, error) {
	return c.startAP(ssid, ch, "")
}

// BeginProvision hosts a visible open network serving a provisioning page at
// url. Credentials entered there are applied by the notification handler.
func (c *Controller) BeginProvision(ssid, url string, ch winc.Channel) (winc.Status, error) {
	return c.startAP(ssid, ch, url)
}

func (c *Controller) startAP(ssid string, ch winc.Channel, url string) (winc.Status, error) {
	if err := c.enter(); err != nil {
		return c.status, err
	}

	cfg := winc.APConfig{
		SSID:    winc.BoundSSID(ssid),
		Channel: ch,
		Auth:    winc.SecOpen,
		Gateway: apGateway,
	}

	mode := winc.ModeAP
	var err error
	if url == "" {
		err = c.drv.EnableAP(cfg)
	} else {
		mode = winc.ModeProvisioning
		err = c.drv.StartProvisionMode(cfg, url, true)
	}
	if err != nil {
		c.status = winc.ConnectFailed
		return c.status, errors.Wrapf(err, "can't start %v on %q", mode, cfg.SSID)
	}

	c.status = winc.Connected
	c.mode = mode
	c.ssid = cfg.SSID
	c.localIP = cfg.Gateway
	c.setLED(ledWifi, true)
	return c.status, nil
}

// Config sets a static address. Zero fields are left to the module.
func (c *Controller) Config(cfg winc.IPConfig) error {
	if err := c.enter(); err != nil {
		return err
	}
	if err := c.drv.SetStaticIP(cfg); err != nil {
		return errors.Wrap(err, "can't set static ip")
	}
	c.localIP = cfg.LocalIP
	return nil
}

// Disconnect leaves the current network. The request is sent whatever the
// module state.
func (c *Controller) Disconnect() error {
	if c.pumping {
		return winc.ErrReentrant
	}
	err := c.drv.Disconnect()
	c.setLED(ledWifi, false)
	return errors.Wrap(err, "can't disconnect")
}

// withPSK replaces a WPA passphrase by the derived key when enabled.
func (c *Controller) withPSK(p winc.ConnectParams) winc.ConnectParams {
	if !c.precomputePSK || p.Auth != winc.SecWPAPSK {
		return p
	}
	if len(p.Passphrase) < 8 || len(p.Passphrase) > 63 {
		// already a hex key, or invalid; the module decides
		return p
	}
	p.Passphrase = derivePSK(p.SSID, p.Passphrase)
	return p
}

// derivePSK computes the WPA pre-shared key as in IEEE 802.11i.
func derivePSK(ssid, passphrase string) string {
	key := pbkdf2.Key([]byte(passphrase), []byte(ssid), 4096, 32, sha1.New)
	return hex.EncodeToString(key)
}
