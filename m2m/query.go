package m2m

import (
	"net/netip"

	"github.com/pkg/errors"
	"github.com/rigado/winc"
	"github.com/soypat/seqs/eth/dns"
)

// ScanNetworks scans every channel and returns the number of access points
// found. The status seen before the scan is restored afterwards.
func (c *Controller) ScanNetworks() (int, error) {
	if err := c.enter(); err != nil {
		return 0, err
	}

	saved := c.status
	if err := c.drv.RequestScan(winc.ChannelAll); err != nil {
		return 0, errors.Wrap(err, "can't submit scan request")
	}

	c.status = winc.Idle
	done := c.wait(scanTimeout, func() bool { return scanSettled(c.status) })
	c.status = saved

	n := c.drv.NumAPFound()
	if !done {
		return n, errors.Wrap(winc.ErrTimeout, "scan")
	}
	return n, nil
}

// ScanResult fetches entry i of the last scan.
func (c *Controller) ScanResult(i int) (winc.ScanResult, error) {
	if err := c.enter(); err != nil {
		return winc.ScanResult{}, err
	}

	saved := c.status
	c.scan.reset()
	if err := c.drv.RequestScanResult(i); err != nil {
		return winc.ScanResult{}, errors.Wrapf(err, "can't request scan result %d", i)
	}

	c.status = winc.Idle
	c.wait(scanResultTimeout, func() bool { return scanSettled(c.status) })
	c.status = saved

	r, ok := c.scan.get()
	switch {
	case !ok:
		return winc.ScanResult{}, errors.Wrapf(winc.ErrTimeout, "scan result %d", i)
	case r.Index != i:
		return winc.ScanResult{}, errors.Wrapf(winc.ErrNoResult, "asked for scan result %d, got %d", i, r.Index)
	}
	return r, nil
}

// SSIDAt returns the network name of scan entry i, or "" when unavailable.
func (c *Controller) SSIDAt(i int) string {
	r, _ := c.ScanResult(i)
	return r.SSID
}

// RSSIAt returns the signal strength of scan entry i, or 0 when unavailable.
func (c *Controller) RSSIAt(i int) int8 {
	r, _ := c.ScanResult(i)
	return r.RSSI
}

// EncryptionTypeAt returns the security type of scan entry i, or SecInvalid
// when unavailable.
func (c *Controller) EncryptionTypeAt(i int) winc.AuthType {
	r, _ := c.ScanResult(i)
	return r.Auth
}

// RSSI returns the signal strength of the current connection in dBm.
func (c *Controller) RSSI() (int8, error) {
	if err := c.enter(); err != nil {
		return 0, err
	}

	c.rssi.reset()
	if err := c.drv.RequestRSSI(); err != nil {
		return 0, errors.Wrap(err, "can't request rssi")
	}

	c.wait(rssiTimeout, c.rssi.done)
	v, ok := c.rssi.get()
	if !ok {
		return 0, errors.Wrap(winc.ErrTimeout, "rssi")
	}
	return v, nil
}

// Resolve looks host up through the module's resolver. The network led is
// lit while the lookup runs.
func (c *Controller) Resolve(host string) (netip.Addr, error) {
	if err := c.enter(); err != nil {
		return netip.Addr{}, err
	}
	if host == "" {
		return netip.Addr{}, winc.ErrInvalidHost
	}
	if _, err := dns.NewName(host); err != nil {
		return netip.Addr{}, errors.Wrapf(winc.ErrInvalidHost, "%q: %v", host, err)
	}

	c.setLED(ledNetwork, true)
	defer c.setLED(ledNetwork, false)

	c.resolved.reset()
	if err := c.drv.GetHostByName(host); err != nil {
		return netip.Addr{}, errors.Wrapf(err, "can't resolve %q", host)
	}

	c.wait(resolveTimeout, c.resolved.done)
	addr, ok := c.resolved.get()
	switch {
	case !ok:
		return netip.Addr{}, errors.Wrapf(winc.ErrTimeout, "resolve %q", host)
	case !addr.IsValid() || addr.IsUnspecified():
		return netip.Addr{}, errors.Wrapf(winc.ErrNoResult, "resolve %q", host)
	}
	return addr, nil
}
