package main

import (
	"fmt"
	"io"
	"net/netip"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/winc"
	"github.com/rigado/winc/cache"
	"github.com/rigado/winc/m2m"
	"github.com/urfave/cli"
)

const provisionPoll = 100 * time.Millisecond

type statusInfo struct {
	m2m.Snapshot
	MAC      string `json:"mac"`
	Firmware string `json:"firmware"`
}

func cmdStatus(c *cli.Context, s *session) error {
	info := statusInfo{Snapshot: s.ctl.Snapshot()}
	if mac, err := s.ctl.MACAddress(); err == nil {
		info.MAC = mac.String()
	}
	if fw, err := s.ctl.FirmwareVersion(); err == nil {
		info.Firmware = fw
	}

	return s.out.print(info, func(w io.Writer) {
		fmt.Fprintf(w, "status:   %v\n", info.Status)
		fmt.Fprintf(w, "mode:     %v\n", info.Mode)
		fmt.Fprintf(w, "ssid:     %s\n", info.SSID)
		fmt.Fprintf(w, "ip:       %v\n", info.LocalIP)
		fmt.Fprintf(w, "mac:      %s\n", info.MAC)
		fmt.Fprintf(w, "firmware: %s\n", info.Firmware)
	})
}

func cmdVersion(c *cli.Context, s *session) error {
	fw, err := s.ctl.FirmwareVersion()
	if err != nil {
		return err
	}
	return s.out.print(map[string]string{"firmware": fw}, func(w io.Writer) {
		fmt.Fprintln(w, fw)
	})
}

func cmdScan(c *cli.Context, s *session) error {
	n, err := s.ctl.ScanNetworks()
	if err != nil {
		return err
	}

	rs := make([]winc.ScanResult, 0, n)
	for i := 0; i < n; i++ {
		r, err := s.ctl.ScanResult(i)
		if err != nil {
			winc.GetLogger().Warnf("scan result %d: %v", i, err)
			continue
		}
		rs = append(rs, r)
	}

	if f := c.String("cache"); f != "" {
		if err := cache.New(f).Store(rs, c.Bool("replace")); err != nil {
			return errors.Wrap(err, "can't store scan results")
		}
	}
	return s.out.networks(rs)
}

func cmdCached(c *cli.Context) error {
	f := c.String("cache")
	if f == "" {
		return errors.New("--cache is required")
	}
	sc := cache.New(f)
	if c.Bool("clear") {
		return sc.Clear()
	}

	rs, err := sc.All()
	if err != nil {
		return err
	}
	return newPrinter(c.App.Writer, c.GlobalBool("json")).networks(rs)
}

// connectAuth picks the security type for a connect request. Explicit
// secrets win; otherwise a cached scan result decides.
func connectAuth(pass, wepKey string, cached *winc.ScanResult) (winc.AuthType, error) {
	switch {
	case pass != "" && wepKey != "":
		return winc.SecInvalid, errors.New("use one of --pass and --wep-key")
	case pass != "":
		return winc.SecWPAPSK, nil
	case wepKey != "":
		return winc.SecWEP, nil
	case cached == nil:
		return winc.SecOpen, nil
	}

	switch cached.Auth {
	case winc.SecOpen:
		return winc.SecOpen, nil
	case winc.SecWPAPSK, winc.SecWEP:
		return winc.SecInvalid, errors.Errorf("network %q is %v, a key is required", cached.SSID, cached.Auth)
	default:
		return winc.SecInvalid, errors.Errorf("network %q is %v: %v", cached.SSID, cached.Auth, winc.ErrNotSupported)
	}
}

func cmdConnect(c *cli.Context, s *session) error {
	ssid := c.Args().First()
	if ssid == "" {
		st, err := s.ctl.BeginDefault()
		return s.out.result(st, s.ctl.Mode(), err)
	}

	var cached *winc.ScanResult
	if f := c.String("cache"); f != "" {
		if r, err := cache.New(f).Load(ssid); err == nil {
			cached = &r
		}
	}

	auth, err := connectAuth(c.String("pass"), c.String("wep-key"), cached)
	if err != nil {
		return err
	}

	var st winc.Status
	switch auth {
	case winc.SecWPAPSK:
		st, err = s.ctl.BeginWPA(ssid, c.String("pass"))
	case winc.SecWEP:
		st, err = s.ctl.BeginWEP(ssid, uint8(c.Uint("wep-index")), c.String("wep-key"))
	default:
		st, err = s.ctl.Begin(ssid)
	}
	if err == nil {
		ip := s.ctl.LocalIP()
		winc.GetLogger().Infof("joined %s, ip %v", s.ctl.SSID(), ip)
	}
	return s.out.result(st, s.ctl.Mode(), err)
}

func cmdAP(c *cli.Context, s *session) error {
	if c.NArg() != 1 {
		return errors.New("usage: ap <ssid>")
	}
	st, err := s.ctl.BeginAP(c.Args().First(), winc.Channel(c.Uint("channel")))
	return s.out.result(st, s.ctl.Mode(), err)
}

func cmdProvision(c *cli.Context, s *session) error {
	if c.NArg() != 2 {
		return errors.New("usage: provision <ssid> <url>")
	}
	st, err := s.ctl.BeginProvision(c.Args().Get(0), c.Args().Get(1), winc.Channel(c.Uint("channel")))
	if err != nil {
		return s.out.result(st, s.ctl.Mode(), err)
	}

	// credentials arrive as events; pump until the module leaves provisioning
	for s.ctl.Mode() == winc.ModeProvisioning && s.ctl.Status() != winc.ConnectFailed {
		if err := s.ctl.Refresh(); err != nil {
			return err
		}
		time.Sleep(provisionPoll)
	}
	return s.out.result(s.ctl.Status(), s.ctl.Mode(), nil)
}

func cmdRSSI(c *cli.Context, s *session) error {
	v, err := s.ctl.RSSI()
	if err != nil {
		return err
	}
	return s.out.print(map[string]int8{"rssi": v}, func(w io.Writer) {
		fmt.Fprintf(w, "%d dBm\n", v)
	})
}

func cmdResolve(c *cli.Context, s *session) error {
	host := c.Args().First()
	addr, err := s.ctl.Resolve(host)
	if err != nil {
		return err
	}
	return s.out.print(map[string]netip.Addr{host: addr}, func(w io.Writer) {
		fmt.Fprintf(w, "%s %v\n", host, addr)
	})
}

func cmdDisconnect(c *cli.Context, s *session) error {
	if err := s.ctl.Disconnect(); err != nil {
		return err
	}
	return s.out.result(s.ctl.Status(), s.ctl.Mode(), nil)
}
