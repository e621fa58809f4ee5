package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/winc"
	"github.com/rigado/winc/bridge"
	"github.com/rigado/winc/m2m"
	"github.com/urfave/cli"
)

const tcpTimeout = 2 * time.Second

func main() {
	app := cli.NewApp()
	app.Name = "wincctl"
	app.Usage = "drive an ATWINC1500 module through a uart or tcp bridge"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "uart", Usage: "serial port of the bridge board"},
		cli.UintFlag{Name: "baud", Value: 115200, Usage: "serial baud rate"},
		cli.StringFlag{Name: "tcp", Usage: "host:port of a bridge simulator"},
		cli.BoolFlag{Name: "json", Usage: "print results as json"},
		cli.BoolFlag{Name: "psk", Usage: "derive the WPA key on the host"},
		cli.StringFlag{Name: "log-level", Usage: "log level (trace, debug, info, warn, error)"},
		cli.BoolFlag{Name: "debug", Usage: "trace logging"},
	}
	app.Before = func(c *cli.Context) error {
		if lvl := c.GlobalString("log-level"); lvl != "" {
			if err := winc.SetLogLevel(lvl); err != nil {
				return err
			}
		}
		if c.GlobalBool("debug") {
			winc.SetLogLevelMax()
		}
		return nil
	}

	cacheFlag := cli.StringFlag{Name: "cache", Usage: "scan cache file"}
	channelFlag := cli.UintFlag{Name: "channel", Value: 1, Usage: "radio channel"}

	app.Commands = []cli.Command{
		{
			Name:   "status",
			Usage:  "show connection state and module identity",
			Action: withSession(cmdStatus),
		},
		{
			Name:   "version",
			Usage:  "show module firmware version",
			Action: withSession(cmdVersion),
		},
		{
			Name:  "scan",
			Usage: "list access points in range",
			Flags: []cli.Flag{
				cacheFlag,
				cli.BoolFlag{Name: "replace", Usage: "overwrite cached entries"},
			},
			Action: withSession(cmdScan),
		},
		{
			Name:  "cached",
			Usage: "list networks saved by scan --cache",
			Flags: []cli.Flag{
				cacheFlag,
				cli.BoolFlag{Name: "clear", Usage: "empty the cache"},
			},
			Action: cmdCached,
		},
		{
			Name:      "connect",
			Usage:     "join a network, or the stored one when no ssid is given",
			ArgsUsage: "[ssid]",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "pass", Usage: "WPA passphrase"},
				cli.StringFlag{Name: "wep-key", Usage: "WEP key"},
				cli.UintFlag{Name: "wep-index", Value: 1, Usage: "WEP key number"},
				cacheFlag,
			},
			Action: withSession(cmdConnect),
		},
		{
			Name:      "ap",
			Usage:     "start an open access point",
			ArgsUsage: "<ssid>",
			Flags:     []cli.Flag{channelFlag},
			Action:    withSession(cmdAP),
		},
		{
			Name:      "provision",
			Usage:     "start provisioning mode and wait for credentials",
			ArgsUsage: "<ssid> <url>",
			Flags:     []cli.Flag{channelFlag},
			Action:    withSession(cmdProvision),
		},
		{
			Name:   "rssi",
			Usage:  "show signal strength of the current network",
			Action: withSession(cmdRSSI),
		},
		{
			Name:      "resolve",
			Usage:     "look up a host name",
			ArgsUsage: "<host>",
			Action:    withSession(cmdResolve),
		},
		{
			Name:   "disconnect",
			Usage:  "leave the current network",
			Action: withSession(cmdDisconnect),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session is one open bridge with a controller on top.
type session struct {
	drv *bridge.Driver
	ctl *m2m.Controller
	out *printer
}

func transportOption(uart, tcp string, baud uint) (winc.Option, error) {
	switch {
	case uart != "" && tcp != "":
		return nil, errors.New("use one of --uart and --tcp")
	case uart != "":
		return winc.OptTransportUART(uart, baud), nil
	case tcp != "":
		return winc.OptTransportTCP(tcp, tcpTimeout), nil
	default:
		return nil, errors.New("no transport, use --uart or --tcp")
	}
}

func openSession(c *cli.Context) (*session, error) {
	topt, err := transportOption(c.GlobalString("uart"), c.GlobalString("tcp"), c.GlobalUint("baud"))
	if err != nil {
		return nil, err
	}

	drv, err := bridge.New(topt)
	if err != nil {
		return nil, errors.Wrap(err, "can't create bridge")
	}

	lg := winc.ComponentLogger("wincctl")
	ctl, err := m2m.NewController(drv,
		winc.OptPrecomputePSK(c.GlobalBool("psk")),
		winc.OptErrorHandler(func(err error) { lg.Warn(err) }),
	)
	if err != nil {
		return nil, errors.Wrap(err, "can't create controller")
	}

	if err := ctl.Init(); err != nil {
		drv.Stop()
		return nil, err
	}

	return &session{
		drv: drv,
		ctl: ctl,
		out: newPrinter(os.Stdout, c.GlobalBool("json")),
	}, nil
}

func withSession(fn func(*cli.Context, *session) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.drv.Stop()
		return fn(c, s)
	}
}
