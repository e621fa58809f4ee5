package m2m

import (
	"net"
	"net/netip"

	"github.com/pkg/errors"
	"github.com/rigado/winc"
	"github.com/rigado/winc/socket"
)

// ExpectedChipID is the identity of a supported module.
const ExpectedChipID = 0x1502b1

const (
	ledWifi    = winc.GPIO15
	ledNetwork = winc.GPIO16
	ledError   = winc.GPIO18
)

var apGateway = netip.AddrFrom4([4]byte{192, 168, 1, 1})

// Controller tracks the connection state of one module. Notification
// handlers update it while events are pumped; the blocking calls pump and
// poll it until a deadline. A Controller is not safe for concurrent use.
type Controller struct {
	drv     winc.Driver
	sockets *socket.Manager
	clock   Clock

	logger       winc.Logger
	errorHandler func(error)

	chipID        uint32
	precomputePSK bool

	status      winc.Status
	mode        winc.Mode
	initialized bool
	present     bool
	pumping     bool

	ssid    string
	localIP netip.Addr

	rssi     result[int8]
	resolved result[netip.Addr]
	scan     result[winc.ScanResult]

	evth map[uint8]handlerFn
}

// NewController returns a controller for drv. No request is sent to the
// module until the first blocking call or Init.
func NewController(drv winc.Driver, opts ...winc.Option) (*Controller, error) {
	c := &Controller{
		drv:     drv,
		sockets: socket.NewManager(drv),
		clock:   systemClock{},
		logger:  winc.ComponentLogger("m2m"),
		chipID:  ExpectedChipID,
		status:  winc.NoShield,
		mode:    winc.ModeReset,
	}
	c.evth = c.handlers()

	if err := winc.ApplyOptions(c, opts...); err != nil {
		return nil, errors.Wrap(err, "can't apply options")
	}
	return c, nil
}

// Init brings the module up. It runs once on the first blocking call and may
// be called again to re-initialise the module.
func (c *Controller) Init() error {
	if c.pumping {
		return winc.ErrReentrant
	}

	c.present = false
	if err := c.drv.Init(c.handleWifi); err != nil {
		c.setLED(ledError, true)
		c.setDir(ledError)
		c.status = winc.NoShield
		return errors.Wrap(err, "can't init module")
	}

	if err := c.drv.SocketInit(); err != nil {
		c.status = winc.NoShield
		return errors.Wrap(err, "can't init sockets")
	}
	c.sockets.Init()
	c.drv.RegisterSocketHandlers(c.sockets.Handle, c.handleResolve)

	c.initialized = true
	c.status = winc.Idle
	c.mode = winc.ModeReset

	for _, pin := range []winc.GPIO{ledWifi, ledNetwork, ledError} {
		c.setGPIO(pin, true)
	}
	for _, pin := range []winc.GPIO{ledWifi, ledNetwork, ledError} {
		c.setDir(pin)
	}

	id, err := c.drv.ChipID()
	if err != nil {
		c.status = winc.NoShield
		return errors.Wrapf(winc.ErrNoShield, "can't read chip id: %v", err)
	}
	if id != c.chipID {
		c.status = winc.NoShield
		return errors.Wrapf(winc.ErrNoShield, "chip id 0x%06x, expected 0x%06x", id, c.chipID)
	}

	c.present = true
	c.logger.Debugf("module 0x%06x up", id)
	return nil
}

// Status returns the current status, bringing the module up on first use.
func (c *Controller) Status() winc.Status {
	if !c.initialized && !c.pumping {
		if err := c.Init(); err != nil {
			c.logger.Debugf("init: %v", err)
		}
	}
	return c.status
}

// Refresh pumps pending module events once.
func (c *Controller) Refresh() error {
	if c.pumping {
		return winc.ErrReentrant
	}
	return c.pump()
}

func (c *Controller) Mode() winc.Mode { return c.mode }

// Provisioned reports whether the module runs as a station, either after
// Begin or after credentials arrived in provisioning mode.
func (c *Controller) Provisioned() bool { return c.mode == winc.ModeStation }

func (c *Controller) LocalIP() netip.Addr { return c.localIP }

// SSID returns the network name while connected and "" otherwise.
func (c *Controller) SSID() string {
	if c.status != winc.Connected {
		return ""
	}
	return c.ssid
}

func (c *Controller) MACAddress() (net.HardwareAddr, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	mac, err := c.drv.MACAddress()
	return mac, errors.Wrap(err, "can't read mac address")
}

// FirmwareVersion returns the module firmware as "major.minor.patch".
func (c *Controller) FirmwareVersion() (string, error) {
	if err := c.enter(); err != nil {
		return "", err
	}
	rev, err := c.drv.FirmwareInfo()
	if err != nil {
		return "", errors.Wrap(err, "can't read firmware info")
	}
	return rev.String(), nil
}

// Sockets returns the receive buffer manager bound to this module.
func (c *Controller) Sockets() *socket.Manager { return c.sockets }

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	Status      winc.Status `json:"status"`
	Mode        winc.Mode   `json:"mode"`
	SSID        string      `json:"ssid,omitempty"`
	LocalIP     netip.Addr  `json:"local_ip"`
	Initialized bool        `json:"initialized"`
	Present     bool        `json:"present"`
}

func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Status:      c.status,
		Mode:        c.mode,
		SSID:        c.SSID(),
		LocalIP:     c.localIP,
		Initialized: c.initialized,
		Present:     c.present,
	}
}

func (c *Controller) setLED(pin winc.GPIO, on bool) {
	// leds are active low
	c.setGPIO(pin, !on)
}

func (c *Controller) setGPIO(pin winc.GPIO, high bool) {
	if err := c.drv.GPIOSet(pin, high); err != nil {
		c.logger.Debugf("gpio %d set: %v", pin, err)
	}
}

func (c *Controller) setDir(pin winc.GPIO) {
	if err := c.drv.GPIODir(pin, true); err != nil {
		c.logger.Debugf("gpio %d dir: %v", pin, err)
	}
}

func (c *Controller) dispatchError(e error) {
	if c.errorHandler == nil {
		c.logger.Error(e)
		return
	}
	c.errorHandler(e)
}
