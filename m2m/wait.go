package m2m

import (
	"time"

	"github.com/rigado/winc"
)

const (
	connectTimeout    = 20 * time.Second
	scanTimeout       = 5 * time.Second
	scanResultTimeout = 2 * time.Second
	rssiTimeout       = time.Second
	resolveTimeout    = 20 * time.Second
	dhcpSettle        = time.Second

	pollInterval = time.Millisecond
)

// Clock is the time source of the blocking calls.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// result is a reply slot filled by a handler. ok separates a zero reading
// from no reply at all.
type result[T any] struct {
	v  T
	ok bool
}

func (r *result[T]) set(v T) {
	r.v = v
	r.ok = true
}

func (r *result[T]) reset() {
	*r = result[T]{}
}

func (r *result[T]) get() (T, bool) {
	return r.v, r.ok
}

func (r *result[T]) done() bool {
	return r.ok
}

// wait pumps events until done reports true or timeout elapses, and returns
// the final value of done.
func (c *Controller) wait(timeout time.Duration, done func() bool) bool {
	start := c.clock.Now()
	for !done() && c.clock.Now().Sub(start) < timeout {
		if err := c.pump(); err != nil {
			c.dispatchError(err)
		}
		c.clock.Sleep(pollInterval)
	}
	return done()
}

// pump runs the driver's pending notifications once. Handlers run here and
// nowhere else.
func (c *Controller) pump() error {
	c.pumping = true
	defer func() { c.pumping = false }()
	return c.drv.HandleEvents()
}

// enter guards every blocking call: it refuses nested pumping from inside a
// handler and performs the lazy bring-up.
func (c *Controller) enter() error {
	if c.pumping {
		return winc.ErrReentrant
	}
	if !c.initialized {
		if err := c.Init(); err != nil {
			return err
		}
	}
	if !c.present {
		return winc.ErrNoShield
	}
	return nil
}

func connectSettled(s winc.Status) bool {
	return s == winc.Connected || s == winc.Disconnected
}

func scanSettled(s winc.Status) bool {
	return s == winc.ScanCompleted
}
