package winc

import (
	"time"
)

// DeviceOption is an interface which the controller and drivers implement to allow using configuration options
type DeviceOption interface {
	SetErrorHandler(handler func(error)) error
	SetLogger(l Logger) error
	SetChipID(id uint32) error
	SetPrecomputePSK(enable bool) error

	SetTransportUART(path string, baud uint) error
	SetTransportTCP(addr string, timeout time.Duration) error
}

// An Option is a configuration function, which configures the device.
type Option func(DeviceOption) error

// OptErrorHandler sets the handler for errors that occur while events are processed.
func OptErrorHandler(handler func(error)) Option {
	return func(opt DeviceOption) error {
		return opt.SetErrorHandler(handler)
	}
}

// OptLogger overrides the package logger for one device.
func OptLogger(l Logger) Option {
	return func(opt DeviceOption) error {
		return opt.SetLogger(l)
	}
}

// OptChipID overrides the chip identity expected after bring-up.
func OptChipID(id uint32) Option {
	return func(opt DeviceOption) error {
		return opt.SetChipID(id)
	}
}

// OptPrecomputePSK derives the WPA pre-shared key on the host and hands the
// module 64 hex characters instead of the passphrase.
func OptPrecomputePSK(enable bool) Option {
	return func(opt DeviceOption) error {
		return opt.SetPrecomputePSK(enable)
	}
}

// OptTransportUART sets a serial bridge transport
func OptTransportUART(path string, baud uint) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportUART(path, baud)
	}
}

// OptTransportTCP sets a tcp bridge transport
func OptTransportTCP(addr string, timeout time.Duration) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportTCP(addr, timeout)
	}
}

// ApplyOptions applies opts in order and stops at the first failing one.
func ApplyOptions(d DeviceOption, opts ...Option) error {
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return err
		}
	}
	return nil
}
