package winc

import (
	"fmt"
)

// Status is the coarse connection state reported to callers.
type Status uint8

const (
	Idle Status = iota
	NoSSIDAvailable
	ScanCompleted
	Connected
	ConnectFailed
	ConnectionLost
	Disconnected

	NoShield Status = 255
)

var statusNames = map[Status]string{
	Idle:            "idle",
	NoSSIDAvailable: "no-ssid-available",
	ScanCompleted:   "scan-completed",
	Connected:       "connected",
	ConnectFailed:   "connect-failed",
	ConnectionLost:  "connection-lost",
	Disconnected:    "disconnected",
	NoShield:        "no-shield",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mode is the role the module was last asked to take.
type Mode uint8

const (
	ModeReset Mode = iota
	ModeStation
	ModeAP
	ModeProvisioning
)

func (m Mode) String() string {
	switch m {
	case ModeReset:
		return "reset"
	case ModeStation:
		return "station"
	case ModeAP:
		return "access-point"
	case ModeProvisioning:
		return "provisioning"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// AuthType is the security type of a network, numbered as the module reports it.
type AuthType uint8

const (
	SecInvalid AuthType = iota
	SecOpen
	SecWPAPSK
	SecWEP
	Sec8021X
)

func (a AuthType) String() string {
	switch a {
	case SecOpen:
		return "open"
	case SecWPAPSK:
		return "wpa-psk"
	case SecWEP:
		return "wep"
	case Sec8021X:
		return "802.1x"
	default:
		return "invalid"
	}
}

func (a AuthType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AuthType) UnmarshalText(b []byte) error {
	for _, v := range []AuthType{SecOpen, SecWPAPSK, SecWEP, Sec8021X} {
		if v.String() == string(b) {
			*a = v
			return nil
		}
	}
	*a = SecInvalid
	return nil
}

// Channel is a 2.4GHz channel number.
type Channel uint8

// ChannelAll requests every channel.
const ChannelAll Channel = 255

// GPIO is a module-side general purpose pin.
type GPIO uint8

const (
	GPIO15 GPIO = 15
	GPIO16 GPIO = 16
	GPIO18 GPIO = 18
)

// MaxSSIDLen bounds every SSID kept by the library.
const MaxSSIDLen = 32

// BoundSSID truncates s to MaxSSIDLen bytes.
func BoundSSID(s string) string {
	if len(s) > MaxSSIDLen {
		return s[:MaxSSIDLen]
	}
	return s
}
