package winc

// ScanCache keeps scan results between runs, keyed by SSID.
type ScanCache interface {
	Store(results []ScanResult, replace bool) error
	Load(ssid string) (ScanResult, error)
	All() ([]ScanResult, error)
	Clear() error
}
