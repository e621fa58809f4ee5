package cache

import (
	"fmt"
	"os"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/rigado/winc"
)

type scanCache struct {
	filename string
	lock     sync.RWMutex
}

// New returns a scan cache kept as JSON in filename.
func New(filename string) winc.ScanCache {
	return &scanCache{
		filename: filename,
	}
}

// Store records results. An SSID already cached is only overwritten with
// replace; hidden networks are skipped.
func (sc *scanCache) Store(results []winc.ScanResult, replace bool) error {
	sc.lock.Lock()
	defer sc.lock.Unlock()

	cache, err := sc.loadExisting()
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.SSID == "" {
			continue
		}
		if old, ok := cache[r.SSID]; ok && !replace {
			// keep the stronger sighting
			if old.RSSI >= r.RSSI {
				continue
			}
		}
		cache[r.SSID] = r
	}

	return sc.storeCache(cache)
}

func (sc *scanCache) Load(ssid string) (winc.ScanResult, error) {
	sc.lock.RLock()
	defer sc.lock.RUnlock()

	cache, err := sc.loadExisting()
	if err != nil {
		return winc.ScanResult{}, err
	}

	r, ok := cache[ssid]
	if !ok {
		return winc.ScanResult{}, fmt.Errorf("network %q not found in cache", ssid)
	}
	return r, nil
}

// All returns every cached network, strongest first.
func (sc *scanCache) All() ([]winc.ScanResult, error) {
	sc.lock.RLock()
	defer sc.lock.RUnlock()

	cache, err := sc.loadExisting()
	if err != nil {
		return nil, err
	}

	out := make([]winc.ScanResult, 0, len(cache))
	for _, r := range cache {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RSSI != out[j].RSSI {
			return out[i].RSSI > out[j].RSSI
		}
		return out[i].SSID < out[j].SSID
	})
	return out, nil
}

func (sc *scanCache) Clear() error {
	sc.lock.Lock()
	defer sc.lock.Unlock()

	err := os.Remove(sc.filename)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (sc *scanCache) loadExisting() (map[string]winc.ScanResult, error) {
	_, err := os.Stat(sc.filename)
	if os.IsNotExist(err) {
		return map[string]winc.ScanResult{}, nil
	}

	in, err := os.ReadFile(sc.filename)
	if err != nil {
		return nil, err
	}

	var cache map[string]winc.ScanResult
	err = jsoniter.Unmarshal(in, &cache)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		cache = map[string]winc.ScanResult{}
	}

	return cache, nil
}

func (sc *scanCache) storeCache(cache map[string]winc.ScanResult) error {
	out, err := jsoniter.Marshal(cache)
	if err != nil {
		return err
	}

	return os.WriteFile(sc.filename, out, 0644)
}
