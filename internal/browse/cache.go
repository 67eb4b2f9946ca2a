package browse

import (
	"fmt"
	"sync"
	"time"
)

// MaxDevices is the device cap the adapter applies to browse results.
const MaxDevices = 300

// Result is one browse result as cached.
type Result struct {
	Kind    Kind                `json:"kind"`
	Devices []DeviceDescription `json:"devices"`
	At      time.Time           `json:"at"`
}

// Match locates a state inside a browse result.
type Match struct {
	Device           DeviceDescription  `json:"device"`
	Control          ControlDescription `json:"control"`
	DeviceIndex      int                `json:"deviceIndex"`
	ControlIndex     int                `json:"controlIndex"`
	RepresentativeID string             `json:"representativeId"`
}

// Cache keeps the latest browse result per kind. Stored results are
// treated as immutable; callers must not modify what Get returns.
type Cache struct {
	mu      sync.RWMutex
	results map[Kind]Result
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{results: make(map[Kind]Result)}
}

// Store replaces the result for kind.
func (c *Cache) Store(kind Kind, devices []DeviceDescription) Result {
	r := Result{Kind: kind, Devices: devices, At: time.Now()}
	c.mu.Lock()
	c.results[kind] = r
	c.mu.Unlock()
	return r
}

// Get returns the cached result for kind.
func (c *Cache) Get(kind Kind) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[kind]
	return r, ok
}

// Find returns the device and control that contain stateID in the cached
// result for kind. The first match in document order wins.
func (c *Cache) Find(kind Kind, stateID string) (Match, error) {
	r, ok := c.Get(kind)
	if !ok {
		return Match{}, fmt.Errorf("%w: %s", ErrNotBrowsed, kind)
	}
	m, ok := FindState(r.Devices, stateID)
	if !ok {
		return Match{}, fmt.Errorf("%w: %s", ErrStateNotFound, stateID)
	}
	return m, nil
}

// FindState scans devices for the control holding stateID.
func FindState(devices []DeviceDescription, stateID string) (Match, bool) {
	for di, d := range devices {
		for ci, ctrl := range d.Controls {
			for _, ns := range ctrl.States {
				if ns.State.ID == stateID {
					return Match{
						Device:           d,
						Control:          ctrl,
						DeviceIndex:      di,
						ControlIndex:     ci,
						RepresentativeID: RepresentativeID(ctrl),
					}, true
				}
			}
		}
	}
	return Match{}, false
}
