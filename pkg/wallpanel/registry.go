package wallpanel

import (
	"fmt"
	"sync"
)

// Registry is the insertion-ordered collection of configured devices.
type Registry struct {
	mu      sync.RWMutex
	devices []*Device
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a device and returns its entity id. A device whose id is
// already taken gets a numeric suffix. Add must be called before the
// device is shared with other goroutines.
func (r *Registry) Add(d *Device) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := d.id
	id := base
	for n := 2; r.has(id); n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	d.id = id

	r.devices = append(r.devices, d)
	return id
}

func (r *Registry) has(id string) bool {
	for _, d := range r.devices {
		if d.id == id {
			return true
		}
	}
	return false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

func (r *Registry) Devices() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]*Device, len(r.devices))
	copy(devices, r.devices)
	return devices
}

func (r *Registry) Get(id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.devices {
		if d.id == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
}

// Select returns the devices whose id is in ids, in registry order. No ids
// selects every device.
func (r *Registry) Select(ids []string) []*Device {
	if len(ids) == 0 {
		return r.Devices()
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var devices []*Device
	for _, d := range r.devices {
		if _, ok := wanted[d.id]; ok {
			devices = append(devices, d)
		}
	}
	return devices
}

func (r *Registry) Snapshots() []Snapshot {
	devices := r.Devices()
	snaps := make([]Snapshot, 0, len(devices))
	for _, d := range devices {
		snaps = append(snaps, d.Snapshot())
	}
	return snaps
}
