package config

import (
	"sort"
	"strings"
	"time"
)

// Registry represents the entire device registry file
type Registry struct {
	Version int                `yaml:"version"`
	Devices map[string]*Device `yaml:"devices,omitempty"` // keyed by lowercase BLE address
}

// Device is one paired plug. The address is the durable identity; everything
// else is re-learnable, except the access token, which only pairing issues.
type Device struct {
	Address     string    `yaml:"address"`
	Model       string    `yaml:"model"`
	Name        string    `yaml:"name,omitempty"`      // advertised local name at pairing time
	AccessToken string    `yaml:"token"`               // 32 lowercase hex characters
	PairedAt    time.Time `yaml:"paired_at,omitempty"` // when pairing issued the token
	LastSeen    time.Time `yaml:"last_seen,omitempty"` // last advertisement observation
}

// NewRegistry creates an empty registry with the current schema version
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Devices: make(map[string]*Device),
	}
}

// normalizeAddress lowercases an address so lookups survive the case
// differences between platforms' address formatting
func normalizeAddress(address string) string {
	return strings.ToLower(address)
}

// GetDevice retrieves a device entry by address.
// Returns nil if the device is not registered.
func (r *Registry) GetDevice(address string) *Device {
	return r.Devices[normalizeAddress(address)]
}

// SetDevice adds or replaces a device entry, keyed by its address
func (r *Registry) SetDevice(device *Device) {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	device.Address = normalizeAddress(device.Address)
	r.Devices[device.Address] = device
}

// RemoveDevice deletes a device entry. It reports whether an entry existed.
func (r *Registry) RemoveDevice(address string) bool {
	key := normalizeAddress(address)
	if _, ok := r.Devices[key]; !ok {
		return false
	}
	delete(r.Devices, key)
	return true
}

// UpdateLastSeen records an advertisement observation for a registered
// device. Unregistered addresses are ignored.
func (r *Registry) UpdateLastSeen(address string, at time.Time) {
	if device := r.GetDevice(address); device != nil {
		device.LastSeen = at
	}
}

// List returns all registered devices sorted by address
func (r *Registry) List() []*Device {
	devices := make([]*Device, 0, len(r.Devices))
	for _, device := range r.Devices {
		devices = append(devices, device)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Address < devices[j].Address
	})
	return devices
}
