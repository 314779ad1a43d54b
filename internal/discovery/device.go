package discovery

import (
	"fmt"
	"time"

	"github.com/muurk/goveeplug/internal/protocol"
)

// Device represents a supported plug observed during a scan
type Device struct {
	// Address is the stable BLE address (a MAC on Linux/Windows, a
	// CoreBluetooth UUID on macOS)
	Address string

	// Name is the advertised local name (e.g., "ihoment_H5082_ABCD")
	Name string

	// Model is decoded from the advertised name prefix
	Model protocol.Model

	// RSSI is the signal strength of the most recent broadcast, in dBm
	RSSI int16

	// States is the per-port power state from the most recent broadcast
	// that carried manufacturer data; valid only when HasState is set
	States   []bool
	HasState bool

	// FirstSeen and LastSeen bound the observation window within one scan
	FirstSeen time.Time
	LastSeen  time.Time
}

// String returns a human-readable one-line summary of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s %s (%s, %d dBm)", d.Model, d.Name, d.Address, d.RSSI)
}

// StateSummary renders the per-port state as "on", "off,on", or "unknown"
func (d *Device) StateSummary() string {
	if !d.HasState {
		return "unknown"
	}
	summary := ""
	for i, on := range d.States {
		if i > 0 {
			summary += ","
		}
		if on {
			summary += "on"
		} else {
			summary += "off"
		}
	}
	return summary
}
