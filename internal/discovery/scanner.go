package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/goveeplug/internal/ble"
	"github.com/muurk/goveeplug/internal/logging"
	"github.com/muurk/goveeplug/internal/protocol"
)

// DefaultScanTimeout is the default duration of a one-shot scan. Plugs
// advertise every few hundred milliseconds, so ten seconds comfortably
// catches everything in radio range.
const DefaultScanTimeout = 10 * time.Second

// Scanner performs one-shot discovery scans over a BLE adapter
type Scanner struct {
	adapter ble.Adapter
}

// NewScanner creates a scanner on the given adapter
func NewScanner(adapter ble.Adapter) *Scanner {
	return &Scanner{adapter: adapter}
}

// Scan listens for advertisements for up to timeout and returns every
// supported plug heard, deduplicated by address and sorted by signal
// strength (strongest first). A timeout <= 0 uses DefaultScanTimeout.
//
// The scan ending by timeout is the success path; an error means the radio
// itself failed.
func (s *Scanner) Scan(ctx context.Context, timeout time.Duration) ([]*Device, error) {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var mu sync.Mutex
	seen := make(map[string]*Device)

	err := s.adapter.Scan(ctx, func(adv ble.Advertisement) {
		device, ok := observe(adv)
		if !ok {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if prev, dup := seen[device.Address]; dup {
			mergeObservation(prev, device)
			return
		}
		seen[device.Address] = device
		logging.Debug("Plug discovered",
			zap.String("address", device.Address),
			zap.String("name", device.Name),
			zap.String("model", string(device.Model)),
		)
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	devices := make([]*Device, 0, len(seen))
	for _, device := range seen {
		devices = append(devices, device)
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].RSSI != devices[j].RSSI {
			return devices[i].RSSI > devices[j].RSSI
		}
		return devices[i].Address < devices[j].Address
	})
	return devices, nil
}

// Find scans until the plug with the given address is heard or the timeout
// expires. Useful when the caller already knows which device it wants.
func (s *Scanner) Find(ctx context.Context, address string, timeout time.Duration) (*Device, error) {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	want := strings.ToLower(address)
	var mu sync.Mutex
	var found *Device

	err := s.adapter.Scan(ctx, func(adv ble.Advertisement) {
		if strings.ToLower(adv.Address) != want {
			return
		}
		device, ok := observe(adv)
		if !ok {
			return
		}
		mu.Lock()
		found = device
		mu.Unlock()
		cancel()
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	if found == nil {
		return nil, fmt.Errorf("no broadcast from %s within %s", address, timeout)
	}
	return found, nil
}

// observe converts one advertisement into a Device, rejecting anything that
// is not a supported plug
func observe(adv ble.Advertisement) (*Device, bool) {
	info, ok := protocol.ParseAdvertisement(protocol.Advertisement{
		LocalName:        adv.LocalName,
		ManufacturerData: adv.ManufacturerData,
	})
	if !ok {
		return nil, false
	}
	logging.LogAdvertisement(adv.Address, adv.LocalName, adv.ManufacturerData)

	now := time.Now()
	return &Device{
		Address:   strings.ToLower(adv.Address),
		Name:      info.Name,
		Model:     info.Model,
		RSSI:      adv.RSSI,
		States:    info.States,
		HasState:  info.HasState,
		FirstSeen: now,
		LastSeen:  now,
	}, true
}

// mergeObservation folds a newer sighting of an already-seen device into its
// entry. State is sticky: a broadcast without manufacturer data must not
// erase state a previous broadcast carried.
func mergeObservation(prev, next *Device) {
	prev.RSSI = next.RSSI
	prev.LastSeen = next.LastSeen
	if next.HasState {
		prev.States = next.States
		prev.HasState = true
	}
}
