package ble

import (
	"context"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/muurk/goveeplug/internal/logging"
)

// TinyGoAdapter wraps tinygo.org/x/bluetooth, which backs onto BlueZ on
// Linux, CoreBluetooth on macOS and WinRT on Windows. On macOS device
// addresses are CoreBluetooth UUIDs rather than MAC addresses; the engine
// treats both as opaque strings.
type TinyGoAdapter struct {
	adapter *bluetooth.Adapter

	enableOnce sync.Once
	enableErr  error
}

// NewTinyGoAdapter returns an adapter backed by the platform default radio
func NewTinyGoAdapter() *TinyGoAdapter {
	return &TinyGoAdapter{adapter: bluetooth.DefaultAdapter}
}

// enable powers the radio on. tinygo requires this before any operation and
// tolerates it exactly once.
func (a *TinyGoAdapter) enable() error {
	a.enableOnce.Do(func() {
		a.enableErr = a.adapter.Enable()
	})
	if a.enableErr != nil {
		return fmt.Errorf("ble: enable adapter: %w", a.enableErr)
	}
	return nil
}

func (a *TinyGoAdapter) Scan(ctx context.Context, fn func(Advertisement)) error {
	if err := a.enable(); err != nil {
		return err
	}

	// tinygo's Scan blocks until StopScan; bridge ctx cancellation to it
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = a.adapter.StopScan()
		case <-done:
		}
	}()

	err := a.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		adv := Advertisement{
			Address:   result.Address.String(),
			LocalName: result.LocalName(),
			RSSI:      result.RSSI,
		}
		if elems := result.ManufacturerData(); len(elems) > 0 {
			adv.ManufacturerData = elems[len(elems)-1].Data
		}
		fn(adv)
	})
	close(done)

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("ble: scan: %w", err)
	}
	return nil
}

// Connect establishes a connection. tinygo's Connect blocks with its own
// internal timeout; ctx cancellation returns early and the late connection,
// if one still arrives, is closed in the background.
func (a *TinyGoAdapter) Connect(ctx context.Context, address string) (Connection, error) {
	if err := a.enable(); err != nil {
		return nil, err
	}

	var addr bluetooth.Address
	addr.Set(address)

	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil {
				_ = r.device.Disconnect()
			}
		}()
		return nil, fmt.Errorf("ble: connect to %s: %w", address, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("ble: connect to %s: %w", address, r.err)
		}
		logging.LogConnection(address, "connected")
		return &tinyGoConnection{address: address, device: r.device}, nil
	}
}

// Compile-time check that TinyGoAdapter implements Adapter.
var _ Adapter = (*TinyGoAdapter)(nil)

type tinyGoConnection struct {
	address string
	device  bluetooth.Device

	mu       sync.Mutex
	services []bluetooth.DeviceService
}

// Characteristic searches every service for the given characteristic. No
// service UUID is assumed: plug firmware revisions disagree about which
// service exposes the control pair.
func (c *tinyGoConnection) Characteristic(uuid string) (Characteristic, error) {
	target, err := bluetooth.ParseUUID(uuid)
	if err != nil {
		return nil, fmt.Errorf("ble: parse characteristic UUID: %w", err)
	}

	services, err := c.discoverServices()
	if err != nil {
		return nil, err
	}

	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics([]bluetooth.UUID{target})
		if err != nil || len(chars) == 0 {
			continue
		}
		return &tinyGoCharacteristic{char: chars[0]}, nil
	}
	return nil, fmt.Errorf("ble: characteristic %s not found on %s", uuid, c.address)
}

func (c *tinyGoConnection) discoverServices() ([]bluetooth.DeviceService, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.services != nil {
		return c.services, nil
	}

	services, err := c.device.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("ble: discover services on %s: %w", c.address, err)
	}
	c.services = services
	return services, nil
}

func (c *tinyGoConnection) Disconnect() error {
	logging.LogConnection(c.address, "disconnected")
	return c.device.Disconnect()
}

type tinyGoCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

func (ch *tinyGoCharacteristic) Write(data []byte) error {
	_, err := ch.char.WriteWithoutResponse(data)
	return err
}

func (ch *tinyGoCharacteristic) Subscribe(callback func(data []byte)) error {
	return ch.char.EnableNotifications(func(buf []byte) {
		// BlueZ reuses the notification buffer between callbacks
		data := make([]byte, len(buf))
		copy(data, buf)
		callback(data)
	})
}

func (ch *tinyGoCharacteristic) Unsubscribe() error {
	return ch.char.EnableNotifications(nil)
}
