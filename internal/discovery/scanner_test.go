package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/muurk/goveeplug/internal/ble"
	"github.com/muurk/goveeplug/internal/protocol"
)

// fakeAdapter replays a scripted sequence of advertisements, then waits for
// cancellation like a real radio would
type fakeAdapter struct {
	advs    []ble.Advertisement
	scanErr error
}

func (f *fakeAdapter) Scan(ctx context.Context, fn func(ble.Advertisement)) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	for _, adv := range f.advs {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		fn(adv)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeAdapter) Connect(ctx context.Context, address string) (ble.Connection, error) {
	return nil, errors.New("fake: no connections")
}

func adv(address, name string, mfrData []byte, rssi int16) ble.Advertisement {
	return ble.Advertisement{
		Address:          address,
		LocalName:        name,
		RSSI:             rssi,
		ManufacturerData: mfrData,
	}
}

func TestScanner_Scan(t *testing.T) {
	adapter := &fakeAdapter{advs: []ble.Advertisement{
		adv("A4:C1:38:00:00:01", "ihoment_H5080_AB12", []byte{0x00, 0x01}, -40),
		adv("a4:c1:38:00:00:02", "ihoment_H5082_CD34", []byte{0x00, 0x03}, -70),
		adv("a4:c1:38:00:00:03", "GVH5086XYZ", nil, -55),
		adv("11:22:33:44:55:66", "SomeOtherDevice", []byte{0xff}, -30),
		adv("aa:bb:cc:dd:ee:ff", "", []byte{0x01}, -30),
	}}

	devices, err := NewScanner(adapter).Scan(context.Background(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(devices) != 3 {
		t.Fatalf("found %d devices, want 3 (unsupported names filtered)", len(devices))
	}

	// Sorted strongest-signal first
	if devices[0].Address != "a4:c1:38:00:00:01" {
		t.Errorf("strongest device = %s, want the -40 dBm H5080", devices[0].Address)
	}

	byAddr := map[string]*Device{}
	for _, d := range devices {
		byAddr[d.Address] = d
	}

	h5080 := byAddr["a4:c1:38:00:00:01"]
	if h5080.Model != protocol.ModelH5080 {
		t.Errorf("model = %s, want H5080", h5080.Model)
	}
	if !h5080.HasState || !h5080.States[0] {
		t.Errorf("H5080 state = %v/%v, want on", h5080.HasState, h5080.States)
	}

	h5082 := byAddr["a4:c1:38:00:00:02"]
	if len(h5082.States) != 2 || !h5082.States[0] || !h5082.States[1] {
		t.Errorf("H5082 states = %v, want both on", h5082.States)
	}

	h5086 := byAddr["a4:c1:38:00:00:03"]
	if h5086.HasState {
		t.Error("H5086 reported state despite missing manufacturer data")
	}
	if h5086.StateSummary() != "unknown" {
		t.Errorf("StateSummary = %q, want unknown", h5086.StateSummary())
	}
}

func TestScanner_ScanDeduplicates(t *testing.T) {
	adapter := &fakeAdapter{advs: []ble.Advertisement{
		adv("a4:c1:38:00:00:01", "ihoment_H5080_AB12", []byte{0x00, 0x01}, -60),
		adv("A4:C1:38:00:00:01", "ihoment_H5080_AB12", nil, -50),
		adv("a4:c1:38:00:00:01", "ihoment_H5080_AB12", []byte{0x00, 0x00}, -45),
	}}

	devices, err := NewScanner(adapter).Scan(context.Background(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("found %d devices, want 1 after dedup", len(devices))
	}

	device := devices[0]
	if device.RSSI != -45 {
		t.Errorf("RSSI = %d, want newest (-45)", device.RSSI)
	}
	// The stateless middle broadcast must not have erased state
	if !device.HasState {
		t.Fatal("state lost across a broadcast without manufacturer data")
	}
	if device.States[0] {
		t.Error("state = on, want off from the newest stateful broadcast")
	}
}

func TestScanner_ScanError(t *testing.T) {
	adapter := &fakeAdapter{scanErr: errors.New("radio on fire")}

	_, err := NewScanner(adapter).Scan(context.Background(), 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected scan error to propagate")
	}
}

func TestScanner_Find(t *testing.T) {
	adapter := &fakeAdapter{advs: []ble.Advertisement{
		adv("a4:c1:38:00:00:01", "ihoment_H5080_AB12", []byte{0x01}, -40),
		adv("a4:c1:38:00:00:02", "ihoment_H5082_CD34", []byte{0x03}, -50),
	}}

	device, err := NewScanner(adapter).Find(context.Background(), "A4:C1:38:00:00:02", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if device == nil {
		t.Fatal("device not found")
	}
	if device.Model != protocol.ModelH5082 {
		t.Errorf("model = %s, want H5082", device.Model)
	}
}

func TestScanner_FindTimeout(t *testing.T) {
	adapter := &fakeAdapter{advs: []ble.Advertisement{
		adv("a4:c1:38:00:00:01", "ihoment_H5080_AB12", []byte{0x01}, -40),
	}}

	device, err := NewScanner(adapter).Find(context.Background(), "ff:ff:ff:ff:ff:ff", 30*time.Millisecond)
	if err == nil {
		t.Fatalf("Find returned %v, want an error for an address never advertised", device)
	}
}
