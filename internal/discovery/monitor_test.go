package discovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/muurk/goveeplug/internal/ble"
)

func TestMonitor_RoutesByAddress(t *testing.T) {
	adapter := &fakeAdapter{advs: []ble.Advertisement{
		adv("a4:c1:38:00:00:01", "ihoment_H5080_AB12", []byte{0x01}, -40),
		adv("a4:c1:38:00:00:02", "ihoment_H5082_CD34", []byte{0x03}, -50),
		adv("11:22:33:44:55:66", "SomeOtherDevice", []byte{0xff}, -30),
		adv("a4:c1:38:00:00:01", "ihoment_H5080_AB12", []byte{0x00}, -41),
	}}

	monitor := NewMonitor(adapter)

	var mu sync.Mutex
	var forOne, forAll []string
	monitor.Attach("A4:C1:38:00:00:01", func(adv ble.Advertisement) {
		mu.Lock()
		forOne = append(forOne, adv.LocalName)
		mu.Unlock()
	})
	monitor.Attach("", func(adv ble.Advertisement) {
		mu.Lock()
		forAll = append(forAll, adv.LocalName)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := monitor.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(forOne) != 2 {
		t.Errorf("address listener saw %d advertisements, want 2", len(forOne))
	}
	// The watch-all listener still only sees supported plugs
	if len(forAll) != 3 {
		t.Errorf("watch-all listener saw %d advertisements, want 3", len(forAll))
	}
}

func TestMonitor_Detach(t *testing.T) {
	adapter := &fakeAdapter{advs: []ble.Advertisement{
		adv("a4:c1:38:00:00:01", "ihoment_H5080_AB12", []byte{0x01}, -40),
	}}

	monitor := NewMonitor(adapter)

	var calls int
	var mu sync.Mutex
	detach := monitor.Attach("a4:c1:38:00:00:01", func(ble.Advertisement) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	detach()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := monitor.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("detached listener called %d times", calls)
	}
}
