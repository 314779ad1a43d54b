package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// pointRegistryAt routes the package at a scratch file and resets the global
// instance so each test starts clean
func pointRegistryAt(t *testing.T, path string) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, path)
	t.Cleanup(func() {
		if _, err := ReloadRegistry(); err != nil {
			// The scratch env var is gone by cleanup time; a load error
			// against the real location is not this test's problem
			_ = err
		}
	})
}

func testDevice(address string) *Device {
	return &Device{
		Address:     address,
		Model:       "H5082",
		Name:        "ihoment_H5082_ABCD",
		AccessToken: "2a3f8c1d9e0b47a6552e8d1c3b9f0a74",
		PairedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRegistry_SetGetDevice(t *testing.T) {
	registry := NewRegistry()
	registry.SetDevice(testDevice("A4:C1:38:01:02:03"))

	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{"exact lowercase", "a4:c1:38:01:02:03", true},
		{"uppercase lookup", "A4:C1:38:01:02:03", true},
		{"unknown address", "a4:c1:38:ff:ff:ff", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := registry.GetDevice(tt.address)
			if (got != nil) != tt.want {
				t.Errorf("GetDevice(%q) = %v, want present=%v", tt.address, got, tt.want)
			}
		})
	}
}

func TestRegistry_SetDeviceNormalizesAddress(t *testing.T) {
	registry := NewRegistry()
	registry.SetDevice(testDevice("A4:C1:38:01:02:03"))

	device := registry.GetDevice("a4:c1:38:01:02:03")
	if device == nil {
		t.Fatal("device not found after SetDevice")
	}
	if device.Address != "a4:c1:38:01:02:03" {
		t.Errorf("stored address = %q, want lowercase", device.Address)
	}
}

func TestRegistry_RemoveDevice(t *testing.T) {
	registry := NewRegistry()
	registry.SetDevice(testDevice("a4:c1:38:01:02:03"))

	if !registry.RemoveDevice("A4:C1:38:01:02:03") {
		t.Error("RemoveDevice returned false for a registered device")
	}
	if registry.RemoveDevice("a4:c1:38:01:02:03") {
		t.Error("RemoveDevice returned true for an already removed device")
	}
	if registry.GetDevice("a4:c1:38:01:02:03") != nil {
		t.Error("device still present after RemoveDevice")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	registry := NewRegistry()
	for _, addr := range []string{"cc:cc:cc:cc:cc:cc", "aa:aa:aa:aa:aa:aa", "bb:bb:bb:bb:bb:bb"} {
		registry.SetDevice(testDevice(addr))
	}

	devices := registry.List()
	if len(devices) != 3 {
		t.Fatalf("List returned %d devices, want 3", len(devices))
	}
	for i := 1; i < len(devices); i++ {
		if devices[i-1].Address >= devices[i].Address {
			t.Errorf("List not sorted: %q before %q", devices[i-1].Address, devices[i].Address)
		}
	}
}

func TestRegistry_UpdateLastSeen(t *testing.T) {
	registry := NewRegistry()
	registry.SetDevice(testDevice("a4:c1:38:01:02:03"))

	at := time.Date(2025, 7, 4, 8, 30, 0, 0, time.UTC)
	registry.UpdateLastSeen("A4:C1:38:01:02:03", at)
	registry.UpdateLastSeen("ff:ff:ff:ff:ff:ff", at) // unregistered, no-op

	if got := registry.GetDevice("a4:c1:38:01:02:03").LastSeen; !got.Equal(at) {
		t.Errorf("LastSeen = %v, want %v", got, at)
	}
}

func TestRegistry_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	pointRegistryAt(t, path)

	registry := NewRegistry()
	registry.SetDevice(testDevice("a4:c1:38:01:02:03"))
	if err := registry.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := ReloadRegistry()
	if err != nil {
		t.Fatalf("ReloadRegistry failed: %v", err)
	}

	device := loaded.GetDevice("a4:c1:38:01:02:03")
	if device == nil {
		t.Fatal("device missing after reload")
	}
	if device.Model != "H5082" {
		t.Errorf("Model = %q, want H5082", device.Model)
	}
	if device.AccessToken != "2a3f8c1d9e0b47a6552e8d1c3b9f0a74" {
		t.Errorf("AccessToken = %q, not preserved", device.AccessToken)
	}
	if !device.PairedAt.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("PairedAt = %v, not preserved", device.PairedAt)
	}
}

func TestReloadRegistry_MissingFile(t *testing.T) {
	pointRegistryAt(t, filepath.Join(t.TempDir(), "devices.yaml"))

	registry, err := ReloadRegistry()
	if err != nil {
		t.Fatalf("ReloadRegistry failed: %v", err)
	}
	if len(registry.Devices) != 0 {
		t.Errorf("fresh registry has %d devices, want 0", len(registry.Devices))
	}
	if registry.Version != 1 {
		t.Errorf("fresh registry version = %d, want 1", registry.Version)
	}
}

func TestReloadRegistry_UnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte("version: 99\n"), 0600); err != nil {
		t.Fatal(err)
	}
	pointRegistryAt(t, path)

	_, err := ReloadRegistry()
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
	if !strings.Contains(err.Error(), "unsupported registry version") {
		t.Errorf("error = %v, want version complaint", err)
	}
}

func TestRegistry_SaveWritesHeaderAndPerms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	pointRegistryAt(t, path)

	registry := NewRegistry()
	registry.SetDevice(testDevice("a4:c1:38:01:02:03"))
	if err := registry.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Goveeplug Device Registry") {
		t.Error("saved file missing header comment")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}
