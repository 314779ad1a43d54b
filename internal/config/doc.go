// Package config provides persistent device registry management for goveeplug.
//
// This package manages a YAML-based registry file that stores one entry per
// paired plug: its BLE address, model, advertised name and the access token
// obtained through pairing. The token is the long-lived credential every
// connection session authenticates with, so losing this file means re-pairing.
//
// # Registry File Location
//
// The registry file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/goveeplug/devices.yaml or $HOME/.config/goveeplug/devices.yaml
//   - macOS: $HOME/.config/goveeplug/devices.yaml
//   - Windows: %LOCALAPPDATA%\goveeplug\devices.yaml
//
// The GOVEEPLUG_CONFIG environment variable overrides the full file path,
// which is also how tests point the package at a scratch directory.
//
// # Security
//
// Access tokens ARE stored in this file: they are device-local shared secrets
// with no value beyond switching the owner's plugs, and prompting for a
// 32-character hex string on every invocation would make the CLI unusable.
// The directory is created 0700 and the file written 0600.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.SetDevice(&config.Device{
//	    Address:     "a4:c1:38:01:02:03",
//	    Model:       "H5082",
//	    Name:        "ihoment_H5082_ABCD",
//	    AccessToken: "2a3f...",
//	    PairedAt:    time.Now(),
//	})
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across
// goroutines. File operations are protected by a mutex to ensure atomic
// writes.
package config
