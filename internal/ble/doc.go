// Package ble abstracts the Bluetooth Low Energy radio behind small
// interfaces so the rest of the engine never touches hardware directly.
//
// # Interfaces
//
// Three interfaces cover everything the engine needs from a radio:
//   - Adapter: scan for advertisements, connect to a device
//   - Connection: look up characteristics, disconnect
//   - Characteristic: write, subscribe to notifications, unsubscribe
//
// Production code uses TinyGoAdapter, backed by tinygo.org/x/bluetooth
// (BlueZ on Linux, CoreBluetooth on macOS, WinRT on Windows). Tests swap in
// an in-memory implementation and drive both sides of the conversation.
//
// # Scanning
//
// Scan streams raw advertisements through a callback until the context is
// cancelled. It does no filtering: deciding which broadcasts matter is the
// discovery layer's job.
//
// # Connecting
//
// Establish wraps Adapter.Connect with bounded exponential-backoff retries.
// Plugs drop the first connection attempt fairly often, especially right
// after broadcasting; a short retry schedule hides that.
//
//	conn, err := ble.Establish(ctx, adapter, address, ble.DefaultEstablishOptions())
//	if err != nil {
//	    return err
//	}
//	defer conn.Disconnect()
//
//	char, err := conn.Characteristic(protocol.WriteCharacteristicUUID)
package ble
