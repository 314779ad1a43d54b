// Package discovery provides passive BLE discovery of Govee smart plugs.
//
// Plugs broadcast advertisements continuously whether or not anything is
// connected to them, and those broadcasts carry both identity (the advertised
// name encodes the model) and live power state (in the manufacturer data).
// This package turns the raw advertisement feed into two shapes:
//
//  1. Scanner - a one-shot, bounded scan that returns the deduplicated set of
//     supported plugs seen within a timeout. Used by the scan command and the
//     wizard's device picker.
//
//  2. Monitor - a long-running router that dispatches every advertisement
//     from a watched address to registered listeners. Used by the watch
//     command and the wizard's control screen for live state updates.
//
// Neither shape ever opens a connection: everything here is passive
// observation, safe to run concurrently with an active control session
// against the same plug.
//
// # Device Information
//
// Discovered devices expose:
//   - Address: the stable BLE address (identity across reconnects)
//   - Name: the advertised local name (e.g., "ihoment_H5082_ABCD")
//   - Model: decoded from the name prefix
//   - RSSI: signal strength of the newest broadcast
//   - States: per-port power state when the broadcast carried it
//
// # Usage Example
//
//	scanner := discovery.NewScanner(adapter)
//	devices, err := scanner.Scan(ctx, 10*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range devices {
//	    fmt.Println(d)
//	}
package discovery
