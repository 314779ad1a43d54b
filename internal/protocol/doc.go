// Package protocol implements the Govee smart plug BLE protocol.
//
// This package handles construction and classification of the binary frames
// exchanged with Govee Bluetooth smart plugs (H5080, H5082, H5086), plus the
// passive decoding of their advertisement broadcasts. It is pure: no I/O, no
// goroutines, no transport knowledge.
//
// # Protocol Overview
//
// Plugs exchange fixed 20-byte frames over a GATT characteristic pair:
//   - Byte 0: message type (0x33 command family, 0xaa status family)
//   - Byte 1: subtype (0x01 switch, 0xb2 auth, 0xb1 pairing)
//   - Bytes 2-18: payload, zero padded to 17 bytes
//   - Byte 19: XOR checksum of the preceding 19 bytes
//
// Commands are written to one characteristic; the plug answers through
// notifications on a second. The same frame shape flows both ways.
//
// # Message Types
//
// Outbound frames:
//   - Switch: drives one port on or off (state byte is model specific)
//   - Auth: presents the access key after connecting
//   - Pairing request: asks a plug in pairing mode to issue its key
//
// Inbound notifications classify into events:
//   - EventAuthAck: the plug accepted the auth frame
//   - EventCommandAck: the plug acknowledged a switch command
//   - EventPairKey: pairing succeeded, key attached
//   - EventPairRetry: pairing pending, re-send the request
//   - EventUnknown: anything else, safe to ignore
//
// # Model Registry
//
// The registry is closed: each supported model contributes its advertised
// name prefix, port layout, switch state bytes and advertisement decoder.
// Everything model specific lives in the Spec; the rest of the engine only
// ever handles opaque frames.
//
// # Usage Example - Construction
//
//	spec, _ := protocol.SpecFor(protocol.ModelH5082)
//	frame, err := spec.SwitchFrame(0, true) // left outlet on
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// write frame to the plug's command characteristic
//
// # Usage Example - Classification
//
//	ev := protocol.Classify(notification)
//	switch ev.Kind {
//	case protocol.EventCommandAck:
//	    // command landed
//	case protocol.EventPairKey:
//	    fmt.Println("access key:", ev.Key)
//	}
//
// # Advertisements
//
// Plugs broadcast their power state in manufacturer data, so state tracking
// needs no connection at all:
//
//	info, ok := protocol.ParseAdvertisement(protocol.Advertisement{
//	    LocalName:        result.LocalName(),
//	    ManufacturerData: mfrData,
//	})
//	if ok && info.HasState {
//	    fmt.Println(info.Model, info.States)
//	}
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package protocol
