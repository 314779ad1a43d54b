package protocol

import (
	"encoding/hex"
	"fmt"
)

// Frame constructor library for building the frames written to a plug's
// command characteristic.

// KeySize is the length in bytes of the access key a plug issues during
// pairing. Outside the wire format the key travels as 32 lowercase hex
// characters.
const KeySize = 16

// PairingRequest returns the frame that asks a plug in pairing mode to issue
// its access key.
//
// Byte-for-byte: aab100000000000000000000000000000000001b
func PairingRequest() []byte {
	frame, _ := BuildFrame(MsgTypeStatus, SubtypePair, nil)
	return frame
}

// AuthFrame builds the authentication frame for an access token previously
// obtained through pairing. The token must be 32 hex characters (the 16-byte
// key); it is decoded and zero padded into the 17-byte payload.
func AuthFrame(token string) ([]byte, error) {
	key, err := hex.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid access token length: %d bytes (want %d)", len(key), KeySize)
	}
	return BuildFrame(MsgTypeCommand, SubtypeAuth, key)
}

// SwitchFrame builds the frame that drives one port to a model-specific state
// byte. Callers normally go through Spec.SwitchFrame, which picks the right
// state byte for a port and direction.
func SwitchFrame(state byte) []byte {
	frame, _ := BuildFrame(MsgTypeCommand, SubtypeSwitch, []byte{state})
	return frame
}
