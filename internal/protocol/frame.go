package protocol

import (
	"encoding/hex"
	"fmt"
)

// Frame layout constants. Every frame on the wire is exactly 20 bytes:
//
//	[0]     type      Message family (0x33 command, 0xaa status/pairing)
//	[1]     subtype   Operation within the family
//	[2-18]  payload   17 bytes, zero padded
//	[19]    checksum  XOR of bytes 0-18
const (
	FrameSize   = 20
	PayloadSize = 17

	checksumPos = FrameSize - 1
)

// Message type bytes (frame byte 0)
const (
	MsgTypeCommand = 0x33 // command family: switch, auth
	MsgTypeStatus  = 0xaa // status family: pairing key exchange
)

// Subtype bytes (frame byte 1)
const (
	SubtypeSwitch = 0x01 // per-port power switch
	SubtypeAuth   = 0xb2 // access-token authentication
	SubtypePair   = 0xb1 // pairing key exchange
)

// Frame is a decoded 20-byte protocol frame
type Frame struct {
	Type     byte   // message family
	Subtype  byte   // operation within the family
	Payload  []byte // 17 bytes, zero padded
	Checksum byte   // XOR of the preceding 19 bytes
	Raw      []byte // original frame bytes
}

// Checksum computes the XOR checksum over data
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// BuildFrame constructs a complete 20-byte frame from a message type, subtype
// and payload. The payload is zero padded to 17 bytes and the XOR checksum of
// the first 19 bytes is appended.
//
// Returns an error if the payload exceeds 17 bytes.
func BuildFrame(msgType byte, subtype byte, payload []byte) ([]byte, error) {
	if len(payload) > PayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), PayloadSize)
	}

	frame := make([]byte, FrameSize)
	frame[0] = msgType
	frame[1] = subtype
	copy(frame[2:], payload)

	// Padding is automatically zero-filled by make()
	frame[checksumPos] = Checksum(frame[:checksumPos])

	return frame, nil
}

// ParseFrame decodes a raw 20-byte frame into its parts. It does not verify
// the checksum; use VerifyChecksum when validity matters.
func ParseFrame(data []byte) (*Frame, error) {
	if len(data) != FrameSize {
		return nil, fmt.Errorf("invalid frame size: %d bytes (want %d)", len(data), FrameSize)
	}

	return &Frame{
		Type:     data[0],
		Subtype:  data[1],
		Payload:  append([]byte(nil), data[2:checksumPos]...),
		Checksum: data[checksumPos],
		Raw:      append([]byte(nil), data...),
	}, nil
}

// VerifyChecksum reports whether the final byte of a 20-byte frame matches
// the XOR of the preceding 19 bytes
func VerifyChecksum(data []byte) bool {
	if len(data) != FrameSize {
		return false
	}
	return Checksum(data[:checksumPos]) == data[checksumPos]
}

// String renders the frame for logs and debugging
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{type: 0x%02x, subtype: 0x%02x, payload: %s, checksum: 0x%02x}",
		f.Type, f.Subtype, hex.EncodeToString(f.Payload), f.Checksum)
}
