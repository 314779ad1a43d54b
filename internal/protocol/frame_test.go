package protocol

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{
			name: "empty data",
			data: []byte{},
			want: 0x00,
		},
		{
			name: "single byte",
			data: []byte{0x33},
			want: 0x33,
		},
		{
			name: "switch frame header",
			data: []byte{0x33, 0x01, 0xff},
			want: 0xcd,
		},
		{
			name: "pairing request header",
			data: []byte{0xaa, 0xb1},
			want: 0x1b,
		},
		{
			name: "xor cancels duplicate bytes",
			data: []byte{0x5a, 0x5a},
			want: 0x00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum() = 0x%02x, want 0x%02x", got, tt.want)
			}
		})
	}
}

func TestBuildFrame(t *testing.T) {
	tests := []struct {
		name    string
		msgType byte
		subtype byte
		payload []byte
		wantHex string
		wantErr bool
	}{
		{
			name:    "empty payload pads to full frame",
			msgType: 0xaa,
			subtype: 0xb1,
			payload: nil,
			wantHex: "aab100000000000000000000000000000000001b",
		},
		{
			name:    "single state byte",
			msgType: 0x33,
			subtype: 0x01,
			payload: []byte{0xff},
			wantHex: "3301ff00000000000000000000000000000000cd",
		},
		{
			// 17 bytes of 0x11 xor to 0x11; 0x33^0xb2^0x11 = 0x90
			name:    "full 17-byte payload",
			msgType: 0x33,
			subtype: 0xb2,
			payload: bytes.Repeat([]byte{0x11}, 17),
			wantHex: "33b2" + "1111111111111111111111111111111111" + "90",
		},
		{
			name:    "payload too large",
			msgType: 0x33,
			subtype: 0x01,
			payload: make([]byte, 18),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := BuildFrame(tt.msgType, tt.subtype, tt.payload)
			if tt.wantErr {
				if err == nil {
					t.Fatal("BuildFrame() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildFrame() unexpected error: %v", err)
			}

			if len(frame) != FrameSize {
				t.Errorf("frame size = %d, want %d", len(frame), FrameSize)
			}
			if got := hex.EncodeToString(frame); got != tt.wantHex {
				t.Errorf("frame = %s, want %s", got, tt.wantHex)
			}
			if !VerifyChecksum(frame) {
				t.Error("built frame fails checksum verification")
			}
		})
	}
}

func TestParseFrame(t *testing.T) {
	raw, _ := BuildFrame(0x33, 0x01, []byte{0x22})

	frame, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame() unexpected error: %v", err)
	}

	if frame.Type != 0x33 {
		t.Errorf("Type = 0x%02x, want 0x33", frame.Type)
	}
	if frame.Subtype != 0x01 {
		t.Errorf("Subtype = 0x%02x, want 0x01", frame.Subtype)
	}
	if len(frame.Payload) != PayloadSize {
		t.Errorf("payload length = %d, want %d", len(frame.Payload), PayloadSize)
	}
	if frame.Payload[0] != 0x22 {
		t.Errorf("payload[0] = 0x%02x, want 0x22", frame.Payload[0])
	}
	if frame.Checksum != 0x10 {
		t.Errorf("Checksum = 0x%02x, want 0x10", frame.Checksum)
	}
	if !bytes.Equal(frame.Raw, raw) {
		t.Errorf("Raw = %x, want %x", frame.Raw, raw)
	}

	// Mutating the input must not change the parsed frame
	raw[2] = 0xee
	if frame.Payload[0] != 0x22 {
		t.Error("parsed payload aliases the input buffer")
	}
}

func TestParseFrame_WrongSize(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: []byte{}},
		{name: "too short", data: make([]byte, 19)},
		{name: "too long", data: make([]byte, 21)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFrame(tt.data); err == nil {
				t.Error("ParseFrame() expected error, got nil")
			}
		})
	}
}

func TestVerifyChecksum(t *testing.T) {
	valid, _ := BuildFrame(0x33, 0x01, []byte{0x11})

	corrupted := append([]byte(nil), valid...)
	corrupted[5] ^= 0x80

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{name: "valid frame", data: valid, want: true},
		{name: "corrupted payload", data: corrupted, want: false},
		{name: "wrong length", data: valid[:19], want: false},
		{name: "empty", data: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyChecksum(tt.data); got != tt.want {
				t.Errorf("VerifyChecksum() = %v, want %v", got, tt.want)
			}
		})
	}
}
