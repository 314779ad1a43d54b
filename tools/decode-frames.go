//go:build ignore

// Decode-frames is a development aid for inspecting captured plug traffic.
//
// It takes hex-encoded 20-byte frames, either as arguments or one per line on
// stdin, and prints each frame's decoded fields, checksum validity, and what
// a running session would make of it.
//
// Usage:
//
//	go run tools/decode-frames.go aab100000000000000000000000000000000001b
//	btmon-capture-to-hex | go run tools/decode-frames.go
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/muurk/goveeplug/internal/protocol"
)

func main() {
	if len(os.Args) > 1 {
		for _, arg := range os.Args[1:] {
			decode(arg)
		}
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		decode(line)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read error: %v\n", err)
		os.Exit(1)
	}
}

func decode(hexFrame string) {
	cleaned := strings.NewReplacer(" ", "", ":", "").Replace(hexFrame)

	data, err := hex.DecodeString(cleaned)
	if err != nil {
		fmt.Printf("%s\n  ✗ not hex: %v\n\n", hexFrame, err)
		return
	}

	fmt.Println(hex.EncodeToString(data))

	frame, err := protocol.ParseFrame(data)
	if err != nil {
		// Still classify: notifications in the field sometimes arrive with
		// trailing noise, and sessions classify those anyway
		ev := protocol.Classify(data)
		fmt.Printf("  ✗ %v\n", err)
		fmt.Printf("  session would see: %s\n\n", ev.Kind)
		return
	}

	fmt.Printf("  type:     0x%02x (%s)\n", frame.Type, typeName(frame.Type))
	fmt.Printf("  subtype:  0x%02x (%s)\n", frame.Subtype, subtypeName(frame.Subtype))
	fmt.Printf("  payload:  %s\n", hex.EncodeToString(frame.Payload))

	if protocol.VerifyChecksum(data) {
		fmt.Printf("  checksum: 0x%02x (valid)\n", frame.Checksum)
	} else {
		fmt.Printf("  checksum: 0x%02x (INVALID, expected 0x%02x)\n",
			frame.Checksum, protocol.Checksum(data[:len(data)-1]))
	}

	ev := protocol.Classify(data)
	fmt.Printf("  session would see: %s\n", ev.Kind)
	if ev.Key != "" {
		fmt.Printf("  access key: %s\n", ev.Key)
	}
	fmt.Println()
}

func typeName(t byte) string {
	switch t {
	case protocol.MsgTypeCommand:
		return "command"
	case protocol.MsgTypeStatus:
		return "status"
	default:
		return "unknown"
	}
}

func subtypeName(s byte) string {
	switch s {
	case protocol.SubtypeSwitch:
		return "switch"
	case protocol.SubtypeAuth:
		return "auth"
	case protocol.SubtypePair:
		return "pair"
	default:
		return "unknown"
	}
}
