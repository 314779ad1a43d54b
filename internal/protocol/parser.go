package protocol

import (
	"encoding/hex"
	"fmt"
)

// EventKind identifies what a notification frame means to a running session
type EventKind int

const (
	EventUnknown    EventKind = iota
	EventAuthAck              // plug accepted the auth frame
	EventCommandAck           // plug acknowledged a switch command
	EventPairKey              // pairing succeeded, access key attached
	EventPairRetry            // pairing not confirmed yet, re-send the request
)

// pairConfirmed is the status byte a pairing response carries once the plug
// has issued a key. Any other value means the plug is still waiting for the
// button press.
const pairConfirmed = 0x01

// Event is a classified notification frame
type Event struct {
	Kind EventKind
	Key  string // lowercase hex access key, set only for EventPairKey
	Raw  []byte // original notification bytes
}

// Classify maps a notification payload to the event a session cares about.
//
// Classification reads only the type, subtype and (for pairing) status bytes.
// Checksums are not verified here: plugs in the field have been seen emitting
// trailing noise after valid headers, and a session that drops an ack over it
// would stall a healthy connection. Anything that cannot be classified,
// including frames too short to carry the needed bytes, comes back as
// EventUnknown and is safe to ignore.
func Classify(data []byte) Event {
	ev := Event{Kind: EventUnknown, Raw: data}
	if len(data) < 2 {
		return ev
	}

	switch {
	case data[0] == MsgTypeCommand && data[1] == SubtypeAuth:
		ev.Kind = EventAuthAck

	case data[0] == MsgTypeCommand && data[1] == SubtypeSwitch:
		ev.Kind = EventCommandAck

	case data[0] == MsgTypeStatus && data[1] == SubtypePair:
		// Pairing responses carry a status byte and, on success, the key
		if len(data) < 3 {
			return ev
		}
		if data[2] != pairConfirmed {
			ev.Kind = EventPairRetry
			return ev
		}
		if len(data) < 3+KeySize {
			// Confirmed but truncated: unusable, treat as noise
			return ev
		}
		ev.Kind = EventPairKey
		ev.Key = hex.EncodeToString(data[3 : 3+KeySize])
	}

	return ev
}

// String returns a short name for the event kind
func (k EventKind) String() string {
	switch k {
	case EventAuthAck:
		return "auth_ack"
	case EventCommandAck:
		return "command_ack"
	case EventPairKey:
		return "pair_key"
	case EventPairRetry:
		return "pair_retry"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}
