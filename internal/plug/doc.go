// Package plug is the engine that drives Govee smart plugs: queued command
// delivery over self-managing connection sessions, pairing, and passive state
// tracking.
//
// # Sessions
//
// A Plug owns one command queue and allows one connection session at a time.
// Submitting a command starts a session if none is running; the session
// drains the queue into a batch, connects (with retries), authenticates with
// the stored access key, delivers the batch in order waiting for a per-command
// ack, then lingers briefly for stragglers before disconnecting. Commands
// arriving after teardown started trigger a fresh session, so nothing waits
// forever for having been submitted late.
//
// Every submitted command resolves exactly once: true when the plug
// acknowledged it, false when the session gave up on it. A mid-batch write
// failure fails only the in-flight command; commands the session never
// attempted go back to the front of the queue for the next session.
//
//	p, err := plug.New(adapter, address, protocol.ModelH5082, token, plug.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	delivered, err := p.TurnOn(ctx, 0) // left outlet
//
// # Pairing
//
// Pairing is how the access key is obtained in the first place. The plug
// declines the pairing request until the user holds its power button, so the
// exchange loops: one re-send per decline, no upper bound. Pair runs the whole
// exchange in one call; Pairer exposes the begin/finish split plus a decline
// counter for interactive flows that want a liveness signal.
//
// # State
//
// Port state is tri-state (on/off/unknown) and is only ever set by evidence:
// a command ack, or a broadcast carrying state. It starts unknown and never
// guesses.
package plug
