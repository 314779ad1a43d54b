// Package tui implements the terminal user interface for the goveeplug setup
// wizard.
//
// The wizard walks a user from an empty registry to a controllable plug:
// scan for nearby plugs, pick one, pair with it (hold the button on the
// device), store the issued access token, and flip its ports. Built using
// the Bubble Tea framework, it follows the Elm architecture of
// model-update-view with message passing between screens.
//
// # Screen Flow
//
//	Scan ──pick──▶ Pairing ──key issued──▶ Control
//	  ▲               │                       │
//	  └──── esc ◀─────┴────────── esc ◀───────┘
//
// A plug that already has a token in the registry skips the pairing screen
// and goes straight to control.
//
//   - Scan: live BLE scan with a device list; supported plugs show model,
//     address, signal strength and the power state inferred from their
//     broadcasts.
//   - Pairing: connects to the chosen plug, sends the pairing request and
//     re-sends it each time the plug declines. The retry counter ticking up
//     tells the user the plug is alive but the button has not been held yet.
//   - Control: per-port toggle backed by a live command session; port state
//     updates only after the plug acknowledges a command or broadcasts it.
//
// # Architecture
//
// AppModel is the top-level coordinator owning screen transitions and the
// shared state (selected device, access token, registry handle). Each screen
// is its own model with its own Init/Update/View. All screens render through
// RenderApplicationContainer for a consistent full-terminal chrome.
package tui
