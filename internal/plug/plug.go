package plug

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/muurk/goveeplug/internal/ble"
	"github.com/muurk/goveeplug/internal/protocol"
)

// PortState is tri-state power knowledge for one port. State is learned
// passively from advertisements, so it stays unknown until the plug has been
// heard from.
type PortState int

const (
	StateUnknown PortState = iota
	StateOff
	StateOn
)

// String returns "on", "off" or "unknown"
func (s PortState) String() string {
	switch s {
	case StateOn:
		return "on"
	case StateOff:
		return "off"
	default:
		return "unknown"
	}
}

// Options tunes session behavior. The zero value of any field falls back to
// its default.
type Options struct {
	// Establish controls connection attempts and backoff
	Establish ble.EstablishOptions
	// AuthTimeout bounds the wait for the auth ack after connecting
	AuthTimeout time.Duration
	// AckTimeout bounds the wait for each command ack
	AckTimeout time.Duration
	// IdleTimeout is how long a session lingers for further commands
	// before disconnecting
	IdleTimeout time.Duration
}

// DefaultOptions returns the session tuning used in production
func DefaultOptions() Options {
	return Options{
		Establish:   ble.DefaultEstablishOptions(),
		AuthTimeout: 10 * time.Second,
		AckTimeout:  10 * time.Second,
		IdleTimeout: time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Establish.MaxAttempts == 0 {
		o.Establish = d.Establish
	}
	if o.AuthTimeout == 0 {
		o.AuthTimeout = d.AuthTimeout
	}
	if o.AckTimeout == 0 {
		o.AckTimeout = d.AckTimeout
	}
	if o.IdleTimeout == 0 {
		o.IdleTimeout = d.IdleTimeout
	}
	return o
}

// Plug is the control handle for one paired smart plug. It owns the command
// queue and the single connection session allowed per device.
//
// All methods are safe for concurrent use.
type Plug struct {
	address string
	spec    *protocol.Spec
	token   string
	adapter ble.Adapter
	opts    Options

	queue *commandQueue

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	closed  bool

	stateMu sync.Mutex
	states  []PortState
}

// New creates a handle for a paired plug. The model must be in the supported
// registry and the token must be the 32-hex-character access key obtained
// through pairing.
func New(adapter ble.Adapter, address string, model protocol.Model, token string, opts Options) (*Plug, error) {
	spec, ok := protocol.SpecFor(model)
	if !ok {
		return nil, NewConfigurationError(fmt.Sprintf("unsupported model %q", model))
	}
	if _, err := protocol.AuthFrame(token); err != nil {
		return nil, NewConfigurationError(fmt.Sprintf("bad access token for %s: %v", address, err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Plug{
		address: address,
		spec:    spec,
		token:   token,
		adapter: adapter,
		opts:    opts.withDefaults(),
		queue:   newCommandQueue(),
		ctx:     ctx,
		cancel:  cancel,
		states:  make([]PortState, spec.Ports()),
	}, nil
}

// Address returns the device address
func (p *Plug) Address() string {
	return p.address
}

// Model returns the plug model
func (p *Plug) Model() protocol.Model {
	return p.spec.Model
}

// Ports returns the number of switchable ports
func (p *Plug) Ports() int {
	return p.spec.Ports()
}

// PortNames returns the display names of the ports
func (p *Plug) PortNames() []string {
	return append([]string(nil), p.spec.PortNames...)
}

// TurnOn switches a port on. It returns true when the plug acknowledged the
// command, false when the session could not deliver it.
func (p *Plug) TurnOn(ctx context.Context, port int) (bool, error) {
	return p.setState(ctx, port, true)
}

// TurnOff switches a port off. It returns true when the plug acknowledged
// the command, false when the session could not deliver it.
func (p *Plug) TurnOff(ctx context.Context, port int) (bool, error) {
	return p.setState(ctx, port, false)
}

func (p *Plug) setState(ctx context.Context, port int, on bool) (bool, error) {
	frame, err := p.spec.SwitchFrame(port, on)
	if err != nil {
		return false, NewConfigurationError(err.Error())
	}

	cmd, err := p.submit(frame)
	if err != nil {
		return false, err
	}

	delivered, err := cmd.wait(ctx)
	if err != nil {
		// The command stays queued; the session resolves it eventually
		return false, NewCanceledError("gave up waiting for delivery", err)
	}
	if delivered {
		p.recordState(port, on)
	}
	return delivered, nil
}

// submit enqueues a frame and makes sure a session is running to deliver it.
// It never blocks on the device.
func (p *Plug) submit(frame []byte) (*pendingCommand, error) {
	cmd := newPendingCommand(frame)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cmd.resolve(false)
		return cmd, NewClosedError("plug handle is closed")
	}
	p.queue.push(cmd)
	if !p.running {
		p.running = true
		go p.runSession()
	}
	p.mu.Unlock()

	return cmd, nil
}

// UpdateFromAdvertisement feeds one observed broadcast into passive state
// tracking. Broadcasts from other addresses or without manufacturer data are
// ignored. It reports whether the state was updated.
func (p *Plug) UpdateFromAdvertisement(adv ble.Advertisement) bool {
	if !strings.EqualFold(adv.Address, p.address) {
		return false
	}
	states, ok := p.spec.ParseAdvState(adv.ManufacturerData)
	if !ok {
		return false
	}

	p.stateMu.Lock()
	for i, on := range states {
		if i >= len(p.states) {
			break
		}
		if on {
			p.states[i] = StateOn
		} else {
			p.states[i] = StateOff
		}
	}
	p.stateMu.Unlock()
	return true
}

// State returns the last known per-port power state
func (p *Plug) State() []PortState {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return append([]PortState(nil), p.states...)
}

// RecordObservedState feeds one already-decoded port observation into passive
// state tracking, for callers that parse broadcasts themselves. Out-of-range
// ports are ignored.
func (p *Plug) RecordObservedState(port int, on bool) {
	p.recordState(port, on)
}

func (p *Plug) recordState(port int, on bool) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if port < 0 || port >= len(p.states) {
		return
	}
	if on {
		p.states[port] = StateOn
	} else {
		p.states[port] = StateOff
	}
}

// Close shuts the handle down. The active session is cancelled, every queued
// command resolves false and later submissions are rejected. Close is
// idempotent.
func (p *Plug) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	for _, cmd := range p.queue.drain() {
		cmd.resolve(false)
	}
}
