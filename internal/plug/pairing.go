package plug

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/goveeplug/internal/ble"
	"github.com/muurk/goveeplug/internal/logging"
	"github.com/muurk/goveeplug/internal/protocol"
)

// Pairer performs the one-shot access key exchange with a plug in pairing
// mode. The user puts the plug into pairing mode by holding its button; the
// engine cannot detect that state, it only sees the plug answering "not yet"
// until the button is held, so the exchange loops until the key arrives or
// the caller gives up.
//
// A Pairer is single use: Begin once, Finish once, Close always.
type Pairer struct {
	adapter ble.Adapter
	address string
	spec    *protocol.Spec
	opts    Options

	conn       ble.Connection
	writeChar  ble.Characteristic
	notifyChar ble.Characteristic

	keyCh   chan string
	retryCh chan struct{}
	retries int32

	pumpCancel context.CancelFunc

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewPairer creates a pairer for a plug of a known model
func NewPairer(adapter ble.Adapter, address string, model protocol.Model, opts Options) (*Pairer, error) {
	spec, ok := protocol.SpecFor(model)
	if !ok {
		return nil, NewConfigurationError(fmt.Sprintf("unsupported model %q", model))
	}
	return &Pairer{
		adapter: adapter,
		address: address,
		spec:    spec,
		opts:    opts.withDefaults(),
		keyCh:   make(chan string, 1),
		retryCh: make(chan struct{}, 1),
	}, nil
}

// Begin connects to the plug, subscribes to its notifications and sends the
// first pairing request. It returns once the exchange is in flight; Finish
// waits for the outcome.
func (pr *Pairer) Begin(ctx context.Context) error {
	pr.mu.Lock()
	if pr.started {
		pr.mu.Unlock()
		return NewConfigurationError("pairing already begun")
	}
	pr.started = true
	pr.mu.Unlock()

	conn, err := ble.Establish(ctx, pr.adapter, pr.address, pr.opts.Establish)
	if err != nil {
		return NewPairingError("could not reach plug", err)
	}

	writeChar, err := conn.Characteristic(protocol.WriteCharacteristicUUID)
	if err != nil {
		_ = conn.Disconnect()
		return NewPairingError("command characteristic missing", err)
	}
	notifyChar, err := conn.Characteristic(protocol.NotifyCharacteristicUUID)
	if err != nil {
		_ = conn.Disconnect()
		return NewPairingError("notify characteristic missing", err)
	}

	err = notifyChar.Subscribe(func(data []byte) {
		logging.LogFrame(pr.address, "received", data)
		switch ev := protocol.Classify(data); ev.Kind {
		case protocol.EventPairKey:
			select {
			case pr.keyCh <- ev.Key:
			default:
			}
		case protocol.EventPairRetry:
			atomic.AddInt32(&pr.retries, 1)
			select {
			case pr.retryCh <- struct{}{}:
			default:
			}
		default:
			logging.LogRawBytes("Unexpected notification during pairing", data)
		}
	})
	if err != nil {
		_ = conn.Disconnect()
		return NewPairingError("subscribe failed", err)
	}

	pr.conn = conn
	pr.writeChar = writeChar
	pr.notifyChar = notifyChar

	// Re-sends happen off the notification callback: writing from inside
	// the radio's callback goroutine can deadlock the dbus handler
	pumpCtx, cancel := context.WithCancel(context.Background())
	pr.pumpCancel = cancel
	go pr.pump(pumpCtx)

	if err := writeChar.Write(protocol.PairingRequest()); err != nil {
		pr.teardown()
		return NewPairingError("pairing request write failed", err)
	}
	logging.LogConnection(pr.address, "pairing_started")
	return nil
}

// pump re-sends the pairing request each time the plug answers "not yet"
func (pr *Pairer) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-pr.retryCh:
			logging.Debug("Pairing retry",
				zap.String("address", pr.address),
				zap.Int32("count", atomic.LoadInt32(&pr.retries)),
			)
			if err := pr.writeChar.Write(protocol.PairingRequest()); err != nil {
				logging.Warn("Pairing retry write failed",
					zap.String("address", pr.address),
					zap.Error(err),
				)
			}
		}
	}
}

// Retries reports how many times the plug has declined so far. The count
// moves while the user is not yet holding the button, which makes it a
// usable liveness signal for interactive flows.
func (pr *Pairer) Retries() int {
	return int(atomic.LoadInt32(&pr.retries))
}

// Finish waits for the access key. Abandonment via ctx returns ctx.Err()
// with an empty key; the exchange itself keeps running until Close.
func (pr *Pairer) Finish(ctx context.Context) (string, error) {
	pr.mu.Lock()
	started := pr.started
	pr.mu.Unlock()
	if !started {
		return "", NewConfigurationError("pairing not begun")
	}

	select {
	case key := <-pr.keyCh:
		logging.Info("Pairing complete", zap.String("address", pr.address))
		return key, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close tears the exchange down and disconnects. Always call it, success or
// not. Close is idempotent.
func (pr *Pairer) Close() error {
	pr.mu.Lock()
	if pr.closed {
		pr.mu.Unlock()
		return nil
	}
	pr.closed = true
	pr.mu.Unlock()

	pr.teardown()
	return nil
}

func (pr *Pairer) teardown() {
	if pr.pumpCancel != nil {
		pr.pumpCancel()
	}
	if pr.notifyChar != nil {
		_ = pr.notifyChar.Unsubscribe()
	}
	if pr.conn != nil {
		_ = pr.conn.Disconnect()
	}
}

// Pair runs the whole exchange in one call: connect, request, wait for the
// key, tear down. The returned token is 32 lowercase hex characters, ready
// for New.
func Pair(ctx context.Context, adapter ble.Adapter, address string, model protocol.Model, opts Options) (string, error) {
	pr, err := NewPairer(adapter, address, model, opts)
	if err != nil {
		return "", err
	}
	if err := pr.Begin(ctx); err != nil {
		return "", err
	}
	defer pr.Close()
	return pr.Finish(ctx)
}
