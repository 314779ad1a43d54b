package plug

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/goveeplug/internal/ble"
	"github.com/muurk/goveeplug/internal/logging"
	"github.com/muurk/goveeplug/internal/protocol"
)

// runSession is the single consumer of the command queue. Exactly one runs
// per plug at any time; the running flag in Plug enforces that.
func (p *Plug) runSession() {
	defer p.finishSession()

	batch := p.queue.drain()
	if len(batch) == 0 {
		return
	}

	logging.Info("Session started",
		zap.String("address", p.address),
		zap.String("model", string(p.spec.Model)),
		zap.Int("batch", len(batch)),
	)

	if err := p.processBatch(p.ctx, batch); err != nil {
		logging.Error("Session ended with error",
			zap.String("address", p.address),
			zap.Error(err),
		)
		return
	}

	logging.Info("Session finished", zap.String("address", p.address))
}

// finishSession clears the running flag and starts a fresh session when
// commands arrived during teardown, so nothing waits forever just because it
// was submitted late. On a closed handle it sweeps the queue instead.
func (p *Plug) finishSession() {
	p.mu.Lock()
	p.running = false
	if p.closed {
		p.mu.Unlock()
		for _, cmd := range p.queue.drain() {
			cmd.resolve(false)
		}
		return
	}
	if p.queue.size() > 0 {
		p.running = true
		go p.runSession()
	}
	p.mu.Unlock()
}

// processBatch owns one connection for its whole life: connect, auth, deliver
// the admitted batch in order, linger for stragglers, tear down. Admitted
// commands that are still unresolved when it returns resolve false, and the
// connection always closes.
func (p *Plug) processBatch(ctx context.Context, admitted []*pendingCommand) error {
	defer func() {
		for _, cmd := range admitted {
			cmd.resolve(false)
		}
	}()

	conn, err := ble.Establish(ctx, p.adapter, p.address, p.opts.Establish)
	if err != nil {
		return NewConnectionError("could not reach plug", err)
	}
	defer func() {
		_ = conn.Disconnect()
	}()

	writeChar, err := conn.Characteristic(protocol.WriteCharacteristicUUID)
	if err != nil {
		return NewConnectionError("command characteristic missing", err)
	}
	notifyChar, err := conn.Characteristic(protocol.NotifyCharacteristicUUID)
	if err != nil {
		return NewConnectionError("notify characteristic missing", err)
	}

	events := make(chan protocol.Event, 16)
	err = notifyChar.Subscribe(func(data []byte) {
		logging.LogFrame(p.address, "received", data)
		ev := protocol.Classify(data)
		if ev.Kind == protocol.EventUnknown {
			return
		}
		// Never block the radio's callback goroutine
		select {
		case events <- ev:
		default:
		}
	})
	if err != nil {
		return NewConnectionError("subscribe failed", err)
	}
	defer func() {
		_ = notifyChar.Unsubscribe()
	}()

	// The plug ignores everything until the access key is presented
	authFrame, err := protocol.AuthFrame(p.token)
	if err != nil {
		return NewConfigurationError(err.Error())
	}
	if err := p.writeFrame(writeChar, authFrame); err != nil {
		return err
	}
	if err := waitForEvent(ctx, events, protocol.EventAuthAck, p.opts.AuthTimeout); err != nil {
		return NewAuthError("plug did not confirm access key", err)
	}
	logging.LogConnection(p.address, "auth_ready")

	for i := 0; i < len(admitted); i++ {
		cmd := admitted[i]

		// A stale ack must not satisfy the wait for this command
		drainEvents(events)

		if err := p.writeFrame(writeChar, cmd.frame); err != nil {
			// The in-flight command is lost, but the rest of the batch was
			// never attempted: hand it to the next session instead of
			// failing it
			p.queue.pushFront(admitted[i+1:])
			admitted = admitted[:i+1]
			return err
		}
		if err := waitForEvent(ctx, events, protocol.EventCommandAck, p.opts.AckTimeout); err != nil {
			p.queue.pushFront(admitted[i+1:])
			admitted = admitted[:i+1]
			return NewTimeoutError("plug did not acknowledge command", err)
		}
		cmd.resolve(true)

		if i == len(admitted)-1 {
			// Batch done; linger for stragglers before disconnecting
			if next, ok := p.queue.pull(ctx, p.opts.IdleTimeout); ok {
				admitted = append(admitted, next)
			}
		}
	}

	return nil
}

func (p *Plug) writeFrame(char ble.Characteristic, frame []byte) error {
	logging.LogFrame(p.address, "sent", frame)
	if err := char.Write(frame); err != nil {
		return NewWriteError("write to plug failed", err)
	}
	return nil
}

// waitForEvent waits for one event of the wanted kind, discarding events of
// other kinds along the way
func waitForEvent(ctx context.Context, events <-chan protocol.Event, kind protocol.EventKind, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return nil
			}
			logging.Debug("Ignoring event while waiting",
				zap.Stringer("got", ev.Kind),
				zap.Stringer("want", kind),
			)
		case <-timer.C:
			return fmt.Errorf("no %s within %s", kind, timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drainEvents discards whatever is sitting in the event channel
func drainEvents(events <-chan protocol.Event) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}
