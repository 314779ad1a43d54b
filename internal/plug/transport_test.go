package plug

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/muurk/goveeplug/internal/ble"
	"github.com/muurk/goveeplug/internal/protocol"
)

// mockPlug implements ble.Adapter and plays the device side of the
// conversation: it acks auth frames, acks switch frames per an optional
// script and answers pairing requests after a configurable number of
// declines.
type mockPlug struct {
	mu sync.Mutex

	// Behavior knobs
	connectErrs  int           // fail this many Connect calls before succeeding
	connectHold  chan struct{} // when set, Connect blocks until closed
	missingChars bool          // expose no control characteristics
	silent       bool          // accept writes, never notify anything
	ackScript    []int         // acks to send for the n-th switch frame (default 1)
	failWriteAt  int           // fail the n-th switch write (1-based, 0 = never)
	pairDeclines int           // pairing responses before issuing the key
	pairKey      []byte        // 16-byte key to issue

	// Bookkeeping
	connects     int
	active       int
	maxActive    int
	switchSeen   int
	switchWrites int
	connections  []*mockConn
}

func newMockPlug() *mockPlug {
	return &mockPlug{
		pairKey: []byte{
			0xde, 0xad, 0xbe, 0xef, 0x00, 0x11, 0x22, 0x33,
			0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb,
		},
	}
}

func (m *mockPlug) Scan(ctx context.Context, fn func(ble.Advertisement)) error {
	<-ctx.Done()
	return nil
}

func (m *mockPlug) Connect(ctx context.Context, address string) (ble.Connection, error) {
	m.mu.Lock()
	hold := m.connectHold
	m.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
	if m.connects <= m.connectErrs {
		return nil, errors.New("mock: connect failed")
	}
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
	conn := &mockConn{plug: m}
	conn.writeChar = &mockChar{uuid: protocol.WriteCharacteristicUUID, conn: conn}
	conn.notifyChar = &mockChar{uuid: protocol.NotifyCharacteristicUUID, conn: conn}
	m.connections = append(m.connections, conn)
	return conn, nil
}

// lastConn returns the most recent connection
func (m *mockPlug) lastConn() *mockConn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.connections) == 0 {
		return nil
	}
	return m.connections[len(m.connections)-1]
}

// allWrites returns every frame written across all connections, in order
func (m *mockPlug) allWrites() [][]byte {
	m.mu.Lock()
	conns := append([]*mockConn(nil), m.connections...)
	m.mu.Unlock()

	var writes [][]byte
	for _, c := range conns {
		writes = append(writes, c.writeChar.allWrites()...)
	}
	return writes
}

type mockConn struct {
	plug *mockPlug

	mu           sync.Mutex
	disconnected bool

	writeChar  *mockChar
	notifyChar *mockChar
}

func (c *mockConn) Characteristic(uuid string) (ble.Characteristic, error) {
	if c.plug.missingChars {
		return nil, fmt.Errorf("mock: characteristic %s not found", uuid)
	}
	switch uuid {
	case protocol.WriteCharacteristicUUID:
		return c.writeChar, nil
	case protocol.NotifyCharacteristicUUID:
		return c.notifyChar, nil
	default:
		return nil, fmt.Errorf("mock: characteristic %s not found", uuid)
	}
}

func (c *mockConn) Disconnect() error {
	c.mu.Lock()
	already := c.disconnected
	c.disconnected = true
	c.mu.Unlock()

	if !already {
		c.plug.mu.Lock()
		c.plug.active--
		c.plug.mu.Unlock()
	}
	return nil
}

func (c *mockConn) isDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

// notify delivers a frame to the subscriber, if any
func (c *mockConn) notify(frame []byte) {
	c.notifyChar.mu.Lock()
	cb := c.notifyChar.callback
	c.notifyChar.mu.Unlock()
	if cb != nil {
		cb(frame)
	}
}

// respond implements the firmware's reaction to one written frame
func (c *mockConn) respond(frame []byte) {
	if c.plug.silent || len(frame) < 2 {
		return
	}

	switch {
	case frame[0] == protocol.MsgTypeCommand && frame[1] == protocol.SubtypeAuth:
		ack, _ := protocol.BuildFrame(protocol.MsgTypeCommand, protocol.SubtypeAuth, nil)
		c.notify(ack)

	case frame[0] == protocol.MsgTypeCommand && frame[1] == protocol.SubtypeSwitch:
		c.plug.mu.Lock()
		n := c.plug.switchSeen
		c.plug.switchSeen++
		acks := 1
		if n < len(c.plug.ackScript) {
			acks = c.plug.ackScript[n]
		}
		c.plug.mu.Unlock()

		ack, _ := protocol.BuildFrame(protocol.MsgTypeCommand, protocol.SubtypeSwitch, nil)
		for i := 0; i < acks; i++ {
			c.notify(ack)
		}

	case frame[0] == protocol.MsgTypeStatus && frame[1] == protocol.SubtypePair:
		c.plug.mu.Lock()
		decline := c.plug.pairDeclines > 0
		if decline {
			c.plug.pairDeclines--
		}
		key := c.plug.pairKey
		c.plug.mu.Unlock()

		if decline {
			resp, _ := protocol.BuildFrame(protocol.MsgTypeStatus, protocol.SubtypePair, []byte{0x00})
			c.notify(resp)
			return
		}
		resp, _ := protocol.BuildFrame(protocol.MsgTypeStatus, protocol.SubtypePair, append([]byte{0x01}, key...))
		c.notify(resp)
	}
}

type mockChar struct {
	uuid string
	conn *mockConn

	mu       sync.Mutex
	writes   [][]byte
	callback func([]byte)
}

func (ch *mockChar) Write(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	if len(cp) >= 2 && cp[0] == protocol.MsgTypeCommand && cp[1] == protocol.SubtypeSwitch {
		ch.conn.plug.mu.Lock()
		ch.conn.plug.switchWrites++
		failed := ch.conn.plug.failWriteAt > 0 && ch.conn.plug.switchWrites == ch.conn.plug.failWriteAt
		ch.conn.plug.mu.Unlock()
		if failed {
			return errors.New("mock: write failed")
		}
	}

	ch.mu.Lock()
	ch.writes = append(ch.writes, cp)
	ch.mu.Unlock()

	ch.conn.respond(cp)
	return nil
}

func (ch *mockChar) Subscribe(callback func(data []byte)) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.callback = callback
	return nil
}

func (ch *mockChar) Unsubscribe() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.callback = nil
	return nil
}

func (ch *mockChar) allWrites() [][]byte {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return append([][]byte(nil), ch.writes...)
}

// testOptions keeps sessions fast without making races likely
func testOptions() Options {
	return Options{
		Establish: ble.EstablishOptions{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
		},
		AuthTimeout: 250 * time.Millisecond,
		AckTimeout:  250 * time.Millisecond,
		IdleTimeout: 40 * time.Millisecond,
	}
}

// advFor builds a minimal advertisement for state-update tests
func advFor(address string, mfrData []byte) ble.Advertisement {
	return ble.Advertisement{
		Address:          address,
		LocalName:        "ihoment_H5082_ABCD",
		ManufacturerData: mfrData,
	}
}

// eventually polls cond until it holds or the deadline passes
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
