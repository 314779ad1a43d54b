package plug

import (
	"context"
	"testing"
	"time"

	"github.com/muurk/goveeplug/internal/protocol"
)

func TestPair_Success(t *testing.T) {
	mock := newMockPlug()

	token, err := Pair(context.Background(), mock, "a4:c1:38:01:02:03", protocol.ModelH5080, testOptions())
	if err != nil {
		t.Fatalf("Pair failed: %v", err)
	}
	if token != "deadbeef00112233445566778899aabb" {
		t.Errorf("token = %q, want lowercase hex of the issued key", token)
	}

	// Pairing always tears the connection down, success included
	eventually(t, "pairing disconnect", func() bool {
		conn := mock.lastConn()
		return conn != nil && conn.isDisconnected()
	})
}

func TestPair_RetriesUntilConfirmed(t *testing.T) {
	mock := newMockPlug()
	mock.pairDeclines = 3 // plug says "not yet" three times before issuing the key

	pr, err := NewPairer(mock, "a4:c1:38:01:02:03", protocol.ModelH5080, testOptions())
	if err != nil {
		t.Fatalf("NewPairer failed: %v", err)
	}
	defer pr.Close()

	if err := pr.Begin(context.Background()); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	token, err := pr.Finish(ctx)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if token != "deadbeef00112233445566778899aabb" {
		t.Errorf("token = %q, want the issued key", token)
	}
	if got := pr.Retries(); got != 3 {
		t.Errorf("Retries() = %d, want 3", got)
	}

	// One request per decline plus the initial one
	var requests int
	for _, w := range mock.allWrites() {
		if w[0] == protocol.MsgTypeStatus && w[1] == protocol.SubtypePair {
			requests++
		}
	}
	if requests != 4 {
		t.Errorf("pairing requests written = %d, want 4", requests)
	}
}

func TestPairer_FinishAbandoned(t *testing.T) {
	mock := newMockPlug()
	mock.silent = true // plug never answers; user never held the button

	pr, err := NewPairer(mock, "a4:c1:38:01:02:03", protocol.ModelH5080, testOptions())
	if err != nil {
		t.Fatalf("NewPairer failed: %v", err)
	}
	defer pr.Close()

	if err := pr.Begin(context.Background()); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	token, err := pr.Finish(ctx)
	if token != "" {
		t.Errorf("token = %q, want empty on abandonment", token)
	}
	if err != context.DeadlineExceeded {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}

	// Teardown still runs on the abandoned path
	pr.Close()
	conn := mock.lastConn()
	if conn == nil || !conn.isDisconnected() {
		t.Error("connection not released after abandoned pairing")
	}
}

func TestPairer_BeginTwice(t *testing.T) {
	pr, err := NewPairer(newMockPlug(), "a4:c1:38:01:02:03", protocol.ModelH5080, testOptions())
	if err != nil {
		t.Fatalf("NewPairer failed: %v", err)
	}
	defer pr.Close()

	if err := pr.Begin(context.Background()); err != nil {
		t.Fatalf("first Begin failed: %v", err)
	}
	if err := pr.Begin(context.Background()); !IsConfigurationError(err) {
		t.Errorf("second Begin err = %v, want configuration error", err)
	}
}

func TestPairer_FinishBeforeBegin(t *testing.T) {
	pr, err := NewPairer(newMockPlug(), "a4:c1:38:01:02:03", protocol.ModelH5080, testOptions())
	if err != nil {
		t.Fatalf("NewPairer failed: %v", err)
	}
	defer pr.Close()

	if _, err := pr.Finish(context.Background()); !IsConfigurationError(err) {
		t.Errorf("Finish err = %v, want configuration error", err)
	}
}

func TestPair_ConnectFailure(t *testing.T) {
	mock := newMockPlug()
	mock.connectErrs = 1000

	_, err := Pair(context.Background(), mock, "a4:c1:38:01:02:03", protocol.ModelH5080, testOptions())
	if !IsPairingError(err) {
		t.Fatalf("err = %v, want pairing error", err)
	}
}

func TestPair_UnsupportedModel(t *testing.T) {
	_, err := Pair(context.Background(), newMockPlug(), "a4:c1:38:01:02:03", "H9999", testOptions())
	if !IsConfigurationError(err) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}
