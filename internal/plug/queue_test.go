package plug

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCommandQueue_FIFO(t *testing.T) {
	q := newCommandQueue()

	frames := [][]byte{{1}, {2}, {3}}
	for _, f := range frames {
		q.push(newPendingCommand(f))
	}

	batch := q.drain()
	if len(batch) != 3 {
		t.Fatalf("drain returned %d commands, want 3", len(batch))
	}
	for i, cmd := range batch {
		if cmd.frame[0] != frames[i][0] {
			t.Errorf("position %d holds frame %v, want %v", i, cmd.frame, frames[i])
		}
	}
	if q.size() != 0 {
		t.Errorf("queue size after drain = %d, want 0", q.size())
	}
}

func TestCommandQueue_PushFrontOrdering(t *testing.T) {
	q := newCommandQueue()
	q.push(newPendingCommand([]byte{9}))

	q.pushFront([]*pendingCommand{
		newPendingCommand([]byte{1}),
		newPendingCommand([]byte{2}),
	})

	var got []byte
	for _, cmd := range q.drain() {
		got = append(got, cmd.frame[0])
	}
	want := []byte{1, 2, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestCommandQueue_PullTimeout(t *testing.T) {
	q := newCommandQueue()

	start := time.Now()
	if _, ok := q.pull(context.Background(), 30*time.Millisecond); ok {
		t.Fatal("pull returned a command from an empty queue")
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("pull returned after %v, want ~30ms wait", elapsed)
	}
}

func TestCommandQueue_PullWakesOnPush(t *testing.T) {
	q := newCommandQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.push(newPendingCommand([]byte{7}))
	}()

	cmd, ok := q.pull(context.Background(), time.Second)
	if !ok {
		t.Fatal("pull timed out despite a push")
	}
	if cmd.frame[0] != 7 {
		t.Errorf("pulled frame %v, want [7]", cmd.frame)
	}
}

func TestCommandQueue_PullHonorsContext(t *testing.T) {
	q := newCommandQueue()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if _, ok := q.pull(ctx, time.Minute); ok {
		t.Fatal("pull returned a command after cancellation")
	}
}

func TestCommandQueue_ConcurrentProducers(t *testing.T) {
	q := newCommandQueue()

	const producers, perProducer = 8, 50
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.push(newPendingCommand([]byte{0}))
			}
		}()
	}
	wg.Wait()

	if got := q.size(); got != producers*perProducer {
		t.Errorf("queue size = %d, want %d", got, producers*perProducer)
	}
}

func TestPendingCommand_ResolvesExactlyOnce(t *testing.T) {
	cmd := newPendingCommand([]byte{1})

	cmd.resolve(true)
	cmd.resolve(false) // must be a no-op

	delivered, err := cmd.wait(context.Background())
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if !delivered {
		t.Error("second resolve overwrote the first")
	}
}

func TestPendingCommand_WaitHonorsContext(t *testing.T) {
	cmd := newPendingCommand([]byte{1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cmd.wait(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}

	// Late resolution after an abandoned wait must not block
	cmd.resolve(false)
}
