package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyTransport fails its first n sends, n being failures, then records deliveries.
type flakyTransport struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []Message
}

func (f *flakyTransport) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("smtp: connection refused")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *flakyTransport) snapshot() (int, []Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]Message(nil), f.sent...)
}

func startDispatcher(t *testing.T, tr Transport, opts DispatcherOptions) (*Dispatcher, func()) {
	t.Helper()
	d := NewDispatcher(tr, opts, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()
	return d, func() {
		cancel()
		<-done
	}
}

func testMessage(to string) Message {
	return Message{Kind: "welcome", To: to, Subject: "hi", HTML: "<p>hi</p>"}
}

func TestDispatcherRetriesUntilDelivered(t *testing.T) {
	tr := &flakyTransport{failures: 2}
	d, stop := startDispatcher(t, tr, DispatcherOptions{Workers: 1, MaxAttempts: 5, BaseDelay: time.Millisecond})
	defer stop()

	require.True(t, d.Enqueue(testMessage("a@x.com")))

	assert.Eventually(t, func() bool {
		_, sent := tr.snapshot()
		return len(sent) == 1
	}, time.Second, 5*time.Millisecond)
	calls, _ := tr.snapshot()
	assert.Equal(t, 3, calls)
}

func TestDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	tr := &flakyTransport{failures: 100}
	d, stop := startDispatcher(t, tr, DispatcherOptions{Workers: 1, MaxAttempts: 3, BaseDelay: time.Millisecond})

	require.True(t, d.Enqueue(testMessage("a@x.com")))
	assert.Eventually(t, func() bool {
		calls, _ := tr.snapshot()
		return calls == 3
	}, time.Second, 5*time.Millisecond)

	stop()
	calls, sent := tr.snapshot()
	assert.Equal(t, 3, calls)
	assert.Empty(t, sent)
}

func TestDispatcherEnqueueNeverBlocks(t *testing.T) {
	d := NewDispatcher(&flakyTransport{}, DispatcherOptions{QueueSize: 1}, zap.NewNop())

	assert.True(t, d.Enqueue(testMessage("a@x.com")))
	assert.False(t, d.Enqueue(testMessage("b@x.com")))
}

func TestDispatcherDrainsOnShutdown(t *testing.T) {
	tr := &flakyTransport{}
	d := NewDispatcher(tr, DispatcherOptions{Workers: 1, QueueSize: 10}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 3; i++ {
		require.True(t, d.Enqueue(testMessage("a@x.com")))
	}
	require.NoError(t, d.Run(ctx))

	_, sent := tr.snapshot()
	assert.Len(t, sent, 3)
	assert.False(t, d.Enqueue(testMessage("late@x.com")))
}
