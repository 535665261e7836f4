package mail

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []message
	err  error
	done chan struct{}
}

func (r *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, message{recipient: to, subject: subject, body: body})
	if r.done != nil {
		r.done <- struct{}{}
	}
	return r.err
}

func (r *recordingNotifier) snapshot() []message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]message(nil), r.sent...)
}

func TestNewSMTPNotifier_RequiresHost(t *testing.T) {
	_, err := NewSMTPNotifier(SMTPConfig{Port: 2525, From: "from@example.com"})
	assert.Error(t, err)
}

func TestSMTPNotifier_RejectsBadAddress(t *testing.T) {
	n, err := NewSMTPNotifier(SMTPConfig{Host: "localhost", Port: 2525, From: "from@example.com"})
	require.NoError(t, err)

	err = n.Send(context.Background(), "not an address", "s", "b")
	assert.Error(t, err)
}

func TestSMTPNotifier_UnreachableRelay(t *testing.T) {
	n, err := NewSMTPNotifier(SMTPConfig{
		Host:    "127.0.0.1",
		Port:    1,
		From:    "from@example.com",
		Timeout: 500 * time.Millisecond,
	})
	require.NoError(t, err)

	err = n.Send(context.Background(), "alice@example.com", "s", "b")
	assert.Error(t, err)
}

func TestLogNotifier_Send(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier("from@example.com", zerolog.New(&buf))

	require.NoError(t, n.Send(context.Background(), "alice@example.com", "Your code", "123456"))
	out := buf.String()
	assert.Contains(t, out, `"to":"alice@example.com"`)
	assert.Contains(t, out, `"subject":"Your code"`)
	assert.Contains(t, out, "123456")

	assert.Error(t, n.Send(context.Background(), "", "s", "b"))
}

func TestDispatcher_DeliversInOrderPerRecipient(t *testing.T) {
	next := &recordingNotifier{done: make(chan struct{}, 10)}
	d := NewDispatcher(3, next, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for _, body := range []string{"one", "two", "three"} {
		require.NoError(t, d.Send(context.Background(), "alice@example.com", "s", body))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-next.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d", i)
		}
	}
	cancel()
	d.Wait()

	sent := next.snapshot()
	require.Len(t, sent, 3)
	assert.Equal(t, "one", sent[0].body)
	assert.Equal(t, "two", sent[1].body)
	assert.Equal(t, "three", sent[2].body)
}

func TestDispatcher_DeliveryErrorsAreNotReturned(t *testing.T) {
	next := &recordingNotifier{err: errors.New("relay down"), done: make(chan struct{}, 1)}
	d := NewDispatcher(1, next, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	assert.NoError(t, d.Send(context.Background(), "alice@example.com", "s", "b"))
	select {
	case <-next.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestDispatcher_NotRunning(t *testing.T) {
	d := NewDispatcher(1, &recordingNotifier{}, zerolog.Nop())
	assert.ErrorIs(t, d.Send(context.Background(), "a@example.com", "s", "b"), ErrNotRunning)
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := NewDispatcher(1, &recordingNotifier{}, zerolog.Nop())
	// Mark running without workers so nothing drains the channel.
	d.running = true

	for i := 0; i < channelBuffer; i++ {
		require.NoError(t, d.Send(context.Background(), "a@example.com", "s", "b"))
	}
	assert.ErrorIs(t, d.Send(context.Background(), "a@example.com", "s", "b"), ErrQueueFull)
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(4, &recordingNotifier{}, zerolog.Nop())
	first := d.shardIndex("alice@example.com")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, d.shardIndex("alice@example.com"))
	}
	assert.Less(t, first, 4)
}
