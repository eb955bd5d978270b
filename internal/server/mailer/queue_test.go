package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestQueue_EnqueueFull(t *testing.T) {
	q := NewQueue(&fakeSender{}, 1, 2, logging.Nop())

	require.NoError(t, q.Enqueue(Message{To: "a@example.com"}))
	require.NoError(t, q.Enqueue(Message{To: "b@example.com"}))
	assert.ErrorIs(t, q.Enqueue(Message{To: "c@example.com"}), ErrQueueFull)
}

func TestQueue_DeliversAndDrainsOnShutdown(t *testing.T) {
	sender := &fakeSender{}
	q := NewQueue(sender, 2, 10, logging.Nop())

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Message{To: "a@example.com", Subject: "hi"}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	require.Eventually(t, func() bool { return sender.count() == 5 }, time.Second, 5*time.Millisecond)

	require.NoError(t, q.Enqueue(Message{To: "late@example.com"}))
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not stop")
	}
	assert.Equal(t, 6, sender.count())
	assert.Equal(t, uint64(6), q.Sent())
	assert.Equal(t, uint64(0), q.Failed())
}

func TestQueue_FailuresAreCounted(t *testing.T) {
	sender := &fakeSender{err: errors.New("relay down")}
	q := NewQueue(sender, 1, 4, logging.Nop())

	require.NoError(t, q.Enqueue(Message{To: "a@example.com"}))
	require.NoError(t, q.Enqueue(Message{To: "b@example.com"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = q.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return q.Failed() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, uint64(0), q.Sent())
}

func TestNewQueue_ClampsSizes(t *testing.T) {
	q := NewQueue(&fakeSender{}, 0, 0, logging.Nop())
	assert.Equal(t, 1, q.workers)
	assert.Equal(t, 1, cap(q.ch))
}

func TestQueue_EnqueueAfterStopIsRejected(t *testing.T) {
	sender := &fakeSender{}
	q := NewQueue(sender, 1, 4, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	cancel()
	require.NoError(t, <-done)

	assert.ErrorIs(t, q.Enqueue(Message{To: "late@example.com"}), ErrQueueClosed)
	assert.Equal(t, 0, len(q.ch))
	assert.Equal(t, 0, sender.count())
}
