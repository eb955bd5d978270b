package mailer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/logging"
)

var (
	ErrQueueFull   = errors.New("mail queue is full")
	ErrQueueClosed = errors.New("mail queue is closed")
)

const (
	defaultSendTimeout  = 30 * time.Second
	defaultDrainTimeout = 10 * time.Second
)

// Queue is a bounded mail queue served by a fixed pool of workers.
// Enqueue never blocks; delivery failures are logged and counted.
type Queue struct {
	ch           chan Message
	sender       Sender
	workers      int
	log          logging.Logger
	sendTimeout  time.Duration
	drainTimeout time.Duration

	mu     sync.RWMutex
	closed bool

	sent   atomic.Uint64
	failed atomic.Uint64
}

func NewQueue(sender Sender, workers, size int, log logging.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	return &Queue{
		ch:           make(chan Message, size),
		sender:       sender,
		workers:      workers,
		log:          log.With("module", "mailer"),
		sendTimeout:  defaultSendTimeout,
		drainTimeout: defaultDrainTimeout,
	}
}

// Enqueue schedules msg for delivery. It returns ErrQueueFull instead of
// waiting when the buffer has no room, and ErrQueueClosed once Run has
// begun shutting down.
func (q *Queue) Enqueue(msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run starts the workers and blocks until ctx is done and every worker has
// finished draining what was already queued. The queue is closed before the
// workers drain, so nothing accepted can be left behind.
func (q *Queue) Run(ctx context.Context) error {
	stop := make(chan struct{})
	base := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.worker(base, stop, id)
		}(i)
	}

	<-ctx.Done()
	q.close()
	close(stop)

	wg.Wait()
	q.log.Info(ctx, "mail queue stopped", "sent", q.sent.Load(), "failed", q.failed.Load())
	return nil
}

func (q *Queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *Queue) worker(ctx context.Context, stop <-chan struct{}, id int) {
	for {
		select {
		case msg := <-q.ch:
			q.deliver(ctx, id, msg)
		case <-stop:
			q.drain(ctx, id)
			return
		}
	}
}

func (q *Queue) drain(ctx context.Context, id int) {
	ctx, cancel := context.WithTimeout(ctx, q.drainTimeout)
	defer cancel()

	for {
		select {
		case msg := <-q.ch:
			q.deliver(ctx, id, msg)
		case <-ctx.Done():
			q.log.Warn(ctx, "mail drain timed out", "worker", id, "pending", len(q.ch))
			return
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, id int, msg Message) {
	sendCtx, cancel := context.WithTimeout(ctx, q.sendTimeout)
	defer cancel()

	if err := q.sender.Send(sendCtx, msg); err != nil {
		q.failed.Add(1)
		q.log.Error(ctx, "mail delivery failed", "worker", id, "to", msg.To, "subject", msg.Subject, "error", err)
		return
	}
	q.sent.Add(1)
	q.log.Debug(ctx, "mail delivered", "worker", id, "to", msg.To)
}

// Sent and Failed report delivery counters.
func (q *Queue) Sent() uint64   { return q.sent.Load() }
func (q *Queue) Failed() uint64 { return q.failed.Load() }
