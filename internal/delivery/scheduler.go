// Package delivery owns the outbound buffer of the network sink and decides
// when its contents are sent: periodically, on demand, or not at all when a
// flush is cancelled.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bassosimone/runtimex"

	"github.com/crimson-sun/timber/internal/model"
)

const defaultInterval = 5 * time.Second

// ErrCanceled is the cause reported for flushes stopped by Cancel.
var ErrCanceled = errors.New("delivery: flush canceled")

// Transport sends one batch. Implementations must honour ctx cancellation.
type Transport interface {
	DeliverBatch(ctx context.Context, events []model.LogEvent) error
}

// TransportError reports a failed or cancelled flush. The batch it names is
// not re-buffered.
type TransportError struct {
	Events int
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("delivery: batch of %d events lost: %v", e.Events, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the period of the background flush. Default: 5s.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithEnabled sets the predicate checked before each periodic flush.
// Default: always enabled.
func WithEnabled(f func() bool) Option {
	return func(s *Scheduler) { s.enabled = f }
}

// WithOnError sets the callback invoked when a periodic flush fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(s *Scheduler) { s.errFunc = f }
}

// Scheduler buffers events for a Transport. Enqueue, Flush and Cancel are
// safe for concurrent use. The buffer lock is held only to append or to cut
// a batch, never during delivery.
type Scheduler struct {
	transport Transport
	interval  time.Duration
	enabled   func() bool
	errFunc   func(error)

	mu       sync.Mutex
	pending  []model.LogEvent
	inflight map[uint64]context.CancelCauseFunc
	nextID   uint64
	flushes  sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// New creates a Scheduler. The periodic trigger does not run until Start.
func New(t Transport, opts ...Option) *Scheduler {
	runtimex.Assert(t != nil)
	s := &Scheduler{
		transport: t,
		interval:  defaultInterval,
		enabled:   func() bool { return true },
		errFunc:   func(err error) { slog.Warn("network flush error", "error", err) },
		inflight:  make(map[uint64]context.CancelCauseFunc),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	runtimex.Assert(s.interval > 0)
	return s
}

// Enqueue appends an event to the outbound buffer.
func (s *Scheduler) Enqueue(event model.LogEvent) {
	s.mu.Lock()
	s.pending = append(s.pending, event)
	s.mu.Unlock()
}

// Write implements output.Output by enqueueing. It never blocks on I/O.
func (s *Scheduler) Write(_ context.Context, event model.LogEvent) error {
	s.Enqueue(event)
	return nil
}

// Pending returns the number of buffered events not yet taken by a flush.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush takes every buffered event and delivers it in the background. The
// returned channel yields exactly one value (nil on success, a
// *TransportError otherwise) and is then closed. Events enqueued after the
// call belong to the next flush.
func (s *Scheduler) Flush(ctx context.Context) <-chan error {
	result := make(chan error, 1)

	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	if len(batch) == 0 {
		s.mu.Unlock()
		result <- nil
		close(result)
		return result
	}
	fctx, cancel := context.WithCancelCause(ctx)
	id := s.nextID
	s.nextID++
	s.inflight[id] = cancel
	s.flushes.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.flushes.Done()
		err := s.transport.DeliverBatch(fctx, batch)

		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()

		// A cancelled flush reports ErrCanceled even if the transport
		// finished before noticing; part of the batch may have arrived.
		if errors.Is(context.Cause(fctx), ErrCanceled) {
			err = ErrCanceled
		}
		cancel(nil)
		if err != nil {
			err = &TransportError{Events: len(batch), Err: err}
		}
		result <- err
		close(result)
	}()
	return result
}

// FlushFunc is Flush with a completion callback, invoked exactly once from
// the delivery goroutine (or synchronously for an empty buffer).
func (s *Scheduler) FlushFunc(ctx context.Context, completion func(error)) {
	ch := s.Flush(ctx)
	select {
	case err := <-ch:
		completion(err)
	default:
		go func() { completion(<-ch) }()
	}
}

// Cancel aborts every in-flight flush. Their results report ErrCanceled.
// Buffered events not yet taken by a flush are kept for the next one.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.inflight {
		cancel(ErrCanceled)
	}
}

// Start launches the periodic flush. Calling it more than once is a no-op.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *Scheduler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.enabled() {
				continue
			}
			if err := <-s.Flush(context.Background()); err != nil {
				s.errFunc(err)
			}
		}
	}
}

// Close stops the periodic flush, waits for the ticker goroutine to exit,
// then flushes what is left and waits for every outstanding delivery.
func (s *Scheduler) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.startOnce.Do(func() { close(s.done) })
	<-s.done

	var err error
	if s.enabled() {
		err = <-s.Flush(context.Background())
	}
	s.flushes.Wait()
	return err
}
