package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/timber/internal/model"
)

// mockTransport records delivered batches. When block is set, DeliverBatch
// waits for it or for ctx.
type mockTransport struct {
	mu      sync.Mutex
	batches [][]model.LogEvent
	err     error
	block   chan struct{}
	started chan struct{}
}

func (m *mockTransport) DeliverBatch(ctx context.Context, events []model.LogEvent) error {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]model.LogEvent, len(events))
	copy(cp, events)
	m.batches = append(m.batches, cp)
	return m.err
}

func (m *mockTransport) delivered() []model.LogEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LogEvent
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

func testEvent(id string) model.LogEvent {
	return model.LogEvent{ID: id, Level: model.LevelInfo, Payload: []byte(`{}`)}
}

func wait(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err, ok := <-ch:
		require.True(t, ok, "result channel closed without a value")
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("flush did not complete")
		return nil
	}
}

func TestFlushEmptyBufferCompletesImmediately(t *testing.T) {
	tr := &mockTransport{}
	s := New(tr)

	ch := s.Flush(context.Background())

	assert.NoError(t, wait(t, ch))
	_, open := <-ch
	assert.False(t, open, "result channel must be closed after the single value")
	assert.Empty(t, tr.batches)
}

func TestConcurrentEnqueueThenFlush(t *testing.T) {
	tr := &mockTransport{}
	s := New(tr)

	const writers, perWriter = 20, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.Enqueue(testEvent(fmt.Sprintf("%d-%d", w, i)))
			}
		}(w)
	}
	wg.Wait()

	require.NoError(t, wait(t, s.Flush(context.Background())))

	got := tr.delivered()
	require.Len(t, got, writers*perWriter)
	seen := map[string]bool{}
	for _, e := range got {
		assert.False(t, seen[e.ID], "duplicate %s", e.ID)
		seen[e.ID] = true
	}
	assert.Zero(t, s.Pending())
}

func TestFlushPreservesEnqueueOrder(t *testing.T) {
	tr := &mockTransport{}
	s := New(tr)
	for i := 0; i < 5; i++ {
		s.Enqueue(testEvent(fmt.Sprint(i)))
	}

	require.NoError(t, wait(t, s.Flush(context.Background())))

	for i, e := range tr.delivered() {
		assert.Equal(t, fmt.Sprint(i), e.ID)
	}
}

func TestFlushCutoff(t *testing.T) {
	tr := &mockTransport{block: make(chan struct{}), started: make(chan struct{}, 2)}
	s := New(tr)
	s.Enqueue(testEvent("before"))

	first := s.Flush(context.Background())
	<-tr.started
	s.Enqueue(testEvent("after"))
	second := s.Flush(context.Background())
	<-tr.started
	close(tr.block)

	require.NoError(t, wait(t, first))
	require.NoError(t, wait(t, second))

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Len(t, tr.batches, 2)
	ids := map[string]int{}
	for _, b := range tr.batches {
		require.Len(t, b, 1)
		ids[b[0].ID]++
	}
	assert.Equal(t, map[string]int{"before": 1, "after": 1}, ids)
}

func TestConcurrentFlushesNeverDoubleSend(t *testing.T) {
	tr := &mockTransport{}
	s := New(tr)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		s.Enqueue(testEvent(fmt.Sprint(i)))
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-s.Flush(context.Background())
		}()
	}
	wg.Wait()
	require.NoError(t, wait(t, s.Flush(context.Background())))

	got := tr.delivered()
	require.Len(t, got, 200)
	seen := map[string]bool{}
	for _, e := range got {
		assert.False(t, seen[e.ID])
		seen[e.ID] = true
	}
}

func TestFailedBatchIsNotRebuffered(t *testing.T) {
	tr := &mockTransport{err: errors.New("connection refused")}
	s := New(tr)
	s.Enqueue(testEvent("lost"))

	err := wait(t, s.Flush(context.Background()))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Events)
	assert.Zero(t, s.Pending())

	tr.err = nil
	require.NoError(t, wait(t, s.Flush(context.Background())))
	assert.Len(t, tr.batches, 1, "second flush must not resend the lost batch")
}

func TestCancelInFlight(t *testing.T) {
	tr := &mockTransport{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := New(tr)
	s.Enqueue(testEvent("inflight"))

	ch := s.Flush(context.Background())
	<-tr.started
	s.Enqueue(testEvent("later"))
	s.Cancel()

	err := wait(t, ch)
	assert.ErrorIs(t, err, ErrCanceled)
	var te *TransportError
	assert.ErrorAs(t, err, &te)

	// The event enqueued after the cutoff survives for the next flush.
	assert.Equal(t, 1, s.Pending())
	close(tr.block)
	require.NoError(t, wait(t, s.Flush(context.Background())))
	got := tr.delivered()
	require.Len(t, got, 1)
	assert.Equal(t, "later", got[0].ID)
}

func TestCancelRacingFlushCompletesOnce(t *testing.T) {
	for i := 0; i < 100; i++ {
		tr := &mockTransport{}
		s := New(tr)
		s.Enqueue(testEvent(fmt.Sprint(i)))

		var calls atomic.Int64
		done := make(chan struct{})
		s.FlushFunc(context.Background(), func(error) {
			if calls.Add(1) == 1 {
				close(done)
			}
		})
		s.Cancel()
		<-done
		s.Cancel()

		time.Sleep(time.Millisecond)
		assert.Equal(t, int64(1), calls.Load())
		require.NoError(t, wait(t, s.Flush(context.Background())))
		assert.LessOrEqual(t, len(tr.delivered()), 1, "sent events must not reappear")
	}
}

func TestCancelWithoutInflightIsNoop(t *testing.T) {
	s := New(&mockTransport{})
	s.Enqueue(testEvent("kept"))
	s.Cancel()
	assert.Equal(t, 1, s.Pending())
}

func TestPeriodicFlush(t *testing.T) {
	tr := &mockTransport{}
	s := New(tr, WithInterval(20*time.Millisecond))
	s.Start()
	defer s.Close()

	s.Enqueue(testEvent("tick"))

	require.Eventually(t, func() bool { return len(tr.delivered()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestPeriodicFlushSkippedWhenDisabled(t *testing.T) {
	tr := &mockTransport{}
	var enabled atomic.Bool
	s := New(tr, WithInterval(10*time.Millisecond), WithEnabled(enabled.Load))
	s.Start()

	s.Enqueue(testEvent("held"))
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, tr.delivered())

	enabled.Store(true)
	require.Eventually(t, func() bool { return len(tr.delivered()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Close())
}

func TestPeriodicErrorCallback(t *testing.T) {
	tr := &mockTransport{err: errors.New("boom")}
	errs := make(chan error, 4)
	s := New(tr, WithInterval(10*time.Millisecond), WithOnError(func(err error) { errs <- err }))
	s.Start()
	defer s.Close()

	s.Enqueue(testEvent("fail"))

	select {
	case err := <-errs:
		assert.ErrorContains(t, err, "boom")
	case <-time.After(2 * time.Second):
		t.Fatal("error callback not invoked")
	}
}

func TestCloseStopsTickerAndFlushesRemainder(t *testing.T) {
	tr := &mockTransport{}
	s := New(tr, WithInterval(time.Hour))
	s.Start()
	s.Enqueue(testEvent("last"))

	require.NoError(t, s.Close())

	select {
	case <-s.done:
	default:
		t.Fatal("ticker goroutine still running after Close")
	}
	assert.Len(t, tr.delivered(), 1)
	assert.NoError(t, s.Close(), "Close must be idempotent")
}

func TestCloseWithoutStart(t *testing.T) {
	tr := &mockTransport{}
	s := New(tr)
	s.Enqueue(testEvent("x"))

	require.NoError(t, s.Close())
	assert.Len(t, tr.delivered(), 1)
}
