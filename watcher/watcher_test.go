package watcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transferconnect "github.com/transfer-connect/sdk-go"
)

const testInterval = 2 * time.Millisecond

// scriptedFetch returns each status in order, then keeps returning the last one.
func scriptedFetch(statuses ...transferconnect.TransactionStatus) FetchFunc {
	var calls int64
	return func(ctx context.Context) (*transferconnect.Transaction, error) {
		n := atomic.AddInt64(&calls, 1)
		idx := int(n) - 1
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		return &transferconnect.Transaction{
			ID:     "tx1",
			Kind:   transferconnect.KindDeposit,
			Status: statuses[idx],
		}, nil
	}
}

type recorder struct {
	messages int64
	success  int64
	failures int64
	errs     int64
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnMessage: func(*transferconnect.Transaction) { atomic.AddInt64(&r.messages, 1) },
		OnSuccess: func(*transferconnect.Transaction) { atomic.AddInt64(&r.success, 1) },
		OnError: func(tx *transferconnect.Transaction, err error) {
			if tx != nil {
				atomic.AddInt64(&r.failures, 1)
			}
			if err != nil {
				atomic.AddInt64(&r.errs, 1)
			}
		},
	}
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not finish in time")
	}
}

func TestWatchPendingThenCompleted(t *testing.T) {
	fetch := scriptedFetch(
		transferconnect.StatusPendingAnchor,
		transferconnect.StatusPendingAnchor,
		transferconnect.StatusCompleted,
	)
	rec := &recorder{}

	h := Watch(context.Background(), fetch, rec.callbacks(), WithPollInterval(testInterval))
	waitDone(t, h)

	assert.EqualValues(t, 2, atomic.LoadInt64(&rec.messages))
	assert.EqualValues(t, 1, atomic.LoadInt64(&rec.success))
	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.failures))
	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.errs))
}

func TestWatchFailureStatus(t *testing.T) {
	rec := &recorder{}
	var gotStatus transferconnect.TransactionStatus
	cb := rec.callbacks()
	base := cb.OnError
	cb.OnError = func(tx *transferconnect.Transaction, err error) {
		if tx != nil {
			gotStatus = tx.Status
		}
		base(tx, err)
	}

	h := Watch(context.Background(), scriptedFetch(transferconnect.StatusNoMarket), cb, WithPollInterval(testInterval))
	waitDone(t, h)

	assert.EqualValues(t, 1, atomic.LoadInt64(&rec.failures))
	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.success))
	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.messages))
	assert.Equal(t, transferconnect.StatusNoMarket, gotStatus)
}

func TestWatchFetchErrorFunneledToOnError(t *testing.T) {
	fetchErr := fmt.Errorf("connection refused")
	fetch := func(ctx context.Context) (*transferconnect.Transaction, error) {
		return nil, fetchErr
	}

	var gotErr error
	done := make(chan struct{})
	h := Watch(context.Background(), fetch, Callbacks{
		OnError: func(tx *transferconnect.Transaction, err error) {
			require.Nil(t, tx)
			gotErr = err
			close(done)
		},
	}, WithPollInterval(testInterval))
	waitDone(t, h)

	<-done
	assert.Equal(t, fetchErr, gotErr)
}

func TestWatchCancelBeforeFirstTick(t *testing.T) {
	var fetches int64
	fetch := func(ctx context.Context) (*transferconnect.Transaction, error) {
		atomic.AddInt64(&fetches, 1)
		return &transferconnect.Transaction{Status: transferconnect.StatusCompleted}, nil
	}
	rec := &recorder{}

	h := Watch(context.Background(), fetch, rec.callbacks(), WithPollInterval(200*time.Millisecond))
	h.Cancel()
	waitDone(t, h)

	assert.EqualValues(t, 0, atomic.LoadInt64(&fetches))
	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.messages))
	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.success))
	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.failures))
	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.errs))
}

func TestWatchCancelDuringFetchSuppressesCallback(t *testing.T) {
	// The fetch blocks until the watch is cancelled, then "resolves" with a
	// terminal transaction. The watcher must notice the cancellation and
	// drop the result instead of invoking a callback.
	fetch := func(ctx context.Context) (*transferconnect.Transaction, error) {
		<-ctx.Done()
		return &transferconnect.Transaction{Status: transferconnect.StatusCompleted}, nil
	}
	rec := &recorder{}

	h := Watch(context.Background(), fetch, rec.callbacks(), WithPollInterval(testInterval))
	time.Sleep(20 * time.Millisecond)
	h.Cancel()
	waitDone(t, h)

	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.success))
	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.errs))
}

func TestWatchContextCancellationStopsWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}

	h := Watch(ctx, scriptedFetch(transferconnect.StatusPendingExternal), rec.callbacks(), WithPollInterval(testInterval))
	time.Sleep(20 * time.Millisecond)
	cancel()
	waitDone(t, h)

	// Only pending updates may have fired; no terminal callback.
	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.success))
	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.failures))
	assert.EqualValues(t, 0, atomic.LoadInt64(&rec.errs))
}

func TestWatchIndependentInvocations(t *testing.T) {
	// Two watches over different outcomes run independently: cancelling one
	// does not disturb the other.
	recA := &recorder{}
	recB := &recorder{}

	hA := Watch(context.Background(), scriptedFetch(transferconnect.StatusPendingStellar), recA.callbacks(), WithPollInterval(testInterval))
	hB := Watch(context.Background(), scriptedFetch(
		transferconnect.StatusPendingStellar,
		transferconnect.StatusCompleted,
	), recB.callbacks(), WithPollInterval(testInterval))

	waitDone(t, hB)
	hA.Cancel()
	waitDone(t, hA)

	assert.EqualValues(t, 1, atomic.LoadInt64(&recB.success))
	assert.EqualValues(t, 0, atomic.LoadInt64(&recA.success))
}

func TestCancelIsIdempotent(t *testing.T) {
	h := Watch(context.Background(), scriptedFetch(transferconnect.StatusCompleted), Callbacks{}, WithPollInterval(testInterval))
	h.Cancel()
	h.Cancel()
	waitDone(t, h)
}
