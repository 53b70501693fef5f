// Package watcher polls a single transfer server transaction until it
// reaches a terminal status and delivers the outcome through callbacks.
//
// Each Watch call is independent: it runs its own polling goroutine, owns
// its own cancellation Handle, and never shares state with other watches of
// the same or different transactions. Within one watch, ticks never
// overlap; each tick fetches, classifies, invokes at most one callback, and
// either schedules the next tick or stops.
//
// Classification of a fetched status:
//   - any status in the "pending" family: OnMessage fires and polling continues
//   - completed: OnSuccess fires exactly once and polling stops
//   - anything else: OnError fires exactly once with the transaction and polling stops
//
// Any fetch failure (network error, malformed response, a failed
// authentication gate) is funneled to OnError with the error value rather
// than surfacing to the caller; a watch is fire-and-forget once started.
package watcher

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	transferconnect "github.com/transfer-connect/sdk-go"
)

// defaultPollInterval paces polling when the caller does not override it.
const defaultPollInterval = 5 * time.Second

// FetchFunc retrieves the current state of the watched transaction.
// The provider supplies a closure over its transaction-detail fetch; tests
// supply fakes.
type FetchFunc func(ctx context.Context) (*transferconnect.Transaction, error)

// Callbacks receive the watch outcomes. Any of the three may be nil, in
// which case the corresponding outcome is dropped.
type Callbacks struct {
	// OnMessage is invoked for every non-terminal (pending) status
	// observed. It may fire many times, including repeatedly for the same
	// status.
	OnMessage func(*transferconnect.Transaction)

	// OnSuccess is invoked exactly once when the transaction reaches the
	// completed status. No further callbacks fire after it.
	OnSuccess func(*transferconnect.Transaction)

	// OnError is invoked exactly once, either with the transaction that
	// reached a failure status (err nil), or with the error that aborted
	// the watch (tx nil). No further callbacks fire after it.
	OnError func(tx *transferconnect.Transaction, err error)
}

// Option configures a single watch invocation.
type Option func(*watcher)

// WithPollInterval overrides the interval between status fetches
// (default: 5s). Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(w *watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger attaches a logrus entry for per-tick debug logging.
func WithLogger(log *logrus.Entry) Option {
	return func(w *watcher) {
		w.log = log
	}
}

// Handle cancels a single watch invocation. It is returned before the first
// fetch fires, so cancelling immediately guarantees no callback ever runs.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the watch. It clears any pending scheduled fetch; a fetch
// already in flight still completes, but its result is discarded and no
// callback is invoked for it. Cancel is safe to call multiple times.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done returns a channel that is closed once the watch goroutine has
// exited, whether by terminal status or cancellation.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

type watcher struct {
	interval time.Duration
	log      *logrus.Entry
}

// Watch starts polling with the given fetch function and returns a Handle
// immediately, before the first fetch is scheduled to fire. Cancelling ctx
// has the same effect as calling Handle.Cancel.
func Watch(ctx context.Context, fetch FetchFunc, cb Callbacks, opts ...Option) *Handle {
	w := &watcher{interval: defaultPollInterval}
	for _, opt := range opts {
		opt(w)
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go w.run(ctx, fetch, cb, h)

	return h
}

func (w *watcher) run(ctx context.Context, fetch FetchFunc, cb Callbacks, h *Handle) {
	defer close(h.done)
	defer h.cancel()

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		tx, err := fetch(ctx)

		// Cancellation racing a fetch in flight: honor it rather than
		// delivering a callback the caller no longer wants.
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			if w.log != nil {
				w.log.WithError(err).Debug("transaction watch aborted")
			}
			if cb.OnError != nil {
				cb.OnError(nil, err)
			}
			return
		}

		if w.log != nil {
			w.log.WithFields(logrus.Fields{
				"id":     tx.ID,
				"status": tx.Status,
			}).Debug("transaction watch tick")
		}

		switch {
		case tx.Status.IsPending():
			if cb.OnMessage != nil {
				cb.OnMessage(tx)
			}
			timer.Reset(w.interval)
		case tx.Status.Succeeded():
			if cb.OnSuccess != nil {
				cb.OnSuccess(tx)
			}
			return
		default:
			if cb.OnError != nil {
				cb.OnError(tx, nil)
			}
			return
		}
	}
}
