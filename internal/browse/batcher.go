package browse

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultBatchWindow is the subscribe/unsubscribe batching window.
const DefaultBatchWindow = 200 * time.Millisecond

// maxRetryDelay caps the backoff after failed batches.
const maxRetryDelay = 30 * time.Second

// Subscriber receives the batched requests.
type Subscriber interface {
	Subscribe(ids []string) error
	Unsubscribe(ids []string) error
}

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Tests inject a manual scheduler.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// BatcherConfig configures a Batcher.
type BatcherConfig struct {
	// Window is how long requests are collected. Zero means DefaultBatchWindow.
	Window time.Duration

	// Scheduler defaults to real timers.
	Scheduler Scheduler

	// Observer, if set, is called after each sent batch with the operation
	// ("subscribe" or "unsubscribe") and the number of ids.
	Observer func(op string, n int)
}

// Batcher coalesces subscribe and unsubscribe requests.
//
// Add and Remove cancel each other while pending. Every call restarts the
// window, so the last scheduled flush wins. A failed batch stays pending
// and a retry is scheduled, doubling the delay after each consecutive
// failure up to maxRetryDelay.
type Batcher struct {
	sub      Subscriber
	window   time.Duration
	sched    Scheduler
	observer func(op string, n int)
	logger   Logger

	mu             sync.Mutex
	active         map[string]bool
	pendingAdd     map[string]bool
	pendingRemove  map[string]bool
	inflightAdd    map[string]bool
	inflightRemove map[string]bool
	timer          Timer
	failures       int
	closed         bool

	// flushMu serialises calls into the Subscriber.
	flushMu sync.Mutex
}

// NewBatcher creates a Batcher delivering to sub.
func NewBatcher(sub Subscriber, cfg BatcherConfig) *Batcher {
	if cfg.Window <= 0 {
		cfg.Window = DefaultBatchWindow
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = realScheduler{}
	}
	return &Batcher{
		sub:            sub,
		window:         cfg.Window,
		sched:          cfg.Scheduler,
		observer:       cfg.Observer,
		logger:         noopLogger{},
		active:         make(map[string]bool),
		pendingAdd:     make(map[string]bool),
		pendingRemove:  make(map[string]bool),
		inflightAdd:    make(map[string]bool),
		inflightRemove: make(map[string]bool),
	}
}

// SetLogger sets the logger for the batcher.
func (b *Batcher) SetLogger(logger Logger) {
	b.logger = logger
}

// Add queues ids for subscription.
func (b *Batcher) Add(ids ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		delete(b.pendingRemove, id)
		if !b.active[id] || b.inflightRemove[id] {
			b.pendingAdd[id] = true
		}
	}
	b.scheduleLocked()
	return nil
}

// Remove queues ids for unsubscription.
func (b *Batcher) Remove(ids ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, id := range ids {
		delete(b.pendingAdd, id)
		if b.active[id] || b.inflightAdd[id] {
			b.pendingRemove[id] = true
		}
	}
	b.scheduleLocked()
	return nil
}

// Flush sends everything pending now. On failure a retry is scheduled.
func (b *Batcher) Flush() error {
	b.mu.Lock()
	b.stopTimerLocked()
	b.mu.Unlock()
	return b.flushAndRetry()
}

// Close stops the timer, flushes pending requests and unsubscribes every
// id that is still active. Further Add and Remove calls fail with ErrClosed.
func (b *Batcher) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.stopTimerLocked()
	b.mu.Unlock()

	flushErr := b.flush()

	b.mu.Lock()
	for id := range b.active {
		b.pendingRemove[id] = true
	}
	clear(b.pendingAdd)
	b.mu.Unlock()

	err := b.flush()

	b.mu.Lock()
	leaked := sortedKeys(b.pendingRemove)
	clear(b.pendingRemove)
	b.mu.Unlock()
	if len(leaked) > 0 {
		b.logger.Warn("subscriptions not released on close", "ids", leaked)
	}

	if err != nil {
		return err
	}
	return flushErr
}

// Active returns the subscribed ids, sorted.
func (b *Batcher) Active() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return sortedKeys(b.active)
}

// Pending returns the number of queued subscribe and unsubscribe ids.
func (b *Batcher) Pending() (adds, removes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pendingAdd), len(b.pendingRemove)
}

func (b *Batcher) scheduleLocked() {
	if len(b.pendingAdd) == 0 && len(b.pendingRemove) == 0 {
		b.stopTimerLocked()
		return
	}
	b.stopTimerLocked()
	b.timer = b.sched.AfterFunc(b.window, b.onTimer)
}

func (b *Batcher) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// retryLocked schedules another flush after a failed one. The delay is the
// window doubled per consecutive failure, capped at maxRetryDelay.
func (b *Batcher) retryLocked() time.Duration {
	if b.closed || (len(b.pendingAdd) == 0 && len(b.pendingRemove) == 0) {
		return 0
	}
	b.failures++
	delay := b.window
	for i := 1; i < b.failures && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	delay = min(delay, maxRetryDelay)

	b.stopTimerLocked()
	b.timer = b.sched.AfterFunc(delay, b.onTimer)
	return delay
}

func (b *Batcher) onTimer() {
	b.mu.Lock()
	b.timer = nil
	b.mu.Unlock()

	if err := b.flushAndRetry(); err != nil {
		b.logger.Warn("subscription batch failed", "error", err)
	}
}

// flushAndRetry flushes and, on failure, schedules a retry of whatever was
// requeued.
func (b *Batcher) flushAndRetry() error {
	err := b.flush()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		return nil
	}
	if delay := b.retryLocked(); delay > 0 {
		b.logger.Debug("subscription batch retry scheduled", "delay", delay)
	}
	return err
}

func (b *Batcher) flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	removes := sortedKeys(b.pendingRemove)
	adds := sortedKeys(b.pendingAdd)
	clear(b.pendingRemove)
	clear(b.pendingAdd)
	markAll(b.inflightRemove, removes)
	markAll(b.inflightAdd, adds)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		clear(b.inflightRemove)
		clear(b.inflightAdd)
		b.mu.Unlock()
	}()

	var firstErr error

	if len(removes) > 0 {
		if err := b.sub.Unsubscribe(removes); err != nil {
			firstErr = fmt.Errorf("unsubscribe %d ids: %w", len(removes), err)
			b.requeue(removes, b.pendingRemove, b.pendingAdd)
		} else {
			b.mu.Lock()
			for _, id := range removes {
				delete(b.active, id)
			}
			b.mu.Unlock()
			b.observe("unsubscribe", len(removes))
		}
	}

	if len(adds) > 0 {
		if err := b.sub.Subscribe(adds); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("subscribe %d ids: %w", len(adds), err)
			}
			b.requeue(adds, b.pendingAdd, b.pendingRemove)
		} else {
			b.mu.Lock()
			for _, id := range adds {
				b.active[id] = true
			}
			b.mu.Unlock()
			b.observe("subscribe", len(adds))
		}
	}

	return firstErr
}

// requeue puts failed ids back into into unless a newer request for the
// opposite operation arrived meanwhile.
func (b *Batcher) requeue(ids []string, into, opposite map[string]bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		if !opposite[id] {
			into[id] = true
		}
	}
}

func (b *Batcher) observe(op string, n int) {
	if b.observer != nil {
		b.observer(op, n)
	}
}

func markAll(m map[string]bool, ids []string) {
	for _, id := range ids {
		m[id] = true
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
