package web

// batch_limiter.go bounds the number of ingestion batches processed at once.
//
// Each batch holds a slot from the moment its request is admitted until its
// report is written. When every slot is taken a request waits up to maxWait
// and then fails with ErrTooManyBatches. Close stops admission so that
// WaitForDrain can let in-flight batches finish during shutdown.

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"
)

var (
	// ErrTooManyBatches is returned when no slot frees up within the wait time.
	ErrTooManyBatches = errors.New("web: too many concurrent batches, please try again later")

	// ErrShuttingDown is returned once the limiter has been closed.
	ErrShuttingDown = errors.New("web: server is shutting down")
)

const (
	// DefaultMaxConcurrentBatches is used when the configured limit is not positive.
	DefaultMaxConcurrentBatches = 10

	// DefaultMaxWaitTime is used when the configured wait is not positive.
	DefaultMaxWaitTime = 30 * time.Second
)

// BatchLimiter is a semaphore over ingestion batches.
type BatchLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
	closed bool
}

// NewBatchLimiter allows at most maxConcurrent batches at once.
func NewBatchLimiter(maxConcurrent int, maxWait time.Duration) *BatchLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentBatches
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &BatchLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. The caller must Release it when done.
func (l *BatchLimiter) Acquire(ctx context.Context) error {
	if l.isClosed() {
		return ErrShuttingDown
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return l.admit()
	case <-timer.C:
		return ErrTooManyBatches
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *BatchLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		return l.admit() == nil
	default:
		return false
	}
}

// admit counts a slot that was just taken, giving it back if the limiter
// closed while the caller was waiting.
func (l *BatchLimiter) admit() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		<-l.slots
		return ErrShuttingDown
	}
	l.active++
	return nil
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *BatchLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.slots
}

// Close stops admitting new batches. Batches already admitted keep their slots.
func (l *BatchLimiter) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

func (l *BatchLimiter) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// ActiveCount returns the number of batches holding a slot.
func (l *BatchLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *BatchLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *BatchLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no batch holds a slot or ctx is done.
func (l *BatchLimiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// LimiterStatus is a snapshot of the limiter for /api/status.
type LimiterStatus struct {
	Active        int  `json:"active"`
	Available     int  `json:"available"`
	MaxConcurrent int  `json:"maxConcurrent"`
	Closed        bool `json:"closed"`
}

// Status returns the current limiter state.
func (l *BatchLimiter) Status() LimiterStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LimiterStatus{
		Active:        l.active,
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
		Closed:        l.closed,
	}
}

// Limit holds a slot for the duration of each request it wraps. Requests
// that cannot get one are answered with 503 and a Retry-After header.
func (l *BatchLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := l.Acquire(r.Context()); err != nil {
			if errors.Is(err, ErrTooManyBatches) {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			}
			respondError(w, r, err, http.StatusServiceUnavailable)
			return
		}
		defer l.Release()
		next.ServeHTTP(w, r)
	})
}

const retryAfterSeconds = 5
