package helpers

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Debouncer delays fn until calls stop arriving for the wait period. Only
// the argument of the last call in a burst is delivered.
type Debouncer[T any] struct {
	mu    sync.Mutex
	wait  time.Duration
	fn    func(T)
	timer *time.Timer
}

func Debounce[T any](wait time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{wait: wait, fn: fn}
}

// Call (re)starts the wait window with v as the pending value.
func (d *Debouncer[T]) Call(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.fn(v) })
}

// Stop drops any pending call. It reports whether one was pending.
func (d *Debouncer[T]) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// Throttle returns a func that runs fn at most once per interval; calls
// inside the interval are dropped. The returned bool reports whether fn ran.
func Throttle[T any](every time.Duration, fn func(T)) func(T) bool {
	lim := rate.NewLimiter(rate.Every(every), 1)
	return func(v T) bool {
		if !lim.Allow() {
			return false
		}
		fn(v)
		return true
	}
}
