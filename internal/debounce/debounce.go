// Package debounce provides the small timing primitives behind
// type-ahead search: a cancellable trailing-edge debouncer and a token
// gate that drops results arriving for a superseded request.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs a function once input has been quiet for the configured
// delay. Each Do call supersedes the previous pending one, so only the
// last function in a burst fires.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// New returns a debouncer with the given settle delay.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Do schedules fn to run after the delay, cancelling any pending call.
// fn runs on a timer goroutine.
func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		stale := gen != d.gen
		d.mu.Unlock()
		if !stale {
			fn()
		}
	})
}

// Cancel drops any pending call without scheduling a new one.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Gate admits only results that answer the most recent request. Expect
// records what is currently wanted; Admit reports whether a completed
// request still matches it.
type Gate struct {
	mu   sync.Mutex
	want string
}

// Expect records the token of the request now in flight. An empty token
// clears the gate so nothing is admitted.
func (g *Gate) Expect(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.want = token
}

// Admit reports whether token is still the one we are waiting for.
func (g *Gate) Admit(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.want != "" && g.want == token
}
