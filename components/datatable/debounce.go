package datatable

import (
	"sync"
	"time"
)

// DefaultSearchDebounce is the quiet period applied to search keystrokes.
const DefaultSearchDebounce = 300 * time.Millisecond

// Debouncer collapses rapid triggers into one call after a quiet period.
type Debouncer struct {
	delay time.Duration
	fn    func(string)

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	pending    bool
	value      string
	stopped    bool
}

// NewDebouncer builds a debouncer that calls fn with the last triggered value.
func NewDebouncer(delay time.Duration, fn func(string)) *Debouncer {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger restarts the quiet period with a new value.
func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	d.pending = true
	d.value = value
	gen := d.generation
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || !d.pending || gen != d.generation {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	value := d.value
	d.mu.Unlock()
	if d.fn != nil {
		d.fn(value)
	}
}

// Flush fires a pending value immediately. It reports whether one was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
	d.pending = false
	value := d.value
	d.mu.Unlock()
	if d.fn != nil {
		d.fn(value)
	}
	return true
}

// Fire cancels any pending value and calls fn with value right away. It
// reports false once the debouncer is stopped.
func (d *Debouncer) Fire(value string) bool {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
	d.pending = false
	d.value = value
	d.mu.Unlock()
	if d.fn != nil {
		d.fn(value)
	}
	return true
}

// Pending reports whether a value is waiting for the quiet period to end.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels any pending fire and disposes the debouncer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
	d.pending = false
	d.stopped = true
}
