package search

import (
	"sync"
	"time"
)

// Debouncer delivers only the last value of a burst, once the input has been
// quiet for the configured delay. Every Trigger or Cancel bumps a sequence
// number; a timer whose sequence is no longer current does nothing, even if it
// already fired.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func(seq uint64, value string)
	timer *time.Timer
	seq   uint64
	value string
}

// NewDebouncer calls fn from the timer goroutine. fn receives the sequence
// number so owners can confirm with IsLatest that no newer input arrived
// between the timer firing and fn acquiring their own lock.
func NewDebouncer(delay time.Duration, fn func(seq uint64, value string)) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq, value) })
}

// Cancel drops any pending value.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	d.value = ""
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// IsLatest reports whether seq belongs to the most recent Trigger.
func (d *Debouncer) IsLatest(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq == seq
}

// Value is the last value delivered.
func (d *Debouncer) Value() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

func (d *Debouncer) fire(seq uint64, value string) {
	d.mu.Lock()
	if seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.value = value
	d.mu.Unlock()

	d.fn(seq, value)
}
