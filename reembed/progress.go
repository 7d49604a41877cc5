package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker writes a carriage-return progress line every interval
// items. All methods are no-ops until Start is called. Safe for concurrent
// use.
type ProgressTracker struct {
	mu       sync.Mutex
	w        io.Writer
	total    int
	interval int
	done     int
	nextAt   int
	begun    time.Time
}

// NewProgressTracker creates a tracker reporting to w every interval of
// total items.
func NewProgressTracker(w io.Writer, total, interval int) *ProgressTracker {
	return &ProgressTracker{
		w:        w,
		total:    total,
		interval: interval,
	}
}

// Start resets the tracker and begins the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.begun = time.Now()
	p.done = 0
	p.nextAt = p.interval
}

// Update sets absolute progress, capped at the total.
func (p *ProgressTracker) Update(done int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.begun.IsZero() {
		return
	}
	p.advanceTo(done)
}

// Increment adds delta to the current progress, capped at the total.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.begun.IsZero() {
		return
	}
	p.advanceTo(p.done + delta)
}

// Finish forces progress to the total, prints the final line, and ends it
// with a newline.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.begun.IsZero() {
		return
	}

	p.done = p.total
	p.flush()
	fmt.Fprintln(p.w)
}

// Elapsed returns the time since Start, or zero if never started.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.begun.IsZero() {
		return 0
	}
	return time.Since(p.begun)
}

// advanceTo moves progress forward and flushes whenever the next report
// threshold is crossed. Lock must be held.
func (p *ProgressTracker) advanceTo(done int) {
	if done > p.total {
		done = p.total
	}
	p.done = done

	if p.done >= p.nextAt {
		p.flush()
		p.nextAt = p.done + p.interval
	}
}

// flush writes one progress line in place. Lock must be held.
func (p *ProgressTracker) flush() {
	pct := 100.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100
	}
	rate := float64(p.done) / time.Since(p.begun).Seconds()

	fmt.Fprintf(p.w, "\rProgress: %d/%d (%.1f%%) - %.1f conversations/s",
		p.done, p.total, pct, rate)
}
