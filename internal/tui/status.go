package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StatusWriter reports the current phase of a long-running step on a single
// line. On a terminal it renders a spinner with the elapsed time and rewrites
// the line in place; elsewhere each phase is printed once as plain text so
// piped output stays free of escape sequences. Use it for phases (catalog
// fetches, version resolution) that do not need the full progress table.
type StatusWriter struct {
	w        io.Writer
	animated bool

	mu         sync.Mutex
	message    string
	phaseStart time.Time
	done       chan struct{}
	stopped    bool
}

// NewStatusWriter returns a status writer for w. The spinner only runs when
// w is a terminal.
func NewStatusWriter(w io.Writer) *StatusWriter {
	sw := &StatusWriter{
		w:          w,
		animated:   writerIsTerminal(w),
		phaseStart: time.Now(),
		done:       make(chan struct{}),
	}
	if sw.animated {
		go sw.loop()
	}
	return sw
}

// Update switches the status line to a new phase and restarts the elapsed
// timer. Without a terminal the phase is printed once instead.
func (sw *StatusWriter) Update(msg string) {
	sw.mu.Lock()
	sw.message = msg
	sw.phaseStart = time.Now()
	stopped := sw.stopped
	sw.mu.Unlock()

	if !sw.animated && !stopped {
		fmt.Fprintln(sw.w, msg)
	}
}

// Stop clears the status line and stops the spinner. Safe to call more than
// once.
func (sw *StatusWriter) Stop() {
	sw.mu.Lock()
	if sw.stopped {
		sw.mu.Unlock()
		return
	}
	sw.stopped = true
	sw.mu.Unlock()

	if !sw.animated {
		return
	}
	close(sw.done)
	// Clear the status line.
	fmt.Fprint(sw.w, "\r\033[K")
}

func (sw *StatusWriter) loop() {
	tick := 0
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
			sw.mu.Lock()
			msg := sw.message
			start := sw.phaseStart
			sw.mu.Unlock()

			spinner := spinnerFrames[tick%len(spinnerFrames)]
			tick++
			fmt.Fprintf(sw.w, "\r\033[K%s %s (%s)", spinner, msg, formatElapsed(time.Since(start)))
		}
	}
}

// formatElapsed formats a duration for display in the status line.
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < 10*time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
