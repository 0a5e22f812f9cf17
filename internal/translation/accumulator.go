package translation

import (
	"strings"
	"time"
)

// DefaultQuietInterval is how long the speaker must pause before the
// accumulated fragments are considered one utterance.
const DefaultQuietInterval = 1500 * time.Millisecond

// SpeechAccumulator holds the segment buffer and its debounce timer.
//
// It is not safe for concurrent use. The owning session calls every method
// from its own event loop; timers never touch the buffer directly, they only
// call onFire with their generation so the loop can call Fire.
type SpeechAccumulator struct {
	quiet  time.Duration
	clock  Clock
	onFire func(gen uint64)

	segments    []string
	lastArrival time.Time
	generation  uint64
	timer       Timer
}

func NewSpeechAccumulator(quiet time.Duration, clock Clock, onFire func(gen uint64)) *SpeechAccumulator {
	if quiet <= 0 {
		quiet = DefaultQuietInterval
	}
	if clock == nil {
		clock = SystemClock
	}
	return &SpeechAccumulator{quiet: quiet, clock: clock, onFire: onFire}
}

// Add appends a fragment and restarts the debounce timer. Blank fragments
// are ignored and leave the timer untouched. Reports whether text was kept.
func (a *SpeechAccumulator) Add(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	a.segments = append(a.segments, text)
	a.lastArrival = a.clock.Now()

	a.cancel()
	a.generation++
	gen := a.generation
	a.timer = a.clock.AfterFunc(a.quiet, func() { a.onFire(gen) })
	return true
}

// Fire is called by the loop when the timer of generation gen elapses. It
// flushes only if gen is still current and the quiet interval really passed.
func (a *SpeechAccumulator) Fire(gen uint64) (string, bool) {
	if gen != a.generation {
		return "", false
	}
	if remaining := a.quiet - a.clock.Now().Sub(a.lastArrival); remaining > 0 {
		a.cancel()
		a.timer = a.clock.AfterFunc(remaining, func() { a.onFire(gen) })
		return "", false
	}
	a.timer = nil
	return a.Flush()
}

// Flush drains the buffer. An empty buffer yields ("", false).
func (a *SpeechAccumulator) Flush() (string, bool) {
	if len(a.segments) == 0 {
		return "", false
	}
	a.cancel()
	out := strings.TrimSpace(strings.Join(a.segments, " "))
	a.segments = nil
	return out, out != ""
}

// Stop cancels any pending timer and drops buffered fragments. A timer that
// already fired will find its generation stale.
func (a *SpeechAccumulator) Stop() {
	a.cancel()
	a.generation++
	a.segments = nil
}

// Pending reports the number of buffered fragments.
func (a *SpeechAccumulator) Pending() int { return len(a.segments) }

func (a *SpeechAccumulator) Generation() uint64 { return a.generation }

func (a *SpeechAccumulator) cancel() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
