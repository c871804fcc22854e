// Package progress defines the progress events emitted by long-running
// document operations.
//
// Within one operation the processing values never decrease and the
// terminal event (complete at 100, or error at 0) is always the last
// event delivered.
package progress

import "sync"

// Status is the state carried by an Event.
type Status string

const (
	Processing Status = "processing"
	Complete   Status = "complete"
	Error      Status = "error"
)

// Event is one progress notification. Progress is a percentage in [0, 100].
type Event struct {
	Progress int    `json:"progress"`
	Status   Status `json:"status"`
	Message  string `json:"message"`
}

// Terminal reports whether e ends an operation.
func (e Event) Terminal() bool {
	return e.Status == Complete || e.Status == Error
}

// Func receives progress events. A nil Func discards them.
type Func func(Event)

// Reporter emits the events of a single operation and enforces ordering.
type Reporter struct {
	fn   Func
	last int
	done bool
}

// NewReporter returns a Reporter delivering to fn, which may be nil.
func NewReporter(fn Func) *Reporter {
	return &Reporter{fn: fn}
}

// Update emits a processing event. pct is clamped into [last, 99].
func (r *Reporter) Update(pct float64, msg string) {
	if r.done {
		return
	}
	p := int(pct)
	if p < r.last {
		p = r.last
	}
	if p > 99 {
		p = 99
	}
	r.last = p
	r.emit(Event{Progress: p, Status: Processing, Message: msg})
}

// Step emits baseline + done/total*weight, the per-item form of Update.
func (r *Reporter) Step(baseline, weight float64, done, total int, msg string) {
	frac := 1.0
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	r.Update(baseline+frac*weight, msg)
}

// Complete emits the terminal success event.
func (r *Reporter) Complete(msg string) {
	if r.done {
		return
	}
	r.done = true
	r.last = 100
	r.emit(Event{Progress: 100, Status: Complete, Message: msg})
}

// Fail emits the terminal error event. Progress resets to 0 so a failed
// operation never reads as nearly complete.
func (r *Reporter) Fail(err error) {
	if r.done {
		return
	}
	r.done = true
	r.emit(Event{Progress: 0, Status: Error, Message: err.Error()})
}

// Done reports whether a terminal event has been emitted.
func (r *Reporter) Done() bool {
	return r.done
}

func (r *Reporter) emit(e Event) {
	if r.fn != nil {
		r.fn(e)
	}
}

// Channel adapts ch into a Func that never blocks the operation on a slow
// consumer: processing events are dropped while ch is full. Terminal
// events are always delivered.
func Channel(ch chan<- Event) Func {
	return func(e Event) {
		if e.Terminal() {
			ch <- e
			return
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Monotonic wraps fn so that processing events lower than one already
// delivered are suppressed and nothing follows a terminal event. It is
// safe for concurrent use.
func Monotonic(fn Func) Func {
	if fn == nil {
		return nil
	}
	var (
		mu   sync.Mutex
		last int
		done bool
	)
	return func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if done {
			return
		}
		if e.Terminal() {
			done = true
		} else if e.Progress < last {
			return
		} else {
			last = e.Progress
		}
		fn(e)
	}
}
