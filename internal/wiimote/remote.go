package wiimote

import (
	"log"
	"sort"
	"sync"
)

// MaxRemotes is the number of remotes the console tracks.
const MaxRemotes = 4

// Handler is a subscriber callback. It receives the remote it was registered
// on and the sample that triggered it.
type Handler func(r *Remote, s Status) error

// Remote tracks one controller: its orientation, the last values seen from it
// and the callbacks subscribed to its events.
type Remote struct {
	id          int
	orientation Orientation
	source      StatusSource

	mu          sync.Mutex
	x, y        float64
	hasPointer  bool
	roll        float64
	hasRoll     bool
	distance    float64
	hasDistance bool
	handlers    map[Event]Handler
	input       *InputEvent // native event being dispatched, nil when polled
}

func newRemote(id int, o Orientation, src StatusSource) *Remote {
	return &Remote{
		id:          id,
		orientation: o,
		source:      src,
		handlers:    make(map[Event]Handler),
	}
}

// ID returns the remote number, 1-4.
func (r *Remote) ID() int { return r.id }

// Orientation returns how the remote is held.
func (r *Remote) Orientation() Orientation { return r.orientation }

// When subscribes fn to the event called name. It returns r so calls can be
// chained, or nil if name is not in the catalog or fn is nil; nothing is
// registered in that case. When on a nil Remote returns nil.
func (r *Remote) When(name string, fn Handler) *Remote {
	if r == nil {
		return nil
	}
	e, ok := ParseEvent(name)
	if !ok {
		log.Printf("Remote %d: %v: %q", r.id, ErrUnsupportedEvent, name)
		return nil
	}
	return r.On(e, fn)
}

// On is When with a typed event. A later subscription to the same event
// replaces the earlier one.
func (r *Remote) On(e Event, fn Handler) *Remote {
	if r == nil || !e.Valid() || fn == nil {
		return nil
	}
	r.mu.Lock()
	r.handlers[e] = fn
	r.mu.Unlock()
	return r
}

// Subscribed reports whether a callback is registered for e.
func (r *Remote) Subscribed(e Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handlers[e]
	return ok
}

// Events returns the subscribed events in catalog order.
func (r *Remote) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.handlers))
	for e := range r.handlers {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Pointer returns the last pointer position. ok is false until the remote has
// been sampled.
func (r *Remote) Pointer() (x, y float64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.x, r.y, r.hasPointer
}

// Roll returns the last roll angle in radians.
func (r *Remote) Roll() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roll, r.hasRoll
}

// Distance returns the last distance from the screen.
func (r *Remote) Distance() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.distance, r.hasDistance
}

// status samples the remote. ok is false when the source has nothing for it or
// the sample is disabled or invalid.
func (r *Remote) status() (Status, bool) {
	s, ok := r.source.Status(r.id - 1)
	if !ok || !s.Available() {
		return Status{}, false
	}
	return s, true
}

type firing struct {
	event Event
	fn    Handler
}

// sample records the pointer from s and evaluates the predicates for the
// subscribed events in only, or for all subscribed events when only is empty.
// Callbacks are returned rather than run so no lock is held while they execute.
func (r *Remote) sample(s Status, only ...Event) []firing {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.x, r.y, r.hasPointer = s.ScreenX, s.ScreenY, true

	var fired []firing
	if len(only) == 0 {
		for e := PressedUp; int(e) <= numEvents; e++ {
			if fn, ok := r.handlers[e]; ok && r.check(e, s) {
				fired = append(fired, firing{e, fn})
			}
		}
		return fired
	}
	for _, e := range only {
		if fn, ok := r.handlers[e]; ok && r.check(e, s) {
			fired = append(fired, firing{e, fn})
		}
	}
	return fired
}

// Input returns the type of the native input event whose callbacks are
// running. ok is false while callbacks run from a poll.
func (r *Remote) Input() (t InputType, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.input == nil {
		return 0, false
	}
	return r.input.Type, true
}

func (r *Remote) setInput(ev *InputEvent) {
	r.mu.Lock()
	r.input = ev
	r.mu.Unlock()
}

// handler returns the callback for e without evaluating any predicate.
func (r *Remote) handler(e Event) Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers[e]
}
