package wiimote

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// PollInterval is the delay between the end of one poll and the start of the
// next. The console browser stops responding to input at shorter intervals,
// so it is also the lower bound for WithPollInterval.
const PollInterval = 100 * time.Millisecond

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHost sets where native input events of the browsing remote come from.
// Without a host only polled remotes are dispatched.
func WithHost(h Host) Option {
	return func(d *Dispatcher) { d.host = h }
}

// WithReporter sets the sink for subscriber failures. The default logs them.
func WithReporter(fn Reporter) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.report = fn
		}
	}
}

// WithPollInterval lengthens the poll interval. Values below PollInterval are
// raised to it.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		if interval < PollInterval {
			interval = PollInterval
		}
		d.interval = interval
	}
}

// Dispatcher polls the registered remotes, bridges native input events for
// the browsing remote and runs the matching subscriber callbacks.
//
// Ticks and input events are handled one at a time on the loop goroutine
// started by Listen. Poll and HandleInput may also be called directly as long
// as the loop is not running.
type Dispatcher struct {
	source   StatusSource
	host     Host
	report   Reporter
	interval time.Duration

	mu       sync.Mutex
	registry []*Remote
	primary  *Remote

	listening bool
	closed    bool
	remove    func()
	inputs    chan *InputEvent
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// New creates a Dispatcher that samples remotes from source.
func New(source StatusSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		source:   source,
		report:   logReport,
		interval: PollInterval,
		inputs:   make(chan *InputEvent),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func logReport(err error) {
	log.Printf("Dispatch error: %v", err)
}

// Interval returns the configured poll interval.
func (d *Dispatcher) Interval() time.Duration {
	return d.interval
}

// NewRemote starts tracking remote id (1-4). A remote that is browsing when
// it is created becomes the primary remote; every other remote is polled.
func (d *Dispatcher) NewRemote(id int, o Orientation) (*Remote, error) {
	if id < 1 || id > MaxRemotes {
		return nil, errors.Wrapf(ErrInvalidRemote, "id %d", id)
	}
	r := newRemote(id, o, d.source)

	s, ok := r.status()

	d.mu.Lock()
	defer d.mu.Unlock()
	if ok && s.Browsing {
		d.setPrimaryLocked(r)
		log.Printf("Remote %d is the browsing remote", id)
	} else {
		d.registry = append(d.registry, r)
	}
	return r, nil
}

// Primary returns the browsing remote, or nil if none is known yet.
func (d *Dispatcher) Primary() *Remote {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.primary
}

// Remotes returns the polled remotes in registration order.
func (d *Dispatcher) Remotes() []*Remote {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Remote(nil), d.registry...)
}

// setPrimaryLocked makes r the browsing remote. A previous primary that was
// never polled joins the registry so it is dispatched again once it stops
// browsing.
func (d *Dispatcher) setPrimaryLocked(r *Remote) {
	prev := d.primary
	d.primary = r
	if prev == nil || prev == r {
		return
	}
	for _, reg := range d.registry {
		if reg == prev {
			return
		}
	}
	d.registry = append(d.registry, prev)
}

// Poll runs one tick over the polled remotes.
func (d *Dispatcher) Poll() {
	d.mu.Lock()
	remotes := append([]*Remote(nil), d.registry...)
	d.mu.Unlock()

	for i := len(remotes) - 1; i >= 0; i-- {
		r := remotes[i]
		s, ok := r.status()
		if !ok {
			continue
		}

		d.mu.Lock()
		if s.Browsing {
			if d.primary != r {
				log.Printf("Remote %d took over browsing", r.id)
			}
			d.setPrimaryLocked(r)
			d.mu.Unlock()
			continue
		}
		if d.primary == r {
			d.primary = nil
			log.Printf("Remote %d stopped browsing", r.id)
		}
		d.mu.Unlock()

		for _, f := range r.sample(s) {
			d.invoke(r, f, s)
		}
	}
}

// HandleInput bridges a native input event of the browsing remote into the
// catalog. The event's default action is always suppressed.
func (d *Dispatcher) HandleInput(ev *InputEvent) error {
	ev.PreventDefault()

	r := d.Primary()
	if r == nil {
		return ErrNoPrimary
	}
	s, ok := r.status()
	if !ok {
		return errors.Wrapf(ErrPrimaryUnavailable, "remote %d", r.id)
	}

	var fired []firing
	if e, ok := PrimaryEvent(r.orientation, ev.Code); ok {
		if fn := r.handler(e); fn != nil {
			fired = append(fired, firing{e, fn})
		}
	}
	// The browsing remote never goes through Poll, so roll and distance are
	// checked here on every event.
	fired = append(fired, r.sample(s, RollChange, DistanceChange)...)

	r.setInput(ev)
	defer r.setInput(nil)
	for _, f := range fired {
		d.invoke(r, f, s)
	}
	return nil
}

// invoke runs one callback. Errors and panics go to the reporter and never
// reach the caller.
func (d *Dispatcher) invoke(r *Remote, f firing, s Status) {
	if err := call(r, f.fn, s); err != nil {
		d.report(&CallbackError{Remote: r.id, Event: f.event, Err: err})
	}
}

func call(r *Remote, fn Handler, s Status) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Wrap(ErrCallbackPanic, fmt.Sprint(p))
		}
	}()
	return fn(r, s)
}

// Listen installs the native input listeners and starts the poll loop. Calling
// it again while running does nothing. The loop stops when ctx is done or
// Close is called.
func (d *Dispatcher) Listen(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.listening {
		return nil
	}
	d.listening = true

	if d.host != nil {
		d.remove = d.host.Listen(InputTypes, d.enqueue)
	}
	go d.run(ctx)
	log.Printf("Dispatcher listening (poll every %v)", d.interval)
	return nil
}

// enqueue runs on the host's goroutine. The default action is suppressed
// before the event is handed to the loop, which gets its own copy.
func (d *Dispatcher) enqueue(ev *InputEvent) {
	ev.PreventDefault()
	cp := *ev
	select {
	case d.inputs <- &cp:
	case <-d.stop:
	case <-d.done:
	}
}

// run owns all dispatching while listening. The timer is one-shot and only
// re-armed after a tick finishes, so polls never queue up behind a slow tick.
func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	defer d.teardown()

	timer := time.NewTimer(d.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case ev := <-d.inputs:
			// Input before any remote browses is dropped.
			if err := d.HandleInput(ev); err != nil && !errors.Is(err, ErrNoPrimary) {
				d.report(err)
			}
		case <-timer.C:
			d.Poll()
			timer.Reset(d.interval)
		}
	}
}

func (d *Dispatcher) teardown() {
	d.mu.Lock()
	remove := d.remove
	d.remove = nil
	d.closed = true
	d.mu.Unlock()

	if remove != nil {
		remove()
	}
	log.Println("Dispatcher stopped")
}

// Stop ends the poll loop without waiting for it. The loop exits once the
// current tick returns, so Stop may be called from a callback.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.stop)
	})
}

// Close stops the poll loop and removes the input listeners, waiting for the
// current tick to finish. It is safe to call more than once but must not be
// called from a callback; use Stop there.
func (d *Dispatcher) Close() {
	d.Stop()
	d.mu.Lock()
	running := d.listening
	d.mu.Unlock()
	if running {
		<-d.done
	}
}
