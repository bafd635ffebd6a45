package wiimote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu     sync.Mutex
	status map[int]Status
	calls  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{status: make(map[int]Status)}
}

func (f *fakeSource) set(id int, s Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.Enabled, s.DataValid = true, true
	f.status[id-1] = s
}

func (f *fakeSource) drop(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.status, id-1)
}

func (f *fakeSource) Status(channel int) (Status, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	s, ok := f.status[channel]
	return s, ok
}

func (f *fakeSource) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeHost struct {
	mu       sync.Mutex
	handlers []InputHandler
	installs int
	removes  int
}

func (h *fakeHost) Listen(types []InputType, fn InputHandler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.installs++
	h.handlers = append(h.handlers, fn)
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.removes++
		h.handlers = nil
	}
}

func (h *fakeHost) fire(ev *InputEvent) {
	h.mu.Lock()
	handlers := append([]InputHandler(nil), h.handlers...)
	h.mu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

func (h *fakeHost) counts() (installs, removes, listeners int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.installs, h.removes, len(h.handlers)
}

type counter struct {
	mu sync.Mutex
	n  map[Event]int
}

func (c *counter) handler(e Event) Handler {
	return func(r *Remote, s Status) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.n == nil {
			c.n = make(map[Event]int)
		}
		c.n[e]++
		return nil
	}
}

func (c *counter) get(e Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n[e]
}

func TestNewRemoteRejectsBadID(t *testing.T) {
	d := New(newFakeSource())
	for _, id := range []int{0, 5, -1} {
		_, err := d.NewRemote(id, Vertical)
		assert.True(t, errors.Is(err, ErrInvalidRemote))
	}
}

func TestNewRemoteBrowsingBecomesPrimary(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Browsing: true})
	src.set(2, Status{})
	d := New(src)

	r1, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)
	r2, err := d.NewRemote(2, Vertical)
	require.NoError(t, err)
	r3, err := d.NewRemote(3, Vertical)
	require.NoError(t, err)

	assert.Same(t, r1, d.Primary())
	assert.Equal(t, []*Remote{r2, r3}, d.Remotes())
}

func TestWhenRejectsUnknownEvent(t *testing.T) {
	d := New(newFakeSource())
	r, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)

	got := r.When("pressed_nonexistent", func(*Remote, Status) error { return nil })
	assert.Nil(t, got)
	assert.Empty(t, r.Events())

	assert.Nil(t, r.When("pressed_a", nil))
	assert.Empty(t, r.Events())
}

func TestWhenChains(t *testing.T) {
	d := New(newFakeSource())
	r, err := d.NewRemote(2, Horizontal)
	require.NoError(t, err)

	noop := func(*Remote, Status) error { return nil }
	got := r.When("pressed_a", noop).When("roll_change", noop)
	assert.Same(t, r, got)
	assert.Equal(t, []Event{PressedA, RollChange}, r.Events())

	// A rejected link ends the chain without touching the remote.
	assert.Nil(t, r.When("bogus", noop).When("pressed_b", noop))
	assert.False(t, r.Subscribed(PressedB))
}

func TestLatestSubscriptionWins(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Hold: HoldB})
	d := New(src)
	r, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)

	var first, second int
	r.When("pressed_b", func(*Remote, Status) error { first++; return nil })
	r.When("pressed_b", func(*Remote, Status) error { second++; return nil })
	d.Poll()

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestPollHeldButtonFiresEveryTick(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Hold: HoldA})
	src.set(2, Status{})
	d := New(src)

	a, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)
	b, err := d.NewRemote(2, Vertical)
	require.NoError(t, err)

	var ca, cb counter
	a.On(PressedA, ca.handler(PressedA))
	b.On(PressedA, cb.handler(PressedA))

	for i := 0; i < 3; i++ {
		d.Poll()
	}
	assert.Equal(t, 3, ca.get(PressedA))
	assert.Equal(t, 0, cb.get(PressedA))
}

func TestPollPassesRemoteAndStatus(t *testing.T) {
	src := newFakeSource()
	src.set(3, Status{Hold: HoldUp, ScreenX: 120, ScreenY: 80})
	d := New(src)
	r, err := d.NewRemote(3, Vertical)
	require.NoError(t, err)

	var gotRemote *Remote
	var gotStatus Status
	r.When("pressed_up", func(rr *Remote, s Status) error {
		gotRemote, gotStatus = rr, s
		return nil
	})
	d.Poll()

	assert.Same(t, r, gotRemote)
	assert.Equal(t, HoldUp, gotStatus.Hold)
	x, y, ok := r.Pointer()
	assert.True(t, ok)
	assert.Equal(t, 120.0, x)
	assert.Equal(t, 80.0, y)
}

func TestPollHorizontalRemote(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Hold: 2})
	d := New(src)
	r, err := d.NewRemote(1, Horizontal)
	require.NoError(t, err)

	var c counter
	r.On(PressedUp, c.handler(PressedUp))
	r.On(PressedRight, c.handler(PressedRight))
	d.Poll()

	assert.Equal(t, 1, c.get(PressedUp))
	assert.Equal(t, 0, c.get(PressedRight))
}

func TestPollContinuousEventsAreEdgeTriggered(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{RollX: 1, RollY: 0, Distance: 2})
	d := New(src)
	r, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)

	var c counter
	r.On(RollChange, c.handler(RollChange))
	r.On(DistanceChange, c.handler(DistanceChange))

	d.Poll()
	d.Poll()
	assert.Equal(t, 1, c.get(RollChange))
	assert.Equal(t, 1, c.get(DistanceChange))

	src.set(1, Status{RollX: 5, RollY: 0, Distance: 2.5})
	d.Poll()
	assert.Equal(t, 1, c.get(RollChange))
	assert.Equal(t, 2, c.get(DistanceChange))
}

func TestPollSkipsUnavailableRemote(t *testing.T) {
	src := newFakeSource()
	d := New(src)
	r, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)

	var c counter
	r.On(PressedA, c.handler(PressedA))
	d.Poll()
	assert.Equal(t, 0, c.get(PressedA))

	src.mu.Lock()
	src.status[0] = Status{Enabled: true, DataValid: false, Hold: HoldA}
	src.mu.Unlock()
	d.Poll()
	assert.Equal(t, 0, c.get(PressedA))

	// The remote is still registered and recovers.
	src.set(1, Status{Hold: HoldA})
	d.Poll()
	assert.Equal(t, 1, c.get(PressedA))
	assert.Len(t, d.Remotes(), 1)
}

func TestFailingCallbackDoesNotStopTick(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Hold: HoldA | HoldB})
	src.set(2, Status{Hold: HoldA})

	var reported []error
	d := New(src, WithReporter(func(err error) { reported = append(reported, err) }))

	r1, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)
	r2, err := d.NewRemote(2, Vertical)
	require.NoError(t, err)

	var c1 counter
	boom := errors.New("boom")
	r1.When("pressed_a", func(*Remote, Status) error { return boom })
	r1.On(PressedB, c1.handler(PressedB))
	r2.When("pressed_a", func(*Remote, Status) error { panic("kaboom") })

	d.Poll()
	assert.Equal(t, 1, c1.get(PressedB))
	require.Len(t, reported, 2)

	var cbErr *CallbackError
	for _, err := range reported {
		require.True(t, errors.As(err, &cbErr))
		assert.Equal(t, PressedA, cbErr.Event)
	}
	assert.True(t, errors.Is(reported[0], ErrCallbackPanic), "remote 2 is polled first")
	assert.True(t, errors.Is(reported[1], boom))

	d.Poll()
	assert.Equal(t, 2, c1.get(PressedB))
	assert.Len(t, reported, 4)
}

func TestPromotionToPrimary(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Hold: HoldA})
	src.set(2, Status{Hold: HoldA})
	d := New(src)

	r1, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)
	r2, err := d.NewRemote(2, Vertical)
	require.NoError(t, err)
	var c1, c2 counter
	r1.On(PressedA, c1.handler(PressedA))
	r2.On(PressedA, c2.handler(PressedA))

	src.set(1, Status{Hold: HoldA, Browsing: true})
	d.Poll()
	assert.Same(t, r1, d.Primary())
	assert.Equal(t, 0, c1.get(PressedA), "no bitmask dispatch on the tick it starts browsing")
	assert.Equal(t, 1, c2.get(PressedA))

	// Remote 2 takes over, remote 1 resumes bitmask dispatch.
	src.set(1, Status{Hold: HoldA})
	src.set(2, Status{Hold: HoldA, Browsing: true})
	d.Poll()
	assert.Same(t, r2, d.Primary())
	assert.Equal(t, 1, c1.get(PressedA))
	assert.Equal(t, 1, c2.get(PressedA))
	assert.Len(t, d.Remotes(), 2)
}

func TestDisplacedPrimaryJoinsRegistry(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Browsing: true})
	src.set(2, Status{})
	d := New(src)

	r1, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)
	r2, err := d.NewRemote(2, Vertical)
	require.NoError(t, err)
	require.Equal(t, []*Remote{r2}, d.Remotes())

	src.set(1, Status{Hold: HoldB})
	src.set(2, Status{Browsing: true})
	d.Poll()
	assert.Same(t, r2, d.Primary())
	assert.Equal(t, []*Remote{r2, r1}, d.Remotes())

	var c counter
	r1.On(PressedB, c.handler(PressedB))
	d.Poll()
	assert.Equal(t, 1, c.get(PressedB))
}

func TestHandleInputWithoutPrimary(t *testing.T) {
	d := New(newFakeSource())
	ev := &InputEvent{Type: KeyDown, Code: 175}
	err := d.HandleInput(ev)
	assert.True(t, errors.Is(err, ErrNoPrimary))
	assert.True(t, ev.DefaultPrevented())
}

func TestHandleInputMapsCodesByOrientation(t *testing.T) {
	for _, tc := range []struct {
		orientation Orientation
		want        Event
	}{
		{Vertical, PressedUp},
		{Horizontal, PressedLeft},
	} {
		src := newFakeSource()
		src.set(1, Status{Browsing: true})
		d := New(src)
		r, err := d.NewRemote(1, tc.orientation)
		require.NoError(t, err)

		var c counter
		for _, e := range Events() {
			r.On(e, c.handler(e))
		}
		ev := &InputEvent{Type: KeyDown, Code: 175}
		require.NoError(t, d.HandleInput(ev))
		assert.True(t, ev.DefaultPrevented())
		assert.Equal(t, 1, c.get(tc.want), tc.orientation.String())
		for _, e := range []Event{PressedUp, PressedDown, PressedLeft, PressedRight} {
			if e != tc.want {
				assert.Equal(t, 0, c.get(e))
			}
		}
	}
}

func TestHandleInputContinuousEvents(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Browsing: true, RollX: 1, Distance: 3, ScreenX: 10, ScreenY: 20})
	d := New(src)
	r, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)

	var c counter
	r.On(RollChange, c.handler(RollChange))
	r.On(DistanceChange, c.handler(DistanceChange))
	r.On(PressedA, c.handler(PressedA))

	require.NoError(t, d.HandleInput(&InputEvent{Type: KeyUp, Code: 999}))
	assert.Equal(t, 0, c.get(PressedA))
	assert.Equal(t, 1, c.get(RollChange))
	assert.Equal(t, 1, c.get(DistanceChange))

	require.NoError(t, d.HandleInput(&InputEvent{Type: MouseDown}))
	assert.Equal(t, 1, c.get(PressedA), "mouse events carry code 0")
	assert.Equal(t, 1, c.get(RollChange))
	assert.Equal(t, 1, c.get(DistanceChange))

	x, y, ok := r.Pointer()
	assert.True(t, ok)
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 20.0, y)
}

func TestHandleInputPrimaryUnavailable(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Browsing: true})
	d := New(src)
	_, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)

	src.drop(1)
	err = d.HandleInput(&InputEvent{Type: KeyDown, Code: 0})
	assert.True(t, errors.Is(err, ErrPrimaryUnavailable))
}

func TestHandleInputReportsCallbackFailure(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Browsing: true, Distance: 1})

	var reported []error
	d := New(src, WithReporter(func(err error) { reported = append(reported, err) }))
	r, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)

	var c counter
	r.When("pressed_plus", func(*Remote, Status) error { panic("bad") })
	r.On(DistanceChange, c.handler(DistanceChange))

	require.NoError(t, d.HandleInput(&InputEvent{Type: KeyPress, Code: 174}))
	require.Len(t, reported, 1)
	assert.True(t, errors.Is(reported[0], ErrCallbackPanic))
	assert.Equal(t, 1, c.get(DistanceChange))
}

func TestWithPollIntervalFloor(t *testing.T) {
	assert.Equal(t, PollInterval, New(nil).Interval())
	assert.Equal(t, PollInterval, New(nil, WithPollInterval(10*time.Millisecond)).Interval())
	assert.Equal(t, 250*time.Millisecond, New(nil, WithPollInterval(250*time.Millisecond)).Interval())
}

func TestListenIsIdempotent(t *testing.T) {
	src := newFakeSource()
	host := &fakeHost{}
	d := New(src, WithHost(host))

	ctx := context.Background()
	require.NoError(t, d.Listen(ctx))
	require.NoError(t, d.Listen(ctx))

	installs, _, listeners := host.counts()
	assert.Equal(t, 1, installs)
	assert.Equal(t, 1, listeners)

	d.Close()
	_, removes, listeners := host.counts()
	assert.Equal(t, 1, removes)
	assert.Equal(t, 0, listeners)

	assert.True(t, errors.Is(d.Listen(ctx), ErrClosed))
	d.Close()
}

func TestListenPollsAndBridgesInput(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Browsing: true})
	src.set(2, Status{Hold: HoldA})
	host := &fakeHost{}
	d := New(src, WithHost(host))

	r1, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)
	r2, err := d.NewRemote(2, Vertical)
	require.NoError(t, err)

	var c1, c2 counter
	r1.On(PressedB, c1.handler(PressedB))
	r2.On(PressedA, c2.handler(PressedA))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, d.Listen(ctx))

	assert.Eventually(t, func() bool { return c2.get(PressedA) >= 2 }, 2*time.Second, 10*time.Millisecond)

	ev := &InputEvent{Type: KeyDown, Code: 171}
	host.fire(ev)
	assert.True(t, ev.DefaultPrevented())
	assert.Eventually(t, func() bool { return c1.get(PressedB) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool {
		_, removes, _ := host.counts()
		return removes == 1
	}, time.Second, 10*time.Millisecond)
	d.Close()
}

func TestCloseStopsRescheduling(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{})
	d := New(src)
	_, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)

	require.NoError(t, d.Listen(context.Background()))
	assert.Eventually(t, func() bool { return src.pollCount() >= 3 }, 2*time.Second, 10*time.Millisecond)

	d.Close()
	n := src.pollCount()
	time.Sleep(3 * PollInterval)
	assert.Equal(t, n, src.pollCount())
}

func TestSlowTickDoesNotBurst(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Hold: HoldA})
	d := New(src)
	r, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)

	var mu sync.Mutex
	var stamps []time.Time
	r.When("pressed_a", func(*Remote, Status) error {
		mu.Lock()
		stamps = append(stamps, time.Now())
		n := len(stamps)
		mu.Unlock()
		if n == 1 {
			time.Sleep(3 * PollInterval)
		}
		return nil
	})

	require.NoError(t, d.Listen(context.Background()))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(stamps) >= 3
	}, 3*time.Second, 10*time.Millisecond)
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(stamps); i++ {
		// The gap after the slow tick is the interval again, not a backlog
		// of missed ticks fired back to back.
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), PollInterval-5*time.Millisecond)
	}
}

func TestListenInputEventsAreNotShared(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Browsing: true})
	host := &fakeHost{}
	d := New(src, WithHost(host))

	r, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)
	var c counter
	r.On(PressedB, c.handler(PressedB))

	require.NoError(t, d.Listen(context.Background()))
	defer d.Close()

	// The host keeps reading its event while the loop handles it.
	for i := 0; i < 20; i++ {
		ev := &InputEvent{Type: KeyDown, Code: CodeB}
		host.fire(ev)
		for j := 0; j < 10; j++ {
			assert.True(t, ev.DefaultPrevented())
		}
	}
	assert.Eventually(t, func() bool { return c.get(PressedB) == 20 }, time.Second, 10*time.Millisecond)
}

func TestListenKeepsTickingAfterFailingCallback(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Hold: HoldA | HoldB})

	var mu sync.Mutex
	var reported []error
	d := New(src, WithReporter(func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}))

	r, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)
	var c counter
	r.When("pressed_a", func(*Remote, Status) error { panic("kaboom") })
	r.On(PressedB, c.handler(PressedB))

	require.NoError(t, d.Listen(context.Background()))
	defer d.Close()

	assert.Eventually(t, func() bool { return c.get(PressedB) >= 3 }, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(reported), 2)
	for _, err := range reported {
		assert.True(t, errors.Is(err, ErrCallbackPanic))
	}
}

func TestStopFromCallback(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Hold: HoldA})
	host := &fakeHost{}
	d := New(src, WithHost(host))

	r, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)
	var c counter
	count := c.handler(PressedA)
	r.On(PressedA, func(r *Remote, s Status) error {
		d.Stop()
		return count(r, s)
	})

	require.NoError(t, d.Listen(context.Background()))
	assert.Eventually(t, func() bool {
		_, removes, _ := host.counts()
		return removes == 1
	}, 2*time.Second, 10*time.Millisecond)

	d.Close()
	assert.Equal(t, 1, c.get(PressedA))
	assert.True(t, errors.Is(d.Listen(context.Background()), ErrClosed))
}

func TestListenDropsInputWithoutPrimary(t *testing.T) {
	src := newFakeSource()
	src.set(2, Status{Hold: HoldA})
	host := &fakeHost{}

	var mu sync.Mutex
	var reported []error
	d := New(src, WithHost(host), WithReporter(func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}))
	r, err := d.NewRemote(2, Vertical)
	require.NoError(t, err)
	var c counter
	r.On(PressedA, c.handler(PressedA))

	require.NoError(t, d.Listen(context.Background()))
	defer d.Close()

	ev := &InputEvent{Type: KeyDown, Code: 39}
	host.fire(ev)
	assert.True(t, ev.DefaultPrevented())

	// Ticks after the event prove the loop already handled it.
	assert.Eventually(t, func() bool { return c.get(PressedA) >= 2 }, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, reported)
}

func TestRemoteInputDuringCallbacks(t *testing.T) {
	src := newFakeSource()
	src.set(1, Status{Browsing: true})
	src.set(2, Status{Hold: HoldA})
	d := New(src)

	r1, err := d.NewRemote(1, Vertical)
	require.NoError(t, err)
	r2, err := d.NewRemote(2, Vertical)
	require.NoError(t, err)

	var types []InputType
	var native []bool
	record := func(r *Remote, s Status) error {
		it, ok := r.Input()
		types = append(types, it)
		native = append(native, ok)
		return nil
	}
	r1.On(PressedA, record)
	r2.On(PressedA, record)

	require.NoError(t, d.HandleInput(&InputEvent{Type: MouseDown, Code: CodeA}))
	require.NoError(t, d.HandleInput(&InputEvent{Type: KeyUp, Code: CodeEnter}))
	d.Poll()

	assert.Equal(t, []InputType{MouseDown, KeyUp, 0}, types)
	assert.Equal(t, []bool{true, true, false}, native)

	_, ok := r1.Input()
	assert.False(t, ok, "cleared after dispatch")
}
