// Package controls maps remote buttons and arrow keys to slide moves.
package controls

import (
	"time"

	"github.com/soar/wiiremote/internal/hub"
	"github.com/soar/wiiremote/internal/slides"
	"github.com/soar/wiiremote/internal/wiimote"
)

// Browser key codes the desktop page sends for the arrow keys.
const (
	KeyLeft  = 37
	KeyRight = 39
)

type pressKey struct {
	remote int
	event  wiimote.Event
}

// PressGate turns a level-triggered button into one action per press: calls
// that follow the previous one within gap belong to the same hold. It is only
// used from the dispatcher loop.
type PressGate struct {
	gap  time.Duration
	last map[pressKey]time.Time
	now  func() time.Time
}

// NewPressGate creates a gate for buttons sampled every pollInterval.
func NewPressGate(pollInterval time.Duration) *PressGate {
	return &PressGate{
		gap:  pollInterval * 3 / 2,
		last: make(map[pressKey]time.Time),
		now:  time.Now,
	}
}

// Pressed reports whether this call starts a new press of e on remote.
func (g *PressGate) Pressed(remote int, e wiimote.Event) bool {
	k := pressKey{remote, e}
	now := g.now()
	prev, held := g.last[k]
	g.last[k] = now
	return !held || now.Sub(prev) > g.gap
}

// BindRemote broadcasts every event of r and steps the deck on the
// navigation buttons.
func BindRemote(r *wiimote.Remote, deck *slides.Deck, b *hub.Broadcaster, gate *PressGate) {
	for _, e := range wiimote.Events() {
		r.On(e, b.Event(e))
	}

	step := func(e wiimote.Event, move func() bool) {
		broadcast := b.Event(e)
		r.On(e, func(r *wiimote.Remote, s wiimote.Status) error {
			if startsPress(r, e, gate) {
				move()
			}
			return broadcast(r, s)
		})
	}
	step(wiimote.PressedRight, deck.Next)
	step(wiimote.PressedA, deck.Next)
	step(wiimote.PressedLeft, deck.Prev)
	step(wiimote.PressedB, deck.Prev)
}

// startsPress reports whether a callback for e begins a new press. The
// browsing remote reports each press as several native events, so only the
// key or mouse down starts one. Polled buttons go through the gate.
func startsPress(r *wiimote.Remote, e wiimote.Event, gate *PressGate) bool {
	if t, native := r.Input(); native {
		return t == wiimote.KeyDown || t == wiimote.MouseDown
	}
	return gate.Pressed(r.ID(), e)
}

// StepKeyboard lets a desktop browser step the deck with its arrow keys.
func StepKeyboard(ev *wiimote.InputEvent, deck *slides.Deck) {
	switch ev.Code {
	case KeyRight:
		deck.Next()
	case KeyLeft:
		deck.Prev()
	}
}
