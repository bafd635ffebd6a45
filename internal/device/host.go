package device

import (
	"sync"

	"github.com/soar/wiiremote/internal/wiimote"
)

type listener struct {
	id    uint64
	types map[wiimote.InputType]bool
	fn    wiimote.InputHandler
}

// Host relays native input events reported by the browser to listeners. It
// implements wiimote.Host.
type Host struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners []*listener
}

func NewHost() *Host {
	return &Host{}
}

// Listen registers fn for the given event types. The returned function
// removes it and may be called more than once.
func (h *Host) Listen(types []wiimote.InputType, fn wiimote.InputHandler) func() {
	l := &listener{types: make(map[wiimote.InputType]bool, len(types)), fn: fn}
	for _, t := range types {
		l.types[t] = true
	}

	h.mu.Lock()
	h.nextID++
	l.id = h.nextID
	h.listeners = append(h.listeners, l)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(l.id) })
	}
}

func (h *Host) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, l := range h.listeners {
		if l.id == id {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			return
		}
	}
}

// Deliver hands ev to every listener registered for its type, in registration
// order. It reports whether any listener suppressed the default action.
func (h *Host) Deliver(ev *wiimote.InputEvent) bool {
	h.mu.RLock()
	var targets []wiimote.InputHandler
	for _, l := range h.listeners {
		if l.types[ev.Type] {
			targets = append(targets, l.fn)
		}
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn(ev)
	}
	return ev.DefaultPrevented()
}

// Len returns the number of registered listeners.
func (h *Host) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
