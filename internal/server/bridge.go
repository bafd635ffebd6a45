package server

import (
	"log"

	"github.com/soar/wiiremote/internal/device"
	"github.com/soar/wiiremote/internal/slides"
	"github.com/soar/wiiremote/internal/wiimote"
)

// Bridge applies browser reports to the device store, the input host and the
// deck. It implements hub.Reports.
type Bridge struct {
	store *device.Store
	host  *device.Host
	deck  *slides.Deck
	debug bool
}

func NewBridge(store *device.Store, host *device.Host, deck *slides.Deck, debug bool) *Bridge {
	return &Bridge{store: store, host: host, deck: deck, debug: debug}
}

func (b *Bridge) ReportStatus(channel int, s wiimote.Status) error {
	return b.store.Update(channel, s)
}

func (b *Bridge) ReportForget(channel int) {
	b.store.Forget(channel)
}

func (b *Bridge) ReportInput(ev *wiimote.InputEvent) {
	handled := b.host.Deliver(ev)
	if b.debug {
		log.Printf("Input %s %d (handled: %v)", ev.Type, ev.Code, handled)
	}
}

func (b *Bridge) ReportCount(count int) {
	b.deck.SetCount(count)
}
