package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/soar/wiiremote/internal/slides"
	"github.com/soar/wiiremote/internal/wiimote"
)

const fullSyncInterval = 5 * time.Second

// Broadcaster turns remote events, slide changes and error reports into
// messages for every connected client.
type Broadcaster struct {
	hub  *Hub
	deck *slides.Deck
	seq  atomic.Int64
}

func NewBroadcaster(h *Hub, deck *slides.Deck) *Broadcaster {
	return &Broadcaster{
		hub:  h,
		deck: deck,
	}
}

// Run follows the deck and broadcasts its position on every change, and
// periodically so late joiners and dropped messages catch up. Should be run
// in a goroutine.
func (b *Broadcaster) Run(ctx context.Context) {
	changes, stop := b.deck.Watch()
	defer stop()

	ticker := time.NewTicker(fullSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			b.sendSlide()
		case <-ticker.C:
			b.sendSlide()
		}
	}
}

// SendInitialState queues the current slide position for a new client.
func (b *Broadcaster) SendInitialState(c *Client) {
	data, err := b.marshal(NewSlideMessage(b.seq.Add(1), b.deck.Index(), b.deck.Count()))
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Event broadcasts a dispatched remote event. It has the wiimote.Handler
// signature so it can be subscribed directly.
func (b *Broadcaster) Event(event wiimote.Event) wiimote.Handler {
	return func(r *wiimote.Remote, s wiimote.Status) error {
		b.send(NewEventMessage(b.seq.Add(1), r.ID(), event, &s))
		return nil
	}
}

// Debug broadcasts an error report for the on-screen overlay.
func (b *Broadcaster) Debug(err error) {
	b.send(NewDebugMessage(b.seq.Add(1), err))
}

func (b *Broadcaster) sendSlide() {
	b.send(NewSlideMessage(b.seq.Add(1), b.deck.Index(), b.deck.Count()))
}

func (b *Broadcaster) send(msg *WSMessage) {
	data, err := b.marshal(msg)
	if err != nil {
		return
	}
	b.hub.Broadcast(data)
}

func (b *Broadcaster) marshal(msg *WSMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling %s message: %v", msg.Type, err)
	}
	return data, err
}
