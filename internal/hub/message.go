package hub

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/soar/wiiremote/internal/wiimote"
)

// Message types sent to browsers.
const (
	TypeEvent = "event"
	TypeSlide = "slide"
	TypeDebug = "debug"
)

// Message types sent by browsers.
const (
	TypeStatus = "status"
	TypeInput  = "input"
	TypeForget = "forget"
	TypeCount  = "count"
)

// SlideState is the presentation position.
type SlideState struct {
	Index int `json:"index"`
	Count int `json:"count"`
}

// WSMessage represents a WebSocket message sent from server to client.
type WSMessage struct {
	Type      string          `json:"type"`             // "event", "slide" or "debug"
	Seq       int64           `json:"seq"`              // Sequence number for ordering
	Timestamp int64           `json:"timestamp"`        // Unix timestamp in milliseconds
	Event     string          `json:"event,omitempty"`  // Semantic event name for type "event"
	Remote    int             `json:"remote,omitempty"` // Remote id for type "event"
	Status    *wiimote.Status `json:"status,omitempty"` // Triggering sample for type "event"
	Slide     *SlideState     `json:"slide,omitempty"`  // Position for type "slide"
	Error     string          `json:"error,omitempty"`  // Report text for type "debug"
}

// NewEventMessage creates an "event" message for a dispatched remote event.
func NewEventMessage(seq int64, remote int, event wiimote.Event, status *wiimote.Status) *WSMessage {
	return &WSMessage{
		Type:      TypeEvent,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Event:     event.String(),
		Remote:    remote,
		Status:    status,
	}
}

// NewSlideMessage creates a "slide" message with the current position.
func NewSlideMessage(seq int64, index, count int) *WSMessage {
	return &WSMessage{
		Type:      TypeSlide,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Slide:     &SlideState{Index: index, Count: count},
	}
}

// NewDebugMessage creates a "debug" message for the on-screen overlay.
func NewDebugMessage(seq int64, err error) *WSMessage {
	return &WSMessage{
		Type:      TypeDebug,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Error:     err.Error(),
	}
}

// ClientMessage represents a message sent from the browser bridge.
type ClientMessage struct {
	Type    string          `json:"type"`
	Channel int             `json:"channel,omitempty"` // "status", "forget"
	Status  *wiimote.Status `json:"status,omitempty"`  // "status"
	Input   string          `json:"input,omitempty"`   // "input": DOM event type
	Code    int             `json:"code,omitempty"`    // "input": keyCode
	Count   int             `json:"count,omitempty"`   // "count": number of slides
}

// ParseClientMessages decodes one client message or a JSON array of them.
func ParseClientMessages(data []byte) ([]ClientMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var msgs []ClientMessage
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, err
		}
		return msgs, nil
	}
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return []ClientMessage{msg}, nil
}
