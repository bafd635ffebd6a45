package hub

import (
	"log"
	"time"

	"github.com/lxzan/gws"
	"github.com/pkg/errors"
	"github.com/soar/wiiremote/internal/wiimote"
)

const (
	sessionClient = "client"
	pingWait      = 30 * time.Second
)

// Reports receives what the browser bridge reports about the remotes.
type Reports interface {
	ReportStatus(channel int, s wiimote.Status) error
	ReportForget(channel int)
	ReportInput(ev *wiimote.InputEvent)
	ReportCount(count int)
}

// Client represents a connected WebSocket client.
type Client struct {
	hub  *Hub
	conn *gws.Conn
	send chan []byte
}

// NewClient creates a new Client attached to the hub.
func NewClient(hub *Hub, conn *gws.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// WritePump sends messages from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	defer func() {
		c.conn.WriteClose(1000, nil)
	}()

	for msg := range c.send {
		if err := c.conn.WriteMessage(gws.OpcodeText, msg); err != nil {
			break
		}
	}
}

// Handler implements gws.Event for browser bridge connections.
type Handler struct {
	hub         *Hub
	broadcaster *Broadcaster
	reports     Reports
}

func NewHandler(h *Hub, b *Broadcaster, reports Reports) *Handler {
	return &Handler{hub: h, broadcaster: b, reports: reports}
}

func (h *Handler) OnOpen(socket *gws.Conn) {
	_ = socket.SetDeadline(time.Now().Add(pingWait))

	client := NewClient(h.hub, socket)
	socket.Session().Store(sessionClient, client)

	// Queue the current state before the hub can close the send channel.
	h.broadcaster.SendInitialState(client)
	h.hub.Register(client)
	go client.WritePump()
}

func (h *Handler) OnClose(socket *gws.Conn, err error) {
	if v, ok := socket.Session().Load(sessionClient); ok {
		h.hub.Unregister(v.(*Client))
	}
}

func (h *Handler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(pingWait))
	_ = socket.WritePong(payload)
}

func (h *Handler) OnPong(socket *gws.Conn, payload []byte) {}

func (h *Handler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	_ = socket.SetDeadline(time.Now().Add(pingWait))
	h.handle(message.Bytes())
}

// handle applies one client message.
func (h *Handler) handle(data []byte) {
	msgs, err := ParseClientMessages(data)
	if err != nil {
		log.Printf("Error parsing client message: %v", err)
		return
	}
	for i := range msgs {
		if err := Apply(h.reports, &msgs[i]); err != nil {
			log.Printf("Client message rejected: %v", err)
		}
	}
}

// Apply hands one client message to reports.
func Apply(reports Reports, msg *ClientMessage) error {
	switch msg.Type {
	case TypeStatus:
		if msg.Status == nil {
			return errors.Errorf("status report for channel %d without status", msg.Channel)
		}
		return errors.Wrap(reports.ReportStatus(msg.Channel, *msg.Status), "status report")

	case TypeForget:
		reports.ReportForget(msg.Channel)

	case TypeInput:
		t, err := wiimote.ParseInputType(msg.Input)
		if err != nil {
			return errors.Wrap(err, "input report")
		}
		reports.ReportInput(&wiimote.InputEvent{Type: t, Code: msg.Code})

	case TypeCount:
		reports.ReportCount(msg.Count)

	default:
		return errors.Errorf("unknown client message type %q", msg.Type)
	}
	return nil
}
