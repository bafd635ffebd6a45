package server

import (
	"context"
	"io"
	"io/fs"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/lxzan/gws"
	"github.com/soar/wiiremote/internal/hub"
	"github.com/soar/wiiremote/internal/slides"
)

const (
	maxMessageSize = 64 * 1024
	minSSEInterval = 500 * time.Millisecond
)

// Options configures the HTTP server.
type Options struct {
	Addr        string
	Debug       bool
	Minify      bool
	SSEInterval time.Duration
}

type Server struct {
	hub         *hub.Hub
	broadcaster *hub.Broadcaster
	deck        *slides.Deck
	opts        Options
	handler     http.Handler
	httpServer  *http.Server

	// ctx is the base context of every request, cancelled on shutdown so
	// event streams end.
	ctx    context.Context
	cancel context.CancelFunc
}

func New(h *hub.Hub, b *hub.Broadcaster, reports hub.Reports, deck *slides.Deck, frontendFS fs.FS, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		hub:         h,
		broadcaster: b,
		deck:        deck,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
	}

	upgrader := gws.NewUpgrader(hub.NewHandler(h, b, reports), &gws.ServerOption{
		ReadMaxPayloadSize: maxMessageSize,
		Recovery:           gws.Recovery,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handleWebSocket(upgrader))
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("POST /report", handleReport(reports))
	mux.HandleFunc("/favicon.ico", http.NotFound)
	mux.Handle("/", newStaticHandler(frontendFS, opts.Minify))

	s.handler = mux
	if opts.Debug {
		s.handler = logRequests(mux)
	}
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:        s.opts.Addr,
		Handler:     s.handler,
		BaseContext: func(net.Listener) context.Context { return s.ctx },
	}

	log.Printf("HTTP server listening on %s", s.opts.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	if s.httpServer != nil {
		log.Println("Shutting down HTTP server...")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func handleWebSocket(upgrader *gws.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}
		go socket.ReadLoop()
	}
}

// handleReport accepts client messages over plain HTTP, for browsers that
// cannot open a WebSocket.
func handleReport(reports hub.Reports) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
		if err != nil {
			http.Error(w, "report too large", http.StatusRequestEntityTooLarge)
			return
		}
		msgs, err := hub.ParseClientMessages(data)
		if err != nil {
			http.Error(w, "malformed report", http.StatusBadRequest)
			return
		}
		for i := range msgs {
			if err := hub.Apply(reports, &msgs[i]); err != nil {
				log.Printf("Report rejected: %v", err)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL)
		for name, values := range r.Header {
			log.Printf("  %s: %v", name, values)
		}
		next.ServeHTTP(w, r)
	})
}

// LocalURL turns a listen address into a URL a local browser can open.
func LocalURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	if port == "" {
		return "http://" + host
	}
	return "http://" + net.JoinHostPort(host, port)
}
