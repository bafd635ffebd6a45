package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/soar/wiiremote/internal/config"
	"github.com/soar/wiiremote/internal/console"
	"github.com/soar/wiiremote/internal/controls"
	"github.com/soar/wiiremote/internal/device"
	"github.com/soar/wiiremote/internal/gamepad/joystick"
	"github.com/soar/wiiremote/internal/hub"
	"github.com/soar/wiiremote/internal/server"
	"github.com/soar/wiiremote/internal/slides"
	"github.com/soar/wiiremote/internal/tray"
	"github.com/soar/wiiremote/internal/wiimote"
	"github.com/spf13/pflag"
)

// os.Interrupt covers Ctrl+C everywhere; SIGTERM is for service managers.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errors.Wrap(err, "configuration")
	}
	if cfg.ConfigFile != "" {
		log.Printf("Using config file %s", cfg.ConfigFile)
	}

	interactive := console.Interactive()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)
	consoleInterrupt := make(chan struct{})
	reregister := console.NotifyInterrupt(consoleInterrupt)

	store := device.NewStore()
	host := device.NewHost()
	deck := slides.NewDeck(cfg.Slides)

	h := hub.NewHub()
	go h.Run(ctx)
	broadcaster := hub.NewBroadcaster(h, deck)
	go broadcaster.Run(ctx)

	dispatcher := wiimote.New(store,
		wiimote.WithHost(host),
		wiimote.WithPollInterval(cfg.PollInterval),
		wiimote.WithReporter(func(err error) {
			log.Printf("Dispatch error: %v", err)
			if cfg.Debug {
				broadcaster.Debug(err)
			}
		}),
	)
	defer dispatcher.Close()

	gate := controls.NewPressGate(dispatcher.Interval())
	for _, rc := range cfg.Remotes {
		r, err := dispatcher.NewRemote(rc.ID, rc.Orientation)
		if err != nil {
			return errors.Wrapf(err, "remote %d", rc.ID)
		}
		controls.BindRemote(r, deck, broadcaster, gate)
		log.Printf("Remote %d held %s", rc.ID, rc.Orientation)
	}
	removeKeys := host.Listen([]wiimote.InputType{wiimote.KeyDown}, func(ev *wiimote.InputEvent) {
		controls.StepKeyboard(ev, deck)
	})
	defer removeKeys()

	if err := dispatcher.Listen(ctx); err != nil {
		return errors.Wrap(err, "start dispatcher")
	}

	// Closed once the gamepad reader has released SDL.
	readerDone := make(chan struct{})
	if cfg.Gamepad {
		reader := joystick.NewReader(store, cfg.BrowsingChannel)
		reader.AfterInit = reregister
		go func() {
			defer close(readerDone)
			reader.Run(ctx)
		}()
	} else {
		close(readerDone)
	}

	srv := server.New(h, broadcaster, server.NewBridge(store, host, deck, cfg.Debug), deck,
		getFrontendFS(cfg.FrontendDir), server.Options{
			Addr:        cfg.Addr,
			Debug:       cfg.Debug,
			Minify:      cfg.Minify,
			SSEInterval: cfg.SSEInterval,
		})
	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	url := server.LocalURL(cfg.Addr)
	log.Printf("WiiRemote started: %s", url)

	shutdownRequested := make(chan struct{})
	var t *tray.Tray
	if cfg.Tray || !interactive {
		t = tray.New(url, func() { close(shutdownRequested) })
		go t.Run(tray.Icon())
	} else {
		log.Println("Press Ctrl+C to exit")
	}

	var runErr error
	select {
	case <-sigCh:
		log.Println("Shutting down...")
	case <-consoleInterrupt:
		log.Println("Shutting down...")
	case <-shutdownRequested:
		log.Println("Shutdown requested from tray")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "HTTP server")
	}
	cancel()

	dispatcher.Close()
	<-readerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if t != nil {
		t.Quit()
	}

	log.Println("WiiRemote stopped")
	return runErr
}
