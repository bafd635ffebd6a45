package wiimote

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedEvent is reported when a subscription names an event outside
	// the catalog.
	ErrUnsupportedEvent = errors.New("wiimote: unsupported event")

	// ErrInvalidRemote is returned for remote ids outside 1..4.
	ErrInvalidRemote = errors.New("wiimote: remote id must be 1-4")

	// ErrNoPrimary is returned when a native input event arrives before any
	// remote holds the browsing role.
	ErrNoPrimary = errors.New("wiimote: no primary remote")

	// ErrPrimaryUnavailable is returned when the browsing remote cannot be
	// sampled while handling a native input event.
	ErrPrimaryUnavailable = errors.New("wiimote: primary remote unavailable")

	// ErrCallbackPanic wraps a recovered panic from a subscriber.
	ErrCallbackPanic = errors.New("wiimote: callback panic")

	// ErrClosed is returned by Listen after Close.
	ErrClosed = errors.New("wiimote: dispatcher closed")
)

// CallbackError is handed to the Reporter when a subscriber fails.
type CallbackError struct {
	Remote int
	Event  Event
	Err    error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("remote %d %s: %v", e.Remote, e.Event, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// Reporter receives non-fatal failures from the dispatch loop.
type Reporter func(err error)
