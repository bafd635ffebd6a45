package wiimote

import (
	"strings"

	"github.com/pkg/errors"
)

// InputType is a native browser input event type.
type InputType uint8

const (
	KeyDown InputType = iota
	KeyUp
	KeyPress
	MouseDown
	MouseUp
)

// InputTypes lists every native event type the browsing remote produces.
var InputTypes = []InputType{MouseUp, MouseDown, KeyUp, KeyDown, KeyPress}

var inputTypeNames = [...]string{
	KeyDown:   "keydown",
	KeyUp:     "keyup",
	KeyPress:  "keypress",
	MouseDown: "mousedown",
	MouseUp:   "mouseup",
}

func (t InputType) String() string {
	if int(t) < len(inputTypeNames) {
		return inputTypeNames[t]
	}
	return "unknown"
}

// ParseInputType accepts DOM event type names such as "keydown".
func ParseInputType(s string) (InputType, error) {
	s = strings.ToLower(s)
	for i, name := range inputTypeNames {
		if name == s {
			return InputType(i), nil
		}
	}
	return 0, errors.Errorf("unknown input type %q", s)
}

// InputEvent is a native key or mouse event of the browsing remote.
type InputEvent struct {
	Type InputType
	Code int

	prevented bool
}

// PreventDefault suppresses the host's default action for the event.
func (e *InputEvent) PreventDefault() {
	e.prevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *InputEvent) DefaultPrevented() bool {
	return e.prevented
}

// InputHandler receives native input events.
type InputHandler func(ev *InputEvent)

// Host delivers native input events. Listen registers h for the given types
// and returns a function that removes it again.
type Host interface {
	Listen(types []InputType, h InputHandler) (remove func())
}
