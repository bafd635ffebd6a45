package wiimote

import (
	"strings"

	"github.com/pkg/errors"
)

// Orientation is how the player holds the remote.
type Orientation uint8

const (
	Vertical Orientation = iota
	Horizontal
)

// ParseOrientation accepts "vertical" or "horizontal", case-insensitive. An
// empty string means Vertical.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "vertical":
		return Vertical, nil
	case "horizontal":
		return Horizontal, nil
	}
	return Vertical, errors.Errorf("unknown orientation %q", s)
}

func (o Orientation) String() string {
	if o == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

func (o Orientation) index() int {
	if o == Horizontal {
		return 1
	}
	return 0
}

// Key codes the browser reports for the browsing remote.
const (
	CodeA     = 0
	CodeEnter = 13 // older browser builds report A as Enter
	CodeMinus = 170
	CodeB     = 171
	CodeOne   = 172
	CodeTwo   = 173
	CodePlus  = 174
	CodeDpad1 = 175
	CodeDpad2 = 176
	CodeDpad3 = 177
	CodeDpad4 = 178
)

// primaryKeys maps native key codes of the browsing remote to catalog events,
// one table per orientation. Mouse events carry code 0 and land on A.
var primaryKeys = [2]map[int]Event{
	Vertical: {
		CodeA:     PressedA,
		CodeEnter: PressedA,
		CodeMinus: PressedMinus,
		CodeB:     PressedB,
		CodeOne:   Pressed1,
		CodeTwo:   Pressed2,
		CodePlus:  PressedPlus,
		CodeDpad1: PressedUp,
		CodeDpad2: PressedDown,
		CodeDpad3: PressedRight,
		CodeDpad4: PressedLeft,
	},
	Horizontal: {
		CodeA:     PressedA,
		CodeEnter: PressedA,
		CodeMinus: PressedMinus,
		CodeB:     PressedB,
		CodeOne:   Pressed1,
		CodeTwo:   Pressed2,
		CodePlus:  PressedPlus,
		CodeDpad1: PressedLeft,
		CodeDpad2: PressedRight,
		CodeDpad3: PressedUp,
		CodeDpad4: PressedDown,
	},
}

// PrimaryEvent maps a native input code to the event it stands for under
// orientation o.
func PrimaryEvent(o Orientation, code int) (Event, bool) {
	e, ok := primaryKeys[o.index()][code]
	return e, ok
}
