package wiimote

import "math"

// Hold bits reported in Status.Hold. Directional names follow the
// vertical holding convention.
const (
	HoldLeft  uint32 = 0x0001
	HoldRight uint32 = 0x0002
	HoldDown  uint32 = 0x0004
	HoldUp    uint32 = 0x0008
	HoldPlus  uint32 = 0x0010
	HoldTwo   uint32 = 0x0100
	HoldOne   uint32 = 0x0200
	HoldB     uint32 = 0x0400
	HoldA     uint32 = 0x0800
	HoldMinus uint32 = 0x1000
	HoldZ     uint32 = 0x2000 // nunchuk, legacy
	HoldC     uint32 = 0x4000 // nunchuk, legacy
)

// Event is one of the fixed semantic events a Remote can subscribe to.
type Event uint8

const (
	PressedUp Event = iota + 1
	PressedDown
	PressedLeft
	PressedRight
	PressedPlus
	PressedMinus
	Pressed1
	Pressed2
	PressedA
	PressedB
	PressedZ
	PressedC
	RollChange
	DistanceChange

	numEvents = int(DistanceChange)
)

var eventNames = [...]string{
	PressedUp:      "pressed_up",
	PressedDown:    "pressed_down",
	PressedLeft:    "pressed_left",
	PressedRight:   "pressed_right",
	PressedPlus:    "pressed_plus",
	PressedMinus:   "pressed_minus",
	Pressed1:       "pressed_1",
	Pressed2:       "pressed_2",
	PressedA:       "pressed_a",
	PressedB:       "pressed_b",
	PressedZ:       "pressed_z",
	PressedC:       "pressed_c",
	RollChange:     "roll_change",
	DistanceChange: "distance_change",
}

var eventsByName = func() map[string]Event {
	m := make(map[string]Event, numEvents)
	for e := PressedUp; int(e) <= numEvents; e++ {
		m[eventNames[e]] = e
	}
	return m
}()

// ParseEvent returns the Event named name. ok is false for names outside the
// catalog.
func ParseEvent(name string) (e Event, ok bool) {
	e, ok = eventsByName[name]
	return e, ok
}

// Events returns every catalog event in declaration order.
func Events() []Event {
	out := make([]Event, 0, numEvents)
	for e := PressedUp; int(e) <= numEvents; e++ {
		out = append(out, e)
	}
	return out
}

// Valid reports whether e is part of the catalog.
func (e Event) Valid() bool {
	return e >= PressedUp && int(e) <= numEvents
}

func (e Event) String() string {
	if !e.Valid() {
		return "unknown"
	}
	return eventNames[e]
}

// Continuous reports whether e is detected by value change rather than by a
// held button.
func (e Event) Continuous() bool {
	return e == RollChange || e == DistanceChange
}

// Directional bits indexed by orientation. Horizontal is the vertical layout
// rotated by 90 degrees.
var directionBits = [2]map[Event]uint32{
	Vertical: {
		PressedUp:    HoldUp,
		PressedRight: HoldRight,
		PressedDown:  HoldDown,
		PressedLeft:  HoldLeft,
	},
	Horizontal: {
		PressedUp:    HoldRight,
		PressedRight: HoldDown,
		PressedDown:  HoldLeft,
		PressedLeft:  HoldUp,
	},
}

var buttonBits = map[Event]uint32{
	PressedPlus:  HoldPlus,
	PressedMinus: HoldMinus,
	Pressed1:     HoldOne,
	Pressed2:     HoldTwo,
	PressedA:     HoldA,
	PressedB:     HoldB,
	PressedZ:     HoldZ,
	PressedC:     HoldC,
}

// Bit returns the hold bit tested for e under orientation o. ok is false for
// continuous events.
func (e Event) Bit(o Orientation) (bit uint32, ok bool) {
	if bit, ok = directionBits[o.index()][e]; ok {
		return bit, true
	}
	bit, ok = buttonBits[e]
	return bit, ok
}

// check evaluates the predicate for e against a freshly sampled status.
// Button predicates are level checks: they hold for as long as the bit is set.
// Continuous predicates fire on change and record the new value.
// The caller must hold r.mu.
func (r *Remote) check(e Event, s Status) bool {
	switch e {
	case RollChange:
		roll := math.Atan2(s.RollY, s.RollX)
		if r.hasRoll && roll == r.roll {
			return false
		}
		r.roll, r.hasRoll = roll, true
		return true
	case DistanceChange:
		if r.hasDistance && s.Distance == r.distance {
			return false
		}
		r.distance, r.hasDistance = s.Distance, true
		return true
	}
	bit, ok := e.Bit(r.orientation)
	return ok && s.Hold&bit != 0
}
