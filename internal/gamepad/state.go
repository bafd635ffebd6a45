package gamepad

import "github.com/soar/wiiremote/internal/wiimote"

const deadzone = 0.05

// Joystick is the raw view of one opened gamepad.
type Joystick interface {
	Axis(index int32) int16
	Button(index int32) bool
	NumButtons() int32
	// Hat returns the first hat's value, ok is false if there is none.
	Hat() (value uint8, ok bool)
}

// ReadStatus samples js through mapping m into an emulated remote status.
func ReadStatus(m *DeviceMapping, js Joystick) wiimote.Status {
	s := wiimote.Status{Enabled: true, DataValid: true}

	var px, py float64
	for _, am := range m.Axes {
		raw := js.Axis(am.Index)
		if am.IsTrigger {
			v := ApplyDeadzone(NormalizeTrigger(raw, am.RawMin, am.RawMax), deadzone)
			if am.Target == "distance" {
				s.Distance = DistanceFromTrigger(v)
			}
			continue
		}
		v := NormalizeAxis(raw)
		if am.Invert {
			v = -v
		}
		v = ApplyDeadzone(v, deadzone)
		switch am.Target {
		case "pointer_x":
			px = v
		case "pointer_y":
			py = v
		case "roll_x":
			s.RollX = v
		case "roll_y":
			s.RollY = v
		}
	}
	s.ScreenX, s.ScreenY = PointerFromStick(px, py)

	numButtons := js.NumButtons()
	for _, bm := range m.Buttons {
		if bm.Index >= numButtons {
			continue
		}
		if js.Button(bm.Index) {
			s.Hold |= bm.Bit
		}
	}

	if m.HasHat {
		if hat, ok := js.Hat(); ok {
			s.Hold |= HatBits(hat)
		}
	}
	return s
}

// Slots hands out remote channels to gamepads, lowest free channel first.
type Slots struct {
	owner [wiimote.MaxRemotes]uint32
	used  [wiimote.MaxRemotes]bool
}

// Claim assigns a channel to the gamepad with instance id. A gamepad that
// already holds a channel keeps it. ok is false when all channels are taken.
func (sl *Slots) Claim(id uint32) (channel int, ok bool) {
	if ch, held := sl.Find(id); held {
		return ch, true
	}
	for ch := range sl.used {
		if !sl.used[ch] {
			sl.used[ch], sl.owner[ch] = true, id
			return ch, true
		}
	}
	return 0, false
}

// Release frees the channel held by id and returns it.
func (sl *Slots) Release(id uint32) (channel int, ok bool) {
	ch, held := sl.Find(id)
	if held {
		sl.used[ch] = false
	}
	return ch, held
}

// Find returns the channel held by id.
func (sl *Slots) Find(id uint32) (int, bool) {
	for ch := range sl.used {
		if sl.used[ch] && sl.owner[ch] == id {
			return ch, true
		}
	}
	return 0, false
}
