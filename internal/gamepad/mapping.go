package gamepad

import (
	"math"

	"github.com/soar/wiiremote/internal/wiimote"
)

// Screen size the emulated pointer is scaled to.
const (
	screenWidth  = 640
	screenHeight = 480
)

// Distance range the left trigger is scaled to, in metres from the screen.
const (
	nearDistance = 0.5
	farDistance  = 4.0
)

// AxisMapping defines how a raw axis index feeds an emulated remote field.
type AxisMapping struct {
	Index     int32
	Target    string // "pointer_x", "pointer_y", "roll_x", "roll_y", "distance"
	IsTrigger bool
	Invert    bool
	// For triggers: raw range. Some devices use -32768..32767, others 0..32767.
	RawMin int16
	RawMax int16
}

// ButtonMapping defines which hold bit a raw button index sets.
type ButtonMapping struct {
	Index int32
	Bit   uint32
}

// DeviceMapping holds the complete mapping for a specific gamepad type.
type DeviceMapping struct {
	Name    string
	Axes    []AxisMapping
	Buttons []ButtonMapping
	HasHat  bool
}

// NormalizeAxis converts a raw axis value (-32768..32767) to -1.0..1.0.
func NormalizeAxis(raw int16) float64 {
	v := float64(raw) / math.MaxInt16
	if v < -1.0 {
		v = -1.0
	}
	return v
}

// NormalizeTrigger converts a raw trigger value to 0.0..1.0.
func NormalizeTrigger(raw int16, rawMin, rawMax int16) float64 {
	if rawMax == rawMin {
		return 0
	}
	v := (float64(raw) - float64(rawMin)) / (float64(rawMax) - float64(rawMin))
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}

// ApplyDeadzone returns 0 if the value is within the deadzone threshold.
func ApplyDeadzone(v float64, threshold float64) float64 {
	if math.Abs(v) < threshold {
		return 0
	}
	return v
}

// Hat bits as reported by SDL.
const (
	hatUp    uint8 = 0x01
	hatRight uint8 = 0x02
	hatDown  uint8 = 0x04
	hatLeft  uint8 = 0x08
)

// HatBits converts an SDL hat value to remote direction bits in the vertical
// layout. Orientation is applied by the dispatcher, not here.
func HatBits(hat uint8) uint32 {
	var bits uint32
	if hat&hatUp != 0 {
		bits |= wiimote.HoldUp
	}
	if hat&hatRight != 0 {
		bits |= wiimote.HoldRight
	}
	if hat&hatDown != 0 {
		bits |= wiimote.HoldDown
	}
	if hat&hatLeft != 0 {
		bits |= wiimote.HoldLeft
	}
	return bits
}

// PointerFromStick maps stick deflection to screen coordinates, centre at rest.
func PointerFromStick(x, y float64) (float64, float64) {
	return (x + 1) / 2 * screenWidth, (1 - y) / 2 * screenHeight
}

// DistanceFromTrigger maps trigger travel to a distance from the screen.
func DistanceFromTrigger(v float64) float64 {
	return nearDistance + v*(farDistance-nearDistance)
}

// Built-in mappings for common controllers. Face buttons follow their
// position: south is A, east is B, west is 1, north is 2.

var commonAxes = []AxisMapping{
	{Index: 0, Target: "pointer_x"},
	{Index: 1, Target: "pointer_y", Invert: true},
	{Index: 2, Target: "roll_x"},
	{Index: 3, Target: "roll_y", Invert: true},
	{Index: 4, Target: "distance", IsTrigger: true, RawMin: -32768, RawMax: 32767},
}

var xboxMapping = &DeviceMapping{
	Name: "xbox",
	Axes: commonAxes,
	Buttons: []ButtonMapping{
		{Index: 0, Bit: wiimote.HoldA},
		{Index: 1, Bit: wiimote.HoldB},
		{Index: 2, Bit: wiimote.HoldOne},
		{Index: 3, Bit: wiimote.HoldTwo},
		{Index: 4, Bit: wiimote.HoldZ},
		{Index: 5, Bit: wiimote.HoldC},
		{Index: 6, Bit: wiimote.HoldMinus},
		{Index: 7, Bit: wiimote.HoldPlus},
	},
	HasHat: true,
}

var playstationMapping = &DeviceMapping{
	Name: "playstation",
	Axes: commonAxes,
	Buttons: []ButtonMapping{
		{Index: 0, Bit: wiimote.HoldA},     // Cross
		{Index: 1, Bit: wiimote.HoldB},     // Circle
		{Index: 2, Bit: wiimote.HoldOne},   // Square
		{Index: 3, Bit: wiimote.HoldTwo},   // Triangle
		{Index: 4, Bit: wiimote.HoldMinus}, // Share / Create
		{Index: 6, Bit: wiimote.HoldPlus},  // Options
		{Index: 9, Bit: wiimote.HoldZ},     // L1
		{Index: 10, Bit: wiimote.HoldC},    // R1
	},
	HasHat: true,
}

var switchProMapping = &DeviceMapping{
	Name: "switch_pro",
	Axes: commonAxes[:4],
	Buttons: []ButtonMapping{
		{Index: 0, Bit: wiimote.HoldA},
		{Index: 1, Bit: wiimote.HoldB},
		{Index: 2, Bit: wiimote.HoldOne},
		{Index: 3, Bit: wiimote.HoldTwo},
		{Index: 4, Bit: wiimote.HoldZ},
		{Index: 5, Bit: wiimote.HoldC},
		{Index: 6, Bit: wiimote.HoldMinus},
		{Index: 7, Bit: wiimote.HoldPlus},
	},
	HasHat: true,
}

var genericMapping = &DeviceMapping{
	Name:    "generic",
	Axes:    commonAxes,
	Buttons: xboxMapping.Buttons,
	HasHat:  true,
}

// Known vendor/product IDs.
type deviceKey struct {
	VendorID  uint16
	ProductID uint16
}

var knownDevices = map[deviceKey]*DeviceMapping{
	// Microsoft Xbox controllers
	{0x045E, 0x028E}: xboxMapping, // Xbox 360
	{0x045E, 0x02FF}: xboxMapping, // Xbox One
	{0x045E, 0x0B12}: xboxMapping, // Xbox Series X|S
	{0x045E, 0x0B13}: xboxMapping, // Xbox Series X|S (wireless)
	// Sony PlayStation controllers
	{0x054C, 0x0CE6}: playstationMapping, // DualSense
	{0x054C, 0x09CC}: playstationMapping, // DualShock 4 v2
	{0x054C, 0x05C4}: playstationMapping, // DualShock 4 v1
	// Nintendo Switch Pro Controller
	{0x057E, 0x2009}: switchProMapping,
}

// GetMapping returns the mapping for a gamepad identified by vendor/product ID.
// Falls back to the generic mapping if no specific mapping is found.
func GetMapping(vendorID, productID uint16) *DeviceMapping {
	key := deviceKey{VendorID: vendorID, ProductID: productID}
	if m, ok := knownDevices[key]; ok {
		return m
	}
	return genericMapping
}
