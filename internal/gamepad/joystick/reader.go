// Package joystick feeds desktop gamepads read through SDL3 into a device
// store as emulated remotes.
package joystick

import (
	"context"
	"log"
	"runtime"

	"github.com/jupiterrider/purego-sdl3/sdl"
	"github.com/soar/wiiremote/internal/device"
	"github.com/soar/wiiremote/internal/gamepad"
)

const pollDelayNS = 16_000_000 // ~60Hz

type joystickInfo struct {
	joystick *sdl.Joystick
	mapping  *gamepad.DeviceMapping
	name     string
	id       sdl.JoystickID
	channel  int
}

// sdlJoystick adapts an SDL joystick to gamepad.Joystick.
type sdlJoystick struct {
	js *sdl.Joystick
}

func (j sdlJoystick) Axis(index int32) int16  { return sdl.GetJoystickAxis(j.js, index) }
func (j sdlJoystick) Button(index int32) bool { return sdl.GetJoystickButton(j.js, index) }
func (j sdlJoystick) NumButtons() int32       { return sdl.GetNumJoystickButtons(j.js) }

func (j sdlJoystick) Hat() (uint8, bool) {
	if sdl.GetNumJoystickHats(j.js) == 0 {
		return 0, false
	}
	return sdl.GetJoystickHat(j.js, 0), true
}

// Reader polls connected gamepads and writes their emulated status to the
// store.
type Reader struct {
	store     *device.Store
	browsing  int // channel reported as browsing, -1 for none
	joysticks map[sdl.JoystickID]*joystickInfo
	slots     gamepad.Slots

	// AfterInit, if set, runs once SDL is initialized.
	AfterInit func()
}

// NewReader creates a Reader writing into store. browsingChannel marks one
// channel as the browsing remote; pass -1 for none.
func NewReader(store *device.Store, browsingChannel int) *Reader {
	return &Reader{
		store:     store,
		browsing:  browsingChannel,
		joysticks: make(map[sdl.JoystickID]*joystickInfo),
	}
}

// Run initializes SDL and runs the event+polling loop on the current thread
// until ctx is done.
func (r *Reader) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if !sdl.Init(sdl.InitJoystick) {
		log.Printf("SDL Init failed, gamepad emulation disabled: %s", sdl.GetError())
		return
	}
	defer sdl.Quit()

	log.Println("SDL3 Joystick subsystem initialized")
	if r.AfterInit != nil {
		r.AfterInit()
	}

	// Check for already-connected joysticks
	for _, id := range sdl.GetJoysticks() {
		r.openJoystick(id)
	}

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		default:
		}

		r.processEvents()
		r.pollState()
		sdl.DelayNS(pollDelayNS)
	}
}

func (r *Reader) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickAdded:
			r.openJoystick(event.JDevice().Which)
		case sdl.EventJoystickRemoved:
			r.removeJoystick(event.JDevice().Which)
		}
	}
}

func (r *Reader) openJoystick(instanceID sdl.JoystickID) {
	if _, exists := r.joysticks[instanceID]; exists {
		return
	}

	js := sdl.OpenJoystick(instanceID)
	if js == nil {
		log.Printf("Failed to open joystick %d: %s", instanceID, sdl.GetError())
		return
	}

	jsID := sdl.GetJoystickID(js)
	ch, ok := r.slots.Claim(uint32(jsID))
	if !ok {
		log.Printf("Ignoring joystick %d: all %d remotes in use", jsID, device.Channels)
		sdl.CloseJoystick(js)
		return
	}

	vendorID := sdl.GetJoystickVendor(js)
	productID := sdl.GetJoystickProduct(js)
	name := sdl.GetJoystickName(js)
	mapping := gamepad.GetMapping(vendorID, productID)

	r.joysticks[jsID] = &joystickInfo{
		joystick: js,
		mapping:  mapping,
		name:     name,
		id:       jsID,
		channel:  ch,
	}

	log.Printf("Joystick connected: %s (VID=%04X PID=%04X) mapping=%s as remote %d",
		name, vendorID, productID, mapping.Name, ch+1)
}

func (r *Reader) removeJoystick(instanceID sdl.JoystickID) {
	info, exists := r.joysticks[instanceID]
	if !exists {
		return
	}

	log.Printf("Joystick disconnected: %s (remote %d)", info.name, info.channel+1)
	sdl.CloseJoystick(info.joystick)
	delete(r.joysticks, instanceID)
	r.slots.Release(uint32(instanceID))
	r.store.Forget(info.channel)
}

func (r *Reader) closeAll() {
	for id, info := range r.joysticks {
		sdl.CloseJoystick(info.joystick)
		r.slots.Release(uint32(id))
		r.store.Forget(info.channel)
		delete(r.joysticks, id)
	}
}

func (r *Reader) pollState() {
	for _, info := range r.joysticks {
		if !sdl.JoystickConnected(info.joystick) {
			r.store.Forget(info.channel)
			continue
		}
		s := gamepad.ReadStatus(info.mapping, sdlJoystick{info.joystick})
		s.Browsing = info.channel == r.browsing
		if err := r.store.Update(info.channel, s); err != nil {
			log.Printf("Joystick %s: %v", info.name, err)
		}
	}
}
