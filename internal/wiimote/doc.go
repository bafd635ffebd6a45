// Package wiimote turns polled controller samples and the browsing remote's
// native key events into per-remote semantic events such as "pressed_a" or
// "roll_change".
//
// Non-browsing remotes are sampled every PollInterval and checked against the
// events they subscribed to. The browsing remote is driven by the browser's
// own key and mouse events instead, which the Dispatcher receives from a Host.
package wiimote
