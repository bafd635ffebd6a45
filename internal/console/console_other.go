//go:build !windows

package console

// Interactive always reports true outside Windows.
func Interactive() bool {
	return true
}

// NotifyInterrupt does nothing outside Windows; os/signal delivers
// interrupts there.
func NotifyInterrupt(ch chan struct{}) (reregister func()) {
	return func() {}
}
