package device

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/soar/wiiremote/internal/wiimote"
)

// Channels is the number of remote channels the console reports.
const Channels = wiimote.MaxRemotes

// ErrChannel is returned for channels outside 0..Channels-1.
var ErrChannel = errors.New("device: channel out of range")

// Store holds the latest status reported for each channel. It implements
// wiimote.StatusSource.
type Store struct {
	mu     sync.RWMutex
	status [Channels]wiimote.Status
	known  [Channels]bool
}

func NewStore() *Store {
	return &Store{}
}

// Update records the latest sample for channel.
func (st *Store) Update(channel int, s wiimote.Status) error {
	if channel < 0 || channel >= Channels {
		return errors.Wrapf(ErrChannel, "channel %d", channel)
	}
	st.mu.Lock()
	st.status[channel] = s
	st.known[channel] = true
	st.mu.Unlock()
	return nil
}

// Forget drops whatever was reported for channel, making it unavailable.
func (st *Store) Forget(channel int) {
	if channel < 0 || channel >= Channels {
		return
	}
	st.mu.Lock()
	st.status[channel] = wiimote.Status{}
	st.known[channel] = false
	st.mu.Unlock()
}

// Status returns the latest sample for channel.
func (st *Store) Status(channel int) (wiimote.Status, bool) {
	if channel < 0 || channel >= Channels {
		return wiimote.Status{}, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.status[channel], st.known[channel]
}

// Snapshot returns the reported channels and their samples.
func (st *Store) Snapshot() map[int]wiimote.Status {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make(map[int]wiimote.Status)
	for ch := range st.status {
		if st.known[ch] {
			out[ch] = st.status[ch]
		}
	}
	return out
}
