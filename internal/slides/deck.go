// Package slides tracks which slide of the presentation is showing.
package slides

import "sync"

// Deck is the presentation position. Moves past either end are ignored.
type Deck struct {
	mu       sync.Mutex
	index    int
	count    int
	watchers map[int]chan int
	nextID   int
}

// NewDeck creates a deck of count slides positioned on the first one.
func NewDeck(count int) *Deck {
	if count < 1 {
		count = 1
	}
	return &Deck{count: count, watchers: make(map[int]chan int)}
}

// Index returns the current slide, starting at 0.
func (d *Deck) Index() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.index
}

// Count returns the number of slides.
func (d *Deck) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// SetCount changes the number of slides, pulling the position back inside the
// deck if needed.
func (d *Deck) SetCount(count int) {
	if count < 1 {
		count = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count = count
	if d.index >= count {
		d.moveLocked(count - 1)
	}
}

// Next advances one slide. It reports whether the position changed.
func (d *Deck) Next() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moveLocked(d.index + 1)
}

// Prev goes back one slide.
func (d *Deck) Prev() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moveLocked(d.index - 1)
}

// Go jumps to slide i.
func (d *Deck) Go(i int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moveLocked(i)
}

func (d *Deck) moveLocked(i int) bool {
	if i < 0 || i >= d.count || i == d.index {
		return false
	}
	d.index = i
	for _, ch := range d.watchers {
		// Keep only the newest position for slow watchers.
		select {
		case <-ch:
		default:
		}
		ch <- i
	}
	return true
}

// Watch returns a channel that receives the position after every change, and
// a function to stop watching. A watcher that falls behind only sees the
// latest position.
func (d *Deck) Watch() (<-chan int, func()) {
	ch := make(chan int, 1)

	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.watchers[id] = ch
	d.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.watchers, id)
			d.mu.Unlock()
		})
	}
}
