// Package dispatch serializes turns per user while letting distinct users
// proceed in parallel.
package dispatch

import "sync"

// Dispatcher hands out one mutual-exclusion unit per user ID, created
// lazily and retained for the life of the process. The per-user cost is one
// mutex, so unbounded growth is not a practical concern here.
type Dispatcher struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{locks: make(map[string]*sync.Mutex)}
}

func (d *Dispatcher) lockFor(userID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		d.locks[userID] = l
	}
	return l
}

// WithTurn runs fn with exclusive access to userID's state. Turns for the
// same user never overlap; turns for different users run fully in parallel.
// The lock is released even when fn fails midway.
func (d *Dispatcher) WithTurn(userID string, fn func() error) error {
	l := d.lockFor(userID)
	l.Lock()
	defer l.Unlock()
	return fn()
}
