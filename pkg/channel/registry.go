package channel

import (
	"errors"
	"sort"
	"sync"
)

// ErrExists is returned when a channel with the same key is already registered.
var ErrExists = errors.New("channel already exists")

// Registry is a concurrent key -> Channel map holding at most one channel
// per key. Add, Get, and Remove are safe to call from multiple goroutines;
// the channels themselves are not synchronized.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]*Channel),
	}
}

// Add registers ch under its key.
func (r *Registry) Add(ch *Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[ch.Key()]; exists {
		return ErrExists
	}
	r.channels[ch.Key()] = ch
	return nil
}

// Get returns the channel registered under key.
func (r *Registry) Get(key string) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[key]
	return ch, ok
}

// Remove unregisters the channel under key and clears its buffer.
func (r *Registry) Remove(key string) bool {
	r.mu.Lock()
	ch, ok := r.channels[key]
	if ok {
		delete(r.channels, key)
	}
	r.mu.Unlock()

	if ok {
		ch.Clear()
	}
	return ok
}

// Clear removes and clears every channel, returning the removed keys.
func (r *Registry) Clear() []string {
	r.mu.Lock()
	old := r.channels
	r.channels = make(map[string]*Channel)
	r.mu.Unlock()

	keys := make([]string, 0, len(old))
	for key, ch := range old {
		ch.Clear()
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.channels))
	for key := range r.channels {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.channels)
}
