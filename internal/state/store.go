package state

import (
	"sync"
	"time"
)

// Listener receives every new snapshot
type Listener func(ClientState)

type subscription struct {
	id int
	fn Listener
}

// Store owns the session's current ClientState and pushes every change to its
// subscribers. Listeners run synchronously in subscription order and must not
// call Update themselves.
type Store struct {
	mu          sync.RWMutex
	current     ClientState
	version     uint64
	lastUpdated time.Time
	subs        []subscription
	nextSubID   int

	notifyMu sync.Mutex // Serializes Update end to end
}

// NewStore creates a store holding the initial empty state
func NewStore() *Store {
	return &Store{
		current:     NewClientState(),
		lastUpdated: time.Now(),
	}
}

// Snapshot returns the current state
func (s *Store) Snapshot() ClientState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// Version returns the number of updates applied so far
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// Update replaces the current snapshot with fn(current) and notifies subscribers
func (s *Store) Update(fn func(ClientState) ClientState) ClientState {
	// notifyMu spans apply and notify so listeners see updates in order,
	// while mu stays free for listeners that read the store
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next := fn(s.current)
	s.current = next
	s.version++
	s.lastUpdated = time.Now()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(next)
	}
	return next
}

// Subscribe registers fn for every future snapshot and returns a function that
// removes it. fn is not called with the current snapshot.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *Store) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (s *Store) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.subs)
}
