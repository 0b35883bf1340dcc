package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/espinput-cli/internal/client"
	"github.com/yourusername/espinput-cli/internal/logging"
	"github.com/yourusername/espinput-cli/internal/models"
	"github.com/yourusername/espinput-cli/internal/state"
)

const (
	MsgCreated = "Input created successfully"
	MsgUpdated = "Input updated successfully"
	MsgDeleted = "Input deleted successfully"

	// DefaultMessageTTL is how long a status message stays visible
	DefaultMessageTTL = 3 * time.Second
)

// Transport is the device API the Synchronizer drives
type Transport interface {
	Create(ctx context.Context, message string) (models.Record, error)
	List(ctx context.Context) ([]models.Record, error)
	Get(ctx context.Context, id int) (models.Record, error)
	Update(ctx context.Context, id int, message string) (models.Record, error)
	Delete(ctx context.Context, id int) (string, error)
}

// fold is the state transition applied when a call succeeds
type fold func(state.ClientState) state.ClientState

// Synchronizer turns each user intent into exactly one transport call and
// folds the result into the store. Results are folded in completion order.
type Synchronizer struct {
	transport  Transport
	store      *state.Store
	messageTTL time.Duration
	staleGuard bool

	wg sync.WaitGroup

	mu        sync.Mutex
	tokens    map[int]uint64 // Newest outstanding token per record ID
	nextToken uint64
	msgGen    uint64
	timer     *time.Timer
}

// Option configures a Synchronizer
type Option func(*Synchronizer)

// WithMessageTTL clears status messages d after they are set. Zero disables it.
func WithMessageTTL(d time.Duration) Option {
	return func(s *Synchronizer) {
		s.messageTTL = d
	}
}

// WithStaleGuard discards update/delete completions that were overtaken by a
// newer update/delete of the same record
func WithStaleGuard() Option {
	return func(s *Synchronizer) {
		s.staleGuard = true
	}
}

// New creates a Synchronizer over transport and store
func New(transport Transport, store *state.Store, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		transport: transport,
		store:     store,
		tokens:    make(map[int]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the observed state container
func (s *Synchronizer) Store() *state.Store {
	return s.store
}

// State returns the current snapshot
func (s *Synchronizer) State() state.ClientState {
	return s.store.Snapshot()
}

// CreateRecord posts message and appends the device's record.
// A blank message is ignored without touching state.
func (s *Synchronizer) CreateRecord(ctx context.Context, message string) <-chan struct{} {
	if models.IsBlank(message) {
		return closed()
	}

	return s.run(ctx, client.OpCreate, noToken, func(ctx context.Context) (fold, error) {
		rec, err := s.transport.Create(ctx, message)
		if err != nil {
			return nil, err
		}
		return func(cs state.ClientState) state.ClientState {
			return cs.FinishAppend(rec, MsgCreated)
		}, nil
	})
}

// LoadAll replaces the list with the device's list. On failure the stale
// list stays visible.
func (s *Synchronizer) LoadAll(ctx context.Context) <-chan struct{} {
	return s.run(ctx, client.OpList, noToken, func(ctx context.Context) (fold, error) {
		items, err := s.transport.List(ctx)
		if err != nil {
			return nil, err
		}
		return func(cs state.ClientState) state.ClientState {
			return cs.FinishLoad(items)
		}, nil
	})
}

// UpdateRecord replaces the message of record id.
// A blank message is ignored without touching state.
func (s *Synchronizer) UpdateRecord(ctx context.Context, id int, message string) <-chan struct{} {
	if models.IsBlank(message) {
		return closed()
	}

	return s.run(ctx, client.OpUpdate, id, func(ctx context.Context) (fold, error) {
		rec, err := s.transport.Update(ctx, id, message)
		if err != nil {
			return nil, err
		}
		return func(cs state.ClientState) state.ClientState {
			return cs.FinishReplace(id, rec, MsgUpdated)
		}, nil
	})
}

// DeleteRecord removes record id on the device and then locally
func (s *Synchronizer) DeleteRecord(ctx context.Context, id int) <-chan struct{} {
	return s.run(ctx, client.OpDelete, id, func(ctx context.Context) (fold, error) {
		confirmation, err := s.transport.Delete(ctx, id)
		if err != nil {
			return nil, err
		}
		logging.Debug().Int("id", id).Str("confirmation", confirmation).Msg("input deleted")
		return func(cs state.ClientState) state.ClientState {
			return cs.FinishRemove(id, MsgDeleted)
		}, nil
	})
}

// ClearMessages clears both status messages
func (s *Synchronizer) ClearMessages() {
	s.mu.Lock()
	s.msgGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.store.Update(state.ClientState.ClearMessages)
}

// Wait blocks until every issued intent has been folded
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

// Close stops any pending message clear
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// noToken marks calls that are not subject to the stale guard
const noToken = -1

// run applies the start fold, issues call asynchronously and folds its result.
// The returned channel is closed once the result has been folded.
func (s *Synchronizer) run(ctx context.Context, op string, id int, call func(context.Context) (fold, error)) <-chan struct{} {
	done := make(chan struct{})
	token := s.acquire(id)

	logging.Debug().Str("op", op).Int("id", id).Msg("intent issued")
	s.store.Update(state.ClientState.StartLoading)

	s.wg.Add(1)
	results := client.Async(ctx, call)

	go func() {
		defer s.wg.Done()
		defer close(done)

		res := <-results

		if !s.release(id, token) {
			logging.Info().Str("op", op).Int("id", id).Msg("discarding stale completion")
			s.store.Update(state.ClientState.FinishDiscarded)
			return
		}

		if !res.Ok() {
			logging.Warn().Str("op", op).Int("id", id).Str("reason", res.Reason()).Msg("intent failed")
			next := s.store.Update(func(cs state.ClientState) state.ClientState {
				return cs.Fail(res.Reason())
			})
			s.scheduleClear(next)
			return
		}

		next := s.store.Update(res.Value)
		s.scheduleClear(next)
	}()

	return done
}

// acquire hands out a token for id when the stale guard is on
func (s *Synchronizer) acquire(id int) uint64 {
	if !s.staleGuard || id == noToken {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextToken++
	s.tokens[id] = s.nextToken
	return s.nextToken
}

// release reports whether token is still the newest for id
func (s *Synchronizer) release(id int, token uint64) bool {
	if token == 0 {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens[id] != token {
		return false
	}
	delete(s.tokens, id)
	return true
}

// scheduleClear arranges for messages in cs to be cleared after the TTL,
// unless another message is set first
func (s *Synchronizer) scheduleClear(cs state.ClientState) {
	if s.messageTTL <= 0 || (!cs.HasError() && !cs.HasSuccess()) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.msgGen++
	gen := s.msgGen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.messageTTL, func() {
		s.mu.Lock()
		current := s.msgGen == gen
		s.mu.Unlock()

		if current {
			s.store.Update(state.ClientState.ClearMessages)
		}
	})
}

func closed() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
