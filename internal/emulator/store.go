package emulator

import (
	"errors"
	"sync"
	"time"

	"github.com/yourusername/espinput-cli/internal/models"
)

// TimestampFormat is how the emulator renders record timestamps
const TimestampFormat = "2006-01-02 15:04:05"

var (
	ErrNotFound     = errors.New("input not found")
	ErrBlankMessage = errors.New("message is required")
)

// Store is the emulator's in-memory input table
type Store struct {
	mu     sync.RWMutex
	inputs []models.Record
	nextID int
	now    func() time.Time
}

// NewStore creates an empty store. IDs start at 1.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		inputs: make([]models.Record, 0),
		nextID: 1,
		now:    now,
	}
}

func (s *Store) timestamp() string {
	return s.now().Format(TimestampFormat)
}

// Create appends a new input
func (s *Store) Create(message string) (models.Record, error) {
	if models.IsBlank(message) {
		return models.Record{}, ErrBlankMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := models.Record{
		ID:        s.nextID,
		Message:   message,
		Timestamp: s.timestamp(),
	}
	s.nextID++
	s.inputs = append(s.inputs, rec)
	return rec, nil
}

// List returns a copy of all inputs in insertion order
func (s *Store) List() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Record, len(s.inputs))
	copy(result, s.inputs)
	return result
}

// Get returns a single input
func (s *Store) Get(id int) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := models.FindRecord(s.inputs, id)
	if idx < 0 {
		return models.Record{}, ErrNotFound
	}
	return s.inputs[idx], nil
}

// Update replaces an input's message and refreshes its timestamp
func (s *Store) Update(id int, message string) (models.Record, error) {
	if models.IsBlank(message) {
		return models.Record{}, ErrBlankMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := models.FindRecord(s.inputs, id)
	if idx < 0 {
		return models.Record{}, ErrNotFound
	}

	s.inputs[idx].Message = message
	s.inputs[idx].Timestamp = s.timestamp()
	return s.inputs[idx], nil
}

// Delete removes an input
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := models.FindRecord(s.inputs, id)
	if idx < 0 {
		return ErrNotFound
	}

	s.inputs = append(s.inputs[:idx], s.inputs[idx+1:]...)
	return nil
}

// Len returns the number of stored inputs
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.inputs)
}
