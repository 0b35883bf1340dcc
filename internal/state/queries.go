package state

import "github.com/yourusername/espinput-cli/internal/models"

// FindRecord returns the record with the given ID from the current snapshot
func (s *Store) FindRecord(id int) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := models.FindRecord(s.current.Items, id)
	if idx < 0 {
		return models.Record{}, false
	}
	return s.current.Items[idx], true
}

// Len returns the number of records in the current snapshot
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.current.Items)
}

// IDs returns the record IDs in list order
func (s *Store) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, len(s.current.Items))
	for i, rec := range s.current.Items {
		ids[i] = rec.ID
	}
	return ids
}

// Summary returns a summary of the current state for display/debugging
func (s *Store) Summary() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"version":        s.version,
		"lastUpdated":    s.lastUpdated,
		"itemCount":      len(s.current.Items),
		"isLoading":      s.current.IsLoading,
		"errorMessage":   s.current.ErrorMessage,
		"successMessage": s.current.SuccessMessage,
		"subscribers":    len(s.subs),
	}
}
