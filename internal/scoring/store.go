package scoring

// Store is the persistence abstraction for completed runs.
// Implementations can be in-memory or database-backed; the Repository uses
// Store for all reads and writes, and callers of Repository do not need to
// know which Store is used.
type Store interface {
	GetRun(id RunID) (*Run, bool, error)
	SaveRun(r *Run) error
	// ListRunIDs returns the stored run ids, most recent first.
	ListRunIDs() ([]RunID, error)
	Count() (int, error)
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	runs map[RunID]*Run
	ids  []RunID // insertion order, oldest first
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs: make(map[RunID]*Run),
	}
}

// GetRun implements Store.GetRun.
func (s *InMemoryStore) GetRun(id RunID) (*Run, bool, error) {
	r, ok := s.runs[id]
	return r, ok, nil
}

// SaveRun implements Store.SaveRun.
func (s *InMemoryStore) SaveRun(r *Run) error {
	if _, exists := s.runs[r.ID]; !exists {
		s.ids = append(s.ids, r.ID)
	}
	s.runs[r.ID] = r
	return nil
}

// ListRunIDs implements Store.ListRunIDs.
func (s *InMemoryStore) ListRunIDs() ([]RunID, error) {
	ids := make([]RunID, 0, len(s.ids))
	for i := len(s.ids) - 1; i >= 0; i-- {
		ids = append(ids, s.ids[i])
	}
	return ids, nil
}

// Count implements Store.Count.
func (s *InMemoryStore) Count() (int, error) {
	return len(s.runs), nil
}
