package scoring

import (
	"errors"
	"sync"
)

// Repository defines the concurrency-safe contract for recording and reading
// completed scoring runs.
type Repository interface {
	// SaveRun persists a completed run.
	SaveRun(r *Run) error

	// GetRun returns the run with the given id, or ErrRunNotFound.
	GetRun(id RunID) (*Run, error)

	// ListRunIDs returns the stored run ids, most recent first.
	ListRunIDs() ([]RunID, error)

	// StoredRunCount returns the number of stored runs. Used for metrics.
	StoredRunCount() (int, error)
}

// ErrRunNotFound is returned when a requested run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

// RunRepository is a concurrency-safe implementation of Repository.
// It uses a Store for persistence; by default that is an InMemoryStore.
type RunRepository struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *RunRepository {
	return NewRepositoryWithStore(NewInMemoryStore())
}

// NewRepositoryWithStore constructs a repository that uses the given Store.
// Useful for testing or for plugging in a different persistence backend.
func NewRepositoryWithStore(store Store) *RunRepository {
	return &RunRepository{store: store}
}

// SaveRun implements Repository.SaveRun.
func (r *RunRepository) SaveRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.store.SaveRun(run)
}

// GetRun implements Repository.GetRun.
func (r *RunRepository) GetRun(id RunID) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok, err := r.store.GetRun(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// ListRunIDs implements Repository.ListRunIDs.
func (r *RunRepository) ListRunIDs() ([]RunID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.store.ListRunIDs()
}

// StoredRunCount implements Repository.StoredRunCount.
func (r *RunRepository) StoredRunCount() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.store.Count()
}
