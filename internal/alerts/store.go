package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store owns the durable alert collection. Every mutating call must fully
// persist before returning, so a crash between cycles never loses a
// triggering decision or re-fires an already-triggered alert.
//
// Implementations must serialize mutating access across the whole store:
// the engine's post-cycle write replaces the full set of mutated alerts as
// one atomic batch, and interleaved writes would corrupt carry-state.
type Store interface {
	// Create assigns a fresh id, stamps creation time, and persists the
	// alert as active and untriggered. Returns a ValidationError for an
	// unknown type or non-numeric threshold.
	Create(ctx context.Context, req CreateRequest) (*Alert, error)

	// List returns all alerts in insertion order, including inactive and
	// triggered ones.
	List(ctx context.Context) ([]*Alert, error)

	// ListActive returns alerts eligible for evaluation, in insertion
	// order: active and not yet triggered.
	ListActive(ctx context.Context) ([]*Alert, error)

	// Update replaces a single alert record by id.
	Update(ctx context.Context, alert *Alert) error

	// UpdateBatch replaces all given alert records as one atomic write.
	// Either every record persists or none do.
	UpdateBatch(ctx context.Context, alerts []*Alert) error

	// Delete removes an alert. Returns false when no alert with that id
	// exists; the store is left unchanged in that case.
	Delete(ctx context.Context, id string) (bool, error)

	// Clear empties the store.
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process Store used in tests and single-node
// deployments that accept losing state on restart. Insertion order is
// preserved; ids are UUIDs and never reused.
type MemoryStore struct {
	mu     sync.Mutex
	alerts []*Alert
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// SetClock overrides the creation timestamp source. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Create(ctx context.Context, req CreateRequest) (*Alert, error) {
	threshold, err := req.Validate()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	alert := &Alert{
		ID:        uuid.New().String(),
		Type:      req.Type,
		Symbol:    req.Symbol,
		Condition: req.Condition,
		Threshold: threshold,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	s.alerts = append(s.alerts, alert)

	return alert.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, a.Clone())
	}
	return out, nil
}

func (s *MemoryStore) ListActive(ctx context.Context) ([]*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Alert
	for _, a := range s.alerts {
		if a.Active && !a.Triggered {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, alert *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(alert)
}

func (s *MemoryStore) UpdateBatch(ctx context.Context, alerts []*Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Verify every id resolves before touching anything, so a bad batch
	// leaves the store untouched.
	for _, a := range alerts {
		if s.indexLocked(a.ID) < 0 {
			return fmt.Errorf("update batch: alert %s not found", a.ID)
		}
	}
	for _, a := range alerts {
		if err := s.updateLocked(a); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
	return true, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = nil
	return nil
}

func (s *MemoryStore) indexLocked(id string) int {
	for i, a := range s.alerts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) updateLocked(alert *Alert) error {
	i := s.indexLocked(alert.ID)
	if i < 0 {
		return fmt.Errorf("update: alert %s not found", alert.ID)
	}
	s.alerts[i] = alert.Clone()
	return nil
}
