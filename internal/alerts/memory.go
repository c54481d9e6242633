package alerts

import (
	"sync"

	"shield-go/internal/model"
	"shield-go/internal/shield"
)

// MemoryRepository keeps alerts in a slice, oldest first.
// This implementation is safe for concurrent use.
type MemoryRepository struct {
	alerts []model.ContentAlert
	mu     sync.Mutex
}

// NewMemoryRepository creates an empty in-memory alert repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) InsertAlert(alert *model.ContentAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts = append(r.alerts, cloneAlert(alert))
	return nil
}

func (r *MemoryRepository) ListAlerts() ([]*model.ContentAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.ContentAlert, 0, len(r.alerts))
	for i := len(r.alerts) - 1; i >= 0; i-- {
		a := cloneAlert(&r.alerts[i])
		out = append(out, &a)
	}
	return out, nil
}

func (r *MemoryRepository) TrimAlerts(capacity int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	excess := len(r.alerts) - capacity
	if excess <= 0 {
		return 0, nil
	}
	r.alerts = append([]model.ContentAlert(nil), r.alerts[excess:]...)
	return excess, nil
}

func (r *MemoryRepository) MarkAlertRead(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.alerts {
		if r.alerts[i].ID == id {
			r.alerts[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) DeleteAllAlerts() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts = nil
	return nil
}

func (r *MemoryRepository) CountUnreadAlerts() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, a := range r.alerts {
		if !a.Read {
			n++
		}
	}
	return n, nil
}

// cloneAlert copies an alert, including the similarity pointer.
func cloneAlert(a *model.ContentAlert) model.ContentAlert {
	c := *a
	if a.Similarity != nil {
		s := *a.Similarity
		c.Similarity = &s
	}
	return c
}

// Compile-time check that MemoryRepository implements shield.AlertRepository interface
var _ shield.AlertRepository = (*MemoryRepository)(nil)
