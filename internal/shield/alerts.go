package shield

import (
	"fmt"
	"sync"

	"shield-go/internal/model"
)

// DefaultAlertCapacity is the number of alerts kept before the oldest are evicted.
const DefaultAlertCapacity = 100

// AlertRepository is the storage backend behind the AlertStore.
// Implementations keep insertion order; ListAlerts returns newest first.
type AlertRepository interface {
	// InsertAlert stores a new alert as the newest entry.
	InsertAlert(alert *model.ContentAlert) error

	// ListAlerts returns all alerts, newest first.
	ListAlerts() ([]*model.ContentAlert, error)

	// TrimAlerts deletes the oldest alerts so that at most capacity remain.
	// Returns the number of alerts deleted.
	TrimAlerts(capacity int) (int, error)

	// MarkAlertRead sets the read flag. Returns false if id is unknown.
	MarkAlertRead(id string) (bool, error)

	// DeleteAllAlerts removes every alert.
	DeleteAllAlerts() error

	// CountUnreadAlerts returns the number of alerts with read = false.
	CountUnreadAlerts() (int, error)
}

// AlertStore is the bounded, most-recent-first log of detection and status events.
type AlertStore struct {
	repo     AlertRepository
	capacity int
	clock    Clock
	idgen    IDGenerator
	mu       sync.Mutex
}

// NewAlertStore creates an AlertStore. A non-positive capacity uses DefaultAlertCapacity.
func NewAlertStore(repo AlertRepository, capacity int, clock Clock, idgen IDGenerator) *AlertStore {
	if capacity <= 0 {
		capacity = DefaultAlertCapacity
	}
	return &AlertStore{
		repo:     repo,
		capacity: capacity,
		clock:    clock,
		idgen:    idgen,
	}
}

// Capacity returns the maximum number of alerts retained.
func (s *AlertStore) Capacity() int {
	return s.capacity
}

// Save inserts alert at the head of the log and evicts the oldest entries
// beyond capacity. Missing ids and timestamps are filled in.
func (s *AlertStore) Save(alert *model.ContentAlert) error {
	if alert.ID == "" {
		alert.ID = s.idgen.New()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = s.clock.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.InsertAlert(alert); err != nil {
		return &PersistenceError{Op: "alert", Key: alert.ID, Err: err}
	}
	evicted, err := s.repo.TrimAlerts(s.capacity)
	if err != nil {
		return &PersistenceError{Op: "alert eviction", Key: alert.ID, Err: err}
	}
	if evicted > 0 {
		alertsEvictedTotal.Add(float64(evicted))
	}
	return nil
}

// List returns alerts newest first, optionally only the unread ones.
func (s *AlertStore) List(unreadOnly bool) ([]*model.ContentAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts, err := s.repo.ListAlerts()
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	if !unreadOnly {
		return alerts, nil
	}

	unread := make([]*model.ContentAlert, 0, len(alerts))
	for _, a := range alerts {
		if !a.Read {
			unread = append(unread, a)
		}
	}
	return unread, nil
}

// MarkRead flags an alert as read.
func (s *AlertStore) MarkRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.repo.MarkAlertRead(id)
	if err != nil {
		return &PersistenceError{Op: "alert", Key: id, Err: err}
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	return nil
}

// ClearAll removes every alert.
func (s *AlertStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteAllAlerts(); err != nil {
		return &PersistenceError{Op: "alerts", Key: "*", Err: err}
	}
	return nil
}

// UnreadCount returns the number of unread alerts.
func (s *AlertStore) UnreadCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.repo.CountUnreadAlerts()
	if err != nil {
		return 0, fmt.Errorf("counting unread alerts: %w", err)
	}
	return n, nil
}
