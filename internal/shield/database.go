package shield

import "shield-go/internal/model"

// Database stores monitoring targets and the bounded scan session history.
type Database interface {
	// Target operations

	// CreateTarget inserts a new target. Names are unique.
	CreateTarget(target *model.MonitoringTarget) error

	// FindTargetByID returns the target with the given id, or nil.
	FindTargetByID(id string) (*model.MonitoringTarget, error)

	// FindTargetByName returns the target with the given name, or nil.
	FindTargetByName(name string) (*model.MonitoringTarget, error)

	// ListTargets returns all targets ordered by name.
	ListTargets() ([]*model.MonitoringTarget, error)

	// UpdateTarget replaces the mutable fields of an existing target.
	UpdateTarget(target *model.MonitoringTarget) error

	// DeleteTarget removes a target.
	DeleteTarget(id string) error

	// Session history

	// AppendSession records a finished session and drops the oldest entries
	// so that at most keep sessions remain.
	AppendSession(session *model.MonitoringSession, keep int) error

	// ListSessions returns up to limit sessions, newest first.
	ListSessions(limit int) ([]*model.MonitoringSession, error)

	// Close closes the database connection.
	Close() error
}
