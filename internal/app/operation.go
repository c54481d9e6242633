package app

import "time"

// Operation tracks the CLI command being run. Its ID tags every log line
// written during the command.
type Operation struct {
	ID        string
	Name      string
	Args      string
	StartedAt time.Time
	Status    string // "running", "success" or "error"
}

// NewOperation creates a running operation started at now.
func NewOperation(name, args string, now time.Time) *Operation {
	return &Operation{
		ID:        now.UTC().Format("20060102T150405Z"),
		Name:      name,
		Args:      args,
		StartedAt: now,
		Status:    "running",
	}
}

// Finish records the outcome of the operation and returns how long it ran.
// Only the first call has an effect.
func (op *Operation) Finish(err error, now time.Time) time.Duration {
	if op.Status != "running" {
		return 0
	}
	op.Status = "success"
	if err != nil {
		op.Status = "error"
	}
	return now.Sub(op.StartedAt)
}
