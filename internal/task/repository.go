package task

import "context"

type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	// UpdateStatus sets the task's status in a single write and records a
	// statusChange activity entry.
	UpdateStatus(ctx context.Context, id, statusID string) (*Task, error)
	Delete(ctx context.Context, id string) error
}
