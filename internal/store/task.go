package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
)

// TaskStore defines the interface for task persistence.
//
// Every method is scoped to userID. Update and Delete report the number of
// rows affected, which is zero when the task is missing or owned by someone
// else; they do not return ErrTaskNotFound themselves.
type TaskStore interface {
	// ListByOwner returns the user's tasks matching filter, most recently
	// updated first (ties broken by descending ID). Never returns nil on success.
	ListByOwner(ctx context.Context, userID uuid.UUID, filter domain.TaskFilter) ([]domain.Task, error)

	// Create inserts a pending task and returns its store-assigned ID.
	Create(ctx context.Context, userID uuid.UUID, title, description string) (int64, error)

	// Update applies patch to the task and bumps its updated_at.
	Update(ctx context.Context, userID uuid.UUID, taskID int64, patch domain.TaskPatch) (int64, error)

	// Delete removes the task.
	Delete(ctx context.Context, userID uuid.UUID, taskID int64) (int64, error)
}
