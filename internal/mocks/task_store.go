package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockTaskStore is a testify mock of store.TaskStore.
type MockTaskStore struct {
	mock.Mock
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// ListByOwner mocks store.TaskStore.ListByOwner.
func (m *MockTaskStore) ListByOwner(
	ctx context.Context,
	userID uuid.UUID,
	filter domain.TaskFilter,
) ([]domain.Task, error) {
	args := m.Called(ctx, userID, filter)
	if tasks, ok := args.Get(0).([]domain.Task); ok {
		return tasks, args.Error(1)
	}
	return nil, args.Error(1)
}

// Create mocks store.TaskStore.Create.
func (m *MockTaskStore) Create(
	ctx context.Context,
	userID uuid.UUID,
	title, description string,
) (int64, error) {
	args := m.Called(ctx, userID, title, description)
	return args.Get(0).(int64), args.Error(1)
}

// Update mocks store.TaskStore.Update.
func (m *MockTaskStore) Update(
	ctx context.Context,
	userID uuid.UUID,
	taskID int64,
	patch domain.TaskPatch,
) (int64, error) {
	args := m.Called(ctx, userID, taskID, patch)
	return args.Get(0).(int64), args.Error(1)
}

// Delete mocks store.TaskStore.Delete.
func (m *MockTaskStore) Delete(ctx context.Context, userID uuid.UUID, taskID int64) (int64, error) {
	args := m.Called(ctx, userID, taskID)
	return args.Get(0).(int64), args.Error(1)
}
