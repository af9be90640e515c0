package service

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/redact"
	"github.com/phrazzld/todo-api/internal/store"
	"golang.org/x/sync/singleflight"
)

// TaskCache is the per-user listing cache consulted by TaskService.
// *cache.TaskListCache implements it.
type TaskCache interface {
	Get(ctx context.Context, userID uuid.UUID, filter domain.TaskFilter) ([]domain.Task, bool, error)
	Put(ctx context.Context, userID uuid.UUID, filter domain.TaskFilter, tasks []domain.Task) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// CreateTaskInput carries the fields accepted when creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
}

// TaskService defines the task use cases. Every method is scoped to userID.
type TaskService interface {
	// ListTasks returns the user's tasks matching filter, most recently
	// updated first. The result is never nil.
	ListTasks(ctx context.Context, userID uuid.UUID, filter domain.TaskFilter) ([]domain.Task, error)

	// CreateTask stores a new pending task and returns its ID.
	CreateTask(ctx context.Context, userID uuid.UUID, in CreateTaskInput) (int64, error)

	// UpdateTask applies the fields present in patch.
	// Returns ErrTaskNotFound when the task is missing or owned by someone else.
	UpdateTask(ctx context.Context, userID uuid.UUID, taskID int64, patch domain.TaskPatch) error

	// DeleteTask removes the task.
	// Returns ErrTaskNotFound when the task is missing or owned by someone else.
	DeleteTask(ctx context.Context, userID uuid.UUID, taskID int64) error
}

// TaskServiceOptions tunes the read path.
type TaskServiceOptions struct {
	// SingleFlight collapses concurrent misses for the same user and filter
	// into one store query.
	SingleFlight bool
}

// listFlightTimeout bounds a shared store read. The flight outlives the
// request that started it, so it cannot borrow that request's deadline.
const listFlightTimeout = 10 * time.Second

type taskServiceImpl struct {
	tasks  store.TaskStore
	cache  TaskCache
	opts   TaskServiceOptions
	group  singleflight.Group
	logger *slog.Logger

	// writes counts committed writes per user stripe. A read that saw the
	// counter move while it was querying must not leave its result cached.
	writes [64]atomic.Uint64
}

var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a TaskService reading through cache.
func NewTaskService(
	tasks store.TaskStore,
	cache TaskCache,
	opts TaskServiceOptions,
	logger *slog.Logger,
) (TaskService, error) {
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if cache == nil {
		return nil, domain.NewValidationError("cache", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		tasks:  tasks,
		cache:  cache,
		opts:   opts,
		logger: logger.With(slog.String("component", "task_service")),
	}, nil
}

// ListTasks implements TaskService.ListTasks.
func (s *taskServiceImpl) ListTasks(
	ctx context.Context,
	userID uuid.UUID,
	filter domain.TaskFilter,
) ([]domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cached, ok, err := s.cache.Get(ctx, userID, filter)
	switch {
	case err != nil:
		log.Warn("task cache read failed, falling back to store",
			slog.String("user_id", userID.String()),
			slog.String("filter", filter.String()),
			slog.String("error", redact.Error(err)))
	case ok:
		log.Debug("task list served from cache",
			slog.String("user_id", userID.String()),
			slog.String("filter", filter.String()),
			slog.Int("count", len(cached)))
		return cached, nil
	}

	if !s.opts.SingleFlight {
		return s.loadAndFill(ctx, userID, filter)
	}

	ch := s.group.DoChan(flightKey(userID, filter), func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listFlightTimeout)
		defer cancel()
		return s.loadAndFill(flightCtx, userID, filter)
	})

	select {
	case <-ctx.Done():
		// The flight keeps running for any other waiters.
		return nil, NewTaskServiceError("list_tasks", "request cancelled", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		tasks := res.Val.([]domain.Task)
		if res.Shared {
			// Callers of one flight must not alias each other's slice.
			tasks = slices.Clone(tasks)
		}
		return tasks, nil
	}
}

func flightKey(userID uuid.UUID, filter domain.TaskFilter) string {
	return userID.String() + ":" + filter.String()
}

func (s *taskServiceImpl) writeCounter(userID uuid.UUID) *atomic.Uint64 {
	return &s.writes[int(userID[15])%len(s.writes)]
}

// loadAndFill reads the listing from the store and caches it unless a write
// by the same user committed meanwhile. A failed cache write is logged only.
func (s *taskServiceImpl) loadAndFill(
	ctx context.Context,
	userID uuid.UUID,
	filter domain.TaskFilter,
) ([]domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	counter := s.writeCounter(userID)
	seen := counter.Load()

	tasks, err := s.tasks.ListByOwner(ctx, userID, filter)
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("user_id", userID.String()),
			slog.String("filter", filter.String()),
			slog.String("error", redact.Error(err)))
		return nil, NewTaskServiceError("list_tasks", "failed to read tasks", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}

	if counter.Load() != seen {
		log.Debug("write landed during task list read, not caching",
			slog.String("user_id", userID.String()),
			slog.String("filter", filter.String()))
		return tasks, nil
	}
	if err := s.cache.Put(ctx, userID, filter, tasks); err != nil {
		log.Warn("failed to populate task cache",
			slog.String("user_id", userID.String()),
			slog.String("filter", filter.String()),
			slog.String("error", redact.Error(err)))
	}
	// A write may have invalidated between the check and the Put.
	if counter.Load() != seen {
		s.dropCached(ctx, userID, "list_tasks")
	}

	return tasks, nil
}

// CreateTask implements TaskService.CreateTask.
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	userID uuid.UUID,
	in CreateTaskInput,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := domain.ValidateNewTask(userID, in.Title); err != nil {
		log.Debug("rejected task creation", slog.String("error", err.Error()))
		return 0, err
	}

	id, err := s.tasks.Create(ctx, userID, in.Title, in.Description)
	if err != nil {
		log.Error("failed to create task",
			slog.String("user_id", userID.String()),
			slog.String("error", redact.Error(err)))
		return 0, NewTaskServiceError("create_task", "failed to save task", err)
	}

	s.invalidate(ctx, userID, "create_task")

	log.Info("task created",
		slog.String("user_id", userID.String()),
		slog.Int64("task_id", id))
	return id, nil
}

// UpdateTask implements TaskService.UpdateTask.
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	userID uuid.UUID,
	taskID int64,
	patch domain.TaskPatch,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := patch.Validate(); err != nil {
		log.Debug("rejected task update",
			slog.Int64("task_id", taskID),
			slog.String("error", err.Error()))
		return err
	}

	rows, err := s.tasks.Update(ctx, userID, taskID, patch)
	if err != nil {
		log.Error("failed to update task",
			slog.String("user_id", userID.String()),
			slog.Int64("task_id", taskID),
			slog.String("error", redact.Error(err)))
		return NewTaskServiceError("update_task", "failed to update task", err)
	}
	if rows == 0 {
		log.Debug("task to update not found",
			slog.String("user_id", userID.String()),
			slog.Int64("task_id", taskID))
		return ErrTaskNotFound
	}

	s.invalidate(ctx, userID, "update_task")

	log.Info("task updated",
		slog.String("user_id", userID.String()),
		slog.Int64("task_id", taskID))
	return nil
}

// DeleteTask implements TaskService.DeleteTask.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, userID uuid.UUID, taskID int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.tasks.Delete(ctx, userID, taskID)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("user_id", userID.String()),
			slog.Int64("task_id", taskID),
			slog.String("error", redact.Error(err)))
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}
	if rows == 0 {
		log.Debug("task to delete not found",
			slog.String("user_id", userID.String()),
			slog.Int64("task_id", taskID))
		return ErrTaskNotFound
	}

	s.invalidate(ctx, userID, "delete_task")

	log.Info("task deleted",
		slog.String("user_id", userID.String()),
		slog.Int64("task_id", taskID))
	return nil
}

// invalidate runs after a committed write. It makes the user's next read
// go to the store: in-flight reads are detached from their singleflight keys
// and kept out of the cache, and cached listings are dropped. Cache failures
// are logged, never returned: the entries then stay stale until they expire.
func (s *taskServiceImpl) invalidate(ctx context.Context, userID uuid.UUID, operation string) {
	s.writeCounter(userID).Add(1)
	for _, f := range domain.AllTaskFilters {
		s.group.Forget(flightKey(userID, f))
	}
	s.dropCached(ctx, userID, operation)
}

func (s *taskServiceImpl) dropCached(ctx context.Context, userID uuid.UUID, operation string) {
	// Committed writes must invalidate even if the request was cancelled.
	ctx = context.WithoutCancel(ctx)
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to invalidate task cache",
			slog.String("operation", operation),
			slog.String("user_id", userID.String()),
			slog.String("error", redact.Error(err)))
	}
}
