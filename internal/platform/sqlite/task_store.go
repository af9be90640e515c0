package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/store"
)

const taskColumns = "id, user_id, title, description, completed, created_at, updated_at"

// SQLiteTaskStore implements store.TaskStore on SQLite.
type SQLiteTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteTaskStore creates a task store on db. If logger is nil, a default logger will be used.
func NewSQLiteTaskStore(db store.DBTX, logger *slog.Logger) *SQLiteTaskStore {
	if db == nil {
		// ALLOW-PANIC: constructor misuse
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for created_at and updated_at.
func (s *SQLiteTaskStore) WithClock(now func() time.Time) *SQLiteTaskStore {
	s.now = now
	return s
}

var _ store.TaskStore = (*SQLiteTaskStore)(nil)

// ListByOwner implements store.TaskStore.ListByOwner
func (s *SQLiteTaskStore) ListByOwner(
	ctx context.Context,
	userID uuid.UUID,
	filter domain.TaskFilter,
) ([]domain.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ?"
	args := []any{userID}
	if completed, ok := filter.CompletedValue(); ok {
		query += " AND completed = ?"
		args = append(args, completed)
	}
	query += " ORDER BY updated_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query tasks",
			slog.String("user_id", userID.String()),
			slog.String("filter", filter.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "failed to query tasks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		var (
			t                domain.Task
			created, updated int64
		)
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &created, &updated,
		); err != nil {
			return nil, store.NewStoreError("task", "list", "failed to query tasks", MapError(err))
		}
		t.CreatedAt = fromUnix(created)
		t.UpdatedAt = fromUnix(updated)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "failed to query tasks", MapError(err))
	}

	return tasks, nil
}

// Create implements store.TaskStore.Create
func (s *SQLiteTaskStore) Create(
	ctx context.Context,
	userID uuid.UUID,
	title, description string,
) (int64, error) {
	if err := domain.ValidateNewTask(userID, title); err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	now := toUnix(s.now())
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (user_id, title, description, completed, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
		RETURNING id`,
		userID, title, description, now, now,
	).Scan(&id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert task",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return 0, store.NewStoreError("task", "create", "failed to insert task", MapError(err))
	}

	return id, nil
}

// Update implements store.TaskStore.Update
func (s *SQLiteTaskStore) Update(
	ctx context.Context,
	userID uuid.UUID,
	taskID int64,
	patch domain.TaskPatch,
) (int64, error) {
	if err := patch.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, toUnix(s.now()), taskID, userID)

	query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ? AND user_id = ?"
	return s.exec(ctx, "update", taskID, query, args...)
}

// Delete implements store.TaskStore.Delete
func (s *SQLiteTaskStore) Delete(ctx context.Context, userID uuid.UUID, taskID int64) (int64, error) {
	return s.exec(ctx, "delete", taskID, "DELETE FROM tasks WHERE id = ? AND user_id = ?", taskID, userID)
}

func (s *SQLiteTaskStore) exec(ctx context.Context, op string, taskID int64, query string, args ...any) (int64, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to "+op+" task",
			slog.Int64("task_id", taskID),
			slog.String("error", err.Error()))
		return 0, store.NewStoreError("task", op, "statement failed", MapError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, store.NewStoreError("task", op, "statement failed", MapError(err))
	}
	return n, nil
}
