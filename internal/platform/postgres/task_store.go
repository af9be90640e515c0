package postgres

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

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		// ALLOW-PANIC: constructor misuse
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for created_at and updated_at.
func (s *PostgresTaskStore) WithClock(now func() time.Time) *PostgresTaskStore {
	s.now = now
	return s
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// ListByOwner implements store.TaskStore.ListByOwner
func (s *PostgresTaskStore) ListByOwner(
	ctx context.Context,
	userID uuid.UUID,
	filter domain.TaskFilter,
) ([]domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = $1"
	args := []any{userID}
	if completed, ok := filter.CompletedValue(); ok {
		query += " AND completed = $2"
		args = append(args, completed)
	}
	query += " ORDER BY updated_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks",
			slog.String("user_id", userID.String()),
			slog.String("filter", filter.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "failed to query tasks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, store.NewStoreError("task", "list", "failed to query tasks", MapError(err))
		}
		t.CreatedAt = t.CreatedAt.UTC()
		t.UpdatedAt = t.UpdatedAt.UTC()
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "failed to query tasks", MapError(err))
	}

	log.Debug("listed tasks",
		slog.String("user_id", userID.String()),
		slog.String("filter", filter.String()),
		slog.Int("count", len(tasks)))
	return tasks, nil
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(
	ctx context.Context,
	userID uuid.UUID,
	title, description string,
) (int64, error) {
	if err := domain.ValidateNewTask(userID, title); err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	now := s.now().UTC()
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (user_id, title, description, completed, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, $4, $4)
		RETURNING id`,
		userID, title, description, now,
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
func (s *PostgresTaskStore) Update(
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
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Completed != nil {
		set("completed", *patch.Completed)
	}
	set("updated_at", s.now().UTC())

	args = append(args, taskID, userID)
	query := fmt.Sprintf(
		"UPDATE tasks SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "),
		len(args)-1,
		len(args),
	)

	return s.exec(ctx, "update", taskID, query, args...)
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, userID uuid.UUID, taskID int64) (int64, error) {
	return s.exec(ctx, "delete", taskID,
		"DELETE FROM tasks WHERE id = $1 AND user_id = $2", taskID, userID)
}

func (s *PostgresTaskStore) exec(
	ctx context.Context,
	op string,
	taskID int64,
	query string,
	args ...any,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to "+op+" task",
			slog.Int64("task_id", taskID),
			slog.String("error", err.Error()))
		return 0, store.NewStoreError("task", op, "statement failed", MapError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, store.NewStoreError("task", op, "statement failed", MapError(err))
	}
	if n == 0 {
		log.Debug("no task matched "+op, slog.Int64("task_id", taskID))
	}
	return n, nil
}
