package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = "id, username, email, hashed_password, created_at, updated_at"

// SQLiteUserStore implements store.UserStore on SQLite.
type SQLiteUserStore struct {
	db         store.DBTX
	bcryptCost int
	logger     *slog.Logger
}

// NewSQLiteUserStore creates a user store on db. bcryptCost is clamped to bcrypt's valid range.
func NewSQLiteUserStore(db store.DBTX, bcryptCost int, logger *slog.Logger) *SQLiteUserStore {
	if db == nil {
		// ALLOW-PANIC: constructor misuse
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &SQLiteUserStore{
		db:         db,
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "user_store")),
	}
}

var _ store.UserStore = (*SQLiteUserStore)(nil)

// Create implements store.UserStore.Create
func (s *SQLiteUserStore) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if user.Password == "" {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrEmptyPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, string(hash), toUnix(user.CreatedAt), toUnix(user.UpdatedAt),
	)
	if err != nil {
		mapped := MapError(err)
		if !errors.Is(mapped, store.ErrDuplicate) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert user",
				slog.String("user_id", user.ID.String()),
				slog.String("error", err.Error()))
		}
		return mapped
	}

	user.HashedPassword = string(hash)
	user.Password = ""
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *SQLiteUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getBy(ctx, "id", id)
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *SQLiteUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getBy(ctx, "email", domain.NormalizeEmail(email))
}

// GetByUsername implements store.UserStore.GetByUsername
func (s *SQLiteUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getBy(ctx, "username", username)
}

func (s *SQLiteUserStore) getBy(ctx context.Context, column string, value any) (*domain.User, error) {
	var (
		u                domain.User
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+column+" = ?", value,
	).Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &created, &updated)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, mapped
	}

	u.CreatedAt = fromUnix(created)
	u.UpdatedAt = fromUnix(updated)
	return &u, nil
}
