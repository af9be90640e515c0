package testdb

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// NewSQLite opens a fresh in-memory SQLite database with all migrations
// applied. It is closed when the test ends.
func NewSQLite(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	require.NoError(t, err, "failed to open in-memory sqlite")
	t.Cleanup(func() { _ = db.Close() })

	quiet := slog.New(slog.DiscardHandler)
	require.NoError(t, sqlite.Migrate(ctx, db, "up", quiet), "failed to migrate sqlite")
	return db
}

// CreateTestUser inserts a user with a unique username and email through
// the SQLite user store and returns it. The password is "password123".
func CreateTestUser(t *testing.T, db *sql.DB) *domain.User {
	t.Helper()

	suffix := uuid.NewString()[:8]
	user, err := domain.NewUser("user_"+suffix, "user_"+suffix+"@example.com", "password123")
	require.NoError(t, err)

	users := sqlite.NewSQLiteUserStore(db, bcrypt.MinCost, nil)
	require.NoError(t, users.Create(context.Background(), user))
	return user
}
