package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/cache"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/sqlite"
	"github.com/phrazzld/todo-api/internal/service"
	"github.com/phrazzld/todo-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run the service against a real SQLite store and the in-memory
// cache provider driven by a fake clock.

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc   service.TaskService
	store *sqlite.SQLiteTaskStore
	cache *cache.TaskListCache
	clock *manualClock
	alice uuid.UUID
	bob   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.NewSQLite(t)
	alice := testdb.CreateTestUser(t, db)
	bob := testdb.CreateTestUser(t, db)

	clock := &manualClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	// Every store write lands one second after the previous one.
	storeClock := func() time.Time {
		clock.Advance(time.Second)
		return clock.Now()
	}
	tasks := sqlite.NewSQLiteTaskStore(db, discardLogger()).WithClock(storeClock)

	c, err := cache.New(cache.NewMemoryProvider(cache.WithClock(clock.Now)), cache.Options{
		TTL:    cache.DefaultTTL,
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{SingleFlight: true}, discardLogger())
	require.NoError(t, err)

	return &fixture{svc: svc, store: tasks, cache: c, clock: clock, alice: alice.ID, bob: bob.ID}
}

func (f *fixture) list(t *testing.T, userID uuid.UUID, filter domain.TaskFilter) []domain.Task {
	t.Helper()
	got, err := f.svc.ListTasks(context.Background(), userID, filter)
	require.NoError(t, err)
	return got
}

func (f *fixture) create(t *testing.T, userID uuid.UUID, title string) int64 {
	t.Helper()
	id, err := f.svc.CreateTask(context.Background(), userID, service.CreateTaskInput{Title: title})
	require.NoError(t, err)
	return id
}

// warmAll caches every filter for userID.
func (f *fixture) warmAll(t *testing.T, userID uuid.UUID) {
	t.Helper()
	for _, filter := range domain.AllTaskFilters {
		f.list(t, userID, filter)
	}
}

func titles(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

func TestTaskService_ReadYourOwnWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.warmAll(t, f.alice)
	id := f.create(t, f.alice, "Buy milk")

	assert.Equal(t, []string{"Buy milk"}, titles(f.list(t, f.alice, domain.TaskFilterAll)))
	assert.Equal(t, []string{"Buy milk"}, titles(f.list(t, f.alice, domain.TaskFilterPending)))
	assert.Empty(t, f.list(t, f.alice, domain.TaskFilterCompleted))

	require.NoError(t, f.svc.UpdateTask(ctx, f.alice, id, domain.TaskPatch{Completed: ptr(true)}))
	assert.Empty(t, f.list(t, f.alice, domain.TaskFilterPending))
	completed := f.list(t, f.alice, domain.TaskFilterCompleted)
	require.Len(t, completed, 1)
	assert.True(t, completed[0].Completed)
	assert.True(t, f.list(t, f.alice, domain.TaskFilterAll)[0].Completed)

	require.NoError(t, f.svc.DeleteTask(ctx, f.alice, id))
	for _, filter := range domain.AllTaskFilters {
		assert.Empty(t, f.list(t, f.alice, filter), "filter %s", filter)
	}
}

func TestTaskService_UserIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	aliceID := f.create(t, f.alice, "Alice task")
	f.create(t, f.bob, "Bob task")
	f.warmAll(t, f.alice)
	f.warmAll(t, f.bob)

	for _, filter := range []domain.TaskFilter{domain.TaskFilterAll, domain.TaskFilterPending} {
		assert.Equal(t, []string{"Alice task"}, titles(f.list(t, f.alice, filter)))
		assert.Equal(t, []string{"Bob task"}, titles(f.list(t, f.bob, filter)))
	}

	// Bob cannot touch Alice's task, and the attempt leaves it intact.
	err := f.svc.UpdateTask(ctx, f.bob, aliceID, domain.TaskPatch{Title: ptr("hijacked")})
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
	assert.ErrorIs(t, f.svc.DeleteTask(ctx, f.bob, aliceID), service.ErrTaskNotFound)

	raw, err := f.store.ListByOwner(ctx, f.alice, domain.TaskFilterAll)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "Alice task", raw[0].Title)

	// Alice's writes never disturb Bob's cached listing.
	f.create(t, f.alice, "Another")
	assert.Equal(t, []string{"Bob task"}, titles(f.list(t, f.bob, domain.TaskFilterAll)))
	assert.Equal(t, []string{"Another", "Alice task"}, titles(f.list(t, f.alice, domain.TaskFilterAll)))
}

func TestTaskService_FilterAndOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	first := f.create(t, f.alice, "first")
	f.create(t, f.alice, "second")
	third := f.create(t, f.alice, "third")

	assert.Equal(t, []string{"third", "second", "first"}, titles(f.list(t, f.alice, domain.TaskFilterAll)))

	// Touching the oldest task moves it to the front.
	require.NoError(t, f.svc.UpdateTask(ctx, f.alice, first, domain.TaskPatch{Completed: ptr(true)}))
	require.NoError(t, f.svc.UpdateTask(ctx, f.alice, third, domain.TaskPatch{Description: ptr("x")}))

	assert.Equal(t, []string{"third", "first", "second"}, titles(f.list(t, f.alice, domain.TaskFilterAll)))
	assert.Equal(t, []string{"first"}, titles(f.list(t, f.alice, domain.TaskFilterCompleted)))
	assert.Equal(t, []string{"third", "second"}, titles(f.list(t, f.alice, domain.TaskFilterPending)))

	// Unknown filters behave like all.
	assert.Equal(t,
		titles(f.list(t, f.alice, domain.TaskFilterAll)),
		titles(f.list(t, f.alice, domain.ParseTaskFilter("bogus"))))
}

func TestTaskService_RepeatedUpdateIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	id := f.create(t, f.alice, "Buy milk")
	patch := domain.TaskPatch{Title: ptr("Buy oat milk"), Completed: ptr(true)}

	require.NoError(t, f.svc.UpdateTask(ctx, f.alice, id, patch))
	once := f.list(t, f.alice, domain.TaskFilterAll)
	require.NoError(t, f.svc.UpdateTask(ctx, f.alice, id, patch))
	twice := f.list(t, f.alice, domain.TaskFilterAll)

	require.Len(t, once, 1)
	require.Len(t, twice, 1)
	assert.Equal(t, once[0].Title, twice[0].Title)
	assert.Equal(t, once[0].Completed, twice[0].Completed)
	assert.Equal(t, once[0].Description, twice[0].Description)
}

func TestTaskService_BlankTitleInsertsNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateTask(ctx, f.alice, service.CreateTaskInput{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	raw, err := f.store.ListByOwner(ctx, f.alice, domain.TaskFilterAll)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestTaskService_StaleOnlyForOutOfBandWritesUntilTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.create(t, f.alice, "via service")
	f.warmAll(t, f.alice)

	// A write that bypasses the service is invisible until the entry expires.
	_, err := f.store.Create(ctx, f.alice, "out of band", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"via service"}, titles(f.list(t, f.alice, domain.TaskFilterAll)))

	// Reads do not extend the entry's lifetime.
	f.clock.Advance(cache.DefaultTTL - 10*time.Second)
	assert.Len(t, f.list(t, f.alice, domain.TaskFilterAll), 1)
	f.clock.Advance(10 * time.Second)
	assert.Equal(t, []string{"out of band", "via service"}, titles(f.list(t, f.alice, domain.TaskFilterAll)))
}

func TestTaskService_BuyMilkScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	assert.Empty(t, f.list(t, f.alice, domain.TaskFilterAll))

	id := f.create(t, f.alice, "Buy milk")
	assert.Equal(t, int64(1), id)

	all := f.list(t, f.alice, domain.TaskFilterAll)
	require.Len(t, all, 1)
	assert.Equal(t, "Buy milk", all[0].Title)
	assert.Equal(t, "", all[0].Description)
	assert.False(t, all[0].Completed)

	require.NoError(t, f.svc.UpdateTask(ctx, f.alice, id, domain.TaskPatch{Completed: ptr(true)}))
	assert.Len(t, f.list(t, f.alice, domain.TaskFilterCompleted), 1)
	assert.Empty(t, f.list(t, f.alice, domain.TaskFilterPending))
	assert.Empty(t, f.list(t, f.bob, domain.TaskFilterAll))

	require.NoError(t, f.svc.DeleteTask(ctx, f.alice, id))
	assert.Empty(t, f.list(t, f.alice, domain.TaskFilterAll))
	assert.ErrorIs(t, f.svc.DeleteTask(ctx, f.alice, id), service.ErrTaskNotFound)
}
