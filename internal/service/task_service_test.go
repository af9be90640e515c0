package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/cache"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/mocks"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/service"
	"github.com/phrazzld/todo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errCacheDown = errors.New("cache down")

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(context.Context, uuid.UUID, domain.TaskFilter) ([]domain.Task, bool, error) {
	return nil, false, errCacheDown
}

func (brokenCache) Put(context.Context, uuid.UUID, domain.TaskFilter, []domain.Task) error {
	return errCacheDown
}

func (brokenCache) Invalidate(context.Context, uuid.UUID) error { return errCacheDown }

func newMemoryCache(t *testing.T) (*cache.TaskListCache, *cache.MemoryProvider) {
	t.Helper()
	provider := cache.NewMemoryProvider()
	c, err := cache.New(provider, cache.Options{Logger: discardLogger()})
	require.NoError(t, err)
	return c, provider
}

func sampleTasks(userID uuid.UUID) []domain.Task {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return []domain.Task{
		{ID: 2, UserID: userID, Title: "Walk dog", CreatedAt: ts, UpdatedAt: ts.Add(time.Minute)},
		{ID: 1, UserID: userID, Title: "Buy milk", Completed: true, CreatedAt: ts, UpdatedAt: ts},
	}
}

// fillAllFilters caches a listing under every filter for userID.
func fillAllFilters(t *testing.T, c *cache.TaskListCache, userID uuid.UUID) {
	t.Helper()
	for _, f := range domain.AllTaskFilters {
		require.NoError(t, c.Put(context.Background(), userID, f, sampleTasks(userID)))
	}
}

func assertNoneCached(t *testing.T, c *cache.TaskListCache, userID uuid.UUID) {
	t.Helper()
	for _, f := range domain.AllTaskFilters {
		_, ok, err := c.Get(context.Background(), userID, f)
		require.NoError(t, err)
		assert.False(t, ok, "filter %s should not be cached", f)
	}
}

func TestNewTaskService(t *testing.T) {
	t.Parallel()
	c, _ := newMemoryCache(t)

	_, err := service.NewTaskService(nil, c, service.TaskServiceOptions{}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "tasks")

	_, err = service.NewTaskService(new(mocks.MockTaskStore), nil, service.TaskServiceOptions{}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "cache")

	svc, err := service.NewTaskService(new(mocks.MockTaskStore), c, service.TaskServiceOptions{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestListTasks_ReadsThroughCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	userID := uuid.New()
	c, _ := newMemoryCache(t)

	tasks := new(mocks.MockTaskStore)
	tasks.On("ListByOwner", mock.Anything, userID, domain.TaskFilterAll).
		Return(sampleTasks(userID), nil).Once()

	svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
	require.NoError(t, err)

	first, err := svc.ListTasks(ctx, userID, domain.TaskFilterAll)
	require.NoError(t, err)
	second, err := svc.ListTasks(ctx, userID, domain.TaskFilterAll)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, sampleTasks(userID), second)
	tasks.AssertExpectations(t)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Sets)
}

func TestListTasks_NilFromStoreBecomesEmpty(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	c, _ := newMemoryCache(t)

	tasks := new(mocks.MockTaskStore)
	tasks.On("ListByOwner", mock.Anything, userID, domain.TaskFilterPending).
		Return(nil, nil).Once()

	svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := svc.ListTasks(context.Background(), userID, domain.TaskFilterPending)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	tasks.AssertExpectations(t)
}

func TestListTasks_CacheFailureFallsBackToStore(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	log, buf := logger.GetTestLogger(t)

	tasks := new(mocks.MockTaskStore)
	tasks.On("ListByOwner", mock.Anything, userID, domain.TaskFilterAll).
		Return(sampleTasks(userID), nil).Twice()

	svc, err := service.NewTaskService(tasks, brokenCache{}, service.TaskServiceOptions{SingleFlight: true}, log)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := svc.ListTasks(context.Background(), userID, domain.TaskFilterAll)
		require.NoError(t, err)
		assert.Equal(t, sampleTasks(userID), got)
	}
	tasks.AssertExpectations(t)
	assert.NotEmpty(t, buf.EntriesWithLevel(t, "WARN"))
}

func TestListTasks_StoreFailure(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	c, provider := newMemoryCache(t)

	tasks := new(mocks.MockTaskStore)
	tasks.On("ListByOwner", mock.Anything, userID, domain.TaskFilterAll).
		Return(nil, store.ErrStoreUnavailable)

	svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{SingleFlight: true}, discardLogger())
	require.NoError(t, err)

	got, err := svc.ListTasks(context.Background(), userID, domain.TaskFilterAll)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	var serviceErr *service.TaskServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "list_tasks", serviceErr.Operation)
	assert.Zero(t, provider.Len(), "failed reads must not populate the cache")
}

// blockingStore holds every ListByOwner call until release is closed.
type blockingStore struct {
	mocks.MockTaskStore
	calls   atomic.Int32
	release chan struct{}
}

func (s *blockingStore) ListByOwner(
	ctx context.Context,
	userID uuid.UUID,
	_ domain.TaskFilter,
) ([]domain.Task, error) {
	s.calls.Add(1)
	<-s.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sampleTasks(userID), nil
}

func runConcurrentLists(t *testing.T, singleFlight bool, n int) (*blockingStore, [][]domain.Task) {
	t.Helper()
	userID := uuid.New()
	c, _ := newMemoryCache(t)
	tasks := &blockingStore{release: make(chan struct{})}

	svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{SingleFlight: singleFlight}, discardLogger())
	require.NoError(t, err)

	results := make([][]domain.Task, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := svc.ListTasks(context.Background(), userID, domain.TaskFilterAll)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	if singleFlight {
		require.Eventually(t, func() bool { return tasks.calls.Load() >= 1 }, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
	} else {
		require.Eventually(t, func() bool { return tasks.calls.Load() == int32(n) }, time.Second, time.Millisecond)
	}
	close(tasks.release)
	wg.Wait()
	return tasks, results
}

func TestListTasks_SingleFlightCollapsesConcurrentMisses(t *testing.T) {
	t.Parallel()
	const n = 16

	tasks, results := runConcurrentLists(t, true, n)

	assert.Less(t, tasks.calls.Load(), int32(n))
	for _, r := range results {
		assert.Len(t, r, 2)
	}

	// Shared results are independent copies.
	results[0][0].Title = "changed"
	for _, r := range results[1:] {
		assert.Equal(t, "Walk dog", r[0].Title)
	}
}

func TestListTasks_SharedReadSurvivesFirstCallerCancelling(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	c, _ := newMemoryCache(t)
	tasks := &blockingStore{release: make(chan struct{})}

	svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{SingleFlight: true}, discardLogger())
	require.NoError(t, err)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.ListTasks(firstCtx, userID, domain.TaskFilterAll)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return tasks.calls.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan []domain.Task, 1)
	go func() {
		got, err := svc.ListTasks(context.Background(), userID, domain.TaskFilterAll)
		assert.NoError(t, err)
		second <- got
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(tasks.release)
	assert.Len(t, <-second, 2)
	assert.Equal(t, int32(1), tasks.calls.Load())
}

// snapshotStore lists the tasks present when ListByOwner is entered. The
// first listing is held until release is closed, after signalling entered.
type snapshotStore struct {
	mocks.MockTaskStore
	mu      sync.Mutex
	tasks   []domain.Task
	lists   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (s *snapshotStore) ListByOwner(context.Context, uuid.UUID, domain.TaskFilter) ([]domain.Task, error) {
	s.mu.Lock()
	snap := append([]domain.Task{}, s.tasks...)
	s.mu.Unlock()

	if s.lists.Add(1) == 1 {
		close(s.entered)
		<-s.release
	}
	return snap, nil
}

func (s *snapshotStore) Create(_ context.Context, userID uuid.UUID, title, description string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(len(s.tasks) + 1)
	s.tasks = append(s.tasks, domain.Task{ID: id, UserID: userID, Title: title, Description: description})
	return id, nil
}

func TestListTasks_ReadAfterCommittedWriteSkipsEarlierFlight(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	userID := uuid.New()
	c, _ := newMemoryCache(t)
	tasks := &snapshotStore{entered: make(chan struct{}), release: make(chan struct{})}

	svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{SingleFlight: true}, discardLogger())
	require.NoError(t, err)

	early := make(chan []domain.Task, 1)
	go func() {
		got, err := svc.ListTasks(ctx, userID, domain.TaskFilterAll)
		assert.NoError(t, err)
		early <- got
	}()
	<-tasks.entered

	_, err = svc.CreateTask(ctx, userID, service.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)

	after := make(chan []domain.Task, 1)
	go func() {
		got, err := svc.ListTasks(ctx, userID, domain.TaskFilterAll)
		assert.NoError(t, err)
		after <- got
	}()

	select {
	case got := <-after:
		assert.Len(t, got, 1, "a read issued after the write must see it")
	case <-time.After(2 * time.Second):
		t.Error("read issued after the write joined the earlier flight")
	}

	close(tasks.release)
	assert.Empty(t, <-early)

	// The earlier read finished last and must not have cached its snapshot.
	got, err := svc.ListTasks(ctx, userID, domain.TaskFilterAll)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListTasks_WithoutSingleFlightEachMissQueries(t *testing.T) {
	t.Parallel()
	const n = 8

	tasks, results := runConcurrentLists(t, false, n)

	assert.Equal(t, int32(n), tasks.calls.Load())
	for _, r := range results {
		assert.Len(t, r, 2)
	}
}

func TestCreateTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	userID := uuid.New()

	t.Run("invalidates every filter", func(t *testing.T) {
		t.Parallel()
		c, _ := newMemoryCache(t)
		fillAllFilters(t, c, userID)

		tasks := new(mocks.MockTaskStore)
		tasks.On("Create", mock.Anything, userID, "Buy milk", "").Return(int64(1), nil).Once()

		svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
		require.NoError(t, err)

		id, err := svc.CreateTask(ctx, userID, service.CreateTaskInput{Title: "Buy milk"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
		assertNoneCached(t, c, userID)
		tasks.AssertExpectations(t)
	})

	t.Run("leaves other users cached", func(t *testing.T) {
		t.Parallel()
		c, _ := newMemoryCache(t)
		other := uuid.New()
		fillAllFilters(t, c, other)

		tasks := new(mocks.MockTaskStore)
		tasks.On("Create", mock.Anything, userID, "Buy milk", "").Return(int64(1), nil)

		svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
		require.NoError(t, err)

		_, err = svc.CreateTask(ctx, userID, service.CreateTaskInput{Title: "Buy milk"})
		require.NoError(t, err)

		for _, f := range domain.AllTaskFilters {
			_, ok, err := c.Get(ctx, other, f)
			require.NoError(t, err)
			assert.True(t, ok)
		}
	})

	for _, title := range []string{"", "   ", "\t\n"} {
		t.Run("rejects blank title "+strconvQuote(title), func(t *testing.T) {
			t.Parallel()
			c, _ := newMemoryCache(t)
			fillAllFilters(t, c, userID)
			tasks := new(mocks.MockTaskStore)

			svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
			require.NoError(t, err)

			_, err = svc.CreateTask(ctx, userID, service.CreateTaskInput{Title: title})
			assert.ErrorIs(t, err, domain.ErrEmptyTitle)
			assert.ErrorIs(t, err, domain.ErrValidation)
			tasks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

			_, ok, err := c.Get(ctx, userID, domain.TaskFilterAll)
			require.NoError(t, err)
			assert.True(t, ok, "a rejected write leaves the cache alone")
		})
	}

	t.Run("store failure does not invalidate", func(t *testing.T) {
		t.Parallel()
		c, _ := newMemoryCache(t)
		fillAllFilters(t, c, userID)

		tasks := new(mocks.MockTaskStore)
		tasks.On("Create", mock.Anything, userID, "Buy milk", "").
			Return(int64(0), store.ErrStoreUnavailable)

		svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
		require.NoError(t, err)

		_, err = svc.CreateTask(ctx, userID, service.CreateTaskInput{Title: "Buy milk"})
		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
		assert.Zero(t, c.Stats().Invalidations)
	})
}

func TestUpdateTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	userID := uuid.New()
	done := true
	patch := domain.TaskPatch{Completed: &done}

	t.Run("success invalidates", func(t *testing.T) {
		t.Parallel()
		c, _ := newMemoryCache(t)
		fillAllFilters(t, c, userID)

		tasks := new(mocks.MockTaskStore)
		tasks.On("Update", mock.Anything, userID, int64(7), patch).Return(int64(1), nil).Once()

		svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
		require.NoError(t, err)

		require.NoError(t, svc.UpdateTask(ctx, userID, 7, patch))
		assertNoneCached(t, c, userID)
		tasks.AssertExpectations(t)
	})

	t.Run("empty patch is rejected before the store", func(t *testing.T) {
		t.Parallel()
		c, _ := newMemoryCache(t)
		tasks := new(mocks.MockTaskStore)

		svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
		require.NoError(t, err)

		err = svc.UpdateTask(ctx, userID, 7, domain.TaskPatch{})
		assert.ErrorIs(t, err, domain.ErrEmptyPatch)
		assert.ErrorIs(t, err, domain.ErrValidation)
		tasks.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("blank title is rejected", func(t *testing.T) {
		t.Parallel()
		c, _ := newMemoryCache(t)
		tasks := new(mocks.MockTaskStore)
		blank := "  "

		svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
		require.NoError(t, err)

		err = svc.UpdateTask(ctx, userID, 7, domain.TaskPatch{Title: &blank})
		assert.ErrorIs(t, err, domain.ErrEmptyTitle)
		tasks.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no matching row is not found", func(t *testing.T) {
		t.Parallel()
		c, _ := newMemoryCache(t)
		fillAllFilters(t, c, userID)

		tasks := new(mocks.MockTaskStore)
		tasks.On("Update", mock.Anything, userID, int64(99), patch).Return(int64(0), nil)

		svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
		require.NoError(t, err)

		err = svc.UpdateTask(ctx, userID, 99, patch)
		assert.ErrorIs(t, err, service.ErrTaskNotFound)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Zero(t, c.Stats().Invalidations)
	})
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	userID := uuid.New()

	t.Run("success invalidates", func(t *testing.T) {
		t.Parallel()
		c, _ := newMemoryCache(t)
		fillAllFilters(t, c, userID)

		tasks := new(mocks.MockTaskStore)
		tasks.On("Delete", mock.Anything, userID, int64(3)).Return(int64(1), nil).Once()

		svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
		require.NoError(t, err)

		require.NoError(t, svc.DeleteTask(ctx, userID, 3))
		assertNoneCached(t, c, userID)
		tasks.AssertExpectations(t)
	})

	t.Run("no matching row is not found", func(t *testing.T) {
		t.Parallel()
		c, _ := newMemoryCache(t)

		tasks := new(mocks.MockTaskStore)
		tasks.On("Delete", mock.Anything, userID, int64(3)).Return(int64(0), nil)

		svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
		require.NoError(t, err)

		assert.ErrorIs(t, svc.DeleteTask(ctx, userID, 3), service.ErrTaskNotFound)
	})
}

func TestMutations_InvalidationFailureIsLoggedNotReturned(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	userID := uuid.New()
	log, buf := logger.GetTestLogger(t)
	title := "Renamed"

	tasks := new(mocks.MockTaskStore)
	tasks.On("Create", mock.Anything, userID, "Buy milk", "").Return(int64(1), nil)
	tasks.On("Update", mock.Anything, userID, int64(1), mock.Anything).Return(int64(1), nil)
	tasks.On("Delete", mock.Anything, userID, int64(1)).Return(int64(1), nil)

	svc, err := service.NewTaskService(tasks, brokenCache{}, service.TaskServiceOptions{}, log)
	require.NoError(t, err)

	_, err = svc.CreateTask(ctx, userID, service.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateTask(ctx, userID, 1, domain.TaskPatch{Title: &title}))
	require.NoError(t, svc.DeleteTask(ctx, userID, 1))

	errs := buf.EntriesWithLevel(t, "ERROR")
	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, "failed to invalidate task cache", e["msg"])
		assert.Equal(t, userID.String(), e["user_id"])
	}
}

func TestMutations_InvalidateEvenWhenRequestCancelled(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	c, _ := newMemoryCache(t)
	fillAllFilters(t, c, userID)

	ctx, cancel := context.WithCancel(context.Background())
	tasks := new(mocks.MockTaskStore)
	tasks.On("Delete", mock.Anything, userID, int64(5)).
		Run(func(mock.Arguments) { cancel() }).
		Return(int64(1), nil)

	svc, err := service.NewTaskService(tasks, c, service.TaskServiceOptions{}, discardLogger())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, userID, 5))
	assertNoneCached(t, c, userID)
}
