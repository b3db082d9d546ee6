package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/unifiedui/mentalbot-service/internal/domain/errors"
	"github.com/unifiedui/mentalbot-service/internal/domain/models"
	"github.com/unifiedui/mentalbot-service/internal/services/session"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemoryStore(t *testing.T, clock *fakeClock, capacity int) *session.MemoryStore {
	t.Helper()

	store, err := session.NewMemoryStore(&session.MemoryStoreConfig{
		Timeout:  30 * time.Minute,
		Capacity: capacity,
		Now:      clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestNewMemoryStore_NilConfig(t *testing.T) {
	store, err := session.NewMemoryStore(nil)

	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "config is required")
}

func TestMemoryStore_ResolveOrCreate_EmptyID(t *testing.T) {
	clock := newFakeClock()
	store := newMemoryStore(t, clock, 10)

	sess, created := store.ResolveOrCreate(context.Background(), "")

	assert.True(t, created)
	_, err := uuid.Parse(sess.ID)
	assert.NoError(t, err)
	assert.Empty(t, sess.History)
	assert.Equal(t, clock.Now(), sess.CreatedAt)
	assert.Equal(t, clock.Now(), sess.LastAccessedAt)
}

func TestMemoryStore_ResolveOrCreate_LiveSession(t *testing.T) {
	clock := newFakeClock()
	store := newMemoryStore(t, clock, 10)
	ctx := context.Background()

	first, _ := store.ResolveOrCreate(ctx, "")
	clock.Advance(29 * time.Minute)

	second, created := store.ResolveOrCreate(ctx, first.ID)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, clock.Now(), second.LastAccessedAt)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	// The refresh restarts the inactivity window.
	clock.Advance(29 * time.Minute)
	third, created := store.ResolveOrCreate(ctx, first.ID)
	assert.False(t, created)
	assert.Equal(t, first.ID, third.ID)
}

func TestMemoryStore_ResolveOrCreate_UnknownID(t *testing.T) {
	store := newMemoryStore(t, newFakeClock(), 10)

	sess, created := store.ResolveOrCreate(context.Background(), "does-not-exist")

	assert.True(t, created)
	assert.NotEqual(t, "does-not-exist", sess.ID)
}

func TestMemoryStore_ResolveOrCreate_StaleSession(t *testing.T) {
	clock := newFakeClock()
	store := newMemoryStore(t, clock, 10)
	ctx := context.Background()

	stale, _ := store.ResolveOrCreate(ctx, "")
	require.NoError(t, store.Append(ctx, stale.ID, models.RoleUser, "hello"))
	clock.Advance(31 * time.Minute)

	fresh, created := store.ResolveOrCreate(ctx, stale.ID)

	assert.True(t, created)
	assert.NotEqual(t, stale.ID, fresh.ID)
	assert.Empty(t, fresh.History)

	// The expired session is evicted on access and never comes back.
	_, err := store.History(ctx, stale.ID)
	assert.True(t, domainerrors.IsNotFound(err))
	again, created := store.ResolveOrCreate(ctx, stale.ID)
	assert.True(t, created)
	assert.NotEqual(t, stale.ID, again.ID)
}

func TestMemoryStore_AppendAndHistory(t *testing.T) {
	store := newMemoryStore(t, newFakeClock(), 10)
	ctx := context.Background()

	sess, _ := store.ResolveOrCreate(ctx, "")
	require.NoError(t, store.Append(ctx, sess.ID, models.RoleUser, "I feel anxious"))
	require.NoError(t, store.Append(ctx, sess.ID, models.RoleAssistant, "That sounds hard."))

	history, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "I feel anxious", history[0].Content)
	assert.Equal(t, models.RoleAssistant, history[1].Role)

	// Returned history is a copy.
	history[0].Content = "changed"
	again, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "I feel anxious", again[0].Content)
}

func TestMemoryStore_Append_UnknownSession(t *testing.T) {
	store := newMemoryStore(t, newFakeClock(), 10)

	err := store.Append(context.Background(), "missing", models.RoleUser, "hi")

	assert.True(t, domainerrors.IsNotFound(err))
}

func TestMemoryStore_Get(t *testing.T) {
	clock := newFakeClock()
	store := newMemoryStore(t, clock, 10)
	ctx := context.Background()

	sess, _ := store.ResolveOrCreate(ctx, "")
	clock.Advance(10 * time.Minute)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	// Get does not refresh the session.
	assert.Equal(t, sess.LastAccessedAt, got.LastAccessedAt)

	clock.Advance(25 * time.Minute)
	_, err = store.Get(ctx, sess.ID)
	assert.True(t, domainerrors.IsNotFound(err))
}

func TestMemoryStore_CapacityEviction(t *testing.T) {
	store := newMemoryStore(t, newFakeClock(), 2)
	ctx := context.Background()

	first, _ := store.ResolveOrCreate(ctx, "")
	second, _ := store.ResolveOrCreate(ctx, "")
	// Touch the first session so the second becomes least recently used.
	store.ResolveOrCreate(ctx, first.ID)
	third, _ := store.ResolveOrCreate(ctx, "")

	assert.Equal(t, 2, store.Len())
	_, err := store.History(ctx, second.ID)
	assert.True(t, domainerrors.IsNotFound(err))
	_, err = store.History(ctx, first.ID)
	assert.NoError(t, err)
	_, err = store.History(ctx, third.ID)
	assert.NoError(t, err)
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := newFakeClock()
	store := newMemoryStore(t, clock, 10)
	ctx := context.Background()

	old, _ := store.ResolveOrCreate(ctx, "")
	clock.Advance(20 * time.Minute)
	recent, _ := store.ResolveOrCreate(ctx, "")
	clock.Advance(15 * time.Minute)

	removed := store.Sweep()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
	_, err := store.History(ctx, old.ID)
	assert.True(t, domainerrors.IsNotFound(err))
	_, err = store.History(ctx, recent.ID)
	assert.NoError(t, err)
}

func TestMemoryStore_SweepLoop(t *testing.T) {
	clock := newFakeClock()
	store, err := session.NewMemoryStore(&session.MemoryStoreConfig{
		Timeout:       time.Minute,
		Capacity:      10,
		SweepInterval: 5 * time.Millisecond,
		Now:           clock.Now,
	})
	require.NoError(t, err)
	defer store.Close()

	store.ResolveOrCreate(context.Background(), "")
	clock.Advance(2 * time.Minute)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	store := newMemoryStore(t, newFakeClock(), 10)
	ctx := context.Background()
	sess, _ := store.ResolveOrCreate(ctx, "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.ResolveOrCreate(ctx, sess.ID)
			assert.NoError(t, store.Append(ctx, sess.ID, models.RoleUser, "hi"))
		}()
	}
	wg.Wait()

	history, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, history, 50)
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	store, err := session.NewMemoryStore(&session.MemoryStoreConfig{SweepInterval: time.Hour})
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
