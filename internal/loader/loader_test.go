package loader

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialgraph/internal/store"
)

// countingStore wraps a Store and counts invocations of the batch lookups.
type countingStore struct {
	store.Store

	mu    sync.Mutex
	calls map[string]int
	keys  map[string][][]string
}

func newCountingStore(inner store.Store) *countingStore {
	return &countingStore{
		Store: inner,
		calls: map[string]int{},
		keys:  map[string][][]string{},
	}
}

func (c *countingStore) record(method string, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	c.keys[method] = append(c.keys[method], ids)
}

func (c *countingStore) count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *countingStore) PostsByAuthorIDs(ctx context.Context, authorIDs []string) (map[string][]store.Post, error) {
	c.record("PostsByAuthorIDs", authorIDs)
	return c.Store.PostsByAuthorIDs(ctx, authorIDs)
}

func (c *countingStore) ProfilesByUserIDs(ctx context.Context, userIDs []string) (map[string]store.Profile, error) {
	c.record("ProfilesByUserIDs", userIDs)
	return c.Store.ProfilesByUserIDs(ctx, userIDs)
}

func (c *countingStore) MemberTypesByIDs(ctx context.Context, ids []string) (map[string]store.MemberType, error) {
	c.record("MemberTypesByIDs", ids)
	return c.Store.MemberTypesByIDs(ctx, ids)
}

func seedUsers(t *testing.T, st store.Store, n int) []store.User {
	t.Helper()
	users := make([]store.User, 0, n)
	for i := 0; i < n; i++ {
		u, err := st.CreateUser(context.Background(), store.CreateUser{Name: "user", Balance: 10})
		require.NoError(t, err)
		users = append(users, *u)
	}
	return users
}

func TestLoadCoalescesKeysIntoOneDispatch(t *testing.T) {
	counting := newCountingStore(store.NewMemory())
	users := seedUsers(t, counting, 10)
	for _, u := range users {
		_, err := counting.CreatePost(context.Background(), store.CreatePost{
			Title: "t", Content: "c", AuthorID: u.ID,
		})
		require.NoError(t, err)
	}

	l := New(counting)
	ctx := context.Background()

	thunks := make([]Thunk, 0, len(users))
	for _, u := range users {
		thunks = append(thunks, l.Load(ctx, KindPostsByAuthorID, u.ID))
	}

	for i, thunk := range thunks {
		value, err := thunk()
		require.NoError(t, err)
		posts, ok := value.([]store.Post)
		require.True(t, ok)
		require.Len(t, posts, 1)
		assert.Equal(t, users[i].ID, posts[0].AuthorID)
	}

	assert.Equal(t, 1, counting.count("PostsByAuthorIDs"))
	assert.EqualValues(t, 1, l.Dispatches())
	assert.EqualValues(t, 10, l.KeysLoaded())
}

func TestLoadDeduplicatesKeysWithinBatch(t *testing.T) {
	counting := newCountingStore(store.NewMemory())
	users := seedUsers(t, counting, 1)

	l := New(counting)
	ctx := context.Background()

	first := l.Load(ctx, KindProfileByUserID, users[0].ID)
	second := l.Load(ctx, KindProfileByUserID, users[0].ID)

	_, err := first()
	require.NoError(t, err)
	_, err = second()
	require.NoError(t, err)

	require.Len(t, counting.keys["ProfilesByUserIDs"], 1)
	assert.Equal(t, []string{users[0].ID}, counting.keys["ProfilesByUserIDs"][0])
}

func TestLoadCachesAcrossTicks(t *testing.T) {
	counting := newCountingStore(store.NewMemory())

	l := New(counting)
	ctx := context.Background()

	value, err := l.Load(ctx, KindMemberTypeByID, store.MemberTypeBasic)()
	require.NoError(t, err)
	tier, ok := value.(*store.MemberType)
	require.True(t, ok)
	assert.Equal(t, store.MemberTypeBasic, tier.ID)

	// Same key from another branch of the selection tree: served from cache.
	value, err = l.Load(ctx, KindMemberTypeByID, store.MemberTypeBasic)()
	require.NoError(t, err)
	assert.Equal(t, tier, value)

	assert.Equal(t, 1, counting.count("MemberTypesByIDs"))
	assert.EqualValues(t, 1, l.CacheHits())
}

func TestLoadCachesAbsenceWithoutRequerying(t *testing.T) {
	counting := newCountingStore(store.NewMemory())
	users := seedUsers(t, counting, 1)

	l := New(counting)
	ctx := context.Background()

	// The user has no profile: the loader records explicit absence.
	value, err := l.Load(ctx, KindProfileByUserID, users[0].ID)()
	require.NoError(t, err)
	assert.Nil(t, value)

	value, err = l.Load(ctx, KindProfileByUserID, users[0].ID)()
	require.NoError(t, err)
	assert.Nil(t, value)

	assert.Equal(t, 1, counting.count("ProfilesByUserIDs"))
}

func TestLoadStartsFreshBatchAfterDispatch(t *testing.T) {
	counting := newCountingStore(store.NewMemory())
	users := seedUsers(t, counting, 2)

	l := New(counting)
	ctx := context.Background()

	_, err := l.Load(ctx, KindPostsByAuthorID, users[0].ID)()
	require.NoError(t, err)

	// A load issued after the first dispatch belongs to a new batch.
	_, err = l.Load(ctx, KindPostsByAuthorID, users[1].ID)()
	require.NoError(t, err)

	assert.Equal(t, 2, counting.count("PostsByAuthorIDs"))
	assert.EqualValues(t, 2, l.Dispatches())
}

func TestLoaderContext(t *testing.T) {
	t.Run("round trips through context", func(t *testing.T) {
		l := New(store.NewMemory())
		ctx := NewContext(context.Background(), l)

		got, ok := FromContext(ctx)
		require.True(t, ok)
		assert.Same(t, l, got)
	})

	t.Run("absent from bare context", func(t *testing.T) {
		got, ok := FromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, got)
	})
}
