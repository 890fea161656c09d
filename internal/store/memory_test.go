package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, m *Memory, name string) *User {
	t.Helper()
	u, err := m.CreateUser(context.Background(), CreateUser{Name: name, Balance: 100})
	require.NoError(t, err)
	return u
}

func TestMemoryMemberTypes(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	t.Run("seeded with both tiers in order", func(t *testing.T) {
		tiers, err := m.MemberTypes(ctx)
		require.NoError(t, err)
		require.Len(t, tiers, 2)
		assert.Equal(t, MemberTypeBasic, tiers[0].ID)
		assert.Equal(t, MemberTypeBusiness, tiers[1].ID)
	})

	t.Run("lookup by id", func(t *testing.T) {
		mt, err := m.MemberTypeByID(ctx, MemberTypeBusiness)
		require.NoError(t, err)
		assert.Equal(t, 100, mt.PostsLimitPerMonth)
	})

	t.Run("unknown id is ErrNotFound", func(t *testing.T) {
		_, err := m.MemberTypeByID(ctx, "GOLD")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("batch lookup skips unknown ids", func(t *testing.T) {
		got, err := m.MemberTypesByIDs(ctx, []string{MemberTypeBasic, "GOLD"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Contains(t, got, MemberTypeBasic)
	})
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("create assigns a unique id", func(t *testing.T) {
		m := NewMemory()
		a := seedUser(t, m, "alice")
		b := seedUser(t, m, "bob")
		assert.NotEqual(t, a.ID, b.ID)

		got, err := m.UserByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Name)
	})

	t.Run("update touches only the provided fields", func(t *testing.T) {
		m := NewMemory()
		u := seedUser(t, m, "alice")

		name := "alicia"
		updated, err := m.UpdateUser(ctx, u.ID, ChangeUser{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "alicia", updated.Name)
		assert.Equal(t, 100.0, updated.Balance)
	})

	t.Run("update of a missing user is ErrNotFound", func(t *testing.T) {
		m := NewMemory()
		name := "nope"
		_, err := m.UpdateUser(ctx, "missing", ChangeUser{Name: &name})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete cascades to profiles, posts, and subscriptions", func(t *testing.T) {
		m := NewMemory()
		author := seedUser(t, m, "author")
		fan := seedUser(t, m, "fan")

		_, err := m.CreateProfile(ctx, CreateProfile{UserID: author.ID, YearOfBirth: 1990, MemberTypeID: MemberTypeBasic})
		require.NoError(t, err)
		post, err := m.CreatePost(ctx, CreatePost{Title: "t", Content: "c", AuthorID: author.ID})
		require.NoError(t, err)
		require.NoError(t, m.Subscribe(ctx, fan.ID, author.ID))

		require.NoError(t, m.DeleteUser(ctx, author.ID))

		_, err = m.PostByID(ctx, post.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		profiles, err := m.ProfilesByUserIDs(ctx, []string{author.ID})
		require.NoError(t, err)
		assert.Empty(t, profiles)

		authors, err := m.AuthorsBySubscriberIDs(ctx, []string{fan.ID})
		require.NoError(t, err)
		assert.Empty(t, authors)
	})

	t.Run("delete of a missing user is ErrNotFound", func(t *testing.T) {
		m := NewMemory()
		assert.ErrorIs(t, m.DeleteUser(ctx, "missing"), ErrNotFound)
	})
}

func TestMemoryPosts(t *testing.T) {
	ctx := context.Background()

	t.Run("create requires an existing author", func(t *testing.T) {
		m := NewMemory()
		_, err := m.CreatePost(ctx, CreatePost{Title: "t", AuthorID: "ghost"})
		assert.ErrorIs(t, err, ErrConstraint)
	})

	t.Run("batch lookup groups by author", func(t *testing.T) {
		m := NewMemory()
		a := seedUser(t, m, "a")
		b := seedUser(t, m, "b")
		for i := 0; i < 3; i++ {
			_, err := m.CreatePost(ctx, CreatePost{Title: "t", AuthorID: a.ID})
			require.NoError(t, err)
		}
		_, err := m.CreatePost(ctx, CreatePost{Title: "t", AuthorID: b.ID})
		require.NoError(t, err)

		got, err := m.PostsByAuthorIDs(ctx, []string{a.ID, b.ID, "ghost"})
		require.NoError(t, err)
		assert.Len(t, got[a.ID], 3)
		assert.Len(t, got[b.ID], 1)
		assert.NotContains(t, got, "ghost")
	})
}

func TestMemoryProfiles(t *testing.T) {
	ctx := context.Background()

	t.Run("one profile per user", func(t *testing.T) {
		m := NewMemory()
		u := seedUser(t, m, "alice")

		_, err := m.CreateProfile(ctx, CreateProfile{UserID: u.ID, YearOfBirth: 1990, MemberTypeID: MemberTypeBasic})
		require.NoError(t, err)

		_, err = m.CreateProfile(ctx, CreateProfile{UserID: u.ID, YearOfBirth: 1991, MemberTypeID: MemberTypeBasic})
		assert.ErrorIs(t, err, ErrConstraint)
		assert.ErrorContains(t, err, "already has a profile")
	})

	t.Run("profile requires an existing user", func(t *testing.T) {
		m := NewMemory()
		_, err := m.CreateProfile(ctx, CreateProfile{UserID: "ghost", MemberTypeID: MemberTypeBasic})
		assert.ErrorIs(t, err, ErrConstraint)
	})

	t.Run("profile requires a known member type", func(t *testing.T) {
		m := NewMemory()
		u := seedUser(t, m, "alice")
		_, err := m.CreateProfile(ctx, CreateProfile{UserID: u.ID, MemberTypeID: "GOLD"})
		assert.ErrorIs(t, err, ErrConstraint)
	})

	t.Run("update rejects an unknown member type", func(t *testing.T) {
		m := NewMemory()
		u := seedUser(t, m, "alice")
		p, err := m.CreateProfile(ctx, CreateProfile{UserID: u.ID, MemberTypeID: MemberTypeBasic})
		require.NoError(t, err)

		bad := "GOLD"
		_, err = m.UpdateProfile(ctx, p.ID, ChangeProfile{MemberTypeID: &bad})
		assert.ErrorIs(t, err, ErrConstraint)

		good := MemberTypeBusiness
		updated, err := m.UpdateProfile(ctx, p.ID, ChangeProfile{MemberTypeID: &good})
		require.NoError(t, err)
		assert.Equal(t, MemberTypeBusiness, updated.MemberTypeID)
	})

	t.Run("batch lookup is keyed by user id", func(t *testing.T) {
		m := NewMemory()
		a := seedUser(t, m, "a")
		b := seedUser(t, m, "b")
		_, err := m.CreateProfile(ctx, CreateProfile{UserID: a.ID, MemberTypeID: MemberTypeBasic})
		require.NoError(t, err)

		got, err := m.ProfilesByUserIDs(ctx, []string{a.ID, b.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, a.ID, got[a.ID].UserID)
	})
}

func TestMemorySubscriptions(t *testing.T) {
	ctx := context.Background()

	t.Run("self subscription is rejected", func(t *testing.T) {
		m := NewMemory()
		u := seedUser(t, m, "alice")
		err := m.Subscribe(ctx, u.ID, u.ID)
		assert.ErrorIs(t, err, ErrConstraint)
		assert.ErrorContains(t, err, "subscribe to self")
	})

	t.Run("duplicate subscription is rejected", func(t *testing.T) {
		m := NewMemory()
		a := seedUser(t, m, "a")
		b := seedUser(t, m, "b")
		require.NoError(t, m.Subscribe(ctx, a.ID, b.ID))

		err := m.Subscribe(ctx, a.ID, b.ID)
		assert.ErrorIs(t, err, ErrConstraint)
		assert.ErrorContains(t, err, "already subscribed")
	})

	t.Run("the edge is directional", func(t *testing.T) {
		m := NewMemory()
		a := seedUser(t, m, "a")
		b := seedUser(t, m, "b")
		require.NoError(t, m.Subscribe(ctx, a.ID, b.ID))
		// The reverse direction is a distinct edge.
		require.NoError(t, m.Subscribe(ctx, b.ID, a.ID))
	})

	t.Run("unsubscribe of a missing edge is ErrNotFound", func(t *testing.T) {
		m := NewMemory()
		a := seedUser(t, m, "a")
		b := seedUser(t, m, "b")
		assert.ErrorIs(t, m.Unsubscribe(ctx, a.ID, b.ID), ErrNotFound)
	})

	t.Run("batch lookups resolve both directions", func(t *testing.T) {
		m := NewMemory()
		fan := seedUser(t, m, "fan")
		one := seedUser(t, m, "one")
		two := seedUser(t, m, "two")
		require.NoError(t, m.Subscribe(ctx, fan.ID, one.ID))
		require.NoError(t, m.Subscribe(ctx, fan.ID, two.ID))

		authors, err := m.AuthorsBySubscriberIDs(ctx, []string{fan.ID})
		require.NoError(t, err)
		require.Len(t, authors[fan.ID], 2)

		subs, err := m.SubscribersByAuthorIDs(ctx, []string{one.ID})
		require.NoError(t, err)
		require.Len(t, subs[one.ID], 1)
		assert.Equal(t, fan.ID, subs[one.ID][0].ID)
	})
}
