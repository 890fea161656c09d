package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"socialgraph/internal/uuidutil"
)

// Memory is a mutex-guarded in-memory Store. It backs the "memory" storage
// driver for local development and gives tests a store whose calls can be
// counted. It enforces the same invariants as the SQL store: unique
// Profile.UserID, referential integrity on author/user ids, and a unique
// subscription pair.
type Memory struct {
	mu            sync.RWMutex
	memberTypes   map[string]MemberType
	users         map[string]User
	profiles      map[string]Profile
	posts         map[string]Post
	subscriptions map[Subscription]struct{}
}

// NewMemory creates an in-memory store seeded with the two membership tiers.
func NewMemory() *Memory {
	return &Memory{
		memberTypes: map[string]MemberType{
			MemberTypeBasic:    {ID: MemberTypeBasic, Discount: 2.5, PostsLimitPerMonth: 20},
			MemberTypeBusiness: {ID: MemberTypeBusiness, Discount: 7.5, PostsLimitPerMonth: 100},
		},
		users:         map[string]User{},
		profiles:      map[string]Profile{},
		posts:         map[string]Post{},
		subscriptions: map[Subscription]struct{}{},
	}
}

var _ Store = (*Memory)(nil)

// --- member types ---

func (m *Memory) MemberTypes(ctx context.Context) ([]MemberType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]MemberType, 0, len(m.memberTypes))
	for _, mt := range m.memberTypes {
		out = append(out, mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) MemberTypeByID(ctx context.Context, id string) (*MemberType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mt, ok := m.memberTypes[id]
	if !ok {
		return nil, fmt.Errorf("member type %s: %w", id, ErrNotFound)
	}
	return &mt, nil
}

func (m *Memory) MemberTypesByIDs(ctx context.Context, ids []string) (map[string]MemberType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]MemberType, len(ids))
	for _, id := range ids {
		if mt, ok := m.memberTypes[id]; ok {
			out[id] = mt
		}
	}
	return out, nil
}

// --- users ---

func (m *Memory) Users(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UserByID(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (m *Memory) CreateUser(ctx context.Context, data CreateUser) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := User{ID: uuidutil.New(), Name: data.Name, Balance: data.Balance}
	m.users[u.ID] = u
	return &u, nil
}

func (m *Memory) UpdateUser(ctx context.Context, id string, data ChangeUser) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if data.Name != nil {
		u.Name = *data.Name
	}
	if data.Balance != nil {
		u.Balance = *data.Balance
	}
	m.users[id] = u
	return &u, nil
}

func (m *Memory) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	delete(m.users, id)

	// Cascade the way the relational schema would.
	for pid, p := range m.profiles {
		if p.UserID == id {
			delete(m.profiles, pid)
		}
	}
	for pid, p := range m.posts {
		if p.AuthorID == id {
			delete(m.posts, pid)
		}
	}
	for edge := range m.subscriptions {
		if edge.SubscriberID == id || edge.AuthorID == id {
			delete(m.subscriptions, edge)
		}
	}
	return nil
}

// --- posts ---

func (m *Memory) Posts(ctx context.Context) ([]Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) PostByID(ctx context.Context, id string) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (m *Memory) CreatePost(ctx context.Context, data CreatePost) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[data.AuthorID]; !ok {
		return nil, fmt.Errorf("%w: author %s does not exist", ErrConstraint, data.AuthorID)
	}
	p := Post{ID: uuidutil.New(), Title: data.Title, Content: data.Content, AuthorID: data.AuthorID}
	m.posts[p.ID] = p
	return &p, nil
}

func (m *Memory) UpdatePost(ctx context.Context, id string, data ChangePost) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if data.Title != nil {
		p.Title = *data.Title
	}
	if data.Content != nil {
		p.Content = *data.Content
	}
	m.posts[id] = p
	return &p, nil
}

func (m *Memory) DeletePost(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[id]; !ok {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	delete(m.posts, id)
	return nil
}

func (m *Memory) PostsByAuthorIDs(ctx context.Context, authorIDs []string) (map[string][]Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[string]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		wanted[id] = struct{}{}
	}

	out := make(map[string][]Post, len(authorIDs))
	for _, p := range m.posts {
		if _, ok := wanted[p.AuthorID]; ok {
			out[p.AuthorID] = append(out[p.AuthorID], p)
		}
	}
	for id := range out {
		posts := out[id]
		sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
		out[id] = posts
	}
	return out, nil
}

// --- profiles ---

func (m *Memory) Profiles(ctx context.Context) ([]Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ProfileByID(ctx context.Context, id string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (m *Memory) CreateProfile(ctx context.Context, data CreateProfile) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[data.UserID]; !ok {
		return nil, fmt.Errorf("%w: user %s does not exist", ErrConstraint, data.UserID)
	}
	if !ValidMemberTypeID(data.MemberTypeID) {
		return nil, fmt.Errorf("%w: unknown member type %s", ErrConstraint, data.MemberTypeID)
	}
	for _, existing := range m.profiles {
		if existing.UserID == data.UserID {
			return nil, fmt.Errorf("%w: user %s already has a profile", ErrConstraint, data.UserID)
		}
	}

	p := Profile{
		ID:           uuidutil.New(),
		IsMale:       data.IsMale,
		YearOfBirth:  data.YearOfBirth,
		MemberTypeID: data.MemberTypeID,
		UserID:       data.UserID,
	}
	m.profiles[p.ID] = p
	return &p, nil
}

func (m *Memory) UpdateProfile(ctx context.Context, id string, data ChangeProfile) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if data.IsMale != nil {
		p.IsMale = *data.IsMale
	}
	if data.YearOfBirth != nil {
		p.YearOfBirth = *data.YearOfBirth
	}
	if data.MemberTypeID != nil {
		if !ValidMemberTypeID(*data.MemberTypeID) {
			return nil, fmt.Errorf("%w: unknown member type %s", ErrConstraint, *data.MemberTypeID)
		}
		p.MemberTypeID = *data.MemberTypeID
	}
	m.profiles[id] = p
	return &p, nil
}

func (m *Memory) DeleteProfile(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[id]; !ok {
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	delete(m.profiles, id)
	return nil
}

func (m *Memory) ProfilesByUserIDs(ctx context.Context, userIDs []string) (map[string]Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}

	out := make(map[string]Profile, len(userIDs))
	for _, p := range m.profiles {
		if _, ok := wanted[p.UserID]; ok {
			out[p.UserID] = p
		}
	}
	return out, nil
}

// --- subscriptions ---

func (m *Memory) Subscribe(ctx context.Context, subscriberID, authorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Policy decision: a user cannot subscribe to itself.
	if subscriberID == authorID {
		return fmt.Errorf("%w: cannot subscribe to self", ErrConstraint)
	}
	if _, ok := m.users[subscriberID]; !ok {
		return fmt.Errorf("%w: subscriber %s does not exist", ErrConstraint, subscriberID)
	}
	if _, ok := m.users[authorID]; !ok {
		return fmt.Errorf("%w: author %s does not exist", ErrConstraint, authorID)
	}

	edge := Subscription{SubscriberID: subscriberID, AuthorID: authorID}
	if _, ok := m.subscriptions[edge]; ok {
		return fmt.Errorf("%w: already subscribed", ErrConstraint)
	}
	m.subscriptions[edge] = struct{}{}
	return nil
}

func (m *Memory) Unsubscribe(ctx context.Context, subscriberID, authorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	edge := Subscription{SubscriberID: subscriberID, AuthorID: authorID}
	if _, ok := m.subscriptions[edge]; !ok {
		return fmt.Errorf("subscription %s -> %s: %w", subscriberID, authorID, ErrNotFound)
	}
	delete(m.subscriptions, edge)
	return nil
}

func (m *Memory) AuthorsBySubscriberIDs(ctx context.Context, subscriberIDs []string) (map[string][]User, error) {
	return m.subscriptionUsers(subscriberIDs, func(edge Subscription) (parent, user string) {
		return edge.SubscriberID, edge.AuthorID
	})
}

func (m *Memory) SubscribersByAuthorIDs(ctx context.Context, authorIDs []string) (map[string][]User, error) {
	return m.subscriptionUsers(authorIDs, func(edge Subscription) (parent, user string) {
		return edge.AuthorID, edge.SubscriberID
	})
}

func (m *Memory) subscriptionUsers(parentIDs []string, split func(Subscription) (parent, user string)) (map[string][]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[string]struct{}, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = struct{}{}
	}

	out := make(map[string][]User, len(parentIDs))
	for edge := range m.subscriptions {
		parent, userID := split(edge)
		if _, ok := wanted[parent]; !ok {
			continue
		}
		if u, ok := m.users[userID]; ok {
			out[parent] = append(out[parent], u)
		}
	}
	for id := range out {
		users := out[id]
		sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
		out[id] = users
	}
	return out, nil
}
