package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialgraph/internal/gqlrequest"
	"socialgraph/internal/schema"
	"socialgraph/internal/store"
)

// countingStore records how many times each store method runs so tests can
// assert on batching and on rejected requests never reaching the store.
type countingStore struct {
	store.Store

	mu    sync.Mutex
	calls map[string]int
}

func newCountingStore() *countingStore {
	return &countingStore{Store: store.NewMemory(), calls: map[string]int{}}
}

func (c *countingStore) record(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
}

func (c *countingStore) count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *countingStore) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func (c *countingStore) Users(ctx context.Context) ([]store.User, error) {
	c.record("Users")
	return c.Store.Users(ctx)
}

func (c *countingStore) UserByID(ctx context.Context, id string) (*store.User, error) {
	c.record("UserByID")
	return c.Store.UserByID(ctx, id)
}

func (c *countingStore) MemberTypeByID(ctx context.Context, id string) (*store.MemberType, error) {
	c.record("MemberTypeByID")
	return c.Store.MemberTypeByID(ctx, id)
}

func (c *countingStore) PostsByAuthorIDs(ctx context.Context, authorIDs []string) (map[string][]store.Post, error) {
	c.record("PostsByAuthorIDs")
	return c.Store.PostsByAuthorIDs(ctx, authorIDs)
}

func (c *countingStore) ProfilesByUserIDs(ctx context.Context, userIDs []string) (map[string]store.Profile, error) {
	c.record("ProfilesByUserIDs")
	return c.Store.ProfilesByUserIDs(ctx, userIDs)
}

func (c *countingStore) Subscribe(ctx context.Context, subscriberID, authorID string) error {
	c.record("Subscribe")
	return c.Store.Subscribe(ctx, subscriberID, authorID)
}

func newTestEngine(t *testing.T, opts Options) (*Engine, *countingStore) {
	t.Helper()
	cs := newCountingStore()
	s, err := schema.Build(schema.Dependencies{Store: cs})
	require.NoError(t, err)
	return New(s, cs, opts), cs
}

func execute(e *Engine, query string) *Response {
	return e.Execute(context.Background(), gqlrequest.Envelope{Query: query})
}

func dataField(t *testing.T, resp *Response, field string) interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "response data is not an object: %#v", resp.Data)
	return data[field]
}

func seedUser(t *testing.T, cs *countingStore, name string) *store.User {
	t.Helper()
	u, err := cs.Store.CreateUser(context.Background(), store.CreateUser{Name: name, Balance: 10})
	require.NoError(t, err)
	return u
}

func TestExecuteSyntaxError(t *testing.T) {
	e, cs := newTestEngine(t, Options{})

	resp := execute(e, `{ users {`)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeParseFailed, resp.Errors[0].Extensions["code"])
	assert.Nil(t, resp.Data)
	assert.Zero(t, cs.total(), "a rejected request must not reach the store")
}

func TestExecuteEmptyQuery(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	resp := execute(e, "   ")

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeParseFailed, resp.Errors[0].Extensions["code"])
}

func TestExecuteValidationErrorsCollect(t *testing.T) {
	e, cs := newTestEngine(t, Options{})

	// Both the unknown field and the out-of-enum literal must be reported
	// in a single response, and nothing may execute.
	resp := execute(e, `{ users { id nickname } memberType(id: GOLD) { id } }`)

	require.GreaterOrEqual(t, len(resp.Errors), 2)
	for _, fe := range resp.Errors {
		assert.Equal(t, CodeValidationFailed, fe.Extensions["code"])
	}
	assert.Nil(t, resp.Data)
	assert.Zero(t, cs.total(), "validation failures must suppress execution")
}

func TestExecuteDepthLimit(t *testing.T) {
	nested := func(levels int) string {
		q := "id"
		for i := 0; i < levels; i++ {
			q = fmt.Sprintf("subscribedToUser { %s }", q)
		}
		return fmt.Sprintf("{ users { %s } }", q)
	}

	t.Run("depth above the limit is rejected without execution", func(t *testing.T) {
		e, cs := newTestEngine(t, Options{})

		resp := execute(e, nested(5)) // users + 5 nested levels = depth 6

		require.Len(t, resp.Errors, 1)
		assert.Equal(t, CodeDepthLimitExceeded, resp.Errors[0].Extensions["code"])
		assert.Contains(t, resp.Errors[0].Message, "depth 6")
		assert.Contains(t, resp.Errors[0].Message, "users.subscribedToUser")
		assert.Nil(t, resp.Data)
		assert.Zero(t, cs.total())
	})

	t.Run("depth equal to the limit executes", func(t *testing.T) {
		e, cs := newTestEngine(t, Options{})

		resp := execute(e, nested(4)) // depth 5 == limit

		assert.Empty(t, resp.Errors)
		assert.NotNil(t, resp.Data)
		assert.Equal(t, 1, cs.count("Users"))
	})

	t.Run("configured limit overrides the default", func(t *testing.T) {
		e, _ := newTestEngine(t, Options{MaxDepth: 2})

		resp := execute(e, nested(2)) // depth 3 > limit 2
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, CodeDepthLimitExceeded, resp.Errors[0].Extensions["code"])
	})
}

func TestExecuteMutationThenQuery(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	resp := execute(e, `mutation {
		first: createUser(dto: {name: "alice", balance: 1.5}) { id name }
		second: createUser(dto: {name: "bob", balance: 2.0}) { id name }
	}`)
	require.Empty(t, resp.Errors)

	first, ok := dataField(t, resp, "first").(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice", first["name"])

	query := execute(e, `{ users { name } }`)
	require.Empty(t, query.Errors)
	users, ok := dataField(t, query, "users").([]interface{})
	require.True(t, ok)
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.(map[string]interface{})["name"].(string))
	}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)
}

func TestExecuteBatchesRelationLoads(t *testing.T) {
	e, cs := newTestEngine(t, Options{})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		u := seedUser(t, cs, fmt.Sprintf("author-%d", i))
		_, err := cs.Store.CreatePost(ctx, store.CreatePost{
			Title:    fmt.Sprintf("post-%d", i),
			Content:  "body",
			AuthorID: u.ID,
		})
		require.NoError(t, err)
	}

	resp := execute(e, `{ users { id posts { id title } } }`)

	require.Empty(t, resp.Errors)
	users, ok := dataField(t, resp, "users").([]interface{})
	require.True(t, ok)
	assert.Len(t, users, 10)
	assert.Equal(t, 1, cs.count("PostsByAuthorIDs"),
		"all ten authors' posts must load through one store call")
}

func TestExecuteErrorIsLocalToFailingNode(t *testing.T) {
	e, cs := newTestEngine(t, Options{})

	alice := seedUser(t, cs, "alice")
	bob := seedUser(t, cs, "bob")
	carol := seedUser(t, cs, "carol")
	require.NoError(t, cs.Store.Subscribe(context.Background(), alice.ID, bob.ID))

	resp := execute(e, fmt.Sprintf(`mutation {
		ok: subscribeTo(userId: %q, authorId: %q)
		dup: subscribeTo(userId: %q, authorId: %q)
	}`, carol.ID, bob.ID, alice.ID, bob.ID))

	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "already subscribed")
	assert.Equal(t, []interface{}{"dup"}, resp.Errors[0].Path)

	// The failing sibling must not poison the one that succeeded.
	assert.Equal(t, "", dataField(t, resp, "ok"))
	assert.Nil(t, dataField(t, resp, "dup"))
	assert.Equal(t, 2, cs.count("Subscribe"), "both mutations must run despite the failure")
}

func TestExecuteDeleteMissingUser(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	resp := execute(e, `mutation { deleteUser(id: "123e4567-e89b-12d3-a456-426614174000") }`)

	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "not found")
	assert.NotNil(t, resp.Data, "a well-formed request keeps its data envelope")
	assert.Nil(t, dataField(t, resp, "deleteUser"))
}

func TestExecuteAbsentRelationIsNullWithoutError(t *testing.T) {
	e, cs := newTestEngine(t, Options{})
	seedUser(t, cs, "loner")

	resp := execute(e, `{ users { name profile { id } } }`)

	require.Empty(t, resp.Errors)
	users, ok := dataField(t, resp, "users").([]interface{})
	require.True(t, ok)
	require.Len(t, users, 1)
	assert.Nil(t, users[0].(map[string]interface{})["profile"])
}

func TestExecuteVariables(t *testing.T) {
	t.Run("variables flow into arguments", func(t *testing.T) {
		e, cs := newTestEngine(t, Options{})
		u := seedUser(t, cs, "alice")

		resp := e.Execute(context.Background(), gqlrequest.Envelope{
			Query:        `query ($id: UUID!) { user(id: $id) { name } }`,
			VariablesRaw: []byte(fmt.Sprintf(`{"id": %q}`, u.ID)),
		})

		require.Empty(t, resp.Errors)
		user, ok := dataField(t, resp, "user").(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "alice", user["name"])
	})

	t.Run("malformed variables are rejected", func(t *testing.T) {
		e, cs := newTestEngine(t, Options{})

		resp := e.Execute(context.Background(), gqlrequest.Envelope{
			Query:        `query ($id: UUID!) { user(id: $id) { name } }`,
			VariablesRaw: []byte(`[1, 2]`),
		})

		require.Len(t, resp.Errors, 1)
		assert.Equal(t, CodeBadRequest, resp.Errors[0].Extensions["code"])
		assert.Zero(t, cs.total())
	})
}

func TestExecuteOperationSelection(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	document := `
		query Tiers { memberTypes { id } }
		query People { users { id } }`

	t.Run("named operation runs", func(t *testing.T) {
		resp := e.Execute(context.Background(), gqlrequest.Envelope{
			Query:         document,
			OperationName: "Tiers",
		})
		require.Empty(t, resp.Errors)
		tiers, ok := dataField(t, resp, "memberTypes").([]interface{})
		require.True(t, ok)
		assert.Len(t, tiers, 2)
	})

	t.Run("ambiguous document is rejected", func(t *testing.T) {
		resp := e.Execute(context.Background(), gqlrequest.Envelope{Query: document})
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, CodeOperationResolution, resp.Errors[0].Extensions["code"])
	})
}
