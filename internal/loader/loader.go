// Package loader coalesces per-row relation lookups into batched store calls.
//
// A Loader lives for exactly one request. Relation resolvers call Load, which
// registers the key and returns a thunk; the GraphQL executor collects every
// thunk produced while resolving one level of the selection tree before
// invoking any of them, so the first thunk to run dispatches a single store
// call covering all keys registered for that relation. Results are cached by
// (kind, key) for the rest of the request, with an explicit absent marker for
// keys that matched no row.
package loader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"socialgraph/internal/store"
)

// Kind identifies a relation resolver whose lookups can be batched.
type Kind string

const (
	KindMemberTypeByID        Kind = "member-type-by-id"
	KindProfileByUserID       Kind = "profile-by-user-id"
	KindPostsByAuthorID       Kind = "posts-by-author-id"
	KindAuthorsBySubscriberID Kind = "authors-of-subscriber"
	KindSubscribersByAuthorID Kind = "subscribers-of-author"
)

// Thunk is a deferred value in the shape the graphql-go executor dethunks.
// It must stay an alias: the executor type-asserts on the unnamed signature.
type Thunk = func() (interface{}, error)

// FetchFunc resolves a full set of distinct keys in one store round trip.
// Keys without a matching row must be absent from the returned map.
type FetchFunc func(ctx context.Context, keys []string) (map[string]interface{}, error)

type result struct {
	value interface{}
	ok    bool
}

type batch struct {
	kind Kind
	keys []string
	seen map[string]struct{}
	once sync.Once
	err  error
}

// Hooks observes loader activity, typically to feed metrics. Either field
// may be nil.
type Hooks struct {
	Dispatched func(ctx context.Context, kind Kind, keys int)
	CacheHit   func(ctx context.Context, kind Kind)
}

// Loader batches and caches relation lookups for a single request.
type Loader struct {
	mu      sync.Mutex
	fetches map[Kind]FetchFunc
	pending map[Kind]*batch
	cache   map[Kind]map[string]result
	hooks   Hooks

	dispatches int32
	cacheHits  int32
	keysLoaded int32
}

// New creates a request-scoped Loader resolving relations against st.
func New(st store.Store) *Loader {
	l := &Loader{
		pending: make(map[Kind]*batch),
		cache:   make(map[Kind]map[string]result),
	}
	l.fetches = map[Kind]FetchFunc{
		KindMemberTypeByID: func(ctx context.Context, keys []string) (map[string]interface{}, error) {
			tiers, err := st.MemberTypesByIDs(ctx, keys)
			if err != nil {
				return nil, err
			}
			out := make(map[string]interface{}, len(tiers))
			for id, mt := range tiers {
				tier := mt
				out[id] = &tier
			}
			return out, nil
		},
		KindProfileByUserID: func(ctx context.Context, keys []string) (map[string]interface{}, error) {
			profiles, err := st.ProfilesByUserIDs(ctx, keys)
			if err != nil {
				return nil, err
			}
			out := make(map[string]interface{}, len(profiles))
			for id, p := range profiles {
				profile := p
				out[id] = &profile
			}
			return out, nil
		},
		KindPostsByAuthorID: func(ctx context.Context, keys []string) (map[string]interface{}, error) {
			posts, err := st.PostsByAuthorIDs(ctx, keys)
			if err != nil {
				return nil, err
			}
			out := make(map[string]interface{}, len(keys))
			for _, key := range keys {
				out[key] = posts[key]
			}
			return out, nil
		},
		KindAuthorsBySubscriberID: func(ctx context.Context, keys []string) (map[string]interface{}, error) {
			authors, err := st.AuthorsBySubscriberIDs(ctx, keys)
			if err != nil {
				return nil, err
			}
			out := make(map[string]interface{}, len(keys))
			for _, key := range keys {
				out[key] = authors[key]
			}
			return out, nil
		},
		KindSubscribersByAuthorID: func(ctx context.Context, keys []string) (map[string]interface{}, error) {
			subscribers, err := st.SubscribersByAuthorIDs(ctx, keys)
			if err != nil {
				return nil, err
			}
			out := make(map[string]interface{}, len(keys))
			for _, key := range keys {
				out[key] = subscribers[key]
			}
			return out, nil
		},
	}
	return l
}

// SetHooks installs observation callbacks. Call before the Loader is shared
// with resolvers.
func (l *Loader) SetHooks(hooks Hooks) {
	l.hooks = hooks
}

// Load registers key under the relation kind and returns a thunk producing
// its value. A list-valued relation with no rows yields nil; a missing
// single-valued row yields nil without error.
func (l *Loader) Load(ctx context.Context, kind Kind, key string) Thunk {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.cache[kind][key]; ok {
		atomic.AddInt32(&l.cacheHits, 1)
		if l.hooks.CacheHit != nil {
			l.hooks.CacheHit(ctx, kind)
		}
		return func() (interface{}, error) {
			return cached.value, nil
		}
	}

	b, ok := l.pending[kind]
	if !ok {
		b = &batch{kind: kind, seen: make(map[string]struct{})}
		l.pending[kind] = b
	}
	if _, dup := b.seen[key]; !dup {
		b.seen[key] = struct{}{}
		b.keys = append(b.keys, key)
	}

	return func() (interface{}, error) {
		l.dispatch(ctx, b)
		if b.err != nil {
			return nil, b.err
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		cached, ok := l.cache[kind][key]
		if !ok {
			return nil, fmt.Errorf("loader: %s missing result for key %s", kind, key)
		}
		return cached.value, nil
	}
}

// dispatch runs the batch's single store call. The first thunk of a batch to
// be invoked performs the fetch; the rest observe the populated cache.
func (l *Loader) dispatch(ctx context.Context, b *batch) {
	b.once.Do(func() {
		l.mu.Lock()
		// Later Loads for this kind must start a new batch.
		if l.pending[b.kind] == b {
			delete(l.pending, b.kind)
		}
		keys := b.keys
		fetch := l.fetches[b.kind]
		l.mu.Unlock()

		if fetch == nil {
			b.err = fmt.Errorf("loader: no fetch registered for kind %s", b.kind)
			return
		}

		values, err := fetch(ctx, keys)
		if err != nil {
			b.err = err
			return
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		atomic.AddInt32(&l.dispatches, 1)
		atomic.AddInt32(&l.keysLoaded, int32(len(keys)))
		if l.hooks.Dispatched != nil {
			l.hooks.Dispatched(ctx, b.kind, len(keys))
		}
		kindCache, ok := l.cache[b.kind]
		if !ok {
			kindCache = make(map[string]result)
			l.cache[b.kind] = kindCache
		}
		for _, key := range keys {
			value, found := values[key]
			// Missing keys are cached as explicitly absent so repeated
			// requests for them never re-query.
			kindCache[key] = result{value: value, ok: found}
		}
	})
}

// Dispatches returns the number of batched store calls issued so far.
func (l *Loader) Dispatches() int32 {
	return atomic.LoadInt32(&l.dispatches)
}

// CacheHits returns the number of Loads served from the per-request cache.
func (l *Loader) CacheHits() int32 {
	return atomic.LoadInt32(&l.cacheHits)
}

// KeysLoaded returns the total number of distinct keys fetched.
func (l *Loader) KeysLoaded() int32 {
	return atomic.LoadInt32(&l.keysLoaded)
}

type loaderContextKey struct{}

// NewContext injects a request-scoped Loader for relation resolvers.
func NewContext(ctx context.Context, l *Loader) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loaderContextKey{}, l)
}

// FromContext retrieves the request's Loader, if one was injected.
func FromContext(ctx context.Context) (*Loader, bool) {
	if ctx == nil {
		return nil, false
	}
	l, ok := ctx.Value(loaderContextKey{}).(*Loader)
	return l, ok
}
