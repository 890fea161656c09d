// Package store persists the social domain entities and exposes the batched
// relation lookups the GraphQL layer needs to avoid per-row fetches.
package store

import (
	"context"
	"errors"
)

// Sentinel errors reported by every Store implementation. Callers distinguish
// a missing row from a uniqueness or referential violation through errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConstraint = errors.New("constraint violation")
)

// Membership tier identifiers form a closed enumeration.
const (
	MemberTypeBasic    = "BASIC"
	MemberTypeBusiness = "BUSINESS"
)

// MemberType is a membership tier referenced by profiles.
type MemberType struct {
	ID                 string
	Discount           float64
	PostsLimitPerMonth int
}

// User is an account holder. IDs are immutable once created.
type User struct {
	ID      string
	Name    string
	Balance float64
}

// Profile extends a user with personal details. UserID is unique, enforcing
// the 1:1 relation with User.
type Profile struct {
	ID           string
	IsMale       bool
	YearOfBirth  int
	MemberTypeID string
	UserID       string
}

// Post is authored by a single user.
type Post struct {
	ID       string
	Title    string
	Content  string
	AuthorID string
}

// Subscription is the "subscriber follows author" edge between two users.
// The (SubscriberID, AuthorID) pair is unique.
type Subscription struct {
	SubscriberID string
	AuthorID     string
}

// CreateUser is the payload for creating a user.
type CreateUser struct {
	Name    string  `mapstructure:"name"`
	Balance float64 `mapstructure:"balance"`
}

// ChangeUser is a partial update; nil fields are left untouched.
type ChangeUser struct {
	Name    *string  `mapstructure:"name"`
	Balance *float64 `mapstructure:"balance"`
}

// CreatePost is the payload for creating a post.
type CreatePost struct {
	Title    string `mapstructure:"title"`
	Content  string `mapstructure:"content"`
	AuthorID string `mapstructure:"authorId"`
}

// ChangePost is a partial update; nil fields are left untouched.
type ChangePost struct {
	Title   *string `mapstructure:"title"`
	Content *string `mapstructure:"content"`
}

// CreateProfile is the payload for creating a profile.
type CreateProfile struct {
	UserID       string `mapstructure:"userId"`
	IsMale       bool   `mapstructure:"isMale"`
	YearOfBirth  int    `mapstructure:"yearOfBirth"`
	MemberTypeID string `mapstructure:"memberTypeId"`
}

// ChangeProfile is a partial update; nil fields are left untouched.
type ChangeProfile struct {
	IsMale       *bool   `mapstructure:"isMale"`
	YearOfBirth  *int    `mapstructure:"yearOfBirth"`
	MemberTypeID *string `mapstructure:"memberTypeId"`
}

// Store is the data access contract consumed by the GraphQL layer. Single-row
// lookups report ErrNotFound for a missing id; writes report ErrConstraint
// when a uniqueness or referential rule is violated. The *ByIDs methods are
// the batch entry points used by the per-request loader: one call resolves a
// full set of distinct keys, and keys without rows are simply absent from the
// returned map.
type Store interface {
	MemberTypes(ctx context.Context) ([]MemberType, error)
	MemberTypeByID(ctx context.Context, id string) (*MemberType, error)
	MemberTypesByIDs(ctx context.Context, ids []string) (map[string]MemberType, error)

	Users(ctx context.Context) ([]User, error)
	UserByID(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, data CreateUser) (*User, error)
	UpdateUser(ctx context.Context, id string, data ChangeUser) (*User, error)
	DeleteUser(ctx context.Context, id string) error

	Posts(ctx context.Context) ([]Post, error)
	PostByID(ctx context.Context, id string) (*Post, error)
	CreatePost(ctx context.Context, data CreatePost) (*Post, error)
	UpdatePost(ctx context.Context, id string, data ChangePost) (*Post, error)
	DeletePost(ctx context.Context, id string) error
	PostsByAuthorIDs(ctx context.Context, authorIDs []string) (map[string][]Post, error)

	Profiles(ctx context.Context) ([]Profile, error)
	ProfileByID(ctx context.Context, id string) (*Profile, error)
	CreateProfile(ctx context.Context, data CreateProfile) (*Profile, error)
	UpdateProfile(ctx context.Context, id string, data ChangeProfile) (*Profile, error)
	DeleteProfile(ctx context.Context, id string) error
	ProfilesByUserIDs(ctx context.Context, userIDs []string) (map[string]Profile, error)

	Subscribe(ctx context.Context, subscriberID, authorID string) error
	Unsubscribe(ctx context.Context, subscriberID, authorID string) error
	AuthorsBySubscriberIDs(ctx context.Context, subscriberIDs []string) (map[string][]User, error)
	SubscribersByAuthorIDs(ctx context.Context, authorIDs []string) (map[string][]User, error)
}

// ValidMemberTypeID reports whether id belongs to the closed tier enumeration.
func ValidMemberTypeID(id string) bool {
	return id == MemberTypeBasic || id == MemberTypeBusiness
}
