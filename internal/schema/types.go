package schema

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"socialgraph/internal/loader"
	"socialgraph/internal/scalars"
	"socialgraph/internal/store"
)

// builder holds the type registry under construction. Types are declared as
// shells first and populated through thunked field tables, so UserType can
// reference itself via the subscription relations.
type builder struct {
	store store.Store

	uuid         *graphql.Scalar
	memberTypeID *graphql.Enum
	memberType   *graphql.Object
	post         *graphql.Object
	profile      *graphql.Object
	user         *graphql.Object

	createUserInput    *graphql.InputObject
	changeUserInput    *graphql.InputObject
	createPostInput    *graphql.InputObject
	changePostInput    *graphql.InputObject
	createProfileInput *graphql.InputObject
	changeProfileInput *graphql.InputObject
}

func newBuilder(st store.Store) *builder {
	b := &builder{store: st}

	b.uuid = scalars.UUID()

	b.memberTypeID = graphql.NewEnum(graphql.EnumConfig{
		Name:        "MemberTypeId",
		Description: "Closed set of membership tier identifiers.",
		Values: graphql.EnumValueConfigMap{
			store.MemberTypeBasic:    &graphql.EnumValueConfig{Value: store.MemberTypeBasic},
			store.MemberTypeBusiness: &graphql.EnumValueConfig{Value: store.MemberTypeBusiness},
		},
	})

	b.memberType = graphql.NewObject(graphql.ObjectConfig{
		Name: "MemberType",
		Fields: graphql.Fields{
			"id":                 &graphql.Field{Type: b.memberTypeID},
			"discount":           &graphql.Field{Type: graphql.Float},
			"postsLimitPerMonth": &graphql.Field{Type: graphql.Int},
		},
	})

	b.post = graphql.NewObject(graphql.ObjectConfig{
		Name: "PostType",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: b.uuid},
			"title":    &graphql.Field{Type: graphql.String},
			"content":  &graphql.Field{Type: graphql.String},
			"authorId": &graphql.Field{Type: b.uuid},
		},
	})

	b.profile = graphql.NewObject(graphql.ObjectConfig{
		Name: "ProfileType",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: b.uuid},
			"isMale":       &graphql.Field{Type: graphql.Boolean},
			"yearOfBirth":  &graphql.Field{Type: graphql.Int},
			"userId":       &graphql.Field{Type: b.uuid},
			"memberTypeId": &graphql.Field{Type: b.memberTypeID},
			"memberType": &graphql.Field{
				Type:    b.memberType,
				Resolve: b.resolveProfileMemberType,
			},
		},
	})

	// UserType is self-referential through the subscription relations, so its
	// field table is a thunk evaluated after the shell exists.
	b.user = graphql.NewObject(graphql.ObjectConfig{
		Name: "UserType",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":      &graphql.Field{Type: b.uuid},
				"name":    &graphql.Field{Type: graphql.String},
				"balance": &graphql.Field{Type: graphql.Float},
				"profile": &graphql.Field{
					Type:    b.profile,
					Resolve: b.resolveUserProfile,
				},
				"posts": &graphql.Field{
					Type:    graphql.NewList(b.post),
					Resolve: b.resolveUserPosts,
				},
				"userSubscribedTo": &graphql.Field{
					Type:        graphql.NewList(b.user),
					Description: "Authors this user is subscribed to.",
					Resolve:     b.resolveUserSubscribedTo,
				},
				"subscribedToUser": &graphql.Field{
					Type:        graphql.NewList(b.user),
					Description: "Users subscribed to this user.",
					Resolve:     b.resolveSubscribedToUser,
				},
			}
		}),
	})

	b.createUserInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CreateUserInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"name":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"balance": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})
	b.changeUserInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ChangeUserInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"name":    &graphql.InputObjectFieldConfig{Type: graphql.String},
			"balance": &graphql.InputObjectFieldConfig{Type: graphql.Float},
		},
	})
	b.createPostInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CreatePostInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"content":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"authorId": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(b.uuid)},
		},
	})
	b.changePostInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ChangePostInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":   &graphql.InputObjectFieldConfig{Type: graphql.String},
			"content": &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})
	b.createProfileInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CreateProfileInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"userId":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(b.uuid)},
			"isMale":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Boolean)},
			"yearOfBirth":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
			"memberTypeId": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(b.memberTypeID)},
		},
	})
	b.changeProfileInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ChangeProfileInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"isMale":       &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
			"yearOfBirth":  &graphql.InputObjectFieldConfig{Type: graphql.Int},
			"memberTypeId": &graphql.InputObjectFieldConfig{Type: b.memberTypeID},
		},
	})

	return b
}

func userFromSource(src interface{}) (*store.User, bool) {
	switch v := src.(type) {
	case *store.User:
		return v, v != nil
	case store.User:
		return &v, true
	default:
		return nil, false
	}
}

func profileFromSource(src interface{}) (*store.Profile, bool) {
	switch v := src.(type) {
	case *store.Profile:
		return v, v != nil
	case store.Profile:
		return &v, true
	default:
		return nil, false
	}
}

// resolveUserProfile resolves the 1:1 profile relation. With a loader in
// context the lookup joins the request's profile-by-user batch; otherwise it
// falls back to a direct point query. A user without a profile yields null
// with no error.
func (b *builder) resolveUserProfile(p graphql.ResolveParams) (interface{}, error) {
	user, ok := userFromSource(p.Source)
	if !ok {
		return nil, fmt.Errorf("unexpected source type %T for profile field", p.Source)
	}

	if l, ok := loader.FromContext(p.Context); ok {
		return l.Load(p.Context, loader.KindProfileByUserID, user.ID), nil
	}

	profiles, err := b.store.ProfilesByUserIDs(p.Context, []string{user.ID})
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if profile, ok := profiles[user.ID]; ok {
		return &profile, nil
	}
	return nil, nil
}

func (b *builder) resolveUserPosts(p graphql.ResolveParams) (interface{}, error) {
	user, ok := userFromSource(p.Source)
	if !ok {
		return nil, fmt.Errorf("unexpected source type %T for posts field", p.Source)
	}

	if l, ok := loader.FromContext(p.Context); ok {
		return l.Load(p.Context, loader.KindPostsByAuthorID, user.ID), nil
	}

	posts, err := b.store.PostsByAuthorIDs(p.Context, []string{user.ID})
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return posts[user.ID], nil
}

func (b *builder) resolveUserSubscribedTo(p graphql.ResolveParams) (interface{}, error) {
	user, ok := userFromSource(p.Source)
	if !ok {
		return nil, fmt.Errorf("unexpected source type %T for userSubscribedTo field", p.Source)
	}

	if l, ok := loader.FromContext(p.Context); ok {
		return l.Load(p.Context, loader.KindAuthorsBySubscriberID, user.ID), nil
	}

	authors, err := b.store.AuthorsBySubscriberIDs(p.Context, []string{user.ID})
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return authors[user.ID], nil
}

func (b *builder) resolveSubscribedToUser(p graphql.ResolveParams) (interface{}, error) {
	user, ok := userFromSource(p.Source)
	if !ok {
		return nil, fmt.Errorf("unexpected source type %T for subscribedToUser field", p.Source)
	}

	if l, ok := loader.FromContext(p.Context); ok {
		return l.Load(p.Context, loader.KindSubscribersByAuthorID, user.ID), nil
	}

	subscribers, err := b.store.SubscribersByAuthorIDs(p.Context, []string{user.ID})
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return subscribers[user.ID], nil
}

func (b *builder) resolveProfileMemberType(p graphql.ResolveParams) (interface{}, error) {
	profile, ok := profileFromSource(p.Source)
	if !ok {
		return nil, fmt.Errorf("unexpected source type %T for memberType field", p.Source)
	}

	if l, ok := loader.FromContext(p.Context); ok {
		return l.Load(p.Context, loader.KindMemberTypeByID, profile.MemberTypeID), nil
	}

	tier, err := b.store.MemberTypeByID(p.Context, profile.MemberTypeID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return tier, nil
}
