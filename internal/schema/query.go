package schema

import (
	"github.com/graphql-go/graphql"
)

// queryFields exposes the read operations: list and by-id lookups for each
// entity. Relation traversal happens through the object types' own fields.
func (b *builder) queryFields() graphql.Fields {
	return graphql.Fields{
		"memberTypes": &graphql.Field{
			Type: graphql.NewList(b.memberType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				tiers, err := b.store.MemberTypes(p.Context)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return tiers, nil
			},
		},
		"memberType": &graphql.Field{
			Type: b.memberType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.memberTypeID)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, _ := p.Args["id"].(string)
				tier, err := b.store.MemberTypeByID(p.Context, id)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return tier, nil
			},
		},

		"users": &graphql.Field{
			Type: graphql.NewList(b.user),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				users, err := b.store.Users(p.Context)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return users, nil
			},
		},
		"user": &graphql.Field{
			Type: b.user,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, _ := p.Args["id"].(string)
				user, err := b.store.UserByID(p.Context, id)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return user, nil
			},
		},

		"posts": &graphql.Field{
			Type: graphql.NewList(b.post),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				posts, err := b.store.Posts(p.Context)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return posts, nil
			},
		},
		"post": &graphql.Field{
			Type: b.post,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, _ := p.Args["id"].(string)
				post, err := b.store.PostByID(p.Context, id)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return post, nil
			},
		},

		"profiles": &graphql.Field{
			Type: graphql.NewList(b.profile),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				profiles, err := b.store.Profiles(p.Context)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return profiles, nil
			},
		},
		"profile": &graphql.Field{
			Type: b.profile,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, _ := p.Args["id"].(string)
				profile, err := b.store.ProfileByID(p.Context, id)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return profile, nil
			},
		},
	}
}
