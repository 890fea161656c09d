package schema

import (
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/mitchellh/mapstructure"

	"socialgraph/internal/store"
)

// deleteSuccess is the marker value delete and (un)subscribe fields resolve
// to. The protocol reports success through an empty string rather than the
// removed entity.
const deleteSuccess = ""

// decodeInput maps a GraphQL input object onto a store payload struct.
// Change payloads use pointer fields so omitted keys stay untouched.
func decodeInput(raw interface{}, out interface{}) error {
	dto, ok := raw.(map[string]interface{})
	if !ok {
		return fmt.Errorf("dto argument is required")
	}
	if err := mapstructure.Decode(dto, out); err != nil {
		return fmt.Errorf("invalid dto argument: %w", err)
	}
	return nil
}

// mutationFields exposes the write operations. The executor resolves
// top-level mutation fields serially in declared order, so each write
// completes before the next one starts; there is no cross-field rollback.
func (b *builder) mutationFields() graphql.Fields {
	return graphql.Fields{
		"createUser": &graphql.Field{
			Type: b.user,
			Args: graphql.FieldConfigArgument{
				"dto": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.createUserInput)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				var data store.CreateUser
				if err := decodeInput(p.Args["dto"], &data); err != nil {
					return nil, err
				}
				user, err := b.store.CreateUser(p.Context, data)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return user, nil
			},
		},
		"changeUser": &graphql.Field{
			Type: b.user,
			Args: graphql.FieldConfigArgument{
				"id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
				"dto": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.changeUserInput)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				var data store.ChangeUser
				if err := decodeInput(p.Args["dto"], &data); err != nil {
					return nil, err
				}
				id, _ := p.Args["id"].(string)
				user, err := b.store.UpdateUser(p.Context, id, data)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return user, nil
			},
		},
		"deleteUser": &graphql.Field{
			Type: graphql.String,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, _ := p.Args["id"].(string)
				if err := b.store.DeleteUser(p.Context, id); err != nil {
					return nil, wrapStoreError(err)
				}
				return deleteSuccess, nil
			},
		},

		"createPost": &graphql.Field{
			Type: b.post,
			Args: graphql.FieldConfigArgument{
				"dto": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.createPostInput)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				var data store.CreatePost
				if err := decodeInput(p.Args["dto"], &data); err != nil {
					return nil, err
				}
				post, err := b.store.CreatePost(p.Context, data)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return post, nil
			},
		},
		"changePost": &graphql.Field{
			Type: b.post,
			Args: graphql.FieldConfigArgument{
				"id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
				"dto": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.changePostInput)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				var data store.ChangePost
				if err := decodeInput(p.Args["dto"], &data); err != nil {
					return nil, err
				}
				id, _ := p.Args["id"].(string)
				post, err := b.store.UpdatePost(p.Context, id, data)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return post, nil
			},
		},
		"deletePost": &graphql.Field{
			Type: graphql.String,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, _ := p.Args["id"].(string)
				if err := b.store.DeletePost(p.Context, id); err != nil {
					return nil, wrapStoreError(err)
				}
				return deleteSuccess, nil
			},
		},

		"createProfile": &graphql.Field{
			Type: b.profile,
			Args: graphql.FieldConfigArgument{
				"dto": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.createProfileInput)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				var data store.CreateProfile
				if err := decodeInput(p.Args["dto"], &data); err != nil {
					return nil, err
				}
				profile, err := b.store.CreateProfile(p.Context, data)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return profile, nil
			},
		},
		"changeProfile": &graphql.Field{
			Type: b.profile,
			Args: graphql.FieldConfigArgument{
				"id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
				"dto": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.changeProfileInput)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				var data store.ChangeProfile
				if err := decodeInput(p.Args["dto"], &data); err != nil {
					return nil, err
				}
				id, _ := p.Args["id"].(string)
				profile, err := b.store.UpdateProfile(p.Context, id, data)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				return profile, nil
			},
		},
		"deleteProfile": &graphql.Field{
			Type: graphql.String,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, _ := p.Args["id"].(string)
				if err := b.store.DeleteProfile(p.Context, id); err != nil {
					return nil, wrapStoreError(err)
				}
				return deleteSuccess, nil
			},
		},

		"subscribeTo": &graphql.Field{
			Type: graphql.String,
			Args: graphql.FieldConfigArgument{
				"userId":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
				"authorId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				userID, _ := p.Args["userId"].(string)
				authorID, _ := p.Args["authorId"].(string)
				if err := b.store.Subscribe(p.Context, userID, authorID); err != nil {
					return nil, wrapStoreError(err)
				}
				return deleteSuccess, nil
			},
		},
		"unsubscribeFrom": &graphql.Field{
			Type: graphql.String,
			Args: graphql.FieldConfigArgument{
				"userId":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
				"authorId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(b.uuid)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				userID, _ := p.Args["userId"].(string)
				authorID, _ := p.Args["authorId"].(string)
				if err := b.store.Unsubscribe(p.Context, userID, authorID); err != nil {
					return nil, wrapStoreError(err)
				}
				return deleteSuccess, nil
			},
		},
	}
}
