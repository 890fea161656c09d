// Package schema builds the executable GraphQL schema for the social domain:
// object types for users, profiles, posts, and membership tiers, plus the
// root query and mutation fields wired to a store.Store. The schema is built
// once at startup and is immutable at request time.
package schema

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"socialgraph/internal/store"
)

// Dependencies carries the collaborators resolvers close over.
type Dependencies struct {
	Store store.Store
}

// Build constructs the executable schema. Field tables reference each other
// through the builder, so the self-referential UserType is declared before
// its fields are populated.
func Build(deps Dependencies) (graphql.Schema, error) {
	if deps.Store == nil {
		return graphql.Schema{}, fmt.Errorf("schema: store is required")
	}

	b := newBuilder(deps.Store)

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "RootQuery",
			Fields: b.queryFields(),
		}),
		Mutation: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Mutation",
			Fields: b.mutationFields(),
		}),
	})
}
