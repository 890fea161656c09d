// Package scalars defines custom GraphQL scalar types shared by the schema.
package scalars

import (
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"socialgraph/internal/uuidutil"
)

// UUID returns a scalar for RFC 4122 identifiers serialized as lower-case strings.
// Values that do not parse coerce to nil, which GraphQL reports as an invalid value.
func UUID() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "UUID",
		Description: "RFC 4122 UUID serialized as a lower-case string.",
		Serialize: func(value interface{}) interface{} {
			if parsed, ok := coerceUUID(value); ok {
				return parsed
			}
			return nil
		},
		ParseValue: func(value interface{}) interface{} {
			if parsed, ok := coerceUUID(value); ok {
				return parsed
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			sv, ok := valueAST.(*ast.StringValue)
			if !ok {
				return nil
			}
			parsed, err := uuidutil.ParseString(sv.Value)
			if err != nil {
				return nil
			}
			return parsed
		},
	})
}

func coerceUUID(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		parsed, err := uuidutil.ParseString(v)
		if err != nil {
			return "", false
		}
		return parsed, true
	case []byte:
		parsed, err := uuidutil.ParseString(string(v))
		if err != nil {
			return "", false
		}
		return parsed, true
	default:
		return "", false
	}
}
