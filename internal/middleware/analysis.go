package middleware

import (
	"log/slog"
	"net/http"

	"socialgraph/internal/gqlrequest"
	"socialgraph/internal/logging"
)

// GraphQLAnalysis decodes and analyzes the GraphQL request once, stores the
// result in context for the handler, and enriches the request logger with
// operation metadata. The body is rewound so the handler can decode it too.
func GraphQLAnalysis() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			env, err := gqlrequest.DecodeEnvelope(r)
			if err != nil {
				// Malformed transport payloads are reported by the handler;
				// analysis just passes the request through.
				next.ServeHTTP(w, r)
				return
			}

			analysis := gqlrequest.AnalyzeEnvelope(env)
			ctx := gqlrequest.WithAnalysis(r.Context(), analysis)

			if analysis.OperationType != "" {
				logger := logging.FromContext(ctx)
				fields := []any{slog.String("graphql_operation_type", analysis.OperationType)}
				if analysis.OperationName != "" {
					fields = append(fields, slog.String("graphql_operation_name", analysis.OperationName))
				}
				ctx = logging.WithLogger(ctx, logger.WithFields(fields...))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
