// Package engine orchestrates GraphQL request handling: parse, validate,
// depth-check, then execute with a request-scoped batch loader. Requests
// with validation errors are never executed.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"

	"socialgraph/internal/gqlrequest"
	"socialgraph/internal/loader"
	"socialgraph/internal/observability"
	"socialgraph/internal/store"
)

// DefaultMaxDepth bounds selection nesting when no limit is configured.
const DefaultMaxDepth = 5

// Machine-readable codes for errors raised before execution starts.
const (
	CodeParseFailed         = "GRAPHQL_PARSE_FAILED"
	CodeValidationFailed    = "GRAPHQL_VALIDATION_FAILED"
	CodeDepthLimitExceeded  = "DEPTH_LIMIT_EXCEEDED"
	CodeOperationResolution = "OPERATION_RESOLUTION_FAILURE"
	CodeBadRequest          = "BAD_REQUEST"
)

// Response is the GraphQL response envelope. Data is omitted entirely when
// the request was rejected before execution.
type Response struct {
	Data   interface{}                `json:"data,omitempty"`
	Errors []gqlerrors.FormattedError `json:"errors,omitempty"`
}

// HasErrors reports whether the envelope carries any errors.
func (r *Response) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

// Options tunes a new Engine. Zero values select defaults.
type Options struct {
	// MaxDepth is the inclusive selection-depth limit; an operation whose
	// depth equals the limit still executes.
	MaxDepth int
	Metrics  *observability.GraphQLMetrics
	Logger   *slog.Logger
}

// Engine executes GraphQL requests against an immutable schema.
type Engine struct {
	schema   graphql.Schema
	store    store.Store
	maxDepth int
	metrics  *observability.GraphQLMetrics
	logger   *slog.Logger
}

// New builds an Engine around a compiled schema and the store its batch
// loaders read from.
func New(s graphql.Schema, st store.Store, opts Options) *Engine {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		schema:   s,
		store:    st,
		maxDepth: maxDepth,
		metrics:  opts.Metrics,
		logger:   logger,
	}
}

// MaxDepth returns the configured inclusive depth limit.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// Execute runs one request through the full pipeline. It always returns a
// response envelope; transport-level failures are reported inside it.
//
// The order is strict: parse errors are terminal on their own, then
// validation errors and the depth check accumulate together, and only a
// request clearing all of them reaches the executor.
func (e *Engine) Execute(ctx context.Context, env gqlrequest.Envelope) *Response {
	start := time.Now()
	done := e.metrics.RequestStarted(ctx)
	defer done()

	analysis := gqlrequest.AnalyzeEnvelope(env)

	if analysis.ParseError != nil {
		e.metrics.RecordRejection(ctx, "syntax")
		e.logger.DebugContext(ctx, "request rejected: parse failure",
			slog.String("error", analysis.ParseError.Error()))
		return e.finish(ctx, start, "", &Response{
			Errors: []gqlerrors.FormattedError{formatWithCode(analysis.ParseError, CodeParseFailed)},
		})
	}

	if analysis.Document == nil {
		e.metrics.RecordRejection(ctx, "syntax")
		return e.finish(ctx, start, "", &Response{
			Errors: []gqlerrors.FormattedError{newFormatted("request must provide a query document", CodeParseFailed)},
		})
	}

	if analysis.SelectionError != nil {
		e.metrics.RecordRejection(ctx, "syntax")
		return e.finish(ctx, start, "", &Response{
			Errors: []gqlerrors.FormattedError{formatWithCode(analysis.SelectionError, CodeOperationResolution)},
		})
	}

	e.metrics.RecordQueryDepth(ctx, int64(analysis.SelectionDepth), analysis.OperationType)

	var rejected []gqlerrors.FormattedError

	validation := graphql.ValidateDocument(&e.schema, analysis.Document, nil)
	if !validation.IsValid {
		for _, verr := range validation.Errors {
			rejected = append(rejected, withCode(verr, CodeValidationFailed))
		}
	}

	if analysis.SelectionDepth > e.maxDepth {
		rejected = append(rejected, newFormatted(
			fmt.Sprintf("operation depth %d exceeds the limit of %d at %s",
				analysis.SelectionDepth, e.maxDepth, strings.Join(analysis.DeepestPath, ".")),
			CodeDepthLimitExceeded,
		))
	}

	if len(rejected) > 0 {
		reason := "validation"
		if analysis.SelectionDepth > e.maxDepth {
			reason = "depth"
		}
		e.metrics.RecordRejection(ctx, reason)
		e.logger.DebugContext(ctx, "request rejected before execution",
			slog.String("reason", reason),
			slog.Int("error_count", len(rejected)),
			slog.Int("depth", analysis.SelectionDepth))
		return e.finish(ctx, start, analysis.OperationType, &Response{Errors: rejected})
	}

	variables, err := env.Variables()
	if err != nil {
		e.metrics.RecordRejection(ctx, "syntax")
		return e.finish(ctx, start, analysis.OperationType, &Response{
			Errors: []gqlerrors.FormattedError{formatWithCode(err, CodeBadRequest)},
		})
	}

	l := loader.New(e.store)
	l.SetHooks(loader.Hooks{
		Dispatched: func(hctx context.Context, kind loader.Kind, keys int) {
			e.metrics.RecordBatchDispatch(hctx, string(kind), int64(keys))
		},
		CacheHit: func(hctx context.Context, kind loader.Kind) {
			e.metrics.RecordBatchCacheHits(hctx, string(kind), 1)
		},
	})
	ctx = loader.NewContext(ctx, l)

	result := graphql.Execute(graphql.ExecuteParams{
		Schema:        e.schema,
		AST:           analysis.Document,
		OperationName: env.OperationName,
		Args:          variables,
		Context:       ctx,
	})

	e.logger.DebugContext(ctx, "request executed",
		slog.String("operation_type", analysis.OperationType),
		slog.Int("depth", analysis.SelectionDepth),
		slog.Int("field_count", analysis.FieldCount),
		slog.Int("batch_dispatches", int(l.Dispatches())),
		slog.Int("batch_cache_hits", int(l.CacheHits())),
		slog.Int("error_count", len(result.Errors)))

	return e.finish(ctx, start, analysis.OperationType, &Response{
		Data:   result.Data,
		Errors: result.Errors,
	})
}

func (e *Engine) finish(ctx context.Context, start time.Time, operationType string, resp *Response) *Response {
	if operationType == "" {
		operationType = "unknown"
	}
	e.metrics.RecordRequest(ctx, time.Since(start), resp.HasErrors(), operationType)
	return resp
}

func newFormatted(message, code string) gqlerrors.FormattedError {
	return gqlerrors.FormattedError{
		Message:    message,
		Extensions: map[string]interface{}{"code": code},
	}
}

func formatWithCode(err error, code string) gqlerrors.FormattedError {
	return withCode(gqlerrors.FormatError(err), code)
}

// withCode fills the error's extensions code unless the original error
// already supplied one.
func withCode(fe gqlerrors.FormattedError, code string) gqlerrors.FormattedError {
	if fe.Extensions == nil {
		fe.Extensions = map[string]interface{}{}
	}
	if _, ok := fe.Extensions["code"]; !ok {
		fe.Extensions["code"] = code
	}
	return fe
}
