package gqlrequest

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
)

// Analysis stores parsed and derived GraphQL request metadata.
type Analysis struct {
	Envelope Envelope

	Document  *ast.Document
	Fragments map[string]*ast.FragmentDefinition
	Operation *ast.OperationDefinition

	OperationName string
	OperationType string

	FieldCount int
	// SelectionDepth counts traversals into object-valued fields; scalar and
	// enum leaves add nothing. A selection of only scalar fields measures 0.
	SelectionDepth int
	// DeepestPath names the field chain that produced SelectionDepth.
	DeepestPath []string

	ParseError     error
	SelectionError error
}

// AnalyzeEnvelope parses and analyzes a normalized request envelope.
func AnalyzeEnvelope(env Envelope) *Analysis {
	analysis := &Analysis{
		Envelope:  env,
		Fragments: map[string]*ast.FragmentDefinition{},
	}

	if strings.TrimSpace(env.Query) == "" {
		return analysis
	}

	doc, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{
			Body: []byte(env.Query),
			Name: "graphql",
		}),
	})
	if err != nil {
		analysis.ParseError = err
		return analysis
	}

	analysis.Document = doc
	analysis.Fragments = buildFragmentMap(doc)

	op, selectionErr := selectOperation(doc, env.OperationName)
	if selectionErr != nil {
		analysis.SelectionError = selectionErr
		return analysis
	}

	analysis.Operation = op
	analysis.OperationName = effectiveOperationName(op)
	analysis.OperationType = string(op.Operation)

	walk := &depthWalker{fragments: analysis.Fragments}
	depth, path := walk.measure(op.SelectionSet, nil)
	analysis.FieldCount = walk.fields
	analysis.SelectionDepth = depth
	analysis.DeepestPath = path

	return analysis
}

func buildFragmentMap(doc *ast.Document) map[string]*ast.FragmentDefinition {
	fragments := map[string]*ast.FragmentDefinition{}
	if doc == nil {
		return fragments
	}
	for _, def := range doc.Definitions {
		fragment, ok := def.(*ast.FragmentDefinition)
		if !ok || fragment == nil || fragment.Name == nil || fragment.Name.Value == "" {
			continue
		}
		fragments[fragment.Name.Value] = fragment
	}
	return fragments
}

func selectOperation(doc *ast.Document, operationName string) (*ast.OperationDefinition, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	operations := make([]*ast.OperationDefinition, 0)
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if ok && op != nil {
			operations = append(operations, op)
		}
	}

	if operationName != "" {
		for _, op := range operations {
			if op.Name != nil && op.Name.Value == operationName {
				return op, nil
			}
		}
		return nil, fmt.Errorf("unknown operation named %q", operationName)
	}

	if len(operations) == 1 {
		return operations[0], nil
	}
	if len(operations) == 0 {
		return nil, fmt.Errorf("request does not include an operation")
	}
	return nil, fmt.Errorf("operationName is required when request has multiple operations")
}

func effectiveOperationName(op *ast.OperationDefinition) string {
	if op == nil || op.Name == nil {
		return ""
	}
	return op.Name.Value
}

// depthWalker measures object-nesting depth across fields, inline fragments,
// and fragment spreads, guarding against spread cycles.
type depthWalker struct {
	fragments map[string]*ast.FragmentDefinition
	inFlight  map[string]bool
	fields    int
}

func (w *depthWalker) measure(selectionSet *ast.SelectionSet, prefix []string) (depth int, path []string) {
	if selectionSet == nil {
		return 0, prefix
	}

	path = prefix
	for _, selection := range selectionSet.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			w.fields++
			if sel.SelectionSet == nil {
				continue
			}
			fieldPath := append(append([]string{}, prefix...), fieldName(sel))
			nestedDepth, nestedPath := w.measure(sel.SelectionSet, fieldPath)
			if nestedDepth+1 > depth {
				depth = nestedDepth + 1
				path = nestedPath
			}
		case *ast.InlineFragment:
			nestedDepth, nestedPath := w.measure(sel.SelectionSet, prefix)
			if nestedDepth > depth {
				depth = nestedDepth
				path = nestedPath
			}
		case *ast.FragmentSpread:
			name := ""
			if sel.Name != nil {
				name = sel.Name.Value
			}
			if name == "" {
				continue
			}
			if w.inFlight == nil {
				w.inFlight = map[string]bool{}
			}
			if w.inFlight[name] {
				continue
			}
			fragment, ok := w.fragments[name]
			if !ok || fragment == nil {
				continue
			}
			w.inFlight[name] = true
			nestedDepth, nestedPath := w.measure(fragment.SelectionSet, prefix)
			delete(w.inFlight, name)
			if nestedDepth > depth {
				depth = nestedDepth
				path = nestedPath
			}
		}
	}

	return depth, path
}

func fieldName(field *ast.Field) string {
	if field == nil || field.Name == nil {
		return ""
	}
	return field.Name.Value
}
