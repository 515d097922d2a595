package expressions

import (
	"context"
	"encoding/json"

	"github.com/itchyny/gojq"
	"github.com/rendis/stepflow/pkg/schema"
)

// GoJQEngine runs jq filters over JSON step data for the jq command.
type GoJQEngine struct {
	programs *cache[*gojq.Code]
}

func NewGoJQEngine() *GoJQEngine {
	return &GoJQEngine{programs: newCache(compileJQ)}
}

func (e *GoJQEngine) Name() string { return "jq" }

// Eval decodes args[0] as the input document and runs expression over it.
// Without arguments the input is null.
func (e *GoJQEngine) Eval(ctx context.Context, expression string, args Args) (any, error) {
	var input any
	if len(args) > 0 {
		doc, err := DecodeDocument(args[0])
		if err != nil {
			return nil, err
		}
		input = doc
	}
	return e.Query(ctx, expression, input)
}

// Query runs expression over a decoded JSON value. One output is returned as
// is, several are collected into []any and none yields nil.
func (e *GoJQEngine) Query(ctx context.Context, expression string, input any) (any, error) {
	results, err := e.QueryAll(ctx, expression, input)
	if err != nil {
		return nil, err
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// QueryAll returns every output of the filter, in order.
func (e *GoJQEngine) QueryAll(ctx context.Context, expression string, input any) ([]any, error) {
	if expression == "" {
		return nil, emptyExpression(e.Name())
	}

	code, err := e.programs.get(expression)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.RunWithContext(ctx, input)
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := val.(error); isErr {
			return nil, evalError(e.Name(), expression, err)
		}
		results = append(results, val)
	}
	return results, nil
}

// DecodeDocument parses step data such as `{"data": "..."}` into a value jq
// can run over.
func DecodeDocument(doc string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"jq: document is not valid JSON: %s", err.Error()).WithCause(err)
	}
	return v, nil
}

func compileJQ(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, compileError("jq", "parse", expression, err)
	}
	// No $ENV.
	code, err := gojq.Compile(query, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, compileError("jq", "compile", expression, err)
	}
	return code, nil
}

var _ Engine = (*GoJQEngine)(nil)
