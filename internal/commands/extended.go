package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rendis/stepflow/internal/expressions"
	"github.com/rendis/stepflow/internal/validation"
	"github.com/rendis/stepflow/pkg/schema"
)

// ExtendedCommands returns the expression-backed commands: calc (Expr),
// assert (CEL), jq (gojq) and validate_schema (JSON Schema). Their failures
// are recorded as status 422 or 417 results and never abort a run.
func ExtendedCommands() ([]Command, error) {
	celEngine, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}
	validator, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}

	return []Command{
		&calcCommand{engine: expressions.NewExprEngine()},
		&assertCommand{engine: celEngine},
		&jqCommand{engine: expressions.NewGoJQEngine()},
		&validateSchemaCommand{validator: validator},
	}, nil
}

// --- calc ---

type calcCommand struct {
	engine *expressions.ExprEngine
}

func (c *calcCommand) Name() string { return "calc" }

func (c *calcCommand) Info() Info {
	return Info{
		Name:        "calc",
		Description: "Evaluate an Expr expression; the remaining arguments are available as args",
		Usage:       `calc(expression, args...)`,
		Label:       "Calculate a value",
	}
}

func (c *calcCommand) Execute(ctx context.Context, args []string) Outcome {
	if len(args) == 0 {
		return unprocessable("calc requires an expression")
	}
	expression := args[0]

	out, err := c.engine.Eval(ctx, expression, expressions.Args(args[1:]))
	if err != nil {
		return unprocessable(errorMessage(err))
	}

	value := formatValue(out)
	return Outcome{
		Result: schema.OK(value, "Calculation completed successfully"),
		Trace:  fmt.Sprintf("Calc: %s = %s", expression, value),
	}
}

// --- assert ---

type assertCommand struct {
	engine *expressions.CELEngine
}

func (c *assertCommand) Name() string { return "assert" }

func (c *assertCommand) Info() Info {
	return Info{
		Name:        "assert",
		Description: "Check a CEL predicate; the remaining arguments are available as args",
		Usage:       `assert(predicate, args...)`,
		Label:       "Check an assertion",
	}
}

func (c *assertCommand) Execute(ctx context.Context, args []string) Outcome {
	if len(args) == 0 {
		return unprocessable("assert requires a predicate")
	}
	predicate := args[0]

	ok, err := c.engine.Check(ctx, predicate, expressions.Args(args[1:]))
	if err != nil {
		return unprocessable(errorMessage(err))
	}

	if !ok {
		return Outcome{
			Result: schema.Failed(schema.StatusAssertionFailed, "false", "Assertion failed: "+predicate),
			Trace:  "Assert: " + predicate + " -> false",
		}
	}
	return Outcome{
		Result: schema.OK("true", "Assertion passed"),
		Trace:  "Assert: " + predicate + " -> true",
	}
}

// --- jq ---

type jqCommand struct {
	engine *expressions.GoJQEngine
}

func (c *jqCommand) Name() string { return "jq" }

func (c *jqCommand) Info() Info {
	return Info{
		Name:        "jq",
		Description: "Run a jq filter over a JSON document, such as the data of a fetch step",
		Usage:       `jq(document, filter)`,
		Label:       "Query JSON data",
	}
}

func (c *jqCommand) Execute(ctx context.Context, args []string) Outcome {
	if len(args) < 2 {
		return unprocessable("jq requires a document and a filter")
	}
	document, filter := args[0], args[1]

	out, err := c.engine.Eval(ctx, filter, expressions.Args{document})
	if err != nil {
		return unprocessable(errorMessage(err))
	}

	return Outcome{
		Result: schema.OK(formatValue(out), "Query completed successfully"),
		Trace:  "JQ: " + filter,
	}
}

// --- validate_schema ---

type validateSchemaCommand struct {
	validator *validation.JSONSchemaValidator
}

func (c *validateSchemaCommand) Name() string { return "validate_schema" }

func (c *validateSchemaCommand) Info() Info {
	return Info{
		Name:        "validate_schema",
		Description: "Validate a JSON document against a JSON Schema (draft 2020-12)",
		Usage:       `validate_schema(document, schema)`,
		Label:       "Validate data against a schema",
	}
}

func (c *validateSchemaCommand) Execute(_ context.Context, args []string) Outcome {
	if len(args) < 2 {
		return unprocessable("validate_schema requires a document and a schema")
	}

	err := c.validator.ValidateDocument(args[0], args[1])
	if err == nil {
		return Outcome{
			Result: schema.OK("valid", "Document matches schema"),
			Trace:  "Validate Schema: valid",
		}
	}

	violations := validation.Violations(err)
	if len(violations) == 0 {
		return unprocessable(errorMessage(err))
	}
	return Outcome{
		Result: schema.Failed(schema.StatusAssertionFailed, strings.Join(violations, "; "), "Document does not match schema"),
		Trace:  fmt.Sprintf("Validate Schema: %d violation(s)", len(violations)),
	}
}

// --- helpers ---

func unprocessable(message string) Outcome {
	return Outcome{
		Result: schema.Failed(schema.StatusUnprocessableEntity, "", message),
		Trace:  "Error: " + message,
	}
}

func errorMessage(err error) string {
	var se *schema.Error
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

// formatValue renders an engine result as step data: strings verbatim,
// numbers in shortest decimal form, everything else as JSON.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return encode(val)
	}
}
