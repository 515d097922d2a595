package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rendis/stepflow/pkg/schema"
)

// Defaults applied when a reference command is called with fewer arguments.
const (
	DefaultFetchURL      = "https://api.example.com"
	DefaultEmailTo       = "user@example.com"
	DefaultEmailSubject  = "Notification"
	DefaultInputVariable = "user_input"
	DefaultInputType     = "text"
	DefaultPlaceholder   = "Enter value"
	DefaultPrompt        = "Generate content"
	DefaultModel         = "mistral-small-latest"
	DefaultTemperature   = "0.7"
	DefaultDataRef       = "data"
	DefaultOutputFormat  = "text"
	DefaultOutputFile    = "output"
	DefaultTransform     = "format"
	DefaultValidation    = "required"
)

// RegisterBuiltins registers the reference command set in reg.
func RegisterBuiltins(reg *Registry) error {
	for _, c := range BuiltinCommands() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// BuiltinCommands returns the simulated reference commands.
func BuiltinCommands() []Command {
	return []Command{
		NewFunc(Info{
			Name:        "print",
			Description: "Print the space-joined arguments",
			Usage:       "print(values...)",
		}, echo("Print", "Print executed successfully")),

		NewFunc(Info{
			Name:        "log",
			Description: "Log the space-joined arguments",
			Usage:       "log(values...)",
		}, echo("Log", "Log executed successfully")),

		NewFunc(Info{
			Name:        "notify",
			Description: "Send a simulated notification with the space-joined arguments",
			Usage:       "notify(values...)",
		}, echo("Notify", "Notification sent successfully")),

		NewFunc(Info{
			Name:        "fetch",
			Description: "Simulate fetching data from a URL",
			Usage:       `fetch(url="` + DefaultFetchURL + `")`,
			Label:       "Fetch data from URL",
		}, fetch),

		NewFunc(Info{
			Name:        "send_email",
			Description: "Simulate sending an email",
			Usage:       `send_email(to="` + DefaultEmailTo + `", subject="` + DefaultEmailSubject + `")`,
		}, sendEmail),

		NewFunc(Info{
			Name:        "input",
			Description: "Simulate collecting a value from the user",
			Usage:       `input(variable="` + DefaultInputVariable + `", type="` + DefaultInputType + `", placeholder="` + DefaultPlaceholder + `")`,
			Label:       "Collect user input",
		}, input),

		NewFunc(Info{
			Name:        "generate",
			Description: "Simulate generating content with a language model",
			Usage:       `generate(prompt="` + DefaultPrompt + `", model="` + DefaultModel + `", temperature="` + DefaultTemperature + `")`,
			Label:       "Generate AI content",
		}, generate),

		NewFunc(Info{
			Name:        "output",
			Description: "Simulate exporting data to a file",
			Usage:       `output(data="` + DefaultDataRef + `", format="` + DefaultOutputFormat + `", file="` + DefaultOutputFile + `")`,
			Label:       "Export results",
		}, output),

		NewFunc(Info{
			Name:        "transform",
			Description: "Simulate transforming data",
			Usage:       `transform(data="` + DefaultDataRef + `", type="` + DefaultTransform + `")`,
			Label:       "Transform data",
		}, transform),

		NewFunc(Info{
			Name:        "validate",
			Description: "Simulate validating data",
			Usage:       `validate(data="` + DefaultDataRef + `", type="` + DefaultValidation + `")`,
			Label:       "Validate input",
		}, validate),
	}
}

// echo builds a handler whose data is the space-joined arguments.
func echo(label, message string) func(context.Context, []string) Outcome {
	return func(_ context.Context, args []string) Outcome {
		text := strings.Join(args, " ")
		return Outcome{
			Result: schema.OK(text, message),
			Trace:  label + ": " + text,
		}
	}
}

func fetch(_ context.Context, args []string) Outcome {
	url := arg(args, 0, DefaultFetchURL)
	return Outcome{
		Result: schema.OK(object(field{"data", "Sample data from " + url}), "Fetch completed successfully"),
		Trace:  "Fetch: " + url,
	}
}

func sendEmail(_ context.Context, args []string) Outcome {
	to := arg(args, 0, DefaultEmailTo)
	subject := arg(args, 1, DefaultEmailSubject)
	return Outcome{
		Result: schema.OK("Email sent to "+to, "Email sent successfully"),
		Trace:  fmt.Sprintf("Send Email: %s - %s", to, subject),
	}
}

func input(_ context.Context, args []string) Outcome {
	variable := arg(args, 0, DefaultInputVariable)
	kind := arg(args, 1, DefaultInputType)
	placeholder := arg(args, 2, DefaultPlaceholder)
	return Outcome{
		Result: schema.OK(object(
			field{"variable", variable},
			field{"type", kind},
			field{"placeholder", placeholder},
		), "Input collected successfully"),
		Trace: fmt.Sprintf("Input: Collect '%s' as %s (%s)", variable, kind, placeholder),
	}
}

func generate(_ context.Context, args []string) Outcome {
	prompt := arg(args, 0, DefaultPrompt)
	model := arg(args, 1, DefaultModel)
	temperature := arg(args, 2, DefaultTemperature)
	return Outcome{
		Result: schema.OK(object(
			field{"content", "Generated content for: " + prompt},
			field{"model", model},
			field{"temperature", temperature},
		), "Content generated successfully"),
		Trace: fmt.Sprintf("Generate: Using %s (temp: %s) with prompt: '%s'", model, temperature, prompt),
	}
}

func output(_ context.Context, args []string) Outcome {
	data := arg(args, 0, DefaultDataRef)
	format := arg(args, 1, DefaultOutputFormat)
	file := arg(args, 2, DefaultOutputFile)
	return Outcome{
		Result: schema.OK(object(
			field{"exported", data},
			field{"format", format},
			field{"file", file},
		), "Output exported successfully"),
		Trace: fmt.Sprintf("Output: Export %s as %s to %s", data, format, file),
	}
}

func transform(_ context.Context, args []string) Outcome {
	data := arg(args, 0, DefaultDataRef)
	kind := arg(args, 1, DefaultTransform)
	return Outcome{
		Result: schema.OK(object(
			field{"transformed", data},
			field{"type", kind},
		), "Data transformed successfully"),
		Trace: fmt.Sprintf("Transform: Apply %s to %s", kind, data),
	}
}

func validate(_ context.Context, args []string) Outcome {
	data := arg(args, 0, DefaultDataRef)
	kind := arg(args, 1, DefaultValidation)
	return Outcome{
		Result: schema.OK(object(
			field{"validated", data},
			field{"type", kind},
			field{"valid", true},
		), "Validation completed successfully"),
		Trace: fmt.Sprintf("Validate: Check %s for %s", data, kind),
	}
}

type field struct {
	key   string
	value any
}

// object renders an ordered JSON object as `{"k": v, "k2": v2}`. Values are
// JSON-encoded, so quotes and control characters in arguments stay escaped.
func object(fields ...field) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(encode(f.key))
		b.WriteString(": ")
		b.WriteString(encode(f.value))
	}
	b.WriteByte('}')
	return b.String()
}

// encode marshals v without HTML escaping so URLs keep their '&'.
func encode(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
