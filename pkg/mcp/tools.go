package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/stepflow/pkg/schema"
	"github.com/rendis/stepflow/pkg/stepflow"
)

// runPayload is the JSON body returned by stepflow.run.
type runPayload struct {
	RunID   string                       `json:"run_id"`
	Trace   []string                     `json:"trace"`
	Results map[uint32]schema.StepResult `json:"results"`
	Error   *schema.Error                `json:"error,omitempty"`
}

// tokenView is the JSON form of one token.
type tokenView struct {
	Type    string `json:"type"`
	Lexeme  string `json:"lexeme"`
	Literal string `json:"literal,omitempty"`
	Line    int    `json:"line"`
}

// handleRun executes a program. Lex and parse failures are plain tool errors;
// a runtime failure returns the partial trace flagged as an error.
func (s *StepflowServer) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("source is required"), nil
	}
	runID := req.GetString("run_id", "")

	rep, runErr := stepflow.Run(ctx, source,
		stepflow.WithRunID(runID),
		stepflow.WithSink(s.runSink()),
		stepflow.WithLogger(s.logger),
	)
	if rep == nil {
		return mcp.NewToolResultError(fmt.Sprintf("program rejected: %v", runErr)), nil
	}

	result, err := marshalResult(runPayload{
		RunID:   rep.RunID,
		Trace:   rep.Lines(),
		Results: rep.Results,
		Error:   rep.Error,
	})
	if err != nil {
		return nil, err
	}
	if runErr != nil {
		s.logger.Info("run failed",
			slog.String("run_id", rep.RunID),
			slog.String("code", schema.CodeOf(runErr)),
		)
		result.IsError = true
	}
	return result, nil
}

// handleCheck validates a program.
func (s *StepflowServer) handleCheck(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("source is required"), nil
	}
	strict := req.GetBool("strict", false)

	res := stepflow.Check(source, strict)
	return marshalResult(map[string]any{
		"valid":    res.Valid(),
		"errors":   nonNil(res.Errors),
		"warnings": nonNil(res.Warnings),
	})
}

// handleTokenize lists the tokens of a program.
func (s *StepflowServer) handleTokenize(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("source is required"), nil
	}

	tokens, lexErr := stepflow.Tokenize(source)
	if lexErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("tokenize failed: %v", lexErr)), nil
	}

	views := make([]tokenView, len(tokens))
	for i, tok := range tokens {
		views[i] = tokenView{Type: tok.Type.String(), Lexeme: tok.Lexeme, Literal: tok.Literal, Line: tok.Line}
	}
	return marshalResult(views)
}

// handleDescribe outlines or diagrams a program in the requested format.
func (s *StepflowServer) handleDescribe(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("source is required"), nil
	}
	format := req.GetString("format", stepflow.FormatSteps)

	if format == "image" {
		png, imgErr := stepflow.DescribeImage(source, nil)
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		encoded := base64.StdEncoding.EncodeToString(png)
		return mcp.NewToolResultImage("workflow flowchart", encoded, "image/png"), nil
	}

	text, descErr := stepflow.Describe(source, format)
	if descErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("describe failed: %v", descErr)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// handleCommands lists the registered commands.
func (s *StepflowServer) handleCommands(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos, err := stepflow.Commands()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list commands failed: %v", err)), nil
	}
	return marshalResult(infos)
}

// --- Helpers ---

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}

func nonNil(issues []schema.ValidationIssue) []schema.ValidationIssue {
	if issues == nil {
		return []schema.ValidationIssue{}
	}
	return issues
}
