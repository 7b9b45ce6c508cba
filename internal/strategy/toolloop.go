package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trvd/internal/tool"
	"trvd/pkg/types"
)

// ToolLoop lets the reasoning model emit structured tool-call requests.
// Each call is validated against the registry, executed, recorded, and its
// result fed back into the next generation. The loop stops when the model
// answers without a tool call or when the call budget is exhausted, in
// which case the best available partial answer is used.
type ToolLoop struct {
	Role      types.Role
	Registry  *tool.Registry
	MaxCalls  int
	MaxTokens int
}

const toolLoopPrompt = `You have access to the following tools:
%s
To use a tool, emit a single line exactly of the form:
TOOL_CALL: <tool_name>(<arguments>)

Otherwise answer directly, ending with a line "Final answer: ...".

Problem: %s`

const toolResultPrompt = `%s

Tool %s(%s) returned: %s

Continue. Use another tool if needed, or give your answer ending with a line "Final answer: ...".`

// Run executes the bounded tool loop.
func (l ToolLoop) Run(ctx context.Context, gen Generator, problem string) (Outcome, error) {
	var out Outcome
	prompt := fmt.Sprintf(toolLoopPrompt, l.Registry.Describe(), problem)
	budget := l.MaxCalls
	if budget <= 0 {
		budget = 1
	}

	var last string
	for {
		text, err := gen.Generate(ctx, l.Role, types.GenerationRequest{
			Prompt:      prompt,
			MaxTokens:   l.MaxTokens,
			Temperature: 0.6,
		})
		if err != nil {
			return Outcome{}, err
		}
		out.Steps = append(out.Steps, types.ReasoningStep{
			Phase:       types.PhaseReasoning,
			Role:        l.Role,
			InputDigest: types.Digest(prompt),
			Output:      text,
			Timestamp:   time.Now(),
		})
		last = text

		name, args, ok := parseToolCall(text)
		if !ok {
			// Final answer; loop terminates early.
			out.Final = text
			return out, nil
		}
		if len(out.ToolCalls) >= budget {
			break
		}

		inv := types.ToolInvocation{Tool: name, Arguments: args, Timestamp: time.Now()}
		result := ""
		t, found := l.Registry.Get(name)
		if !found {
			inv.Error = fmt.Sprintf("unknown tool %q", name)
			result = "error: " + inv.Error
		} else if res, err := t.Execute(ctx, args); err != nil {
			// Tool failures do not abort the execution; the error result
			// is fed back to the model.
			inv.Error = err.Error()
			result = "error: " + err.Error()
		} else {
			inv.Result = res
			result = res
		}
		out.ToolCalls = append(out.ToolCalls, inv)
		prompt = fmt.Sprintf(toolResultPrompt, prompt, name, args, result)
	}

	// Budget exhausted with the model still asking for tools: strip the
	// pending request and keep what reasoning we have.
	out.Final = stripToolCalls(last)
	return out, nil
}

// parseToolCall finds the first TOOL_CALL line and splits name(args).
func parseToolCall(text string) (name, args string, ok bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		rest, found := strings.CutPrefix(line, "TOOL_CALL:")
		if !found {
			continue
		}
		rest = strings.TrimSpace(rest)
		open := strings.Index(rest, "(")
		end := strings.LastIndex(rest, ")")
		if open <= 0 || end < open {
			continue
		}
		return strings.TrimSpace(rest[:open]), strings.TrimSpace(rest[open+1 : end]), true
	}
	return "", "", false
}

func stripToolCalls(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "TOOL_CALL:") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
