package agents

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// scriptedLLM replays a fixed sequence of model turns: tool-call turns
// first, then a final text answer.
type scriptedLLM struct {
	turns []openai.ChatCompletionMessage
}

func (s *scriptedLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "", nil
}

func (s *scriptedLLM) CompleteWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool, runner ToolRunner) ([]openai.ChatCompletionMessage, *ChainOfThought, error) {
	cot := &ChainOfThought{ToolCalls: make([]ToolCallLog, 0)}

	for _, turn := range s.turns {
		messages = append(messages, turn)
		if len(turn.ToolCalls) == 0 {
			cot.Response = turn.Content
			return messages, cot, nil
		}
		for _, call := range turn.ToolCalls {
			result, err := runner.Execute(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			if err != nil {
				result = "Error: " + err.Error()
			}
			cot.ToolCalls = append(cot.ToolCalls, ToolCallLog{
				ToolName:  call.Function.Name,
				Arguments: call.Function.Arguments,
				Result:    result,
			})
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}
	return messages, cot, nil
}

// echoRunner records which tools were invoked and returns a canned
// result.
type echoRunner struct {
	calls []string
}

func (r *echoRunner) Execute(ctx context.Context, toolName string, args json.RawMessage) (string, error) {
	r.calls = append(r.calls, toolName)
	return "result for " + toolName, nil
}

func toolCallTurn(name, args string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{
			{
				ID:   "call-" + name,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      name,
					Arguments: args,
				},
			},
		},
	}
}

func TestAssistantRunsToolLoop(t *testing.T) {
	llm := &scriptedLLM{turns: []openai.ChatCompletionMessage{
		toolCallTurn("get_account_summary", `{}`),
		toolCallTurn("get_stock_quote", `{"symbol": "AAPL"}`),
		{Role: openai.ChatMessageRoleAssistant, Content: "You hold $100,000 in cash; AAPL trades at 150."},
	}}
	runner := &echoRunner{}
	assistant := NewAssistant(llm, runner, zerolog.Nop())

	cot, err := assistant.Ask(context.Background(), "what is my cash and the AAPL price?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if len(runner.calls) != 2 || runner.calls[0] != "get_account_summary" || runner.calls[1] != "get_stock_quote" {
		t.Errorf("unexpected tool calls: %v", runner.calls)
	}
	if len(cot.ToolCalls) != 2 {
		t.Errorf("chain of thought has %d calls", len(cot.ToolCalls))
	}
	if !strings.Contains(cot.Response, "AAPL") {
		t.Errorf("unexpected response: %q", cot.Response)
	}
}

func TestAssistantKeepsHistory(t *testing.T) {
	llm := &scriptedLLM{turns: []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleAssistant, Content: "done"},
	}}
	assistant := NewAssistant(llm, &echoRunner{}, zerolog.Nop())

	if assistant.HistoryLen() != 1 {
		t.Fatalf("fresh history = %d, want 1 (system prompt)", assistant.HistoryLen())
	}

	if _, err := assistant.Ask(context.Background(), "hello"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	// system + user + assistant
	if assistant.HistoryLen() != 3 {
		t.Errorf("history = %d, want 3", assistant.HistoryLen())
	}

	assistant.Reset()
	if assistant.HistoryLen() != 1 {
		t.Errorf("after reset history = %d, want 1", assistant.HistoryLen())
	}
}
