package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"tiger-trader/internal/tools"
)

const assistantSystemPrompt = `You are a trading assistant for a Tiger Brokers account.

You have tools for account queries, market data, order placement, order
management, and trade plans. Use them to answer questions and execute
the user's instructions.

Rules:
- Every order passes a pre-trade safety gate. If an order is BLOCKED,
  report the listed safety errors to the user; never retry a blocked
  order with different parameters to evade a check.
- Surface safety warnings to the user even when the order went through.
- Always preview an order before placing it when the user has not given
  explicit, complete order parameters.
- When placing an order, supply a concise reason describing the trade
  thesis; it is persisted as the trade plan.
- Report amounts exactly as the tools return them. Do not invent
  prices, positions, or balances.`

// Assistant is the conversational trading agent. It keeps the message
// history across Ask calls so follow-up instructions can reference
// earlier answers.
type Assistant struct {
	llm    LLMClient
	runner ToolRunner
	logger zerolog.Logger

	history []openai.ChatCompletionMessage
}

// NewAssistant creates an assistant over the given LLM and tool
// executor.
func NewAssistant(llm LLMClient, runner ToolRunner, logger zerolog.Logger) *Assistant {
	return &Assistant{
		llm:    llm,
		runner: runner,
		logger: logger,
		history: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: assistantSystemPrompt},
		},
	}
}

// Ask sends one user message through the tool-call loop and returns
// the chain of thought with the final answer. The exchange, including
// tool results, is appended to the conversation history.
func (a *Assistant) Ask(ctx context.Context, userMessage string) (*ChainOfThought, error) {
	a.history = append(a.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	messages, cot, err := a.llm.CompleteWithTools(ctx, a.history, tools.Definitions(), a.runner)
	if err != nil {
		return nil, fmt.Errorf("assistant completion: %w", err)
	}
	a.history = messages

	for _, call := range cot.ToolCalls {
		a.logger.Debug().
			Str("tool", call.ToolName).
			Str("args", call.Arguments).
			Msg("Assistant tool call")
	}
	return cot, nil
}

// Reset clears the conversation history back to the system prompt.
func (a *Assistant) Reset() {
	a.history = a.history[:1]
}

// HistoryLen reports the number of messages in the conversation,
// including the system prompt.
func (a *Assistant) HistoryLen() int {
	return len(a.history)
}
