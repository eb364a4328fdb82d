// Package agents provides the LLM trading assistant that drives the
// brokerage tools through OpenAI function calling.
package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// maxToolRounds caps how many rounds of tool calls a single completion
// may trigger before the conversation is abandoned.
const maxToolRounds = 10

// ToolRunner executes a named tool call and returns its text result.
// tools.Executor implements this.
type ToolRunner interface {
	Execute(ctx context.Context, toolName string, args json.RawMessage) (string, error)
}

// LLMClient abstracts the chat-completion API so the assistant can be
// tested without network access.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool, runner ToolRunner) ([]openai.ChatCompletionMessage, *ChainOfThought, error)
}

// ToolCallLog is one executed tool call in the chain of thought.
type ToolCallLog struct {
	ToolName  string
	Arguments string
	Result    string
}

// ChainOfThought captures the assistant's tool activity and final
// answer for one completion.
type ChainOfThought struct {
	ToolCalls []ToolCallLog
	Response  string
}

// OpenAIClient implements LLMClient using the OpenAI API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI LLM client.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Complete sends a system+user prompt pair and returns the response.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteWithTools runs the tool-call loop: the model is offered the
// tools, every call it makes is executed through runner and fed back,
// and the loop ends when the model answers in plain text. Returns the
// extended message history alongside the chain of thought.
func (c *OpenAIClient) CompleteWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool, runner ToolRunner) ([]openai.ChatCompletionMessage, *ChainOfThought, error) {
	cot := &ChainOfThought{
		ToolCalls: make([]ToolCallLog, 0),
	}

	for i := 0; i < maxToolRounds; i++ {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return messages, nil, fmt.Errorf("openai completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return messages, nil, fmt.Errorf("no response from openai")
		}

		choice := resp.Choices[0]

		if len(choice.Message.ToolCalls) == 0 {
			cot.Response = choice.Message.Content
			messages = append(messages, choice.Message)
			return messages, cot, nil
		}

		messages = append(messages, choice.Message)

		for _, toolCall := range choice.Message.ToolCalls {
			result, err := runner.Execute(ctx, toolCall.Function.Name, json.RawMessage(toolCall.Function.Arguments))
			if err != nil {
				result = fmt.Sprintf("Error executing tool %s: %v", toolCall.Function.Name, err)
			}

			cot.ToolCalls = append(cot.ToolCalls, ToolCallLog{
				ToolName:  toolCall.Function.Name,
				Arguments: toolCall.Function.Arguments,
				Result:    result,
			})

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: toolCall.ID,
			})
		}
	}

	return messages, nil, fmt.Errorf("exceeded maximum tool call iterations")
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.model
}
