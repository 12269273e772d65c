package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// OpenAIClient is a Completer backed by the OpenAI chat completions API.
type OpenAIClient struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIClient creates a client for apiKey. Extra request options such as option.WithBaseURL are passed to the
// SDK. An empty apiKey returns ErrNoAPIKey.
func NewOpenAIClient(apiKey, model string, logger *slog.Logger, opts ...option.RequestOption) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger,
	}, nil
}

// Complete sends req as a chat completion and returns the text of the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2) //nolint:mnd // system and user.
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.History {
		if m.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	c.logger.LogAttrs(ctx, slog.LevelDebug, "sending chat completion request",
		slog.String("model", c.model), slog.Int("message_count", len(messages)))

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{ //nolint:exhaustruct // only need a few fields.
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	c.logger.LogAttrs(ctx, slog.LevelDebug, "received chat completion response",
		slog.Int64("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int64("completion_tokens", completion.Usage.CompletionTokens),
		slog.Int64("total_tokens", completion.Usage.TotalTokens))

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return completion.Choices[0].Message.Content, nil
}
