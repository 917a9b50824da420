package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"

	"chat-relay/internal/models"

	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI provides an implementation of the LLM interface for interacting with
// OpenAI's language models, or any OpenAI-compatible endpoint when a custom
// base URL is given.
type OpenAI struct {
	systemPrompt string
	params       SamplingParams

	client *goopenai.Client

	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI instance with the specified API key, optional
// custom base URL, system prompt, and sampling parameters.
func NewOpenAI(apiKey, baseURL, systemPrompt string, params SamplingParams, logger *slog.Logger) OpenAI {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return OpenAI{
		systemPrompt: systemPrompt,
		params:       params,
		client:       goopenai.NewClientWithConfig(cfg),
		logger:       logger.With(slog.String("module", "openai")),
	}
}

// Chat streams responses from the OpenAI chat completion API. The context can
// be used to cancel an ongoing request.
func (o OpenAI) Chat(
	ctx context.Context,
	messages []models.ChatMessage,
	model string,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		msgs := make([]goopenai.ChatCompletionMessage, 0, len(messages))
		for _, msg := range messages {
			if msg.Content == "" {
				continue
			}
			msgs = append(msgs, goopenai.ChatCompletionMessage{
				Role:    string(msg.Role),
				Content: msg.Content,
			})
		}
		if o.systemPrompt != "" && (len(msgs) == 0 || msgs[0].Role != string(models.RoleSystem)) {
			msgs = slices.Insert(msgs, 0, goopenai.ChatCompletionMessage{
				Role:    string(models.RoleSystem),
				Content: o.systemPrompt,
			})
		}

		req := goopenai.ChatCompletionRequest{
			Model:       model,
			Messages:    msgs,
			Stream:      true,
			Temperature: float32(o.params.Temperature),
			MaxTokens:   o.params.MaxTokens,
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := o.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", fmt.Errorf("error receiving response: %w", err))
				return
			}

			if len(response.Choices) == 0 {
				continue
			}

			delta := response.Choices[0].Delta.Content
			if delta == "" {
				continue
			}

			o.logger.Debug("Received delta", slog.String("delta", delta))

			if !yield(delta, nil) {
				return
			}
		}
	}
}
