package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"slices"

	"chat-relay/internal/models"

	"github.com/tmaxmax/go-sse"
)

// OpenRouter provides an implementation of the LLM interface for interacting
// with OpenRouter's language models. This is the default upstream for the
// relay; the model is chosen per request since OpenRouter fronts many providers
// behind one API.
type OpenRouter struct {
	apiKey       string
	systemPrompt string
	params       SamplingParams

	client *http.Client

	logger *slog.Logger
}

// SamplingParams holds the sampling configuration forwarded upstream with every
// completion request.
type SamplingParams struct {
	Temperature float64
	MaxTokens   int
}

type openRouterChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Stream      bool                `json:"stream"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterStreamingResponse struct {
	Choices []openRouterStreamingChoice `json:"choices"`
}

type openRouterStreamingChoice struct {
	Delta openRouterMessage `json:"delta"`
}

const openRouterAPIEndpoint = "https://openrouter.ai/api/v1"

// NewOpenRouter creates a new OpenRouter instance with the specified API key,
// optional system prompt, and sampling parameters.
func NewOpenRouter(apiKey, systemPrompt string, params SamplingParams, logger *slog.Logger) OpenRouter {
	return OpenRouter{
		apiKey:       apiKey,
		systemPrompt: systemPrompt,
		params:       params,
		client:       &http.Client{},
		logger:       logger.With(slog.String("module", "openrouter")),
	}
}

// Chat streams responses from the OpenRouter API for a given sequence of
// messages. It returns an iterator that yields content deltas and potential
// errors. The context can be used to cancel an ongoing request.
func (o OpenRouter) Chat(
	ctx context.Context,
	messages []models.ChatMessage,
	model string,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := o.doRequest(ctx, messages, model)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
			return
		}
		defer resp.Body.Close()

		for ev, err := range sse.Read(resp.Body, nil) {
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", fmt.Errorf("error reading response: %w", err))
				return
			}

			o.logger.Debug("Received event", slog.String("event", ev.Data))

			if ev.Data == "[DONE]" {
				break
			}

			var res openRouterStreamingResponse
			if err := json.Unmarshal([]byte(ev.Data), &res); err != nil {
				yield("", fmt.Errorf("error unmarshaling response: %w", err))
				return
			}

			if len(res.Choices) == 0 {
				continue
			}

			if res.Choices[0].Delta.Content != "" {
				if !yield(res.Choices[0].Delta.Content, nil) {
					break
				}
			}
		}
	}
}

func (o OpenRouter) doRequest(
	ctx context.Context,
	messages []models.ChatMessage,
	model string,
) (*http.Response, error) {
	msgs := make([]openRouterMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		msgs = append(msgs, openRouterMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	if o.systemPrompt != "" && (len(msgs) == 0 || msgs[0].Role != string(models.RoleSystem)) {
		msgs = slices.Insert(msgs, 0, openRouterMessage{
			Role:    string(models.RoleSystem),
			Content: o.systemPrompt,
		})
	}

	reqBody := openRouterChatRequest{
		Model:       model,
		Messages:    msgs,
		Stream:      true,
		Temperature: o.params.Temperature,
		MaxTokens:   o.params.MaxTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	o.logger.Debug("Request Body", slog.String("body", string(jsonBody)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		openRouterAPIEndpoint+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}
