package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"slices"

	"chat-relay/internal/models"

	"github.com/ollama/ollama/api"
)

// Ollama provides an implementation of the LLM interface for interacting with
// a local Ollama server. It needs no credential; the relay treats a configured
// host as its credential equivalent.
type Ollama struct {
	host         string
	systemPrompt string
	params       SamplingParams

	client *api.Client
}

// NewOllama creates a new Ollama instance with the specified host URL. The host
// parameter should be a valid URL pointing to an Ollama server. If the provided
// host URL is invalid, the function will panic.
func NewOllama(host, systemPrompt string, params SamplingParams) Ollama {
	u, err := url.Parse(host)
	if err != nil {
		panic(err)
	}

	return Ollama{
		host:         host,
		systemPrompt: systemPrompt,
		params:       params,
		client:       api.NewClient(u, &http.Client{}),
	}
}

// Chat streams responses from the Ollama model. The response is delivered
// incrementally through the returned iterator, and the context can be used to
// cancel an ongoing request.
func (o Ollama) Chat(
	ctx context.Context,
	messages []models.ChatMessage,
	model string,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		msgs := make([]api.Message, 0, len(messages))
		for _, msg := range messages {
			if msg.Content == "" {
				continue
			}
			msgs = append(msgs, api.Message{
				Role:    string(msg.Role),
				Content: msg.Content,
			})
		}
		if o.systemPrompt != "" && (len(msgs) == 0 || msgs[0].Role != string(models.RoleSystem)) {
			msgs = slices.Insert(msgs, 0, api.Message{
				Role:    string(models.RoleSystem),
				Content: o.systemPrompt,
			})
		}

		t := true
		req := api.ChatRequest{
			Model:    model,
			Messages: msgs,
			Stream:   &t,
			Options: map[string]any{
				"temperature": o.params.Temperature,
				"num_predict": o.params.MaxTokens,
			},
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
			if res.Message.Content == "" {
				return nil
			}
			if !yield(res.Message.Content, nil) {
				cancel()
			}
			return nil
		}); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
		}
	}
}
