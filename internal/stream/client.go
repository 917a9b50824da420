package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"chat-relay/internal/models"
)

// ErrCancelled reports a user-initiated abort of an in-flight stream. Callers
// must treat it as a non-fatal action, never as a failure to display.
var ErrCancelled = errors.New("stream cancelled")

// RelayError carries the error envelope returned by the relay for a
// non-success response.
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay error: %s (status %d)", e.Message, e.StatusCode)
}

// Client issues chat completion requests against a relay endpoint and decodes
// the streamed response.
type Client struct {
	baseURL string
	client  *http.Client

	logger *slog.Logger
}

// NewClient creates a relay client for the given base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, logger *slog.Logger) Client {
	return Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
		logger:  logger.With(slog.String("module", "stream")),
	}
}

type chatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
	Model    string               `json:"model"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// Stream posts the messages to the relay and yields content deltas as they
// arrive. Cancelling the context aborts the request and surfaces ErrCancelled;
// a non-success response surfaces a *RelayError; any other transport failure
// propagates wrapped. The response body is released on every exit path.
func (c Client) Stream(
	ctx context.Context,
	messages []models.ChatMessage,
	model string,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		body, err := json.Marshal(chatRequest{Messages: messages, Model: model})
		if err != nil {
			yield("", fmt.Errorf("error marshaling request: %w", err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/chat", bytes.NewReader(body))
		if err != nil {
			yield("", fmt.Errorf("error creating request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				yield("", ErrCancelled)
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			relayErr := &RelayError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
			}
			var env errorEnvelope
			if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != "" {
				relayErr.Message = env.Error
			}
			yield("", relayErr)
			return
		}

		for delta, err := range Deltas(resp.Body) {
			if err != nil {
				if errors.Is(err, context.Canceled) {
					yield("", ErrCancelled)
					return
				}
				yield("", fmt.Errorf("error reading response: %w", err))
				return
			}

			c.logger.Debug("Received delta", slog.String("delta", delta))

			if !yield(delta, nil) {
				return
			}
		}
	}
}

// Complete runs Stream to completion and returns the concatenated response.
func (c Client) Complete(ctx context.Context, messages []models.ChatMessage, model string) (string, error) {
	var sb strings.Builder
	for delta, err := range c.Stream(ctx, messages, model) {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(delta)
	}
	return sb.String(), nil
}
