// Package agent talks to the external agent-execution engine. From this
// service's point of view the engine is a text-in/text-out black box: tool
// use, retrieval and reasoning all happen on the other side of the wire.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/patsaid/ts-agentic-api/internal/errors"
)

const systemPrompt = "You are a helpful assistant that can answer questions and use tools if needed."

// requestTimeout bounds the single upstream call; it is the dominant latency
// source of every ask-style request.
const requestTimeout = 60 * time.Second

// Agent answers a single question. Implementations must not mutate any
// application state.
type Agent interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	apiURL string
	apiKey string
	model  string
	client *http.Client
}

// NewClient builds a client for the configured engine.
func NewClient(apiURL, apiKey, model string) *Client {
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: requestTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Ask sends one question and returns the engine's answer. It is a single
// best-effort call: no retries, failure propagates to the caller.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: question},
		},
		Temperature: 0,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", apperrors.ErrAgentUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrAgentUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrAgentUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", apperrors.ErrAgentUnavailable, err)
	}

	var decoded chatResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("%w: malformed response", apperrors.ErrAgentUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		if decoded.Error != nil && decoded.Error.Message != "" {
			return "", fmt.Errorf("%w: %s", apperrors.ErrAgentUnavailable, decoded.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d", apperrors.ErrAgentUnavailable, resp.StatusCode)
	}

	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty answer", apperrors.ErrAgentUnavailable)
	}
	return decoded.Choices[0].Message.Content, nil
}
