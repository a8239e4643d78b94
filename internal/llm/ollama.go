package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OllamaClient talks to the Ollama /api/chat endpoint without streaming.
type OllamaClient struct {
	baseURL string
	client  *http.Client
}

// NewOllamaClient builds a client for host. Timeouts come from the caller's context.
func NewOllamaClient(host string, client *http.Client) *OllamaClient {
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaClient{
		baseURL: strings.TrimSuffix(strings.TrimSpace(host), "/"),
		client:  client,
	}
}

func (c *OllamaClient) Provider() string { return "ollama" }

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Error   string  `json:"error,omitempty"`
}

func (c *OllamaClient) Chat(ctx context.Context, model string, messages []Message) (Message, error) {
	ctx, span := tracer.Start(ctx, "OllamaClient.Chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.Int("llm.num_messages", len(messages)),
	)

	msg, err := c.chat(ctx, model, messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Message{}, err
	}
	return msg, nil
}

func (c *OllamaClient) chat(ctx context.Context, model string, messages []Message) (Message, error) {
	payload, err := json.Marshal(ollamaChatRequest{Model: model, Messages: messages, Stream: false})
	if err != nil {
		return Message{}, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return Message{}, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return Message{}, &UpstreamError{Provider: c.Provider(), Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return Message{}, &UpstreamError{Provider: c.Provider(), Err: fmt.Errorf("read response: %w", err)}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return Message{}, &UpstreamError{Provider: c.Provider(), StatusCode: res.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(snippet))}
	}

	var out ollamaChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Message{}, &UpstreamError{Provider: c.Provider(), Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Error != "" {
		return Message{}, &UpstreamError{Provider: c.Provider(), Err: fmt.Errorf("%s", out.Error)}
	}
	return checkReply(c.Provider(), out.Message)
}
