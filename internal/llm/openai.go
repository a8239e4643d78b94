package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OpenAIClient targets any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client *openai.Client
}

func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAIClient) Provider() string { return "openai" }

func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message) (Message, error) {
	ctx, span := tracer.Start(ctx, "OpenAIClient.Chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.Int("llm.num_messages", len(messages)),
	)

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uerr := &UpstreamError{Provider: c.Provider(), Err: err}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			uerr.StatusCode = apiErr.HTTPStatusCode
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			uerr.StatusCode = reqErr.HTTPStatusCode
		}
		return Message{}, uerr
	}
	if len(resp.Choices) == 0 {
		err := &UpstreamError{Provider: c.Provider(), Err: errors.New("no choices returned")}
		span.SetStatus(codes.Error, err.Error())
		return Message{}, err
	}
	choice := resp.Choices[0].Message
	return checkReply(c.Provider(), Message{Role: choice.Role, Content: choice.Content})
}
