package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/ent0n29/prenova/internal/reliability"
)

var tracer = otel.Tracer("prenova.llm")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client sends a full transcript to a chat model and returns the assistant reply.
type Client interface {
	Chat(ctx context.Context, model string, messages []Message) (Message, error)
	Provider() string
}

var ErrEmptyReply = errors.New("model returned an empty reply")

// UpstreamError wraps every failure that originates at the model backend.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s upstream status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s upstream: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether a caller could reasonably try again later.
// The service itself never retries.
func (e *UpstreamError) Retryable() bool {
	if e.StatusCode != 0 {
		return reliability.IsRetryableHTTPStatus(e.StatusCode)
	}
	return reliability.IsTimeout(e.Err)
}

// Config controls client construction.
type Config struct {
	Provider      string
	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "ollama", "":
		if strings.TrimSpace(cfg.OllamaHost) == "" {
			return nil, errors.New("ollama host is required for ollama provider")
		}
		return NewOllamaClient(cfg.OllamaHost, nil), nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, errors.New("openai api key is required for openai provider")
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported chat provider %q", cfg.Provider)
	}
}

func checkReply(provider string, msg Message) (Message, error) {
	if strings.TrimSpace(msg.Content) == "" {
		return Message{}, &UpstreamError{Provider: provider, Err: ErrEmptyReply}
	}
	if msg.Role == "" {
		msg.Role = RoleAssistant
	}
	return msg, nil
}
