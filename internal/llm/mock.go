package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient provides deterministic local replies when no model backend is available.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Provider() string { return "mock" }

func (c *MockClient) Chat(ctx context.Context, _ string, messages []Message) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, &UpstreamError{Provider: c.Provider(), Err: ctx.Err()}
	default:
	}

	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			last = strings.TrimSpace(messages[i].Content)
			break
		}
	}
	if last == "" {
		last = "I am listening."
	}
	return Message{Role: RoleAssistant, Content: fmt.Sprintf("I heard you: %s", last)}, nil
}
