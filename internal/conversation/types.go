package conversation

import (
	"context"
	"errors"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SeedPreamble opens every new conversation.
const SeedPreamble = "You are prenova, an AI assistant that is here to help you with the user's pregnancy journey. " +
	"You will only provide information that is accurate and helpful to the user. " +
	"You will not provide any medical advice or diagnosis. " +
	"You will also not provide any information that is not related to pregnancy. " +
	"You will be polite and respectful to the user at all times. " +
	"You will be rewarded for providing accurate and helpful information and penalized for providing inaccurate or unhelpful information. " +
	"You will be deactivated if you provide inaccurate or unhelpful information repeatedly."

var (
	// ErrConflict means another writer saved the conversation after it was loaded.
	ErrConflict = errors.New("conversation was modified concurrently")
	ErrEmpty    = errors.New("conversation history is empty")
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the latest transcript for one user. Version 0 means it
// has never been saved.
type Conversation struct {
	Owner     string    `json:"owner"`
	History   []Message `json:"history"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// New returns an unsaved conversation holding only the seed message.
func New(owner string) Conversation {
	return Conversation{
		Owner:   owner,
		History: []Message{{Role: RoleSystem, Content: SeedPreamble}},
	}
}

// Store loads and saves the latest conversation per user.
type Store interface {
	// Load returns the stored conversation, or New(owner) when none exists.
	Load(ctx context.Context, owner string) (Conversation, error)
	// Save replaces the stored conversation if its version still matches
	// conv.Version and returns the conversation with the bumped version.
	Save(ctx context.Context, conv Conversation) (Conversation, error)
	Ping(ctx context.Context) error
	Close() error
}

func cloneHistory(in []Message) []Message {
	out := make([]Message, len(in))
	copy(out, in)
	return out
}
