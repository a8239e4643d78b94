package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/prenova/internal/llm"
	"github.com/ent0n29/prenova/internal/observability"
)

type scriptedClient struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (c *scriptedClient) Provider() string { return "scripted" }

func (c *scriptedClient) Chat(ctx context.Context, model string, messages []llm.Message) (llm.Message, error) {
	n := c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return llm.Message{}, ctx.Err()
		}
	}
	if c.err != nil {
		return llm.Message{}, c.err
	}
	return llm.Message{Role: llm.RoleAssistant, Content: fmt.Sprintf("reply %d to %s", n, messages[len(messages)-1].Content)}, nil
}

type brokenStore struct {
	*InMemoryStore
	loadErr error
	saveErr error
}

func (s *brokenStore) Load(ctx context.Context, owner string) (Conversation, error) {
	if s.loadErr != nil {
		return Conversation{}, s.loadErr
	}
	return s.InMemoryStore.Load(ctx, owner)
}

func (s *brokenStore) Save(ctx context.Context, conv Conversation) (Conversation, error) {
	if s.saveErr != nil {
		return Conversation{}, s.saveErr
	}
	return s.InMemoryStore.Save(ctx, conv)
}

func newTestProcessor(store Store, client llm.Client) *Processor {
	metrics := observability.NewMetrics("conversation_test", prometheus.NewRegistry())
	return NewProcessor(store, client, ProcessorConfig{Model: "test-model"}, metrics, nil)
}

func assertAlternating(t *testing.T, history []Message) {
	t.Helper()
	require.NotEmpty(t, history)
	assert.Equal(t, RoleSystem, history[0].Role)
	assert.Equal(t, SeedPreamble, history[0].Content)
	for i, m := range history[1:] {
		want := RoleUser
		if i%2 == 1 {
			want = RoleAssistant
		}
		assert.Equal(t, want, m.Role, "message %d", i+1)
	}
}

func TestProcessTurnGrowsHistoryByTwo(t *testing.T) {
	store := NewInMemoryStore()
	p := newTestProcessor(store, &scriptedClient{})
	ctx := context.Background()

	const turns = 4
	for i := 0; i < turns; i++ {
		reply, err := p.ProcessTurn(ctx, "user-1", fmt.Sprintf("question %d", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("reply %d to question %d", i+1, i), reply)
	}

	history, err := p.History(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, history, 1+2*turns)
	assertAlternating(t, history)
	assert.Equal(t, "question 3", history[len(history)-2].Content)
}

func TestHistoryForNewUserIsSeedOnlyAndNotPersisted(t *testing.T) {
	store := NewInMemoryStore()
	client := &scriptedClient{}
	p := newTestProcessor(store, client)

	first, err := p.History(context.Background(), "fresh")
	require.NoError(t, err)
	second, err := p.History(context.Background(), "fresh")
	require.NoError(t, err)

	assert.Equal(t, []Message{{Role: RoleSystem, Content: SeedPreamble}}, first)
	assert.Equal(t, first, second)
	assert.False(t, store.Stored("fresh"))
	assert.Zero(t, client.calls.Load())
}

func TestUpstreamFailureLeavesHistoryUnchanged(t *testing.T) {
	store := NewInMemoryStore()
	ok := newTestProcessor(store, &scriptedClient{})
	_, err := ok.ProcessTurn(context.Background(), "user-1", "hello")
	require.NoError(t, err)
	before, err := store.Load(context.Background(), "user-1")
	require.NoError(t, err)

	failing := newTestProcessor(store, &scriptedClient{err: &llm.UpstreamError{Provider: "scripted", StatusCode: 502, Err: errors.New("bad gateway")}})
	_, err = failing.ProcessTurn(context.Background(), "user-1", "are you there?")

	var cerr *ChatError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, UpstreamFailure, cerr.Kind)

	after, err := store.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpstreamFailureForNewUserWritesNothing(t *testing.T) {
	store := NewInMemoryStore()
	p := newTestProcessor(store, &scriptedClient{err: errors.New("connection refused")})
	_, err := p.ProcessTurn(context.Background(), "new", "hi")

	var cerr *ChatError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, UpstreamFailure, cerr.Kind)
	assert.False(t, store.Stored("new"))
}

func TestChatTimeoutIsUpstreamFailure(t *testing.T) {
	store := NewInMemoryStore()
	metrics := observability.NewMetrics("conversation_timeout_test", prometheus.NewRegistry())
	p := NewProcessor(store, &scriptedClient{delay: time.Second}, ProcessorConfig{ChatTimeout: 20 * time.Millisecond}, metrics, nil)

	_, err := p.ProcessTurn(context.Background(), "slow", "hi")
	var cerr *ChatError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, UpstreamFailure, cerr.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, store.Stored("slow"))
}

func TestStoreFailures(t *testing.T) {
	client := &scriptedClient{}
	p := newTestProcessor(&brokenStore{InMemoryStore: NewInMemoryStore(), loadErr: errors.New("db down")}, client)
	_, err := p.ProcessTurn(context.Background(), "u", "hi")
	var cerr *ChatError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, StoreFailure, cerr.Kind)
	assert.Zero(t, client.calls.Load())

	_, err = p.History(context.Background(), "u")
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, StoreFailure, cerr.Kind)

	p = newTestProcessor(&brokenStore{InMemoryStore: NewInMemoryStore(), saveErr: ErrConflict}, client)
	_, err = p.ProcessTurn(context.Background(), "u", "hi")
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, StoreFailure, cerr.Kind)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestConcurrentTurnsForOneUserAreSerialized(t *testing.T) {
	store := NewInMemoryStore()
	p := newTestProcessor(store, &scriptedClient{delay: 2 * time.Millisecond})

	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.ProcessTurn(context.Background(), "busy", fmt.Sprintf("m%d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := p.History(context.Background(), "busy")
	require.NoError(t, err)
	assert.Len(t, history, 1+2*n)
	assertAlternating(t, history)
	assert.Zero(t, p.locks.size())
}
