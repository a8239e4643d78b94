package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ent0n29/prenova/internal/llm"
	"github.com/ent0n29/prenova/internal/observability"
	"github.com/ent0n29/prenova/internal/policy"
)

type ChatErrorKind string

const (
	UpstreamFailure ChatErrorKind = "upstream_failure"
	StoreFailure    ChatErrorKind = "store_failure"
)

// ChatError is returned by every failed chat turn. Nothing is persisted
// when Kind is UpstreamFailure.
type ChatError struct {
	Kind ChatErrorKind
	Err  error
}

func (e *ChatError) Error() string {
	switch e.Kind {
	case UpstreamFailure:
		return fmt.Sprintf("chat model unavailable: %v", e.Err)
	default:
		return fmt.Sprintf("conversation store unavailable: %v", e.Err)
	}
}

func (e *ChatError) Unwrap() error { return e.Err }

type ProcessorConfig struct {
	Model        string
	ChatTimeout  time.Duration
	StoreTimeout time.Duration
}

// Processor runs one chat turn at a time per user against the store and model.
type Processor struct {
	store   Store
	client  llm.Client
	cfg     ProcessorConfig
	locks   *keyedMutex
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewProcessor(store Store, client llm.Client, cfg ProcessorConfig, metrics *observability.Metrics, logger *slog.Logger) *Processor {
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = 120 * time.Second
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:   store,
		client:  client,
		cfg:     cfg,
		locks:   newKeyedMutex(),
		metrics: metrics,
		logger:  logger,
	}
}

// ProcessTurn appends text as a user turn, asks the model for a reply and
// saves the extended transcript. The stored history changes only when the
// whole turn succeeds.
func (p *Processor) ProcessTurn(ctx context.Context, owner, text string) (string, error) {
	start := time.Now()
	reply, err := p.processTurn(ctx, owner, text)
	p.metrics.ObserveStage(observability.StageChatTurnTotal, time.Since(start))

	outcome := "ok"
	var cerr *ChatError
	if errors.As(err, &cerr) {
		outcome = string(cerr.Kind)
	}
	if p.metrics != nil {
		p.metrics.ChatTurns.WithLabelValues(outcome).Inc()
	}
	return reply, err
}

func (p *Processor) processTurn(ctx context.Context, owner, text string) (string, error) {
	unlock, err := p.locks.Lock(ctx, owner)
	if err != nil {
		return "", &ChatError{Kind: StoreFailure, Err: fmt.Errorf("wait for conversation lock: %w", err)}
	}
	defer unlock()

	conv, err := p.load(ctx, owner)
	if err != nil {
		return "", err
	}

	history := append(cloneHistory(conv.History), Message{Role: RoleUser, Content: text})
	if p.logger.Enabled(ctx, slog.LevelDebug) {
		preview, _ := policy.RedactPII(text)
		p.logger.Debug("chat turn", "user_id", owner, "turns", len(history), "prompt", policy.Truncate(preview, 200))
	}

	reply, err := p.callModel(ctx, history)
	if err != nil {
		return "", err
	}

	conv.History = append(history, Message{Role: RoleAssistant, Content: reply})
	saveCtx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()
	saveStart := time.Now()
	_, err = p.store.Save(saveCtx, conv)
	p.metrics.ObserveStage(observability.StageChatSave, time.Since(saveStart))
	if err != nil {
		if errors.Is(err, ErrConflict) && p.metrics != nil {
			p.metrics.StoreConflicts.Inc()
			p.metrics.ObserveIndicator("store_conflict")
		}
		p.logger.Error("save conversation failed", "user_id", owner, "error", err)
		return "", &ChatError{Kind: StoreFailure, Err: err}
	}
	return reply, nil
}

// History returns the current transcript. Users without a stored
// conversation get the seed-only history, which is not persisted.
func (p *Processor) History(ctx context.Context, owner string) ([]Message, error) {
	conv, err := p.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return conv.History, nil
}

func (p *Processor) load(ctx context.Context, owner string) (Conversation, error) {
	loadCtx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()
	start := time.Now()
	conv, err := p.store.Load(loadCtx, owner)
	p.metrics.ObserveStage(observability.StageChatLoad, time.Since(start))
	if err != nil {
		p.logger.Error("load conversation failed", "user_id", owner, "error", err)
		return Conversation{}, &ChatError{Kind: StoreFailure, Err: err}
	}
	return conv, nil
}

func (p *Processor) callModel(ctx context.Context, history []Message) (string, error) {
	modelCtx, cancel := context.WithTimeout(ctx, p.cfg.ChatTimeout)
	defer cancel()

	msgs := make([]llm.Message, len(history))
	for i, m := range history {
		msgs[i] = llm.Message{Role: m.Role, Content: m.Content}
	}

	start := time.Now()
	reply, err := p.client.Chat(modelCtx, p.cfg.Model, msgs)
	elapsed := time.Since(start)
	p.metrics.ObserveStage(observability.StageChatModel, elapsed)
	if p.metrics != nil {
		p.metrics.ModelLatency.WithLabelValues(p.client.Provider()).Observe(elapsed.Seconds())
	}
	if err == nil && reply.Content == "" {
		err = llm.ErrEmptyReply
	}
	if err != nil {
		retryable := false
		var uerr *llm.UpstreamError
		if errors.As(err, &uerr) {
			retryable = uerr.Retryable()
		}
		if p.metrics != nil {
			p.metrics.UpstreamFailures.WithLabelValues(p.client.Provider(), strconv.FormatBool(retryable)).Inc()
		}
		p.logger.Warn("chat model call failed", "provider", p.client.Provider(), "retryable", retryable, "error", err)
		return "", &ChatError{Kind: UpstreamFailure, Err: err}
	}
	return reply.Content, nil
}
