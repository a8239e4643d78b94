package diet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ent0n29/prenova/internal/conversation"
	"github.com/ent0n29/prenova/internal/llm"
	"github.com/ent0n29/prenova/internal/observability"
	"github.com/ent0n29/prenova/internal/records"
)

// Trimester accepts "second" as well as 2 on the wire.
type Trimester string

func (t *Trimester) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Trimester(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("trimester must be a string or number")
	}
	*t = Trimester(n.String())
	return nil
}

type Request struct {
	Trimester         Trimester `json:"trimester" validate:"required"`
	Weight            float64   `json:"weight" validate:"required,gt=0,lt=400"`
	HealthConditions  string    `json:"health_conditions"`
	DietaryPreference string    `json:"dietary_preference"`
}

// Prompt renders the single-shot dietician instruction for r.
func Prompt(r Request) string {
	return fmt.Sprintf("You are a professional dietician and nutritionist. "+
		"You suggest excellent diet plans for pregnant women that look after their well being and growth. "+
		"You will now suggest a diet plan for a %s trimester pregnant woman weighing about %s kg, "+
		"who is feeling %s and has strict dietary preferences as follows: %s. "+
		"Do not suggest any foods that can cause harm or go against the dietary preferences. "+
		"Suggest both a vegetarian only and a non-vegetarian diet plan separately for her and just give the plan.",
		strings.TrimSpace(string(r.Trimester)),
		strconv.FormatFloat(r.Weight, 'f', -1, 64),
		strings.TrimSpace(r.HealthConditions),
		strings.TrimSpace(r.DietaryPreference),
	)
}

type Config struct {
	Model        string
	ChatTimeout  time.Duration
	StoreTimeout time.Duration
}

// Planner asks the chat model for a diet plan and keeps a copy per user.
type Planner struct {
	client  llm.Client
	store   records.Store
	cfg     Config
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewPlanner(client llm.Client, store records.Store, cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Planner {
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = 120 * time.Second
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{client: client, store: store, cfg: cfg, metrics: metrics, logger: logger}
}

// Plan returns the generated markdown. Failures are *conversation.ChatError.
func (p *Planner) Plan(ctx context.Context, owner string, r Request) (string, error) {
	modelCtx, cancel := context.WithTimeout(ctx, p.cfg.ChatTimeout)
	defer cancel()

	start := time.Now()
	reply, err := p.client.Chat(modelCtx, p.cfg.Model, []llm.Message{{Role: llm.RoleUser, Content: Prompt(r)}})
	p.metrics.ObserveStage(observability.StageDietModel, time.Since(start))
	if err == nil && strings.TrimSpace(reply.Content) == "" {
		err = llm.ErrEmptyReply
	}
	if err != nil {
		p.logger.Warn("diet plan model call failed", "provider", p.client.Provider(), "error", err)
		return "", &conversation.ChatError{Kind: conversation.UpstreamFailure, Err: err}
	}

	storeCtx, cancelStore := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancelStore()
	_, err = p.store.Insert(storeCtx, records.TableDietPlans, records.Row{
		records.ColumnUID:    owner,
		"trimester":          string(r.Trimester),
		"weight":             r.Weight,
		"health_conditions":  r.HealthConditions,
		"dietary_preference": r.DietaryPreference,
		"diet_plan":          reply.Content,
	})
	if err != nil {
		p.logger.Error("store diet plan failed", "user_id", owner, "error", err)
		return "", &conversation.ChatError{Kind: conversation.StoreFailure, Err: err}
	}
	return reply.Content, nil
}
