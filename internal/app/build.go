package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ent0n29/prenova/internal/auth"
	"github.com/ent0n29/prenova/internal/config"
	"github.com/ent0n29/prenova/internal/conversation"
	"github.com/ent0n29/prenova/internal/diet"
	"github.com/ent0n29/prenova/internal/httpapi"
	"github.com/ent0n29/prenova/internal/inference"
	"github.com/ent0n29/prenova/internal/llm"
	"github.com/ent0n29/prenova/internal/observability"
	"github.com/ent0n29/prenova/internal/records"
)

type BuildResult struct {
	Config        config.Config
	API           *httpapi.Server
	Records       records.Store
	Conversations conversation.Store
	Metrics       *observability.Metrics
	Registry      *prometheus.Registry
	ChatProvider  string

	// Cleanup flushes traces and closes the stores. Safe to call once on shutdown.
	Cleanup func(ctx context.Context) error
}

// Models loads both classifier pipelines from the configured artifact paths.
func Models(cfg config.Config) (maternal, fetal *inference.Pipeline, err error) {
	maternal, err = inference.LoadPipeline(inference.MaternalSpec, cfg.MaternalModelPath, cfg.MaternalScalerPath)
	if err != nil {
		return nil, nil, err
	}
	fetal, err = inference.LoadPipeline(inference.FetalSpec, cfg.FetalModelPath, cfg.FetalScalerPath)
	if err != nil {
		return nil, nil, err
	}
	return maternal, fetal, nil
}

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:  cfg.MetricsNamespace,
		Environment:  cfg.Env,
		Exporter:     cfg.TracesExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(cfg.MetricsNamespace, reg)
	metrics.SetStageTargets(cfg.PerfStageTargets)

	maternal, fetal, err := Models(cfg)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("model load failed: %w", err)
	}

	verifier, err := auth.NewVerifier(auth.Options{
		Mode:         cfg.AuthMode,
		JWTSecret:    cfg.AuthJWTSecret,
		JWTAudience:  cfg.AuthJWTAudience,
		StaticTokens: cfg.AuthStaticTokens,
		SupabaseURL:  cfg.SupabaseURL,
		SupabaseKey:  cfg.SupabaseKey,
	})
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("auth init failed: %w", err)
	}

	client, err := llm.NewClient(llm.Config{
		Provider:      cfg.ChatProvider,
		OllamaHost:    cfg.OllamaAPIHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("chat client init failed: %w", err)
	}

	recordStore, err := records.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("record store init failed: %w", err)
	}
	convStore, err := conversation.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = recordStore.Close()
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("conversation store init failed: %w", err)
	}

	processor := conversation.NewProcessor(convStore, client, conversation.ProcessorConfig{
		Model:        cfg.ChatModelID,
		ChatTimeout:  cfg.ChatTimeout,
		StoreTimeout: cfg.StoreTimeout,
	}, metrics, logger)
	planner := diet.NewPlanner(client, recordStore, diet.Config{
		Model:        cfg.ChatModelID,
		ChatTimeout:  cfg.ChatTimeout,
		StoreTimeout: cfg.StoreTimeout,
	}, metrics, logger)

	api := httpapi.New(cfg, httpapi.Deps{
		Gate:          auth.NewGate(verifier),
		Maternal:      maternal,
		Fetal:         fetal,
		Records:       recordStore,
		Conversations: convStore,
		Chat:          processor,
		Diet:          planner,
		Metrics:       metrics,
		Gatherer:      reg,
		Logger:        logger,
	})

	cleanup := func(ctx context.Context) error {
		var errs []string
		if err := convStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := recordStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := shutdownTracing(ctx); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:        cfg,
		API:           api,
		Records:       recordStore,
		Conversations: convStore,
		Metrics:       metrics,
		Registry:      reg,
		ChatProvider:  client.Provider(),
		Cleanup:       cleanup,
	}, nil
}
