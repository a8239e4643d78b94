package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ent0n29/prenova/internal/auth"
	"github.com/ent0n29/prenova/internal/config"
	"github.com/ent0n29/prenova/internal/conversation"
	"github.com/ent0n29/prenova/internal/diet"
	"github.com/ent0n29/prenova/internal/inference"
	"github.com/ent0n29/prenova/internal/observability"
	"github.com/ent0n29/prenova/internal/records"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators a Server routes requests to.
type Deps struct {
	Gate          *auth.Gate
	Maternal      *inference.Pipeline
	Fetal         *inference.Pipeline
	Records       records.Store
	Conversations conversation.Store
	Chat          *conversation.Processor
	Diet          *diet.Planner
	Metrics       *observability.Metrics
	Gatherer      prometheus.Gatherer
	Logger        *slog.Logger
}

type Server struct {
	cfg      config.Config
	deps     Deps
	metrics  *observability.Metrics
	logger   *slog.Logger
	validate *validator.Validate
	limiter  *userLimiter
}

func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 5 * time.Second
	}
	return &Server{
		cfg:      cfg,
		deps:     deps,
		metrics:  deps.Metrics,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		limiter:  newUserLimiter(cfg.ChatRatePerMinute, cfg.ChatRateBurst),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "prenova is up")
	})
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", observability.MetricsHandler(s.deps.Gatherer).ServeHTTP)
	r.Get("/perf/latency", s.handlePerfLatency)

	r.Post("/create_doctor_profile", s.handleCreateDoctorProfile)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/predict_maternal", s.handlePredictMaternal)
		r.Post("/predict_fetal", s.handlePredictFetal)
		r.Get("/chat", s.handleChatHistory)
		r.Get("/history/{kind}", s.handleRecordHistory)
		r.With(s.rateLimit).Post("/chat", s.handleChat)
		r.With(s.rateLimit).Post("/diet_plan", s.handleDietPlan)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"chat_provider": s.cfg.ChatProvider,
		"auth_mode":     s.cfg.AuthMode,
		"store_mode":    s.storeMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.StoreTimeout)
	defer cancel()

	checks := map[string]string{}
	ready := true
	check := func(name string, err error) {
		if err != nil {
			ready = false
			checks[name] = err.Error()
			return
		}
		checks[name] = "ok"
	}

	if s.deps.Records != nil {
		check("records", s.deps.Records.Ping(ctx))
	}
	if s.deps.Conversations != nil {
		check("conversations", s.deps.Conversations.Ping(ctx))
	}
	if s.deps.Maternal == nil {
		check("maternal_model", errors.New("not loaded"))
	} else {
		check("maternal_model", nil)
	}
	if s.deps.Fetal == nil {
		check("fetal_model", errors.New("not loaded"))
	} else {
		check("fetal_model", nil)
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]any{"status": status, "checks": checks})
}

func (s *Server) storeMode() string {
	if strings.TrimSpace(s.cfg.DatabaseURL) == "" {
		return "in-memory"
	}
	return "postgres"
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// decodeAndValidate decodes the body into out and runs its validate tags.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, out any) error {
	if err := decodeJSON(w, r, out); err != nil {
		return &requestError{Err: err}
	}
	if err := s.validate.Struct(out); err != nil {
		return &requestError{Err: describeValidation(err)}
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
