// Package server wires the application together and serves the ops
// HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/ornabd/ornabot/internal/aicontext"
	"github.com/ornabd/ornabot/internal/alert"
	"github.com/ornabd/ornabot/internal/cache"
	"github.com/ornabd/ornabot/internal/config"
	"github.com/ornabd/ornabot/internal/llm"
	"github.com/ornabd/ornabot/internal/router"
	"github.com/ornabd/ornabot/internal/scheduler"
	"github.com/ornabd/ornabot/internal/scraper"
	"github.com/ornabd/ornabot/internal/session"
	"github.com/ornabd/ornabot/internal/store"
	"github.com/ornabd/ornabot/internal/telegram"
)

// Server owns every component and the ops API.
type Server struct {
	config    *config.Config
	store     *store.Store
	cache     *cache.Cache
	builder   *aicontext.Builder
	sessions  *session.Store
	routes    *router.Router
	bot       *telegram.Bot
	scheduler *scheduler.Scheduler
	router    chi.Router
	log       *zap.Logger
	startedAt time.Time
}

// New creates a Server with all dependencies wired.
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	ctxCache := cache.New(cfg.CacheTTL)
	sessions := session.NewStore(cfg.AdminIDs, cfg.HistoryLimit)

	var scr *scraper.Scraper
	var content aicontext.ContentProvider
	if cfg.WebsiteURL != "" {
		scr = scraper.New(cfg.WebsiteURL, cfg.ScrapeTimeout)
		content = scr
	}
	builder := aicontext.New(st, content, ctxCache, cfg.ScrapingEnabled, log)

	registry := llm.Registry{llm.ProviderStatic: llm.NewStaticClient()}
	if cfg.GeminiAPIKey != "" {
		registry[llm.ProviderGemini] = llm.NewGeminiClient(cfg.GeminiAPIKey)
	}
	if cfg.OpenAIAPIKey != "" {
		registry[llm.ProviderOpenAI] = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	log.Info("model providers configured",
		zap.Bool("gemini", cfg.GeminiAPIKey != ""),
		zap.Bool("openai", cfg.OpenAIAPIKey != ""),
	)

	routes := router.New(router.Config{
		Cooldown:      cfg.Cooldown,
		ModelTimeout:  cfg.ModelTimeout,
		HistoryLimit:  cfg.HistoryLimit,
		SalesModel:    cfg.SalesModel,
		BusinessModel: cfg.BusinessModel,
		ReportModel:   cfg.ReportModel,
	}, sessions, builder, st, st, registry, log)

	bot, err := telegram.NewBot(cfg.TelegramBotToken, sessions, st, routes, builder, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	notifiers := alert.Multi{alert.NewTelegram(bot.API(), cfg.AdminIDList(), log)}
	if cfg.SlackEnabled() {
		notifiers = append(notifiers, alert.NewSlack(slack.New(cfg.SlackToken), cfg.SlackChannel, log))
		log.Info("slack alerts enabled", zap.String("channel", cfg.SlackChannel))
	}

	var site scheduler.SiteChecker
	if scr != nil {
		site = scr
	}
	sched, err := scheduler.New(scheduler.Config{
		MonitorInterval: cfg.MonitorInterval,
		OrderPollEvery:  cfg.OrderPollEvery,
		ReportHour:      cfg.ReportHour,
		MonitorEnabled:  scr != nil,
	}, site, st, routes, notifiers, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	s := &Server{
		config:    cfg,
		store:     st,
		cache:     ctxCache,
		builder:   builder,
		sessions:  sessions,
		routes:    routes,
		bot:       bot,
		scheduler: sched,
		log:       log,
		startedAt: time.Now(),
	}
	s.router = s.buildRouter()
	return s, nil
}

// Start runs the bot, the schedulers, and the ops API. Blocks until ctx
// is canceled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.bot.Run(ctx); err != nil {
			s.log.Error("telegram bot stopped", zap.Error(err))
		}
	}()

	s.scheduler.Start()
	defer s.scheduler.Stop()

	srv := &http.Server{
		Addr:    s.config.ServerAddr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("ops API listening", zap.String("addr", s.config.ServerAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return s.store.Close()
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/sessions", s.handleSessions)
		r.Post("/cache/invalidate", s.handleCacheInvalidate)
	})

	return r
}

type statusResponse struct {
	Status    string           `json:"status"`
	Uptime    string           `json:"uptime"`
	Cache     cache.Stats      `json:"cache"`
	Scheduler scheduler.Status `json:"scheduler"`
	Sessions  session.Stats    `json:"sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:    "ok",
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Cache:     s.cache.Stats(),
		Scheduler: s.scheduler.Status(),
		Sessions:  s.sessions.Stats(),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Summaries())
}

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	s.builder.Refresh()
	s.log.Info("context cache invalidated via ops API")
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
