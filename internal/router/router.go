// Package router classifies inbound messages and drives the model
// fallback chain. It owns the request pipeline: cooldown, entity fast
// path, tracking-mode handling, intent classification, authorization,
// and the per-candidate attempt loop.
package router

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ornabd/ornabot/internal/entity"
	"github.com/ornabd/ornabot/internal/llm"
	"github.com/ornabd/ornabot/internal/session"
	"github.com/ornabd/ornabot/internal/store"
)

// Intent is the classified purpose of a message.
type Intent string

const (
	IntentSales    Intent = "sales"
	IntentBusiness Intent = "business"
	IntentReport   Intent = "report"
	IntentTracking Intent = "tracking"
)

var (
	// ErrRateLimited means the user sent a message inside the cooldown
	// window. No state changed.
	ErrRateLimited = errors.New("router: rate limited")

	// ErrUnauthorized means a customer asked for an admin-only intent.
	// Rejected before any provider call.
	ErrUnauthorized = errors.New("router: unauthorized")

	// ErrExhausted means every candidate in the route failed.
	ErrExhausted = errors.New("router: all models failed")
)

// Reply is a successful routing outcome.
type Reply struct {
	Text      string
	Intent    Intent
	Model     string
	RequestID string
}

// ContextBuilder assembles the role-scoped model context.
type ContextBuilder interface {
	Build(ctx context.Context, role session.Role) (string, error)
}

// OrderFinder is the store slice the entity fast path reads.
type OrderFinder interface {
	OrderByID(orderID int64) (*store.Order, error)
	OrderByPhone(phone string) (*store.Order, error)
}

// ReportData is the store slice the daily report reads.
type ReportData interface {
	TodayStats() (store.PeriodStats, error)
	OrderCountByStatus() (map[string]int, error)
	TopProducts(days, limit int) ([]store.TopProduct, error)
}

type routeKey struct {
	role   session.Role
	intent Intent
}

// Config carries the routing knobs the router needs.
type Config struct {
	Cooldown      time.Duration
	ModelTimeout  time.Duration
	HistoryLimit  int
	SalesModel    string
	BusinessModel string
	ReportModel   string
}

// Router ties sessions, context, the store, and the model clients
// together.
type Router struct {
	cfg      Config
	sessions *session.Store
	builder  ContextBuilder
	orders   OrderFinder
	reports  ReportData
	clients  llm.Registry
	routes   map[routeKey][]string
	log      *zap.Logger
	now      func() time.Time
}

// New builds a Router with an immutable route table. Every route ends
// in the static fallback so a well-formed request always gets an
// answer.
func New(cfg Config, sessions *session.Store, builder ContextBuilder, orders OrderFinder, reports ReportData, clients llm.Registry, log *zap.Logger) *Router {
	routes := map[routeKey][]string{
		{session.RoleCustomer, IntentSales}:    {cfg.SalesModel, llm.ProviderStatic},
		{session.RoleCustomer, IntentTracking}: {cfg.SalesModel, llm.ProviderStatic},
		{session.RoleAdmin, IntentSales}:       {cfg.SalesModel, llm.ProviderStatic},
		{session.RoleAdmin, IntentTracking}:    {cfg.BusinessModel, cfg.SalesModel, llm.ProviderStatic},
		{session.RoleAdmin, IntentBusiness}:    {cfg.BusinessModel, cfg.SalesModel, llm.ProviderStatic},
		{session.RoleAdmin, IntentReport}:      {cfg.ReportModel, cfg.BusinessModel, llm.ProviderStatic},
	}
	return &Router{
		cfg:      cfg,
		sessions: sessions,
		builder:  builder,
		orders:   orders,
		reports:  reports,
		clients:  clients,
		routes:   routes,
		log:      log,
		now:      time.Now,
	}
}

// Handle processes one inbound message end to end.
func (r *Router) Handle(ctx context.Context, userID int64, text string) (Reply, error) {
	reqID := uuid.NewString()
	role := r.sessions.Role(userID)
	text = strings.TrimSpace(text)

	log := r.log.With(
		zap.String("request_id", reqID),
		zap.Int64("user_id", userID),
		zap.String("role", string(role)),
	)

	// Cooldown first. Rejection mutates nothing.
	if last := r.sessions.LastRequest(userID); !last.IsZero() {
		if elapsed := r.now().Sub(last); elapsed < r.cfg.Cooldown {
			log.Debug("rate limited", zap.Duration("elapsed", elapsed))
			return Reply{RequestID: reqID}, ErrRateLimited
		}
	}

	// Entity fast path: a phone or order id anywhere in the text
	// resolves deterministically, regardless of role or mode.
	if ent := entity.Detect(text); ent.Kind != entity.KindNone {
		if r.sessions.Mode(userID) == session.ModeAwaitingTracking {
			r.sessions.SetMode(userID, session.ModeIdle)
		}
		reply := r.lookupOrder(ent, log)
		return Reply{Text: reply, Intent: IntentTracking, RequestID: reqID}, nil
	}

	if r.sessions.Mode(userID) == session.ModeAwaitingTracking {
		if isCancel(text) {
			r.sessions.SetMode(userID, session.ModeIdle)
			return Reply{Text: "No problem. Ask me anything else!", Intent: IntentTracking, RequestID: reqID}, nil
		}
		// Still no identifier; ask again and stay in tracking mode.
		return Reply{Text: trackingPrompt, Intent: IntentTracking, RequestID: reqID}, nil
	}

	if entity.HasOrderKeyword(text) {
		r.sessions.SetMode(userID, session.ModeAwaitingTracking)
		return Reply{Text: trackingPrompt, Intent: IntentTracking, RequestID: reqID}, nil
	}

	intent := classify(role, text)
	if role != session.RoleAdmin && adminOnly(intent) {
		log.Info("admin intent from customer rejected", zap.String("intent", string(intent)))
		return Reply{Intent: intent, RequestID: reqID}, ErrUnauthorized
	}

	if err := r.sessions.BeginReply(ctx, userID); err != nil {
		return Reply{RequestID: reqID}, err
	}
	defer r.sessions.EndReply(userID)

	reply, model, err := r.generate(ctx, userID, role, intent, text, log)
	if err != nil {
		return Reply{Intent: intent, RequestID: reqID}, err
	}

	r.sessions.AppendExchange(userID, text, reply)
	r.sessions.SetLastRequest(userID, r.now())
	return Reply{Text: reply, Intent: intent, Model: model, RequestID: reqID}, nil
}

// generate runs the attempt loop over the route for {role, intent}.
// Candidate failures advance the chain; only exhaustion is terminal.
func (r *Router) generate(ctx context.Context, userID int64, role session.Role, intent Intent, text string, log *zap.Logger) (string, string, error) {
	contextText, err := r.builder.Build(ctx, role)
	if err != nil {
		return "", "", fmt.Errorf("assembling context: %w", err)
	}

	req := llm.Request{
		System:   personaFor(role, intent),
		Context:  contextText,
		History:  r.sessions.HistoryText(userID, r.cfg.HistoryLimit),
		UserText: text,
	}

	for _, model := range r.routes[routeKey{role, intent}] {
		client := r.clients.ClientFor(model)
		if client == nil {
			log.Debug("provider not configured", zap.String("model", model))
			continue
		}
		req.Model = model

		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.ModelTimeout)
		reply, err := client.Generate(attemptCtx, req)
		cancel()
		if err != nil {
			log.Warn("model attempt failed", zap.String("model", model), zap.Error(err))
			continue
		}
		log.Info("reply generated", zap.String("model", model), zap.String("intent", string(intent)))
		return reply, model, nil
	}

	return "", "", ErrExhausted
}

// lookupOrder resolves a detected entity against the store and formats
// the result. Lookups never call a model.
func (r *Router) lookupOrder(ent entity.Entity, log *zap.Logger) string {
	var (
		order *store.Order
		err   error
	)
	switch ent.Kind {
	case entity.KindPhone:
		order, err = r.orders.OrderByPhone(ent.Value)
	case entity.KindOrderID:
		id, convErr := strconv.ParseInt(ent.Value, 10, 64)
		if convErr != nil {
			return orderNotFound(ent)
		}
		order, err = r.orders.OrderByID(id)
	}
	if errors.Is(err, store.ErrNotFound) {
		return orderNotFound(ent)
	}
	if err != nil {
		log.Error("order lookup failed", zap.String("entity", ent.Value), zap.Error(err))
		return lookupUnavailable
	}
	return FormatOrderDetails(order)
}

// BuildAlert renders the admin notification for a newly seen order.
// Deterministic text for the schedulers; no model involved.
func (r *Router) BuildAlert(o *store.Order) string {
	return formatNewOrderAlert(o)
}

// BuildReport produces the daily report through the reporting tier. On
// chain exhaustion it returns the plain stats text so the report still
// goes out.
func (r *Router) BuildReport(ctx context.Context) (string, error) {
	stats, err := plainReport(r.reports)
	if err != nil {
		return "", fmt.Errorf("gathering report data: %w", err)
	}

	req := llm.Request{
		System:   reportPersona,
		Context:  stats,
		UserText: "Write today's end-of-day report for the team from the data above.",
	}
	for _, model := range r.routes[routeKey{session.RoleAdmin, IntentReport}] {
		client := r.clients.ClientFor(model)
		if client == nil || model == llm.ProviderStatic {
			continue
		}
		req.Model = model

		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.ModelTimeout)
		text, err := client.Generate(attemptCtx, req)
		cancel()
		if err != nil {
			r.log.Warn("report model failed", zap.String("model", model), zap.Error(err))
			continue
		}
		return text, nil
	}
	return stats, nil
}

// classify maps a message to an intent. Entities and tracking keywords
// were already consumed by the fast path, so only conversational
// intents remain here.
func classify(role session.Role, text string) Intent {
	lower := strings.ToLower(text)
	if containsAny(lower, reportKeywords) {
		return IntentReport
	}
	if role == session.RoleAdmin {
		return IntentBusiness
	}
	return IntentSales
}

func adminOnly(intent Intent) bool {
	return intent == IntentBusiness || intent == IntentReport
}

func isCancel(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "cancel", "/cancel", "stop", "never mind", "nevermind":
		return true
	}
	return false
}

var reportKeywords = []string{
	"report", "summary", "summarize", "end of day", "daily recap", "রিপোর্ট",
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
