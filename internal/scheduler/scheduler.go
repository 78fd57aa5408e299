// Package scheduler runs the background jobs: site monitoring, new
// order polling, and the daily report.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ornabd/ornabot/internal/alert"
	"github.com/ornabd/ornabot/internal/scraper"
	"github.com/ornabd/ornabot/internal/store"
)

// SiteChecker is the scraper slice the monitor uses.
type SiteChecker interface {
	Check(ctx context.Context) scraper.CheckResult
}

// OrderSource is the store slice the order poller uses.
type OrderSource interface {
	OrdersAfter(afterID int64) ([]*store.Order, error)
	LatestOrderID() (int64, error)
	MarkNotified(orderID int64) error
}

// Reporter produces the daily report and per-order alert text.
type Reporter interface {
	BuildAlert(o *store.Order) string
	BuildReport(ctx context.Context) (string, error)
}

// Config carries the scheduling knobs.
type Config struct {
	MonitorInterval time.Duration
	OrderPollEvery  time.Duration
	ReportHour      int
	MonitorEnabled  bool
}

// Status is a snapshot for the ops API.
type Status struct {
	Running       bool      `json:"running"`
	SiteUp        bool      `json:"site_up"`
	LastSiteCheck time.Time `json:"last_site_check,omitempty"`
	LastSeenOrder int64     `json:"last_seen_order"`
	LastPollAt    time.Time `json:"last_poll_at,omitempty"`
	LastReportAt  time.Time `json:"last_report_at,omitempty"`
}

// Scheduler owns the cron runner and the jobs' shared state.
type Scheduler struct {
	cfg      Config
	cron     *cron.Cron
	site     SiteChecker
	orders   OrderSource
	reporter Reporter
	notify   alert.Notifier
	log      *zap.Logger

	// recheckBase seeds the backoff between monitor re-checks.
	recheckBase time.Duration

	mu       sync.Mutex
	running  bool
	siteUp   bool
	lastSite time.Time
	lastSeen int64
	lastPoll time.Time
	lastRept time.Time
}

// New builds the scheduler. lastSeen starts at the newest existing
// order so a restart never re-alerts old rows that predate the
// notified column.
func New(cfg Config, site SiteChecker, orders OrderSource, reporter Reporter, notify alert.Notifier, log *zap.Logger) (*Scheduler, error) {
	lastSeen, err := orders.LatestOrderID()
	if err != nil {
		return nil, fmt.Errorf("reading latest order id: %w", err)
	}

	s := &Scheduler{
		cfg:         cfg,
		cron:        cron.New(),
		site:        site,
		orders:      orders,
		reporter:    reporter,
		notify:      notify,
		log:         log,
		recheckBase: 2 * time.Second,
		siteUp:      true,
		lastSeen:    lastSeen,
	}
	if err := s.register(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) register() error {
	if s.cfg.MonitorEnabled && s.site != nil {
		spec := fmt.Sprintf("@every %s", s.cfg.MonitorInterval)
		if _, err := s.cron.AddFunc(spec, func() { s.checkSite(context.Background()) }); err != nil {
			return fmt.Errorf("scheduling site monitor: %w", err)
		}
	}

	pollSpec := fmt.Sprintf("@every %s", s.cfg.OrderPollEvery)
	if _, err := s.cron.AddFunc(pollSpec, func() { s.pollOrders(context.Background()) }); err != nil {
		return fmt.Errorf("scheduling order poll: %w", err)
	}

	reportSpec := fmt.Sprintf("0 %d * * *", s.cfg.ReportHour)
	if _, err := s.cron.AddFunc(reportSpec, func() { s.sendReport(context.Background()) }); err != nil {
		return fmt.Errorf("scheduling daily report: %w", err)
	}
	return nil
}

// Start begins running the jobs on their schedules.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	s.cron.Start()
	s.log.Info("schedulers started",
		zap.Duration("monitor_interval", s.cfg.MonitorInterval),
		zap.Duration("order_poll", s.cfg.OrderPollEvery),
		zap.Int("report_hour", s.cfg.ReportHour),
	)
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Status returns a snapshot for the ops API.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:       s.running,
		SiteUp:        s.siteUp,
		LastSiteCheck: s.lastSite,
		LastSeenOrder: s.lastSeen,
		LastPollAt:    s.lastPoll,
		LastReportAt:  s.lastRept,
	}
}

// checkSite probes the storefront and alerts admins on up/down
// transitions. A single probe failure is re-checked with backoff before
// declaring the site down, so a transient blip doesn't page anyone.
func (s *Scheduler) checkSite(ctx context.Context) {
	res := s.site.Check(ctx)
	up := res.Up

	if !up {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = s.recheckBase
		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			re := s.site.Check(ctx)
			if !re.Up {
				return struct{}{}, fmt.Errorf("site check: status %d: %s", re.StatusCode, re.Err)
			}
			return struct{}{}, nil
		}, backoff.WithBackOff(bo), backoff.WithMaxTries(3))
		up = err == nil
	}

	s.mu.Lock()
	wasUp := s.siteUp
	s.siteUp = up
	s.lastSite = time.Now()
	s.mu.Unlock()

	switch {
	case wasUp && !up:
		s.log.Warn("site down", zap.Int("status", res.StatusCode), zap.String("error", res.Err))
		s.notify.Notify(ctx, fmt.Sprintf("🔴 Website is DOWN (status %d). Checked twice before alerting.", res.StatusCode))
	case !wasUp && up:
		s.log.Info("site recovered")
		s.notify.Notify(ctx, "🟢 Website is back up.")
	}
}

// pollOrders alerts admins about orders newer than the last seen id and
// marks each row notified.
func (s *Scheduler) pollOrders(ctx context.Context) {
	s.mu.Lock()
	after := s.lastSeen
	s.mu.Unlock()

	fresh, err := s.orders.OrdersAfter(after)
	if err != nil {
		s.log.Error("order poll failed", zap.Error(err))
		return
	}

	for _, o := range fresh {
		s.notify.Notify(ctx, s.reporter.BuildAlert(o))
		if err := s.orders.MarkNotified(o.OrderID); err != nil {
			s.log.Error("marking order notified", zap.Int64("order_id", o.OrderID), zap.Error(err))
		}
		s.mu.Lock()
		if o.OrderID > s.lastSeen {
			s.lastSeen = o.OrderID
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.lastPoll = time.Now()
	s.mu.Unlock()
}

// sendReport delivers the daily report. The reporter already falls back
// to plain stats on model failure, so only a data failure can stop the
// report, and that is logged.
func (s *Scheduler) sendReport(ctx context.Context) {
	text, err := s.reporter.BuildReport(ctx)
	if err != nil {
		s.log.Error("daily report failed", zap.Error(err))
		return
	}
	s.notify.Notify(ctx, text)

	s.mu.Lock()
	s.lastRept = time.Now()
	s.mu.Unlock()
}
