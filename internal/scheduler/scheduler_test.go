package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ornabd/ornabot/internal/scraper"
	"github.com/ornabd/ornabot/internal/store"
)

type fakeChecker struct {
	mu      sync.Mutex
	results []scraper.CheckResult
	i       int
}

func (f *fakeChecker) Check(ctx context.Context) scraper.CheckResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.i >= len(f.results) {
		return f.results[len(f.results)-1]
	}
	r := f.results[f.i]
	f.i++
	return r
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeNotifier) Notify(ctx context.Context, text string) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
}

func (f *fakeNotifier) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeOrders struct {
	orders   []*store.Order
	notified map[int64]int
	latest   int64
}

func (f *fakeOrders) OrdersAfter(afterID int64) ([]*store.Order, error) {
	var out []*store.Order
	for _, o := range f.orders {
		if o.OrderID > afterID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) LatestOrderID() (int64, error) { return f.latest, nil }

func (f *fakeOrders) MarkNotified(orderID int64) error {
	if f.notified == nil {
		f.notified = map[int64]int{}
	}
	f.notified[orderID]++
	return nil
}

type fakeReporter struct {
	report string
	err    error
}

func (f *fakeReporter) BuildAlert(o *store.Order) string {
	return "new order " + o.CustomerName
}

func (f *fakeReporter) BuildReport(ctx context.Context) (string, error) {
	return f.report, f.err
}

func newTestScheduler(t *testing.T, site *fakeChecker, orders *fakeOrders, rep *fakeReporter, n *fakeNotifier) *Scheduler {
	t.Helper()
	s, err := New(Config{
		MonitorInterval: time.Minute,
		OrderPollEvery:  time.Minute,
		ReportHour:      21,
		MonitorEnabled:  site != nil,
	}, site, orders, rep, n, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.recheckBase = time.Millisecond
	return s
}

func up() scraper.CheckResult   { return scraper.CheckResult{Up: true, StatusCode: 200} }
func down() scraper.CheckResult { return scraper.CheckResult{StatusCode: 503, Err: "503"} }

func TestMonitorAlertsOnlyOnTransitions(t *testing.T) {
	n := &fakeNotifier{}
	site := &fakeChecker{results: []scraper.CheckResult{
		down(), down(), down(), down(), // initial check + retries, stays down
		down(), down(), down(), down(), // second tick, still down
		up(), // recovery
	}}
	s := newTestScheduler(t, site, &fakeOrders{}, &fakeReporter{}, n)
	ctx := context.Background()

	s.checkSite(ctx) // up -> down: one alert
	s.checkSite(ctx) // still down: silent
	s.checkSite(ctx) // down -> up: one alert

	alerts := n.all()
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2: %v", len(alerts), alerts)
	}
	if !strings.Contains(alerts[0], "DOWN") {
		t.Errorf("first alert = %q, want down alert", alerts[0])
	}
	if !strings.Contains(alerts[1], "back up") {
		t.Errorf("second alert = %q, want recovery alert", alerts[1])
	}
}

func TestMonitorRecheckAbsorbsBlip(t *testing.T) {
	n := &fakeNotifier{}
	site := &fakeChecker{results: []scraper.CheckResult{down(), up()}}
	s := newTestScheduler(t, site, &fakeOrders{}, &fakeReporter{}, n)

	s.checkSite(context.Background())

	if len(n.all()) != 0 {
		t.Errorf("transient failure produced alerts: %v", n.all())
	}
	if !s.Status().SiteUp {
		t.Error("site should still be considered up")
	}
}

func TestPollAlertsAndMarksNewOrdersOnce(t *testing.T) {
	n := &fakeNotifier{}
	orders := &fakeOrders{
		latest: 10,
		orders: []*store.Order{
			{OrderID: 9, CustomerName: "Old"},
			{OrderID: 11, CustomerName: "Rahima"},
			{OrderID: 12, CustomerName: "Nusrat"},
		},
	}
	s := newTestScheduler(t, nil, orders, &fakeReporter{}, n)
	ctx := context.Background()

	s.pollOrders(ctx)

	alerts := n.all()
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2: %v", len(alerts), alerts)
	}
	if orders.notified[11] != 1 || orders.notified[12] != 1 {
		t.Errorf("notified counts = %v, want each once", orders.notified)
	}
	if got := s.Status().LastSeenOrder; got != 12 {
		t.Errorf("last seen = %d, want 12", got)
	}

	// Second poll with no new rows is silent.
	s.pollOrders(ctx)
	if len(n.all()) != 2 {
		t.Errorf("second poll re-alerted: %v", n.all())
	}
}

func TestDailyReportDelivered(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(t, nil, &fakeOrders{}, &fakeReporter{report: "today was good"}, n)

	s.sendReport(context.Background())

	alerts := n.all()
	if len(alerts) != 1 || alerts[0] != "today was good" {
		t.Errorf("report alerts = %v", alerts)
	}
}

func TestDailyReportDataFailureLoggedNotSent(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(t, nil, &fakeOrders{}, &fakeReporter{err: errors.New("db locked")}, n)

	s.sendReport(context.Background())

	if len(n.all()) != 0 {
		t.Errorf("failed report still notified: %v", n.all())
	}
}
