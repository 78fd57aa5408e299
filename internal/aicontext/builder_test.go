package aicontext

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ornabd/ornabot/internal/cache"
	"github.com/ornabd/ornabot/internal/policy"
	"github.com/ornabd/ornabot/internal/session"
	"github.com/ornabd/ornabot/internal/store"
)

type fakeData struct {
	failStats    bool
	failProducts bool
	calls        int
}

func (f *fakeData) TodayStats() (store.PeriodStats, error) {
	f.calls++
	if f.failStats {
		return store.PeriodStats{}, errors.New("db locked")
	}
	return store.PeriodStats{OrderCount: 3, TotalRevenue: 4500}, nil
}

func (f *fakeData) WeeklyStats() (store.PeriodStats, error) {
	if f.failStats {
		return store.PeriodStats{}, errors.New("db locked")
	}
	return store.PeriodStats{OrderCount: 12, TotalRevenue: 18000, AvgOrderValue: 1500}, nil
}

func (f *fakeData) TopProducts(days, limit int) ([]store.TopProduct, error) {
	return []store.TopProduct{{ProductName: "Silk Saree", Revenue: 9000, OrderCount: 4}}, nil
}

func (f *fakeData) LowStock(threshold int) ([]store.Product, error) {
	return []store.Product{{Name: "Cotton Kurti", StockQuantity: 3}}, nil
}

func (f *fakeData) OutOfStock() ([]store.Product, error) {
	return []store.Product{{Name: "Linen Scarf"}}, nil
}

func (f *fakeData) AvailableProducts() ([]store.Product, error) {
	f.calls++
	if f.failProducts {
		return nil, errors.New("db locked")
	}
	return []store.Product{
		{Name: "Silk Saree", Category: "Saree", Price: 2500, StockQuantity: 20},
		{Name: "Cotton Kurti", Category: "Kurti", Price: 1200, StockQuantity: 3},
	}, nil
}

func (f *fakeData) RecentOrders(limit int) ([]*store.Order, error) {
	return []*store.Order{{OrderID: 42, CustomerName: "Rahima", Total: 2500, Status: "pending"}}, nil
}

type fakeContent struct {
	text string
	err  error
}

func (f *fakeContent) Fetch(ctx context.Context) (string, error) {
	return f.text, f.err
}

func newTestBuilder(data *fakeData, content ContentProvider) *Builder {
	scraping := content != nil
	return New(data, content, cache.New(5*time.Minute), scraping, zap.NewNop())
}

func TestBuildAdminIncludesBusinessInternals(t *testing.T) {
	b := newTestBuilder(&fakeData{}, &fakeContent{text: "WEBSITE: ornabd.com\nNew arrivals"})

	text, err := b.Build(context.Background(), session.RoleAdmin)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, want := range []string{
		"BUSINESS DATA",
		"revenue ৳4500.00",
		"LOW STOCK ALERTS",
		"only 3 left",
		"OUT OF STOCK",
		"Rahima",
		"WEBSITE: ornabd.com",
		policy.BrandName,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("admin context missing %q", want)
		}
	}
}

func TestBuildCustomerNeverSeesInternals(t *testing.T) {
	b := newTestBuilder(&fakeData{}, &fakeContent{text: "New arrivals"})

	text, err := b.Build(context.Background(), session.RoleCustomer)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, banned := range []string{"revenue", "Revenue", "LOW STOCK", "Rahima", "BUSINESS DATA"} {
		if strings.Contains(text, banned) {
			t.Errorf("customer context leaked %q", banned)
		}
	}
	for _, want := range []string{"AVAILABLE PRODUCTS", "Silk Saree", "limited availability", policy.ContactPhone} {
		if !strings.Contains(text, want) {
			t.Errorf("customer context missing %q", want)
		}
	}
}

func TestBuildSectionOrder(t *testing.T) {
	b := newTestBuilder(&fakeData{}, &fakeContent{text: "SITE CONTENT HERE"})

	text, err := b.Build(context.Background(), session.RoleAdmin)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	biz := strings.Index(text, "BUSINESS DATA")
	site := strings.Index(text, "SITE CONTENT HERE")
	pol := strings.Index(text, policy.BrandName)
	if !(biz < site && site < pol) {
		t.Errorf("section order wrong: business=%d site=%d policy=%d", biz, site, pol)
	}
}

func TestBuildCachesPerRole(t *testing.T) {
	data := &fakeData{}
	b := newTestBuilder(data, nil)

	first, err := b.Build(context.Background(), session.RoleAdmin)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := b.Build(context.Background(), session.RoleAdmin)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if first != second {
		t.Error("cached build differs from original")
	}
	if data.calls != 1 {
		t.Errorf("data provider called %d times, want 1", data.calls)
	}

	// Different role is a separate cache entry.
	if _, err := b.Build(context.Background(), session.RoleCustomer); err != nil {
		t.Fatalf("Build customer: %v", err)
	}
	if data.calls != 2 {
		t.Errorf("data provider called %d times after customer build, want 2", data.calls)
	}
}

func TestRefreshInvalidatesBothRoles(t *testing.T) {
	data := &fakeData{}
	b := newTestBuilder(data, nil)

	ctx := context.Background()
	b.Build(ctx, session.RoleAdmin)
	b.Build(ctx, session.RoleCustomer)
	b.Refresh()
	b.Build(ctx, session.RoleAdmin)
	b.Build(ctx, session.RoleCustomer)

	if data.calls != 4 {
		t.Errorf("data provider called %d times, want 4", data.calls)
	}
}

func TestBuildAdminDataFailureIsFatal(t *testing.T) {
	b := newTestBuilder(&fakeData{failStats: true}, nil)

	if _, err := b.Build(context.Background(), session.RoleAdmin); err == nil {
		t.Fatal("expected error for admin build with failing store")
	}
}

func TestBuildCustomerDataFailureDegradesToPolicyOnly(t *testing.T) {
	b := newTestBuilder(&fakeData{failProducts: true}, &fakeContent{text: "SITE CONTENT HERE"})

	text, err := b.Build(context.Background(), session.RoleCustomer)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Contains(text, "AVAILABLE PRODUCTS") {
		t.Error("degraded context should not contain a product section")
	}
	if strings.Contains(text, "SITE CONTENT HERE") {
		t.Error("degraded context should not contain site content")
	}
	if !strings.Contains(text, policy.ContactPhone) {
		t.Error("degraded context should still contain policy")
	}
}

func TestBuildScrapeFailureIsAbsorbed(t *testing.T) {
	b := newTestBuilder(&fakeData{}, &fakeContent{err: errors.New("timeout")})

	text, err := b.Build(context.Background(), session.RoleAdmin)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(text, "BUSINESS DATA") {
		t.Error("business section should survive a scrape failure")
	}
}
