// Package aicontext assembles the role-scoped context text handed to
// the language model: live business data, scraped site content, and
// static policy, cached per role with a TTL.
package aicontext

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ornabd/ornabot/internal/cache"
	"github.com/ornabd/ornabot/internal/policy"
	"github.com/ornabd/ornabot/internal/session"
	"github.com/ornabd/ornabot/internal/store"
)

// lowStockThreshold is the stock level below which admins get restock
// alerts in their context.
const lowStockThreshold = 10

// DataProvider is the slice of the store the builder reads.
type DataProvider interface {
	TodayStats() (store.PeriodStats, error)
	WeeklyStats() (store.PeriodStats, error)
	TopProducts(days, limit int) ([]store.TopProduct, error)
	LowStock(threshold int) ([]store.Product, error)
	OutOfStock() ([]store.Product, error)
	AvailableProducts() ([]store.Product, error)
	RecentOrders(limit int) ([]*store.Order, error)
}

// ContentProvider fetches public site text, best-effort.
type ContentProvider interface {
	Fetch(ctx context.Context) (string, error)
}

// Builder assembles and caches per-role context.
type Builder struct {
	data     DataProvider
	content  ContentProvider
	cache    *cache.Cache
	scraping bool
	log      *zap.Logger
}

// New creates a Builder. content may be nil when scraping is disabled.
func New(data DataProvider, content ContentProvider, c *cache.Cache, scraping bool, log *zap.Logger) *Builder {
	return &Builder{
		data:     data,
		content:  content,
		cache:    c,
		scraping: scraping && content != nil,
		log:      log,
	}
}

// Build returns the assembled context for a role, using the cache when
// fresh. Sections are concatenated in a fixed order (business data,
// then site content, then policy) so identical inputs produce identical
// bytes.
//
// Data-provider failure is fatal for the admin role; for customers it
// degrades to a policy-only context. Content-provider failure is never
// fatal: the section is simply omitted.
func (b *Builder) Build(ctx context.Context, role session.Role) (string, error) {
	key := string(role)
	if text, _, err := b.cache.Get(key); err == nil {
		return text, nil
	}

	var business, site string
	var degraded bool
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		switch role {
		case session.RoleAdmin:
			business, err = b.adminBusinessSection()
			if err != nil {
				// Admins make decisions from these figures; stale or
				// missing data must fail loudly.
				return fmt.Errorf("building admin context: %w", err)
			}
		default:
			business, err = b.customerBusinessSection()
			if err != nil {
				b.log.Warn("customer context degraded to policy-only", zap.Error(err))
				business = ""
				degraded = true
			}
		}
		return nil
	})

	if b.scraping {
		g.Go(func() error {
			text, err := b.content.Fetch(gctx)
			if err != nil {
				b.log.Warn("site content omitted from context", zap.Error(err))
				return nil
			}
			site = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}
	if degraded {
		// Degraded builds carry policy only.
		site = ""
	}

	var sb strings.Builder
	if business != "" {
		sb.WriteString(business)
		sb.WriteString("\n")
	}
	if site != "" {
		sb.WriteString(site)
		sb.WriteString("\n")
	}
	sb.WriteString(policy.Text())

	text := sb.String()
	b.cache.Put(key, text)
	return text, nil
}

// Refresh forcibly expires both role contexts; the next Build for each
// role performs a fresh assembly.
func (b *Builder) Refresh() {
	b.cache.InvalidateAll()
}

// adminBusinessSection includes revenue figures, stock internals, and
// recent orders. Admin-only: none of this may reach customer context.
func (b *Builder) adminBusinessSection() (string, error) {
	today, err := b.data.TodayStats()
	if err != nil {
		return "", err
	}
	weekly, err := b.data.WeeklyStats()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("BUSINESS DATA (live):\n\n")
	fmt.Fprintf(&sb, "Today: %d orders, revenue ৳%.2f\n", today.OrderCount, today.TotalRevenue)
	fmt.Fprintf(&sb, "This week: %d orders, revenue ৳%.2f, avg order ৳%.2f\n",
		weekly.OrderCount, weekly.TotalRevenue, weekly.AvgOrderValue)

	if top, err := b.data.TopProducts(30, 5); err == nil && len(top) > 0 {
		sb.WriteString("\nTop products (30 days):\n")
		for i, p := range top {
			fmt.Fprintf(&sb, "%d. %s: %d orders, ৳%.0f revenue\n",
				i+1, p.ProductName, p.OrderCount, p.Revenue)
		}
	}

	if low, err := b.data.LowStock(lowStockThreshold); err == nil && len(low) > 0 {
		sb.WriteString("\nLOW STOCK ALERTS:\n")
		for _, p := range low {
			fmt.Fprintf(&sb, "- %s: only %d left\n", p.Name, p.StockQuantity)
		}
	}

	if out, err := b.data.OutOfStock(); err == nil && len(out) > 0 {
		sb.WriteString("\nOUT OF STOCK:\n")
		for _, p := range out {
			fmt.Fprintf(&sb, "- %s\n", p.Name)
		}
	}

	if recent, err := b.data.RecentOrders(5); err == nil && len(recent) > 0 {
		sb.WriteString("\nRecent orders:\n")
		for _, o := range recent {
			fmt.Fprintf(&sb, "- #%d %s: ৳%.0f, %s\n",
				o.OrderID, o.CustomerName, o.Total, o.Status)
		}
	}

	return sb.String(), nil
}

// customerBusinessSection includes only the public catalog: names,
// prices, and coarse availability. No revenue, no stock internals, no
// customer identifiers.
func (b *Builder) customerBusinessSection() (string, error) {
	products, err := b.data.AvailableProducts()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("AVAILABLE PRODUCTS:\n")
	for _, p := range products {
		status := "in stock"
		switch p.Availability() {
		case "out_of_stock":
			status = "out of stock"
		case "low_stock":
			status = "limited availability"
		}
		fmt.Fprintf(&sb, "- %s (%s): ৳%.0f, %s\n", p.Name, p.Category, p.Price, status)
	}
	return sb.String(), nil
}
