package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ornabd/ornabot/internal/policy"
	"github.com/ornabd/ornabot/internal/session"
	"github.com/ornabd/ornabot/internal/store"
)

const lowStockThreshold = 10

// handleCommand dispatches slash commands and inline-button callbacks.
// Admin-only commands fall through to an apology for customers.
func (b *Bot) handleCommand(ctx context.Context, chatID, userID int64, text string) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	args := strings.TrimSpace(text[len(fields[0]):])
	isAdmin := b.sessions.Role(userID) == session.RoleAdmin

	switch cmd {
	case "/start", "/menu":
		b.sendMenu(chatID, isAdmin)
	case "/help":
		b.send(chatID, helpText(isAdmin))
	case "/about":
		b.send(chatID, aboutText())
	case "/contact":
		b.send(chatID, contactText())
	case "/ai":
		b.send(chatID, "Just type your question and I'll answer! For order status, share your order number or phone.")
	case "/track":
		b.startTracking(ctx, chatID, userID, args)
	case "/cancel":
		b.sessions.SetMode(userID, session.ModeIdle)
		b.send(chatID, "Okay, cancelled. Ask me anything else!")
	case "/products":
		b.sendProducts(chatID, args)
	case "/dashboard":
		b.adminOnly(chatID, isAdmin, b.sendDashboard)
	case "/orders":
		b.adminOnly(chatID, isAdmin, b.sendOrders)
	case "/sales":
		b.adminOnly(chatID, isAdmin, b.sendSales)
	case "/inventory":
		b.adminOnly(chatID, isAdmin, b.sendInventory)
	case "/users":
		b.adminOnly(chatID, isAdmin, b.sendUsers)
	case "/refresh":
		if !isAdmin {
			b.send(chatID, notAdminReply)
			return
		}
		b.ctxCache.Refresh()
		b.send(chatID, "Context refreshed. The next answer uses fresh data.")
	default:
		b.send(chatID, "I don't know that command. Try /menu.")
	}
}

var notAdminReply = "Sorry, that command is only for the " + policy.BrandName + " team."

func (b *Bot) adminOnly(chatID int64, isAdmin bool, view func(chatID int64)) {
	if !isAdmin {
		b.send(chatID, notAdminReply)
		return
	}
	view(chatID)
}

// startTracking answers immediately when an identifier came with the
// command, otherwise enters tracking mode via the router.
func (b *Bot) startTracking(ctx context.Context, chatID, userID int64, args string) {
	text := "track my order"
	if args != "" {
		text = args
	}
	b.handleFreeText(ctx, chatID, userID, text)
}

func (b *Bot) sendMenu(chatID int64, isAdmin bool) {
	if isAdmin {
		b.sendWithKeyboard(chatID,
			"*"+policy.BrandName+" Business Assistant*\n\nWhat do you want to look at?",
			adminKeyboard())
		return
	}
	b.sendWithKeyboard(chatID,
		fmt.Sprintf("Welcome to *%s*! 🌸\n\nI can help with products, orders, and delivery. Pick an option or just type your question.", policy.BrandName),
		customerKeyboard())
}

func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Dashboard", "/dashboard"),
			tgbotapi.NewInlineKeyboardButtonData("📦 Orders", "/orders"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Sales", "/sales"),
			tgbotapi.NewInlineKeyboardButtonData("🏷 Inventory", "/inventory"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Users", "/users"),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", "/refresh"),
		),
	)
}

func customerKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛍 Products", "/products"),
			tgbotapi.NewInlineKeyboardButtonData("🚚 Track Order", "/track"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ About", "/about"),
			tgbotapi.NewInlineKeyboardButtonData("📞 Contact", "/contact"),
		),
	)
}

func helpText(isAdmin bool) string {
	if isAdmin {
		return "*Admin commands*\n\n" +
			"/dashboard - today at a glance\n" +
			"/orders - recent orders\n" +
			"/sales - sales breakdown\n" +
			"/inventory - stock position\n" +
			"/users - bot usage\n" +
			"/refresh - rebuild data context\n\n" +
			"Or just ask: \"how did we do this week?\""
	}
	return "*How I can help*\n\n" +
		"/products - browse the catalog\n" +
		"/track - check an order\n" +
		"/about - about " + policy.BrandName + "\n" +
		"/contact - reach us\n\n" +
		"Or just type your question, in Bengali or English!"
}

func aboutText() string {
	return fmt.Sprintf("*%s* is a Bangladeshi women's fashion brand.\n\nSarees, kurtis, and accessories, delivered across the country.\n\n🌐 %s\n📱 %s",
		policy.BrandName, policy.ContactWebsite, policy.ContactFacebook)
}

func contactText() string {
	return fmt.Sprintf("📞 %s\n✉️ %s\n🕐 %s",
		policy.ContactPhone, policy.ContactEmail, policy.BusinessHours)
}

func (b *Bot) sendProducts(chatID int64, query string) {
	products, err := b.queryCatalog(query)
	if err != nil {
		b.log.Error("products view failed", zap.Error(err))
		b.send(chatID, "Couldn't load the catalog right now. Please try again shortly.")
		return
	}
	if len(products) == 0 {
		b.send(chatID, "Nothing matched. Try /products with no filter to see everything in stock.")
		return
	}

	var sb strings.Builder
	sb.WriteString("*Available now*\n\n")
	for _, p := range products {
		note := ""
		if p.Availability() == "low_stock" {
			note = " (few left!)"
		}
		fmt.Fprintf(&sb, "• %s - ৳%.0f%s\n", p.Name, p.Price, note)
	}
	sb.WriteString("\nType a product name for details, or /track to check an order.")
	b.send(chatID, sb.String())
}

func (b *Bot) queryCatalog(query string) ([]store.Product, error) {
	if query != "" {
		return b.store.SearchProducts(query)
	}
	return b.store.AvailableProducts()
}

func (b *Bot) sendDashboard(chatID int64) {
	today, err := b.store.TodayStats()
	if err != nil {
		b.sendViewError(chatID, "dashboard", err)
		return
	}
	counts, err := b.store.OrderCountByStatus()
	if err != nil {
		b.sendViewError(chatID, "dashboard", err)
		return
	}
	inv, err := b.store.InventoryTotals()
	if err != nil {
		b.sendViewError(chatID, "dashboard", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("*📊 Dashboard*\n\n")
	fmt.Fprintf(&sb, "Today: %d orders, ৳%.0f\n\n", today.OrderCount, today.TotalRevenue)
	sb.WriteString("*Orders by status*\n")
	for _, status := range []string{"pending", "processing", "shipped", "delivered", "cancelled"} {
		if n := counts[status]; n > 0 {
			d := policy.StatusInfo(status)
			fmt.Fprintf(&sb, "%s %s: %d\n", d.Emoji, d.Label, n)
		}
	}
	fmt.Fprintf(&sb, "\n*Inventory*\n%d products, %d units\n", inv.TotalProducts, inv.TotalUnits)
	if inv.OutOfStock > 0 {
		fmt.Fprintf(&sb, "⚠️ %d out of stock\n", inv.OutOfStock)
	}
	if inv.LowStock > 0 {
		fmt.Fprintf(&sb, "⚠️ %d running low\n", inv.LowStock)
	}
	b.send(chatID, sb.String())
}

func (b *Bot) sendOrders(chatID int64) {
	orders, err := b.store.RecentOrders(5)
	if err != nil {
		b.sendViewError(chatID, "orders", err)
		return
	}
	if len(orders) == 0 {
		b.send(chatID, "No orders yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("*📦 Recent orders*\n\n")
	for _, o := range orders {
		d := policy.StatusInfo(o.Status)
		fmt.Fprintf(&sb, "%s #%d %s - ৳%.0f (%s)\n",
			d.Emoji, o.OrderID, truncate(o.CustomerName, 20), o.Total, d.Label)
	}
	sb.WriteString("\nSend an order number for full details.")
	b.send(chatID, sb.String())
}

func (b *Bot) sendSales(chatID int64) {
	today, err := b.store.TodayStats()
	if err != nil {
		b.sendViewError(chatID, "sales", err)
		return
	}
	week, err := b.store.WeeklyStats()
	if err != nil {
		b.sendViewError(chatID, "sales", err)
		return
	}
	month, err := b.store.MonthlyStats()
	if err != nil {
		b.sendViewError(chatID, "sales", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("*💰 Sales*\n\n")
	fmt.Fprintf(&sb, "Today: %d orders, ৳%.0f\n", today.OrderCount, today.TotalRevenue)
	fmt.Fprintf(&sb, "7 days: %d orders, ৳%.0f (avg ৳%.0f)\n", week.OrderCount, week.TotalRevenue, week.AvgOrderValue)
	fmt.Fprintf(&sb, "30 days: %d orders, ৳%.0f\n", month.OrderCount, month.TotalRevenue)

	if top, err := b.store.TopProducts(30, 5); err == nil && len(top) > 0 {
		sb.WriteString("\n*Top products (30 days)*\n")
		for i, p := range top {
			fmt.Fprintf(&sb, "%d. %s: %d sold, ৳%.0f\n", i+1, p.ProductName, p.UnitsSold, p.Revenue)
		}
	}
	b.send(chatID, sb.String())
}

func (b *Bot) sendInventory(chatID int64) {
	inv, err := b.store.InventoryTotals()
	if err != nil {
		b.sendViewError(chatID, "inventory", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("*🏷 Inventory*\n\n")
	fmt.Fprintf(&sb, "%d products, %d units total\n", inv.TotalProducts, inv.TotalUnits)
	fmt.Fprintf(&sb, "Well stocked: %d | Low: %d | Out: %d\n", inv.WellStocked, inv.LowStock, inv.OutOfStock)

	if low, err := b.store.LowStock(lowStockThreshold); err == nil && len(low) > 0 {
		sb.WriteString("\n*⚠️ Low stock*\n")
		for _, p := range low {
			fmt.Fprintf(&sb, "• %s: %d left\n", p.Name, p.StockQuantity)
		}
	}
	if out, err := b.store.OutOfStock(); err == nil && len(out) > 0 {
		sb.WriteString("\n*❌ Out of stock*\n")
		for _, p := range out {
			fmt.Fprintf(&sb, "• %s\n", p.Name)
		}
	}
	b.send(chatID, sb.String())
}

func (b *Bot) sendUsers(chatID int64) {
	stats := b.sessions.Stats()
	b.send(chatID, fmt.Sprintf("*👥 Bot usage*\n\nSessions: %d (%d admin)\nActive in 24h: %d\nMessages handled: %d",
		stats.Sessions, stats.Admins, stats.Active24h, stats.Messages))
}

func (b *Bot) sendViewError(chatID int64, view string, err error) {
	b.log.Error("store view failed", zap.String("view", view), zap.Error(err))
	b.send(chatID, "Couldn't load that right now. Please try again shortly.")
}
