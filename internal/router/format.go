package router

import (
	"fmt"
	"strings"

	"github.com/ornabd/ornabot/internal/entity"
	"github.com/ornabd/ornabot/internal/policy"
	"github.com/ornabd/ornabot/internal/session"
	"github.com/ornabd/ornabot/internal/store"
)

const trackingPrompt = "Sure, I can check your order. Please share your order number (like #1234) or the phone number you ordered with."

var lookupUnavailable = "Sorry, I can't look up orders right now. Please try again in a few minutes or call " + policy.ContactPhone + "."

var salesPersona = "You are the friendly sales assistant for " + policy.BrandName + ", a Bangladeshi women's fashion brand. " +
	"Help customers with products, prices, sizes, delivery, and payment. " +
	"Be warm and concise, reply in the customer's language (Bengali or English), and never invent prices or stock. " +
	"If you don't know something, share the contact number instead of guessing."

var businessPersona = "You are the business analyst for " + policy.BrandName + ". " +
	"You are talking to the owner. Answer questions about sales, revenue, inventory, and orders using the live data provided. " +
	"Be direct and numeric. Flag low stock and unusual patterns without being asked."

var reportPersona = "You write the end-of-day operations report for " + policy.BrandName + ". " +
	"Summarize today's orders, revenue, and stock position from the data provided. " +
	"Short paragraphs, concrete numbers, one actionable note at the end."

func personaFor(role session.Role, intent Intent) string {
	if role == session.RoleAdmin {
		if intent == IntentReport {
			return reportPersona
		}
		if intent == IntentBusiness {
			return businessPersona
		}
	}
	return salesPersona
}

// FormatOrderDetails renders one order for a chat reply. Shared with
// the transport layer's /track and /orders views.
func FormatOrderDetails(o *store.Order) string {
	detail := policy.StatusInfo(o.Status)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Order #%d\n\n", detail.Emoji, o.OrderID)
	fmt.Fprintf(&sb, "Status: %s\n%s\n\n", detail.Label, detail.Description)
	fmt.Fprintf(&sb, "Customer: %s\n", o.CustomerName)
	if len(o.Items) > 0 {
		sb.WriteString("Items:\n")
		for _, it := range o.Items {
			if it.Size != "" {
				fmt.Fprintf(&sb, "- %s (%s) x%d\n", it.ProductName, it.Size, it.Quantity)
			} else {
				fmt.Fprintf(&sb, "- %s x%d\n", it.ProductName, it.Quantity)
			}
		}
	}
	fmt.Fprintf(&sb, "Total: ৳%.0f\n", o.Total)
	fmt.Fprintf(&sb, "Payment: %s (%s)\n", o.PaymentMethod, o.PaymentStatus)
	if o.Address != "" {
		fmt.Fprintf(&sb, "Delivery to: %s\n", o.Address)
	}
	sb.WriteString("\n")
	sb.WriteString(nextStepHint(o.Status))
	return sb.String()
}

func nextStepHint(status string) string {
	switch strings.ToLower(status) {
	case "pending":
		return "We'll confirm your order shortly. You'll get a message once it's processing."
	case "processing":
		return "Your order is being packed. Expect a shipping update within a day."
	case "shipped":
		return "Your order is on the way! The courier will call before delivery."
	case "delivered":
		return "Delivered! If anything's wrong with your order, reply here or call " + policy.ContactPhone + "."
	case "cancelled":
		return "This order was cancelled. If that's unexpected, call " + policy.ContactPhone + "."
	default:
		return "Questions? Call " + policy.ContactPhone + "."
	}
}

func orderNotFound(ent entity.Entity) string {
	if ent.Kind == entity.KindPhone {
		return fmt.Sprintf("I couldn't find any order for %s. Double-check the number, or call %s and we'll sort it out.",
			ent.Value, policy.ContactPhone)
	}
	return fmt.Sprintf("I couldn't find order #%s. Double-check the order number, or call %s and we'll sort it out.",
		ent.Value, policy.ContactPhone)
}

func formatNewOrderAlert(o *store.Order) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🛒 New order #%d\n\n", o.OrderID)
	fmt.Fprintf(&sb, "Customer: %s (%s)\n", o.CustomerName, o.CustomerPhone)
	for _, it := range o.Items {
		fmt.Fprintf(&sb, "- %s x%d @ ৳%.0f\n", it.ProductName, it.Quantity, it.Price)
	}
	fmt.Fprintf(&sb, "Total: ৳%.0f\n", o.Total)
	fmt.Fprintf(&sb, "Payment: %s\n", o.PaymentMethod)
	if o.Address != "" {
		fmt.Fprintf(&sb, "Address: %s\n", o.Address)
	}
	return sb.String()
}

// plainReport renders the deterministic daily stats block. It is both
// the reporting model's input and the fallback when the chain fails.
func plainReport(data ReportData) (string, error) {
	today, err := data.TodayStats()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("📊 Daily Report: " + policy.BrandName + "\n\n")
	fmt.Fprintf(&sb, "Orders today: %d\n", today.OrderCount)
	fmt.Fprintf(&sb, "Revenue today: ৳%.2f\n", today.TotalRevenue)
	if today.OrderCount > 0 {
		fmt.Fprintf(&sb, "Avg order value: ৳%.2f\n", today.AvgOrderValue)
	}

	if counts, err := data.OrderCountByStatus(); err == nil && len(counts) > 0 {
		sb.WriteString("\nBy status:\n")
		for _, status := range []string{"pending", "processing", "shipped", "delivered", "cancelled"} {
			if n, ok := counts[status]; ok {
				fmt.Fprintf(&sb, "- %s: %d\n", status, n)
			}
		}
	}

	if top, err := data.TopProducts(7, 3); err == nil && len(top) > 0 {
		sb.WriteString("\nTop sellers (7 days):\n")
		for i, p := range top {
			fmt.Fprintf(&sb, "%d. %s: %d sold, ৳%.0f\n", i+1, p.ProductName, p.UnitsSold, p.Revenue)
		}
	}

	return sb.String(), nil
}
