// Package policy holds the static business knowledge (delivery,
// payments, returns, contact, sizing) that is loaded once at process
// start and never re-fetched.
package policy

import (
	"fmt"
	"strings"
)

// DeliveryZone is a shipping area with its charge and timing.
type DeliveryZone struct {
	Name      string
	Charge    int
	Time      string
	FreeAbove int
}

// StatusDetail describes one order status for customer-facing text.
type StatusDetail struct {
	Emoji       string
	Label       string
	Description string
}

var (
	// BrandName is the storefront identity used in personas and replies.
	BrandName = "Orna"

	ContactPhone    = "+880 1712-845600"
	ContactEmail    = "support@orna-bd.com"
	ContactWebsite  = "https://orna-bd.vercel.app"
	ContactFacebook = "https://facebook.com/ornabd"

	DeliveryZones = []DeliveryZone{
		{Name: "Inside Dhaka", Charge: 60, Time: "1-2 business days", FreeAbove: 1000},
		{Name: "Outside Dhaka", Charge: 120, Time: "3-5 business days", FreeAbove: 2000},
	}

	PaymentMethods = []string{
		"Cash on Delivery",
		"bKash (+880 1712-845600)",
		"Nagad (+880 1712-845600)",
		"Rocket (+880 1712-845600)",
	}

	BusinessHours = "Saturday-Thursday 10:00-20:00, Friday closed"

	orderStatuses = map[string]StatusDetail{
		"pending":    {"⏳", "Pending", "Order received, awaiting confirmation"},
		"processing": {"📦", "Processing", "Being packed and prepared for shipment"},
		"shipped":    {"🚚", "Shipped", "On the way, expected within 1-3 days"},
		"delivered":  {"✅", "Delivered", "Handed over to the customer"},
		"cancelled":  {"❌", "Cancelled", "Order was cancelled"},
	}
)

// StatusInfo returns display info for an order status. Unknown statuses
// fall back to pending.
func StatusInfo(status string) StatusDetail {
	if d, ok := orderStatuses[strings.ToLower(status)]; ok {
		return d
	}
	return orderStatuses["pending"]
}

var policyText string

func init() {
	policyText = render()
}

// Text returns the full policy block for AI context. Assembled once at
// init so repeated builds concatenate identical bytes.
func Text() string {
	return policyText
}

func render() string {
	var sb strings.Builder

	sb.WriteString("BUSINESS POLICIES:\n\n")

	sb.WriteString("Delivery:\n")
	for _, z := range DeliveryZones {
		fmt.Fprintf(&sb, "- %s: ৳%d, %s, free above ৳%d\n",
			z.Name, z.Charge, z.Time, z.FreeAbove)
	}

	sb.WriteString("\nPayment methods:\n")
	for _, m := range PaymentMethods {
		fmt.Fprintf(&sb, "- %s\n", m)
	}

	sb.WriteString(`
Returns and exchanges:
- 7-day exchange window; tags intact, unworn, original packaging
- Size exchange is free, shipping covered both ways
- Sale items: exchange only, no refunds
- Defective items: full refund within 3 days

Size guide:
- S: chest 36-38", length 26"
- M: chest 38-40", length 27"
- L: chest 40-42", length 28"
- XL: chest 42-44", length 29"
`)

	fmt.Fprintf(&sb, "\nContact:\n- Phone/WhatsApp: %s\n- Email: %s\n- Website: %s\n- Facebook: %s\n",
		ContactPhone, ContactEmail, ContactWebsite, ContactFacebook)
	fmt.Fprintf(&sb, "\nBusiness hours: %s\n", BusinessHours)

	return sb.String()
}
