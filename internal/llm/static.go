package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ornabd/ornabot/internal/policy"
)

// StaticClient is the terminal fallback of every route: a deterministic
// responder that answers from the static policy text. It never fails,
// so an exhausted chain of real models still produces a useful reply.
type StaticClient struct{}

// NewStaticClient creates the fallback responder.
func NewStaticClient() *StaticClient {
	return &StaticClient{}
}

func (c *StaticClient) Generate(_ context.Context, req Request) (string, error) {
	lower := strings.ToLower(req.UserText)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Our assistant is briefly unavailable, but here is what I can tell you right away.\n\n")

	switch {
	case containsAny(lower, "deliver", "shipping", "ডেলিভারি"):
		for _, z := range policy.DeliveryZones {
			fmt.Fprintf(&sb, "%s: ৳%d delivery charge, %s (free above ৳%d).\n",
				z.Name, z.Charge, z.Time, z.FreeAbove)
		}
	case containsAny(lower, "return", "exchange", "refund"):
		sb.WriteString("We offer a 7-day exchange window (tags intact, unworn). Size exchanges are free both ways; defective items are fully refunded within 3 days.\n")
	case containsAny(lower, "pay", "bkash", "nagad", "cod"):
		sb.WriteString("Payment options: " + strings.Join(policy.PaymentMethods, ", ") + ".\n")
	case containsAny(lower, "size", "measurement", "fit"):
		sb.WriteString("Sizes run S (chest 36-38\") through XL (chest 42-44\"). Share your chest measurement and we will suggest a fit.\n")
	default:
		fmt.Fprintf(&sb, "For anything urgent, reach us on WhatsApp at %s or %s.\n",
			policy.ContactPhone, policy.ContactEmail)
	}

	fmt.Fprintf(&sb, "\nBusiness hours: %s.", policy.BusinessHours)
	return sb.String(), nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
