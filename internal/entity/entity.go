// Package entity detects structured values (phone numbers, order IDs)
// inside free-form text so the bot can short-circuit into deterministic
// lookup flows instead of calling a model.
package entity

import (
	"regexp"
	"strings"
)

// Kind classifies a detected entity.
type Kind string

const (
	KindNone    Kind = "none"
	KindPhone   Kind = "phone"
	KindOrderID Kind = "order_id"
)

// Entity is a single structured value extracted from text.
type Entity struct {
	Kind  Kind
	Value string
}

// None is the absence of a match. Detection never fails.
var None = Entity{Kind: KindNone}

var (
	// Bangladesh mobile numbers: 11 digits, operator prefix 013-019.
	phonePattern = regexp.MustCompile(`01[3-9]\d{8}`)

	// Order IDs: "#123", "#ORN-123" or a bare digit run.
	taggedOrderPattern = regexp.MustCompile(`(?i)#(?:ORN-)?(\d{1,10})`)
	bareOrderPattern   = regexp.MustCompile(`\b(\d{1,10})\b`)
)

var orderKeywords = []string{
	"order", "track", "tracking", "delivery", "shipped", "status", "where is",
	"parcel", "আমার অর্ডার", "ডেলিভারি", "কোথায়",
}

// Detect returns at most one entity for the given text.
//
// The phone pattern is checked first: it has a fixed length and prefix
// set, so it is far less likely to false-positive than a bare numeric
// token. Only when no phone matches does the order-id pattern apply.
// A bare digit run counts as an order ID only when an order keyword is
// present; a #-tagged token matches unconditionally.
func Detect(text string) Entity {
	if phone, ok := detectPhone(text); ok {
		return Entity{Kind: KindPhone, Value: phone}
	}
	if m := taggedOrderPattern.FindStringSubmatch(text); m != nil {
		return Entity{Kind: KindOrderID, Value: m[1]}
	}
	if HasOrderKeyword(text) {
		if m := bareOrderPattern.FindStringSubmatch(text); m != nil {
			return Entity{Kind: KindOrderID, Value: m[1]}
		}
	}
	return None
}

// DetectPhone extracts a phone number regardless of order keywords.
// Used by the explicit track-by-phone flow.
func DetectPhone(text string) (string, bool) {
	return detectPhone(text)
}

// DetectOrderID extracts an order ID without requiring a keyword.
// Used by the explicit track-by-id flow, where the whole message is
// expected to be an identifier.
func DetectOrderID(text string) (string, bool) {
	if m := taggedOrderPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := bareOrderPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// HasOrderKeyword reports whether the text looks like an order inquiry.
func HasOrderKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range orderKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func detectPhone(text string) (string, bool) {
	// Users write numbers with spaces and dashes; strip before matching.
	normalized := strings.NewReplacer(" ", "", "-", "", "+88", "").Replace(text)
	if m := phonePattern.FindString(normalized); m != "" {
		return m, true
	}
	return "", false
}
