// Package llm provides the model clients the router calls: Gemini,
// OpenAI, and a deterministic static fallback that is always available.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Request is one generation request composed by the router.
type Request struct {
	// System is the persona text for the classified role/intent.
	System string
	// Context is the assembled role-scoped business context.
	Context string
	// History is the rendered recent-conversation block ("" if none).
	History string
	// UserText is the inbound message.
	UserText string
	// Model is the provider-specific model identifier.
	Model string
}

// UserPrompt renders the non-system parts in a fixed order so a given
// input always produces the same prompt bytes.
func (r Request) UserPrompt() string {
	var sb strings.Builder
	if r.Context != "" {
		sb.WriteString(r.Context)
		sb.WriteString("\n\n")
	}
	if r.History != "" {
		sb.WriteString(r.History)
		sb.WriteString("\n")
	}
	sb.WriteString("User message: ")
	sb.WriteString(r.UserText)
	return sb.String()
}

// Client generates a reply for a request.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ProviderError is a typed model failure. The router treats any
// generation error as a candidate failure; the type exists so logs can
// carry provider detail without leaking it to end users.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Provider names used as registry keys.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

// ProviderFor maps a model identifier to its provider key.
func ProviderFor(model string) string {
	switch {
	case strings.HasPrefix(model, "gemini"):
		return ProviderGemini
	case strings.HasPrefix(model, "gpt"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return ProviderOpenAI
	default:
		return ProviderStatic
	}
}

// Registry holds the configured clients keyed by provider.
type Registry map[string]Client

// ClientFor resolves the client for a model identifier. Unconfigured
// providers resolve to nil so the attempt loop can skip them.
func (r Registry) ClientFor(model string) Client {
	return r[ProviderFor(model)]
}
