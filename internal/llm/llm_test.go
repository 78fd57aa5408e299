package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUserPromptOrdering(t *testing.T) {
	req := Request{
		Context:  "CONTEXT BLOCK",
		History:  "RECENT CONVERSATION:\nUser: hi\n",
		UserText: "any hoodies?",
	}
	got := req.UserPrompt()

	ctxIdx := strings.Index(got, "CONTEXT BLOCK")
	histIdx := strings.Index(got, "RECENT CONVERSATION")
	msgIdx := strings.Index(got, "User message: any hoodies?")
	if ctxIdx < 0 || histIdx < 0 || msgIdx < 0 {
		t.Fatalf("missing sections in prompt:\n%s", got)
	}
	if !(ctxIdx < histIdx && histIdx < msgIdx) {
		t.Fatalf("sections out of order: ctx=%d hist=%d msg=%d", ctxIdx, histIdx, msgIdx)
	}
}

func TestProviderFor(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gemini-1.5-pro", ProviderGemini},
		{"gemini-1.5-flash", ProviderGemini},
		{"gpt-4o", ProviderOpenAI},
		{"gpt-4o-mini", ProviderOpenAI},
		{"static", ProviderStatic},
		{"anything-else", ProviderStatic},
	}
	for _, tt := range tests {
		if got := ProviderFor(tt.model); got != tt.want {
			t.Fatalf("ProviderFor(%s) = %s, want %s", tt.model, got, tt.want)
		}
	}
}

func TestGeminiClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "models/gemini-1.5-flash") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello from gemini"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key")
	c.baseURL = srv.URL

	got, err := c.Generate(context.Background(), Request{Model: "gemini-1.5-flash", UserText: "hi"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "hello from gemini" {
		t.Fatalf("got %q", got)
	}
}

func TestGeminiClientErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"quota"}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key")
	c.baseURL = srv.URL

	_, err := c.Generate(context.Background(), Request{Model: "gemini-1.5-pro", UserText: "hi"})
	provErr, ok := err.(*ProviderError)
	if !ok {
		t.Fatalf("err = %T, want *ProviderError", err)
	}
	if provErr.Status != http.StatusTooManyRequests || provErr.Provider != ProviderGemini {
		t.Fatalf("unexpected provider error: %+v", provErr)
	}
}

func TestOpenAIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"hello from openai"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key")
	c.baseURL = srv.URL

	got, err := c.Generate(context.Background(), Request{Model: "gpt-4o", UserText: "hi"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "hello from openai" {
		t.Fatalf("got %q", got)
	}
}

func TestStaticClientDeterministic(t *testing.T) {
	c := NewStaticClient()
	req := Request{UserText: "how long is delivery to Chattogram?"}

	first, err := c.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("static client failed: %v", err)
	}
	second, _ := c.Generate(context.Background(), req)
	if first != second {
		t.Fatal("static client is not deterministic")
	}
	if !strings.Contains(first, "Outside Dhaka") {
		t.Fatalf("expected delivery info, got:\n%s", first)
	}
}

func TestRegistryClientFor(t *testing.T) {
	static := NewStaticClient()
	reg := Registry{ProviderStatic: static}

	if got := reg.ClientFor("static"); got != static {
		t.Fatal("static client not resolved")
	}
	if got := reg.ClientFor("gemini-1.5-pro"); got != nil {
		t.Fatal("unconfigured provider should resolve to nil")
	}
}
