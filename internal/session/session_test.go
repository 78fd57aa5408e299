package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func adminSet(ids ...int64) map[int64]bool {
	m := make(map[int64]bool)
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestRoleDerivedFromAdminSet(t *testing.T) {
	s := NewStore(adminSet(100), 10)

	if got := s.Role(100); got != RoleAdmin {
		t.Fatalf("role = %s, want admin", got)
	}
	if got := s.Role(200); got != RoleCustomer {
		t.Fatalf("role = %s, want customer", got)
	}

	// Role is immutable for the process lifetime.
	if got := s.GetOrCreate(100).Role; got != RoleAdmin {
		t.Fatalf("role changed: %s", got)
	}
}

func TestHistoryBoundFIFO(t *testing.T) {
	s := NewStore(nil, 3)

	for i := 1; i <= 5; i++ {
		s.AppendExchange(1, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	turns := s.History(1)
	if len(turns) != 6 {
		t.Fatalf("len = %d, want 6 (3 pairs)", len(turns))
	}
	if turns[0].Text != "q3" {
		t.Fatalf("oldest turn = %q, want q3 (q1, q2 evicted)", turns[0].Text)
	}
	if turns[5].Text != "a5" {
		t.Fatalf("newest turn = %q, want a5", turns[5].Text)
	}
}

func TestHistoryText(t *testing.T) {
	s := NewStore(nil, 10)

	if got := s.HistoryText(1, 4); got != "" {
		t.Fatalf("empty history rendered %q", got)
	}

	s.AppendExchange(1, "any hoodies?", "Yes, the Heritage Hoodie.")
	got := s.HistoryText(1, 4)
	if !strings.Contains(got, "User: any hoodies?") ||
		!strings.Contains(got, "Assistant: Yes, the Heritage Hoodie.") {
		t.Fatalf("unexpected history text:\n%s", got)
	}
}

func TestModeTransitions(t *testing.T) {
	s := NewStore(nil, 10)

	if got := s.Mode(1); got != ModeIdle {
		t.Fatalf("initial mode = %s, want idle", got)
	}

	s.SetMode(1, ModeAwaitingTracking)
	if got := s.Mode(1); got != ModeAwaitingTracking {
		t.Fatalf("mode = %s, want awaiting_tracking_input", got)
	}

	s.SetMode(1, ModeIdle)
	if got := s.Mode(1); got != ModeIdle {
		t.Fatalf("mode = %s, want idle", got)
	}
}

func TestBeginReplySerializesPerUser(t *testing.T) {
	s := NewStore(nil, 10)

	if err := s.BeginReply(context.Background(), 1); err != nil {
		t.Fatalf("first begin: %v", err)
	}
	if got := s.Mode(1); got != ModeAwaitingReply {
		t.Fatalf("mode = %s, want awaiting_ai_reply", got)
	}

	// A second message for the same user must wait for the first.
	var order []string
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		if err := s.BeginReply(context.Background(), 1); err != nil {
			t.Errorf("second begin: %v", err)
		}
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		s.EndReply(1)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	order = append(order, "first-done")
	mu.Unlock()
	s.EndReply(1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queued message never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "first-done" || order[1] != "second" {
		t.Fatalf("order = %v, want [first-done second]", order)
	}
}

func TestBeginReplyDifferentUsersDoNotBlock(t *testing.T) {
	s := NewStore(nil, 10)

	if err := s.BeginReply(context.Background(), 1); err != nil {
		t.Fatalf("user 1: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := s.BeginReply(ctx, 2); err != nil {
		t.Fatalf("user 2 blocked on user 1's slot: %v", err)
	}
	s.EndReply(1)
	s.EndReply(2)
}

func TestBeginReplyContextCancel(t *testing.T) {
	s := NewStore(nil, 10)
	if err := s.BeginReply(context.Background(), 1); err != nil {
		t.Fatalf("begin: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.BeginReply(ctx, 1); err == nil {
		t.Fatal("expected context error while slot is held")
	}
}

func TestRateWindow(t *testing.T) {
	s := NewStore(nil, 10)

	if !s.LastRequest(1).IsZero() {
		t.Fatal("fresh session has a rate window")
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetLastRequest(1, at)
	if got := s.LastRequest(1); !got.Equal(at) {
		t.Fatalf("last request = %v, want %v", got, at)
	}
}

func TestStats(t *testing.T) {
	s := NewStore(adminSet(100), 10)
	s.GetOrCreate(100)
	s.GetOrCreate(200)
	s.AppendExchange(200, "q", "a")

	st := s.Stats()
	if st.Sessions != 2 || st.Admins != 1 || st.Messages != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.Active24h != 2 {
		t.Fatalf("active24h = %d, want 2", st.Active24h)
	}
}
