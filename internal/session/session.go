// Package session keeps per-user conversational state: role, mode,
// bounded history, and the rate window. State lives in memory for the
// lifetime of the process; only assembled context is ever cached with a
// TTL, never sessions.
package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Role classifies a caller. Fixed at session creation from the static
// admin-id set and immutable for the process lifetime.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Mode is the conversation state for one user.
type Mode string

const (
	// ModeIdle accepts any message.
	ModeIdle Mode = "idle"
	// ModeAwaitingReply brackets an in-flight model call. A second
	// message for the same user queues behind it.
	ModeAwaitingReply Mode = "awaiting_ai_reply"
	// ModeAwaitingTracking means the user asked to track an order
	// without supplying an identifier; the next message should carry
	// one (or a cancel).
	ModeAwaitingTracking Mode = "awaiting_tracking_input"
)

// Turn is one unit of conversational history.
type Turn struct {
	Speaker string
	Text    string
	At      time.Time
}

// Session is the per-user state. Fields other than UserID and Role are
// guarded by the owning Store's lock.
type Session struct {
	UserID       int64
	Role         Role
	mode         Mode
	history      []Turn
	lastActivity time.Time
	lastRequest  time.Time
	messageCount int

	// inflight serializes model calls for this user. Capacity one:
	// holding the slot is being the in-flight call.
	inflight chan struct{}
}

// Summary describes one session for the ops API. Carries no message
// text.
type Summary struct {
	UserID       int64     `json:"user_id"`
	Role         Role      `json:"role"`
	Mode         Mode      `json:"mode"`
	Messages     int       `json:"messages"`
	LastActivity time.Time `json:"last_activity"`
}

// Stats summarizes sessions for the admin users view and the ops API.
type Stats struct {
	Sessions  int `json:"sessions"`
	Admins    int `json:"admins"`
	Active24h int `json:"active_24h"`
	Messages  int `json:"messages"`
}

// Store owns all sessions, keyed by user ID.
type Store struct {
	mu           sync.RWMutex
	sessions     map[int64]*Session
	admins       map[int64]bool
	historyLimit int
	now          func() time.Time
}

// NewStore creates a session store. Role resolution is a pure lookup in
// the admins set; historyLimit bounds each user's history (FIFO).
func NewStore(admins map[int64]bool, historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &Store{
		sessions:     make(map[int64]*Session),
		admins:       admins,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// GetOrCreate returns the session for a user, creating it lazily on
// first contact.
func (s *Store) GetOrCreate(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(userID)
}

func (s *Store) getOrCreateLocked(userID int64) *Session {
	if sess, ok := s.sessions[userID]; ok {
		sess.lastActivity = s.now()
		return sess
	}
	role := RoleCustomer
	if s.admins[userID] {
		role = RoleAdmin
	}
	sess := &Session{
		UserID:       userID,
		Role:         role,
		mode:         ModeIdle,
		lastActivity: s.now(),
		inflight:     make(chan struct{}, 1),
	}
	s.sessions[userID] = sess
	return sess
}

// Role returns the user's role, creating the session if needed.
func (s *Store) Role(userID int64) Role {
	return s.GetOrCreate(userID).Role
}

// Mode returns the user's current conversation mode.
func (s *Store) Mode(userID int64) Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.mode
	}
	return ModeIdle
}

// SetMode transitions the user's conversation mode.
func (s *Store) SetMode(userID int64, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(userID).mode = mode
}

// AppendExchange records one user/assistant turn pair, evicting the
// oldest turns once the history bound is exceeded.
func (s *Store) AppendExchange(userID int64, userText, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(userID)
	now := s.now()
	sess.history = append(sess.history,
		Turn{Speaker: "user", Text: userText, At: now},
		Turn{Speaker: "assistant", Text: reply, At: now},
	)
	sess.messageCount++

	if limit := s.historyLimit * 2; len(sess.history) > limit {
		sess.history = sess.history[len(sess.history)-limit:]
	}
}

// History returns a copy of the user's turns, oldest first.
func (s *Store) History(userID int64) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	out := make([]Turn, len(sess.history))
	copy(out, sess.history)
	return out
}

// HistoryText renders the last n turn pairs as a prompt block, or ""
// when there is no history.
func (s *Store) HistoryText(userID int64, n int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok || len(sess.history) == 0 {
		return ""
	}

	turns := sess.history
	if limit := n * 2; len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	var sb strings.Builder
	sb.WriteString("RECENT CONVERSATION:\n")
	for _, t := range turns {
		speaker := "User"
		if t.Speaker == "assistant" {
			speaker = "Assistant"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, t.Text)
	}
	return sb.String()
}

// ClearHistory drops the user's conversation history.
func (s *Store) ClearHistory(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.history = nil
	}
}

// LastRequest returns the time of the last accepted AI request.
func (s *Store) LastRequest(userID int64) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.lastRequest
	}
	return time.Time{}
}

// SetLastRequest advances the rate window for a user.
func (s *Store) SetLastRequest(userID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(userID).lastRequest = at
}

// BeginReply acquires the user's in-flight slot and moves the session
// to ModeAwaitingReply. A second caller blocks here until the first
// call completes, so queued messages run strictly in arrival order and
// never interleave history.
func (s *Store) BeginReply(ctx context.Context, userID int64) error {
	sess := s.GetOrCreate(userID)

	select {
	case sess.inflight <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.SetMode(userID, ModeAwaitingReply)
	return nil
}

// EndReply releases the in-flight slot and returns the session to idle.
func (s *Store) EndReply(userID int64) {
	s.SetMode(userID, ModeIdle)

	sess := s.GetOrCreate(userID)
	select {
	case <-sess.inflight:
	default:
		// EndReply without BeginReply is a programming error; do not
		// block on it.
	}
}

// Summaries lists all sessions, most recently active first.
func (s *Store) Summaries() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, Summary{
			UserID:       sess.UserID,
			Role:         sess.Role,
			Mode:         sess.mode,
			Messages:     sess.messageCount,
			LastActivity: sess.lastActivity,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// Stats summarizes all sessions.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Sessions: len(s.sessions)}
	cutoff := s.now().Add(-24 * time.Hour)
	for _, sess := range s.sessions {
		if sess.Role == RoleAdmin {
			st.Admins++
		}
		if sess.lastActivity.After(cutoff) {
			st.Active24h++
		}
		st.Messages += sess.messageCount
	}
	return st
}
