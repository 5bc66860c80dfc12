package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/provider"
)

// session is the in-memory state for one external session ID: an opaque
// conversation ID and the append-only transcript of completed turns.
type session struct {
	conversationID string
	messages       []provider.Message
	createdAt      time.Time
	lastActive     time.Time
}

// Sessions maps caller-supplied session IDs to conversations. Failed turns
// never touch the transcript; the caller evicts instead, so the next turn
// starts a fresh conversation under the same session ID.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	logger   *zap.Logger
}

// NewSessions creates an empty session table.
func NewSessions(logger *zap.Logger) *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		logger:   logger,
	}
}

// GetOrCreate returns the session's conversation ID and a copy of its
// transcript, creating the session on first use.
func (s *Sessions) GetOrCreate(sessionID string) (string, []provider.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{
			conversationID: uuid.New().String(),
			createdAt:      time.Now(),
		}
		s.sessions[sessionID] = sess
		s.logger.Info("session created",
			zap.String("session", sessionID),
			zap.String("conversation", sess.conversationID))
	}
	sess.lastActive = time.Now()

	transcript := make([]provider.Message, len(sess.messages))
	copy(transcript, sess.messages)
	return sess.conversationID, transcript
}

// AppendTurn records one completed turn: the user message and the final
// response. Only successful turns are appended.
func (s *Sessions) AppendTurn(sessionID, userMsg, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	sess.messages = append(sess.messages,
		provider.Message{Role: "user", Content: userMsg},
		provider.Message{Role: "assistant", Content: response},
	)
	sess.lastActive = time.Now()
}

// Evict drops a session so its next turn starts a fresh conversation.
// Called on turn failure and deadline expiry.
func (s *Sessions) Evict(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		delete(s.sessions, sessionID)
		s.logger.Info("session evicted", zap.String("session", sessionID))
	}
}

// ClearAll drops every session. Called at shutdown.
func (s *Sessions) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sessions)
	s.sessions = make(map[string]*session)
	if n > 0 {
		s.logger.Info("sessions cleared", zap.Int("count", n))
	}
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
