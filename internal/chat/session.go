// Package chat owns the conversational session: the ordered transcript,
// the in-flight guard, and the context toggle. It is the sole mutator
// of all three.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/diligentai/jarvisctl/internal/backend"
)

// Greeting seeds every new transcript before any user interaction.
const Greeting = "Neural interface initialized. I am ready to assist you with enterprise tasks."

// ErrorReply is appended as the assistant turn when a chat request
// fails. Fixed text, no partial content.
const ErrorReply = "Error: Unable to reach neural core."

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TurnMeta carries backend-reported detail for assistant turns.
type TurnMeta struct {
	LatencySeconds float64 `json:"latency_seconds"`
	ContextUsed    bool    `json:"context_used"`
}

// Turn is one message in the conversation. Turns are immutable once
// appended; the transcript is append-only within a session.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Meta    *TurnMeta `json:"meta,omitempty"`
}

var (
	// ErrEmptyMessage rejects whitespace-only submissions.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy rejects submissions while a request is outstanding.
	ErrBusy = errors.New("a chat request is already in flight")
)

// ChatBackend is the slice of the backend client the session uses.
type ChatBackend interface {
	SendChatTurn(ctx context.Context, message string, useContext bool) (backend.ChatResult, error)
}

// Session is the conversation state machine. At most one chat request
// is outstanding at a time, enforced by the in-flight flag rather than
// a queue: submissions while awaiting a response are rejected outright.
type Session struct {
	client ChatBackend

	mu         sync.Mutex
	transcript []Turn
	useContext bool
	inFlight   bool
}

// NewSession creates a session with the seed greeting already in the
// transcript and retrieval context enabled.
func NewSession(client ChatBackend) *Session {
	return &Session{
		client:     client,
		useContext: true,
		transcript: []Turn{{Role: RoleAssistant, Content: Greeting}},
	}
}

// Submit runs one user turn to resolution: append the user turn,
// dispatch the request with the context setting captured now, then
// append either the assistant reply or the fixed error turn. The
// returned Turn is the appended assistant turn. The error is non-nil
// only for rejected submissions (empty text, request in flight), in
// which case nothing was appended and no request was issued; backend
// failures never escape.
func (s *Session) Submit(ctx context.Context, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return Turn{}, ErrBusy
	}
	s.transcript = append(s.transcript, Turn{Role: RoleUser, Content: text})
	s.inFlight = true
	useContext := s.useContext // snapshot; later toggles do not affect this request
	s.mu.Unlock()

	result, err := s.client.SendChatTurn(ctx, text, useContext)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	var reply Turn
	if err != nil {
		reply = Turn{Role: RoleAssistant, Content: ErrorReply}
	} else {
		reply = Turn{
			Role:    RoleAssistant,
			Content: result.Response,
			Meta: &TurnMeta{
				LatencySeconds: result.ProcessingTime,
				ContextUsed:    result.ContextUsed,
			},
		}
	}
	s.transcript = append(s.transcript, reply)
	return reply, nil
}

// ToggleContext flips the retrieval-context setting and returns the new
// value. Permitted in any state; it never touches the transcript and
// never affects an already-dispatched request.
func (s *Session) ToggleContext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useContext = !s.useContext
	return s.useContext
}

// UseContext reports the current context setting.
func (s *Session) UseContext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.useContext
}

// InFlight reports whether a chat request is outstanding.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}
