// Package chat implements the turn-taking loop between the user and the
// completion client: one session, one turn in flight at a time.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sproutai/sprout/internal/models"
	"github.com/sproutai/sprout/internal/transcript"
)

// Session is the state owned by one interactive chat session.
// It is created by NewSession and lives until Controller.Close.
type Session struct {
	ID        string
	StartedAt time.Time

	transcript *transcript.Store

	mu     sync.RWMutex
	state  models.TurnState
	model  string
	closed bool
}

// NewSession creates an empty session using model for its turns
func NewSession(model string) *Session {
	if model == "" {
		model = models.DefaultModel
	}
	return &Session{
		ID:         uuid.NewString(),
		StartedAt:  time.Now(),
		transcript: transcript.NewStore(),
		state:      models.IdleState(),
		model:      model,
	}
}

// Messages returns the transcript in order
func (s *Session) Messages() []models.Message {
	return s.transcript.All()
}

// State returns the current turn state
func (s *Session) State() models.TurnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Model returns the model identifier used for the next turn
func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// Closed reports whether the session has ended
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Session) setState(state models.TurnState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) setModel(model string) {
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
