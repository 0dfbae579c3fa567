// Package transcript holds the ordered message list of one chat session.
package transcript

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sproutai/sprout/internal/models"
)

// ErrInvalidRole is returned when a message without a known role is appended
var ErrInvalidRole = errors.New("invalid message role")

// Store is an append-only, in-memory transcript.
// Order is insertion order. A single writer appends while any number
// of readers may call All concurrently.
type Store struct {
	mu       sync.RWMutex
	messages []models.Message
}

// NewStore creates an empty transcript
func NewStore() *Store {
	return &Store{}
}

// Append adds msg to the end of the transcript
func (s *Store) Append(msg models.Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, msg.Role)
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return nil
}

// Reset removes every message. Calling it on an empty store is a no-op.
func (s *Store) Reset() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

// All returns a copy of the messages in transcript order
func (s *Store) All() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recent message with the given role.
func (s *Store) Last(role models.Role) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == role {
			return s.messages[i], true
		}
	}
	return models.Message{}, false
}
