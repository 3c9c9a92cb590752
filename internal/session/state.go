package session

import (
	"context"
	"fmt"

	"github.com/diogo/docchat/internal/event"
	"github.com/diogo/docchat/internal/models"
)

// ActiveContext describes the uploaded document that queries are bound to
type ActiveContext struct {
	Active bool   `json:"active"`
	Label  string `json:"label,omitempty"`
}

// State is a read-only snapshot of a session
type State struct {
	Messages      []models.Message `json:"messages"`
	PendingFile   string           `json:"pending_file,omitempty"`
	ActiveContext ActiveContext    `json:"active_context"`
	InFlight      bool             `json:"in_flight"`
	LastError     string           `json:"last_error,omitempty"`
	Draft         string           `json:"draft"`
	// Version increases with every change
	Version uint64 `json:"version"`
}

// HasPendingFile reports whether a document waits to be uploaded
func (st State) HasPendingFile() bool {
	return st.PendingFile != ""
}

// LastAnswer returns the text of the most recent assistant message
func (st State) LastAnswer() (string, bool) {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		if st.Messages[i].Role == models.RoleAssistant {
			return st.Messages[i].Text, true
		}
	}
	return "", false
}

// snapshotLocked copies the current state.
// MUST be called with s.mu held.
func (s *Session) snapshotLocked() State {
	messages := make([]models.Message, len(s.messages))
	copy(messages, s.messages)

	st := State{
		Messages:  messages,
		InFlight:  s.inFlight,
		LastError: s.lastError,
		Draft:     s.draft,
		Version:   s.version,
	}
	if s.pendingFile != nil {
		st.PendingFile = s.pendingFile.Name
	}
	if s.contextHandle != "" {
		st.ActiveContext = ActiveContext{Active: true, Label: s.contextLabel}
	}
	return st
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Messages returns a copy of the conversation log
func (s *Session) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages := make([]models.Message, len(s.messages))
	copy(messages, s.messages)
	return messages
}

// InFlight reports whether a turn is being processed
func (s *Session) InFlight() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight
}

// LastError returns the failure of the most recent turn, or ""
func (s *Session) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// LastErr returns the error behind LastError, with its status and endpoint, or nil
func (s *Session) LastErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ActiveContext returns the active document indicator
func (s *Session) ActiveContext() ActiveContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.contextHandle == "" {
		return ActiveContext{}
	}
	return ActiveContext{Active: true, Label: s.contextLabel}
}

// ContextHandle returns the handle queries are bound to, or ""
func (s *Session) ContextHandle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contextHandle
}

// PendingFile returns the document waiting for upload, or nil
func (s *Session) PendingFile() *models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingFile
}

// Draft returns the text the next turn will send
func (s *Session) Draft() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// Subscribe returns a channel of state snapshots. The current state is delivered
// first; later snapshots arrive in version order and stale deliveries are dropped.
// The channel is closed when ctx is done or the session is closed.
func (s *Session) Subscribe(ctx context.Context) (<-chan State, error) {
	events, err := s.bus.Subscribe(ctx, event.SessionUpdated.For(s.id))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to session %s: %w", s.id, err)
	}

	current := s.Snapshot()
	out := make(chan State, 16)

	go func() {
		defer close(out)

		last := current.Version
		select {
		case out <- current:
		case <-ctx.Done():
			return
		}

		for ev := range events {
			var st State
			if err := ev.Decode(&st); err != nil {
				s.logger.Warn().Err(err).Msg("dropping undecodable session event")
				continue
			}
			if st.Version <= last {
				continue
			}
			last = st.Version

			select {
			case out <- st:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
