// Package session orchestrates a document chat: it owns the conversation state and
// composes the upload and query calls of one turn.
package session

import (
	"errors"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/diogo/docchat/internal/api"
	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/event"
	"github.com/diogo/docchat/internal/logging"
	"github.com/diogo/docchat/internal/models"
)

// ErrBusy is returned by actions that are not allowed while a turn is in flight.
var ErrBusy = errors.New("a turn is in progress")

// Session holds one conversation and at most one active document context.
// It is safe for concurrent use; at most one turn runs at a time.
type Session struct {
	id      string
	service api.AnalysisService
	bus     *event.Bus
	logger  zerolog.Logger

	mu            sync.RWMutex // never held across a remote call
	pendingFile   *models.Document
	draft         string
	contextHandle string
	contextLabel  string // name of the document the handle came from
	messages      []models.Message
	inFlight      bool
	lastError     string
	lastErr       error // failure behind lastError
	version       uint64
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New creates an empty session that talks to service
func New(service api.AnalysisService, opts ...Option) *Session {
	s := &Session{
		id:       ulid.Make().String(),
		service:  service,
		bus:      event.NewBus(),
		messages: []models.Message{},
	}
	s.logger = logging.With().Str("session", s.id).Logger()

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Close releases the session's event bus and ends all subscriptions.
func (s *Session) Close() error {
	return s.bus.Close()
}

// AttachFile selects a document for the next turn, replacing any pending one.
func (s *Session) AttachFile(doc *models.Document) error {
	if doc == nil {
		return apierrors.ErrEmptyDocument
	}

	return s.mutate(func() error {
		if s.inFlight {
			return ErrBusy
		}
		s.pendingFile = doc
		return nil
	})
}

// DetachPendingFile drops the pending document without uploading it. The active
// context, if any, is unaffected.
func (s *Session) DetachPendingFile() error {
	return s.mutate(func() error {
		if s.inFlight {
			return ErrBusy
		}
		if s.pendingFile == nil {
			return errNoChange
		}
		s.pendingFile = nil
		return nil
	})
}

// SetDraftQuery sets the text the next turn will send
func (s *Session) SetDraftQuery(text string) {
	_ = s.mutate(func() error {
		if s.draft == text {
			return errNoChange
		}
		s.draft = text
		return nil
	})
}

// Reset returns the session to its initial empty state. It is refused while a turn
// is in flight.
func (s *Session) Reset() error {
	err := s.mutate(func() error {
		if s.inFlight {
			return ErrBusy
		}
		s.messages = []models.Message{}
		s.contextHandle = ""
		s.contextLabel = ""
		s.pendingFile = nil
		s.lastError = ""
		s.lastErr = nil
		s.draft = ""
		return nil
	})
	if err == nil {
		s.logger.Debug().Msg("session reset")
	}
	return err
}

// errNoChange aborts a mutation without publishing
var errNoChange = errors.New("no change")

// mutate applies fn under the write lock and publishes the new state when fn
// succeeds. errNoChange is swallowed.
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}
	state := s.commitLocked()
	s.mu.Unlock()

	s.publish(state)
	return nil
}

// commitLocked bumps the version and returns the new snapshot.
// MUST be called with s.mu held for writing.
func (s *Session) commitLocked() State {
	s.version++
	return s.snapshotLocked()
}

func (s *Session) publish(state State) {
	if err := s.bus.Publish(event.SessionUpdated.For(s.id), state); err != nil && !errors.Is(err, event.ErrClosed) {
		s.logger.Warn().Err(err).Msg("failed to publish session state")
	}
}
