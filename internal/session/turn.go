package session

import (
	"context"
	"strings"
	"time"

	"github.com/diogo/docchat/internal/api"
	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/models"
)

// turn is what beginTurn captured for runTurn
type turn struct {
	text    string
	pending *models.Document
	handle  string
}

// SubmitTurn runs one conversational turn: the draft (or a placeholder when only a
// document is attached) is appended as a user message, the pending document is
// uploaded if there is one, and the query is sent bound to the active context.
//
// It returns false without doing anything when a turn is already in flight or when
// there is neither draft text nor a pending document. Remote failures are recorded
// in LastError and never returned. Cancelling ctx does not abort a turn once begun.
func (s *Session) SubmitTurn(ctx context.Context) bool {
	t, ok := s.beginTurn()
	if !ok {
		return false
	}

	s.runTurn(context.WithoutCancel(ctx), t)
	return true
}

func (s *Session) beginTurn() (turn, bool) {
	s.mu.Lock()

	draft := strings.TrimSpace(s.draft)
	if s.inFlight || (draft == "" && s.pendingFile == nil) {
		s.mu.Unlock()
		return turn{}, false
	}

	s.lastError = ""
	s.lastErr = nil

	text := draft
	if text == "" {
		text = models.UploadPlaceholderText
	}

	var label string
	switch {
	case s.pendingFile != nil:
		label = s.pendingFile.Name
	case s.contextHandle != "":
		label = models.ActiveContextLabel
	}

	s.messages = append(s.messages, models.NewUserMessage(text, label))
	s.inFlight = true
	s.draft = ""

	t := turn{
		text:    text,
		pending: s.pendingFile,
		handle:  s.contextHandle,
	}
	state := s.commitLocked()
	s.mu.Unlock()

	s.publish(state)
	return t, true
}

func (s *Session) runTurn(ctx context.Context, t turn) {
	start := time.Now()
	log := s.logger.With().Bool("grounded", t.pending != nil || t.handle != "").Logger()
	log.Debug().Msg("turn started")

	if t.pending != nil {
		handle, err := s.service.UploadDocument(ctx, t.pending)
		if err != nil {
			log.Debug().Err(err).Str("file", t.pending.Name).Msg("upload failed")
			s.finish(func() {
				s.fail(err)
			})
			return
		}

		s.update(func() {
			s.contextHandle = handle
			s.contextLabel = t.pending.Name
			if s.pendingFile == t.pending {
				s.pendingFile = nil
			}
		})
		t.handle = handle
		log.Debug().Str("file", t.pending.Name).Msg("document uploaded")
	}

	answer, err := s.service.SubmitQuery(ctx, api.Query{
		Text:          t.text,
		ContextHandle: t.handle,
	})
	if err != nil {
		log.Debug().Err(err).Msg("query failed")
		s.finish(func() {
			s.fail(err)
		})
		return
	}

	s.finish(func() {
		s.messages = append(s.messages, models.NewAssistantMessage(answer.Text))
	})
	log.Debug().Dur("elapsed", time.Since(start)).Msg("turn completed")
}

// fail records err as the outcome of the turn.
// MUST be called with s.mu held for writing.
func (s *Session) fail(err error) {
	s.lastError = apierrors.Detail(err)
	s.lastErr = err
}

// update applies fn under the write lock and publishes the result
func (s *Session) update(fn func()) {
	s.mu.Lock()
	fn()
	state := s.commitLocked()
	s.mu.Unlock()

	s.publish(state)
}

// finish applies fn and ends the turn in the same change
func (s *Session) finish(fn func()) {
	s.update(func() {
		fn()
		s.inFlight = false
	})
}
