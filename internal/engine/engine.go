// Package engine owns the active conversation: the message timeline, input
// staging, and the scheduling of persistence writes and simulated replies.
package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatflow-ai/chatflow/internal/attach"
	"github.com/chatflow-ai/chatflow/internal/bus"
	"github.com/chatflow-ai/chatflow/internal/chat"
	"github.com/chatflow-ai/chatflow/internal/history"
	"github.com/chatflow-ai/chatflow/internal/responder"
)

// ErrReplyPending is returned when a send or staging call arrives while an
// assistant reply is still outstanding. The UI disables these inputs, but
// the engine guards the boundary anyway.
var ErrReplyPending = errors.New("assistant reply pending")

// DefaultGreeting opens every fresh session.
const DefaultGreeting = "Hello! I'm ChatFlow AI, your personal assistant. How can I help you today?"

// Options configures engine timing and the greeting text.
type Options struct {
	Greeting     string
	PersistDelay time.Duration
}

// Engine is the session state engine. All mutations are mutex-guarded:
// scheduled persist/reply tasks fire on timer goroutines.
type Engine struct {
	mu           sync.Mutex
	sessionID    string
	messages     []chat.Message
	input        string
	staged       []chat.Attachment
	replyPending bool

	attachments *attach.Manager
	responder   *responder.Responder
	store       *history.Store
	bus         *bus.Bus
	logger      *zap.Logger

	greeting     string
	persistDelay time.Duration
}

// New creates an engine holding one fresh, unsaved session.
func New(opts Options, am *attach.Manager, r *responder.Responder, st *history.Store, b *bus.Bus, logger *zap.Logger) *Engine {
	greeting := opts.Greeting
	if greeting == "" {
		greeting = DefaultGreeting
	}
	e := &Engine{
		attachments:  am,
		responder:    r,
		store:        st,
		bus:          b,
		logger:       logger,
		greeting:     greeting,
		persistDelay: opts.PersistDelay,
	}
	e.resetLocked()
	return e
}

// resetLocked replaces the current session with a fresh one. Caller holds
// the lock (or the engine is still private to its constructor).
func (e *Engine) resetLocked() {
	e.sessionID = uuid.New().String()
	e.messages = []chat.Message{{
		ID:        uuid.New().String(),
		Text:      e.greeting,
		Sender:    chat.SenderAssistant,
		Timestamp: time.Now(),
	}}
	e.input = ""
	e.staged = nil
	e.replyPending = false
}

// StageAttachments acquires a ref for each blob and appends it to the
// staged list. No count or size limit is enforced.
func (e *Engine) StageAttachments(blobs []chat.Blob) error {
	e.mu.Lock()
	if e.replyPending {
		e.mu.Unlock()
		return ErrReplyPending
	}
	for _, b := range blobs {
		e.staged = append(e.staged, e.attachments.Acquire(b))
	}
	count := len(e.staged)
	e.mu.Unlock()

	e.logger.Debug("attachments staged", zap.Int("staged", count))
	e.bus.Publish(bus.KindStagedChanged, count)
	return nil
}

// UnstageAttachment removes the staged attachment with the given id,
// releasing its preview handle first. Unknown ids are a no-op.
func (e *Engine) UnstageAttachment(id string) {
	e.mu.Lock()
	found := false
	for i := range e.staged {
		if e.staged[i].ID == id {
			e.attachments.Release(&e.staged[i])
			e.staged = append(e.staged[:i], e.staged[i+1:]...)
			found = true
			break
		}
	}
	count := len(e.staged)
	e.mu.Unlock()

	if found {
		e.bus.Publish(bus.KindStagedChanged, count)
	}
}

// SetInput replaces the input buffer.
func (e *Engine) SetInput(text string) {
	e.mu.Lock()
	e.input = text
	e.mu.Unlock()
}

// Send appends a user message from the input buffer and staged attachments,
// then schedules a persistence write and an assistant reply. A send with a
// blank buffer and no staged attachments is silently rejected.
func (e *Engine) Send() error {
	e.mu.Lock()
	if strings.TrimSpace(e.input) == "" && len(e.staged) == 0 {
		e.mu.Unlock()
		return nil
	}
	if e.replyPending {
		e.mu.Unlock()
		return ErrReplyPending
	}

	text := e.input
	if strings.TrimSpace(text) == "" {
		text = fmt.Sprintf("Sent %d file(s)", len(e.staged))
	}
	msg := chat.Message{
		ID:        uuid.New().String(),
		Text:      text,
		Sender:    chat.SenderUser,
		Timestamp: time.Now(),
		Files:     e.staged,
	}
	e.messages = append(e.messages, msg)
	e.input = ""
	e.staged = nil
	e.replyPending = true
	sessionID := e.sessionID
	e.mu.Unlock()

	e.logger.Info("message sent",
		zap.String("session_id", sessionID),
		zap.String("message_id", msg.ID),
		zap.Int("attachments", len(msg.Files)))
	e.bus.Publish(bus.KindMessageAppended, msg.ID)
	e.bus.Publish(bus.KindStagedChanged, 0)
	e.bus.Publish(bus.KindReplyPending, true)

	// Both tasks are tagged with the originating session id and dropped
	// if the user has moved on before they fire.
	time.AfterFunc(e.persistDelay, func() { e.persist(sessionID) })
	time.AfterFunc(e.responder.Delay(), func() { e.deliverReply(sessionID, msg) })
	return nil
}

// persist snapshots the current session into the history store, unless the
// current session is no longer the one the write was scheduled for.
func (e *Engine) persist(sessionID string) {
	e.mu.Lock()
	if e.sessionID != sessionID {
		e.mu.Unlock()
		e.logger.Debug("stale persist dropped", zap.String("session_id", sessionID))
		return
	}
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	if err := e.store.Save(snapshot); err != nil {
		e.logger.Warn("session save failed", zap.Error(err), zap.String("session_id", sessionID))
	}
}

// deliverReply computes and appends the assistant reply for a sent message,
// unless the originating session is no longer current.
func (e *Engine) deliverReply(sessionID string, userMsg chat.Message) {
	text := e.responder.ReplyTo(userMsg)

	e.mu.Lock()
	if e.sessionID != sessionID {
		e.mu.Unlock()
		e.logger.Debug("stale reply dropped", zap.String("session_id", sessionID))
		e.bus.Publish(bus.KindReplyDropped, sessionID)
		return
	}
	reply := chat.Message{
		ID:        uuid.New().String(),
		Text:      text,
		Sender:    chat.SenderAssistant,
		Timestamp: time.Now(),
	}
	e.messages = append(e.messages, reply)
	e.replyPending = false
	e.mu.Unlock()

	e.bus.Publish(bus.KindMessageAppended, reply.ID)
	e.bus.Publish(bus.KindReplyPending, false)
}

// snapshotLocked builds a persistable view of the current session.
// Caller holds the lock.
func (e *Engine) snapshotLocked() chat.Session {
	msgs := make([]chat.Message, len(e.messages))
	copy(msgs, e.messages)
	last := ""
	if len(msgs) > 0 {
		last = msgs[len(msgs)-1].Text
	}
	return chat.Session{
		ID:           e.sessionID,
		Title:        chat.TitleFrom(msgs),
		LastMessage:  last,
		Timestamp:    time.Now(),
		MessageCount: len(msgs),
		Messages:     msgs,
	}
}

// StartNewSession persists the current session (if it has a user message)
// and resets to a fresh greeting-only timeline under a new session id.
// Staged preview handles are released before the staged list is discarded.
func (e *Engine) StartNewSession() error {
	e.mu.Lock()
	snapshot := e.snapshotLocked()
	e.attachments.ReleaseAll(e.staged)
	e.resetLocked()
	newID := e.sessionID
	e.mu.Unlock()

	err := e.store.Save(snapshot)
	if err != nil {
		e.logger.Warn("session save failed", zap.Error(err), zap.String("session_id", snapshot.ID))
	}
	e.logger.Info("new session started", zap.String("session_id", newID))
	e.bus.Publish(bus.KindSessionChanged, newID)
	return err
}

// SelectSession replaces the current timeline with a stored session.
// Unknown ids leave the current session untouched.
func (e *Engine) SelectSession(id string) error {
	stored, err := e.store.LoadOne(id)
	if err != nil {
		return err
	}
	if stored == nil {
		return nil
	}

	e.mu.Lock()
	e.attachments.ReleaseAll(e.staged)
	e.sessionID = stored.ID
	e.messages = make([]chat.Message, len(stored.Messages))
	copy(e.messages, stored.Messages)
	e.input = ""
	e.staged = nil
	e.replyPending = false
	e.mu.Unlock()

	e.logger.Info("session selected", zap.String("session_id", id))
	e.bus.Publish(bus.KindSessionChanged, id)
	return nil
}

// DeleteSession removes a stored session from the history.
func (e *Engine) DeleteSession(id string) error {
	return e.store.Delete(id)
}

// Sessions returns the stored session list, most recently updated first.
func (e *Engine) Sessions() ([]chat.Session, error) {
	return e.store.LoadAll()
}

// Messages returns a copy of the current timeline.
func (e *Engine) Messages() []chat.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	msgs := make([]chat.Message, len(e.messages))
	copy(msgs, e.messages)
	return msgs
}

// Staged returns a copy of the staged attachment list.
func (e *Engine) Staged() []chat.Attachment {
	e.mu.Lock()
	defer e.mu.Unlock()
	staged := make([]chat.Attachment, len(e.staged))
	copy(staged, e.staged)
	return staged
}

// Input returns the current input buffer.
func (e *Engine) Input() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input
}

// ReplyPending reports whether an assistant reply is outstanding. The
// presentation layer must disable send and staging inputs while true.
func (e *Engine) ReplyPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.replyPending
}

// SessionID returns the current session identifier.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}
