// Package history persists finished and ongoing chat sessions as a single
// JSON array in a string-keyed slot, capacity-bounded and most-recent-first.
package history

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chatflow-ai/chatflow/internal/bus"
	"github.com/chatflow-ai/chatflow/internal/chat"
	"github.com/chatflow-ai/chatflow/internal/history/kv"
)

// StorageKey is the well-known slot holding the recent chats array.
const StorageKey = "chatflow.recent_chats"

// Capacity is the maximum number of retained sessions. Writes beyond it
// evict the least-recently-updated entries.
const Capacity = 20

// Store is the capacity-bounded session store over a kv backend.
type Store struct {
	mu     sync.Mutex
	kv     kv.Backend
	bus    *bus.Bus
	logger *zap.Logger
}

// NewStore creates a history store over the given backend.
func NewStore(backend kv.Backend, b *bus.Bus, logger *zap.Logger) *Store {
	return &Store{kv: backend, bus: b, logger: logger}
}

// load reads and decodes the session array. Corrupt or missing data is
// fail-open: it is logged and treated as an empty history, never surfaced
// as a blocking error.
func (s *Store) load() []chat.Session {
	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		s.logger.Warn("history read failed, treating as empty", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var sessions []chat.Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		s.logger.Warn("history corrupt, treating as empty", zap.Error(err))
		return nil
	}
	return sessions
}

func (s *Store) write(sessions []chat.Session) error {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.kv.Set(StorageKey, string(raw)); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// Save upserts a session snapshot at the head of the history and truncates
// to Capacity. Sessions without a user-authored message are not persisted.
func (s *Store) Save(sess chat.Session) error {
	if !sess.HasUserMessage() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	kept := sessions[:0]
	for _, existing := range sessions {
		if existing.ID != sess.ID {
			kept = append(kept, existing)
		}
	}
	updated := append([]chat.Session{sess}, kept...)
	if len(updated) > Capacity {
		updated = updated[:Capacity]
	}

	if err := s.write(updated); err != nil {
		return err
	}
	s.logger.Debug("session saved",
		zap.String("session_id", sess.ID),
		zap.Int("message_count", sess.MessageCount),
		zap.Int("history_len", len(updated)))
	s.bus.Publish(bus.KindHistorySaved, sess.ID)
	return nil
}

// LoadAll returns all stored sessions, most recently updated first.
func (s *Store) LoadAll() ([]chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// LoadOne returns the session with the given id, or nil if absent.
func (s *Store) LoadOne(id string) (*chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.load() {
		if sess.ID == id {
			return &sess, nil
		}
	}
	return nil, nil
}

// Delete removes the session with the given id. Absent ids are a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	kept := sessions[:0]
	for _, sess := range sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	if len(kept) == len(sessions) {
		return nil
	}
	if err := s.write(kept); err != nil {
		return err
	}
	s.bus.Publish(bus.KindHistoryDeleted, id)
	return nil
}
