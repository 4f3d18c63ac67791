// Package attach maps raw file blobs to attachment records and manages
// revocable preview handles for image attachments.
package attach

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatflow-ai/chatflow/internal/chat"
)

// Manager owns the preview handle registry. A handle stays readable until
// it is revoked; revocation must happen exactly once per handle, which the
// engine guarantees by clearing the Preview field after Release.
type Manager struct {
	mu       sync.Mutex
	previews map[string][]byte
	logger   *zap.Logger
}

// NewManager creates an attachment manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		previews: make(map[string][]byte),
		logger:   logger,
	}
}

// Acquire builds an Attachment from a blob. Image-like blobs get a preview
// handle referencing the blob bytes so the UI can render without re-reading
// the source.
func (m *Manager) Acquire(b chat.Blob) chat.Attachment {
	ref := chat.Attachment{
		ID:       uuid.New().String(),
		Name:     b.Name,
		MimeType: b.MimeType,
		Size:     int64(len(b.Data)),
		Data:     b.Data,
	}
	if chat.IsImageMime(b.MimeType) {
		handle := "preview://" + uuid.New().String()
		m.mu.Lock()
		m.previews[handle] = b.Data
		m.mu.Unlock()
		ref.Preview = handle
	}
	return ref
}

// Release revokes the attachment's preview handle, if it has one. The
// caller must not release the same handle twice; revoking an unknown
// handle is logged as a contract violation.
func (m *Manager) Release(ref *chat.Attachment) {
	if ref.Preview == "" {
		return
	}
	m.mu.Lock()
	_, ok := m.previews[ref.Preview]
	delete(m.previews, ref.Preview)
	m.mu.Unlock()
	if !ok {
		m.logger.Warn("release of unknown preview handle", zap.String("handle", ref.Preview), zap.String("attachment_id", ref.ID))
	}
	ref.Preview = ""
}

// ReleaseAll revokes every preview handle in the list. Used on session
// transitions that discard a non-empty staged list.
func (m *Manager) ReleaseAll(refs []chat.Attachment) {
	for i := range refs {
		m.Release(&refs[i])
	}
}

// Alive reports whether a preview handle is still readable.
func (m *Manager) Alive(handle string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.previews[handle]
	return ok
}

// PreviewBytes returns the bytes behind a preview handle for rendering.
func (m *Manager) PreviewBytes(handle string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.previews[handle]
	return data, ok
}
