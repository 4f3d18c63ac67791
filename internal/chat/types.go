package chat

import (
	"strings"
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "ai"
)

// Blob is a raw file handed to the app by a picker or drag source.
// The core accepts whatever it is given; type filtering is a UI concern.
type Blob struct {
	Name     string
	MimeType string
	Data     []byte
}

// Attachment is a staged or sent file reference. Data and Preview are
// runtime-only: Preview is a revocable handle owned by the attachment
// manager and must never be serialized.
type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Data     []byte `json:"-"`
	Preview  string `json:"-"`
}

// IsImage reports whether the attachment carries an image-like mime type.
func (a Attachment) IsImage() bool {
	return IsImageMime(a.MimeType)
}

// IsImageMime reports whether a mime type is image-like.
func IsImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// Message is one entry in a conversation timeline. Immutable once appended.
type Message struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Sender    Sender       `json:"sender"`
	Timestamp time.Time    `json:"timestamp"`
	Files     []Attachment `json:"files,omitempty"`
}

// Session is one conversation, persisted as a single unit.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"lastMessage"`
	Timestamp    time.Time `json:"timestamp"`
	MessageCount int       `json:"messageCount"`
	Messages     []Message `json:"messages"`
}

// HasUserMessage reports whether the session contains at least one
// user-authored message. Sessions without one are not worth persisting.
func (s Session) HasUserMessage() bool {
	for _, m := range s.Messages {
		if m.Sender == SenderUser {
			return true
		}
	}
	return false
}

// TitleFrom derives a session title from the first user message,
// truncated to 50 characters, falling back to a default.
func TitleFrom(messages []Message) string {
	for _, m := range messages {
		if m.Sender == SenderUser {
			title := m.Text
			if len(title) > 50 {
				title = title[:50]
			}
			return title
		}
	}
	return "New Chat"
}
