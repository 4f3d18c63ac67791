package bus

import "time"

// Event kinds published by the core. Subscribers filter by namespace
// prefix, e.g. "chat." receives every chat event.
const (
	KindMessageAppended = "chat.message_appended"
	KindReplyPending    = "chat.reply_pending"
	KindStagedChanged   = "chat.staged_changed"
	KindSessionChanged  = "chat.session_changed"
	KindReplyDropped    = "chat.reply_dropped"
	KindHistorySaved    = "history.saved"
	KindHistoryDeleted  = "history.deleted"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
