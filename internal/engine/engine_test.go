package engine

import (
	"slices"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chatflow-ai/chatflow/internal/attach"
	"github.com/chatflow-ai/chatflow/internal/bus"
	"github.com/chatflow-ai/chatflow/internal/chat"
	"github.com/chatflow-ai/chatflow/internal/history"
	"github.com/chatflow-ai/chatflow/internal/history/kv"
	"github.com/chatflow-ai/chatflow/internal/responder"
)

const (
	testPersistDelay = 5 * time.Millisecond
	testReplyDelay   = 15 * time.Millisecond
)

type fixture struct {
	engine  *Engine
	attach  *attach.Manager
	store   *history.Store
	backend *kv.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	b := bus.New()
	backend := kv.NewMemory()
	st := history.NewStore(backend, b, logger)
	am := attach.NewManager(logger)
	r := responder.New(testReplyDelay)
	e := New(Options{PersistDelay: testPersistDelay}, am, r, st, b, logger)
	return &fixture{engine: e, attach: am, store: st, backend: backend}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func imageBlob(name string) chat.Blob {
	return chat.Blob{Name: name, MimeType: "image/png", Data: []byte("png")}
}

func pdfBlob(name string) chat.Blob {
	return chat.Blob{Name: name, MimeType: "application/pdf", Data: []byte("pdf")}
}

func TestFreshSessionHasGreeting(t *testing.T) {
	f := newFixture(t)

	msgs := f.engine.Messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Sender != chat.SenderAssistant {
		t.Errorf("greeting sender = %q, want assistant", msgs[0].Sender)
	}
	if msgs[0].Text != DefaultGreeting {
		t.Errorf("greeting = %q", msgs[0].Text)
	}
	if f.engine.SessionID() == "" {
		t.Error("no session id assigned")
	}
}

func TestSendTextProducesUserThenAssistantMessage(t *testing.T) {
	f := newFixture(t)

	f.engine.SetInput("Hello")
	if err := f.engine.Send(); err != nil {
		t.Fatal(err)
	}

	msgs := f.engine.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages right after send, want 2", len(msgs))
	}
	if msgs[1].Sender != chat.SenderUser || msgs[1].Text != "Hello" {
		t.Errorf("user message = %+v", msgs[1])
	}
	if !f.engine.ReplyPending() {
		t.Error("reply-pending flag not set after send")
	}
	if f.engine.Input() != "" {
		t.Error("input buffer not cleared after send")
	}

	waitFor(t, func() bool { return !f.engine.ReplyPending() })

	msgs = f.engine.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages after reply, want 3", len(msgs))
	}
	reply := msgs[2]
	if reply.Sender != chat.SenderAssistant {
		t.Errorf("reply sender = %q, want assistant", reply.Sender)
	}
	if !slices.Contains(responder.Corpus, reply.Text) {
		t.Errorf("reply %q not from the canned corpus", reply.Text)
	}
}

func TestEmptySendIsNoop(t *testing.T) {
	f := newFixture(t)

	f.engine.SetInput("   ")
	if err := f.engine.Send(); err != nil {
		t.Fatal(err)
	}

	if got := len(f.engine.Messages()); got != 1 {
		t.Errorf("timeline grew to %d on empty send", got)
	}
	if f.engine.ReplyPending() {
		t.Error("reply-pending set on empty send")
	}
	if f.engine.Input() != "   " {
		t.Error("input buffer changed on rejected send")
	}
}

func TestSendWhileReplyPendingIsRejected(t *testing.T) {
	f := newFixture(t)

	f.engine.SetInput("first")
	if err := f.engine.Send(); err != nil {
		t.Fatal(err)
	}

	f.engine.SetInput("second")
	if err := f.engine.Send(); err != ErrReplyPending {
		t.Errorf("err = %v, want ErrReplyPending", err)
	}
	if err := f.engine.StageAttachments([]chat.Blob{pdfBlob("a.pdf")}); err != ErrReplyPending {
		t.Errorf("stage err = %v, want ErrReplyPending", err)
	}
}

func TestSendWithOnlyAttachmentsUsesPlaceholder(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.StageAttachments([]chat.Blob{imageBlob("a.png"), pdfBlob("b.pdf")}); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.Send(); err != nil {
		t.Fatal(err)
	}

	msgs := f.engine.Messages()
	user := msgs[len(msgs)-1]
	if user.Text != "Sent 2 file(s)" {
		t.Errorf("placeholder = %q, want Sent 2 file(s)", user.Text)
	}
	if len(user.Files) != 2 {
		t.Errorf("got %d attachments, want 2", len(user.Files))
	}
	if len(f.engine.Staged()) != 0 {
		t.Error("staged list not cleared after send")
	}

	waitFor(t, func() bool { return !f.engine.ReplyPending() })
	msgs = f.engine.Messages()
	reply := msgs[len(msgs)-1]
	if reply.Text != responder.ReplyMixed {
		t.Errorf("reply = %q, want the mixed-content reply", reply.Text)
	}
}

func TestUnstageAttachmentReleasesPreview(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.StageAttachments([]chat.Blob{imageBlob("a.png")}); err != nil {
		t.Fatal(err)
	}
	staged := f.engine.Staged()
	handle := staged[0].Preview
	if handle == "" {
		t.Fatal("image attachment has no preview handle")
	}

	f.engine.UnstageAttachment(staged[0].ID)
	if len(f.engine.Staged()) != 0 {
		t.Error("attachment still staged after unstage")
	}
	if f.attach.Alive(handle) {
		t.Error("preview handle still alive after unstage")
	}

	// Unknown ids are a no-op.
	f.engine.UnstageAttachment("missing")
}

func TestSendPersistsSession(t *testing.T) {
	f := newFixture(t)

	f.engine.SetInput("Hello there, this is a long first message that should become the title")
	if err := f.engine.Send(); err != nil {
		t.Fatal(err)
	}

	id := f.engine.SessionID()
	waitFor(t, func() bool {
		stored, _ := f.store.LoadOne(id)
		return stored != nil
	})

	stored, _ := f.store.LoadOne(id)
	if len(stored.Title) != 50 {
		t.Errorf("title length = %d, want 50 (truncated)", len(stored.Title))
	}
	if stored.MessageCount < 2 {
		t.Errorf("messageCount = %d, want >= 2", stored.MessageCount)
	}
}

func TestStartNewSessionPersistsAndResets(t *testing.T) {
	f := newFixture(t)

	f.engine.SetInput("Hello")
	if err := f.engine.Send(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return !f.engine.ReplyPending() })
	oldID := f.engine.SessionID()

	if err := f.engine.StartNewSession(); err != nil {
		t.Fatal(err)
	}

	if f.engine.SessionID() == oldID {
		t.Error("session id not rotated")
	}
	msgs := f.engine.Messages()
	if len(msgs) != 1 || msgs[0].Sender != chat.SenderAssistant {
		t.Errorf("new timeline = %+v, want single greeting", msgs)
	}

	all, err := f.engine.Sessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) == 0 || all[0].ID != oldID {
		t.Fatalf("prior session not at head of history: %+v", all)
	}
	if all[0].MessageCount != 3 {
		t.Errorf("persisted messageCount = %d, want 3", all[0].MessageCount)
	}
}

func TestStartNewSessionWithoutUserMessageSavesNothing(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.StartNewSession(); err != nil {
		t.Fatal(err)
	}
	all, _ := f.engine.Sessions()
	if len(all) != 0 {
		t.Errorf("greeting-only session persisted: %d entries", len(all))
	}
}

func TestStartNewSessionReleasesStagedPreviews(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.StageAttachments([]chat.Blob{imageBlob("a.png")}); err != nil {
		t.Fatal(err)
	}
	handle := f.engine.Staged()[0].Preview

	if err := f.engine.StartNewSession(); err != nil {
		t.Fatal(err)
	}
	if len(f.engine.Staged()) != 0 {
		t.Error("staged list survived session transition")
	}
	if f.attach.Alive(handle) {
		t.Error("preview handle leaked across session transition")
	}
}

func TestSelectSessionRestoresTimeline(t *testing.T) {
	f := newFixture(t)

	f.engine.SetInput("remember me")
	if err := f.engine.Send(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return !f.engine.ReplyPending() })
	oldID := f.engine.SessionID()

	if err := f.engine.StartNewSession(); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.SelectSession(oldID); err != nil {
		t.Fatal(err)
	}

	if f.engine.SessionID() != oldID {
		t.Errorf("session id = %q, want %q", f.engine.SessionID(), oldID)
	}
	msgs := f.engine.Messages()
	if len(msgs) != 3 {
		t.Fatalf("restored timeline has %d messages, want 3", len(msgs))
	}
	if msgs[1].Text != "remember me" {
		t.Errorf("restored user message = %q", msgs[1].Text)
	}
}

func TestSelectSessionUnknownIDIsNoop(t *testing.T) {
	f := newFixture(t)

	before := f.engine.SessionID()
	if err := f.engine.SelectSession("does-not-exist"); err != nil {
		t.Fatal(err)
	}
	if f.engine.SessionID() != before {
		t.Error("current session changed on unknown id")
	}
	if len(f.engine.Messages()) != 1 {
		t.Error("timeline changed on unknown id")
	}
}

func TestStaleReplyIsDroppedAfterNewSession(t *testing.T) {
	f := newFixture(t)

	f.engine.SetInput("Hello")
	if err := f.engine.Send(); err != nil {
		t.Fatal(err)
	}
	// Switch away before the reply timer fires.
	if err := f.engine.StartNewSession(); err != nil {
		t.Fatal(err)
	}

	if f.engine.ReplyPending() {
		t.Error("reply-pending survived session transition")
	}

	// Give the stale timer time to fire; the fresh timeline must stay a
	// single greeting.
	time.Sleep(3 * testReplyDelay)
	if got := len(f.engine.Messages()); got != 1 {
		t.Errorf("stale reply applied to new session: %d messages", got)
	}
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)

	f.engine.SetInput("Hello")
	if err := f.engine.Send(); err != nil {
		t.Fatal(err)
	}
	id := f.engine.SessionID()
	waitFor(t, func() bool {
		stored, _ := f.store.LoadOne(id)
		return stored != nil
	})

	if err := f.engine.DeleteSession(id); err != nil {
		t.Fatal(err)
	}
	stored, _ := f.store.LoadOne(id)
	if stored != nil {
		t.Error("session still stored after delete")
	}
}
