package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/chatflow-ai/chatflow/internal/chat"
)

// MessageView renders the active conversation timeline.
type MessageView struct {
	*tview.TextView
}

// NewMessageView creates the timeline view.
func NewMessageView() *MessageView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetScrollable(true)
	tv.SetBorder(true).SetTitle(" ChatFlow AI ")
	return &MessageView{TextView: tv}
}

// Update re-renders the timeline. When pending is true a typing indicator
// is appended below the last message.
func (v *MessageView) Update(msgs []chat.Message, pending bool) {
	v.Clear()
	for _, m := range msgs {
		label := "[green]AI[-]"
		if m.Sender == chat.SenderUser {
			label = "[aqua]You[-]"
		}
		fmt.Fprintf(v, "%s [gray]%s[-]\n%s\n", label, formatTime(m.Timestamp), tview.Escape(m.Text))
		for _, f := range m.Files {
			kind := "file"
			if f.IsImage() {
				kind = "image"
			}
			fmt.Fprintf(v, "  [yellow]+ %s[-] [gray](%s, %d bytes)[-]\n", tview.Escape(f.Name), kind, f.Size)
		}
		fmt.Fprintln(v)
	}
	if pending {
		fmt.Fprintln(v, "[gray]AI is typing...[-]")
	}
	v.ScrollToEnd()
}

func formatTime(t time.Time) string {
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02 15:04")
}
