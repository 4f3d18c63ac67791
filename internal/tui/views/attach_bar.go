package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/chatflow-ai/chatflow/internal/chat"
)

// AttachBar lists staged attachments above the composer.
type AttachBar struct {
	*tview.TextView
}

// NewAttachBar creates the staged attachment bar.
func NewAttachBar() *AttachBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	return &AttachBar{TextView: tv}
}

// Update re-renders the staged list. Numbering matches the /detach command.
func (b *AttachBar) Update(staged []chat.Attachment) {
	b.Clear()
	if len(staged) == 0 {
		return
	}
	for i, ref := range staged {
		if i > 0 {
			fmt.Fprint(b, "  ")
		}
		fmt.Fprintf(b, "[yellow]%d:%s[-] [gray](%d bytes)[-]", i+1, tview.Escape(ref.Name), ref.Size)
	}
}
