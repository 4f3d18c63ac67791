package views

import (
	"fmt"

	"github.com/rivo/tview"
)

// StatusBar shows the current session, pending state and transient flashes.
type StatusBar struct {
	*tview.TextView
	session string
	pending bool
	flash   string
}

// NewStatusBar creates the status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	return &StatusBar{TextView: tv}
}

// SetSession sets the displayed session identifier.
func (s *StatusBar) SetSession(id string) {
	s.session = id
	s.render()
}

// SetPending toggles the reply-pending indicator.
func (s *StatusBar) SetPending(pending bool) {
	s.pending = pending
	s.render()
}

// SetFlash sets a transient message shown until the next update.
func (s *StatusBar) SetFlash(msg string) {
	s.flash = msg
	s.render()
}

func (s *StatusBar) render() {
	s.Clear()
	state := "ready"
	if s.pending {
		state = "AI is typing..."
	}
	short := s.session
	if len(short) > 8 {
		short = short[:8]
	}
	fmt.Fprintf(s, " [aqua]%s[-] | %s", short, state)
	if s.flash != "" {
		fmt.Fprintf(s, " | [red]%s[-]", tview.Escape(s.flash))
	}
	fmt.Fprint(s, "  [gray]^N:new  ^R:recent  /attach <path>  /detach <n>[-]")
}
