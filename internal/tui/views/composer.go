package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Composer is the text input for sending messages and attach commands.
type Composer struct {
	*tview.InputField
	onSubmit func(text string)
}

// NewComposer creates a new message composer.
func NewComposer() *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)

	c := &Composer{InputField: input}

	// Fires on empty text too: a send with staged attachments and no text
	// is valid.
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && c.onSubmit != nil {
			c.onSubmit(c.GetText())
			c.SetText("")
		}
	})

	return c
}

// SetOnSubmit sets the callback invoked when the user presses enter.
func (c *Composer) SetOnSubmit(fn func(text string)) {
	c.onSubmit = fn
}
