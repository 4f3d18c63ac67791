package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/chatflow-ai/chatflow/internal/chat"
)

// RecentList is the recent chats table.
type RecentList struct {
	*tview.Table
	sessions   []chat.Session
	selectedFn func() (int, int)
}

// NewRecentList creates the recent chats table.
func NewRecentList() *RecentList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Recent Chats ")

	rl := &RecentList{Table: table}
	rl.selectedFn = table.GetSelection
	return rl
}

// Update refreshes the table with new session summaries.
func (rl *RecentList) Update(sessions []chat.Session) {
	rl.sessions = sessions
	rl.Clear()

	rl.SetCell(0, 0, tview.NewTableCell(" Title").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	rl.SetCell(0, 1, tview.NewTableCell(" Last Message").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	rl.SetCell(0, 2, tview.NewTableCell(" Msgs").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	rl.SetCell(0, 3, tview.NewTableCell(" Time").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, sess := range sessions {
		row := i + 1
		rl.SetCell(row, 0, tview.NewTableCell(" "+sess.Title).SetMaxWidth(30).SetExpansion(1))
		rl.SetCell(row, 1, tview.NewTableCell(" "+sess.LastMessage).SetMaxWidth(40).SetExpansion(2))
		rl.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf(" %d", sess.MessageCount)).SetMaxWidth(6))
		rl.SetCell(row, 3, tview.NewTableCell(" "+formatTime(sess.Timestamp)).SetMaxWidth(12))
	}
}

// SelectedSession returns the id of the currently selected session.
func (rl *RecentList) SelectedSession() string {
	row, _ := rl.selectedFn()
	idx := row - 1 // account for header
	if idx >= 0 && idx < len(rl.sessions) {
		return rl.sessions[idx].ID
	}
	return ""
}
