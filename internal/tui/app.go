// Package tui is the terminal front end. It renders state exposed by the
// engine and history store and invokes their operations; all conversation
// logic lives below it.
package tui

import (
	"context"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/chatflow-ai/chatflow/internal/bus"
	"github.com/chatflow-ai/chatflow/internal/chat"
	"github.com/chatflow-ai/chatflow/internal/engine"
	"github.com/chatflow-ai/chatflow/internal/tui/views"
)

// App is the TUI application shell.
type App struct {
	app    *tview.Application
	pages  *tview.Pages
	engine *engine.Engine
	bus    *bus.Bus
	logger *zap.Logger

	msgView   *views.MessageView
	recent    *views.RecentList
	composer  *views.Composer
	attachBar *views.AttachBar
	statusBar *views.StatusBar

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(e *engine.Engine, b *bus.Bus, logger *zap.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		engine:    e,
		bus:       b,
		logger:    logger,
		msgView:   views.NewMessageView(),
		recent:    views.NewRecentList(),
		composer:  views.NewComposer(),
		attachBar: views.NewAttachBar(),
		statusBar: views.NewStatusBar(),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupCallbacks() {
	a.composer.SetOnSubmit(a.handleSubmit)

	a.recent.SetSelectedFunc(func(row, col int) {
		id := a.recent.SelectedSession()
		if id == "" {
			return
		}
		if err := a.engine.SelectSession(id); err != nil {
			a.statusBar.SetFlash("Load failed: " + err.Error())
		}
		a.showChat()
	})
}

// handleSubmit routes composer input: /attach and /detach manage the staged
// list, everything else is message text.
func (a *App) handleSubmit(text string) {
	switch {
	case strings.HasPrefix(text, "/attach "):
		path := strings.TrimSpace(strings.TrimPrefix(text, "/attach "))
		blob, err := LoadBlob(path)
		if err != nil {
			a.statusBar.SetFlash("Attach failed: " + err.Error())
			a.redraw()
			return
		}
		if err := a.engine.StageAttachments([]chat.Blob{blob}); err != nil {
			a.statusBar.SetFlash(err.Error())
		}
	case strings.HasPrefix(text, "/detach "):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(text, "/detach ")))
		staged := a.engine.Staged()
		if err != nil || n < 1 || n > len(staged) {
			a.statusBar.SetFlash("No staged attachment " + strings.TrimPrefix(text, "/detach "))
			a.redraw()
			return
		}
		a.engine.UnstageAttachment(staged[n-1].ID)
	default:
		a.engine.SetInput(text)
		if err := a.engine.Send(); err != nil {
			a.statusBar.SetFlash(err.Error())
		}
	}
	a.redraw()
}

func (a *App) setupLayout() {
	chatFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.msgView, 0, 1, false).
		AddItem(a.attachBar, 1, 0, false).
		AddItem(a.composer, 1, 0, true)

	a.pages.AddPage("chat", chatFlex, true, true)
	a.pages.AddPage("recent", a.recent, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		switch event.Key() {
		case tcell.KeyCtrlN:
			if err := a.engine.StartNewSession(); err != nil {
				a.statusBar.SetFlash("Save failed: " + err.Error())
			}
			a.showChat()
			return nil
		case tcell.KeyCtrlR:
			a.showRecent()
			return nil
		case tcell.KeyEscape:
			if currentPage == "recent" {
				a.showChat()
				return nil
			}
		}

		if currentPage == "recent" && event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'q':
				a.app.Stop()
				return nil
			case 'd':
				if id := a.recent.SelectedSession(); id != "" {
					if err := a.engine.DeleteSession(id); err != nil {
						a.statusBar.SetFlash("Delete failed: " + err.Error())
					}
					a.refreshRecent()
				}
				return nil
			}
		}
		return event
	})
}

func (a *App) showChat() {
	a.pages.SwitchToPage("chat")
	a.app.SetFocus(a.composer.InputField)
	a.redraw()
}

func (a *App) showRecent() {
	a.refreshRecent()
	a.pages.SwitchToPage("recent")
	a.app.SetFocus(a.recent)
}

func (a *App) refreshRecent() {
	sessions, err := a.engine.Sessions()
	if err != nil {
		a.statusBar.SetFlash("History load failed: " + err.Error())
		return
	}
	a.recent.Update(sessions)
}

// redraw re-renders chat page widgets from engine state.
func (a *App) redraw() {
	a.msgView.Update(a.engine.Messages(), a.engine.ReplyPending())
	a.attachBar.Update(a.engine.Staged())
	a.statusBar.SetSession(a.engine.SessionID())
	a.statusBar.SetPending(a.engine.ReplyPending())
}

// watchEvents redraws whenever the core publishes a state change, e.g. a
// reply timer firing.
func (a *App) watchEvents() {
	ch, unsub := a.bus.Subscribe("", 64)
	go func() {
		defer unsub()
		for {
			select {
			case <-ch:
				a.app.QueueUpdateDraw(func() {
					a.redraw()
					currentPage, _ := a.pages.GetFrontPage()
					if currentPage == "recent" {
						a.refreshRecent()
					}
				})
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	a.redraw()
	a.watchEvents()
	a.app.SetFocus(a.composer.InputField)
	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
