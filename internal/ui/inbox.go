package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/notebook-intelligence/nbi-settings/internal/settingsync"
)

const inboxSize = 32

type viewMsg settingsync.View

type noticeMsg settingsync.Notice

// Inbox carries synchronizer views and notices into a bubbletea program.
// It implements settingsync.Notifier and never blocks the sender.
type Inbox struct {
	ch chan tea.Msg
}

func NewInbox() *Inbox {
	return &Inbox{ch: make(chan tea.Msg, inboxSize)}
}

// Notify queues a notice.
func (i *Inbox) Notify(n settingsync.Notice) {
	i.push(noticeMsg(n))
}

// PushView queues a view. It is meant to be registered with Synchronizer.OnChange.
func (i *Inbox) PushView(v settingsync.View) {
	i.push(viewMsg(v))
}

// push drops the oldest queued message when the inbox is full.
func (i *Inbox) push(msg tea.Msg) {
	for {
		select {
		case i.ch <- msg:
			return
		default:
		}
		select {
		case <-i.ch:
		default:
		}
	}
}

// wait returns a command that delivers the next queued message.
func (i *Inbox) wait() tea.Cmd {
	return func() tea.Msg {
		return <-i.ch
	}
}
