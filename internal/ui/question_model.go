package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/notebook-intelligence/nbi-settings/internal/question"
)

// QuestionModel drives a question dialog in the terminal. The program quits once
// the dialog is submitted or cancelled.
type QuestionModel struct {
	Dialog *question.Dialog
	Focus  int
}

func NewQuestionModel(d *question.Dialog) QuestionModel {
	return QuestionModel{Dialog: d}
}

func (m QuestionModel) Init() tea.Cmd { return nil }

func (m QuestionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	items := QuestionItems(m.Dialog)

	switch kmsg.String() {
	case "up", "shift+tab", "k":
		m.Focus = wrap(m.Focus-1, len(items))
	case "down", "tab", "j":
		m.Focus = wrap(m.Focus+1, len(items))
	case " ", "enter":
		item := items[clamp(m.Focus, len(items))]
		switch item.Button {
		case SubmitButton:
			_ = m.Dialog.Submit()
			return m, tea.Quit
		case CancelButton:
			_ = m.Dialog.Cancel()
			return m, tea.Quit
		default:
			m.Dialog.Toggle(item.Question, item.Option)
		}
	case "esc", "ctrl+c":
		_ = m.Dialog.Cancel()
		return m, tea.Quit
	}
	return m, nil
}

func (m QuestionModel) View() string {
	if m.Dialog.Closed() {
		return ""
	}
	return RenderQuestionDialog(m.Dialog, m.Focus) + "\n"
}
