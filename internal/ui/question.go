package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/notebook-intelligence/nbi-settings/internal/question"
	"github.com/notebook-intelligence/nbi-settings/internal/ui/style"
)

// QuestionButton identifies the dialog buttons.
type QuestionButton int

const (
	NoButton QuestionButton = iota
	SubmitButton
	CancelButton
)

// QuestionItem is a focusable element of the question dialog: an option or a button.
type QuestionItem struct {
	Question int
	Option   int
	Button   QuestionButton
}

// QuestionItems lists the focusable elements in render order.
func QuestionItems(d *question.Dialog) []QuestionItem {
	var items []QuestionItem
	for qi, q := range d.Questions.Questions {
		for oi := range q.Options {
			items = append(items, QuestionItem{Question: qi, Option: oi})
		}
	}
	return append(items, QuestionItem{Button: SubmitButton}, QuestionItem{Button: CancelButton})
}

// RenderQuestionDialog renders the dialog with the element at focus highlighted.
func RenderQuestionDialog(d *question.Dialog, focus int) string {
	items := QuestionItems(d)
	focused := func(it QuestionItem) bool {
		return focus >= 0 && focus < len(items) && items[focus] == it
	}

	var b strings.Builder
	if d.Questions.Title != "" {
		b.WriteString(style.TitleStyle.Render(d.Questions.Title) + "\n")
	}
	if d.Questions.Message != "" {
		b.WriteString(d.Questions.Message + "\n")
	}

	sel := d.Selections()
	for qi, q := range d.Questions.Questions {
		b.WriteString("\n" + style.TextStyle.Bold(true).Render(q.Question) + "\n")
		if q.Header != "" {
			b.WriteString(style.MutedStyle.Render(q.Header) + "\n")
		}
		for oi, opt := range q.Options {
			box := CheckBoxItem{
				Label:   opt.Label,
				Title:   opt.Description,
				Checked: sel.IsSelected(q.Question, opt.Label),
				Focused: focused(QuestionItem{Question: qi, Option: oi}),
			}
			b.WriteString(box.Render() + "\n")
		}
	}

	submit := style.ButtonStyle
	if focused(QuestionItem{Button: SubmitButton}) {
		submit = style.ButtonFocusStyle
	}
	cancel := style.ButtonStyle
	if focused(QuestionItem{Button: CancelButton}) {
		cancel = style.ButtonFocusStyle
	}
	b.WriteString("\n" + lipgloss.JoinHorizontal(lipgloss.Top,
		submit.Render(d.SubmitLabel()), " ", cancel.Render(d.CancelLabel()),
	))
	return style.BoxStyle.Render(b.String())
}
