// Package question implements the selection logic of the ask-user dialog.
package question

import (
	"errors"
	"slices"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// ErrClosed is returned when a dialog that was already submitted or cancelled is used again.
var ErrClosed = errors.New("dialog already closed")

// Selections maps question text to the selected option labels, in selection order.
// It is immutable: Select returns a new value.
type Selections struct {
	m map[string][]string
}

// Select applies a click on an option.
// For single-select questions the selection is replaced by the label. For multi-select
// questions a selected label is removed and a new one is appended.
func (s Selections) Select(q types.Question, label string) Selections {
	next := make(map[string][]string, len(s.m)+1)
	for k, v := range s.m {
		next[k] = v
	}

	if !q.MultiSelect {
		next[q.Question] = []string{label}
		return Selections{m: next}
	}

	current := s.m[q.Question]
	if i := slices.Index(current, label); i >= 0 {
		next[q.Question] = slices.Delete(slices.Clone(current), i, i+1)
	} else {
		next[q.Question] = append(slices.Clone(current), label)
	}
	return Selections{m: next}
}

// IsSelected reports whether label is selected for the question.
func (s Selections) IsSelected(question, label string) bool {
	return slices.Contains(s.m[question], label)
}

// Get returns the selected labels of a question.
func (s Selections) Get(question string) []string {
	return slices.Clone(s.m[question])
}

// Map returns a copy of the whole mapping.
func (s Selections) Map() map[string][]string {
	out := make(map[string][]string, len(s.m))
	for k, v := range s.m {
		out[k] = slices.Clone(v)
	}
	return out
}

// Dialog holds the state of one question dialog.
type Dialog struct {
	Questions types.UserQuestions

	// OnSubmit receives the complete mapping when the user submits.
	OnSubmit func(map[string][]string)
	// OnCancel is called when the user dismisses the dialog.
	OnCancel func()

	selections Selections
	closed     bool
}

// NewDialog creates a dialog with no selections.
func NewDialog(q types.UserQuestions, onSubmit func(map[string][]string), onCancel func()) *Dialog {
	return &Dialog{Questions: q, OnSubmit: onSubmit, OnCancel: onCancel}
}

// Toggle selects or deselects option index opt of question index qi.
// Out-of-range indexes are ignored.
func (d *Dialog) Toggle(qi, opt int) {
	if d.closed || qi < 0 || qi >= len(d.Questions.Questions) {
		return
	}
	q := d.Questions.Questions[qi]
	if opt < 0 || opt >= len(q.Options) {
		return
	}
	d.selections = d.selections.Select(q, q.Options[opt].Label)
}

// Selections returns the current selections.
func (d *Dialog) Selections() Selections {
	return d.selections
}

// Closed reports whether the dialog was submitted or cancelled.
func (d *Dialog) Closed() bool {
	return d.closed
}

// SubmitLabel returns the submit button text.
func (d *Dialog) SubmitLabel() string {
	if d.Questions.SubmitLabel != "" {
		return d.Questions.SubmitLabel
	}
	return "Submit"
}

// CancelLabel returns the cancel button text.
func (d *Dialog) CancelLabel() string {
	if d.Questions.CancelLabel != "" {
		return d.Questions.CancelLabel
	}
	return "Cancel"
}

// Submit hands the whole mapping to OnSubmit and closes the dialog.
func (d *Dialog) Submit() error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	if d.OnSubmit != nil {
		d.OnSubmit(d.selections.Map())
	}
	return nil
}

// Cancel discards all selections and closes the dialog.
func (d *Dialog) Cancel() error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	d.selections = Selections{}
	if d.OnCancel != nil {
		d.OnCancel()
	}
	return nil
}
