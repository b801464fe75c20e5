package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebook-intelligence/nbi-settings/internal/question"
)

func sendKeys(m QuestionModel, keys ...tea.KeyMsg) (QuestionModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(QuestionModel)
	}
	return m, cmd
}

func TestQuestionModelSubmit(t *testing.T) {
	var got map[string][]string
	d := question.NewDialog(testQuestions(), func(sel map[string][]string) { got = sel }, nil)
	m := NewQuestionModel(d)

	// R, then pandas and numpy, then the submit button
	m, _ = sendKeys(m, keyDown, keySpace, keyDown, keySpace, keyDown, keySpace, keyDown)
	assert.Contains(t, m.View(), "Which extras?")

	_, cmd := sendKeys(m, keyEnter)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, d.Closed())
	assert.Equal(t, map[string][]string{
		"Which language?": {"R"},
		"Which extras?":   {"pandas", "numpy"},
	}, got)
}

func TestQuestionModelCancel(t *testing.T) {
	cancelled := false
	submitted := false
	d := question.NewDialog(testQuestions(), func(map[string][]string) { submitted = true }, func() { cancelled = true })
	m := NewQuestionModel(d)

	m, _ = sendKeys(m, keySpace)
	_, cmd := sendKeys(m, keyEsc)
	require.NotNil(t, cmd)
	assert.True(t, cancelled)
	assert.False(t, submitted)
	assert.Empty(t, d.Selections().Map())
}

func TestQuestionModelFocusWraps(t *testing.T) {
	m := NewQuestionModel(question.NewDialog(testQuestions(), nil, nil))
	m, _ = sendKeys(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, len(QuestionItems(m.Dialog))-1, m.Focus)
}
