package question

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

var (
	multi = types.Question{
		Question:    "Which files?",
		MultiSelect: true,
		Options:     []types.QuestionOption{{Label: "A"}, {Label: "B"}},
	}
	single = types.Question{
		Question: "Which mode?",
		Options:  []types.QuestionOption{{Label: "ask"}, {Label: "agent"}},
	}
)

func TestSelect_MultiSelect(t *testing.T) {
	t.Parallel()

	var s Selections
	s = s.Select(multi, "A")
	s = s.Select(multi, "B")
	s = s.Select(multi, "A")

	assert.Equal(t, []string{"B"}, s.Get(multi.Question))
	assert.False(t, s.IsSelected(multi.Question, "A"))
	assert.True(t, s.IsSelected(multi.Question, "B"))
}

func TestSelect_AppendOrder(t *testing.T) {
	t.Parallel()

	var s Selections
	s = s.Select(multi, "B").Select(multi, "A")
	assert.Equal(t, []string{"B", "A"}, s.Get(multi.Question))
}

func TestSelect_SingleSelectReplaces(t *testing.T) {
	t.Parallel()

	var s Selections
	s = s.Select(single, "ask")
	s = s.Select(single, "agent")
	assert.Equal(t, []string{"agent"}, s.Get(single.Question))

	// selecting the same option again keeps it selected
	s = s.Select(single, "agent")
	assert.Equal(t, []string{"agent"}, s.Get(single.Question))
}

func TestSelect_Immutable(t *testing.T) {
	t.Parallel()

	var s Selections
	a := s.Select(multi, "A")
	b := a.Select(multi, "B")

	assert.Equal(t, []string{"A"}, a.Get(multi.Question))
	assert.Equal(t, []string{"A", "B"}, b.Get(multi.Question))
	assert.Empty(t, s.Map())
}

func TestDialog_Submit(t *testing.T) {
	t.Parallel()

	var got map[string][]string
	cancelled := false
	d := NewDialog(types.UserQuestions{Questions: []types.Question{multi, single}},
		func(m map[string][]string) { got = m },
		func() { cancelled = true })

	d.Toggle(0, 0)
	d.Toggle(0, 1)
	d.Toggle(0, 0)
	d.Toggle(1, 1)
	d.Toggle(5, 0)
	d.Toggle(1, 9)

	require.NoError(t, d.Submit())
	assert.Equal(t, map[string][]string{
		multi.Question:  {"B"},
		single.Question: {"agent"},
	}, got)
	assert.False(t, cancelled)
	assert.True(t, d.Closed())

	assert.ErrorIs(t, d.Submit(), ErrClosed)
	assert.ErrorIs(t, d.Cancel(), ErrClosed)
	assert.False(t, cancelled)
}

func TestDialog_CancelDiscards(t *testing.T) {
	t.Parallel()

	submitted := false
	cancelled := false
	d := NewDialog(types.UserQuestions{Questions: []types.Question{multi}},
		func(map[string][]string) { submitted = true },
		func() { cancelled = true })

	d.Toggle(0, 0)
	require.NoError(t, d.Cancel())

	assert.True(t, cancelled)
	assert.False(t, submitted)
	assert.Empty(t, d.Selections().Map())

	// toggles after close are ignored
	d.Toggle(0, 1)
	assert.Empty(t, d.Selections().Map())
}

func TestDialog_Labels(t *testing.T) {
	t.Parallel()

	d := NewDialog(types.UserQuestions{}, nil, nil)
	assert.Equal(t, "Submit", d.SubmitLabel())
	assert.Equal(t, "Cancel", d.CancelLabel())

	d = NewDialog(types.UserQuestions{SubmitLabel: "Go", CancelLabel: "Stop"}, nil, nil)
	assert.Equal(t, "Go", d.SubmitLabel())
	assert.Equal(t, "Stop", d.CancelLabel())
	require.NoError(t, d.Submit())
}
