package labels

import (
	"context"
	"errors"
	"testing"

	"github.com/steveyegge/labeler/internal/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	text   string
	err    error
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

func TestParseEndToEnd(t *testing.T) {
	tax := taxonomy.Default()

	got, err := Parse("Below is an instruction...\n### Response:\n`bug, c-CLI`", tax)
	require.NoError(t, err)
	assert.Equal(t, []string{"bug", "c-CLI"}, got)

	got, err = Parse("the model answered without the template: `bug`", tax)
	assert.ErrorIs(t, err, ErrSectionNotFound)
	assert.Empty(t, got)

	got, err = Parse("### Response: I cannot decide.", tax)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLabelerLabel(t *testing.T) {
	stub := &stubCompleter{text: "### Response:\n`BUG`, `documentation, novel`"}
	l := NewLabeler(stub, taxonomy.Default(), nil)

	got, err := l.Label(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "the prompt", stub.prompt)
	assert.Equal(t, []string{"bug", "documentation", "novel"}, got)
}

func TestLabelerPropagatesCompletionError(t *testing.T) {
	boom := errors.New("boom")
	l := NewLabeler(&stubCompleter{err: boom}, taxonomy.Default(), nil)

	_, err := l.Label(context.Background(), "p")
	assert.ErrorIs(t, err, boom)
}

func TestLabelerSectionNotFound(t *testing.T) {
	l := NewLabeler(&stubCompleter{text: "no marker"}, taxonomy.Default(), nil)

	got, err := l.Label(context.Background(), "p")
	assert.ErrorIs(t, err, ErrSectionNotFound)
	assert.Nil(t, got)
}
