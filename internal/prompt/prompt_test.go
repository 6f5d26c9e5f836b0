package prompt

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPrompter(input string) (*Prompter, *strings.Builder) {
	out := &strings.Builder{}
	return New(strings.NewReader(input), out), out
}

func TestLine(t *testing.T) {
	p, out := newPrompter("  hello \nlast")

	got, err := p.Line("Name: ")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "Name: ", out.String())

	got, err = p.Line("Again: ")
	require.NoError(t, err)
	assert.Equal(t, "last", got)

	_, err = p.Line("Gone: ")
	assert.ErrorIs(t, err, io.EOF)
}

func TestSecretWithoutTerminal(t *testing.T) {
	p, _ := newPrompter("s3cret\n")
	got, err := p.Secret("Secret: ")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
}

func TestConfirm(t *testing.T) {
	p, _ := newPrompter("Y\nn\nmaybe\n")

	ok, err := p.Confirm("Proceed?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Confirm("Proceed?")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Confirm("Proceed?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectOneRetries(t *testing.T) {
	p, out := newPrompter("abc\n9\n2\n")

	idx, err := p.SelectOne("Select company number: ", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Contains(t, out.String(), "Please enter a number")
	assert.Contains(t, out.String(), "Invalid selection")
}

func TestSelectOneEOF(t *testing.T) {
	p, _ := newPrompter("")
	_, err := p.SelectOne("Select: ", 3)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSelectMany(t *testing.T) {
	p, out := newPrompter("7-9\n1,3-4\n")

	indices, err := p.SelectMany("Select project(s): ", 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, indices)
	assert.Contains(t, out.String(), "Invalid selection")
}
