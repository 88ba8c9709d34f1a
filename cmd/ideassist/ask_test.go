package main

import (
	"bytes"
	"testing"

	"github.com/Desarso/ideassist/assist"
	"github.com/Desarso/ideassist/editor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLines(t *testing.T) {
	r, err := parseLines("3:5")
	require.NoError(t, err)
	assert.Equal(t, editor.Range{Start: editor.Position{Line: 3, Column: 1}, End: editor.Position{Line: 6, Column: 1}}, r)

	r, err = parseLines("2")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Start.Line)
	assert.Equal(t, 3, r.End.Line)

	for _, bad := range []string{"", "x", "5:3", "0:1", "1:y"} {
		_, err := parseLines(bad)
		assert.Error(t, err, bad)
	}
}

func TestTerminalViewPrintsErrorsVerbatim(t *testing.T) {
	var out bytes.Buffer
	v := newTerminalView(&out)
	v.MessageUpdated(assist.Message{Role: assist.RoleError, Content: assist.FailureText})
	assert.Equal(t, assist.FailureText+"\n", out.String())
}

func TestTerminalViewRendersReplies(t *testing.T) {
	var out bytes.Buffer
	v := newTerminalView(&out)
	v.MessageUpdated(assist.Message{Role: assist.RoleAssistant, Content: "use `fmt.Println`"})
	assert.Contains(t, out.String(), "fmt.Println")
}
