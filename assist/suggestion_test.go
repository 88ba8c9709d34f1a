package assist

import (
	"context"
	"testing"
	"time"

	"github.com/Desarso/ideassist/auth"
	"github.com/Desarso/ideassist/editor"
	"github.com/Desarso/ideassist/models"
	"github.com/Desarso/ideassist/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, model *fakeModel, gate auth.Gate, flags settings.Settings, debounce time.Duration) *SuggestionProvider {
	t.Helper()
	cfg := DefaultSuggestionConfig()
	cfg.Debounce = debounce
	p, err := NewSuggestionProvider(SuggestionDeps{
		PanelID:  "panel-1",
		Auth:     gate,
		Settings: flags,
		Model:    model,
		Logger:   quietLogger(),
	}, cfg)
	require.NoError(t, err)
	return p
}

func snapshotAt(text string, cursor editor.Position) editor.Snapshot {
	buf := editor.NewBuffer(text)
	buf.SetCursor(cursor)
	return editor.Take(buf)
}

func TestProvideCompletion(t *testing.T) {
	model := &fakeModel{resp: models.TextResponse("```c\nreturn 0;\n```")}
	p := newProvider(t, model, auth.Always(true), settings.NewStatic(settings.Defaults()), 0)

	cursor := editor.Position{Line: 2, Column: 5}
	snap := snapshotAt("int main() {\n    \n}\n", cursor)

	s, ok := p.ProvideCompletion(context.Background(), snap)
	require.True(t, ok)
	assert.Equal(t, "return 0;", s.InsertText)
	assert.Equal(t, editor.Range{Start: cursor, End: cursor}, s.Range)

	req := model.last()
	assert.Contains(t, req.Messages[0].Content, "### Code Before Cursor:\nint main() {\n    \n")
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 150, *req.MaxTokens)
}

func TestProvideCompletionGatesMakeNoCalls(t *testing.T) {
	cases := []struct {
		name  string
		gate  auth.Gate
		flags map[string]bool
	}{
		{"signed out", auth.Always(false), settings.Defaults()},
		{"inline off", auth.Always(true), map[string]bool{settings.KeyAssistantEnabled: true}},
		{"assistant off", auth.Always(true), map[string]bool{settings.KeyInlineSuggestions: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := &fakeModel{resp: models.TextResponse("x")}
			p := newProvider(t, model, tc.gate, settings.NewStatic(tc.flags), 0)
			snap := snapshotAt("a", editor.Position{Line: 1, Column: 2})

			_, ok := p.ProvideCompletion(context.Background(), snap)
			assert.False(t, ok)

			delivered := make(chan InlineSuggestion, 1)
			p.Schedule(snap, func(s InlineSuggestion) { delivered <- s })
			time.Sleep(20 * time.Millisecond)

			assert.Equal(t, 0, model.count())
			assert.Empty(t, delivered)
		})
	}
}

func TestProvideCompletionDroppedWhenCursorMoves(t *testing.T) {
	model := &fakeModel{
		resp:    models.TextResponse("late"),
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	p := newProvider(t, model, auth.Always(true), settings.NewStatic(settings.Defaults()), 0)
	snap := snapshotAt("abc", editor.Position{Line: 1, Column: 4})

	result := make(chan bool, 1)
	go func() {
		_, ok := p.ProvideCompletion(context.Background(), snap)
		result <- ok
	}()
	<-model.started
	p.CursorMoved(editor.Position{Line: 1, Column: 1})
	close(model.block)

	assert.False(t, <-result)
}

func TestProvideCompletionWaitsForDebounce(t *testing.T) {
	model := &fakeModel{resp: models.TextResponse("x")}
	p := newProvider(t, model, auth.Always(true), settings.NewStatic(settings.Defaults()), time.Hour)

	p.CursorMoved(editor.Position{Line: 1, Column: 1})
	_, ok := p.ProvideCompletion(context.Background(), snapshotAt("a", editor.Position{Line: 1, Column: 1}))
	assert.False(t, ok)
	assert.Equal(t, 0, model.count())
}

func TestProvideCompletionEmptyReply(t *testing.T) {
	model := &fakeModel{resp: models.TextResponse("  \n ")}
	p := newProvider(t, model, auth.Always(true), settings.NewStatic(settings.Defaults()), 0)

	_, ok := p.ProvideCompletion(context.Background(), snapshotAt("a", editor.Position{Line: 1, Column: 2}))
	assert.False(t, ok)
	assert.Equal(t, 1, model.count())
}

func TestScheduleDeliversCurrentResult(t *testing.T) {
	model := &fakeModel{resp: models.TextResponse("done()")}
	p := newProvider(t, model, auth.Always(true), settings.NewStatic(settings.Defaults()), 10*time.Millisecond)

	delivered := make(chan InlineSuggestion, 2)
	deliver := func(s InlineSuggestion) { delivered <- s }

	p.Schedule(snapshotAt("x", editor.Position{Line: 1, Column: 1}), deliver)
	p.Schedule(snapshotAt("xy", editor.Position{Line: 1, Column: 3}), deliver)

	select {
	case s := <-delivered:
		assert.Equal(t, "done()", s.InsertText)
		assert.Equal(t, editor.Position{Line: 1, Column: 3}, s.Range.Start)
	case <-time.After(time.Second):
		t.Fatal("suggestion was not delivered")
	}
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, model.count(), "the superseded schedule must not fire")
}

func TestScheduleCancelledByCursorMove(t *testing.T) {
	model := &fakeModel{resp: models.TextResponse("x")}
	p := newProvider(t, model, auth.Always(true), settings.NewStatic(settings.Defaults()), 20*time.Millisecond)

	delivered := make(chan InlineSuggestion, 1)
	p.Schedule(snapshotAt("a", editor.Position{Line: 1, Column: 2}), func(s InlineSuggestion) { delivered <- s })
	p.CursorMoved(editor.Position{Line: 1, Column: 1})

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, delivered)
	assert.Equal(t, 0, model.count())
}
