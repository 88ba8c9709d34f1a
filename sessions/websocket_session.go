package sessions

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Desarso/ideassist/assist"
	"github.com/Desarso/ideassist/editor"
	"github.com/gorilla/websocket"
)

// Run attaches the connection to its panel and serves client events until
// the connection closes, ctx ends or a fatal error occurs.
func (ps *PanelSession) Run(ctx context.Context) error {
	detach := ps.Panel.Attach(ps.Writer)
	defer detach()

	// in-flight requests are cancelled before waiting on them
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := ps.replay(); err != nil {
		return err
	}

	for {
		var ev ClientEvent
		if err := ps.Conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ps.Logger.Printf("WebSocket error: %v", err)
			}
			return nil
		}

		if err := ps.HandleEvent(ctx, &wg, ev); err != nil {
			var sessErr *SessionError
			if errors.As(err, &sessErr) && sessErr.Fatal {
				ps.Logger.Printf("Fatal error: %v", err)
				return err
			}
			ps.Logger.Printf("Non-fatal error: %v", err)
		}
	}
}

// replay sends the existing message list so a reconnecting client can rebuild
// its panel.
func (ps *PanelSession) replay() error {
	for _, m := range ps.Panel.Chat.Messages() {
		m := m
		if err := ps.Writer.WriteEvent(ServerEvent{Type: EventMessageAppended, Message: &m}); err != nil {
			return &SessionError{Message: "Error writing message history", Fatal: true}
		}
	}
	enabled := ps.Panel.Chat.State() == assist.Idle
	if err := ps.Writer.WriteEvent(ServerEvent{Type: EventInputState, Enabled: &enabled}); err != nil {
		return &SessionError{Message: "Error writing input state", Fatal: true}
	}
	if user, ok := ps.Panel.Auth.GetUser(); ok {
		return ps.write(ServerEvent{Type: EventUser, User: &user})
	}
	return nil
}

// HandleEvent dispatches one client event. Long-running requests run on
// their own goroutine tracked by wg so reading continues meanwhile.
func (ps *PanelSession) HandleEvent(ctx context.Context, wg *sync.WaitGroup, ev ClientEvent) error {
	p := ps.Panel
	switch ev.Type {
	case EventSubmit:
		if strings.TrimSpace(ev.Text) == "" {
			return nil
		}
		// Busy and disabled are answered here, in order with other events.
		// The editor is captured now so later content events do not leak
		// into this request.
		if err := p.Chat.Check(); err != nil {
			return ps.sendError(submitErrorText(err), false)
		}
		snap := p.Chat.Snapshot()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Chat.SubmitSnapshot(ctx, snap, ev.Text); err != nil {
				ps.sendError(submitErrorText(err), false)
			}
		}()
		return nil

	case EventContent:
		p.UpdateEditor(ev.Value, ev.Selection)
		return nil

	case EventCursor:
		sel := ev.Selection
		if sel == nil && ev.Cursor != nil {
			sel = &editor.Range{Start: *ev.Cursor, End: *ev.Cursor}
		}
		if sel == nil {
			return ps.sendError("cursor event needs a cursor or selection", false)
		}
		p.UpdateEditor(nil, sel)
		p.Suggest.CursorMoved(sel.End)
		p.Suggest.Schedule(editor.Take(p.Buffer), func(s assist.InlineSuggestion) {
			ps.write(ServerEvent{Type: EventSuggestion, Suggestion: &s})
		})
		return nil

	case EventSettings:
		if ev.Enabled == nil {
			return ps.sendError("settings event needs enabled", false)
		}
		if err := p.SetFlag(ev.Key, *ev.Enabled); err != nil {
			return ps.sendError(err.Error(), false)
		}
		return nil

	case EventSignIn:
		if !p.SignIn(ev.Username) {
			return ps.sendError("username required", false)
		}
		user, _ := p.Auth.GetUser()
		return ps.write(ServerEvent{Type: EventUser, User: &user})

	case EventSignOut:
		p.SignOut()
		return ps.write(ServerEvent{Type: EventUser})

	case EventExplain:
		snap := p.Chat.Snapshot()
		wg.Add(1)
		go func() {
			defer wg.Done()
			exp, err := p.Chat.ExplainSnapshot(ctx, snap)
			if err != nil {
				ps.sendError(explainErrorText(err), false)
				return
			}
			ps.write(ServerEvent{Type: EventExplanation, Explanation: &exp})
		}()
		return nil

	case EventFix:
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Chat.SuggestFix(ctx, ev.Error); err != nil {
				ps.sendError(submitErrorText(err), false)
			}
		}()
		return nil

	case EventModel:
		p.SetModel(ev.Model)
		return nil
	}
	return ps.sendError("unknown event type: "+ev.Type, false)
}

func submitErrorText(err error) string {
	switch {
	case errors.Is(err, assist.ErrBusy):
		return "A request is already in progress"
	case errors.Is(err, assist.ErrAssistantDisabled):
		return "The assistant is disabled"
	}
	return "Request failed"
}

func explainErrorText(err error) string {
	switch {
	case errors.Is(err, assist.ErrNoSelection):
		return "Select some code to explain"
	case errors.Is(err, assist.ErrAssistantDisabled):
		return "The assistant is disabled"
	}
	return assist.FailureText
}

func (ps *PanelSession) write(ev ServerEvent) error {
	if err := ps.Writer.WriteEvent(ev); err != nil {
		ps.Logger.Printf("Error writing %s event: %v", ev.Type, err)
		return &SessionError{Message: "Error writing event", Fatal: true}
	}
	return nil
}

// sendError sends an error event and returns a SessionError
func (ps *PanelSession) sendError(message string, fatal bool) error {
	ps.Logger.Printf("Error: %s (fatal: %v)", message, fatal)
	if err := ps.Writer.WriteError(message); err != nil {
		return &SessionError{Message: "Error writing event", Fatal: true}
	}
	return &SessionError{Message: message, Fatal: fatal}
}
