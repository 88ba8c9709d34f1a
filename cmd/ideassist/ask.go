package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/Desarso/ideassist/assist"
	"github.com/Desarso/ideassist/editor"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// terminalView prints finished panel messages to a terminal. Assistant
// replies are rendered with glamour; raw text is printed if that fails.
type terminalView struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

func newTerminalView(out io.Writer) *terminalView {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		r = nil
	}
	return &terminalView{out: out, renderer: r}
}

func (v *terminalView) markdown(md string) string {
	if v.renderer == nil {
		return md + "\n"
	}
	out, err := v.renderer.Render(md)
	if err != nil {
		return md + "\n"
	}
	return out
}

func (v *terminalView) SetInputEnabled(bool) {}
func (v *terminalView) ScrollToLatest()      {}
func (v *terminalView) FocusInput()          {}

func (v *terminalView) MessageAppended(m assist.Message) {
	if m.Loading {
		fmt.Fprintln(v.out, "...")
	}
}

func (v *terminalView) MessageUpdated(m assist.Message) {
	if m.Role == assist.RoleError {
		fmt.Fprintln(v.out, m.Content)
		return
	}
	fmt.Fprint(v.out, v.markdown(m.Content))
}

// readSource returns the contents of path, or stdin for "-".
func readSource(path string) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

// newTerminalChat builds an orchestrator over an editor holding code, with
// view as its UI.
func newTerminalChat(cmd *cobra.Command, code string, view assist.View) (*assist.Orchestrator, *editor.Buffer, error) {
	v, err := loadViper(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := v.BindPFlag("model.provider", cmd.Flags().Lookup("provider")); err != nil {
		return nil, nil, err
	}
	if err := v.BindPFlag("model.name", cmd.Flags().Lookup("model")); err != nil {
		return nil, nil, err
	}

	cfg, err := assistConfig(v).PanelConfig()
	if err != nil {
		return nil, nil, err
	}
	buf := editor.NewBuffer(code)
	chat, err := assist.NewOrchestrator(assist.Deps{
		PanelID:  "terminal",
		Editor:   buf,
		Settings: cfg.Settings,
		Model:    cfg.Model,
		View:     view,
		Logger:   log.New(os.Stderr, "[ask] ", log.LstdFlags),
	}, cfg.Chat)
	if err != nil {
		return nil, nil, err
	}
	return chat, buf, nil
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "openrouter", "model provider")
	cmd.Flags().String("model", "", "model identifier")
	cmd.Flags().StringP("file", "f", "", "source file to include as editor content (- for stdin)")
}

func newAskCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the assistant about a source file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			code, err := readSource(path)
			if err != nil {
				return err
			}
			chat, _, err := newTerminalChat(cmd, code, newTerminalView(cmd.OutOrStdout()))
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			if fix {
				err = chat.SuggestFix(cmd.Context(), text)
			} else {
				err = chat.Submit(cmd.Context(), text)
			}
			if err != nil {
				return err
			}
			msgs := chat.Messages()
			if len(msgs) > 0 && msgs[len(msgs)-1].Role == assist.RoleError {
				return errors.New("request failed")
			}
			return nil
		},
	}
	addModelFlags(cmd)
	cmd.Flags().BoolVar(&fix, "fix", false, "treat the argument as a compiler error and ask for a fix")
	return cmd
}

// parseLines parses "start:end" or "n" into a whole-line selection.
func parseLines(s string) (editor.Range, error) {
	startStr, endStr, found := strings.Cut(s, ":")
	if !found {
		endStr = startStr
	}
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return editor.Range{}, fmt.Errorf("invalid line range %q", s)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil || start < 1 || end < start {
		return editor.Range{}, fmt.Errorf("invalid line range %q", s)
	}
	return editor.Range{
		Start: editor.Position{Line: start, Column: 1},
		End:   editor.Position{Line: end + 1, Column: 1},
	}, nil
}

func newExplainCmd() *cobra.Command {
	var lines string
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Explain a range of lines of a source file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			code, err := readSource(path)
			if err != nil {
				return err
			}
			sel, err := parseLines(lines)
			if err != nil {
				return err
			}
			view := newTerminalView(cmd.OutOrStdout())
			chat, buf, err := newTerminalChat(cmd, code, view)
			if err != nil {
				return err
			}

			buf.SetSelection(sel)
			exp, err := chat.ExplainSelection(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), view.markdown(exp.Text))
			return nil
		},
	}
	addModelFlags(cmd)
	cmd.Flags().StringVarP(&lines, "lines", "l", "1", "line or start:end range to explain")
	return cmd
}
