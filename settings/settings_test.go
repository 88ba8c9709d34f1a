package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStaticUnknownKeyIsFalse(t *testing.T) {
	s := NewStatic(nil)
	if s.Bool("missing") {
		t.Error("unknown key should read false")
	}
	s.Set(KeyAssistantEnabled, true)
	if !s.Bool(KeyAssistantEnabled) {
		t.Error("expected flag to be set")
	}
}

func TestStaticCopiesInput(t *testing.T) {
	in := map[string]bool{KeyAssistantEnabled: true}
	s := NewStatic(in)
	in[KeyAssistantEnabled] = false
	if !s.Bool(KeyAssistantEnabled) {
		t.Error("static settings should not alias the input map")
	}
}

func TestLayeredFirstKnownWins(t *testing.T) {
	override := NewStatic(map[string]bool{KeyInlineSuggestions: false})
	base := NewStatic(Defaults())
	l := Layered{override, base}

	if l.Bool(KeyInlineSuggestions) {
		t.Error("override layer should win")
	}
	if !l.Bool(KeyAssistantEnabled) {
		t.Error("base layer should supply unset keys")
	}
	if _, ok := l.Lookup("nope"); ok {
		t.Error("unknown key should not be found")
	}
}

func TestLoadDefaultsAndFile(t *testing.T) {
	v, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !NewViper(v).Bool(KeyAssistantEnabled) {
		t.Error("expected default assistant.enabled=true")
	}

	path := filepath.Join(t.TempDir(), "ideassist.yaml")
	if err := os.WriteFile(path, []byte("assistant:\n  inline_suggestions: false\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	v, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s := NewViper(v)
	if s.Bool(KeyInlineSuggestions) {
		t.Error("expected file to disable inline suggestions")
	}
	if !s.Bool(KeyAssistantEnabled) {
		t.Error("expected default to survive")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing file should not be an error: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("IDEASSIST_ASSISTANT_ENABLED", "false")
	v, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if NewViper(v).Bool(KeyAssistantEnabled) {
		t.Error("env should override the default")
	}
}
