// Package settings provides the boolean feature flags the assistant checks
// before doing any work.
package settings

import "sync"

const (
	KeyAssistantEnabled  = "assistant.enabled"
	KeyInlineSuggestions = "assistant.inline_suggestions"
)

// Settings reports boolean flags by key. Unknown keys read as false.
type Settings interface {
	Bool(key string) bool
}

// Lookup is implemented by sources that can tell an unset key from a false one.
type Lookup interface {
	Lookup(key string) (value bool, ok bool)
}

// Defaults returns the flag values used when nothing else is configured.
func Defaults() map[string]bool {
	return map[string]bool{
		KeyAssistantEnabled:  true,
		KeyInlineSuggestions: true,
	}
}

// Static is a mutable in-memory flag set, safe for concurrent use.
type Static struct {
	mu    sync.RWMutex
	flags map[string]bool
}

func NewStatic(flags map[string]bool) *Static {
	s := &Static{flags: make(map[string]bool, len(flags))}
	for k, v := range flags {
		s.flags[k] = v
	}
	return s
}

func (s *Static) Set(key string, value bool) {
	s.mu.Lock()
	s.flags[key] = value
	s.mu.Unlock()
}

func (s *Static) Lookup(key string) (bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.flags[key]
	return v, ok
}

func (s *Static) Bool(key string) bool {
	v, _ := s.Lookup(key)
	return v
}

// Snapshot copies the current flags.
func (s *Static) Snapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

// Layered reads from the first layer that knows a key. Layers that do not
// implement Lookup are treated as authoritative for every key.
type Layered []Settings

func (l Layered) Lookup(key string) (bool, bool) {
	for _, layer := range l {
		if layer == nil {
			continue
		}
		if lk, ok := layer.(Lookup); ok {
			if v, found := lk.Lookup(key); found {
				return v, true
			}
			continue
		}
		return layer.Bool(key), true
	}
	return false, false
}

func (l Layered) Bool(key string) bool {
	v, _ := l.Lookup(key)
	return v
}
