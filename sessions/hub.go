package sessions

import (
	"log"
	"sync"

	"github.com/Desarso/ideassist/assist"
)

// viewHub fans panel updates out to every attached client. It is the
// assist.View of a panel.
type viewHub struct {
	mu      sync.RWMutex
	writers map[EventWriter]struct{}
	logger  *log.Logger
}

func newViewHub(logger *log.Logger) *viewHub {
	return &viewHub{writers: make(map[EventWriter]struct{}), logger: logger}
}

func (h *viewHub) attach(w EventWriter) {
	h.mu.Lock()
	h.writers[w] = struct{}{}
	h.mu.Unlock()
}

func (h *viewHub) detach(w EventWriter) {
	h.mu.Lock()
	delete(h.writers, w)
	h.mu.Unlock()
}

func (h *viewHub) broadcast(ev ServerEvent) {
	h.mu.RLock()
	writers := make([]EventWriter, 0, len(h.writers))
	for w := range h.writers {
		writers = append(writers, w)
	}
	h.mu.RUnlock()

	for _, w := range writers {
		if err := w.WriteEvent(ev); err != nil {
			h.logger.Printf("Error writing %s event: %v", ev.Type, err)
		}
	}
}

func (h *viewHub) SetInputEnabled(enabled bool) {
	h.broadcast(ServerEvent{Type: EventInputState, Enabled: &enabled})
}

func (h *viewHub) MessageAppended(m assist.Message) {
	h.broadcast(ServerEvent{Type: EventMessageAppended, Message: &m})
}

func (h *viewHub) MessageUpdated(m assist.Message) {
	h.broadcast(ServerEvent{Type: EventMessageUpdated, Message: &m})
}

func (h *viewHub) ScrollToLatest() {
	h.broadcast(ServerEvent{Type: EventScroll})
}

func (h *viewHub) FocusInput() {
	h.broadcast(ServerEvent{Type: EventFocus})
}

func (h *viewHub) analysis(a assist.Analysis) {
	h.broadcast(ServerEvent{Type: EventAnalysis, Analysis: &a})
}
