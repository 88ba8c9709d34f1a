package sessions

import (
	"sort"
	"sync"
)

// Registry keeps panels alive across connections so a reconnecting client
// finds its message list again.
type Registry struct {
	mu     sync.Mutex
	panels map[string]*Panel
	cfg    PanelConfig
}

func NewRegistry(cfg PanelConfig) *Registry {
	return &Registry{panels: make(map[string]*Panel), cfg: cfg}
}

func (r *Registry) Get(id string) (*Panel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panels[id]
	return p, ok
}

// GetOrCreate returns the panel with id, creating it on first use.
func (r *Registry) GetOrCreate(id string) (*Panel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.panels[id]; ok {
		return p, nil
	}
	p, err := NewPanel(id, r.cfg)
	if err != nil {
		return nil, err
	}
	r.panels[id] = p
	return p, nil
}

// Remove closes and forgets a panel.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	p, ok := r.panels[id]
	delete(r.panels, id)
	r.mu.Unlock()
	if ok {
		p.Close()
	}
}

func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.panels))
	for id := range r.panels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every panel.
func (r *Registry) Close() {
	r.mu.Lock()
	panels := r.panels
	r.panels = make(map[string]*Panel)
	r.mu.Unlock()
	for _, p := range panels {
		p.Close()
	}
}
