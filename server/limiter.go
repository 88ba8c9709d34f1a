package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// panelLimiter keeps one token bucket per panel.
type panelLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newPanelLimiter(limit rate.Limit, burst int) *panelLimiter {
	return &panelLimiter{limit: limit, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

func (l *panelLimiter) Allow(panelID string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[panelID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[panelID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

func (l *panelLimiter) Forget(panelID string) {
	l.mu.Lock()
	delete(l.limiters, panelID)
	l.mu.Unlock()
}
