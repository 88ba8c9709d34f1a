// Package auth holds the sign-in collaborator the assistant consults before
// issuing inline suggestion requests.
package auth

import (
	"strings"
	"sync"
)

// User is the signed-in identity.
type User struct {
	Username string `json:"username"`
}

// Gate answers whether a user is signed in.
type Gate interface {
	IsSignedIn() bool
	GetUser() (User, bool)
}

// Session is an in-memory Gate for one connected client.
type Session struct {
	mu   sync.RWMutex
	user *User
}

func NewSession() *Session {
	return &Session{}
}

// SignIn records username as the current user. Blank names are ignored and
// report false.
func (s *Session) SignIn(username string) bool {
	username = strings.TrimSpace(username)
	if username == "" {
		return false
	}
	s.mu.Lock()
	s.user = &User{Username: username}
	s.mu.Unlock()
	return true
}

func (s *Session) SignOut() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

func (s *Session) IsSignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Session) GetUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Always is a Gate that reports a fixed answer, for bindings without sign-in.
type Always bool

func (a Always) IsSignedIn() bool { return bool(a) }

func (a Always) GetUser() (User, bool) {
	if a {
		return User{Username: "local"}, true
	}
	return User{}, false
}
