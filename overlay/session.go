package overlay

import (
	"sync"

	"product-detector/internal/cache"
)

// Session is one browsing session: the panel can be dismissed for the rest
// of it, and lookups share its cache.
type Session struct {
	mu        sync.RWMutex
	dismissed bool
	cache     *cache.Cache
}

// NewSession creates a session owning c
func NewSession(c *cache.Cache) *Session {
	return &Session{cache: c}
}

// Dismiss hides the panel for the rest of the session
func (s *Session) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissed = true
}

// Dismissed reports whether the panel was closed
func (s *Session) Dismissed() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dismissed
}

// Cache returns the session cache
func (s *Session) Cache() *cache.Cache {
	return s.cache
}

// Close releases the cache
func (s *Session) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}
