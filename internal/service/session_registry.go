package service

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/flare-risk-server/internal/domain"
)

// DefaultMaxSessions bounds the number of live sessions held in memory.
const DefaultMaxSessions = 1024

// SessionRegistry maps session ids to their rolling logs. The least recently
// used session is dropped once the registry is full.
type SessionRegistry struct {
	mu     sync.Mutex
	window int
	cache  *lru.Cache[string, *RollingLog]
}

// NewSessionRegistry creates a registry holding up to maxSessions logs of
// window records each. A non-positive window selects DefaultWindow.
func NewSessionRegistry(maxSessions, window int) (*SessionRegistry, error) {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if window > domain.RollingLogLimit {
		return nil, fmt.Errorf("session window %d exceeds the %d-record limit", window, domain.RollingLogLimit)
	}
	cache, err := lru.NewWithEvict[string, *RollingLog](maxSessions, func(_ string, log *RollingLog) {
		log.Close()
	})
	if err != nil {
		return nil, err
	}
	return &SessionRegistry{window: window, cache: cache}, nil
}

// Log returns the rolling log for id, creating it on first use.
func (r *SessionRegistry) Log(id string) *RollingLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log, ok := r.cache.Get(id); ok {
		return log
	}
	log := NewRollingLog(r.window)
	r.cache.Add(id, log)
	return log
}

// Lookup returns the rolling log for id without creating one.
func (r *SessionRegistry) Lookup(id string) (*RollingLog, bool) {
	return r.cache.Get(id)
}

// Remove drops a session and ends its subscriptions.
func (r *SessionRegistry) Remove(id string) {
	r.cache.Remove(id)
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	return r.cache.Len()
}
