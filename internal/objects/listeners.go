package objects

import (
	"strings"
	"sync"
)

// StateListener receives state changes for subscribed ids.
//
// Listeners are used as map keys, so implementations must be comparable
// (pointer receivers are the usual choice).
type StateListener interface {
	OnStateChange(id string, state *State)
}

// ObjectListener receives object changes for subscribed ids. obj is nil
// when the object was deleted.
type ObjectListener interface {
	OnObjectChange(id string, obj *Object)
}

// subscriptions maps id patterns to listener sets. A pattern is either an
// exact id or a prefix ending in "*"; "*" alone matches everything.
type subscriptions[L comparable] struct {
	mu       sync.RWMutex
	exact    map[string]map[L]struct{}
	prefixes map[string]map[L]struct{}
}

func newSubscriptions[L comparable]() *subscriptions[L] {
	return &subscriptions[L]{
		exact:    make(map[string]map[L]struct{}),
		prefixes: make(map[string]map[L]struct{}),
	}
}

func (s *subscriptions[L]) bucket(pattern string) (map[string]map[L]struct{}, string) {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return s.prefixes, prefix
	}
	return s.exact, pattern
}

// add registers l for every pattern. Returns the number of new registrations.
func (s *subscriptions[L]) add(l L, patterns ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, p := range patterns {
		m, key := s.bucket(p)
		set, ok := m[key]
		if !ok {
			set = make(map[L]struct{})
			m[key] = set
		}
		if _, exists := set[l]; !exists {
			set[l] = struct{}{}
			added++
		}
	}
	return added
}

// remove unregisters l from every pattern. Returns the number removed.
func (s *subscriptions[L]) remove(l L, patterns ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, p := range patterns {
		m, key := s.bucket(p)
		set, ok := m[key]
		if !ok {
			continue
		}
		if _, exists := set[l]; exists {
			delete(set, l)
			removed++
		}
		if len(set) == 0 {
			delete(m, key)
		}
	}
	return removed
}

// match returns the listeners interested in id, each once.
func (s *subscriptions[L]) match(id string) []L {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[L]struct{})
	var out []L
	collect := func(set map[L]struct{}) {
		for l := range set {
			if _, dup := seen[l]; !dup {
				seen[l] = struct{}{}
				out = append(out, l)
			}
		}
	}

	collect(s.exact[id])
	for prefix, set := range s.prefixes {
		if strings.HasPrefix(id, prefix) {
			collect(set)
		}
	}
	return out
}

// count returns the number of registered patterns.
func (s *subscriptions[L]) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.exact) + len(s.prefixes)
}
