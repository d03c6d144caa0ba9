// Package keyonlylocks provides non-blocking locks that are nothing but keys.
// A holder either gets every key it asks for or none of them.
package keyonlylocks

import (
	"slices"
	"sync"
)

// Set is a set of held keys. The zero value is ready to use.
type Set struct {
	m sync.Map // key -> struct{}
}

// TryAcquire takes all keys at once or none of them.
// Duplicate keys count once. release is nil when ok is false.
// Wrap release in a deferred call so a panic still frees the keys.
func (s *Set) TryAcquire(keys ...string) (release func(), ok bool) {
	keys = slices.Compact(slices.Sorted(slices.Values(keys)))
	acquired := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, loaded := s.m.LoadOrStore(key, struct{}{}); loaded {
			// rollback previously acquired keys
			s.releaseAll(acquired)
			return nil, false
		}
		acquired = append(acquired, key)
	}
	var once sync.Once
	return func() { once.Do(func() { s.releaseAll(acquired) }) }, true
}

func (s *Set) releaseAll(keys []string) {
	for _, key := range keys {
		s.m.Delete(key)
	}
}

// Held reports whether key is currently acquired
func (s *Set) Held(key string) bool {
	_, ok := s.m.Load(key)
	return ok
}

// Keys returns the held keys, sorted
func (s *Set) Keys() []string {
	var keys []string
	s.m.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	slices.Sort(keys)
	return keys
}
