// Package ordset implements a capped, insertion-ordered string set with
// case-insensitive identity. When the cap is exceeded the oldest entry is
// evicted first.
package ordset

import (
	"math"
	"strings"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Set is backed by an LRU list that is only ever appended to: lookups use
// Contains and Peek, which leave the order untouched, so recency equals
// insertion order. Keys are lower-cased; values keep the first spelling.
type Set struct {
	limit int
	cache *simplelru.LRU[string, string]
}

// New returns an empty set holding at most limit values. A limit ≤ 0 means
// unbounded.
func New(limit int) *Set {
	s := &Set{limit: limit}
	s.Reset()
	return s
}

func key(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Add inserts v unless an equal value (ignoring case) is already present. The
// first spelling seen is kept. It reports whether v was inserted.
func (s *Set) Add(v string) bool {
	k := key(v)
	if k == "" || s.cache.Contains(k) {
		return false
	}
	s.cache.Add(k, strings.TrimSpace(v))
	return true
}

func (s *Set) AddAll(vs ...string) {
	for _, v := range vs {
		s.Add(v)
	}
}

func (s *Set) Contains(v string) bool {
	return s.cache.Contains(key(v))
}

func (s *Set) Len() int { return s.cache.Len() }

func (s *Set) Limit() int { return s.limit }

// Values returns the members oldest first. The slice is a copy.
func (s *Set) Values() []string {
	keys := s.cache.Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.cache.Peek(k); ok {
			out = append(out, v)
		}
	}
	return out
}

func (s *Set) Clone() *Set {
	c := New(s.limit)
	c.AddAll(s.Values()...)
	return c
}

func (s *Set) Reset() {
	size := s.limit
	if size <= 0 {
		size = math.MaxInt
	}
	// NewLRU only fails for a non-positive size.
	cache, _ := simplelru.NewLRU[string, string](size, nil)
	s.cache = cache
}
