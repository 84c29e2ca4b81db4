package domain

import (
	"regexp"
	"strings"
	"sync"
)

// Matcher decides whether a tracked nickname is mentioned in a piece of
// text. Matching is case-insensitive and word-boundary-delimited, with an
// optional leading @ in the text, so both "name" and "@name" count as a hit
// while "username2" does not match "name".
//
// Go's \b assertion is ASCII-only, so boundaries are expressed with
// explicit letter/digit/underscore classes to keep non-Latin nicknames
// working.
type Matcher struct {
	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

// NewMatcher creates a Matcher with an empty pattern cache.
func NewMatcher() *Matcher {
	return &Matcher{
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Matches reports whether nickname is mentioned in text.
func (m *Matcher) Matches(text, nickname string) bool {
	re := m.pattern(nickname)
	if re == nil {
		return false
	}
	return re.MatchString(text)
}

func (m *Matcher) pattern(nickname string) *regexp.Regexp {
	m.mu.RLock()
	re, ok := m.patterns[nickname]
	m.mu.RUnlock()
	if ok {
		return re
	}

	name := strings.TrimPrefix(strings.TrimSpace(nickname), "@")
	if name == "" {
		return nil
	}

	expr := `(?i)(?:^|[^\p{L}\p{N}_])@?` + regexp.QuoteMeta(name) + `(?:[^\p{L}\p{N}_]|$)`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil
	}

	m.mu.Lock()
	m.patterns[nickname] = re
	m.mu.Unlock()
	return re
}
