package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcherWordBoundaries(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		name     string
		text     string
		nickname string
		want     bool
	}{
		{"bare name", "hello bob, how are you", "bob", true},
		{"at-prefixed mention", "hello @bob!", "bob", true},
		{"name only", "@bob", "bob", true},
		{"case insensitive", "ping BOB please", "bob", true},
		{"punctuation boundaries", "foo.bob,bar", "bob", true},
		{"start of text", "bob: look at this", "bob", true},
		{"end of text", "this one is for bob", "bob", true},
		{"prefix of longer word", "bobby is here", "bob", false},
		{"suffix of longer word", "kebob stand", "bob", false},
		{"trailing digit", "bob2 wrote this", "bob", false},
		{"underscore glued", "bob_smith joined", "bob", false},
		{"no mention at all", "nothing to see here", "bob", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(tt.text, tt.nickname))
		})
	}
}

func TestMatcherNicknameNormalization(t *testing.T) {
	m := NewMatcher()

	// A tracked "@alice" matches bare "alice" in text and vice versa.
	assert.True(t, m.Matches("alice is online", "@alice"))
	assert.True(t, m.Matches("cc @alice", "alice"))
	assert.True(t, m.Matches("cc @alice", "@alice"))

	assert.False(t, m.Matches("anything", ""))
	assert.False(t, m.Matches("anything", "@"))
	assert.False(t, m.Matches("anything", "   "))
}

func TestMatcherNonLatin(t *testing.T) {
	m := NewMatcher()

	assert.True(t, m.Matches("привет, вася!", "вася"))
	assert.True(t, m.Matches("привет @вася", "вася"))
	assert.False(t, m.Matches("васями недовольны", "вася"))
	assert.False(t, m.Matches("свася пришла", "вася"))
}

func TestMatcherSpecialCharactersQuoted(t *testing.T) {
	m := NewMatcher()

	// Regex metacharacters in a nickname are literal.
	assert.True(t, m.Matches("ping a.b now", "a.b"))
	assert.False(t, m.Matches("ping axb now", "a.b"))
}
