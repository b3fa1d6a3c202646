package textproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func defaultProfile(t *testing.T) *Profile {
	t.Helper()
	p, err := NewProfile(ProfileConfig{})
	require.NoError(t, err)
	return p
}

func TestProfile_Normalize(t *testing.T) {
	p := defaultProfile(t)

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Stopwords, punctuation and contractions",
			input:    "Hello, World! I can't wait.",
			expected: []string{"hello", "world", "ca", "n't", "wait"},
		},
		{
			name:     "Repeated exclamation marks, plural kept without a lexicon",
			input:    "FREE prizes!!! Call now",
			expected: []string{"free", "prizes", "call"},
		},
		{
			name:     "Quotes become punctuation tokens and are dropped",
			input:    `He said "win" now`,
			expected: []string{"said", "win"},
		},
		{
			name:     "Only stopwords",
			input:    "it is what it is",
			expected: []string{},
		},
		{
			name:     "Empty string",
			input:    "",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Normalize(tt.input)
			require.NotNil(t, got)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestProfile_Normalize_WithLexicon(t *testing.T) {
	lexicon, err := ReadLexicon(strings.NewReader("free\nprize\ncall\nnews\nseries\n"))
	require.NoError(t, err)
	p, err := NewProfileWithLexicon(ProfileConfig{}, lexicon)
	require.NoError(t, err)

	require.Equal(t,
		[]string{"free", "prize", "call", "news", "series", "always"},
		p.Normalize("FREE prizes!!! Call now for news, series, always"))
}

func TestProfile_Normalize_IsDeterministic(t *testing.T) {
	p := defaultProfile(t)
	text := "URGENT: your account has been selected, claim the $1000 reward at www.example.com today!"
	require.Equal(t, p.Normalize(text), p.Normalize(text))
}

func TestProfile_PunctuationRules(t *testing.T) {
	pure := defaultProfile(t)
	substring, err := NewProfile(ProfileConfig{PunctuationRule: PunctuationSubstring})
	require.NoError(t, err)

	input := `He said "win" now`
	require.Equal(t, []string{"said", "win"}, pure.Normalize(input))
	require.Equal(t, []string{"said", "``", "win", "''"}, substring.Normalize(input))

	require.True(t, pure.IsPunctuation("..."))
	require.False(t, substring.IsPunctuation("..."))
	require.True(t, substring.IsPunctuation("()"))
	require.False(t, pure.IsPunctuation("n't"))
}

func TestNewProfile_Errors(t *testing.T) {
	_, err := NewProfile(ProfileConfig{Language: "klingon"})
	require.Error(t, err)

	_, err = NewProfile(ProfileConfig{PunctuationRule: "aggressive"})
	require.Error(t, err)

	_, err = NewProfile(ProfileConfig{Lemmatizer: "snowball"})
	require.Error(t, err)

	_, err = NewProfile(ProfileConfig{LexiconPath: "/does/not/exist.txt"})
	require.Error(t, err)
}

func TestProfile_Fingerprint(t *testing.T) {
	a := defaultProfile(t)
	b := defaultProfile(t)
	require.Equal(t, a.Fingerprint(), b.Fingerprint())
	require.Len(t, a.Fingerprint(), 16)

	porter, err := NewProfile(ProfileConfig{Lemmatizer: LemmatizerPorter})
	require.NoError(t, err)
	require.NotEqual(t, a.Fingerprint(), porter.Fingerprint())

	lexicon, err := ReadLexicon(strings.NewReader("offer\n"))
	require.NoError(t, err)
	withLexicon, err := NewProfileWithLexicon(ProfileConfig{}, lexicon)
	require.NoError(t, err)
	require.NotEqual(t, a.Fingerprint(), withLexicon.Fingerprint())
}

func TestStopwords(t *testing.T) {
	set, ok := Stopwords("english")
	require.True(t, ok)
	require.Len(t, set, 179)
	require.Contains(t, set, "don't")

	_, ok = Stopwords("french")
	require.False(t, ok)
}
